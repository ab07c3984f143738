// Package risk scores conjunction events for operator triage. The score
// is a heuristic on encounter geometry and object properties, not a
// probability.
package risk

import (
	"fmt"
	"math"
	"time"
)

// Category buckets a risk score.
type Category string

const (
	Critical   Category = "CRITICAL"
	High       Category = "HIGH"
	Medium     Category = "MEDIUM"
	Low        Category = "LOW"
	Negligible Category = "NEGLIGIBLE"
)

// SizeClass describes the larger of the two objects.
type SizeClass string

const (
	SizeSmall  SizeClass = "SMALL"
	SizeMedium SizeClass = "MEDIUM"
	SizeLarge  SizeClass = "LARGE"
)

// distanceDecayPerKm controls how fast the distance score falls off.
const distanceDecayPerKm = 0.15

// Input describes one encounter to score.
type Input struct {
	MissDistanceKm   float64
	RelativeSpeedKmS float64
	TCA              time.Time

	Size           SizeClass
	Maneuverable1  bool
	Maneuverable2  bool
}

// Assessment is a scored encounter with its factor breakdown.
type Assessment struct {
	Score          float64
	Category       Category
	Recommendation string
	Factors        map[string]float64
}

// Assess scores an encounter from 0 to 100. The clock anchors the
// urgency factor; pass time.Now for live use.
func Assess(in Input, clock func() time.Time) Assessment {
	// Distance dominates: exponential decay from a perfect hit.
	distScore := 100 * math.Exp(-distanceDecayPerKm*in.MissDistanceKm)

	// Faster encounters leave less reaction margin; linear to 10 km/s.
	velFactor := 0.5 + 0.5*math.Min(in.RelativeSpeedKmS/10, 1)

	sizeFactor := 1.0
	switch in.Size {
	case SizeLarge:
		sizeFactor = 1.2
	case SizeSmall:
		sizeFactor = 0.8
	}

	maneuverFactor := 1.0
	switch {
	case in.Maneuverable1 && in.Maneuverable2:
		maneuverFactor = 0.7
	case in.Maneuverable1 || in.Maneuverable2:
		maneuverFactor = 0.85
	}

	urgencyFactor := 1.0
	if !in.TCA.IsZero() {
		hoursToTCA := in.TCA.Sub(clock().UTC()).Hours()
		switch {
		case hoursToTCA <= 24:
			urgencyFactor = 1.2
		case hoursToTCA <= 72:
			urgencyFactor = 1.1
		}
	}

	score := distScore * velFactor * sizeFactor * maneuverFactor * urgencyFactor

	// Very close, fast encounters are never scored below 85 no matter
	// what the multipliers say.
	if in.MissDistanceKm < 0.5 && in.RelativeSpeedKmS > 5 && score < 85 {
		score = 85
	}
	score = math.Min(math.Max(score, 0), 100)

	cat := categorize(score)
	return Assessment{
		Score:          score,
		Category:       cat,
		Recommendation: recommendation(cat, in),
		Factors: map[string]float64{
			"distance": distScore,
			"velocity": velFactor,
			"size":     sizeFactor,
			"maneuver": maneuverFactor,
			"urgency":  urgencyFactor,
		},
	}
}

func categorize(score float64) Category {
	switch {
	case score >= 80:
		return Critical
	case score >= 60:
		return High
	case score >= 40:
		return Medium
	case score >= 20:
		return Low
	default:
		return Negligible
	}
}

func recommendation(cat Category, in Input) string {
	switch cat {
	case Critical:
		return fmt.Sprintf("Immediate action: %.3f km miss at %.1f km/s. Plan an avoidance maneuver and request updated tracking.", in.MissDistanceKm, in.RelativeSpeedKmS)
	case High:
		return "Elevated risk. Request updated tracking and prepare maneuver options."
	case Medium:
		return "Monitor closely. Re-screen as new element sets arrive."
	case Low:
		return "Routine monitoring is sufficient."
	default:
		return "No action required."
	}
}
