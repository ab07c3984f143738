package screening

import (
	"fmt"
	"math"
	"time"

	"github.com/orb/orbscreen/internal/propagation"
	"github.com/orb/orbscreen/internal/tle"
)

// refineMinStepSeconds is the finest bracket step of the TCA search.
const refineMinStepSeconds = 1.0

// refinePair locates the time of closest approach inside a candidate
// window by a shrinking-bracket search on the separation distance:
// sample the bracket at the current step, re-center on the running
// minimum, halve the step, repeat until the step drops below one second.
// Propagation here is direct single-object evaluation, not batched.
func refinePair(e1, e2 *tle.ElementSet, windowStart, windowEnd time.Time, stepMinutes float64) (ConjunctionEvent, error) {
	stepSec := stepMinutes * 30 // half the coarse cadence in seconds
	lo, hi := windowStart.UTC(), windowEnd.UTC()

	bestT := lo
	bestD := math.Inf(1)

	for stepSec >= refineMinStepSeconds {
		t := lo
		for !t.After(hi) {
			d, err := separationAt(e1, e2, t)
			if err != nil {
				return ConjunctionEvent{}, err
			}
			if d < bestD {
				bestD = d
				bestT = t
			}
			t = t.Add(time.Duration(stepSec * float64(time.Second)))
		}

		// Re-center the bracket on the running minimum before halving.
		span := time.Duration(stepSec * float64(time.Second))
		lo = bestT.Add(-span)
		hi = bestT.Add(span)
		if lo.Before(windowStart) {
			lo = windowStart
		}
		if hi.After(windowEnd) {
			hi = windowEnd
		}
		stepSec /= 2
	}

	s1, err := propagation.PropagateOne(e1, []time.Time{bestT})
	if err != nil {
		return ConjunctionEvent{}, err
	}
	s2, err := propagation.PropagateOne(e2, []time.Time{bestT})
	if err != nil {
		return ConjunctionEvent{}, err
	}

	return ConjunctionEvent{
		NORADID1:         e1.NORADID,
		NORADID2:         e2.NORADID,
		Name1:            e1.Name,
		Name2:            e2.Name,
		TCA:              bestT,
		MissDistanceKm:   bestD,
		RelativeSpeedKmS: relativeSpeed(s1[0], s2[0]),
	}, nil
}

// separationAt evaluates the inter-object distance at one instant.
func separationAt(e1, e2 *tle.ElementSet, t time.Time) (float64, error) {
	s1, err := propagation.PropagateOne(e1, []time.Time{t})
	if err != nil {
		return 0, fmt.Errorf("refining pair %d/%d: %w", e1.NORADID, e2.NORADID, err)
	}
	s2, err := propagation.PropagateOne(e2, []time.Time{t})
	if err != nil {
		return 0, fmt.Errorf("refining pair %d/%d: %w", e1.NORADID, e2.NORADID, err)
	}
	return distance(s1[0].Position, s2[0].Position), nil
}

func distance(a, b [3]float64) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	dz := a[2] - b[2]
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func relativeSpeed(a, b propagation.State) float64 {
	dvx := a.Velocity[0] - b.Velocity[0]
	dvy := a.Velocity[1] - b.Velocity[1]
	dvz := a.Velocity[2] - b.Velocity[2]
	return math.Sqrt(dvx*dvx + dvy*dvy + dvz*dvz)
}
