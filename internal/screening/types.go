package screening

import (
	"fmt"
	"time"

	"github.com/orb/orbscreen/internal/astro"
)

// ConjunctionEvent is one close-approach finding. Events are value
// records; pipeline stages that adjust results build new events rather
// than patching old ones.
type ConjunctionEvent struct {
	NORADID1 int
	NORADID2 int
	Name1    string
	Name2    string

	TCA              time.Time
	MissDistanceKm   float64
	RelativeSpeedKmS float64
}

// Pair returns the event's object pair normalized low catalog number first.
func (e ConjunctionEvent) Pair() [2]int {
	if e.NORADID1 <= e.NORADID2 {
		return [2]int{e.NORADID1, e.NORADID2}
	}
	return [2]int{e.NORADID2, e.NORADID1}
}

// Options control a screening run. Zero values take the defaults below.
type Options struct {
	// WindowDays is the forward screening window per primary.
	WindowDays float64

	// CatalogWindowHours is the all-on-all screening window.
	CatalogWindowHours float64

	// ThresholdKm is the coarse-sweep miss distance threshold.
	ThresholdKm float64

	// StepMinutes is the coarse-sweep cadence.
	StepMinutes float64

	// MaxAgeDays drops element sets older than this before an all-on-all
	// run. Zero disables the stale prefilter.
	MaxAgeDays float64

	// ReferenceTime anchors the stale prefilter and the catalog window.
	// Zero means the current UTC time.
	ReferenceTime time.Time
}

// withDefaults fills unset options and validates the rest.
func (o Options) withDefaults(now func() time.Time) (Options, error) {
	if o.WindowDays == 0 {
		o.WindowDays = astro.DefaultScreeningWindowDays
	}
	if o.CatalogWindowHours == 0 {
		o.CatalogWindowHours = astro.DefaultCatalogWindowHours
	}
	if o.ThresholdKm == 0 {
		o.ThresholdKm = astro.DefaultMissDistanceKm
	}
	if o.StepMinutes == 0 {
		o.StepMinutes = astro.DefaultStepMinutes
	}
	if o.ReferenceTime.IsZero() {
		o.ReferenceTime = now().UTC()
	}
	o.ReferenceTime = o.ReferenceTime.UTC()

	if o.WindowDays < 0 {
		return o, fmt.Errorf("screening window must be positive, got %g days", o.WindowDays)
	}
	if o.CatalogWindowHours < 0 {
		return o, fmt.Errorf("catalog window must be positive, got %g hours", o.CatalogWindowHours)
	}
	if o.ThresholdKm <= 0 {
		return o, fmt.Errorf("miss distance threshold must be positive, got %g km", o.ThresholdKm)
	}
	if o.StepMinutes <= 0 {
		return o, fmt.Errorf("step must be positive, got %g minutes", o.StepMinutes)
	}
	if o.MaxAgeDays < 0 {
		return o, fmt.Errorf("max element set age must be positive, got %g days", o.MaxAgeDays)
	}
	return o, nil
}
