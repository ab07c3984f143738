package tle

import (
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// ElementSet is a parsed two-line element set together with the SGP4
// propagator initialized from it. Instances are immutable after Parse;
// propagation code reads the handle but never mutates the record.
type ElementSet struct {
	NORADID        int
	Name           string
	IntlDesignator string
	Epoch          time.Time

	// Mean elements as carried on the element set lines.
	InclinationDeg   float64
	RAANDeg          float64
	Eccentricity     float64
	ArgPerigeeDeg    float64
	MeanAnomalyDeg   float64
	MeanMotionRevDay float64
	BStar            float64

	Line1 string
	Line2 string

	sat satellite.Satellite
}

// Handle returns the SGP4 propagator bound at parse time.
func (e *ElementSet) Handle() satellite.Satellite { return e.sat }

// EpochRange represents the minimum and maximum epoch times in a catalog.
type EpochRange struct {
	Min time.Time
	Max time.Time
}

// Catalog represents a complete set of element sets from a source.
type Catalog struct {
	Source     string
	FetchedAt  time.Time
	EpochRange EpochRange
	Objects    []*ElementSet
}

// NewCatalog builds a Catalog and computes its epoch range.
func NewCatalog(source string, fetchedAt time.Time, objects []*ElementSet) *Catalog {
	c := &Catalog{
		Source:    source,
		FetchedAt: fetchedAt.UTC(),
		Objects:   objects,
	}
	for i, e := range objects {
		if i == 0 || e.Epoch.Before(c.EpochRange.Min) {
			c.EpochRange.Min = e.Epoch
		}
		if i == 0 || e.Epoch.After(c.EpochRange.Max) {
			c.EpochRange.Max = e.Epoch
		}
	}
	return c
}
