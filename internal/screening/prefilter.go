package screening

import (
	"math"
	"time"

	"github.com/orb/orbscreen/internal/astro"
	"github.com/orb/orbscreen/internal/tle"
)

// shell is an object's radial extent, apogee and perigee altitude in km.
type shell struct {
	apogeeKm  float64
	perigeeKm float64
}

// orbitShell derives the apogee/perigee shell from the mean motion and
// eccentricity via a = (mu/n^2)^(1/3).
func orbitShell(e *tle.ElementSet) shell {
	n := e.MeanMotionRevDay * 2 * math.Pi / 86400 // rad/s
	a := math.Cbrt(astro.EarthMuKm3S2 / (n * n))
	return shell{
		apogeeKm:  a*(1+e.Eccentricity) - astro.EarthRadiusKm,
		perigeeKm: a*(1-e.Eccentricity) - astro.EarthRadiusKm,
	}
}

// shellsOverlap reports whether two radial shells come within thresholdKm
// of each other. Objects whose shells never approach cannot conjunct.
func shellsOverlap(a, b shell, thresholdKm float64) bool {
	if a.perigeeKm > b.apogeeKm+thresholdKm {
		return false
	}
	if b.perigeeKm > a.apogeeKm+thresholdKm {
		return false
	}
	return true
}

// candidatesFor prefilters the catalog against a primary: the primary
// itself (same catalog number) is always excluded, and objects whose
// shells cannot reach the primary's are dropped.
func candidatesFor(primary *tle.ElementSet, catalog []*tle.ElementSet, thresholdKm float64) []*tle.ElementSet {
	ps := orbitShell(primary)
	out := make([]*tle.ElementSet, 0, len(catalog))
	for _, c := range catalog {
		if c.NORADID == primary.NORADID {
			continue
		}
		if !shellsOverlap(ps, orbitShell(c), thresholdKm) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// FilterStale returns the element sets whose epoch is no older than
// maxAgeDays relative to ref. A non-positive maxAgeDays disables the
// filter and returns the input unchanged.
func FilterStale(elems []*tle.ElementSet, maxAgeDays float64, ref time.Time) []*tle.ElementSet {
	if maxAgeDays <= 0 {
		return elems
	}
	cutoff := ref.UTC().Add(-time.Duration(maxAgeDays * float64(24*time.Hour)))
	out := make([]*tle.ElementSet, 0, len(elems))
	for _, e := range elems {
		if !e.Epoch.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out
}
