package propagation

import (
	"fmt"
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/orb/orbscreen/internal/tle"
)

// SGP4 library choice: github.com/joshuaferrara/go-satellite
//
// Pure Go (no CGO), explicit TEME output, battle-tested since 2016.
//
// Note: Propagate() takes Satellite by value so SGP4 error codes are not
// visible to the caller. We detect propagation failures by checking output
// for NaN/Inf and unreasonable position magnitudes.

// Position magnitude sanity bounds in km. Anything below the Earth surface
// or beyond super-GEO indicates a decayed or diverged solution.
const (
	minSaneRadiusKm = 6200.0
	maxSaneRadiusKm = 50000.0
)

// PropagateOne computes TEME states for a single object at each instant.
// All instants must be UTC. Returns a PropagationError naming the object
// and the failing instant if SGP4 diverges at any of them.
func PropagateOne(e *tle.ElementSet, times []time.Time) ([]State, error) {
	states := make([]State, 0, len(times))
	for _, t := range times {
		if t.Location() != time.UTC {
			return nil, fmt.Errorf("propagation time must be UTC, got %s", t.Location())
		}
		s, err := propagateAt(e, t)
		if err != nil {
			return nil, err
		}
		states = append(states, s)
	}
	return states, nil
}

// propagateAt runs SGP4 for one object at one instant and sanity-checks
// the output.
func propagateAt(e *tle.ElementSet, t time.Time) (State, error) {
	pos, vel := satellite.Propagate(e.Handle(), t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	if !finiteVec(pos) || !finiteVec(vel) {
		return State{}, &PropagationError{NORADID: e.NORADID, Time: t, Msg: "output is NaN/Inf"}
	}

	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if mag < minSaneRadiusKm || mag > maxSaneRadiusKm {
		return State{}, &PropagationError{
			NORADID: e.NORADID,
			Time:    t,
			Msg:     fmt.Sprintf("unreasonable position magnitude %.1f km", mag),
		}
	}

	return State{
		NORADID:  e.NORADID,
		Time:     t,
		Position: [3]float64{pos.X, pos.Y, pos.Z},
		Velocity: [3]float64{vel.X, vel.Y, vel.Z},
	}, nil
}

func finiteVec(v satellite.Vector3) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsNaN(v.Z) &&
		!math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0) && !math.IsInf(v.Z, 0)
}
