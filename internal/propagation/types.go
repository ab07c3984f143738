package propagation

import "time"

// State is a single propagated state in the TEME frame.
type State struct {
	NORADID  int
	Time     time.Time
	Position [3]float64 // km
	Velocity [3]float64 // km/s
}
