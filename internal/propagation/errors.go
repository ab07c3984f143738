package propagation

import (
	"fmt"
	"time"
)

// PropagationError reports an SGP4 failure for one object at one instant.
type PropagationError struct {
	NORADID int
	Time    time.Time
	Msg     string
}

func (e *PropagationError) Error() string {
	return fmt.Sprintf("propagation failed for %d at %s: %s",
		e.NORADID, e.Time.UTC().Format(time.RFC3339), e.Msg)
}
