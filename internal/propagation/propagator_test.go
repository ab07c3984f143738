package propagation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/orb/orbscreen/internal/tle"
)

// ISS-like element set (rounded illustrative elements, epoch 2024 day 100.5).
const (
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9005"
	issLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09"
)

// Starlink element set (typical LEO constellation satellite).
const (
	starlinkLine1 = "1 44713U 19074A   24100.50000000  .00001000  00000-0  10000-4 0  9995"
	starlinkLine2 = "2 44713  53.0000 200.0000 0001500  90.0000 270.0000 15.06000000    05"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

func mustParse(t *testing.T, lines ...string) []*tle.ElementSet {
	t.Helper()
	elems, err := tle.Parse(strings.NewReader(strings.Join(lines, "\n")), testLogger)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return elems
}

// TestPropagateOneNearEpoch verifies SGP4 output is a plausible LEO state
// within a day of the element set epoch.
func TestPropagateOneNearEpoch(t *testing.T) {
	elems := mustParse(t, issLine1, issLine2)
	at := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)

	states, err := PropagateOne(elems[0], []time.Time{at})
	if err != nil {
		t.Fatalf("PropagateOne failed: %v", err)
	}
	if len(states) != 1 {
		t.Fatalf("expected 1 state, got %d", len(states))
	}

	s := states[0]
	if s.NORADID != 25544 {
		t.Errorf("NORADID = %d, want 25544", s.NORADID)
	}
	if !s.Time.Equal(at) {
		t.Errorf("Time = %v, want %v", s.Time, at)
	}

	r := vecMag(s.Position)
	// ISS orbital radius is roughly 6790 km; allow generous slack for
	// drag and short-period terms.
	if r < 6600 || r > 7000 {
		t.Errorf("position magnitude = %.1f km, want ~6790", r)
	}
	v := vecMag(s.Velocity)
	if v < 7.0 || v > 8.0 {
		t.Errorf("velocity magnitude = %.3f km/s, want ~7.66", v)
	}
}

// TestPropagateOneRejectsNonUTC verifies the UTC precondition.
func TestPropagateOneRejectsNonUTC(t *testing.T) {
	elems := mustParse(t, issLine1, issLine2)
	local := time.FixedZone("UTC+2", 2*3600)
	at := time.Date(2024, 4, 10, 12, 0, 0, 0, local)

	if _, err := PropagateOne(elems[0], []time.Time{at}); err == nil {
		t.Error("expected error for non-UTC time")
	}
}

// TestPropagateOneMultipleInstants verifies output ordering matches input.
func TestPropagateOneMultipleInstants(t *testing.T) {
	elems := mustParse(t, issLine1, issLine2)
	base := time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(10 * time.Minute), base.Add(20 * time.Minute)}

	states, err := PropagateOne(elems[0], times)
	if err != nil {
		t.Fatalf("PropagateOne failed: %v", err)
	}
	if len(states) != len(times) {
		t.Fatalf("expected %d states, got %d", len(times), len(states))
	}
	for i, s := range states {
		if !s.Time.Equal(times[i]) {
			t.Errorf("state %d time = %v, want %v", i, s.Time, times[i])
		}
	}

	// The object moves between instants.
	if states[0].Position == states[1].Position {
		t.Error("position did not change over 10 minutes")
	}
}

// TestPropagationErrorType verifies the error carries the object and instant.
func TestPropagationErrorType(t *testing.T) {
	perr := &PropagationError{NORADID: 25544, Time: time.Now().UTC(), Msg: "test"}
	var target *PropagationError
	if !errors.As(error(perr), &target) {
		t.Error("errors.As failed for *PropagationError")
	}
	if !strings.Contains(perr.Error(), "25544") {
		t.Errorf("error string %q does not name the object", perr.Error())
	}
}

// TestPropagateBatch verifies parallel propagation of a small catalog.
func TestPropagateBatch(t *testing.T) {
	elems := mustParse(t, issLine1, issLine2, starlinkLine1, starlinkLine2)
	if len(elems) != 2 {
		t.Fatalf("expected 2 element sets, got %d", len(elems))
	}

	pool := NewWorkerPool(4, testLogger)
	at := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)
	states, valid := pool.PropagateBatch(context.Background(), elems, at)

	if len(states) != 2 || len(valid) != 2 {
		t.Fatalf("expected 2 results, got %d states %d flags", len(states), len(valid))
	}
	for i := range elems {
		if !valid[i] {
			t.Errorf("object %d (NORAD %d) marked invalid", i, elems[i].NORADID)
			continue
		}
		r := math.Sqrt(states[i][0]*states[i][0] + states[i][1]*states[i][1] + states[i][2]*states[i][2])
		if r < 6600 || r > 7200 {
			t.Errorf("object %d position magnitude = %.1f km, want LEO", i, r)
		}
	}
}

// TestPropagateBatchEmpty verifies the zero-object call.
func TestPropagateBatchEmpty(t *testing.T) {
	pool := NewWorkerPool(2, testLogger)
	states, valid := pool.PropagateBatch(context.Background(), nil, time.Now().UTC())
	if len(states) != 0 || len(valid) != 0 {
		t.Errorf("expected empty results, got %d states %d flags", len(states), len(valid))
	}
}

// TestPropagateBatchCancelled verifies a pre-cancelled context yields no
// panics and still returns one state and one flag per object.
func TestPropagateBatchCancelled(t *testing.T) {
	var lines []string
	for i := 0; i < 50; i++ {
		lines = append(lines, issLine1, issLine2)
	}
	elems := mustParse(t, lines...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := NewWorkerPool(2, testLogger)
	states, valid := pool.PropagateBatch(ctx, elems, time.Now().UTC())
	if len(states) != len(elems) || len(valid) != len(elems) {
		t.Fatalf("result length mismatch: %d states %d flags for %d objects",
			len(states), len(valid), len(elems))
	}
}

// TestNewWorkerPoolDefaults verifies the non-positive worker count default.
func TestNewWorkerPoolDefaults(t *testing.T) {
	pool := NewWorkerPool(0, testLogger)
	if pool.workers <= 0 {
		t.Errorf("workers = %d, want positive default", pool.workers)
	}
	pool = NewWorkerPool(-3, testLogger)
	if pool.workers <= 0 {
		t.Errorf("workers = %d, want positive default", pool.workers)
	}
}

func vecMag(v [3]float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

func BenchmarkPropagateBatch(b *testing.B) {
	var sb strings.Builder
	for i := 0; i < 100; i++ {
		sb.WriteString(issLine1 + "\n" + issLine2 + "\n")
	}
	elems, err := tle.Parse(strings.NewReader(sb.String()), testLogger)
	if err != nil {
		b.Fatalf("Parse failed: %v", err)
	}

	pool := NewWorkerPool(0, testLogger)
	at := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.PropagateBatch(context.Background(), elems, at)
	}
}
