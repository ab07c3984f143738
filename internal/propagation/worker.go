package propagation

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/orb/orbscreen/internal/metrics"
	"github.com/orb/orbscreen/internal/tle"
)

// batchJob is a unit of work for the worker pool: one object by index.
type batchJob struct {
	idx  int
	elem *tle.ElementSet
}

// batchResult is the outcome for one object.
type batchResult struct {
	idx   int
	state State
	err   error
}

// WorkerPool manages a fixed number of goroutines for parallel SGP4
// propagation of many objects to a common instant.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

// NewWorkerPool creates a worker pool with the given number of workers.
// A non-positive count defaults to runtime.NumCPU().
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &WorkerPool{
		workers: workers,
		logger:  logger,
	}
}

// PropagateBatch propagates every object to the single instant t.
// The call never fails: states[i] holds position km then velocity km/s
// for elems[i] and is unspecified when valid[i] is false. All launched
// work completes before the call returns. Cancelling ctx stops feeding
// new jobs; unstarted objects come back invalid.
func (wp *WorkerPool) PropagateBatch(ctx context.Context, elems []*tle.ElementSet, t time.Time) ([][6]float64, []bool) {
	states := make([][6]float64, len(elems))
	valid := make([]bool, len(elems))
	if len(elems) == 0 {
		return states, valid
	}

	t = t.UTC()
	start := time.Now()

	jobs := make(chan batchJob, wp.workers*2)
	results := make(chan batchResult, wp.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				s, err := propagateAt(job.elem, t)
				results <- batchResult{idx: job.idx, state: s, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, e := range elems {
			select {
			case jobs <- batchJob{idx: i, elem: e}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var successCount, errorCount int
	for r := range results {
		if r.err != nil {
			errorCount++
			wp.logger.Warn("propagation failed",
				"norad_id", elems[r.idx].NORADID,
				"error", r.err,
			)
			continue
		}
		successCount++
		states[r.idx] = [6]float64{
			r.state.Position[0], r.state.Position[1], r.state.Position[2],
			r.state.Velocity[0], r.state.Velocity[1], r.state.Velocity[2],
		}
		valid[r.idx] = true
	}

	metrics.RecordPropagation(time.Since(start), successCount, errorCount)
	return states, valid
}
