// Package screening implements the conjunction screening pipeline:
// geometric prefilter, coarse batched sweep, candidate-window merging,
// TCA refinement, and deduplication.
package screening

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/orb/orbscreen/internal/metrics"
	"github.com/orb/orbscreen/internal/propagation"
	"github.com/orb/orbscreen/internal/tle"
)

// dedupWindow collapses events for the same pair closer than this.
const dedupWindow = 5 * time.Minute

// Screener runs conjunction screens. Its clock, set to time.Now by
// NewScreener, supplies the default reference time.
type Screener struct {
	pool   *propagation.WorkerPool
	logger *slog.Logger
	now    func() time.Time
}

// NewScreener creates a Screener with the given worker pool size.
func NewScreener(workers int, logger *slog.Logger) *Screener {
	return &Screener{
		pool:   propagation.NewWorkerPool(workers, logger),
		logger: logger,
		now:    time.Now,
	}
}

// candidateWindow is one suspect interval for a specific pair found by
// the coarse sweep.
type candidateWindow struct {
	other *tle.ElementSet
	start time.Time
	end   time.Time
}

// Screen sweeps each primary against the catalog over a forward window
// anchored at the primary's epoch and refines every candidate hit.
// Results are deduplicated and sorted by miss distance ascending.
func (s *Screener) Screen(ctx context.Context, primaries, catalog []*tle.ElementSet, opts Options) ([]ConjunctionEvent, error) {
	opts, err := opts.withDefaults(s.now)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	start := time.Now()
	s.logger.Info("screening started",
		"run_id", runID,
		"primaries", len(primaries),
		"catalog", len(catalog),
		"window_days", opts.WindowDays,
		"threshold_km", opts.ThresholdKm,
	)

	var events []ConjunctionEvent
	for _, primary := range primaries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		evs := s.screenPrimary(ctx, primary, catalog, opts, runID)
		events = append(events, evs...)
	}

	events = dedupe(events)
	metrics.RecordScreening("primary", time.Since(start), len(events))
	s.logger.Info("screening finished",
		"run_id", runID,
		"events", len(events),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return events, nil
}

// screenPrimary runs the coarse sweep and refinement for one primary.
func (s *Screener) screenPrimary(ctx context.Context, primary *tle.ElementSet, catalog []*tle.ElementSet, opts Options, runID string) []ConjunctionEvent {
	candidates := candidatesFor(primary, catalog, opts.ThresholdKm)
	if len(candidates) == 0 {
		return nil
	}

	// Batch P with its candidates so each step is one propagation call.
	union := make([]*tle.ElementSet, 0, len(candidates)+1)
	union = append(union, primary)
	union = append(union, candidates...)

	windowStart := primary.Epoch
	windowEnd := windowStart.Add(time.Duration(opts.WindowDays * float64(24*time.Hour)))
	step := time.Duration(opts.StepMinutes * float64(time.Minute))
	halfStep := step / 2

	// hits collects suspect instants per candidate index, in time order.
	hits := make(map[int][]time.Time)
	for t := windowStart; !t.After(windowEnd); t = t.Add(step) {
		if ctx.Err() != nil {
			return nil
		}
		states, valid := s.pool.PropagateBatch(ctx, union, t)
		if !valid[0] {
			continue
		}
		p := [3]float64{states[0][0], states[0][1], states[0][2]}
		for j := 1; j < len(union); j++ {
			if !valid[j] {
				continue
			}
			c := [3]float64{states[j][0], states[j][1], states[j][2]}
			if distance(p, c) <= opts.ThresholdKm {
				hits[j] = append(hits[j], t)
			}
		}
	}

	var windows []candidateWindow
	for j, times := range hits {
		windows = append(windows, mergeHits(union[j], times, halfStep)...)
	}

	var events []ConjunctionEvent
	for _, w := range windows {
		ev, err := refinePair(primary, w.other, w.start, w.end, opts.StepMinutes)
		if err != nil {
			s.logger.Warn("dropping pair after refinement failure",
				"run_id", runID,
				"norad_id_1", primary.NORADID,
				"norad_id_2", w.other.NORADID,
				"error", err,
			)
			continue
		}
		events = append(events, ev)
	}
	return events
}

// mergeHits turns a time-ordered list of suspect instants into candidate
// windows (t-h/2, t+h/2), merging windows that touch or overlap.
func mergeHits(other *tle.ElementSet, times []time.Time, halfStep time.Duration) []candidateWindow {
	var out []candidateWindow
	for _, t := range times {
		start, end := t.Add(-halfStep), t.Add(halfStep)
		if n := len(out); n > 0 && !start.After(out[n-1].end) {
			out[n-1].end = end
			continue
		}
		out = append(out, candidateWindow{other: other, start: start, end: end})
	}
	return out
}

// dedupe collapses events for the same pair whose TCAs fall within
// dedupWindow of each other, keeping the smaller miss, and returns a new
// list sorted by miss distance ascending.
func dedupe(events []ConjunctionEvent) []ConjunctionEvent {
	out := make([]ConjunctionEvent, 0, len(events))
	for _, ev := range events {
		merged := false
		for i, kept := range out {
			if kept.Pair() != ev.Pair() {
				continue
			}
			dt := kept.TCA.Sub(ev.TCA)
			if dt < 0 {
				dt = -dt
			}
			if dt <= dedupWindow {
				if ev.MissDistanceKm < kept.MissDistanceKm {
					out[i] = ev
				}
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, ev)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].MissDistanceKm < out[j].MissDistanceKm
	})
	return out
}
