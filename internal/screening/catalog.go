package screening

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/orb/orbscreen/internal/metrics"
	"github.com/orb/orbscreen/internal/tle"
)

// objPoint is a propagated position tagged with its catalog index so
// tree query results can be mapped back to objects.
type objPoint struct {
	pos [3]float64
	idx int
}

func (p objPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(objPoint)
	return p.pos[d] - q.pos[d]
}

func (p objPoint) Dims() int { return 3 }

func (p objPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(objPoint)
	dx := p.pos[0] - q.pos[0]
	dy := p.pos[1] - q.pos[1]
	dz := p.pos[2] - q.pos[2]
	return dx*dx + dy*dy + dz*dz
}

// objPoints implements kdtree.Interface over a step's valid positions.
type objPoints []objPoint

func (p objPoints) Index(i int) kdtree.Comparable { return p[i] }
func (p objPoints) Len() int                      { return len(p) }
func (p objPoints) Pivot(d kdtree.Dim) int        { return plane{objPoints: p, Dim: d}.Pivot() }
func (p objPoints) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

type plane struct {
	kdtree.Dim
	objPoints
}

func (p plane) Less(i, j int) bool {
	return p.objPoints[i].pos[p.Dim] < p.objPoints[j].pos[p.Dim]
}
func (p plane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.objPoints = p.objPoints[start:end]
	return p
}
func (p plane) Swap(i, j int) {
	p.objPoints[i], p.objPoints[j] = p.objPoints[j], p.objPoints[i]
}

// pairHit tracks the best coarse separation seen for one object pair.
type pairHit struct {
	i, j   int
	bestD  float64
	bestAt time.Time
}

// ScreenCatalog screens every object against every other over a window
// anchored at the reference time. Each step batch-propagates the catalog
// and finds close pairs through a k-d tree over the valid positions; the
// best coarse approach per pair seeds the refinement window.
func (s *Screener) ScreenCatalog(ctx context.Context, catalog []*tle.ElementSet, opts Options) ([]ConjunctionEvent, error) {
	opts, err := opts.withDefaults(s.now)
	if err != nil {
		return nil, err
	}

	elems := FilterStale(catalog, opts.MaxAgeDays, opts.ReferenceTime)

	runID := uuid.NewString()
	start := time.Now()
	s.logger.Info("catalog screening started",
		"run_id", runID,
		"objects", len(elems),
		"filtered_stale", len(catalog)-len(elems),
		"window_hours", opts.CatalogWindowHours,
		"threshold_km", opts.ThresholdKm,
	)

	windowStart := opts.ReferenceTime
	windowEnd := windowStart.Add(time.Duration(opts.CatalogWindowHours * float64(time.Hour)))
	step := time.Duration(opts.StepMinutes * float64(time.Minute))
	halfStep := step / 2
	thresholdSq := opts.ThresholdKm * opts.ThresholdKm

	hits := make(map[[2]int]*pairHit)
	for t := windowStart; !t.After(windowEnd); t = t.Add(step) {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		states, valid := s.pool.PropagateBatch(ctx, elems, t)

		pts := make(objPoints, 0, len(elems))
		for i := range elems {
			if !valid[i] {
				continue
			}
			pts = append(pts, objPoint{
				pos: [3]float64{states[i][0], states[i][1], states[i][2]},
				idx: i,
			})
		}
		if len(pts) < 2 {
			continue
		}

		tree := kdtree.New(pts, false)
		for _, p := range pts {
			keeper := kdtree.NewDistKeeper(thresholdSq)
			tree.NearestSet(keeper, p)
			for _, cd := range keeper.Heap {
				q, ok := cd.Comparable.(objPoint)
				if !ok || q.idx <= p.idx {
					continue
				}
				key := [2]int{p.idx, q.idx}
				d := distance(p.pos, q.pos)
				if h, seen := hits[key]; !seen || d < h.bestD {
					hits[key] = &pairHit{i: p.idx, j: q.idx, bestD: d, bestAt: t}
				}
			}
		}
	}

	var events []ConjunctionEvent
	for _, h := range hits {
		e1, e2 := elems[h.i], elems[h.j]
		ev, err := refinePair(e1, e2, h.bestAt.Add(-halfStep), h.bestAt.Add(halfStep), opts.StepMinutes)
		if err != nil {
			s.logger.Warn("dropping pair after refinement failure",
				"run_id", runID,
				"norad_id_1", e1.NORADID,
				"norad_id_2", e2.NORADID,
				"error", err,
			)
			continue
		}
		events = append(events, ev)
	}

	events = dedupe(events)
	metrics.RecordScreening("catalog", time.Since(start), len(events))
	s.logger.Info("catalog screening finished",
		"run_id", runID,
		"pairs", len(hits),
		"events", len(events),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return events, nil
}
