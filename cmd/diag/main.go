package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/orb/orbscreen/internal/astro"
	"github.com/orb/orbscreen/internal/propagation"
	"github.com/orb/orbscreen/internal/tle"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	if len(os.Args) < 2 {
		fmt.Println("usage: diag <element-set-file>")
		os.Exit(1)
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Println("ERROR reading element set file:", err)
		os.Exit(1)
	}

	elems, err := tle.Parse(bytes.NewReader(data), logger)
	if err != nil {
		fmt.Println("ERROR parsing element sets:", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d element sets\n", len(elems))

	limit := len(elems)
	if limit > 10 {
		limit = 10
	}
	for _, e := range elems[:limit] {
		n := e.MeanMotionRevDay * 2 * math.Pi / 86400
		a := math.Cbrt(astro.EarthMuKm3S2 / (n * n))
		apogee := a*(1+e.Eccentricity) - astro.EarthRadiusKm
		perigee := a*(1-e.Eccentricity) - astro.EarthRadiusKm
		fmt.Printf("  %s (NORAD %d) epoch %v  incl %.2f°  apogee %.0f km  perigee %.0f km\n",
			e.Name, e.NORADID, e.Epoch.Format(time.RFC3339), e.InclinationDeg, apogee, perigee)
	}

	now := time.Now().UTC()
	fmt.Printf("Batch propagation sanity check at %v\n", now.Format(time.RFC3339))

	pool := propagation.NewWorkerPool(0, logger)
	states, valid := pool.PropagateBatch(context.Background(), elems, now)

	ok := 0
	for i := range elems {
		if valid[i] {
			ok++
			continue
		}
		fmt.Printf("  NORAD %d: propagation failed\n", elems[i].NORADID)
	}
	fmt.Printf("Propagated %d/%d objects\n", ok, len(elems))
	for i := range elems {
		if valid[i] {
			r := math.Sqrt(states[i][0]*states[i][0] + states[i][1]*states[i][1] + states[i][2]*states[i][2])
			fmt.Printf("First state: NORAD %d at radius %.1f km\n", elems[i].NORADID, r)
			break
		}
	}
}
