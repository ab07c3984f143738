package probability

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// DefaultSamples is the Monte Carlo sample count when none is given.
const DefaultSamples = 100000

// monteCarloPc samples the 3-D combined position normal centered on the
// relative position, projects each sample onto the encounter plane, and
// returns the fraction falling inside the hard-body disk. Returns the
// estimate and whether the covariance needed a ridge to factor.
func monteCarloPc(rRel [3]float64, combined *mat.SymDense, enc encounter, radiusKm float64, samples int, seed uint64) (float64, bool) {
	if samples <= 0 {
		samples = DefaultSamples
	}

	mu := []float64{rRel[0], rRel[1], rRel[2]}
	src := rand.NewSource(seed)

	cov := combined
	regularized := false
	normal, ok := distmv.NewNormal(mu, cov, src)
	for ridge := regularizationScale; !ok && ridge < 1; ridge *= 10 {
		// Non-PD covariance: retry with a growing trace-scaled ridge.
		eps := ridge * (cov.At(0, 0) + cov.At(1, 1) + cov.At(2, 2))
		if eps <= 0 {
			eps = ridge
		}
		bumped := mat.NewSymDense(3, nil)
		for i := 0; i < 3; i++ {
			for j := i; j < 3; j++ {
				bumped.SetSym(i, j, combined.At(i, j))
			}
			bumped.SetSym(i, i, bumped.At(i, i)+eps)
		}
		cov = bumped
		regularized = true
		normal, ok = distmv.NewNormal(mu, cov, src)
	}
	if !ok {
		return 0, true
	}

	r2 := radiusKm * radiusKm
	x := make([]float64, 3)
	hits := 0
	for i := 0; i < samples; i++ {
		normal.Rand(x)
		s := [3]float64{x[0], x[1], x[2]}
		px := dot(s, enc.xHat)
		py := dot(s, enc.yHat)
		if px*px+py*py <= r2 {
			hits++
		}
	}
	return float64(hits) / float64(samples), regularized
}
