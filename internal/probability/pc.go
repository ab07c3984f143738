// Package probability computes collision probability for a conjunction
// from the two object states and their position covariances. Covariances
// are 3x3 position or 6x6 state matrices in the inertial frame, km^2;
// RTN covariances are rotated in with RTNToECI and RotateCovariance.
package probability

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Method selects the probability integration approach.
type Method string

const (
	// MethodFoster is analytic integration of the offset bivariate
	// normal over the hard-body disk.
	MethodFoster Method = "foster"

	// MethodMonteCarlo samples the combined position distribution.
	MethodMonteCarlo Method = "montecarlo"
)

// Options tune ComputePc. Zero values take defaults.
type Options struct {
	// Samples is the Monte Carlo sample count (default DefaultSamples).
	Samples int

	// Seed seeds the Monte Carlo sampler so runs are reproducible.
	Seed uint64
}

// PcResult is the outcome of a collision probability computation.
type PcResult struct {
	Probability             float64
	Method                  Method
	CombinedHardBodyRadiusM float64
	MahalanobisDistance     float64

	// Samples is the Monte Carlo sample count used, zero for analytic.
	Samples int

	// IllConditioned marks results computed from a covariance that
	// needed regularization; the probability is a degraded estimate.
	IllConditioned bool
}

// ComputePc computes the collision probability at closest approach.
// Positions are km and velocities km/s in the inertial frame; cov1 and
// cov2 are each object's position covariance (3x3, or the position block
// of a 6x6), km^2. Ill-conditioned covariances do not fail the call;
// the result carries a diagnostic flag instead.
func ComputePc(pos1, vel1, pos2, vel2 [3]float64, cov1, cov2 *mat.SymDense, hardBodyRadiusM float64, method Method, opts Options) (PcResult, error) {
	if cov1 == nil || cov2 == nil {
		return PcResult{}, fmt.Errorf("both covariances are required")
	}
	if d := cov1.SymmetricDim(); d != 3 && d != 6 {
		return PcResult{}, fmt.Errorf("covariance 1 must be 3x3 or 6x6, got %dx%d", d, d)
	}
	if d := cov2.SymmetricDim(); d != 3 && d != 6 {
		return PcResult{}, fmt.Errorf("covariance 2 must be 3x3 or 6x6, got %dx%d", d, d)
	}
	if hardBodyRadiusM <= 0 {
		return PcResult{}, fmt.Errorf("hard body radius must be positive, got %g m", hardBodyRadiusM)
	}

	// Combined position covariance C = C1 + C2.
	c1 := positionBlock(cov1)
	c2 := positionBlock(cov2)
	combined := mat.NewSymDense(3, nil)
	combined.AddSym(c1, c2)

	enc := buildEncounter(pos1, vel1, pos2, vel2, combined)
	radiusKm := hardBodyRadiusM / 1000

	result := PcResult{
		Method:                  method,
		CombinedHardBodyRadiusM: hardBodyRadiusM,
		MahalanobisDistance:     enc.mahalanobis,
		IllConditioned:          enc.regularized,
	}

	switch method {
	case MethodFoster:
		result.Probability = fosterPc(enc.sigmaB, enc.missX, enc.missY, radiusKm)
	case MethodMonteCarlo:
		rRel := sub(pos1, pos2)
		samples := opts.Samples
		if samples <= 0 {
			samples = DefaultSamples
		}
		pc, regularized := monteCarloPc(rRel, combined, enc, radiusKm, samples, opts.Seed)
		result.Probability = pc
		result.Samples = samples
		result.IllConditioned = result.IllConditioned || regularized
	default:
		return PcResult{}, fmt.Errorf("unknown probability method %q", method)
	}

	return result, nil
}
