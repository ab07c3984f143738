package probability

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// Head-on encounter 200 m apart in the B-plane with 0.01 km^2 position
// variance per object per axis. The combined 0.02 km^2 projection gives a
// Mahalanobis distance of sqrt(2).
var (
	headOnPos1 = [3]float64{7000.2, 0, 0}
	headOnVel1 = [3]float64{0, 7.5, 0}
	headOnPos2 = [3]float64{7000.0, 0, 0}
	headOnVel2 = [3]float64{0, -7.5, 0}
)

func diagCov3(v float64) *mat.SymDense {
	c := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		c.SetSym(i, i, v)
	}
	return c
}

// TestRTNToECIAlignedFrame verifies the rotation is identity when the
// orbit frame coincides with the inertial axes.
func TestRTNToECIAlignedFrame(t *testing.T) {
	rot := RTNToECI([3]float64{7000, 0, 0}, [3]float64{0, 7.5, 0})
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if math.Abs(rot.At(i, j)-want) > 1e-12 {
				t.Errorf("rot[%d][%d] = %g, want %g", i, j, rot.At(i, j), want)
			}
		}
	}
}

// TestRotateCovarianceAxes verifies variances land on the right inertial
// axes for a rotated orbit frame.
func TestRotateCovarianceAxes(t *testing.T) {
	// Radial along +y, velocity along -x: R maps to y, T to -x, N to z.
	rot := RTNToECI([3]float64{0, 7000, 0}, [3]float64{-7.5, 0, 0})

	cov := mat.NewSymDense(6, nil)
	diag := []float64{1, 4, 9, 1, 4, 9}
	for i, v := range diag {
		cov.SetSym(i, i, v)
	}

	out := RotateCovariance(cov, rot)
	checks := []struct {
		i, j int
		want float64
	}{
		{0, 0, 4}, // transverse variance on x
		{1, 1, 1}, // radial variance on y
		{2, 2, 9}, // normal variance on z
		{0, 1, 0},
		{3, 3, 4},
		{4, 4, 1},
		{5, 5, 9},
	}
	for _, c := range checks {
		if math.Abs(out.At(c.i, c.j)-c.want) > 1e-9 {
			t.Errorf("rotated cov[%d][%d] = %g, want %g", c.i, c.j, out.At(c.i, c.j), c.want)
		}
	}
}

// TestComputePcValidation verifies input checks.
func TestComputePcValidation(t *testing.T) {
	good := diagCov3(0.01)

	if _, err := ComputePc(headOnPos1, headOnVel1, headOnPos2, headOnVel2, nil, good, 20, MethodFoster, Options{}); err == nil {
		t.Error("expected error for nil covariance")
	}
	bad := mat.NewSymDense(2, nil)
	if _, err := ComputePc(headOnPos1, headOnVel1, headOnPos2, headOnVel2, bad, good, 20, MethodFoster, Options{}); err == nil {
		t.Error("expected error for 2x2 covariance")
	}
	if _, err := ComputePc(headOnPos1, headOnVel1, headOnPos2, headOnVel2, good, good, 0, MethodFoster, Options{}); err == nil {
		t.Error("expected error for zero hard body radius")
	}
	if _, err := ComputePc(headOnPos1, headOnVel1, headOnPos2, headOnVel2, good, good, 20, Method("bogus"), Options{}); err == nil {
		t.Error("expected error for unknown method")
	}
}

// TestComputePcFoster verifies the analytic result for the head-on case.
func TestComputePcFoster(t *testing.T) {
	res, err := ComputePc(headOnPos1, headOnVel1, headOnPos2, headOnVel2,
		diagCov3(0.01), diagCov3(0.01), 50, MethodFoster, Options{})
	if err != nil {
		t.Fatalf("ComputePc failed: %v", err)
	}

	if res.Method != MethodFoster {
		t.Errorf("Method = %q, want foster", res.Method)
	}
	if res.CombinedHardBodyRadiusM != 50 {
		t.Errorf("CombinedHardBodyRadiusM = %g, want 50", res.CombinedHardBodyRadiusM)
	}
	if math.Abs(res.MahalanobisDistance-math.Sqrt2) > 1e-9 {
		t.Errorf("MahalanobisDistance = %g, want sqrt(2)", res.MahalanobisDistance)
	}
	if res.IllConditioned {
		t.Error("well-conditioned covariance flagged ill-conditioned")
	}
	if res.Samples != 0 {
		t.Errorf("Samples = %d, want 0 for analytic", res.Samples)
	}

	// Density at the miss times the disk area gives roughly 0.023.
	if res.Probability < 0.01 || res.Probability > 0.05 {
		t.Errorf("Probability = %g, want ~0.023", res.Probability)
	}
}

// TestComputePcFosterFarMiss verifies a distant encounter is negligible.
func TestComputePcFosterFarMiss(t *testing.T) {
	far := [3]float64{7100, 0, 0} // 100 km out
	res, err := ComputePc(far, headOnVel1, headOnPos2, headOnVel2,
		diagCov3(0.01), diagCov3(0.01), 50, MethodFoster, Options{})
	if err != nil {
		t.Fatalf("ComputePc failed: %v", err)
	}
	if res.Probability > 1e-30 {
		t.Errorf("Probability = %g, want effectively zero", res.Probability)
	}
}

// TestComputePcMonteCarloAgreesWithFoster cross-checks the two methods.
func TestComputePcMonteCarloAgreesWithFoster(t *testing.T) {
	foster, err := ComputePc(headOnPos1, headOnVel1, headOnPos2, headOnVel2,
		diagCov3(0.01), diagCov3(0.01), 50, MethodFoster, Options{})
	if err != nil {
		t.Fatalf("Foster ComputePc failed: %v", err)
	}

	mc, err := ComputePc(headOnPos1, headOnVel1, headOnPos2, headOnVel2,
		diagCov3(0.01), diagCov3(0.01), 50, MethodMonteCarlo, Options{Samples: 200000, Seed: 1})
	if err != nil {
		t.Fatalf("Monte Carlo ComputePc failed: %v", err)
	}
	if mc.Samples != 200000 {
		t.Errorf("Samples = %d, want 200000", mc.Samples)
	}

	relDiff := math.Abs(mc.Probability-foster.Probability) / foster.Probability
	if relDiff > 0.10 {
		t.Errorf("methods disagree: foster %g vs monte carlo %g (rel diff %.3f)",
			foster.Probability, mc.Probability, relDiff)
	}
}

// TestComputePcSixBySixCovariance verifies the position block extraction.
func TestComputePcSixBySixCovariance(t *testing.T) {
	cov6 := mat.NewSymDense(6, nil)
	for i := 0; i < 3; i++ {
		cov6.SetSym(i, i, 0.01)
	}
	for i := 3; i < 6; i++ {
		cov6.SetSym(i, i, 1e-6)
	}

	res6, err := ComputePc(headOnPos1, headOnVel1, headOnPos2, headOnVel2,
		cov6, cov6, 50, MethodFoster, Options{})
	if err != nil {
		t.Fatalf("ComputePc failed: %v", err)
	}
	res3, err := ComputePc(headOnPos1, headOnVel1, headOnPos2, headOnVel2,
		diagCov3(0.01), diagCov3(0.01), 50, MethodFoster, Options{})
	if err != nil {
		t.Fatalf("ComputePc failed: %v", err)
	}

	if math.Abs(res6.Probability-res3.Probability) > 1e-12 {
		t.Errorf("6x6 probability %g differs from 3x3 %g", res6.Probability, res3.Probability)
	}
}

// TestComputePcIllConditioned verifies degenerate covariances are flagged
// rather than failing the call.
func TestComputePcIllConditioned(t *testing.T) {
	zero := mat.NewSymDense(3, nil)
	res, err := ComputePc(headOnPos1, headOnVel1, headOnPos2, headOnVel2,
		zero, zero, 50, MethodFoster, Options{})
	if err != nil {
		t.Fatalf("ComputePc failed: %v", err)
	}
	if !res.IllConditioned {
		t.Error("singular covariance not flagged ill-conditioned")
	}
}

// TestBuildEncounterGeometry verifies the B-plane projection directly.
func TestBuildEncounterGeometry(t *testing.T) {
	enc := buildEncounter(headOnPos1, headOnVel1, headOnPos2, headOnVel2, diagCov3(0.02))

	if math.Abs(enc.missX-0.2) > 1e-12 {
		t.Errorf("missX = %g km, want 0.2", enc.missX)
	}
	if math.Abs(enc.missY) > 1e-12 {
		t.Errorf("missY = %g km, want 0", enc.missY)
	}
	if math.Abs(enc.sigmaB.At(0, 0)-0.02) > 1e-12 || math.Abs(enc.sigmaB.At(1, 1)-0.02) > 1e-12 {
		t.Errorf("sigmaB diagonal = %g, %g, want 0.02 each",
			enc.sigmaB.At(0, 0), enc.sigmaB.At(1, 1))
	}
	if enc.regularized {
		t.Error("well-conditioned projection flagged regularized")
	}
}

// TestBuildEncounterZeroRelativeVelocity verifies the fixed-basis fallback.
func TestBuildEncounterZeroRelativeVelocity(t *testing.T) {
	v := [3]float64{0, 7.5, 0}
	enc := buildEncounter(headOnPos1, v, headOnPos2, v, diagCov3(0.02))

	// The fixed basis uses the inertial axes; the 0.2 km x offset shows
	// up unchanged.
	if math.Abs(enc.missX-0.2) > 1e-12 {
		t.Errorf("missX = %g km, want 0.2", enc.missX)
	}
	if math.Abs(enc.missY) > 1e-12 {
		t.Errorf("missY = %g km, want 0", enc.missY)
	}
}
