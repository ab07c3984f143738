package probability

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// relVelocityFloorKmS is the relative speed below which the encounter
// frame cannot be anchored to the relative velocity and a fixed
// orthonormal basis is used instead.
const relVelocityFloorKmS = 1e-6

// regularizationScale sets the ridge added to a singular projected
// covariance, as a multiple of its trace.
const regularizationScale = 1e-9

// encounter holds the conjunction geometry projected into the B-plane:
// the 2x2 covariance, the projected miss components, and the
// Mahalanobis distance of the miss.
type encounter struct {
	sigmaB      *mat.SymDense
	missX       float64 // km
	missY       float64 // km
	mahalanobis float64
	regularized bool

	xHat [3]float64
	yHat [3]float64
}

// buildEncounter projects the combined position covariance and the
// relative position into the plane perpendicular to the relative
// velocity. The plane's x axis lies along the component of the relative
// position perpendicular to the relative velocity; z lies along the
// relative velocity; y completes the triad.
func buildEncounter(pos1, vel1, pos2, vel2 [3]float64, combined *mat.SymDense) encounter {
	rRel := sub(pos1, pos2)
	vRel := sub(vel1, vel2)

	var xHat, yHat, zHat [3]float64
	if norm(vRel) < relVelocityFloorKmS {
		xHat = [3]float64{1, 0, 0}
		yHat = [3]float64{0, 1, 0}
		zHat = [3]float64{0, 0, 1}
	} else {
		zHat = unit(vRel)
		perp := sub(rRel, scale(zHat, dot(rRel, zHat)))
		if norm(perp) < 1e-12 {
			// Miss vector parallel to the relative velocity; any
			// perpendicular axis serves.
			ref := [3]float64{0, 0, 1}
			if math.Abs(zHat[2]) > 0.9 {
				ref = [3]float64{1, 0, 0}
			}
			xHat = unit(cross(ref, zHat))
		} else {
			xHat = unit(perp)
		}
		yHat = cross(zHat, xHat)
	}

	sigmaB := mat.NewSymDense(2, nil)
	axes := [2][3]float64{xHat, yHat}
	for a := 0; a < 2; a++ {
		for b := a; b < 2; b++ {
			sigmaB.SetSym(a, b, quadForm(combined, axes[a], axes[b]))
		}
	}

	enc := encounter{
		sigmaB: sigmaB,
		missX:  dot(rRel, xHat),
		missY:  dot(rRel, yHat),
		xHat:   xHat,
		yHat:   yHat,
	}

	// Regularize a singular projection with a small ridge scaled to the
	// trace, and flag the result.
	if det := sigmaB.At(0, 0)*sigmaB.At(1, 1) - sigmaB.At(0, 1)*sigmaB.At(0, 1); det <= 0 || !isFinite(det) {
		eps := regularizationScale * (sigmaB.At(0, 0) + sigmaB.At(1, 1))
		if eps <= 0 {
			eps = regularizationScale
		}
		sigmaB.SetSym(0, 0, sigmaB.At(0, 0)+eps)
		sigmaB.SetSym(1, 1, sigmaB.At(1, 1)+eps)
		enc.regularized = true
	}

	enc.mahalanobis = mahalanobis2(sigmaB, enc.missX, enc.missY)
	return enc
}

// quadForm computes a-transpose * C * b for 3-vectors.
func quadForm(c *mat.SymDense, a, b [3]float64) float64 {
	var sum float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			sum += a[i] * c.At(i, j) * b[j]
		}
	}
	return sum
}

// mahalanobis2 evaluates the Mahalanobis distance of a 2-vector miss
// under a 2x2 covariance.
func mahalanobis2(s *mat.SymDense, mx, my float64) float64 {
	det := s.At(0, 0)*s.At(1, 1) - s.At(0, 1)*s.At(0, 1)
	if det <= 0 || !isFinite(det) {
		return math.Inf(1)
	}
	q := (s.At(1, 1)*mx*mx - 2*s.At(0, 1)*mx*my + s.At(0, 0)*my*my) / det
	if q < 0 {
		q = 0
	}
	return math.Sqrt(q)
}

func scale(a [3]float64, k float64) [3]float64 {
	return [3]float64{a[0] * k, a[1] * k, a[2] * k}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
