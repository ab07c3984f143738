package probability

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/mat"
)

// Quadrature control for the analytic collision probability integral.
const (
	fosterRelTol   = 1e-6
	fosterMinOrder = 16
	fosterMaxOrder = 2048
)

// fosterPc integrates the offset bivariate normal density over the disk
// of the combined hard-body radius, in polar coordinates. Gauss-Legendre
// order is doubled until successive estimates agree to fosterRelTol.
func fosterPc(sigmaB *mat.SymDense, missX, missY, radiusKm float64) float64 {
	s00, s01, s11 := sigmaB.At(0, 0), sigmaB.At(0, 1), sigmaB.At(1, 1)
	det := s00*s11 - s01*s01
	if det <= 0 || !isFinite(det) {
		return 0
	}
	inv00 := s11 / det
	inv01 := -s01 / det
	inv11 := s00 / det
	normFactor := 1 / (2 * math.Pi * math.Sqrt(det))

	integrate := func(order int) float64 {
		outer := func(r float64) float64 {
			inner := func(theta float64) float64 {
				dx := r*math.Cos(theta) - missX
				dy := r*math.Sin(theta) - missY
				q := inv00*dx*dx + 2*inv01*dx*dy + inv11*dy*dy
				return math.Exp(-0.5 * q)
			}
			return r * quad.Fixed(inner, 0, 2*math.Pi, order, quad.Legendre{}, 0)
		}
		return normFactor * quad.Fixed(outer, 0, radiusKm, order, quad.Legendre{}, 0)
	}

	prev := integrate(fosterMinOrder)
	for order := fosterMinOrder * 2; order <= fosterMaxOrder; order *= 2 {
		cur := integrate(order)
		if math.Abs(cur-prev) <= fosterRelTol*math.Max(math.Abs(cur), 1e-300) {
			return cur
		}
		prev = cur
	}
	return prev
}
