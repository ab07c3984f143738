package probability

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// vector helpers on [3]float64, km and km/s throughout.

func dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func norm(a [3]float64) float64 {
	return math.Sqrt(dot(a, a))
}

func sub(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func unit(a [3]float64) [3]float64 {
	n := norm(a)
	return [3]float64{a[0] / n, a[1] / n, a[2] / n}
}

// RTNToECI builds the 6x6 block-diagonal rotation taking RTN-frame
// vectors into ECI, from the object's inertial state. The radial axis is
// r-hat, the normal axis is along r x v, and the transverse axis
// completes the right-handed triad.
func RTNToECI(pos, vel [3]float64) *mat.Dense {
	rHat := unit(pos)
	nHat := unit(cross(pos, vel))
	tHat := cross(nHat, rHat)

	rot := mat.NewDense(6, 6, nil)
	axes := [3][3]float64{rHat, tHat, nHat}
	for col, axis := range axes {
		for row := 0; row < 3; row++ {
			rot.Set(row, col, axis[row])
			rot.Set(row+3, col+3, axis[row])
		}
	}
	return rot
}

// RotateCovariance applies rot * cov * rot-transpose and returns the
// result re-symmetrized.
func RotateCovariance(cov *mat.SymDense, rot *mat.Dense) *mat.SymDense {
	n, _ := rot.Dims()
	var tmp, full mat.Dense
	tmp.Mul(rot, cov)
	full.Mul(&tmp, rot.T())

	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, (full.At(i, j)+full.At(j, i))/2)
		}
	}
	return out
}

// positionBlock extracts the 3x3 position part of a covariance that may
// be 3x3 already or the upper-left block of a 6x6.
func positionBlock(cov *mat.SymDense) *mat.SymDense {
	if cov.SymmetricDim() == 3 {
		return cov
	}
	out := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			out.SetSym(i, j, cov.At(i, j))
		}
	}
	return out
}
