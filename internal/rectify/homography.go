package rectify

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/cctag-identify/internal/geometry"
)

var (
	// ErrSingularHomography is returned when a homography cannot be inverted.
	ErrSingularHomography = errors.New("singular homography")

	// ErrDegenerateConic is returned when the ellipse conic does not admit a
	// rectifying homography for the given center.
	ErrDegenerateConic = errors.New("degenerate ellipse conic")
)

// Homography is a 3x3 projective matrix stored row-major.
//
//	| H[0] H[1] H[2] |
//	| H[3] H[4] H[5] |
//	| H[6] H[7] H[8] |
type Homography [9]float64

// Identity returns the identity homography.
func Identity() Homography {
	return Homography{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// HomographyFromDense copies a 3x3 gonum matrix into a Homography.
func HomographyFromDense(m mat.Matrix) Homography {
	var h Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			h[r*3+c] = m.At(r, c)
		}
	}
	return h
}

// Dense returns a gonum copy of the matrix.
func (h Homography) Dense() *mat.Dense {
	data := make([]float64, 9)
	copy(data, h[:])
	return mat.NewDense(3, 3, data)
}

// Det returns the determinant.
func (h Homography) Det() float64 {
	return mat.Det(h.Dense())
}

// Inverse returns the inverse matrix.
func (h Homography) Inverse() (Homography, error) {
	var inv mat.Dense
	if err := inv.Inverse(h.Dense()); err != nil {
		return Homography{}, fmt.Errorf("%w: %v", ErrSingularHomography, err)
	}
	return HomographyFromDense(&inv), nil
}

// Mul returns the product h·o.
func (h Homography) Mul(o Homography) Homography {
	var p mat.Dense
	p.Mul(h.Dense(), o.Dense())
	return HomographyFromDense(&p)
}

// Apply maps a Euclidean point through the homography.
func (h Homography) Apply(p geometry.Point2D) geometry.Point2D {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	return geometry.Point2D{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}
}

// MapCanonical maps the canonical coordinate (t, 0) to image coordinates.
func (h Homography) MapCanonical(t float64) geometry.Point2D {
	return h.Apply(geometry.Point2D{X: t, Y: 0})
}

// NormalizeDet scales h so its determinant becomes 1. The scale is the
// signed cube root of the determinant, so the projective map is unchanged.
// A singular matrix is returned as is.
func (h Homography) NormalizeDet() Homography {
	det := h.Det()
	if det == 0 || math.IsNaN(det) {
		return h
	}
	s := 1 / math.Cbrt(det)
	for i := range h {
		h[i] *= s
	}
	return h
}

// Adjust re-derives h so that its canonical axis passes through origin at
// t = 0 and through target at t = 1.
//
//  1. Invert h and bring origin into canonical space.
//  2. Compose with the translation that moves the canonical origin there.
//  3. Bring target into the translated canonical space; its distance s and
//     direction d from the canonical origin give the rotation+scale
//     | s·dx  -s·dy  0 |
//     | s·dy   s·dx  0 |
//     |  0      0    1 |
//  4. Compose again and normalize the determinant.
//
// Adjusting twice with the same pair is a no-op up to rounding.
func Adjust(h Homography, origin, target geometry.Point2D) (Homography, error) {
	inv, err := h.Inverse()
	if err != nil {
		return Homography{}, err
	}
	bo := inv.Apply(origin)
	h = h.Mul(Homography{
		1, 0, bo.X,
		0, 1, bo.Y,
		0, 0, 1,
	})

	inv, err = h.Inverse()
	if err != nil {
		return Homography{}, err
	}
	bp := inv.Apply(target)
	if bp.Norm() == 0 || math.IsNaN(bp.X) || math.IsNaN(bp.Y) {
		return Homography{}, fmt.Errorf("%w: target coincides with origin", ErrSingularHomography)
	}
	h = h.Mul(Homography{
		bp.X, -bp.Y, 0,
		bp.Y, bp.X, 0,
		0, 0, 1,
	})
	return h.NormalizeDet(), nil
}

// FromEllipseCenter builds the rectifying homography of an ellipse given the
// image of the marker center, anchored so that t = 1 maps onto anchor.
//
// # Algorithm
//
// With A = inv(C) the dual conic and B = o·oᵀ, solve the generalized
// eigenproblem A·v = λ·B·v. Because B has rank one the problem is reduced to
// the ordinary eigenproblem of inv(A)·B = C·o·oᵀ, whose eigenvalues μ relate
// by λ = 1/μ; the eigenvalue of smallest |λ| is the one with largest |μ|.
// The matrix A − λ·B is then factored by SVD, and the first two columns of
// H are the left singular vectors scaled by the square roots of their
// singular values; the third column is their cross product.
//
// Returns ErrDegenerateConic when C has non-finite entries or is singular,
// when the center lies on the conic (no finite eigenvalue), or when a
// factorization fails. Non-finite entries are rejected before any
// factorization since LAPACK balancing does not terminate on them.
func FromEllipseCenter(conic mat.Matrix, center, anchor geometry.Point2D) (Homography, error) {
	if r, c := conic.Dims(); r != 3 || c != 3 {
		return Homography{}, fmt.Errorf("%w: conic must be 3x3", ErrDegenerateConic)
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if v := conic.At(r, c); math.IsNaN(v) || math.IsInf(v, 0) {
				return Homography{}, fmt.Errorf("%w: non-finite conic entry (%d,%d)", ErrDegenerateConic, r, c)
			}
		}
	}

	var dual mat.Dense
	if err := dual.Inverse(conic); err != nil {
		return Homography{}, fmt.Errorf("%w: %v", ErrDegenerateConic, err)
	}

	o := mat.NewVecDense(3, []float64{center.X, center.Y, 1})
	var oo mat.Dense
	oo.Outer(1, o, o)

	var reduced mat.Dense
	reduced.Mul(conic, &oo)

	var eig mat.Eigen
	if !eig.Factorize(&reduced, mat.EigenNone) {
		return Homography{}, fmt.Errorf("%w: eigendecomposition failed", ErrDegenerateConic)
	}
	var mu float64
	for _, v := range eig.Values(nil) {
		if math.Abs(real(v)) > math.Abs(mu) {
			mu = real(v)
		}
	}
	scale := mat.Norm(conic, math.Inf(1)) * mat.Dot(o, o)
	if mu == 0 || math.Abs(mu) <= 1e-12*scale {
		return Homography{}, fmt.Errorf("%w: center lies on the conic", ErrDegenerateConic)
	}
	lambda := 1 / mu

	var m mat.Dense
	m.Scale(-lambda, &oo)
	m.Add(&dual, &m)

	var svd mat.SVD
	if !svd.Factorize(&m, mat.SVDFull) {
		return Homography{}, fmt.Errorf("%w: SVD failed", ErrDegenerateConic)
	}
	s := svd.Values(nil)
	var u mat.Dense
	svd.UTo(&u)

	c0 := [3]float64{}
	c1 := [3]float64{}
	for r := 0; r < 3; r++ {
		c0[r] = u.At(r, 0) * math.Sqrt(s[0])
		c1[r] = u.At(r, 1) * math.Sqrt(s[1])
	}
	c2 := cross(c0, c1)

	h := Homography{
		c0[0], c1[0], c2[0],
		c0[1], c1[1], c2[1],
		c0[2], c1[2], c2[2],
	}

	h, err := Adjust(h, center, anchor)
	if err != nil {
		return Homography{}, fmt.Errorf("%w: %v", ErrDegenerateConic, err)
	}
	return h.NormalizeDet(), nil
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
