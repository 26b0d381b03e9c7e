package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidEllipse is returned when ellipse parameters are negative or not finite.
var ErrInvalidEllipse = errors.New("invalid ellipse parameters")

// Ellipse is an ellipse in image coordinates.
//
// A is the semi-major axis and B the semi-minor axis (A >= B >= 0). Angle is
// the orientation of the major axis in radians, measured from the X axis
// toward the Y axis (clockwise on screen since Y grows downward).
type Ellipse struct {
	Center Point2D `json:"center"`
	A      float64 `json:"a"`
	B      float64 `json:"b"`
	Angle  float64 `json:"angle"`
}

// NewEllipse validates and normalizes ellipse parameters.
//
// When a < b the axes are swapped and the angle is rotated by π/2 so that the
// returned ellipse always satisfies A >= B. Negative, NaN or infinite values
// return ErrInvalidEllipse.
func NewEllipse(center Point2D, a, b, angle float64) (Ellipse, error) {
	for _, v := range []float64{center.X, center.Y, a, b, angle} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Ellipse{}, fmt.Errorf("%w: non-finite value", ErrInvalidEllipse)
		}
	}
	if a < 0 || b < 0 {
		return Ellipse{}, fmt.Errorf("%w: negative semi-axis (a=%g, b=%g)", ErrInvalidEllipse, a, b)
	}
	if a < b {
		a, b = b, a
		angle += math.Pi / 2
	}
	return Ellipse{Center: center, A: a, B: b, Angle: angle}, nil
}

// Degenerate reports whether the minor axis is zero or so small that the conic
// matrix overflows. Such an ellipse has no interior to sample.
func (e Ellipse) Degenerate() bool {
	ib := 1 / (e.B * e.B)
	return math.IsInf(ib, 0) || math.IsNaN(ib)
}

// Scaled returns the ellipse with both semi-axes multiplied by f, keeping its
// center and orientation.
func (e Ellipse) Scaled(f float64) Ellipse {
	return Ellipse{Center: e.Center, A: e.A * f, B: e.B * f, Angle: e.Angle}
}

// local expresses p in the ellipse frame (origin at the center, X along the
// major axis).
func (e Ellipse) local(p Point2D) (float64, float64) {
	c, s := math.Cos(e.Angle), math.Sin(e.Angle)
	d := p.Sub(e.Center)
	return c*d.X + s*d.Y, -s*d.X + c*d.Y
}

// Contains reports whether p lies inside or on the ellipse.
// A degenerate ellipse (zero axis) contains only points on its support.
func (e Ellipse) Contains(p Point2D) bool {
	u, v := e.local(p)
	if e.B == 0 {
		return v == 0 && math.Abs(u) <= e.A
	}
	return (u*u)/(e.A*e.A)+(v*v)/(e.B*e.B) <= 1
}

// PointAt returns the point of the ellipse at parametric angle theta.
func (e Ellipse) PointAt(theta float64) Point2D {
	c, s := math.Cos(e.Angle), math.Sin(e.Angle)
	u := e.A * math.Cos(theta)
	v := e.B * math.Sin(theta)
	return Point2D{
		X: e.Center.X + c*u - s*v,
		Y: e.Center.Y + s*u + c*v,
	}
}

// Matrix returns the symmetric 3x3 conic matrix C of the ellipse, such that a
// homogeneous point x lies on the ellipse when xᵀ·C·x = 0. Points inside the
// ellipse give a negative value.
func (e Ellipse) Matrix() *mat.Dense {
	c, s := math.Cos(e.Angle), math.Sin(e.Angle)
	ia := 1 / (e.A * e.A)
	ib := 1 / (e.B * e.B)

	qa := c*c*ia + s*s*ib
	qb := 2 * c * s * (ia - ib)
	qc := s*s*ia + c*c*ib
	cx, cy := e.Center.X, e.Center.Y
	qd := -2*qa*cx - qb*cy
	qe := -qb*cx - 2*qc*cy
	qf := qa*cx*cx + qb*cx*cy + qc*cy*cy - 1

	return mat.NewDense(3, 3, []float64{
		qa, qb / 2, qd / 2,
		qb / 2, qc, qe / 2,
		qd / 2, qe / 2, qf,
	})
}
