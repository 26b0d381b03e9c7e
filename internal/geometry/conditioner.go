package geometry

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Conditioner is an isotropic-per-axis normalization of image coordinates:
// points are translated to their centroid and scaled so their standard
// deviation along each axis becomes √2.
//
//	T = | √2/sx   0     -√2·mx/sx |
//	    |   0   √2/sy   -√2·my/sy |
//	    |   0     0          1    |
type Conditioner struct {
	MeanX, MeanY float64
	ScaleX       float64
	ScaleY       float64
}

// NewConditioner builds the conditioner for a set of points.
// An axis with zero spread uses a deviation of 1.
func NewConditioner(points []Point2D) (Conditioner, error) {
	if len(points) == 0 {
		return Conditioner{}, errors.New("conditioner needs at least one point")
	}
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.X
		ys[i] = p.Y
	}
	mx, vx := stat.PopMeanVariance(xs, nil)
	my, vy := stat.PopMeanVariance(ys, nil)
	sx, sy := math.Sqrt(vx), math.Sqrt(vy)
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	return Conditioner{
		MeanX:  mx,
		MeanY:  my,
		ScaleX: math.Sqrt2 / sx,
		ScaleY: math.Sqrt2 / sy,
	}, nil
}

// Apply maps an image point into conditioned coordinates.
func (c Conditioner) Apply(p Point2D) Point2D {
	return Point2D{
		X: (p.X - c.MeanX) * c.ScaleX,
		Y: (p.Y - c.MeanY) * c.ScaleY,
	}
}

// Revert maps a conditioned point back to image coordinates.
func (c Conditioner) Revert(p Point2D) Point2D {
	return Point2D{
		X: p.X/c.ScaleX + c.MeanX,
		Y: p.Y/c.ScaleY + c.MeanY,
	}
}
