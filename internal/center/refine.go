package center

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/cctag-identify/internal/geometry"
	"github.com/ironsheep/cctag-identify/internal/rectify"
)

// failedSweepCost is the residual of a trial center at which the cuts cannot
// be rectified.
const failedSweepCost = 1e9

// ErrDiverged is returned when the refined center leaves the inner half of
// the ellipse.
var ErrDiverged = errors.New("center refinement diverged")

// Refiner moves a center estimate to the point where the rectified cuts
// towards the refined boundary points look most alike.
type Refiner struct {
	Solver       Solver
	SampleLength int // samples per rectified cut
}

// Refine minimizes the photometric residual over the center position.
//
// The solver works in coordinates conditioned on points (zero mean, standard
// deviation √2 per axis); its result is mapped back to pixels and must lie
// inside ellipse scaled by 1/2, otherwise ErrDiverged is returned.
func (r Refiner) Refine(img rectify.Sampler, ellipse geometry.Ellipse, initial geometry.Point2D, points []geometry.Point2D) (geometry.Point2D, error) {
	cond, err := geometry.NewConditioner(points)
	if err != nil {
		return geometry.Point2D{}, err
	}
	conic := ellipse.Matrix()

	f := func(x []float64) float64 {
		c := cond.Revert(geometry.Point2D{X: x[0], Y: x[1]})
		return Residual(img, conic, c, points, r.SampleLength)
	}

	x0 := cond.Apply(initial)
	x, err := r.Solver.Minimize([]float64{x0.X, x0.Y}, f)
	if err != nil {
		return geometry.Point2D{}, fmt.Errorf("%w: %v", ErrDiverged, err)
	}
	refined := cond.Revert(geometry.Point2D{X: x[0], Y: x[1]})

	if !ellipse.Scaled(0.5).Contains(refined) {
		return refined, fmt.Errorf("%w: (%.2f, %.2f) outside half ellipse", ErrDiverged, refined.X, refined.Y)
	}
	return refined, nil
}

// Residual is the mean squared L2 difference over all pairs of cuts swept
// from center to points. It is large when the cuts cannot be rectified.
func Residual(img rectify.Sampler, conic mat.Matrix, center geometry.Point2D, points []geometry.Point2D, n int) float64 {
	_, cuts, err := rectify.Sweep(img, conic, center, points, n)
	if err != nil {
		return failedSweepCost
	}
	if len(cuts) < 2 {
		return 0
	}

	var sum float64
	pairs := 0
	for i := 0; i < len(cuts); i++ {
		for j := i + 1; j < len(cuts); j++ {
			a, b := cuts[i].Signal, cuts[j].Signal
			for k := range a {
				d := a[k] - b[k]
				sum += d * d
			}
			pairs++
		}
	}
	return sum / float64(pairs)
}
