package cuts

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ironsheep/cctag-identify/internal/geometry"
	"github.com/ironsheep/cctag-identify/internal/rectify"
)

// Gradient is a single-channel derivative image addressable by pixel.
// *imaging.Field implements it.
type Gradient interface {
	At(x, y int) float64
}

// SelectParams tunes the randomized cut selection.
type SelectParams struct {
	Size          int     // cuts to select (clamped to the number available)
	Alpha         float64 // weight of the variance term in the cost
	RefineWindow  float64 // full width of the endpoint refinement segment, in pixels
	RefineSamples int     // samples along the refinement segment
	Trials        int     // random subsets drawn after the initial one
}

// Select picks up to p.Size cuts whose outer endpoints have disagreeing
// gradient directions and whose signals carry the most variance.
//
// The subset search draws one random subset plus p.Trials more from rng and
// keeps the one minimizing
//
//	‖Σ unit(∇I(stop))‖ − Alpha·Σ var(signal)
//
// The winners are then visited by descending variance and their outer
// endpoint refined along the gradient; a cut is dropped when the refined
// endpoint moves by RefineWindow/2 or more. Returns the accepted cuts and
// their refined endpoints, possibly fewer than p.Size, never padded.
func Select(cuts []rectify.ImageCut, img rectify.Sampler, gx, gy Gradient, p SelectParams, rng *rand.Rand) ([]rectify.ImageCut, []geometry.Point2D) {
	k := p.Size
	if k > len(cuts) {
		k = len(cuts)
	}
	if k <= 0 {
		return nil, nil
	}

	variances := make([]float64, len(cuts))
	for i, c := range cuts {
		if len(c.Signal) > 0 {
			_, variances[i] = stat.PopMeanVariance(c.Signal, nil)
		}
	}

	best := rng.Perm(len(cuts))[:k]
	bestCost := selectionCost(cuts, variances, best, gx, gy, p.Alpha)
	for trial := 0; trial < p.Trials; trial++ {
		idx := rng.Perm(len(cuts))[:k]
		if cost := selectionCost(cuts, variances, idx, gx, gy, p.Alpha); cost < bestCost {
			best, bestCost = idx, cost
		}
	}

	order := make([]int, k)
	copy(order, best)
	sort.SliceStable(order, func(a, b int) bool {
		return variances[order[a]] > variances[order[b]]
	})

	halfWidth := p.RefineWindow / 2
	selected := make([]rectify.ImageCut, 0, k)
	refined := make([]geometry.Point2D, 0, k)
	for _, i := range order {
		cut := cuts[i]
		point := cut.Stop
		if dir, ok := gradientDirection(gx, gy, cut.Stop); ok {
			if q, ok := refineEdge(img, cut.Stop, dir, halfWidth, p.RefineSamples); ok {
				point = q
			}
		}
		if point.Distance(cut.Stop) >= halfWidth && halfWidth > 0 {
			continue
		}
		selected = append(selected, cut)
		refined = append(refined, point)
		if len(selected) >= k {
			break
		}
	}
	return selected, refined
}

// selectionCost scores the cut subset idx; lower is better.
func selectionCost(cuts []rectify.ImageCut, variances []float64, idx []int, gx, gy Gradient, alpha float64) float64 {
	var sum geometry.Point2D
	var sumVar float64
	for _, i := range idx {
		if dir, ok := gradientDirection(gx, gy, cuts[i].Stop); ok {
			sum = sum.Add(dir)
		}
		sumVar += variances[i]
	}
	return sum.Norm() - alpha*sumVar
}

// gradientDirection returns the unit gradient at the pixel containing p.
func gradientDirection(gx, gy Gradient, p geometry.Point2D) (geometry.Point2D, bool) {
	x, y := int(math.Floor(p.X)), int(math.Floor(p.Y))
	g := geometry.Point2D{X: gx.At(x, y), Y: gy.At(x, y)}
	n := g.Norm()
	if n == 0 || math.IsNaN(n) {
		return geometry.Point2D{}, false
	}
	return g.Scale(1 / n), true
}
