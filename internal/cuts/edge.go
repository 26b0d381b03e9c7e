package cuts

import (
	"math"

	"github.com/ironsheep/cctag-identify/internal/geometry"
	"github.com/ironsheep/cctag-identify/internal/rectify"
)

// refineEdge relocates p onto the strongest intensity transition of the
// segment of length 2·halfWidth centered on p along dir.
//
// The transition is the largest absolute finite difference of the sampled
// profile, located to sub-sample precision by fitting a parabola through it
// and its neighbours. Returns p and false when the segment is not entirely
// inside the image or carries no transition.
func refineEdge(img rectify.Sampler, p, dir geometry.Point2D, halfWidth float64, samples int) (geometry.Point2D, bool) {
	if samples < 3 || halfWidth <= 0 {
		return p, false
	}
	start := p.Sub(dir.Scale(halfWidth))
	stop := p.Add(dir.Scale(halfWidth))

	cut, valid := rectify.InterpolateStraight(img, start, stop, samples)
	if valid < samples {
		return p, false
	}

	s := cut.Signal
	best, bestAbs := -1, 0.0
	for i := 0; i+1 < len(s); i++ {
		if d := math.Abs(s[i+1] - s[i]); d > bestAbs {
			best, bestAbs = i, d
		}
	}
	if best < 0 {
		return p, false
	}

	// Differences sit halfway between samples.
	pos := float64(best) + 0.5
	if best > 0 && best+2 < len(s) {
		l := math.Abs(s[best] - s[best-1])
		r := math.Abs(s[best+2] - s[best+1])
		if den := l - 2*bestAbs + r; den != 0 {
			pos += 0.5 * (l - r) / den
		}
	}

	t := pos / float64(samples-1)
	return start.Add(stop.Sub(start).Scale(t)), true
}
