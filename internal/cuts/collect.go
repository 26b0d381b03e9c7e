// Package cuts gathers straight intensity cuts from a marker center towards
// its boundary and picks the subset that best supports identification.
package cuts

import (
	"github.com/ironsheep/cctag-identify/internal/geometry"
	"github.com/ironsheep/cctag-identify/internal/rectify"
)

// Collect samples one straight cut of length samples from center to every
// boundary point.
//
// A cut is kept only when at least length-startOffset of its samples fall
// inside the image; the rest are discarded. Kept cuts preserve boundary
// order.
func Collect(img rectify.Sampler, center geometry.Point2D, boundary []geometry.Point2D, length, startOffset int) []rectify.ImageCut {
	cuts := make([]rectify.ImageCut, 0, len(boundary))
	for _, p := range boundary {
		cut, valid := rectify.InterpolateStraight(img, center, p, length)
		if valid < length-startOffset {
			continue
		}
		cuts = append(cuts, cut)
	}
	return cuts
}
