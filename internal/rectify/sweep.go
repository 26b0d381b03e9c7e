package rectify

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/cctag-identify/internal/geometry"
)

// FrameMargin is how far, in pixels, a center estimate may lie outside the
// image before Sweep refuses it.
const FrameMargin = 150.0

// reanchorInterval is the number of incremental adjustments after which
// Sweep restarts from the reference homography.
const reanchorInterval = 16

var (
	// ErrCenterOutOfFrame is returned when the center estimate lies more than
	// FrameMargin pixels outside the image.
	ErrCenterOutOfFrame = errors.New("center estimate outside frame margin")

	// ErrNoBoundaryPoints is returned when Sweep is given no boundary points.
	ErrNoBoundaryPoints = errors.New("no boundary points")
)

// InFrame reports whether p lies within FrameMargin pixels of an image of
// the given size.
func InFrame(p geometry.Point2D, width, height int) bool {
	return p.X >= -FrameMargin && p.X <= float64(width)+FrameMargin &&
		p.Y >= -FrameMargin && p.Y <= float64(height)+FrameMargin
}

// Sweep rectifies one cut of n samples from center to each boundary point.
//
// The homography is first derived from the conic and anchored on the first
// boundary point (see FromEllipseCenter), then rotated onto each following
// point with Adjust. Every reanchorInterval points the rotation restarts from
// the reference homography instead of the previous one.
//
// Returns the reference homography (anchored on boundary[0]) and the cuts, in
// boundary order. The center is checked against the frame margin before any
// factorization.
func Sweep(img Sampler, conic mat.Matrix, center geometry.Point2D, boundary []geometry.Point2D, n int) (Homography, []ImageCut, error) {
	if len(boundary) == 0 {
		return Homography{}, nil, ErrNoBoundaryPoints
	}
	width, height := img.Size()
	if !InFrame(center, width, height) {
		return Homography{}, nil, fmt.Errorf("%w: (%.1f, %.1f)", ErrCenterOutOfFrame, center.X, center.Y)
	}

	ref, err := FromEllipseCenter(conic, center, boundary[0])
	if err != nil {
		return Homography{}, nil, err
	}

	cuts := make([]ImageCut, len(boundary))
	cuts[0] = Rectify(ref, img, n, 0, 1)

	rot := ref
	for i := 1; i < len(boundary); i++ {
		from := rot
		if i%reanchorInterval == 0 {
			from = ref
		}
		rot, err = Adjust(from, center, boundary[i])
		if err != nil {
			return Homography{}, nil, fmt.Errorf("adjust onto boundary point %d: %w", i, err)
		}
		cuts[i] = Rectify(rot, img, n, 0, 1)
	}
	return ref, cuts, nil
}
