// Package marker runs the identification pipeline for circular fiducial
// markers whose outer ellipse has already been detected.
//
// For every candidate the pipeline collects straight cuts from the ellipse
// center to boundary points, selects an informative subset and refines its
// endpoints, refines the imaged center, rectifies the final cuts through the
// ellipse homography and matches them against a radius-ratio bank. Each
// stage that fails ends the pass with a distinct Status; no error or panic
// escapes Identify.
//
// Candidates are independent. An Identifier and the Frame it reads are
// shared read-only, so IdentifyAll processes candidates concurrently.
package marker

import (
	"github.com/ironsheep/cctag-identify/internal/cuts"
	"github.com/ironsheep/cctag-identify/internal/geometry"
	"github.com/ironsheep/cctag-identify/internal/ident"
	"github.com/ironsheep/cctag-identify/internal/rectify"
)

// Candidate is one detected marker under identification. Identify updates
// Center and Homography and, when matching succeeds, ID, RadiusRatios and
// IDSet.
type Candidate struct {
	Ellipse  geometry.Ellipse   `json:"ellipse"`
	Boundary []geometry.Point2D `json:"boundary"` // rescaled outer boundary points
	Center   geometry.Point2D   `json:"center"`   // imaged center estimate

	Homography   rectify.Homography `json:"homography"`
	ID           int                `json:"id"`
	RadiusRatios []float64          `json:"radius_ratios,omitempty"`
	IDSet        []ident.Match      `json:"id_set,omitempty"`
}

// NewCandidate starts a candidate at the ellipse center.
func NewCandidate(e geometry.Ellipse, boundary []geometry.Point2D) *Candidate {
	return &Candidate{
		Ellipse:    e,
		Boundary:   boundary,
		Center:     e.Center,
		Homography: rectify.Identity(),
		ID:         -1,
	}
}

// Frame holds the read-only image views of one frame.
type Frame struct {
	Image rectify.Sampler
	GradX cuts.Gradient
	GradY cuts.Gradient
}

// subsample keeps max points of pts spread evenly over the whole list, the
// first and last points included. Lists of at most max points are returned
// as is.
func subsample(pts []geometry.Point2D, max int) []geometry.Point2D {
	if len(pts) <= max {
		return pts
	}
	out := make([]geometry.Point2D, max)
	for i := range out {
		out[i] = pts[i*(len(pts)-1)/(max-1)]
	}
	return out
}
