package marker

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/cctag-identify/internal/geometry"
)

// Observer receives the points the pipeline computes, for debug rendering.
// *imaging.Overlay implements it.
type Observer interface {
	NewSession(name string)
	DrawPoint(p geometry.Point2D, c color.Color)
}

// Point colors reported to the Observer.
var (
	ColorBoundary = colorful.Color{R: 0.2, G: 0.6, B: 1}
	ColorRefined  = colorful.Color{R: 0.1, G: 0.9, B: 0.2}
	ColorCenter   = colorful.Color{R: 1, G: 0.1, B: 0.1}
)

type nopObserver struct{}

func (nopObserver) NewSession(string)                       {}
func (nopObserver) DrawPoint(geometry.Point2D, color.Color) {}
