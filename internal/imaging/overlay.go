package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"sync"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/cctag-identify/internal/geometry"
)

// OverlayResult contains a source image with the recorded debug points drawn
// on top, encoded as base64 PNG.
type OverlayResult struct {
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	ImageBase64 string   `json:"image_base64"`
	MimeType    string   `json:"mime_type"`
	Sessions    []string `json:"sessions"`
	PointCount  int      `json:"point_count"`
}

// OverlayPoint is one point drawn during a debug session.
type OverlayPoint struct {
	P     geometry.Point2D
	Color color.Color
}

type overlaySession struct {
	name   string
	points []OverlayPoint
}

// Overlay records points reported by the identification pipeline, grouped
// into named sessions, and renders them over an image.
//
// Overlay is safe for concurrent use. Points drawn before any NewSession call
// go to a session named "default".
type Overlay struct {
	mu       sync.Mutex
	sessions []*overlaySession
	current  *overlaySession
}

// NewOverlay creates an empty overlay.
func NewOverlay() *Overlay {
	return &Overlay{}
}

// NewSession makes name the current session, creating it if needed.
func (o *Overlay) NewSession(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.current = o.session(name)
}

func (o *Overlay) session(name string) *overlaySession {
	for _, s := range o.sessions {
		if s.name == name {
			return s
		}
	}
	s := &overlaySession{name: name}
	o.sessions = append(o.sessions, s)
	return s
}

// DrawPoint records p in the current session.
func (o *Overlay) DrawPoint(p geometry.Point2D, c color.Color) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		o.current = o.session("default")
	}
	o.current.points = append(o.current.points, OverlayPoint{P: p, Color: c})
}

// Sessions returns the session names in creation order.
func (o *Overlay) Sessions() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	names := make([]string, len(o.sessions))
	for i, s := range o.sessions {
		names[i] = s.name
	}
	return names
}

// Points returns a copy of the points recorded in the named session.
func (o *Overlay) Points(name string) []OverlayPoint {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, s := range o.sessions {
		if s.name == name {
			return append([]OverlayPoint(nil), s.points...)
		}
	}
	return nil
}

// Render draws the recorded points over img.
//
// Parameters:
//   - img: Background image; it is copied, never modified.
//   - sessions: Names of the sessions to draw. When empty, all sessions are drawn.
//
// Each point is drawn as a small cross. Marker colors are blended with the
// underlying pixel in CIE L*a*b* space (75% marker) so points stay visible on
// both dark and light rings.
func (o *Overlay) Render(img image.Image, sessions ...string) (*image.RGBA, int) {
	bounds := img.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	o.mu.Lock()
	defer o.mu.Unlock()

	count := 0
	for _, s := range o.sessions {
		if len(sessions) > 0 && !contains(sessions, s.name) {
			continue
		}
		for _, pt := range s.points {
			drawCross(result, pt)
			count++
		}
	}
	return result, count
}

// Encode renders the overlay and returns it as a base64 PNG.
func (o *Overlay) Encode(img image.Image, sessions ...string) (*OverlayResult, error) {
	rendered, count := o.Render(img, sessions...)

	var buf bytes.Buffer
	if err := png.Encode(&buf, rendered); err != nil {
		return nil, fmt.Errorf("failed to encode overlay image: %w", err)
	}

	names := sessions
	if len(names) == 0 {
		names = o.Sessions()
	}
	return &OverlayResult{
		Width:       rendered.Bounds().Dx(),
		Height:      rendered.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		Sessions:    names,
		PointCount:  count,
	}, nil
}

// Save renders the overlay and writes it to path as PNG.
func (o *Overlay) Save(path string, img image.Image, sessions ...string) error {
	rendered, _ := o.Render(img, sessions...)
	if err := imgio.Save(path, rendered, imgio.PNGEncoder()); err != nil {
		return fmt.Errorf("failed to save overlay image: %w", err)
	}
	return nil
}

func drawCross(img *image.RGBA, pt OverlayPoint) {
	marker, ok := colorful.MakeColor(pt.Color)
	if !ok {
		return
	}
	cx := int(math.Round(pt.P.X))
	cy := int(math.Round(pt.P.Y))
	bounds := img.Bounds()
	for d := -2; d <= 2; d++ {
		for _, q := range [2]image.Point{{cx + d, cy}, {cx, cy + d}} {
			if !q.In(bounds) {
				continue
			}
			under, ok := colorful.MakeColor(img.At(q.X, q.Y))
			if !ok {
				img.Set(q.X, q.Y, marker)
				continue
			}
			img.Set(q.X, q.Y, under.BlendLab(marker, 0.75).Clamped())
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
