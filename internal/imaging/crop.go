package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/cctag-identify/internal/geometry"
)

// CropResult contains the cropped image data
type CropResult struct {
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// MarkerRegion returns the axis-aligned bounding box of e grown by margin
// times its semi-major axis on every side, clipped to bounds.
//
// An error is returned when the region does not intersect bounds.
func MarkerRegion(bounds image.Rectangle, e geometry.Ellipse, margin float64) (image.Rectangle, error) {
	c, s := math.Cos(e.Angle), math.Sin(e.Angle)
	hw := math.Hypot(e.A*c, e.B*s) + margin*e.A
	hh := math.Hypot(e.A*s, e.B*c) + margin*e.A

	r := image.Rect(
		int(math.Floor(e.Center.X-hw)), int(math.Floor(e.Center.Y-hh)),
		int(math.Ceil(e.Center.X+hw))+1, int(math.Ceil(e.Center.Y+hh))+1,
	).Intersect(bounds)
	if r.Empty() {
		return image.Rectangle{}, fmt.Errorf("marker region around (%.1f,%.1f) is outside image bounds %v",
			e.Center.X, e.Center.Y, bounds)
	}
	return r, nil
}

// Crop extracts region r from img, optionally rescaling it, and returns it as
// a base64 PNG.
func Crop(img image.Image, r image.Rectangle, scale float64) (*CropResult, error) {
	bounds := img.Bounds()
	if !r.In(bounds) {
		return nil, fmt.Errorf("crop region %v outside image bounds %v", r, bounds)
	}
	if r.Empty() {
		return nil, fmt.Errorf("invalid crop region: %v is empty", r)
	}

	cropped := imaging.Crop(img, r)

	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return nil, fmt.Errorf("failed to encode cropped image: %w", err)
	}

	return &CropResult{
		X:           r.Min.X,
		Y:           r.Min.Y,
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// CropMarker renders the overlay and crops it around e.
func (o *Overlay) CropMarker(img image.Image, e geometry.Ellipse, margin, scale float64) (*CropResult, error) {
	r, err := MarkerRegion(img.Bounds(), e, margin)
	if err != nil {
		return nil, err
	}
	rendered, _ := o.Render(img)
	return Crop(rendered, r, scale)
}
