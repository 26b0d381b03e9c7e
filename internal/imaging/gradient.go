package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// Field is a single-channel floating-point raster, used for the horizontal
// and vertical image gradients.
type Field struct {
	Width  int
	Height int
	Pix    []float64
}

// At returns the field value at pixel (x, y), or 0 outside the field.
func (f *Field) At(x, y int) float64 {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return 0
	}
	return f.Pix[y*f.Width+x]
}

// Gradients computes Sobel gradient fields of an image.
//
// Parameters:
//   - img: Source image (color or grayscale).
//   - sigma: Standard deviation of the Gaussian blur applied before
//     differentiation. Zero or negative disables blurring. Typical value: 1.0.
//
// Returns the X gradient (positive toward increasing X) and the Y gradient
// (positive toward increasing Y) of the luminance in [0, 1] units.
//
// # Algorithm
//
//  1. Gaussian blur via imaging.Blur to reduce noise
//  2. Grayscale conversion (ITU-R BT.601 weights)
//  3. 3x3 Sobel operators with replicated borders:
//
//	Gx = | -1 0 1 |    Gy = | -1 -2 -1 |
//	     | -2 0 2 |         |  0  0  0 |
//	     | -1 0 1 |         |  1  2  1 |
func Gradients(img image.Image, sigma float64) (gx, gy *Field) {
	src := img
	if sigma > 0 {
		src = imaging.Blur(img, sigma)
	}
	return SobelGradients(NewGray(src))
}

// SobelGradients computes Sobel gradient fields of a Gray view.
func SobelGradients(g *Gray) (gx, gy *Field) {
	width, height := g.Width, g.Height
	gx = &Field{Width: width, Height: height, Pix: make([]float64, width*height)}
	gy = &Field{Width: width, Height: height, Pix: make([]float64, width*height)}

	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sx, sy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := g.At(x+kx, y+ky)
					sx += v * sobelX[ky+1][kx+1]
					sy += v * sobelY[ky+1][kx+1]
				}
			}
			gx.Pix[y*width+x] = sx
			gy.Pix[y*width+x] = sy
		}
	}
	return gx, gy
}
