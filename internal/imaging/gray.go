package imaging

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// Gray is a single-channel luminance view with values in [0, 1].
//
// Pixels are stored row-major: the value of pixel (x, y) is Pix[y*Width+x].
type Gray struct {
	Width  int
	Height int
	Pix    []float64
}

// NewGray converts any image into a Gray view.
//
// The conversion uses the same luminance weights as imaging.Grayscale
// (ITU-R BT.601). The returned view always starts at (0, 0) regardless of the
// source image bounds.
func NewGray(img image.Image) *Gray {
	gray := imaging.Grayscale(img)
	bounds := gray.Bounds()
	g := &Gray{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Pix:    make([]float64, bounds.Dx()*bounds.Dy()),
	}
	for y := 0; y < g.Height; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < g.Width; x++ {
			g.Pix[y*g.Width+x] = float64(row[4*x]) / 255.0
		}
	}
	return g
}

// NewGrayFunc builds a Gray view of the given size by evaluating f at every
// pixel. It is mostly useful to synthesize test patterns.
func NewGrayFunc(width, height int, f func(x, y int) float64) *Gray {
	g := &Gray{Width: width, Height: height, Pix: make([]float64, width*height)}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g.Pix[y*width+x] = f(x, y)
		}
	}
	return g
}

// Size returns the view dimensions in pixels.
func (g *Gray) Size() (width, height int) {
	return g.Width, g.Height
}

// At returns the pixel value at (x, y), replicating border pixels for
// coordinates outside the view.
func (g *Gray) At(x, y int) float64 {
	return g.Pix[clamp(y, 0, g.Height-1)*g.Width+clamp(x, 0, g.Width-1)]
}

// Bicubic samples the view at a sub-pixel position using the Catmull-Rom
// kernel over the 4x4 neighbourhood of (x, y).
//
// Returns false when (x, y) lies outside [0, Width-1] × [0, Height-1]; the
// neighbourhood of a valid position near the border replicates edge pixels.
// At integer positions the kernel interpolates exactly, returning the stored
// pixel value.
func (g *Gray) Bicubic(x, y float64) (float64, bool) {
	if g.Width == 0 || g.Height == 0 {
		return 0, false
	}
	if !(x >= 0 && x <= float64(g.Width-1) && y >= 0 && y <= float64(g.Height-1)) {
		return 0, false
	}

	ix := int(math.Floor(x))
	iy := int(math.Floor(y))
	fx := x - float64(ix)
	fy := y - float64(iy)

	var wx, wy [4]float64
	for k := 0; k < 4; k++ {
		wx[k] = kernelWeight(fx - float64(k-1))
		wy[k] = kernelWeight(fy - float64(k-1))
	}

	var sum, wsum float64
	for j := 0; j < 4; j++ {
		if wy[j] == 0 {
			continue
		}
		for i := 0; i < 4; i++ {
			w := wx[i] * wy[j]
			if w == 0 {
				continue
			}
			sum += w * g.At(ix+i-1, iy+j-1)
			wsum += w
		}
	}
	if wsum == 0 {
		return 0, false
	}
	return sum / wsum, true
}

// kernelWeight evaluates the Catmull-Rom kernel at signed offset t.
func kernelWeight(t float64) float64 {
	t = math.Abs(t)
	if t >= draw.CatmullRom.Support {
		return 0
	}
	return draw.CatmullRom.At(t)
}

// clamp constrains an integer value to the range [min, max].
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
