package rectify

import (
	"github.com/ironsheep/cctag-identify/internal/geometry"
)

// Sampler is a grayscale view offering bounds-checked bicubic sampling.
// *imaging.Gray implements it.
type Sampler interface {
	// Bicubic returns the interpolated value at (x, y), or false when the
	// position lies outside [0, width-1] × [0, height-1].
	Bicubic(x, y float64) (float64, bool)

	// Size returns the view dimensions in pixels.
	Size() (width, height int)
}

// ImageCut is a 1-D intensity profile sampled along a segment of the image.
//
// The signal length is fixed when the cut is sampled and never changes
// afterwards.
type ImageCut struct {
	Start  geometry.Point2D `json:"start"`
	Stop   geometry.Point2D `json:"stop"`
	Signal []float64        `json:"signal"`
}

// Len returns the number of samples in the cut.
func (c ImageCut) Len() int {
	return len(c.Signal)
}

// Rectify samples n evenly spaced canonical coordinates in [begin, end]
// through h.
//
// Samples that map outside the image are filled, after the pass, with the
// mean of the in-bounds samples. A cut with no in-bounds sample is filled
// with zeros. n == 1 samples begin only; n <= 0 returns an empty signal.
func Rectify(h Homography, img Sampler, n int, begin, end float64) ImageCut {
	cut := ImageCut{
		Start: h.MapCanonical(begin),
		Stop:  h.MapCanonical(end),
	}
	if n <= 0 {
		cut.Signal = []float64{}
		return cut
	}

	step := 0.0
	if n > 1 {
		step = (end - begin) / float64(n-1)
	}

	cut.Signal = make([]float64, n)
	outside := make([]int, 0, n)
	var sum float64
	valid := 0
	for i := 0; i < n; i++ {
		p := h.MapCanonical(begin + float64(i)*step)
		if v, ok := img.Bicubic(p.X, p.Y); ok {
			cut.Signal[i] = v
			sum += v
			valid++
		} else {
			outside = append(outside, i)
		}
	}

	fill := 0.0
	if valid > 0 {
		fill = sum / float64(valid)
	}
	for _, i := range outside {
		cut.Signal[i] = fill
	}
	return cut
}

// InterpolateStraight samples n points along the image segment from start
// to stop, both included.
//
// Samples outside the image read as 0 (black). The second result is the
// number of in-bounds samples.
func InterpolateStraight(img Sampler, start, stop geometry.Point2D, n int) (ImageCut, int) {
	cut := ImageCut{Start: start, Stop: stop}
	if n <= 0 {
		cut.Signal = []float64{}
		return cut, 0
	}

	var kx, ky float64
	if n > 1 {
		kx = (stop.X - start.X) / float64(n-1)
		ky = (stop.Y - start.Y) / float64(n-1)
	}

	cut.Signal = make([]float64, n)
	valid := 0
	for i := 0; i < n; i++ {
		x := start.X + float64(i)*kx
		y := start.Y + float64(i)*ky
		if v, ok := img.Bicubic(x, y); ok {
			cut.Signal[i] = v
			valid++
		}
	}
	return cut, valid
}
