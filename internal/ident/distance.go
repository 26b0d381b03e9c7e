package ident

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Template builds the expected ring profile of a signature for a signal of
// n samples.
//
// Sample i sits at xi = (i+1)/(n+1); its value is +1 when an even number of
// ratios satisfy 1/ratio ≤ xi and -1 otherwise.
func Template(ratios []float64, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	t := make([]float64, n)
	step := 1 / float64(n+1)
	for i := range t {
		xi := float64(i+1) * step
		crossed := 0
		for _, r := range ratios {
			if 1/r <= xi {
				crossed++
			}
		}
		if crossed%2 == 0 {
			t[i] = 1
		} else {
			t[i] = -1
		}
	}
	return t
}

// Distance is the robust distance between signal and template, computed over
// the samples from startOffset on.
//
// The window is split at its median into a dark group (below) and a light
// group (at or above), with means mub and muw. A sample expected dark (-1)
// costs max(s-mub, 0)², one expected light (+1) costs min(s-muw, 0)²; each
// term is divided by twice the window variance. A flat or empty window has
// distance 0.
func Distance(signal, template []float64, startOffset int) float64 {
	n := len(signal)
	if len(template) < n {
		n = len(template)
	}
	if startOffset < 0 {
		startOffset = 0
	}
	if startOffset >= n {
		return 0
	}
	window := signal[startOffset:n]

	_, variance := stat.PopMeanVariance(window, nil)
	if variance == 0 || math.IsNaN(variance) {
		return 0
	}

	median := median(window)
	var sumB, sumW float64
	var nb, nw int
	for _, s := range window {
		if s < median {
			sumB += s
			nb++
		} else {
			sumW += s
			nw++
		}
	}
	mub, muw := median, median
	if nb > 0 {
		mub = sumB / float64(nb)
	}
	if nw > 0 {
		muw = sumW / float64(nw)
	}

	var d float64
	for i, s := range window {
		var e float64
		if template[startOffset+i] < 0 {
			e = math.Max(s-mub, 0)
		} else {
			e = math.Min(s-muw, 0)
		}
		d += e * e / (2 * variance)
	}
	return d
}

// Score converts a distance into a similarity in (0, 1]. Distances too large
// for exp(-d) to be represented score the smallest positive float.
func Score(d float64) float64 {
	return math.Max(math.Exp(-d), math.SmallestNonzeroFloat64)
}

// median returns the middle value of x, averaging the two middle values when
// len(x) is even.
func median(x []float64) float64 {
	s := append([]float64(nil), x...)
	sort.Float64s(s)
	m := len(s) / 2
	if len(s)%2 == 1 {
		return s[m]
	}
	return (s[m-1] + s[m]) / 2
}

// flat reports whether the window of signal from startOffset on carries no
// intensity variation.
func flat(signal []float64, startOffset int) bool {
	if startOffset < 0 {
		startOffset = 0
	}
	if startOffset >= len(signal) {
		return true
	}
	w := signal[startOffset:]
	for _, s := range w[1:] {
		if s != w[0] {
			return false
		}
	}
	return true
}
