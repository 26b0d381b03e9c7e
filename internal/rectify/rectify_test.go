package rectify

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/cctag-identify/internal/geometry"
	"github.com/ironsheep/cctag-identify/internal/imaging"
)

// rampImage returns a view whose value grows linearly with X.
func rampImage(width, height int) *imaging.Gray {
	return imaging.NewGrayFunc(width, height, func(x, y int) float64 {
		return float64(x) / float64(width)
	})
}

// ringImage renders concentric rings around (cx, cy): the annulus index of a
// pixel (counted by radius crossings in radii) decides black or white, and
// everything beyond the last radius is white.
func ringImage(width, height int, cx, cy float64, radii []float64) *imaging.Gray {
	return imaging.NewGrayFunc(width, height, func(x, y int) float64 {
		r := math.Hypot(float64(x)-cx, float64(y)-cy)
		crossed := 0
		for _, rr := range radii {
			if r >= rr {
				crossed++
			}
		}
		if crossed%2 == 0 {
			return 1
		}
		return 0
	})
}

func TestRectify_SignalLength(t *testing.T) {
	img := rampImage(50, 50)
	h := Homography{40, 0, 5, 0, 1, 25, 0, 0, 1}

	for _, n := range []int{2, 3, 17, 100, 257} {
		for _, r := range [][2]float64{{0, 1}, {0.25, 1}, {-1, 2}, {0.5, 0.5}} {
			cut := Rectify(h, img, n, r[0], r[1])
			assert.Len(t, cut.Signal, n, "n=%d range=%v", n, r)
		}
	}
	assert.Len(t, Rectify(h, img, 1, 0, 1).Signal, 1)
	assert.Empty(t, Rectify(h, img, 0, 0, 1).Signal)
}

func TestRectify_SamplesAlongAxis(t *testing.T) {
	img := rampImage(100, 10)
	// t in [0,1] maps to x in [10, 90] on row 5.
	h := Homography{80, 0, 10, 0, 1, 5, 0, 0, 1}

	cut := Rectify(h, img, 5, 0, 1)
	require.Len(t, cut.Signal, 5)
	for i, v := range cut.Signal {
		x := 10 + 80*float64(i)/4
		assert.InDelta(t, x/100, v, 1e-9, "sample %d", i)
	}
	assert.Equal(t, geometry.Point2D{X: 10, Y: 5}, cut.Start)
	assert.Equal(t, geometry.Point2D{X: 90, Y: 5}, cut.Stop)
}

func TestRectify_DeferredMeanFill(t *testing.T) {
	img := rampImage(100, 10)
	// t in [0,1] maps to x in [-60, 140]; only x in [0, 99] is valid.
	h := Homography{200, 0, -60, 0, 1, 5, 0, 0, 1}
	n := 21

	cut := Rectify(h, img, n, 0, 1)
	require.Len(t, cut.Signal, n)

	var sum float64
	var inside, outside []int
	for i := 0; i < n; i++ {
		x := -60 + 200*float64(i)/float64(n-1)
		if x >= 0 && x <= 99 {
			inside = append(inside, i)
			sum += cut.Signal[i]
		} else {
			outside = append(outside, i)
		}
	}
	require.NotEmpty(t, outside)
	mean := sum / float64(len(inside))
	for _, i := range outside {
		assert.InDelta(t, mean, cut.Signal[i], 1e-12, "sample %d", i)
	}
}

func TestRectify_NoValidSamples(t *testing.T) {
	img := rampImage(10, 10)
	h := Homography{5, 0, 500, 0, 1, 500, 0, 0, 1}

	cut := Rectify(h, img, 8, 0, 1)
	require.Len(t, cut.Signal, 8)
	for _, v := range cut.Signal {
		assert.Equal(t, 0.0, v)
	}
}

func TestInterpolateStraight(t *testing.T) {
	img := imaging.NewGrayFunc(100, 100, func(x, y int) float64 { return 0.5 })

	t.Run("inside", func(t *testing.T) {
		cut, valid := InterpolateStraight(img, geometry.Point2D{X: 50, Y: 50}, geometry.Point2D{X: 90, Y: 20}, 30)
		assert.Equal(t, 30, valid)
		require.Len(t, cut.Signal, 30)
		for _, v := range cut.Signal {
			assert.InDelta(t, 0.5, v, 1e-12)
		}
	})

	t.Run("partly outside reads black", func(t *testing.T) {
		cut, valid := InterpolateStraight(img, geometry.Point2D{X: 50, Y: 50}, geometry.Point2D{X: 150, Y: 50}, 101)
		// x = 50..150 step 1; valid while x <= 99.
		assert.Equal(t, 50, valid)
		assert.InDelta(t, 0.5, cut.Signal[49], 1e-12)
		assert.Equal(t, 0.0, cut.Signal[50])
		assert.Equal(t, 0.0, cut.Signal[100])
	})
}

func TestNormalizeDet(t *testing.T) {
	for _, h := range []Homography{
		{2, 0, 1, 0, 2, 3, 0, 0, 2},
		{-3, 1, 0, 0, 1, 0, 0, 0, 1},
		{0.01, 0.002, 1, 0.001, 0.02, 4, 0, 0.0001, 1},
	} {
		n := h.NormalizeDet()
		assert.InDelta(t, 1, n.Det(), 1e-9)
		// Same projective map.
		p := geometry.Point2D{X: 3, Y: -2}
		assert.InDelta(t, h.Apply(p).X, n.Apply(p).X, 1e-9)
		assert.InDelta(t, h.Apply(p).Y, n.Apply(p).Y, 1e-9)
	}
	singular := Homography{1, 2, 3, 2, 4, 6, 0, 0, 0}
	assert.Equal(t, singular, singular.NormalizeDet())
}

func TestAdjust_AnchorsAxis(t *testing.T) {
	h := Homography{1.2, 0.1, 3, -0.2, 0.9, 7, 0.001, 0.0005, 1}
	origin := geometry.Point2D{X: 40, Y: 30}
	target := geometry.Point2D{X: 70, Y: 10}

	adj, err := Adjust(h, origin, target)
	require.NoError(t, err)

	o := adj.MapCanonical(0)
	p := adj.MapCanonical(1)
	assert.InDelta(t, origin.X, o.X, 1e-9)
	assert.InDelta(t, origin.Y, o.Y, 1e-9)
	assert.InDelta(t, target.X, p.X, 1e-9)
	assert.InDelta(t, target.Y, p.Y, 1e-9)
	assert.InDelta(t, 1, adj.Det(), 1e-9)
}

func TestAdjust_Idempotent(t *testing.T) {
	h := Homography{12, 1, 30, -2, 9, 70, 0.001, 0.002, 1}
	origin := geometry.Point2D{X: 100, Y: 80}
	target := geometry.Point2D{X: 140, Y: 95}

	once, err := Adjust(h, origin, target)
	require.NoError(t, err)
	twice, err := Adjust(once, origin, target)
	require.NoError(t, err)

	for i := range once {
		assert.InDelta(t, once[i], twice[i], 1e-9, "element %d", i)
	}
}

func TestAdjust_Errors(t *testing.T) {
	_, err := Adjust(Homography{}, geometry.Point2D{}, geometry.Point2D{X: 1})
	assert.True(t, errors.Is(err, ErrSingularHomography))

	_, err = Adjust(Identity(), geometry.Point2D{X: 5, Y: 5}, geometry.Point2D{X: 5, Y: 5})
	assert.True(t, errors.Is(err, ErrSingularHomography))
}

func TestFromEllipseCenter_Circle(t *testing.T) {
	e, err := geometry.NewEllipse(geometry.Point2D{X: 100, Y: 80}, 40, 40, 0)
	require.NoError(t, err)
	anchor := e.PointAt(0.3)

	h, err := FromEllipseCenter(e.Matrix(), e.Center, anchor)
	require.NoError(t, err)

	o := h.MapCanonical(0)
	p := h.MapCanonical(1)
	m := h.MapCanonical(0.5)
	assert.InDelta(t, 100, o.X, 1e-6)
	assert.InDelta(t, 80, o.Y, 1e-6)
	assert.InDelta(t, anchor.X, p.X, 1e-6)
	assert.InDelta(t, anchor.Y, p.Y, 1e-6)
	assert.InDelta(t, (o.X+p.X)/2, m.X, 1e-6)
	assert.InDelta(t, (o.Y+p.Y)/2, m.Y, 1e-6)
	assert.InDelta(t, 1, h.Det(), 1e-9)
}

func TestFromEllipseCenter_MapsUnitCircleOntoEllipse(t *testing.T) {
	e, err := geometry.NewEllipse(geometry.Point2D{X: 320, Y: 240}, 90, 50, 0.6)
	require.NoError(t, err)

	h, err := FromEllipseCenter(e.Matrix(), e.Center, e.PointAt(1.1))
	require.NoError(t, err)

	for _, theta := range []float64{0, 0.8, 2, 3.3, 5} {
		q := h.Apply(geometry.Point2D{X: math.Cos(theta), Y: math.Sin(theta)})
		d := q.Sub(e.Center)
		c, s := math.Cos(e.Angle), math.Sin(e.Angle)
		u := (c*d.X + s*d.Y) / e.A
		v := (-s*d.X + c*d.Y) / e.B
		assert.InDelta(t, 1, u*u+v*v, 1e-6, "theta=%v", theta)
	}
}

func TestFromEllipseCenter_Degenerate(t *testing.T) {
	center := geometry.Point2D{X: 10, Y: 10}

	_, err := FromEllipseCenter(mat.NewDense(3, 3, nil), center, geometry.Point2D{X: 20, Y: 10})
	assert.True(t, errors.Is(err, ErrDegenerateConic))

	e, _ := geometry.NewEllipse(center, 5, 5, 0)
	onConic := e.PointAt(0)
	_, err = FromEllipseCenter(e.Matrix(), onConic, e.PointAt(1))
	assert.True(t, errors.Is(err, ErrDegenerateConic))

	_, err = FromEllipseCenter(mat.NewDense(2, 2, nil), center, onConic)
	assert.True(t, errors.Is(err, ErrDegenerateConic))
}

func TestFromEllipseCenter_NonFiniteConic(t *testing.T) {
	center := geometry.Point2D{X: 50, Y: 50}
	e, err := geometry.NewEllipse(center, 20, 0, 0)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := FromEllipseCenter(e.Matrix(), center, geometry.Point2D{X: 70, Y: 50})
		done <- err
	}()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, ErrDegenerateConic), "got %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("FromEllipseCenter did not return for a zero minor axis")
	}

	nan := mat.NewDense(3, 3, []float64{1, 0, 0, 0, math.NaN(), 0, 0, 0, -1})
	_, err = FromEllipseCenter(nan, center, geometry.Point2D{X: 70, Y: 50})
	assert.True(t, errors.Is(err, ErrDegenerateConic))
}

func TestSweep_RejectsCenterOutsideFrame(t *testing.T) {
	img := imaging.NewGrayFunc(640, 480, func(x, y int) float64 { return 0 })
	// A zero conic would fail factorization; the margin check must come first.
	_, _, err := Sweep(img, mat.NewDense(3, 3, nil), geometry.Point2D{X: 1000, Y: 1000},
		[]geometry.Point2D{{X: 10, Y: 10}}, 50)
	assert.True(t, errors.Is(err, ErrCenterOutOfFrame))
	assert.False(t, errors.Is(err, ErrDegenerateConic))

	assert.True(t, InFrame(geometry.Point2D{X: -150, Y: 630}, 640, 480))
	assert.False(t, InFrame(geometry.Point2D{X: -151, Y: 0}, 640, 480))
	assert.False(t, InFrame(geometry.Point2D{X: 0, Y: 631}, 640, 480))
}

func TestSweep_NoBoundary(t *testing.T) {
	img := rampImage(10, 10)
	_, _, err := Sweep(img, mat.NewDense(3, 3, nil), geometry.Point2D{X: 5, Y: 5}, nil, 10)
	assert.True(t, errors.Is(err, ErrNoBoundaryPoints))
}

func TestSweep_ConcentricRings(t *testing.T) {
	cx, cy, r := 100.0, 100.0, 60.0
	img := ringImage(200, 200, cx, cy, []float64{18, 30, 42, 54, 60})
	e, err := geometry.NewEllipse(geometry.Point2D{X: cx, Y: cy}, r, r, 0)
	require.NoError(t, err)

	var boundary []geometry.Point2D
	for i := 0; i < 40; i++ {
		boundary = append(boundary, e.PointAt(2*math.Pi*float64(i)/40))
	}

	ref, cuts, err := Sweep(img, e.Matrix(), e.Center, boundary, 100)
	require.NoError(t, err)
	require.Len(t, cuts, len(boundary))
	assert.InDelta(t, 1, ref.Det(), 1e-9)

	for i, cut := range cuts {
		require.Len(t, cut.Signal, 100)
		assert.InDelta(t, cx, cut.Start.X, 1e-6)
		assert.InDelta(t, cy, cut.Start.Y, 1e-6)
		assert.InDelta(t, boundary[i].X, cut.Stop.X, 1e-6, "cut %d", i)
		assert.InDelta(t, boundary[i].Y, cut.Stop.Y, 1e-6, "cut %d", i)
	}

	// Away from transitions every cut reads the same ring.
	for _, idx := range []int{10, 40, 60, 80} {
		for i := 1; i < len(cuts); i++ {
			assert.InDelta(t, cuts[0].Signal[idx], cuts[i].Signal[idx], 0.2, "sample %d of cut %d", idx, i)
		}
	}
}
