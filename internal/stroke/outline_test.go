package stroke

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zigzag(n int) []Point {
	pts := make([]Point, n)
	for i := range pts {
		pts[i] = Point{X: 10 + float64(i)*23.5, Y: 40 + float64(i%2)*31.25}
	}
	return pts
}

func TestProduceOutlineEmpty(t *testing.T) {
	o := ProduceOutline(nil, 18)
	assert.True(t, o.Empty())
	assert.Len(t, o.Commands, 0)
	assert.Equal(t, "", o.String())
}

func TestProduceOutlineDeterministic(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 12} {
		a := ProduceOutline(zigzag(n), 18)
		b := ProduceOutline(zigzag(n), 18)
		require.False(t, a.Empty(), "n=%d", n)
		assert.Equal(t, a.String(), b.String(), "n=%d", n)
	}
}

func TestProduceOutlineShape(t *testing.T) {
	o := ProduceOutline(zigzag(5), 18)
	require.GreaterOrEqual(t, len(o.Commands), 3)

	assert.Equal(t, MoveTo, o.Commands[0].Verb)
	assert.Equal(t, Close, o.Commands[len(o.Commands)-1].Verb)
	for _, c := range o.Commands[1 : len(o.Commands)-1] {
		assert.Equal(t, QuadTo, c.Verb)
	}

	// The first quad starts at the moveto vertex and the last one ends
	// halfway back to it, closing the loop smoothly.
	first := o.Commands[1]
	last := o.Commands[len(o.Commands)-2]
	assert.Equal(t, o.Commands[0].To, first.Ctrl)
	assert.Equal(t, last.Ctrl.mid(first.Ctrl), last.To)
}

func TestProduceOutlineIdenticalSamplesMakeDot(t *testing.T) {
	same := []Point{{50, 50}, {50, 50}, {50, 50}, {50, 50}}
	o := ProduceOutline(same, 10)
	require.False(t, o.Empty())
	// one moveto, a quad per dot vertex, one close
	assert.Len(t, o.Commands, cornerSteps+2)
}

func TestProduceOutlineZeroPen(t *testing.T) {
	assert.True(t, ProduceOutline(zigzag(4), 0).Empty())
}

func TestOutlineStringFormat(t *testing.T) {
	o := Outline{Commands: []Command{
		{Verb: MoveTo, To: Point{1, 2}},
		{Verb: QuadTo, Ctrl: Point{1, 2}, To: Point{2.5, 3}},
		{Verb: QuadTo, Ctrl: Point{4, 4}, To: Point{2.5, 3}},
		{Verb: Close},
	}}
	assert.Equal(t, "M 1 2 Q 1 2 2.5 3 4 4 2.5 3 Z", o.String())
}

func TestParsePathRoundTrip(t *testing.T) {
	o := ProduceOutline(zigzag(6), 18)
	parsed, err := ParsePath(o.String())
	require.NoError(t, err)
	assert.Equal(t, o, parsed)
}

func TestParsePathCompact(t *testing.T) {
	o, err := ParsePath("M10,20L30-40Q1 2,3 4Z")
	require.NoError(t, err)
	require.Len(t, o.Commands, 4)
	assert.Equal(t, Point{30, -40}, o.Commands[1].To)
	assert.Equal(t, Point{1, 2}, o.Commands[2].Ctrl)
}

func TestParsePathErrors(t *testing.T) {
	for _, d := range []string{"10 20", "M 1", "M 1 2 C 1 2 3 4 5 6", "M a b", "M 1 2 Z 3 4"} {
		_, err := ParsePath(d)
		assert.ErrorIs(t, err, ErrMalformedPath, d)
	}
}

func TestRescaleComposes(t *testing.T) {
	o := ProduceOutline(zigzag(7), 18)
	for _, f := range [][2]float64{{0.5, 2}, {0.3, 1.7}, {3, 0.25}} {
		ab, err := Rescale(o, f[0])
		require.NoError(t, err)
		ab, err = Rescale(ab, f[1])
		require.NoError(t, err)
		direct, err := Rescale(o, f[0]*f[1])
		require.NoError(t, err)

		require.Len(t, ab.Commands, len(direct.Commands))
		for i := range ab.Commands {
			assert.Equal(t, direct.Commands[i].Verb, ab.Commands[i].Verb)
			assert.InDelta(t, direct.Commands[i].To.X, ab.Commands[i].To.X, 1e-9)
			assert.InDelta(t, direct.Commands[i].To.Y, ab.Commands[i].To.Y, 1e-9)
			assert.InDelta(t, direct.Commands[i].Ctrl.X, ab.Commands[i].Ctrl.X, 1e-9)
			assert.InDelta(t, direct.Commands[i].Ctrl.Y, ab.Commands[i].Ctrl.Y, 1e-9)
		}
	}
}

func TestRescaleKeepsStructure(t *testing.T) {
	o := ProduceOutline(zigzag(3), 18)
	r, err := Rescale(o, 0.5)
	require.NoError(t, err)
	require.Len(t, r.Commands, len(o.Commands))
	for i := range o.Commands {
		assert.Equal(t, o.Commands[i].Verb, r.Commands[i].Verb)
		assert.Equal(t, o.Commands[i].To.mul(0.5), r.Commands[i].To)
	}
	// source untouched
	assert.Equal(t, ProduceOutline(zigzag(3), 18), o)
}

func TestRescaleRejectsNonPositive(t *testing.T) {
	o := ProduceOutline(zigzag(3), 18)
	for _, f := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := Rescale(o, f)
		assert.True(t, errors.Is(err, ErrNonPositiveFactor), "factor %v", f)
	}
}
