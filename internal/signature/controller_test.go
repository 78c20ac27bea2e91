package signature

import (
	"errors"
	"testing"

	"github.com/mossy-p/docsync/internal/models"
	"github.com/mossy-p/docsync/internal/stroke"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	events []models.Event
}

func (p *recordingPublisher) Publish(ev models.Event) bool {
	p.events = append(p.events, ev)
	return true
}

type recordingHandler struct {
	results []Result
	err     error
}

func (h *recordingHandler) ApplySignature(res Result) error {
	h.results = append(h.results, res)
	return h.err
}

func newTestController() (*Controller, *recordingPublisher, *recordingHandler) {
	pub := &recordingPublisher{}
	handler := &recordingHandler{}
	return NewController(pub, handler, zerolog.Nop()), pub, handler
}

func drawStroke(t *testing.T, c *Controller, pts ...stroke.Point) {
	t.Helper()
	require.NoError(t, c.PointerDown())
	for _, p := range pts {
		require.NoError(t, c.PointerMove(p.X, p.Y, true))
	}
	require.NoError(t, c.PointerUp())
}

func TestFitSurface(t *testing.T) {
	req := Request{RegionWidth: 100, RegionHeight: 200}
	assert.Equal(t, Surface{Width: 200, Height: 400}, FitSurface(req, 200))
	assert.Equal(t, Surface{Width: 200}, FitSurface(Request{RegionHeight: 50}, 200))
}

func TestOpenResetsCapture(t *testing.T) {
	c, _, _ := newTestController()
	assert.Equal(t, Idle, c.State())

	c.Open(Request{RegionID: "0", RegionWidth: 100, RegionHeight: 200}, Surface{Width: 200, Height: 400})
	assert.Equal(t, Drawing, c.State())
	assert.Equal(t, 18.0, c.PenSize())

	drawStroke(t, c, stroke.Point{X: 1, Y: 1}, stroke.Point{X: 10, Y: 10})
	assert.Equal(t, 1, c.Strokes())

	c.Open(Request{RegionID: "1"}, Surface{Width: 200, Height: 400})
	assert.Equal(t, 0, c.Strokes())
	assert.Equal(t, "1", c.Request().RegionID)
}

func TestPointerInputRequiresDrawing(t *testing.T) {
	c, pub, _ := newTestController()
	assert.ErrorIs(t, c.PointerDown(), ErrNotDrawing)
	assert.ErrorIs(t, c.PointerMove(1, 1, true), ErrNotDrawing)
	assert.ErrorIs(t, c.PointerUp(), ErrNotDrawing)
	_, err := c.Submit()
	assert.ErrorIs(t, err, ErrNotDrawing)
	assert.Empty(t, pub.events)
}

func TestPointerMoveOnlyWhilePrimaryHeld(t *testing.T) {
	c, pub, _ := newTestController()
	c.Open(Request{RegionWidth: 100, RegionHeight: 100}, Surface{Width: 100, Height: 100})

	require.NoError(t, c.PointerDown())
	require.NoError(t, c.PointerMove(5, 5, false))
	assert.Equal(t, 0, c.Samples())

	require.NoError(t, c.PointerMove(5.126, 7.004, true))
	assert.Equal(t, 1, c.Samples())
	require.Len(t, pub.events, 2)
	assert.Equal(t, models.PointerMove(5.13, 7), pub.events[1])
}

func TestEmptyStrokeIsNotKept(t *testing.T) {
	c, _, _ := newTestController()
	c.Open(Request{RegionWidth: 100, RegionHeight: 100}, Surface{Width: 100, Height: 100})
	require.NoError(t, c.PointerDown())
	require.NoError(t, c.PointerUp())
	assert.Equal(t, 0, c.Strokes())
}

func TestLiveOutline(t *testing.T) {
	c, _, _ := newTestController()
	c.Open(Request{RegionWidth: 100, RegionHeight: 100}, Surface{Width: 100, Height: 100})
	assert.True(t, c.Live().Empty())

	require.NoError(t, c.PointerDown())
	require.NoError(t, c.PointerMove(10, 10, true))
	require.NoError(t, c.PointerMove(30, 40, true))
	assert.False(t, c.Live().Empty())

	require.NoError(t, c.PointerUp())
	assert.True(t, c.Live().Empty())
}

func TestSubmitTwoStrokes(t *testing.T) {
	c, pub, handler := newTestController()
	c.Open(Request{RegionID: "0", RegionWidth: 100, RegionHeight: 200}, Surface{Width: 200, Height: 400})

	drawStroke(t, c,
		stroke.Point{X: 10, Y: 10}, stroke.Point{X: 20, Y: 15}, stroke.Point{X: 30, Y: 25},
		stroke.Point{X: 40, Y: 30}, stroke.Point{X: 50, Y: 45})
	drawStroke(t, c,
		stroke.Point{X: 60, Y: 60}, stroke.Point{X: 70, Y: 80}, stroke.Point{X: 90, Y: 85})

	res, err := c.Submit()
	require.NoError(t, err)
	assert.Equal(t, 0.5, res.ScaleFactor)
	assert.Equal(t, "0", res.RegionID)
	require.Len(t, res.Outlines, 2)
	for _, d := range res.Outlines {
		assert.NotEmpty(t, d)
	}
	assert.True(t, res.Signed())
	assert.Equal(t, Submitted, c.State())

	require.Len(t, handler.results, 1)
	assert.Equal(t, res, handler.results[0])
	assert.Equal(t, models.SignatureSubmit(), pub.events[len(pub.events)-1])
}

func TestSubmitWithoutStrokesClears(t *testing.T) {
	c, _, handler := newTestController()
	c.Open(Request{RegionID: "2", RegionWidth: 100, RegionHeight: 50}, Surface{Width: 200, Height: 100})

	res, err := c.Submit()
	require.NoError(t, err)
	assert.Empty(t, res.Outlines)
	assert.False(t, res.Signed())
	require.Len(t, handler.results, 1)
}

func TestSubmitUndefinedScaleIsDiscarded(t *testing.T) {
	c, _, handler := newTestController()
	c.Open(Request{RegionID: "0", RegionHeight: 100}, Surface{Width: 200})

	res, err := c.Submit()
	require.ErrorIs(t, err, stroke.ErrUndefinedScale)
	assert.Equal(t, stroke.UndefinedScale, res.ScaleFactor)
	assert.Empty(t, handler.results)
	assert.Equal(t, Submitted, c.State())
}

func TestSubmitPropagatesHandlerError(t *testing.T) {
	c, _, handler := newTestController()
	handler.err = errors.New("boom")
	c.Open(Request{RegionID: "0", RegionWidth: 10, RegionHeight: 10}, Surface{Width: 10, Height: 10})
	_, err := c.Submit()
	assert.EqualError(t, err, "boom")
}

func TestRemoteReplayMatchesLocal(t *testing.T) {
	local, pub, localHandler := newTestController()
	remote, remotePub, remoteHandler := newTestController()

	req := Request{RegionID: "0", RegionWidth: 100, RegionHeight: 200}
	surface := FitSurface(req, 200)
	local.Open(req, surface)
	remote.Open(req, surface)

	drawStroke(t, local, stroke.Point{X: 10.123, Y: 10}, stroke.Point{X: 20, Y: 25.555}, stroke.Point{X: 40, Y: 30})
	_, err := local.Submit()
	require.NoError(t, err)

	for _, ev := range pub.events {
		require.NoError(t, remote.Apply(ev))
	}
	assert.Empty(t, remotePub.events, "replay must not re-broadcast")

	require.Len(t, localHandler.results, 1)
	require.Len(t, remoteHandler.results, 1)
	assert.Equal(t, localHandler.results[0], remoteHandler.results[0])
}

func TestApplyRejectsForeignEvents(t *testing.T) {
	c, _, _ := newTestController()
	c.Open(Request{RegionWidth: 10, RegionHeight: 10}, Surface{Width: 10, Height: 10})
	assert.Error(t, c.Apply(models.Scroll(3)))
	assert.Error(t, c.Apply(models.Event{Target: models.TargetSignature, Kind: models.KindScroll}))
	assert.Equal(t, Drawing, c.State())
}

func TestCloseReturnsToIdle(t *testing.T) {
	c, _, handler := newTestController()
	c.Open(Request{RegionWidth: 10, RegionHeight: 10}, Surface{Width: 10, Height: 10})
	drawStroke(t, c, stroke.Point{X: 1, Y: 1}, stroke.Point{X: 5, Y: 5})
	c.Close()
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, 0, c.Strokes())
	assert.Empty(t, handler.results)
}
