package document

import (
	"strings"
	"testing"

	"github.com/mossy-p/docsync/internal/models"
	"github.com/mossy-p/docsync/internal/signature"
	"github.com/mossy-p/docsync/internal/stroke"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMarkup = `<div><p>Terms</p><span>□ I agree</span><p>Mixed <b>bold</b> □</p>` +
	`<span class="font_w" width="100" height="200">Sign here</span></div>`

type recordingPublisher struct {
	events []models.Event
}

func (p *recordingPublisher) Publish(ev models.Event) bool {
	p.events = append(p.events, ev)
	return true
}

type recordingOpener struct {
	requests []signature.Request
}

func (o *recordingOpener) OpenSignature(req signature.Request) {
	o.requests = append(o.requests, req)
}

func newTestController(t *testing.T) (*Controller, *recordingPublisher, *recordingOpener) {
	t.Helper()
	pub := &recordingPublisher{}
	opener := &recordingOpener{}
	c := NewController(pub, opener, DefaultLayout(), zerolog.Nop())
	require.NoError(t, c.Load(testMarkup))
	return c, pub, opener
}

func sampleOutlines() []string {
	first := stroke.ProduceOutline([]stroke.Point{
		{X: 10, Y: 10}, {X: 20, Y: 15}, {X: 30, Y: 25}, {X: 40, Y: 30}, {X: 50, Y: 45},
	}, 18)
	second := stroke.ProduceOutline([]stroke.Point{
		{X: 60, Y: 60}, {X: 70, Y: 80}, {X: 90, Y: 85},
	}, 18)
	return []string{first.String(), second.String()}
}

func TestLoadAssignsIDs(t *testing.T) {
	c, _, _ := newTestController(t)

	content := c.Content()
	assert.Contains(t, content, `data-id="0"`)
	assert.Contains(t, content, `sign="0"`)
	assert.Contains(t, content, `sign-svg="0"`)
	assert.Contains(t, content, `signed="false"`)
	assert.Equal(t, 1, c.Regions())

	text, ok := c.Text("2")
	require.True(t, ok)
	assert.Equal(t, "□ I agree", text)

	id, ok := c.ElementID("I agree")
	require.True(t, ok)
	assert.Equal(t, "2", id)

	_, ok = c.Text("99")
	assert.False(t, ok)
}

func TestOverlayIsSizedFromLayout(t *testing.T) {
	c, _, _ := newTestController(t)
	assert.Contains(t, c.Content(), `width="100" height="200"`)
}

func TestReloadKeepsExistingOverlay(t *testing.T) {
	c, _, _ := newTestController(t)
	first := c.Content()
	require.NoError(t, c.Load(first))
	assert.Equal(t, first, c.Content())
	assert.Equal(t, 1, strings.Count(c.Content(), "<svg"))
}

func TestCheckboxToggleInvolution(t *testing.T) {
	c, pub, _ := newTestController(t)

	require.NoError(t, c.ToggleCheckbox("2"))
	text, _ := c.Text("2")
	assert.Equal(t, "☑ I agree", text)

	require.NoError(t, c.Apply(models.CheckboxToggle("2")))
	text, _ = c.Text("2")
	assert.Equal(t, "□ I agree", text)

	require.Len(t, pub.events, 1, "replayed toggles are not re-published")
	assert.Equal(t, models.CheckboxToggle("2"), pub.events[0])
}

func TestLocalToggleRequiresLeaf(t *testing.T) {
	c, pub, _ := newTestController(t)
	id, ok := c.ElementID("bold")
	require.True(t, ok)

	parent := "3"
	text, _ := c.Text(parent)
	require.Contains(t, text, "□")
	assert.ErrorIs(t, c.ToggleCheckbox(parent), ErrNotCheckbox)
	assert.ErrorIs(t, c.ToggleCheckbox(id), ErrNotCheckbox, "no check mark")
	assert.ErrorIs(t, c.ToggleCheckbox("nope"), ErrUnknownElement)
	assert.Empty(t, pub.events)
}

func TestRemoteAndLocalToggleConverge(t *testing.T) {
	a, pub, _ := newTestController(t)
	b, _, _ := newTestController(t)

	require.NoError(t, a.ToggleCheckbox("2"))
	for _, ev := range pub.events {
		require.NoError(t, b.Apply(ev))
	}
	assert.Equal(t, a.Content(), b.Content())

	fa, err := a.Fingerprint()
	require.NoError(t, err)
	fb, err := b.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fa, fb)
	assert.True(t, strings.HasPrefix(fa, "b"), "CIDv1 in base32")
}

func TestScroll(t *testing.T) {
	c, pub, _ := newTestController(t)
	c.Scroll(240)
	assert.Equal(t, 240.0, c.ScrollOffset())
	require.NoError(t, c.Apply(models.Scroll(10)))
	assert.Equal(t, 10.0, c.ScrollOffset())
	assert.Len(t, pub.events, 1)
}

func TestOpenRegion(t *testing.T) {
	c, pub, opener := newTestController(t)

	require.NoError(t, c.OpenRegion("0"))
	require.Len(t, opener.requests, 1)
	assert.Equal(t, signature.Request{
		RegionID:        "0",
		PlaceholderText: "Sign here",
		RegionWidth:     100,
		RegionHeight:    200,
	}, opener.requests[0])
	assert.Equal(t, []models.Event{models.SignatureRegionOpen("0")}, pub.events)

	require.NoError(t, c.Apply(models.SignatureRegionOpen("0")))
	assert.Len(t, opener.requests, 2)
	assert.Len(t, pub.events, 1)

	assert.ErrorIs(t, c.OpenRegion("5"), ErrUnknownRegion)
}

func TestApplySignatureRescales(t *testing.T) {
	c, _, _ := newTestController(t)
	outlines := sampleOutlines()
	before := c.Revision()

	require.NoError(t, c.ApplySignature(signature.Result{RegionID: "0", Outlines: outlines, ScaleFactor: 0.5}))

	region, ok := c.Region("0")
	require.True(t, ok)
	assert.True(t, region.Signed)
	require.Len(t, region.Paths, 2)
	for i, d := range outlines {
		o, err := stroke.ParsePath(d)
		require.NoError(t, err)
		want, err := stroke.Rescale(o, 0.5)
		require.NoError(t, err)
		assert.Equal(t, want.String(), region.Paths[i])
	}
	assert.Equal(t, before+1, c.Revision())
	assert.Contains(t, c.Content(), `stroke="black"`)
}

func TestApplySignatureReplacesAndClears(t *testing.T) {
	c, _, _ := newTestController(t)
	require.NoError(t, c.ApplySignature(signature.Result{RegionID: "0", Outlines: sampleOutlines(), ScaleFactor: 1}))
	require.NoError(t, c.ApplySignature(signature.Result{RegionID: "0", Outlines: sampleOutlines()[:1], ScaleFactor: 1}))

	region, _ := c.Region("0")
	assert.Len(t, region.Paths, 1)

	require.NoError(t, c.ApplySignature(signature.Result{RegionID: "0", Outlines: []string{}, ScaleFactor: 1}))
	region, _ = c.Region("0")
	assert.False(t, region.Signed)
	assert.Empty(t, region.Paths)
}

func TestApplySignatureRejects(t *testing.T) {
	c, _, _ := newTestController(t)
	before := c.Content()

	err := c.ApplySignature(signature.Result{RegionID: "0", Outlines: sampleOutlines(), ScaleFactor: stroke.UndefinedScale})
	assert.ErrorIs(t, err, stroke.ErrUndefinedScale)

	err = c.ApplySignature(signature.Result{RegionID: "0", Outlines: []string{"M 1 2 X"}, ScaleFactor: 1})
	assert.ErrorIs(t, err, stroke.ErrMalformedPath)

	err = c.ApplySignature(signature.Result{RegionID: "7", ScaleFactor: 1})
	assert.ErrorIs(t, err, ErrUnknownRegion)

	assert.Equal(t, before, c.Content())
}

func TestSignatureSurvivesReload(t *testing.T) {
	c, _, _ := newTestController(t)
	require.NoError(t, c.ApplySignature(signature.Result{RegionID: "0", Outlines: sampleOutlines(), ScaleFactor: 0.5}))
	want, _ := c.Region("0")

	require.NoError(t, c.Load(c.Content()))
	got, ok := c.Region("0")
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestApplyBeforeLoad(t *testing.T) {
	c := NewController(&recordingPublisher{}, &recordingOpener{}, DefaultLayout(), zerolog.Nop())
	assert.ErrorIs(t, c.Apply(models.CheckboxToggle("1")), ErrNoDocument)
	assert.Empty(t, c.Content())
}

func TestApplyRejectsSignatureEvents(t *testing.T) {
	c, _, _ := newTestController(t)
	assert.Error(t, c.Apply(models.PointerDown()))
}

func TestAttrLayout(t *testing.T) {
	a, err := Parse(`<span style="width: 80px; height:40px">x</span><i width="12">y</i>`, DefaultLayout())
	require.NoError(t, err)

	span, _ := a.Element("0")
	w, h := DefaultLayout().Size(span)
	assert.Equal(t, 80.0, w)
	assert.Equal(t, 40.0, h)

	i, _ := a.Element("1")
	w, h = DefaultLayout().Size(i)
	assert.Equal(t, 12.0, w)
	assert.Equal(t, 50.0, h)
}

func TestIDsIgnoreSignatureContent(t *testing.T) {
	const markup = `<div><span class="font_w" width="100" height="200">Sign here</span><span>□ later</span></div>`
	load := func() *Controller {
		c := NewController(&recordingPublisher{}, &recordingOpener{}, DefaultLayout(), zerolog.Nop())
		require.NoError(t, c.Load(markup))
		return c
	}
	a, b, unsigned := load(), load(), load()

	require.NoError(t, a.ApplySignature(signature.Result{RegionID: "0", Outlines: sampleOutlines(), ScaleFactor: 1}))
	require.NoError(t, b.ApplySignature(signature.Result{RegionID: "0", Outlines: sampleOutlines()[:1], ScaleFactor: 1}))

	want, ok := unsigned.ElementID("later")
	require.True(t, ok)
	for _, c := range []*Controller{a, b} {
		id, ok := c.ElementID("later")
		require.True(t, ok)
		assert.Equal(t, want, id)
		assert.Equal(t, unsigned.arena.Len(), c.arena.Len())
	}
	assert.NotRegexp(t, `<path[^>]*data-id`, a.Content())

	require.NoError(t, b.Apply(models.CheckboxToggle(want)))
	text, _ := b.Text(want)
	assert.Equal(t, "☑ later", text)

	// Reloading saved content keeps paths unaddressed.
	require.NoError(t, a.Load(a.Content()))
	assert.Equal(t, unsigned.arena.Len(), a.arena.Len())
}
