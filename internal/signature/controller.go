// Package signature captures freehand signatures and mirrors every pointer
// sample to the other members of the room.
package signature

import (
	"errors"
	"fmt"
	"math"

	"github.com/mossy-p/docsync/internal/models"
	"github.com/mossy-p/docsync/internal/stroke"
	"github.com/rs/zerolog"
)

// ErrNotDrawing is returned for pointer input while no region is open.
var ErrNotDrawing = errors.New("signature: no capture in progress")

// State of the capture surface.
type State int

const (
	Idle State = iota
	Drawing
	Submitted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Drawing:
		return "drawing"
	case Submitted:
		return "submitted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Request describes the region a signature is drawn for.
type Request struct {
	RegionID        string
	PlaceholderText string
	RegionWidth     float64
	RegionHeight    float64
}

// Result is a finished signature in drawing-surface coordinates. ScaleFactor
// maps it onto the target region.
type Result struct {
	RegionID    string
	Outlines    []string
	ScaleFactor float64
}

// Signed reports whether anything was drawn.
func (r Result) Signed() bool { return len(r.Outlines) > 0 }

// Surface is the drawing pad size in pixels.
type Surface struct {
	Width  float64
	Height float64
}

// FitSurface sizes a pad of padWidth to the region's aspect ratio. A region
// without width gets a zero-height surface, which cannot be placed.
func FitSurface(req Request, padWidth float64) Surface {
	if req.RegionWidth <= 0 || padWidth <= 0 {
		return Surface{Width: padWidth}
	}
	return Surface{Width: padWidth, Height: req.RegionHeight * padWidth / req.RegionWidth}
}

// Publisher sends local input to the room.
type Publisher interface {
	Publish(ev models.Event) bool
}

// ResultHandler receives submitted signatures.
type ResultHandler interface {
	ApplySignature(res Result) error
}

// Controller drives one capture surface. It is not safe for concurrent use;
// the owning event loop serializes calls.
type Controller struct {
	pub     Publisher
	handler ResultHandler
	logger  zerolog.Logger

	state    State
	req      Request
	surface  Surface
	penSize  float64
	samples  []stroke.Point
	outlines []stroke.Outline
}

func NewController(pub Publisher, handler ResultHandler, logger zerolog.Logger) *Controller {
	return &Controller{
		pub:     pub,
		handler: handler,
		logger:  logger.With().Str("component", "signature").Logger(),
	}
}

// Open starts a capture for req on surface, discarding any earlier strokes.
func (c *Controller) Open(req Request, surface Surface) {
	c.state = Drawing
	c.req = req
	c.surface = surface
	c.penSize = stroke.PenSize(surface.Height)
	c.samples = nil
	c.outlines = nil
	c.logger.Debug().
		Str("region", req.RegionID).
		Float64("width", surface.Width).
		Float64("height", surface.Height).
		Msg("capture opened")
}

// Close abandons the capture without submitting.
func (c *Controller) Close() {
	c.state = Idle
	c.samples = nil
	c.outlines = nil
}

func (c *Controller) State() State     { return c.state }
func (c *Controller) Request() Request { return c.req }
func (c *Controller) Surface() Surface { return c.surface }
func (c *Controller) PenSize() float64 { return c.penSize }
func (c *Controller) Strokes() int     { return len(c.outlines) }
func (c *Controller) Samples() int     { return len(c.samples) }

// Live is the outline of the stroke currently being drawn.
func (c *Controller) Live() stroke.Outline {
	return stroke.ProduceOutline(c.samples, c.penSize)
}

// Outlines returns the finished strokes.
func (c *Controller) Outlines() []stroke.Outline {
	return append([]stroke.Outline(nil), c.outlines...)
}

// PointerDown starts a stroke.
func (c *Controller) PointerDown() error {
	if err := c.pointerDown(); err != nil {
		return err
	}
	c.pub.Publish(models.PointerDown())
	return nil
}

// PointerMove records a sample while the primary button is held. Samples are
// rounded to two decimals before they are stored and sent.
func (c *Controller) PointerMove(x, y float64, primaryHeld bool) error {
	if !primaryHeld {
		return nil
	}
	x, y = round2(x), round2(y)
	if err := c.pointerMove(x, y); err != nil {
		return err
	}
	c.pub.Publish(models.PointerMove(x, y))
	return nil
}

// PointerUp finishes the current stroke.
func (c *Controller) PointerUp() error {
	if err := c.pointerUp(); err != nil {
		return err
	}
	c.pub.Publish(models.PointerUp())
	return nil
}

// Submit hands the signature to the result handler. An unplaceable
// signature is discarded and reported with stroke.ErrUndefinedScale.
func (c *Controller) Submit() (Result, error) {
	if c.state != Drawing {
		return Result{}, ErrNotDrawing
	}
	c.pub.Publish(models.SignatureSubmit())
	return c.submit()
}

// Apply replays an event from another participant.
func (c *Controller) Apply(ev models.Event) error {
	if ev.Target != models.TargetSignature {
		return fmt.Errorf("signature: unexpected target %s", ev.Target)
	}
	switch ev.Kind {
	case models.KindPointerDown:
		return c.pointerDown()
	case models.KindPointerMove:
		x, y, _ := ev.Point()
		return c.pointerMove(x, y)
	case models.KindPointerUp:
		return c.pointerUp()
	case models.KindSignatureSubmit:
		if c.state != Drawing {
			return ErrNotDrawing
		}
		_, err := c.submit()
		return err
	default:
		return fmt.Errorf("signature: unexpected %s event", ev.Kind)
	}
}

func (c *Controller) pointerDown() error {
	if c.state != Drawing {
		return ErrNotDrawing
	}
	c.samples = c.samples[:0]
	return nil
}

func (c *Controller) pointerMove(x, y float64) error {
	if c.state != Drawing {
		return ErrNotDrawing
	}
	c.samples = append(c.samples, stroke.Point{X: x, Y: y})
	return nil
}

func (c *Controller) pointerUp() error {
	if c.state != Drawing {
		return ErrNotDrawing
	}
	outline := stroke.ProduceOutline(c.samples, c.penSize)
	c.samples = c.samples[:0]
	if outline.Empty() {
		return nil
	}
	c.outlines = append(c.outlines, outline)
	return nil
}

func (c *Controller) submit() (Result, error) {
	res := Result{
		RegionID:    c.req.RegionID,
		Outlines:    make([]string, 0, len(c.outlines)),
		ScaleFactor: stroke.DeriveScaleFactor(c.req.RegionHeight, c.surface.Height),
	}
	for _, o := range c.outlines {
		res.Outlines = append(res.Outlines, o.String())
	}
	c.state = Submitted
	c.samples = nil
	c.outlines = nil

	if !stroke.Renderable(res.ScaleFactor) {
		c.logger.Warn().Str("region", res.RegionID).Msg("discarding signature with undefined scale")
		return res, fmt.Errorf("region %s: %w", res.RegionID, stroke.ErrUndefinedScale)
	}

	c.logger.Info().
		Str("region", res.RegionID).
		Int("strokes", len(res.Outlines)).
		Float64("scale", res.ScaleFactor).
		Msg("signature submitted")
	if err := c.handler.ApplySignature(res); err != nil {
		return res, err
	}
	return res, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
