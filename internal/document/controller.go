// Package document keeps a participant's copy of the shared document in step
// with the room. Local actions and replayed remote events go through the same
// transitions.
package document

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/mossy-p/docsync/internal/models"
	"github.com/mossy-p/docsync/internal/signature"
	"github.com/mossy-p/docsync/internal/stroke"
	"github.com/multiformats/go-multihash"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	ErrNoDocument     = errors.New("document: nothing loaded")
	ErrUnknownElement = errors.New("document: unknown element")
	ErrUnknownRegion  = errors.New("document: unknown signature region")
	ErrNotCheckbox    = errors.New("document: element is not a checkbox")
)

const (
	pathStroke      = "black"
	pathStrokeWidth = "4"
)

// Publisher sends local actions to the room.
type Publisher interface {
	Publish(ev models.Event) bool
}

// Opener starts a signature capture for a region.
type Opener interface {
	OpenSignature(req signature.Request)
}

// Region is a read-only view of a signature region.
type Region struct {
	ID          string
	Placeholder string
	Width       float64
	Height      float64
	Signed      bool
	Paths       []string
}

// Controller owns the authoritative markup of one participant. It is not safe
// for concurrent use.
type Controller struct {
	pub    Publisher
	opener Opener
	layout Layout
	logger zerolog.Logger

	arena    *Arena
	scroll   float64
	revision int
}

func NewController(pub Publisher, opener Opener, layout Layout, logger zerolog.Logger) *Controller {
	return &Controller{
		pub:    pub,
		opener: opener,
		layout: layout,
		logger: logger.With().Str("component", "document").Logger(),
	}
}

// Load replaces the document. Element ids are reassigned and the scroll
// offset is reset.
func (c *Controller) Load(markup string) error {
	arena, err := Parse(markup, c.layout)
	if err != nil {
		return err
	}
	c.arena = arena
	c.scroll = 0
	c.revision++
	c.logger.Info().
		Int("elements", arena.Len()).
		Int("regions", arena.Regions()).
		Msg("document loaded")
	return nil
}

// Apply replays an event from another participant. Nothing is published.
func (c *Controller) Apply(ev models.Event) error {
	if ev.Target != models.TargetDocument {
		return fmt.Errorf("document: unexpected target %s", ev.Target)
	}
	switch ev.Kind {
	case models.KindScroll:
		pos, _ := ev.ScrollPosition()
		c.scroll = pos
		return nil
	case models.KindCheckboxToggle:
		id, _ := ev.ElementID()
		return c.toggle(id)
	case models.KindSignatureRegionOpen:
		id, _ := ev.ElementID()
		return c.open(id)
	default:
		return fmt.Errorf("document: unexpected %s event", ev.Kind)
	}
}

// Scroll moves the local viewport and mirrors it to the room.
func (c *Controller) Scroll(position float64) {
	c.scroll = position
	c.pub.Publish(models.Scroll(position))
}

// ToggleCheckbox handles a click on element id. Only leaf elements carrying a
// check mark are toggled.
func (c *Controller) ToggleCheckbox(id string) error {
	if c.arena == nil {
		return ErrNoDocument
	}
	n, ok := c.arena.Element(id)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownElement, id)
	}
	if !isLeaf(n) {
		return fmt.Errorf("%w: %q has child elements", ErrNotCheckbox, id)
	}
	if err := c.toggle(id); err != nil {
		return err
	}
	c.pub.Publish(models.CheckboxToggle(id))
	return nil
}

// OpenRegion starts signing region id here and on every other participant.
func (c *Controller) OpenRegion(id string) error {
	if err := c.open(id); err != nil {
		return err
	}
	c.pub.Publish(models.SignatureRegionOpen(id))
	return nil
}

func (c *Controller) toggle(id string) error {
	if c.arena == nil {
		return ErrNoDocument
	}
	n, ok := c.arena.Element(id)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownElement, id)
	}
	if !toggleGlyph(n) {
		return fmt.Errorf("%w: %q has no check mark", ErrNotCheckbox, id)
	}
	c.revision++
	return nil
}

func (c *Controller) open(id string) error {
	if c.arena == nil {
		return ErrNoDocument
	}
	region, _, ok := c.arena.Region(id)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownRegion, id)
	}
	w, h := c.layout.Size(region)
	c.opener.OpenSignature(signature.Request{
		RegionID:        id,
		PlaceholderText: textContent(region),
		RegionWidth:     w,
		RegionHeight:    h,
	})
	return nil
}

// ApplySignature writes a finished signature into its region, replacing any
// earlier one. A result without a usable scale is discarded.
func (c *Controller) ApplySignature(res signature.Result) error {
	if !stroke.Renderable(res.ScaleFactor) {
		return fmt.Errorf("region %s: %w", res.RegionID, stroke.ErrUndefinedScale)
	}
	if c.arena == nil {
		return ErrNoDocument
	}
	region, overlay, ok := c.arena.Region(res.RegionID)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownRegion, res.RegionID)
	}

	// Scale everything before touching the tree so a bad path leaves the
	// region as it was.
	paths := make([]string, 0, len(res.Outlines))
	for i, d := range res.Outlines {
		o, err := stroke.ParsePath(d)
		if err != nil {
			return fmt.Errorf("region %s outline %d: %w", res.RegionID, i, err)
		}
		scaled, err := stroke.Rescale(o, res.ScaleFactor)
		if err != nil {
			return err
		}
		paths = append(paths, scaled.String())
	}

	if overlay == nil {
		overlay = &html.Node{Type: html.ElementNode, Data: "svg", DataAtom: atom.Svg}
		setAttr(overlay, attrSignSVG, res.RegionID)
		region.AppendChild(overlay)
	}
	removeChildren(overlay)
	for _, d := range paths {
		overlay.AppendChild(&html.Node{
			Type: html.ElementNode,
			Data: "path",
			Attr: []html.Attribute{
				{Key: "d", Val: d},
				{Key: "stroke", Val: pathStroke},
				{Key: "stroke-width", Val: pathStrokeWidth},
			},
		})
	}
	setAttr(overlay, attrSigned, strconv.FormatBool(len(paths) > 0))

	c.commit()
	c.logger.Info().
		Str("region", res.RegionID).
		Int("strokes", len(paths)).
		Int("revision", c.revision).
		Msg("signature committed")
	return nil
}

// commit re-addresses the tree after a structural change.
func (c *Controller) commit() {
	c.arena.index()
	c.revision++
}

// Content is the current markup. It is empty before the first Load.
func (c *Controller) Content() string {
	if c.arena == nil {
		return ""
	}
	out, err := c.arena.Render()
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to render document")
		return ""
	}
	return out
}

func (c *Controller) ScrollOffset() float64 { return c.scroll }

// Revision counts loads and content changes.
func (c *Controller) Revision() int { return c.revision }

// Fingerprint is a content address of the current markup. Two participants
// with equal fingerprints hold the same document.
func (c *Controller) Fingerprint() (string, error) {
	sum, err := multihash.Sum([]byte(c.Content()), multihash.SHA2_256, -1)
	if err != nil {
		return "", err
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}

// Text returns the text of element id.
func (c *Controller) Text(id string) (string, bool) {
	if c.arena == nil {
		return "", false
	}
	n, ok := c.arena.Element(id)
	if !ok {
		return "", false
	}
	return textContent(n), true
}

// ElementID returns the id of the first element whose own text contains
// substr, for callers that address elements by what they show.
func (c *Controller) ElementID(substr string) (string, bool) {
	if c.arena == nil {
		return "", false
	}
	for i, n := range c.arena.nodes {
		if isLeaf(n) && strings.Contains(textContent(n), substr) {
			return strconv.Itoa(i), true
		}
	}
	return "", false
}

// Region describes signature region id.
func (c *Controller) Region(id string) (Region, bool) {
	if c.arena == nil {
		return Region{}, false
	}
	region, overlay, ok := c.arena.Region(id)
	if !ok {
		return Region{}, false
	}
	w, h := c.layout.Size(region)
	r := Region{ID: id, Placeholder: textContent(region), Width: w, Height: h}
	if overlay != nil {
		signed, _ := getAttr(overlay, attrSigned)
		r.Signed = signed == "true"
		for p := overlay.FirstChild; p != nil; p = p.NextSibling {
			if d, ok := getAttr(p, "d"); ok {
				r.Paths = append(r.Paths, d)
			}
		}
	}
	return r, true
}

// Regions is the number of signature regions.
func (c *Controller) Regions() int {
	if c.arena == nil {
		return 0
	}
	return c.arena.Regions()
}
