// Package preview rasterizes signatures so they can be checked without a
// browser.
package preview

import (
	"errors"
	"fmt"
	"io"

	"github.com/gogpu/gg"
	"github.com/mossy-p/docsync/internal/signature"
	"github.com/mossy-p/docsync/internal/stroke"
)

var ErrEmptyCanvas = errors.New("preview: canvas must have positive size")

// Render draws res at its target scale onto a white width x height canvas
// and writes it as PNG.
func Render(w io.Writer, res signature.Result, width, height int) error {
	if width <= 0 || height <= 0 {
		return ErrEmptyCanvas
	}
	if !stroke.Renderable(res.ScaleFactor) {
		return fmt.Errorf("region %s: %w", res.RegionID, stroke.ErrUndefinedScale)
	}

	dc := gg.NewContext(width, height)
	defer dc.Close()
	dc.ClearWithColor(gg.White)
	dc.SetRGB(0, 0, 0)

	for i, d := range res.Outlines {
		o, err := stroke.ParsePath(d)
		if err != nil {
			return fmt.Errorf("outline %d: %w", i, err)
		}
		scaled, err := stroke.Rescale(o, res.ScaleFactor)
		if err != nil {
			return err
		}
		if err := fill(dc, scaled); err != nil {
			return fmt.Errorf("outline %d: %w", i, err)
		}
	}
	return dc.EncodePNG(w)
}

func fill(dc *gg.Context, o stroke.Outline) error {
	if o.Empty() {
		return nil
	}
	for _, c := range o.Commands {
		switch c.Verb {
		case stroke.MoveTo:
			dc.MoveTo(c.To.X, c.To.Y)
		case stroke.LineTo:
			dc.LineTo(c.To.X, c.To.Y)
		case stroke.QuadTo:
			dc.QuadraticTo(c.Ctrl.X, c.Ctrl.Y, c.To.X, c.To.Y)
		case stroke.Close:
			dc.ClosePath()
		}
	}
	return dc.Fill()
}
