package document

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Layout reports the rendered pixel size of an element. Rendering is out of
// process, so the size has to come from somewhere other than a live tree.
type Layout interface {
	Size(n *html.Node) (width, height float64)
}

// AttrLayout reads sizes from width/height attributes or an inline style,
// falling back to fixed defaults.
type AttrLayout struct {
	DefaultWidth  float64
	DefaultHeight float64
}

// DefaultLayout sizes unmarked regions like a short signature line.
func DefaultLayout() AttrLayout {
	return AttrLayout{DefaultWidth: 150, DefaultHeight: 50}
}

func (l AttrLayout) Size(n *html.Node) (float64, float64) {
	w, h := l.DefaultWidth, l.DefaultHeight
	if style, ok := getAttr(n, "style"); ok {
		if v, ok := styleLength(style, "width"); ok {
			w = v
		}
		if v, ok := styleLength(style, "height"); ok {
			h = v
		}
	}
	if v, ok := getAttr(n, "width"); ok {
		if f, ok := parseLength(v); ok {
			w = f
		}
	}
	if v, ok := getAttr(n, "height"); ok {
		if f, ok := parseLength(v); ok {
			h = f
		}
	}
	return w, h
}

func styleLength(style, prop string) (float64, bool) {
	for _, decl := range strings.Split(style, ";") {
		name, value, found := strings.Cut(decl, ":")
		if !found || strings.TrimSpace(strings.ToLower(name)) != prop {
			continue
		}
		return parseLength(value)
	}
	return 0, false
}

// parseLength accepts plain numbers and px lengths.
func parseLength(v string) (float64, bool) {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return f, true
}
