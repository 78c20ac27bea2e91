package document

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	regionClass   = "font_w"
	attrID        = "data-id"
	attrSign      = "sign"
	attrSignSVG   = "sign-svg"
	attrSigned    = "signed"
	uncheckedMark = "□"
	checkedMark   = "☑"
)

// Arena is a parsed document whose elements are addressed by the positional
// index written to their data-id attribute.
type Arena struct {
	root    *html.Node
	nodes   []*html.Node
	regions []*html.Node
}

// Parse builds an arena from markup. Signature regions are registered and
// given an overlay before ids are assigned, so overlays are addressable too.
func Parse(markup string, layout Layout) (*Arena, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		root.AppendChild(n)
	}

	a := &Arena{root: root}
	a.registerRegions(layout)
	a.index()
	return a, nil
}

func (a *Arena) registerRegions(layout Layout) {
	a.regions = a.regions[:0]
	walk(a.root, func(n *html.Node) {
		if !hasClass(n, regionClass) {
			return
		}
		idx := strconv.Itoa(len(a.regions))
		setAttr(n, attrSign, idx)
		a.regions = append(a.regions, n)

		if findElement(n, "svg") != nil {
			return
		}
		w, h := layout.Size(n)
		n.AppendChild(&html.Node{
			Type:     html.ElementNode,
			Data:     "svg",
			DataAtom: atom.Svg,
			Attr: []html.Attribute{
				{Key: attrSignSVG, Val: idx},
				{Key: attrSigned, Val: "false"},
				{Key: "width", Val: formatSize(w)},
				{Key: "height", Val: formatSize(h)},
			},
		})
	})
}

// index assigns data-id in document order. Signature paths inside an
// overlay are not addressable, so ids do not depend on what was drawn.
func (a *Arena) index() {
	a.nodes = a.nodes[:0]
	a.indexChildren(a.root)
}

func (a *Arena) indexChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		setAttr(c, attrID, strconv.Itoa(len(a.nodes)))
		a.nodes = append(a.nodes, c)
		if _, ok := getAttr(c, attrSignSVG); ok {
			walk(c, func(d *html.Node) { removeAttr(d, attrID) })
			continue
		}
		a.indexChildren(c)
	}
}

// Element returns the element with the given data-id.
func (a *Arena) Element(id string) (*html.Node, bool) {
	i, err := strconv.Atoi(id)
	if err != nil || i < 0 || i >= len(a.nodes) {
		return nil, false
	}
	return a.nodes[i], true
}

// Region returns a signature region and its overlay.
func (a *Arena) Region(id string) (region, overlay *html.Node, ok bool) {
	i, err := strconv.Atoi(id)
	if err != nil || i < 0 || i >= len(a.regions) {
		return nil, nil, false
	}
	region = a.regions[i]
	return region, findElement(region, "svg"), true
}

// Len is the number of addressable elements.
func (a *Arena) Len() int { return len(a.nodes) }

// Regions is the number of signature regions.
func (a *Arena) Regions() int { return len(a.regions) }

// Render serializes the document body.
func (a *Arena) Render() (string, error) {
	var buf bytes.Buffer
	for c := a.root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// walk visits element descendants of n in document order.
func walk(n *html.Node, fn func(*html.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			fn(c)
		}
		walk(c, fn)
	}
}

func findElement(n *html.Node, tag string) *html.Node {
	var found *html.Node
	walk(n, func(c *html.Node) {
		if found == nil && c.Data == tag {
			found = c
		}
	})
	return found
}

func removeAttr(n *html.Node, key string) {
	attrs := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		attrs = append(attrs, a)
	}
	n.Attr = attrs
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func hasClass(n *html.Node, class string) bool {
	v, ok := getAttr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// textContent concatenates the text of n, skipping signature overlays.
func textContent(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch {
			case c.Type == html.TextNode:
				b.WriteString(c.Data)
			case c.Type == html.ElementNode && c.Data == "svg":
			default:
				visit(c)
			}
		}
	}
	visit(n)
	return b.String()
}

// isLeaf reports whether n has no element children other than <br>.
func isLeaf(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom != atom.Br {
			return false
		}
	}
	return true
}

// toggleGlyph flips every unchecked mark to checked, or every checked mark
// back when none is unchecked. It reports whether n carried a mark.
func toggleGlyph(n *html.Node) bool {
	text := textContent(n)
	var from, to string
	switch {
	case strings.Contains(text, uncheckedMark):
		from, to = uncheckedMark, checkedMark
	case strings.Contains(text, checkedMark):
		from, to = checkedMark, uncheckedMark
	default:
		return false
	}
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				c.Data = strings.ReplaceAll(c.Data, from, to)
				continue
			}
			visit(c)
		}
	}
	visit(n)
	return true
}

func removeChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
}

func formatSize(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
