package stroke

import (
	"strconv"
	"strings"
)

// Verb is a path drawing command.
type Verb byte

const (
	MoveTo Verb = 'M'
	LineTo Verb = 'L'
	QuadTo Verb = 'Q'
	Close  Verb = 'Z'
)

// Command is one path element. Ctrl is only meaningful for QuadTo.
type Command struct {
	Verb Verb
	Ctrl Point
	To   Point
}

// Outline is a closed vector path around one pen stroke.
type Outline struct {
	Commands []Command
}

// Empty reports whether the outline draws nothing.
func (o Outline) Empty() bool { return len(o.Commands) == 0 }

// ProduceOutline converts an ordered run of pointer samples into a closed
// outline. Each footprint vertex becomes the control point of a quadratic
// ending halfway to the next vertex, which hides faceting at pointer sample
// rates. No samples yields an empty outline.
func ProduceOutline(samples []Point, penSize float64) Outline {
	return outlineFromPolygon(Footprint(samples, DefaultOptions(penSize)))
}

func outlineFromPolygon(poly []Point) Outline {
	if len(poly) == 0 {
		return Outline{}
	}
	cmds := make([]Command, 0, len(poly)+2)
	cmds = append(cmds, Command{Verb: MoveTo, To: poly[0]})
	for i, p := range poly {
		next := poly[(i+1)%len(poly)]
		cmds = append(cmds, Command{Verb: QuadTo, Ctrl: p, To: p.mid(next)})
	}
	cmds = append(cmds, Command{Verb: Close})
	return Outline{Commands: cmds}
}

// String renders the outline as SVG path data. Repeated verbs are written
// once, matching "M x y Q cx cy x y cx cy x y Z".
func (o Outline) String() string {
	if o.Empty() {
		return ""
	}
	var b strings.Builder
	var prev Verb
	for _, c := range o.Commands {
		if c.Verb != prev || c.Verb == MoveTo || c.Verb == Close {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteByte(byte(c.Verb))
		}
		switch c.Verb {
		case MoveTo, LineTo:
			writeCoords(&b, c.To)
		case QuadTo:
			writeCoords(&b, c.Ctrl, c.To)
		}
		prev = c.Verb
	}
	return b.String()
}

func writeCoords(b *strings.Builder, pts ...Point) {
	for _, p := range pts {
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(p.X, 'f', -1, 64))
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(p.Y, 'f', -1, 64))
	}
}

// Rescale multiplies every coordinate by factor. The command structure is
// kept as is.
func Rescale(o Outline, factor float64) (Outline, error) {
	if !Renderable(factor) {
		return Outline{}, errNonPositive(factor)
	}
	out := Outline{Commands: make([]Command, len(o.Commands))}
	for i, c := range o.Commands {
		c.Ctrl = c.Ctrl.mul(factor)
		c.To = c.To.mul(factor)
		out.Commands[i] = c
	}
	return out, nil
}
