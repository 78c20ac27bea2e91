package stroke

import "math"

// Point is a 2D coordinate. Pointer samples and path vertices share it.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (a Point) add(b Point) Point            { return Point{a.X + b.X, a.Y + b.Y} }
func (a Point) sub(b Point) Point            { return Point{a.X - b.X, a.Y - b.Y} }
func (a Point) mul(s float64) Point          { return Point{a.X * s, a.Y * s} }
func (a Point) neg() Point                   { return Point{-a.X, -a.Y} }
func (a Point) dot(b Point) float64          { return a.X*b.X + a.Y*b.Y }
func (a Point) length() float64              { return math.Hypot(a.X, a.Y) }
func (a Point) dist(b Point) float64         { return a.sub(b).length() }
func (a Point) mid(b Point) Point            { return Point{(a.X + b.X) / 2, (a.Y + b.Y) / 2} }
func (a Point) prj(b Point, c float64) Point { return a.add(b.mul(c)) }

// per is the perpendicular (rotated a quarter turn clockwise).
func (a Point) per() Point { return Point{a.Y, -a.X} }

func (a Point) uni() Point {
	l := a.length()
	if l == 0 {
		return Point{}
	}
	return Point{a.X / l, a.Y / l}
}

func (a Point) dist2(b Point) float64 {
	d := a.sub(b)
	return d.X*d.X + d.Y*d.Y
}

func (a Point) lrp(b Point, t float64) Point { return a.add(b.sub(a).mul(t)) }

// rotAround rotates a around c by r radians.
func (a Point) rotAround(c Point, r float64) Point {
	s, co := math.Sin(r), math.Cos(r)
	px, py := a.X-c.X, a.Y-c.Y
	return Point{px*co - py*s + c.X, px*s + py*co + c.Y}
}
