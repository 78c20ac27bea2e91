package stroke

import "math"

const (
	// pressureRate controls how fast simulated pressure follows pen speed.
	pressureRate = 0.275
	// fixedPi is nudged past pi so half-turn caps close without a seam.
	fixedPi = math.Pi + 0.0001

	defaultPressure      = 0.5
	defaultStartPressure = 0.25

	cornerSteps = 13
	endCapSteps = 29
)

// Options parameterize the footprint of a stroke.
type Options struct {
	Size       float64
	Thinning   float64
	Smoothing  float64
	Streamline float64
}

// DefaultOptions returns the pen used by signature capture: thinning,
// smoothing and streamline fixed at 0.5.
func DefaultOptions(size float64) Options {
	return Options{Size: size, Thinning: 0.5, Smoothing: 0.5, Streamline: 0.5}
}

type strokePoint struct {
	point         Point
	pressure      float64
	vector        Point
	distance      float64
	runningLength float64
}

// strokePoints streamlines raw samples into points carrying direction and
// running length along the stroke.
func strokePoints(samples []Point, o Options) []strokePoint {
	if len(samples) == 0 {
		return nil
	}
	t := 0.15 + (1-o.Streamline)*0.85

	pts := make([]Point, len(samples))
	copy(pts, samples)
	switch len(pts) {
	case 1:
		pts = append(pts, pts[0].add(Point{1, 1}))
	case 2:
		last := pts[1]
		pts = pts[:1]
		for i := 1; i < 5; i++ {
			pts = append(pts, pts[0].lrp(last, float64(i)/4))
		}
	}

	out := []strokePoint{{point: pts[0], pressure: defaultStartPressure, vector: Point{1, 1}}}
	prev := out[0]
	reachedMin := false
	running := 0.0
	last := len(pts) - 1

	for i := 1; i < len(pts); i++ {
		pt := prev.point.lrp(pts[i], t)
		if pt == prev.point {
			continue
		}
		d := pt.dist(prev.point)
		running += d
		if i < last && !reachedMin {
			if running < o.Size {
				continue
			}
			reachedMin = true
		}
		prev = strokePoint{
			point:         pt,
			pressure:      defaultPressure,
			vector:        prev.point.sub(pt).uni(),
			distance:      d,
			runningLength: running,
		}
		out = append(out, prev)
	}

	if len(out) > 1 {
		out[0].vector = out[1].vector
	} else {
		out[0].vector = Point{}
	}
	return out
}

func strokeRadius(size, thinning, pressure float64) float64 {
	return size * (0.5 - thinning*(0.5-pressure))
}

func simulatePressure(prev, distance, size float64) float64 {
	sp := math.Min(1, distance/size)
	rp := math.Min(1, 1-sp)
	return math.Min(1, prev+(rp-prev)*(sp*pressureRate))
}

// footprint returns the polygon around the stroke centerline. Vertex order
// is left side, end cap, right side reversed, start cap.
func footprint(points []strokePoint, o Options) []Point {
	if len(points) == 0 || o.Size <= 0 {
		return nil
	}
	n := len(points)
	total := points[n-1].runningLength
	minDistance := math.Pow(o.Size*o.Smoothing, 2)

	prevPressure := points[0].pressure
	for _, p := range points[:min(10, n)] {
		pressure := simulatePressure(prevPressure, p.distance, o.Size)
		prevPressure = (prevPressure + pressure) / 2
	}

	radius := strokeRadius(o.Size, o.Thinning, points[n-1].pressure)
	firstRadius := -1.0
	prevVector := points[0].vector
	pl, pr := points[0].point, points[0].point
	tl, tr := pl, pr
	prevSharp := false

	var left, right []Point
	for i, p := range points {
		if i < n-1 && total-p.runningLength < 3 {
			continue
		}

		pressure := p.pressure
		if o.Thinning != 0 {
			pressure = simulatePressure(prevPressure, p.distance, o.Size)
			radius = strokeRadius(o.Size, o.Thinning, pressure)
		} else {
			radius = o.Size / 2
		}
		if firstRadius < 0 {
			firstRadius = radius
		}
		radius = math.Max(0.01, radius)

		nextVector := p.vector
		nextDpr := 1.0
		if i < n-1 {
			nextVector = points[i+1].vector
			nextDpr = p.vector.dot(nextVector)
		}
		prevDpr := p.vector.dot(prevVector)

		sharp := prevDpr < 0 && !prevSharp
		nextSharp := nextDpr < 0
		if sharp || nextSharp {
			offset := prevVector.per().mul(radius)
			for k := 0; k <= cornerSteps; k++ {
				t := float64(k) / cornerSteps
				tl = p.point.sub(offset).rotAround(p.point, fixedPi*t)
				tr = p.point.add(offset).rotAround(p.point, -fixedPi*t)
				left = append(left, tl)
				right = append(right, tr)
			}
			pl, pr = tl, tr
			if nextSharp {
				prevSharp = true
			}
			continue
		}
		prevSharp = false

		if i == n-1 {
			offset := p.vector.per().mul(radius)
			left = append(left, p.point.sub(offset))
			right = append(right, p.point.add(offset))
			continue
		}

		offset := nextVector.lrp(p.vector, nextDpr).per().mul(radius)
		tl = p.point.sub(offset)
		if i <= 1 || pl.dist2(tl) > minDistance {
			left = append(left, tl)
			pl = tl
		}
		tr = p.point.add(offset)
		if i <= 1 || pr.dist2(tr) > minDistance {
			right = append(right, tr)
			pr = tr
		}
		prevPressure = pressure
		prevVector = p.vector
	}

	first := points[0].point
	last := first.add(Point{1, 1})
	if n > 1 {
		last = points[n-1].point
	}

	if n == 1 {
		r := firstRadius
		if r <= 0 {
			r = radius
		}
		start := first.prj(first.sub(last).per().uni(), -r)
		dot := make([]Point, 0, cornerSteps)
		for k := 1; k <= cornerSteps; k++ {
			dot = append(dot, start.rotAround(first, fixedPi*2*float64(k)/cornerSteps))
		}
		return dot
	}

	startCap := make([]Point, 0, cornerSteps)
	for k := 1; k <= cornerSteps; k++ {
		startCap = append(startCap, right[0].rotAround(first, fixedPi*float64(k)/cornerSteps))
	}

	direction := points[n-1].vector.neg().per()
	start := last.prj(direction, radius)
	endCap := make([]Point, 0, endCapSteps-1)
	for k := 1; k < endCapSteps; k++ {
		endCap = append(endCap, start.rotAround(last, fixedPi*3*float64(k)/endCapSteps))
	}

	out := make([]Point, 0, len(left)+len(endCap)+len(right)+len(startCap))
	out = append(out, left...)
	out = append(out, endCap...)
	for i := len(right) - 1; i >= 0; i-- {
		out = append(out, right[i])
	}
	out = append(out, startCap...)
	return out
}

// Footprint computes the closed polygon enclosing a variable-width stroke
// drawn through samples.
func Footprint(samples []Point, o Options) []Point {
	return footprint(strokePoints(samples, o), o)
}
