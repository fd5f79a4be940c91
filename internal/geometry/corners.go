package geometry

import (
	"math"
	"sort"
)

// Winding is the visual turning direction of a polygon as seen on screen.
type Winding int

const (
	Degenerate Winding = iota
	CounterClockwise
	Clockwise
)

func (w Winding) String() string {
	switch w {
	case CounterClockwise:
		return "counter-clockwise"
	case Clockwise:
		return "clockwise"
	default:
		return "degenerate"
	}
}

// areaEpsilon below which a polygon is treated as having no area.
const areaEpsilon = 1e-12

// SignedArea returns the shoelace area of pts in y-down coordinates.
// Visually counter-clockwise polygons have negative area.
func SignedArea(pts []Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum float64
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return sum / 2
}

// WindingOf reports the visual winding of pts.
func WindingOf(pts []Point) Winding {
	a := SignedArea(pts)
	switch {
	case a < -areaEpsilon:
		return CounterClockwise
	case a > areaEpsilon:
		return Clockwise
	default:
		return Degenerate
	}
}

// ExpectedWinding is the corner winding a code descriptor must have:
// counter-clockwise in canonical orientation, clockwise when mirrored.
func ExpectedWinding(mirrored bool) Winding {
	if mirrored {
		return Clockwise
	}
	return CounterClockwise
}

// OrderCorners returns a copy of pts arranged for a code descriptor whose
// canonical orientation is upright: counter-clockwise from the corner nearest
// the top-left. When mirrored is set the sequence is clockwise and starts at
// the corner nearest the top-right, which is where the canonical top-left
// lands after a horizontal flip.
func OrderCorners(pts []Point, mirrored bool) []Point {
	out := append([]Point(nil), pts...)
	if len(out) < 3 {
		return out
	}
	if mirrored {
		reflectX(out)
	}

	var c Point
	for _, p := range out {
		c = c.Add(p)
	}
	c = c.Scale(1 / float64(len(out)))

	// atan2 grows clockwise on screen in y-down space; descending is counter-clockwise.
	sort.SliceStable(out, func(i, j int) bool {
		ai := math.Atan2(out[i].Y-c.Y, out[i].X-c.X)
		aj := math.Atan2(out[j].Y-c.Y, out[j].X-c.X)
		return ai > aj
	})

	start := 0
	for i, p := range out {
		s, best := p.X+p.Y, out[start].X+out[start].Y
		if s < best || (s == best && p.Y < out[start].Y) {
			start = i
		}
	}
	rotated := make([]Point, 0, len(out))
	rotated = append(rotated, out[start:]...)
	rotated = append(rotated, out[:start]...)

	if mirrored {
		reflectX(rotated)
	}
	return rotated
}

func reflectX(pts []Point) {
	for i := range pts {
		pts[i].X = -pts[i].X
	}
}

// CompleteParallelogram infers the corner opposite b given the two corners
// adjacent to it, as needed for finder-pattern outputs that report only three
// points.
func CompleteParallelogram(a, b, c Point) Point {
	return a.Add(c).Sub(b)
}

// ExpandSegment turns the scanline p-q of a linear symbol into a quadrilateral
// of the given half height. It returns nil when p and q coincide.
func ExpandSegment(p, q Point, halfHeight float64) []Point {
	d := q.Sub(p)
	length := math.Hypot(d.X, d.Y)
	if length == 0 || halfHeight <= 0 {
		return nil
	}
	n := Point{X: -d.Y / length, Y: d.X / length}.Scale(halfHeight)
	return []Point{p.Sub(n), p.Add(n), q.Add(n), q.Sub(n)}
}
