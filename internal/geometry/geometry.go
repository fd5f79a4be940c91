// Package geometry holds the 2-D primitives shared by metadata descriptors.
//
// Coordinates have their origin at the top-left corner of the picture and y
// grows downwards. Values may be pixels or, after Normalize, scalars in [0, 1].
package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrEmptyFrame is returned when normalizing against a frame with no area.
var ErrEmptyFrame = errors.New("geometry: frame has no area")

// Point is a location in picture coordinates.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Scale returns p*k.
func (p Point) Scale(k float64) Point { return Point{X: p.X * k, Y: p.Y * k} }

// IsFinite reports whether both coordinates are finite numbers.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Normalize maps p from pixel space of a frameW x frameH picture into [0, 1].
func (p Point) Normalize(frameW, frameH float64) (Point, error) {
	if frameW <= 0 || frameH <= 0 {
		return Point{}, ErrEmptyFrame
	}
	return Point{X: p.X / frameW, Y: p.Y / frameH}, nil
}

func (p Point) String() string { return fmt.Sprintf("(%g,%g)", p.X, p.Y) }

// Rect is an axis-aligned rectangle. The all-zero Rect means "no bounds".
type Rect struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// ZeroRect signals that a descriptor carries no bounds.
var ZeroRect = Rect{}

// IsZero reports whether r is the "no bounds" rectangle.
func (r Rect) IsZero() bool { return r == ZeroRect }

// MaxX returns the right edge.
func (r Rect) MaxX() float64 { return r.X + r.Width }

// MaxY returns the bottom edge.
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// IsFinite reports whether every field is a finite number.
func (r Rect) IsFinite() bool {
	return Pt(r.X, r.Y).IsFinite() && Pt(r.Width, r.Height).IsFinite()
}

// Contains reports whether p lies inside r, widened by tol on each side.
func (r Rect) Contains(p Point, tol float64) bool {
	return p.X >= r.X-tol && p.X <= r.MaxX()+tol && p.Y >= r.Y-tol && p.Y <= r.MaxY()+tol
}

// Normalize maps r from pixel space into [0, 1]. ZeroRect stays ZeroRect.
func (r Rect) Normalize(frameW, frameH float64) (Rect, error) {
	if frameW <= 0 || frameH <= 0 {
		return Rect{}, ErrEmptyFrame
	}
	if r.IsZero() {
		return r, nil
	}
	return Rect{X: r.X / frameW, Y: r.Y / frameH, Width: r.Width / frameW, Height: r.Height / frameH}, nil
}

// IsNormalized reports whether r lies within the unit square.
func (r Rect) IsNormalized() bool {
	const eps = 1e-9
	return r.X >= -eps && r.Y >= -eps && r.MaxX() <= 1+eps && r.MaxY() <= 1+eps
}

func (r Rect) String() string {
	return fmt.Sprintf("[%g,%g %gx%g]", r.X, r.Y, r.Width, r.Height)
}

// BoundingRect returns the smallest Rect containing pts, or ZeroRect if pts is empty.
func BoundingRect(pts []Point) Rect {
	if len(pts) == 0 {
		return ZeroRect
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// NormalizePoints maps every point of pts into [0, 1].
func NormalizePoints(pts []Point, frameW, frameH float64) ([]Point, error) {
	out := make([]Point, len(pts))
	for i, p := range pts {
		n, err := p.Normalize(frameW, frameH)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
