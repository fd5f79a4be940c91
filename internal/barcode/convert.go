package barcode

import (
	"errors"
	"log/slog"
	"math"

	"github.com/MeKo-Tech/metascan/internal/geometry"
	"github.com/MeKo-Tech/metascan/internal/metadata"
)

// ToDescriptors converts engine results into code descriptors stamped with
// the frame's time. Results whose geometry cannot form a valid descriptor
// are logged and skipped; a frame without area fails the whole call.
func ToDescriptors(results []Result, frame metadata.FrameInfo, opts Options) ([]*metadata.Code, error) {
	out := make([]*metadata.Code, 0, len(results))
	for _, r := range results {
		code, err := toDescriptor(r, frame, opts)
		if errors.Is(err, geometry.ErrEmptyFrame) {
			return nil, err
		}
		if err != nil {
			slog.Warn("barcode: dropping result", "type", r.Type, "points", len(r.Points), "error", err)
			continue
		}
		out = append(out, code)
	}
	return out, nil
}

func toDescriptor(r Result, frame metadata.FrameInfo, opts Options) (*metadata.Code, error) {
	corners := Corners(r, opts.LinearHalfHeight)
	mirrored := r.Mirrored
	switch {
	case hasFinderPatterns(r):
		// The walk is already canonical. Points from the flipped retry are
		// mapped back into the frame, so a clockwise walk means a mirrored symbol.
		if w := geometry.WindingOf(corners); w != geometry.Degenerate {
			mirrored = w == geometry.Clockwise
		}
	case len(corners) >= metadata.MinCorners:
		corners = geometry.OrderCorners(corners, r.Mirrored)
	}
	bounds := geometry.BoundingRect(corners)
	bounds, corners, err := frame.Place(bounds, corners)
	if err != nil {
		return nil, err
	}

	p := metadata.CodeParams{
		Common:   frame.Common(bounds),
		Type:     r.Type,
		Corners:  corners,
		Payload:  r.Raw,
		Mirrored: mirrored,
	}
	if s, ok := textValue(r, opts.Charset); ok {
		p.StringValue = metadata.StringPtr(s)
	}
	return metadata.NewCode(p)
}

// Corners completes the engine's key points into a quadrilateral in pixel
// space. Finder-pattern results come back in the symbol's canonical order,
// starting at its top-left corner: top-left, bottom-left, bottom-right,
// top-right. Other results are unordered. It is nil when the points
// describe no area.
func Corners(r Result, linearHalfHeight float64) []geometry.Point {
	pts := r.Points
	switch {
	case len(pts) == 2:
		p, q := pts[0], pts[1]
		h := linearHalfHeight
		if h <= 0 {
			d := q.Sub(p)
			h = math.Max(2, 0.15*math.Hypot(d.X, d.Y))
		}
		return geometry.ExpandSegment(p, q, h)
	case len(pts) == 3:
		// finder patterns: bottom-left, top-left, top-right
		return []geometry.Point{pts[1], pts[0], geometry.CompleteParallelogram(pts[0], pts[1], pts[2]), pts[2]}
	case len(pts) == 4 && r.Type == metadata.TypeQRCode:
		// the fourth QR point is an alignment pattern, not a corner
		return Corners(Result{Type: r.Type, Points: pts[:3]}, linearHalfHeight)
	case len(pts) == 4:
		return append([]geometry.Point(nil), pts...)
	case len(pts) > 4:
		return extremePoints(pts)
	default:
		return nil
	}
}

// hasFinderPatterns reports whether the engine located r by its finder
// patterns, which fix the symbol's own orientation.
func hasFinderPatterns(r Result) bool {
	n := len(r.Points)
	return n == 3 || (n == 4 && r.Type == metadata.TypeQRCode)
}

// extremePoints reduces a point cloud to the four points extreme along the
// diagonals, falling back to the bounding box when they are not distinct.
func extremePoints(pts []geometry.Point) []geometry.Point {
	tl, br, tr, bl := pts[0], pts[0], pts[0], pts[0]
	for _, p := range pts[1:] {
		if p.X+p.Y < tl.X+tl.Y {
			tl = p
		}
		if p.X+p.Y > br.X+br.Y {
			br = p
		}
		if p.X-p.Y > tr.X-tr.Y {
			tr = p
		}
		if p.X-p.Y < bl.X-bl.Y {
			bl = p
		}
	}
	quad := []geometry.Point{tl, bl, br, tr}
	if geometry.WindingOf(quad) != geometry.Degenerate && distinct(quad) {
		return quad
	}
	b := geometry.BoundingRect(pts)
	return []geometry.Point{
		geometry.Pt(b.X, b.Y),
		geometry.Pt(b.X, b.MaxY()),
		geometry.Pt(b.MaxX(), b.MaxY()),
		geometry.Pt(b.MaxX(), b.Y),
	}
}

func distinct(pts []geometry.Point) bool {
	for i := range pts {
		for j := i + 1; j < len(pts); j++ {
			if pts[i] == pts[j] {
				return false
			}
		}
	}
	return true
}
