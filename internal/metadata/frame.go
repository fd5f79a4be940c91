package metadata

import (
	"github.com/MeKo-Tech/metascan/internal/geometry"
	"github.com/MeKo-Tech/metascan/internal/mediatime"
)

// FrameInfo describes the picture a producer analysed. Producers stamp its
// time and duration on every descriptor and use its size for normalization.
type FrameInfo struct {
	Time     mediatime.Time
	Duration mediatime.Time
	Width    int
	Height   int
	// Normalize expresses bounds and corners as scalars in [0, 1].
	Normalize bool
}

// Place converts pixel-space geometry into the frame's output space.
func (f FrameInfo) Place(bounds geometry.Rect, pts []geometry.Point) (geometry.Rect, []geometry.Point, error) {
	if !f.Normalize {
		return bounds, pts, nil
	}
	w, h := float64(f.Width), float64(f.Height)
	nb, err := bounds.Normalize(w, h)
	if err != nil {
		return geometry.Rect{}, nil, err
	}
	if len(pts) == 0 {
		return nb, nil, nil
	}
	np, err := geometry.NormalizePoints(pts, w, h)
	if err != nil {
		return geometry.Rect{}, nil, err
	}
	return nb, np, nil
}

// Common returns the shared descriptor fields for an object with the given bounds.
func (f FrameInfo) Common(bounds geometry.Rect) Common {
	return Common{Time: f.Time, Duration: f.Duration, Bounds: bounds}
}
