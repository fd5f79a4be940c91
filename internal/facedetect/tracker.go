package facedetect

import (
	"sync"

	"github.com/MeKo-Tech/metascan/internal/faceid"
	"github.com/MeKo-Tech/metascan/internal/geometry"
	"github.com/google/uuid"
)

// DefaultMinIoU is the overlap a detection needs with a face from the
// previous frame to be considered the same face.
const DefaultMinIoU = 0.3

type track struct {
	key    string
	bounds geometry.Rect
}

// Tracker links detections across consecutive frames of one source so that
// a face keeps its ID while it stays in view. Faces not matched in a frame
// are retired from the registry and get a fresh ID if they come back.
type Tracker struct {
	mu       sync.Mutex
	registry *faceid.Registry
	minIoU   float64
	tracks   []track
}

// NewTracker returns a tracker assigning IDs from registry.
func NewTracker(registry *faceid.Registry, minIoU float64) *Tracker {
	if registry == nil {
		registry = faceid.NewRegistry(nil)
	}
	if minIoU <= 0 || minIoU > 1 {
		minIoU = DefaultMinIoU
	}
	return &Tracker{registry: registry, minIoU: minIoU}
}

// Registry returns the registry the tracker assigns IDs from.
func (t *Tracker) Registry() *faceid.Registry { return t.registry }

// Update sets TrackID on each detection of the next frame, matching greedily
// by overlap with the previous frame.
func (t *Tracker) Update(dets []Detection) []Detection {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := append([]Detection(nil), dets...)
	used := make([]bool, len(t.tracks))
	next := make([]track, 0, len(out))
	seen := make(map[string]struct{}, len(out))

	for i := range out {
		best, bestIoU := -1, t.minIoU
		for j, tr := range t.tracks {
			if used[j] {
				continue
			}
			if v := IoU(out[i].Bounds, tr.bounds); v >= bestIoU {
				best, bestIoU = j, v
			}
		}
		key := uuid.NewString()
		if best >= 0 {
			used[best] = true
			key = t.tracks[best].key
		}
		out[i].TrackID = key
		seen[key] = struct{}{}
		next = append(next, track{key: key, bounds: out[i].Bounds})
	}

	t.registry.Sweep(seen)
	t.tracks = next
	return out
}

// Reset forgets every track, as at a scene cut.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.registry.Sweep(nil)
	t.tracks = nil
}

// IoU returns the intersection over union of two rectangles.
func IoU(a, b geometry.Rect) float64 {
	x0, y0 := max(a.X, b.X), max(a.Y, b.Y)
	x1, y1 := min(a.MaxX(), b.MaxX()), min(a.MaxY(), b.MaxY())
	if x1 <= x0 || y1 <= y0 {
		return 0
	}
	inter := (x1 - x0) * (y1 - y0)
	union := a.Width*a.Height + b.Width*b.Height - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
