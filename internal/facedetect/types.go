// Package facedetect adapts face detection engines into face descriptors.
//
// The default build has no engine; build with -tags facedetect_gocv to use
// the OpenCV Haar cascade backend.
package facedetect

import (
	"context"
	"errors"
	"image"

	"github.com/MeKo-Tech/metascan/internal/geometry"
	"github.com/MeKo-Tech/metascan/internal/metadata"
)

// ErrNoBackend is returned by New when the binary was built without a face engine.
var ErrNoBackend = errors.New("facedetect: no detector backend compiled in (build with -tags facedetect_gocv)")

// Detection is a face found by an engine, in pixel coordinates.
type Detection struct {
	Bounds geometry.Rect
	// Confidence is engine specific; cascades report the number of merged neighbours.
	Confidence float64
	Roll       metadata.Angle
	Yaw        metadata.Angle
	// TrackID identifies the same face across frames. Empty means untracked.
	TrackID string
}

// Backend is a pluggable face detector.
type Backend interface {
	Detect(ctx context.Context, img image.Image) ([]Detection, error)
	Close() error
}

// Options configures a detector backend.
type Options struct {
	// CascadePath is the Haar cascade XML file used by the OpenCV backend.
	CascadePath string
	// ScaleFactor is the image pyramid step, greater than 1.
	ScaleFactor float64
	// MinNeighbors is how many overlapping hits a face needs.
	MinNeighbors int
	// MinSize is the smallest face side in pixels.
	MinSize int
}

// DefaultOptions returns the usual cascade parameters.
func DefaultOptions() Options {
	return Options{
		CascadePath:  "haarcascade_frontalface_default.xml",
		ScaleFactor:  1.1,
		MinNeighbors: 3,
		MinSize:      24,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.CascadePath == "" {
		o.CascadePath = d.CascadePath
	}
	if o.ScaleFactor <= 1 {
		o.ScaleFactor = d.ScaleFactor
	}
	if o.MinNeighbors <= 0 {
		o.MinNeighbors = d.MinNeighbors
	}
	if o.MinSize <= 0 {
		o.MinSize = d.MinSize
	}
	return o
}
