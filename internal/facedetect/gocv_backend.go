//go:build facedetect_gocv

package facedetect

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/MeKo-Tech/metascan/internal/geometry"
	"gocv.io/x/gocv"
)

type gocvBackend struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
	opts       Options
}

// New loads the Haar cascade named in opts.
func New(opts Options) (Backend, error) {
	opts = opts.withDefaults()
	if _, err := os.Stat(opts.CascadePath); err != nil {
		return nil, fmt.Errorf("cascade file not found: %w", err)
	}
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(opts.CascadePath) {
		_ = classifier.Close()
		return nil, fmt.Errorf("failed to load cascade %s", opts.CascadePath)
	}
	return &gocvBackend{classifier: classifier, opts: opts}, nil
}

// Available reports whether a face engine is compiled in.
func Available() bool { return true }

func (b *gocvBackend) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	if err := gocv.CvtColor(mat, &gray, gocv.ColorRGBToGray); err != nil {
		return nil, fmt.Errorf("failed to convert image to grayscale: %w", err)
	}

	// CascadeClassifier is not safe for concurrent use
	b.mu.Lock()
	rects := b.classifier.DetectMultiScaleWithParams(gray, b.opts.ScaleFactor, b.opts.MinNeighbors, 0,
		image.Pt(b.opts.MinSize, b.opts.MinSize), image.Pt(0, 0))
	b.mu.Unlock()

	origin := img.Bounds().Min
	dets := make([]Detection, 0, len(rects))
	for _, r := range rects {
		r = r.Add(origin)
		dets = append(dets, Detection{
			Bounds: geometry.Rect{
				X: float64(r.Min.X), Y: float64(r.Min.Y),
				Width: float64(r.Dx()), Height: float64(r.Dy()),
			},
		})
	}
	return dets, nil
}

func (b *gocvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.classifier.Close()
}
