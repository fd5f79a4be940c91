// Package scanner runs the descriptor producers over images.
//
// A Scanner owns one barcode backend and, optionally, one face backend. It
// is safe for concurrent use; Session adds face tracking for a sequence of
// frames from one source.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/metascan/internal/barcode"
	"github.com/MeKo-Tech/metascan/internal/facedetect"
	"github.com/MeKo-Tech/metascan/internal/faceid"
	"github.com/MeKo-Tech/metascan/internal/metadata"
)

// Scanner produces metadata objects for images.
type Scanner struct {
	cfg      Config
	codes    barcode.Backend
	faces    facedetect.Backend
	alloc    *faceid.Allocator
	registry *faceid.Registry

	closeOnce sync.Once
}

// Config returns the configuration the scanner was built with.
func (s *Scanner) Config() Config { return s.cfg }

// Allocator returns the face ID source shared by all sessions of s.
func (s *Scanner) Allocator() *faceid.Allocator { return s.alloc }

// FacesEnabled reports whether s runs a face detector.
func (s *Scanner) FacesEnabled() bool { return s.faces != nil }

// ScanImage runs every enabled producer on img and returns the descriptors
// sorted by time, type and position. Faces found here are untracked and get
// fresh IDs.
func (s *Scanner) ScanImage(ctx context.Context, img image.Image, frame metadata.FrameInfo) ([]metadata.Object, error) {
	return s.scan(ctx, img, frame, nil)
}

func (s *Scanner) scan(ctx context.Context, img image.Image, frame metadata.FrameInfo, tracker *facedetect.Tracker) ([]metadata.Object, error) {
	if img == nil {
		return nil, errors.New("scanner: nil image")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if frame.Width <= 0 || frame.Height <= 0 {
		b := img.Bounds()
		frame.Width, frame.Height = b.Dx(), b.Dy()
	}
	if s.cfg.Normalize {
		frame.Normalize = true
	}

	var objs []metadata.Object

	if s.codes != nil {
		results, err := s.codes.Decode(ctx, img, s.cfg.Barcode)
		if err != nil {
			return nil, fmt.Errorf("decode barcodes: %w", err)
		}
		codes, err := barcode.ToDescriptors(results, frame, s.cfg.Barcode)
		if err != nil {
			return nil, fmt.Errorf("build code descriptors: %w", err)
		}
		for _, c := range codes {
			objs = append(objs, c)
		}
	}

	if s.faces != nil {
		dets, err := s.faces.Detect(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("detect faces: %w", err)
		}
		registry := s.registry
		if tracker != nil {
			dets = tracker.Update(dets)
			registry = tracker.Registry()
		}
		faces, err := facedetect.ToDescriptors(dets, frame, registry)
		if err != nil {
			return nil, fmt.Errorf("build face descriptors: %w", err)
		}
		for _, f := range faces {
			objs = append(objs, f)
		}
	}

	metadata.Sort(objs)
	slog.Debug("scanned image", "width", frame.Width, "height", frame.Height, "objects", len(objs))
	return objs, nil
}

// Close releases the backends.
func (s *Scanner) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.faces != nil {
			err = s.faces.Close()
		}
	})
	return err
}

// Session scans consecutive frames of one source, keeping face IDs stable
// while a face stays in view.
type Session struct {
	scanner *Scanner
	tracker *facedetect.Tracker
}

// NewSession starts a tracked session. Sessions track independently but
// draw IDs from the same allocator, so IDs never collide.
func (s *Scanner) NewSession() *Session {
	reg := faceid.NewRegistry(s.alloc)
	return &Session{scanner: s, tracker: facedetect.NewTracker(reg, s.cfg.TrackIoU)}
}

// Scan scans the next frame of the session.
func (ss *Session) Scan(ctx context.Context, img image.Image, frame metadata.FrameInfo) ([]metadata.Object, error) {
	return ss.scanner.scan(ctx, img, frame, ss.tracker)
}

// End retires every face still tracked by the session.
func (ss *Session) End() { ss.tracker.Reset() }
