package scanner

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/MeKo-Tech/metascan/internal/barcode"
	"github.com/MeKo-Tech/metascan/internal/facedetect"
	"github.com/MeKo-Tech/metascan/internal/faceid"
	"github.com/MeKo-Tech/metascan/internal/metadata"
)

// Config holds configuration for a Scanner and its producers.
type Config struct {
	// Types restricts which descriptor types are produced. Empty means all.
	Types     []metadata.Type
	Normalize bool
	Barcode   barcode.Options
	Faces     bool
	Face      facedetect.Options
	// TrackIoU is the overlap that links faces across frames of a session.
	TrackIoU float64
	// FaceIDStart resumes face IDs after a previous run.
	FaceIDStart int64
	Parallel    ParallelConfig
}

// DefaultConfig returns a config decoding every code type without face detection.
func DefaultConfig() Config {
	return Config{
		Barcode:  barcode.DefaultOptions(),
		Face:     facedetect.DefaultOptions(),
		TrackIoU: facedetect.DefaultMinIoU,
		Parallel: DefaultParallelConfig(),
	}
}

// Builder constructs a Scanner with fluent configuration.
type Builder struct {
	cfg         Config
	codeBackend barcode.Backend
	faceBackend facedetect.Backend
}

// NewBuilder creates a new scanner builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithTypes restricts the produced descriptor types.
func (b *Builder) WithTypes(types ...metadata.Type) *Builder {
	b.cfg.Types = append([]metadata.Type(nil), types...)
	return b
}

// WithNormalize toggles normalized bounds and corners.
func (b *Builder) WithNormalize(enabled bool) *Builder {
	b.cfg.Normalize = enabled
	return b
}

// WithMirrored toggles the mirrored retry for codes.
func (b *Builder) WithMirrored(enabled bool) *Builder {
	b.cfg.Barcode.TryMirrored = enabled
	return b
}

// WithTryHarder toggles exhaustive code search.
func (b *Builder) WithTryHarder(enabled bool) *Builder {
	b.cfg.Barcode.TryHarder = enabled
	return b
}

// WithCode39Mod43 reports checked Code 39 symbols as their own type.
func (b *Builder) WithCode39Mod43(enabled bool) *Builder {
	b.cfg.Barcode.Code39Mod43 = enabled
	return b
}

// WithMaxSymbols caps codes per image.
func (b *Builder) WithMaxSymbols(n int) *Builder {
	if n > 0 {
		b.cfg.Barcode.MaxSymbols = n
	}
	return b
}

// WithCharset sets the charset hint for non UTF-8 payloads.
func (b *Builder) WithCharset(name string) *Builder {
	b.cfg.Barcode.Charset = name
	return b
}

// WithFaces toggles face detection.
func (b *Builder) WithFaces(enabled bool) *Builder {
	b.cfg.Faces = enabled
	return b
}

// WithFaceCascade sets the Haar cascade file for face detection.
func (b *Builder) WithFaceCascade(path string) *Builder {
	if path != "" {
		b.cfg.Face.CascadePath = path
	}
	return b
}

// WithFaceIDStart resumes face IDs after start.
func (b *Builder) WithFaceIDStart(start int64) *Builder {
	b.cfg.FaceIDStart = start
	return b
}

// WithParallelWorkers sets the number of parallel workers.
func (b *Builder) WithParallelWorkers(workers int) *Builder {
	if workers > 0 {
		b.cfg.Parallel.MaxWorkers = workers
	}
	return b
}

// WithProgressCallback sets the progress callback for file scans.
func (b *Builder) WithProgressCallback(callback ProgressCallback) *Builder {
	b.cfg.Parallel.ProgressCallback = callback
	return b
}

// WithBarcodeBackend replaces the default gozxing backend.
func (b *Builder) WithBarcodeBackend(be barcode.Backend) *Builder {
	b.codeBackend = be
	return b
}

// WithFaceBackend supplies a face backend instead of building one from
// the config. It implies WithFaces(true).
func (b *Builder) WithFaceBackend(be facedetect.Backend) *Builder {
	b.faceBackend = be
	b.cfg.Faces = be != nil
	return b
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// Config returns a copy of the current builder configuration.
func (b *Builder) Config() Config { return b.cfg }

// Validate checks the configuration for obvious errors.
func (b *Builder) Validate() error {
	for _, t := range b.cfg.Types {
		if !t.IsKnown() {
			return fmt.Errorf("unknown descriptor type %q: %w", t, metadata.ErrUnknownType)
		}
	}
	if b.cfg.FaceIDStart < 0 {
		return errors.New("face ID start must be non-negative")
	}
	if b.cfg.Parallel.MaxWorkers < 0 {
		return errors.New("parallel workers must be non-negative")
	}
	if b.cfg.TrackIoU < 0 || b.cfg.TrackIoU > 1 {
		return fmt.Errorf("track IoU %v must be within [0, 1]", b.cfg.TrackIoU)
	}
	return nil
}

// Build validates the configuration and creates the scanner.
func (b *Builder) Build() (*Scanner, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	cfg := b.cfg
	if cfg.Parallel.MaxWorkers == 0 {
		cfg.Parallel.MaxWorkers = runtime.NumCPU()
	}

	wantCodes, wantFaces := splitTypes(cfg.Types)
	if len(cfg.Types) > 0 {
		cfg.Barcode.Formats = wantCodes
	}

	alloc := faceid.NewAllocator(cfg.FaceIDStart)
	s := &Scanner{cfg: cfg, alloc: alloc, registry: faceid.NewRegistry(alloc)}

	if len(cfg.Types) == 0 || len(wantCodes) > 0 {
		s.codes = b.codeBackend
		if s.codes == nil {
			s.codes = barcode.NewBackend()
		}
	}

	if cfg.Faces && (len(cfg.Types) == 0 || wantFaces) {
		s.faces = b.faceBackend
		if s.faces == nil {
			fb, err := facedetect.New(cfg.Face)
			if err != nil {
				return nil, fmt.Errorf("init face detector: %w", err)
			}
			s.faces = fb
		}
	}

	if s.codes == nil && s.faces == nil {
		return nil, errors.New("no producer enabled for the requested types")
	}
	return s, nil
}

func splitTypes(types []metadata.Type) (codes []metadata.Type, faces bool) {
	for _, t := range types {
		switch t.Kind() {
		case metadata.KindFace:
			faces = true
		case metadata.KindMachineReadableCode:
			codes = append(codes, t)
		}
	}
	return codes, faces
}
