package barcode

import (
	"context"
	"errors"
	"image"

	"github.com/MeKo-Tech/metascan/internal/geometry"
	"github.com/MeKo-Tech/metascan/internal/metadata"
)

// ErrNoBackend is returned when no decoder backend is configured.
var ErrNoBackend = errors.New("barcode: no decoder backend configured")

// Options controls backend decoding and descriptor conversion.
type Options struct {
	// Formats constrains the set of symbologies to search. Empty means all.
	Formats []metadata.Type

	// TryHarder enables more exhaustive search (slower but more robust).
	TryHarder bool

	// TryMirrored retries on a horizontally flipped image when nothing decodes.
	TryMirrored bool

	// MaxSymbols caps how many symbols are reported per image.
	MaxSymbols int

	// ROI optionally restricts decoding to a sub-rectangle of the image.
	// If zero-sized or out of bounds, backends should ignore it.
	ROI image.Rectangle

	// Code39Mod43 reports Code 39 symbols carrying a valid mod 43 check
	// character as TypeCode39Mod43Code, with the check character stripped.
	Code39Mod43 bool

	// Charset is a hint (IANA name) for payloads that are not UTF-8.
	Charset string

	// LinearHalfHeight is the half height in pixels given to linear symbols,
	// whose engines only report a scanline. Zero derives it from the width.
	LinearHalfHeight float64
}

// DefaultOptions returns options searching every supported symbology.
func DefaultOptions() Options {
	return Options{
		TryHarder:   true,
		TryMirrored: false,
		MaxSymbols:  8,
		Code39Mod43: false,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxSymbols <= 0 {
		o.MaxSymbols = DefaultOptions().MaxSymbols
	}
	return o
}

// wants reports whether typ is requested by o.
func (o Options) wants(typ metadata.Type) bool {
	if len(o.Formats) == 0 {
		return true
	}
	for _, f := range o.Formats {
		if f == typ {
			return true
		}
	}
	return false
}

// Result is a decoded symbol as reported by the engine, in pixel coordinates
// of the input image.
type Result struct {
	Type metadata.Type
	// Text is the engine's textual rendering of the payload.
	Text string
	// Raw holds the error-corrected payload bytes when the engine exposes them.
	Raw []byte
	// Points are the engine's key points in engine order.
	Points []geometry.Point
	// Mirrored is set when the symbol was only readable after a horizontal flip.
	Mirrored bool
}

// Backend is a pluggable barcode decoder implementation.
type Backend interface {
	Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error)
}

// NewBackend returns the default gozxing-backed implementation.
func NewBackend() Backend { return &gozxingBackend{} }
