// Package metadata defines immutable descriptors for features detected in a
// media frame: faces and machine-readable codes.
//
// Descriptors are produced by an analysis backend (see the barcode and
// facedetect packages) and handed to consumers as finished snapshots. Every
// descriptor shares a time, a duration, bounds and a type tag; the variant
// carries the rest. Consumers discriminate with a type switch:
//
//	switch o := obj.(type) {
//	case *metadata.Face:
//	case *metadata.Code:
//	case *metadata.Unknown:
//	}
package metadata

import (
	"github.com/MeKo-Tech/metascan/internal/geometry"
	"github.com/MeKo-Tech/metascan/internal/mediatime"
)

// Object is the common read-only surface of every descriptor.
type Object interface {
	// Time is the media time at which the object was captured; it may be mediatime.Invalid.
	Time() mediatime.Time
	// Duration may be mediatime.Invalid.
	Duration() mediatime.Time
	// Bounds is axis-aligned with origin top-left; geometry.ZeroRect means no bounds.
	Bounds() geometry.Rect
	Type() Type

	sealed()
}

// Common holds the fields shared by all descriptors. It is only used as
// constructor input; descriptors never expose it for mutation.
type Common struct {
	Time     mediatime.Time
	Duration mediatime.Time
	Bounds   geometry.Rect
}

type common struct {
	typ      Type
	time     mediatime.Time
	duration mediatime.Time
	bounds   geometry.Rect
}

func (c *common) Time() mediatime.Time     { return c.time }
func (c *common) Duration() mediatime.Time { return c.duration }
func (c *common) Bounds() geometry.Rect    { return c.bounds }
func (c *common) Type() Type               { return c.typ }
func (c *common) sealed()                  {}

// params returns the shared fields as constructor input.
func (c *common) params() Common {
	return Common{Time: c.time, Duration: c.duration, Bounds: c.bounds}
}

func newCommon(typ Type, in Common) (common, error) {
	if !in.Bounds.IsFinite() {
		return common{}, invalidf("bounds %v are not finite", in.Bounds)
	}
	if in.Bounds.Width < 0 || in.Bounds.Height < 0 {
		return common{}, invalidf("bounds %v have negative size", in.Bounds)
	}
	if in.Duration.IsValid() && in.Duration.Value() < 0 {
		return common{}, invalidf("duration %v is negative", in.Duration)
	}
	return common{typ: typ, time: in.Time, duration: in.Duration, bounds: in.Bounds}, nil
}

// Unknown carries an object whose type tag this package does not recognise.
// It keeps the shared fields so that newer producers can be consumed safely.
type Unknown struct {
	common
}

// NewUnknown builds a descriptor for an unrecognised tag. Known tags are
// rejected; use NewFace or NewCode for those.
func NewUnknown(tag Type, in Common) (*Unknown, error) {
	if tag == "" {
		return nil, invalidf("empty type tag")
	}
	if tag.IsKnown() {
		return nil, invalidf("type %q is known; use the concrete constructor", tag)
	}
	c, err := newCommon(tag, in)
	if err != nil {
		return nil, err
	}
	return &Unknown{common: c}, nil
}
