package metadata

import (
	"github.com/MeKo-Tech/metascan/internal/geometry"
)

// MinCorners is the smallest corner count a non-empty corner list may have.
const MinCorners = 4

// cornerTolerance allows for rounding between engine corners and bounds.
const cornerTolerance = 1e-6

// CodeParams is the input to NewCode.
type CodeParams struct {
	Common
	Type Type
	// Corners are ordered counter-clockwise from the canonical top-left
	// corner, or clockwise when Mirrored is set.
	Corners []geometry.Point
	// StringValue is nil when the payload cannot be rendered as text.
	StringValue *string
	// Payload holds the error-corrected bytes when the engine exposes them.
	Payload  []byte
	Mirrored bool
}

// Code describes a single machine-readable code.
type Code struct {
	common
	corners     []geometry.Point
	stringValue *string
	payload     []byte
	mirrored    bool
}

// NewCode validates p and returns an immutable code descriptor. Slices in p
// are copied, so later changes by the caller are not observed.
func NewCode(p CodeParams) (*Code, error) {
	if !p.Type.IsCode() {
		return nil, invalidf("type %q is not a machine-readable code", p.Type)
	}
	c, err := newCommon(p.Type, p.Common)
	if err != nil {
		return nil, err
	}
	if err := validateCorners(p.Corners, p.Bounds, p.Mirrored); err != nil {
		return nil, err
	}

	code := &Code{common: c, mirrored: p.Mirrored}
	if len(p.Corners) > 0 {
		code.corners = append([]geometry.Point(nil), p.Corners...)
	}
	if p.StringValue != nil {
		s := *p.StringValue
		code.stringValue = &s
	}
	if len(p.Payload) > 0 {
		code.payload = append([]byte(nil), p.Payload...)
	}
	return code, nil
}

func validateCorners(corners []geometry.Point, bounds geometry.Rect, mirrored bool) error {
	if len(corners) == 0 {
		return nil
	}
	if len(corners) < MinCorners {
		return invalidf("%d corners given, need at least %d", len(corners), MinCorners)
	}
	for i, p := range corners {
		if !p.IsFinite() {
			return invalidf("corner %d is not finite", i)
		}
		if !bounds.IsZero() && !bounds.Contains(p, cornerTolerance) {
			return invalidf("corner %d %v lies outside bounds %v", i, p, bounds)
		}
	}
	want := geometry.ExpectedWinding(mirrored)
	if got := geometry.WindingOf(corners); got != want {
		return invalidf("corners wind %s, want %s", got, want)
	}
	return nil
}

// Corners returns a copy of the corner points.
func (c *Code) Corners() []geometry.Point {
	if c.corners == nil {
		return nil
	}
	return append([]geometry.Point(nil), c.corners...)
}

// StringValue returns the decoded text and false when no text representation exists.
func (c *Code) StringValue() (string, bool) {
	if c.stringValue == nil {
		return "", false
	}
	return *c.stringValue, true
}

// Payload returns a copy of the raw error-corrected bytes, or nil.
func (c *Code) Payload() []byte {
	if c.payload == nil {
		return nil
	}
	return append([]byte(nil), c.payload...)
}

// IsMirrored reports whether the code was read from a mirrored image.
func (c *Code) IsMirrored() bool { return c.mirrored }

// StringPtr is a helper for filling CodeParams.StringValue.
func StringPtr(s string) *string { return &s }
