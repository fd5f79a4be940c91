package metadata

import "math"

// Angle is an optional angle in degrees.
type Angle struct {
	degrees float64
	present bool
}

// NoAngle is the absent angle.
func NoAngle() Angle { return Angle{} }

// AngleOf returns a present angle of deg degrees.
func AngleOf(deg float64) Angle { return Angle{degrees: deg, present: true} }

// IsPresent reports whether the angle carries a value.
func (a Angle) IsPresent() bool { return a.present }

// Degrees returns the value and whether it is present.
func (a Angle) Degrees() (float64, bool) { return a.degrees, a.present }

// FaceParams is the input to NewFace.
type FaceParams struct {
	Common
	// FaceID is unique within the stream; see package faceid for the reuse policy.
	FaceID int64
	Roll   Angle
	Yaw    Angle
}

// Face describes a single detected face.
type Face struct {
	common
	faceID int64
	roll   Angle
	yaw    Angle
}

// NewFace validates p and returns an immutable face descriptor.
func NewFace(p FaceParams) (*Face, error) {
	c, err := newCommon(TypeFace, p.Common)
	if err != nil {
		return nil, err
	}
	if p.FaceID < 0 {
		return nil, invalidf("face id %d is negative", p.FaceID)
	}
	for name, a := range map[string]Angle{"roll": p.Roll, "yaw": p.Yaw} {
		if d, ok := a.Degrees(); ok && (math.IsNaN(d) || math.IsInf(d, 0)) {
			return nil, invalidf("%s angle is not finite", name)
		}
	}
	return &Face{common: c, faceID: p.FaceID, roll: p.Roll, yaw: p.Yaw}, nil
}

// FaceID identifies this face for as long as it stays in the picture.
func (f *Face) FaceID() int64 { return f.faceID }

// HasRollAngle reports whether RollAngle may be read.
func (f *Face) HasRollAngle() bool { return f.roll.present }

// RollAngle is the tilt of the face in degrees; 0 means level.
// It fails with ErrAngleUnavailable when HasRollAngle is false.
func (f *Face) RollAngle() (float64, error) {
	if !f.roll.present {
		return 0, &PreconditionError{Field: "RollAngle", Err: ErrAngleUnavailable}
	}
	return f.roll.degrees, nil
}

// HasYawAngle reports whether YawAngle may be read.
func (f *Face) HasYawAngle() bool { return f.yaw.present }

// YawAngle is the turn of the face in degrees; 0 means straight on.
// It fails with ErrAngleUnavailable when HasYawAngle is false.
func (f *Face) YawAngle() (float64, error) {
	if !f.yaw.present {
		return 0, &PreconditionError{Field: "YawAngle", Err: ErrAngleUnavailable}
	}
	return f.yaw.degrees, nil
}

// Roll returns the optional roll angle without failing.
func (f *Face) Roll() Angle { return f.roll }

// Yaw returns the optional yaw angle without failing.
func (f *Face) Yaw() Angle { return f.yaw }
