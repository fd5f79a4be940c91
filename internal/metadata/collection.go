package metadata

import (
	"fmt"
	"sort"
)

// FilterByType returns the objects whose type is one of types, preserving order.
// With no types given, it returns a copy of objs.
func FilterByType(objs []Object, types ...Type) []Object {
	out := make([]Object, 0, len(objs))
	if len(types) == 0 {
		return append(out, objs...)
	}
	want := make(map[Type]struct{}, len(types))
	for _, t := range types {
		want[t] = struct{}{}
	}
	for _, o := range objs {
		if _, ok := want[o.Type()]; ok {
			out = append(out, o)
		}
	}
	return out
}

// Faces returns the face descriptors in objs.
func Faces(objs []Object) []*Face {
	var out []*Face
	for _, o := range objs {
		if f, ok := o.(*Face); ok {
			out = append(out, f)
		}
	}
	return out
}

// Codes returns the machine-readable code descriptors in objs.
func Codes(objs []Object) []*Code {
	var out []*Code
	for _, o := range objs {
		if c, ok := o.(*Code); ok {
			out = append(out, c)
		}
	}
	return out
}

// CountByType tallies objects per type tag.
func CountByType(objs []Object) map[Type]int {
	counts := make(map[Type]int)
	for _, o := range objs {
		counts[o.Type()]++
	}
	return counts
}

// Sort orders objs by time, then type, then top-left of the bounds.
// Invalid times sort first.
func Sort(objs []Object) {
	sort.SliceStable(objs, func(i, j int) bool {
		a, b := objs[i], objs[j]
		if c := a.Time().Compare(b.Time()); c != 0 {
			return c < 0
		}
		if a.Type() != b.Type() {
			return a.Type() < b.Type()
		}
		ab, bb := a.Bounds(), b.Bounds()
		if ab.Y != bb.Y {
			return ab.Y < bb.Y
		}
		return ab.X < bb.X
	})
}

// Validate re-checks the invariants of o by rebuilding it through its
// constructor. It is intended for descriptors assembled from untrusted input.
func Validate(o Object) error {
	var err error
	switch v := o.(type) {
	case nil:
		err = fmt.Errorf("%w: nil object", ErrInvalidDescriptor)
	case *Face:
		if v == nil {
			return fmt.Errorf("%w: nil face", ErrInvalidDescriptor)
		}
		_, err = NewFace(FaceParams{Common: v.params(), FaceID: v.faceID, Roll: v.roll, Yaw: v.yaw})
	case *Code:
		if v == nil {
			return fmt.Errorf("%w: nil code", ErrInvalidDescriptor)
		}
		_, err = NewCode(CodeParams{
			Common:      v.params(),
			Type:        v.typ,
			Corners:     v.corners,
			StringValue: v.stringValue,
			Payload:     v.payload,
			Mirrored:    v.mirrored,
		})
	case *Unknown:
		if v == nil {
			return fmt.Errorf("%w: nil unknown object", ErrInvalidDescriptor)
		}
		_, err = NewUnknown(v.typ, v.params())
	default:
		err = fmt.Errorf("%w: unsupported object %T", ErrInvalidDescriptor, o)
	}
	return err
}
