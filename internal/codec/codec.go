// Package codec converts metadata descriptors to and from their wire form.
//
// Decoding always goes through the metadata constructors, so descriptors read
// from JSON satisfy the same invariants as those built by a producer.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MeKo-Tech/metascan/internal/geometry"
	"github.com/MeKo-Tech/metascan/internal/mediatime"
	"github.com/MeKo-Tech/metascan/internal/metadata"
)

// ErrMalformed is returned when a document cannot describe a valid object.
var ErrMalformed = errors.New("codec: malformed document")

// Document is the wire representation shared by every descriptor variant.
type Document struct {
	Type     metadata.Type  `json:"type"`
	Time     mediatime.Time `json:"time"`
	Duration mediatime.Time `json:"duration"`
	Bounds   geometry.Rect  `json:"bounds"`

	FaceID    *int64   `json:"face_id,omitempty"`
	RollAngle *float64 `json:"roll_angle,omitempty"`
	YawAngle  *float64 `json:"yaw_angle,omitempty"`

	Corners     []geometry.Point `json:"corners,omitempty"`
	StringValue *string          `json:"string_value,omitempty"`
	Payload     []byte           `json:"payload,omitempty"`
	Mirrored    bool             `json:"mirrored,omitempty"`
}

// Encode converts o to its document form.
func Encode(o metadata.Object) (Document, error) {
	if o == nil {
		return Document{}, fmt.Errorf("%w: nil object", ErrMalformed)
	}
	doc := Document{
		Type:     o.Type(),
		Time:     o.Time(),
		Duration: o.Duration(),
		Bounds:   o.Bounds(),
	}
	switch v := o.(type) {
	case *metadata.Face:
		id := v.FaceID()
		doc.FaceID = &id
		if d, ok := v.Roll().Degrees(); ok {
			doc.RollAngle = &d
		}
		if d, ok := v.Yaw().Degrees(); ok {
			doc.YawAngle = &d
		}
	case *metadata.Code:
		doc.Corners = v.Corners()
		if s, ok := v.StringValue(); ok {
			doc.StringValue = &s
		}
		doc.Payload = v.Payload()
		doc.Mirrored = v.IsMirrored()
	case *metadata.Unknown:
	default:
		return Document{}, fmt.Errorf("%w: unsupported object %T", ErrMalformed, o)
	}
	return doc, nil
}

// Decode rebuilds a descriptor from doc. Unrecognised tags become *metadata.Unknown.
func Decode(doc Document) (metadata.Object, error) {
	if doc.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	common := metadata.Common{Time: doc.Time, Duration: doc.Duration, Bounds: doc.Bounds}

	var (
		obj metadata.Object
		err error
	)
	switch doc.Type.Kind() {
	case metadata.KindFace:
		if doc.FaceID == nil {
			return nil, fmt.Errorf("%w: face without face_id", ErrMalformed)
		}
		obj, err = metadata.NewFace(metadata.FaceParams{
			Common: common,
			FaceID: *doc.FaceID,
			Roll:   angleFrom(doc.RollAngle),
			Yaw:    angleFrom(doc.YawAngle),
		})
	case metadata.KindMachineReadableCode:
		obj, err = metadata.NewCode(metadata.CodeParams{
			Common:      common,
			Type:        doc.Type,
			Corners:     doc.Corners,
			StringValue: doc.StringValue,
			Payload:     doc.Payload,
			Mirrored:    doc.Mirrored,
		})
	default:
		obj, err = metadata.NewUnknown(doc.Type, common)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", doc.Type, err)
	}
	return obj, nil
}

func angleFrom(d *float64) metadata.Angle {
	if d == nil {
		return metadata.NoAngle()
	}
	return metadata.AngleOf(*d)
}

// MarshalObject encodes a single descriptor as JSON.
func MarshalObject(o metadata.Object) ([]byte, error) {
	doc, err := Encode(o)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// UnmarshalObject decodes a single JSON descriptor.
func UnmarshalObject(data []byte) (metadata.Object, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Decode(doc)
}

// EncodeAll converts every descriptor in objs.
func EncodeAll(objs []metadata.Object) ([]Document, error) {
	docs := make([]Document, 0, len(objs))
	for i, o := range objs {
		doc, err := Encode(o)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// DecodeAll rebuilds every descriptor in docs, failing on the first invalid one.
func DecodeAll(docs []Document) ([]metadata.Object, error) {
	objs := make([]metadata.Object, 0, len(docs))
	for i, d := range docs {
		o, err := Decode(d)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		objs = append(objs, o)
	}
	return objs, nil
}

// MarshalObjects encodes descriptors as a JSON array.
func MarshalObjects(objs []metadata.Object) ([]byte, error) {
	docs, err := EncodeAll(objs)
	if err != nil {
		return nil, err
	}
	return json.Marshal(docs)
}

// UnmarshalObjects decodes a JSON array of descriptors.
func UnmarshalObjects(data []byte) ([]metadata.Object, error) {
	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return DecodeAll(docs)
}
