package facedetect

import (
	"errors"
	"log/slog"

	"github.com/MeKo-Tech/metascan/internal/faceid"
	"github.com/MeKo-Tech/metascan/internal/geometry"
	"github.com/MeKo-Tech/metascan/internal/metadata"
)

// ToDescriptors converts detections into face descriptors. Tracked
// detections keep the ID bound to their TrackID in registry; untracked ones
// receive a fresh ID each time.
func ToDescriptors(dets []Detection, frame metadata.FrameInfo, registry *faceid.Registry) ([]*metadata.Face, error) {
	if registry == nil {
		registry = faceid.NewRegistry(nil)
	}
	out := make([]*metadata.Face, 0, len(dets))
	for _, d := range dets {
		bounds, _, err := frame.Place(d.Bounds, nil)
		if errors.Is(err, geometry.ErrEmptyFrame) {
			return nil, err
		}
		if err != nil {
			slog.Warn("facedetect: dropping detection", "bounds", d.Bounds, "error", err)
			continue
		}
		id := registry.Fresh()
		if d.TrackID != "" {
			id = registry.Assign(d.TrackID)
		}
		face, err := metadata.NewFace(metadata.FaceParams{
			Common: frame.Common(bounds),
			FaceID: id,
			Roll:   d.Roll,
			Yaw:    d.Yaw,
		})
		if err != nil {
			slog.Warn("facedetect: dropping detection", "bounds", d.Bounds, "error", err)
			continue
		}
		out = append(out, face)
	}
	return out, nil
}
