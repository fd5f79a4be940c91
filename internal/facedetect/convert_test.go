package facedetect

import (
	"testing"

	"github.com/MeKo-Tech/metascan/internal/faceid"
	"github.com/MeKo-Tech/metascan/internal/geometry"
	"github.com/MeKo-Tech/metascan/internal/mediatime"
	"github.com/MeKo-Tech/metascan/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFrame() metadata.FrameInfo {
	return metadata.FrameInfo{Time: mediatime.New(90, 30), Duration: mediatime.New(1, 30), Width: 320, Height: 240}
}

func TestToDescriptorsUntrackedGetFreshIDs(t *testing.T) {
	reg := faceid.NewRegistry(faceid.NewAllocator(41))
	faces, err := ToDescriptors([]Detection{det(0, 0, 10, 10), det(50, 50, 10, 10)}, testFrame(), reg)
	require.NoError(t, err)
	require.Len(t, faces, 2)

	assert.Equal(t, int64(42), faces[0].FaceID())
	assert.Equal(t, int64(43), faces[1].FaceID())
	assert.Equal(t, 0, reg.Active())
	for _, f := range faces {
		assert.Equal(t, metadata.TypeFace, f.Type())
		assert.True(t, f.Time().Equal(mediatime.New(3, 1)))
	}
}

func TestToDescriptorsAngles(t *testing.T) {
	d := det(10, 20, 30, 40)
	d.Roll = metadata.AngleOf(15)

	faces, err := ToDescriptors([]Detection{d, det(0, 0, 5, 5)}, testFrame(), nil)
	require.NoError(t, err)
	require.Len(t, faces, 2)

	assert.True(t, faces[0].HasRollAngle())
	roll, err := faces[0].RollAngle()
	require.NoError(t, err)
	assert.Equal(t, 15.0, roll)
	assert.False(t, faces[0].HasYawAngle())
	_, err = faces[0].YawAngle()
	assert.ErrorIs(t, err, metadata.ErrAngleUnavailable)

	assert.False(t, faces[1].HasRollAngle())
	assert.Equal(t, geometry.Rect{X: 10, Y: 20, Width: 30, Height: 40}, faces[0].Bounds())
}

func TestToDescriptorsNormalizeAndInvalid(t *testing.T) {
	frame := testFrame()
	frame.Normalize = true

	bad := det(0, 0, -1, 5)
	faces, err := ToDescriptors([]Detection{det(32, 24, 64, 48), bad}, frame, nil)
	require.NoError(t, err)
	require.Len(t, faces, 1)
	b := faces[0].Bounds()
	assert.InDelta(t, 0.1, b.X, 1e-12)
	assert.InDelta(t, 0.2, b.Height, 1e-12)

	_, err = ToDescriptors([]Detection{det(0, 0, 1, 1)}, metadata.FrameInfo{Normalize: true}, nil)
	assert.ErrorIs(t, err, geometry.ErrEmptyFrame)
}
