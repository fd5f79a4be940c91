package metadata

import (
	"errors"
	"math"
	"testing"

	"github.com/MeKo-Tech/metascan/internal/geometry"
	"github.com/MeKo-Tech/metascan/internal/mediatime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCommon() Common {
	return Common{
		Time:     mediatime.New(90, 30),
		Duration: mediatime.New(1, 30),
		Bounds:   geometry.Rect{X: 0.25, Y: 0.2, Width: 0.3, Height: 0.4},
	}
}

func TestNewFace(t *testing.T) {
	f, err := NewFace(FaceParams{Common: testCommon(), FaceID: 7, Roll: AngleOf(15), Yaw: NoAngle()})
	require.NoError(t, err)

	assert.Equal(t, TypeFace, f.Type())
	assert.Equal(t, int64(7), f.FaceID())
	assert.True(t, f.Time().Equal(mediatime.New(3, 1)))
	assert.Equal(t, testCommon().Bounds, f.Bounds())

	assert.True(t, f.HasRollAngle())
	roll, err := f.RollAngle()
	require.NoError(t, err)
	assert.InDelta(t, 15.0, roll, 1e-12)
}

func TestFaceAngleWithoutPresenceFails(t *testing.T) {
	f, err := NewFace(FaceParams{Common: testCommon(), FaceID: 1})
	require.NoError(t, err)

	assert.False(t, f.HasRollAngle())
	assert.False(t, f.HasYawAngle())

	_, err = f.RollAngle()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAngleUnavailable)

	var pe *PreconditionError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "RollAngle", pe.Field)
	assert.Contains(t, err.Error(), "HasRollAngle")

	_, err = f.YawAngle()
	assert.ErrorIs(t, err, ErrAngleUnavailable)
}

func TestFaceZeroAngleIsPresent(t *testing.T) {
	f, err := NewFace(FaceParams{Common: testCommon(), Yaw: AngleOf(0)})
	require.NoError(t, err)

	yaw, err := f.YawAngle()
	require.NoError(t, err)
	assert.Zero(t, yaw)
}

func TestNewFaceValidation(t *testing.T) {
	tests := []struct {
		name   string
		params FaceParams
	}{
		{"negative id", FaceParams{Common: testCommon(), FaceID: -1}},
		{"nan roll", FaceParams{Common: testCommon(), Roll: AngleOf(math.NaN())}},
		{"infinite yaw", FaceParams{Common: testCommon(), Yaw: AngleOf(math.Inf(-1))}},
		{"negative bounds", FaceParams{Common: Common{Bounds: geometry.Rect{Width: -1, Height: 1}}}},
		{"negative duration", FaceParams{Common: Common{Duration: mediatime.New(-1, 30)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFace(tt.params)
			assert.ErrorIs(t, err, ErrInvalidDescriptor)
		})
	}
}

func TestFaceWithInvalidTimes(t *testing.T) {
	f, err := NewFace(FaceParams{Common: Common{Time: mediatime.Invalid, Duration: mediatime.Invalid}})
	require.NoError(t, err)
	assert.False(t, f.Time().IsValid())
	assert.False(t, f.Duration().IsValid())
	assert.True(t, f.Bounds().IsZero())

	g, err := NewFace(FaceParams{Common: Common{Time: mediatime.Zero, Duration: mediatime.Zero}})
	require.NoError(t, err)
	assert.False(t, f.Time().Equal(g.Time()))
}
