package support

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/metascan/internal/codec"
	"github.com/MeKo-Tech/metascan/internal/geometry"
	"github.com/MeKo-Tech/metascan/internal/mediatime"
	"github.com/MeKo-Tech/metascan/internal/metadata"
	"github.com/cucumber/godog"
)

func stillFrame() metadata.Common {
	return metadata.Common{
		Time:     mediatime.Zero,
		Duration: mediatime.Invalid,
		Bounds:   geometry.Rect{X: 10, Y: 10, Width: 40, Height: 40},
	}
}

func (testCtx *TestContext) aFaceWithoutRollAngle(id int) error {
	f, err := metadata.NewFace(metadata.FaceParams{Common: stillFrame(), FaceID: int64(id)})
	testCtx.Descriptor = f
	return err
}

func (testCtx *TestContext) aFaceWithRollAngle(id int, deg float64) error {
	f, err := metadata.NewFace(metadata.FaceParams{Common: stillFrame(), FaceID: int64(id), Roll: metadata.AngleOf(deg)})
	testCtx.Descriptor = f
	return err
}

func (testCtx *TestContext) face() (*metadata.Face, error) {
	f, ok := testCtx.Descriptor.(*metadata.Face)
	if !ok {
		return nil, fmt.Errorf("descriptor is %T, not a face", testCtx.Descriptor)
	}
	return f, nil
}

func (testCtx *TestContext) iReadItsRollAngle() error {
	f, err := testCtx.face()
	if err != nil {
		return err
	}
	testCtx.LastAngle, testCtx.LastErr = f.RollAngle()
	return nil
}

func (testCtx *TestContext) readingShouldFailWithAngleUnavailable() error {
	if !errors.Is(testCtx.LastErr, metadata.ErrAngleUnavailable) {
		return fmt.Errorf("expected angle unavailable, got value %v and error %v", testCtx.LastAngle, testCtx.LastErr)
	}
	return nil
}

func (testCtx *TestContext) theRollAngleShouldBe(deg float64) error {
	if testCtx.LastErr != nil {
		return testCtx.LastErr
	}
	if testCtx.LastAngle != deg {
		return fmt.Errorf("roll angle is %v, want %v", testCtx.LastAngle, deg)
	}
	return nil
}

func parsePoints(s string) ([]geometry.Point, error) {
	var pts []geometry.Point
	for _, field := range strings.Fields(s) {
		xy := strings.Split(field, ",")
		if len(xy) != 2 {
			return nil, fmt.Errorf("bad point %q", field)
		}
		x, err := strconv.ParseFloat(xy[0], 64)
		if err != nil {
			return nil, err
		}
		y, err := strconv.ParseFloat(xy[1], 64)
		if err != nil {
			return nil, err
		}
		pts = append(pts, geometry.Pt(x, y))
	}
	return pts, nil
}

func (testCtx *TestContext) buildCode(points string, mirrored bool) error {
	pts, err := parsePoints(points)
	if err != nil {
		return err
	}
	corners := geometry.OrderCorners(pts, mirrored)
	c, err := metadata.NewCode(metadata.CodeParams{
		Common:   metadata.Common{Time: mediatime.Zero, Bounds: geometry.BoundingRect(corners)},
		Type:     metadata.TypeQRCode,
		Corners:  corners,
		Mirrored: mirrored,
	})
	testCtx.Descriptor = c
	return err
}

func (testCtx *TestContext) aQRCodeWithCorners(points string) error {
	return testCtx.buildCode(points, false)
}

func (testCtx *TestContext) aMirroredQRCodeWithCorners(points string) error {
	return testCtx.buildCode(points, true)
}

func (testCtx *TestContext) theCornersShouldStartAtAndRun(start, winding string) error {
	c, ok := testCtx.Descriptor.(*metadata.Code)
	if !ok {
		return fmt.Errorf("descriptor is %T, not a code", testCtx.Descriptor)
	}
	want, err := parsePoints(start)
	if err != nil || len(want) != 1 {
		return fmt.Errorf("bad start point %q", start)
	}
	corners := c.Corners()
	if len(corners) == 0 || corners[0] != want[0] {
		return fmt.Errorf("corners %v do not start at %v", corners, want[0])
	}
	if got := geometry.WindingOf(corners).String(); got != winding {
		return fmt.Errorf("corners run %s, want %s", got, winding)
	}
	return nil
}

func (testCtx *TestContext) iDecodeTheDocument(doc *godog.DocString) error {
	testCtx.Descriptor, testCtx.LastErr = codec.UnmarshalObject([]byte(doc.Content))
	return nil
}

func (testCtx *TestContext) iRoundTripTheDescriptor() error {
	data, err := codec.MarshalObject(testCtx.Descriptor)
	if err != nil {
		return err
	}
	testCtx.Descriptor, testCtx.LastErr = codec.UnmarshalObject(data)
	return testCtx.LastErr
}

func (testCtx *TestContext) theDescriptorShouldBeUnknownWithType(tag string) error {
	if testCtx.LastErr != nil {
		return testCtx.LastErr
	}
	u, ok := testCtx.Descriptor.(*metadata.Unknown)
	if !ok {
		return fmt.Errorf("descriptor is %T, not unknown", testCtx.Descriptor)
	}
	if string(u.Type()) != tag {
		return fmt.Errorf("type is %q, want %q", u.Type(), tag)
	}
	return nil
}

func (testCtx *TestContext) decodingShouldFail() error {
	if testCtx.LastErr == nil {
		return fmt.Errorf("expected decoding to fail, got %T", testCtx.Descriptor)
	}
	return nil
}

func (testCtx *TestContext) itsDurationShouldBeInvalidAndItsTimeZero() error {
	if testCtx.Descriptor == nil {
		return errors.New("no descriptor")
	}
	if testCtx.Descriptor.Duration().IsValid() {
		return fmt.Errorf("duration %v should be invalid", testCtx.Descriptor.Duration())
	}
	if !testCtx.Descriptor.Time().Equal(mediatime.Zero) {
		return fmt.Errorf("time %v should be zero", testCtx.Descriptor.Time())
	}
	return nil
}

// RegisterDescriptorSteps registers steps exercising descriptors directly.
func (testCtx *TestContext) RegisterDescriptorSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a face with id (\d+) and no roll angle$`, testCtx.aFaceWithoutRollAngle)
	sc.Step(`^a face with id (\d+) and roll angle (-?[\d.]+)$`, testCtx.aFaceWithRollAngle)
	sc.Step(`^I read its roll angle$`, testCtx.iReadItsRollAngle)
	sc.Step(`^reading should fail because the angle is unavailable$`, testCtx.readingShouldFailWithAngleUnavailable)
	sc.Step(`^the roll angle should be (-?[\d.]+)$`, testCtx.theRollAngleShouldBe)
	sc.Step(`^a QR code with corners "([^"]*)"$`, testCtx.aQRCodeWithCorners)
	sc.Step(`^a mirrored QR code with corners "([^"]*)"$`, testCtx.aMirroredQRCodeWithCorners)
	sc.Step(`^the corners should start at "([^"]*)" and run (counter-clockwise|clockwise)$`, testCtx.theCornersShouldStartAtAndRun)
	sc.Step(`^I decode the document:$`, testCtx.iDecodeTheDocument)
	sc.Step(`^I round-trip the descriptor through JSON$`, testCtx.iRoundTripTheDescriptor)
	sc.Step(`^the descriptor should be unknown with type "([^"]*)"$`, testCtx.theDescriptorShouldBeUnknownWithType)
	sc.Step(`^decoding should fail$`, testCtx.decodingShouldFail)
	sc.Step(`^its duration should be invalid and its time zero$`, testCtx.itsDurationShouldBeInvalidAndItsTimeZero)
}
