package barcode

import (
	"math"
	"testing"

	"github.com/MeKo-Tech/metascan/internal/geometry"
	"github.com/MeKo-Tech/metascan/internal/metadata"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// finderPoints places an upright symbol's finder patterns (bottom-left,
// top-left, top-right) rotated by deg around the frame centre, optionally
// mirrored across the vertical axis through the centre.
func finderPoints(deg float64, mirrored bool) []geometry.Point {
	c := geometry.Pt(120, 120)
	upright := []geometry.Point{{X: 64, Y: 176}, {X: 64, Y: 64}, {X: 176, Y: 64}}
	sin, cos := math.Sincos(deg * math.Pi / 180)
	out := make([]geometry.Point, len(upright))
	for i, p := range upright {
		d := p.Sub(c)
		q := geometry.Pt(d.X*cos-d.Y*sin, d.X*sin+d.Y*cos)
		if mirrored {
			q.X = -q.X
		}
		out[i] = c.Add(q)
	}
	return out
}

func TestToDescriptors_CanonicalTopLeftUnderRotation(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("corners start at the finder top-left", prop.ForAll(
		func(deg float64, mirrored bool) bool {
			pts := finderPoints(deg, mirrored)
			r := Result{Type: metadata.TypeQRCode, Text: "x", Points: pts, Mirrored: mirrored}
			codes, err := ToDescriptors([]Result{r}, metadata.FrameInfo{Width: 240, Height: 240}, DefaultOptions())
			if err != nil || len(codes) != 1 {
				return false
			}
			corners := codes[0].Corners()
			return len(corners) == 4 &&
				corners[0] == pts[1] &&
				codes[0].IsMirrored() == mirrored &&
				geometry.WindingOf(corners) == geometry.ExpectedWinding(mirrored)
		},
		gen.Float64Range(0, 360),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
