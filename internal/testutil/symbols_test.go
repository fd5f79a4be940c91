package testutil

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProjectRoot(t *testing.T) {
	root, err := GetProjectRoot()
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "go.mod"))
}

func TestQRCodeHasQuietZone(t *testing.T) {
	img := QRCode(t, "quiet", 120)
	assert.Equal(t, image.Rect(0, 0, 120, 120), img.Bounds())
	assert.Equal(t, uint8(255), img.GrayAt(0, 0).Y)
}

func TestLinearSymbols(t *testing.T) {
	bar := Code128(t, "ABC-123", 200, 50)
	assert.Equal(t, 50, bar.Bounds().Dy())

	ean := EAN13(t, "5901234123457", 190, 60)
	assert.Equal(t, 60, ean.Bounds().Dy())
}

func TestOnCanvasAndMirrored(t *testing.T) {
	dot := image.NewGray(image.Rect(0, 0, 2, 2))
	canvas := OnCanvas(dot, 10, 10, image.Pt(1, 3))
	assert.Equal(t, uint8(0), canvas.GrayAt(1, 3).Y)
	assert.Equal(t, uint8(255), canvas.GrayAt(0, 0).Y)

	flipped := Mirrored(canvas)
	r, _, _, _ := flipped.At(8, 3).RGBA()
	assert.Equal(t, uint32(0), r)
}

func TestSaveAndEncodePNG(t *testing.T) {
	img := Blank(8, 4)
	path := SavePNG(t, img, filepath.Join(t.TempDir(), "nested"), "blank.png")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, EncodePNG(t, img), data)

	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, img.Bounds(), decoded.Bounds())
}
