package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/disintegration/imaging"
	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/require"
)

// MatrixImage paints set bits black on white.
func MatrixImage(m *gozxing.BitMatrix) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.GetWidth(), m.GetHeight()))
	for y := 0; y < m.GetHeight(); y++ {
		for x := 0; x < m.GetWidth(); x++ {
			if m.Get(x, y) {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

// QRCodeImage renders content as a size x size QR code with a quiet zone.
func QRCodeImage(content string, size int) (*image.Gray, error) {
	m, err := qrcode.NewQRCodeWriter().Encode(content, gozxing.BarcodeFormat_QR_CODE, size, size, nil)
	if err != nil {
		return nil, err
	}
	return MatrixImage(m), nil
}

// QRCode is QRCodeImage failing t on error.
func QRCode(t testing.TB, content string, size int) *image.Gray {
	t.Helper()
	img, err := QRCodeImage(content, size)
	require.NoError(t, err)
	return img
}

// Code128 renders content as a w x h Code 128 symbol.
func Code128(t testing.TB, content string, w, h int) *image.Gray {
	t.Helper()
	m, err := oned.NewCode128Writer().Encode(content, gozxing.BarcodeFormat_CODE_128, w, h, nil)
	require.NoError(t, err)
	return MatrixImage(m)
}

// EAN13 renders a 13 digit number as a w x h EAN-13 symbol.
func EAN13(t testing.TB, digits string, w, h int) *image.Gray {
	t.Helper()
	m, err := oned.NewEAN13Writer().Encode(digits, gozxing.BarcodeFormat_EAN_13, w, h, nil)
	require.NoError(t, err)
	return MatrixImage(m)
}

// Blank returns a white w x h image.
func Blank(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return img
}

// OnCanvas pastes img onto a white w x h canvas at the given offset.
func OnCanvas(img image.Image, w, h int, at image.Point) *image.Gray {
	canvas := Blank(w, h)
	draw.Draw(canvas, img.Bounds().Add(at), img, img.Bounds().Min, draw.Src)
	return canvas
}

// Mirrored flips img horizontally, as a front camera would.
func Mirrored(img image.Image) *image.NRGBA {
	return imaging.FlipH(img)
}
