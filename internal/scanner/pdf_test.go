package scanner

import (
	"context"
	"image"
	"testing"

	"github.com/MeKo-Tech/metascan/internal/mediatime"
	"github.com/MeKo-Tech/metascan/internal/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageFrame(t *testing.T) {
	f := PageFrame(image.NewGray(image.Rect(0, 0, 30, 20)), 3)
	assert.True(t, f.Time.Equal(mediatime.New(3, 1)))
	assert.True(t, f.Duration.Equal(mediatime.New(1, 1)))
	assert.Equal(t, 30, f.Width)
	assert.Equal(t, 20, f.Height)
}

func TestPageResultSource(t *testing.T) {
	assert.Equal(t, "doc.pdf#p2.1", PageResult{Page: 2, Index: 1}.Source("doc.pdf"))
}

func TestScanPDFMissingFile(t *testing.T) {
	s, err := NewBuilder().WithBarcodeBackend(&fakeCodes{}).Build()
	require.NoError(t, err)
	_, err = s.ScanPDF(context.Background(), "does-not-exist.pdf", PDFOptions{Options: pdf.Options{Pages: "1"}})
	assert.Error(t, err)
}
