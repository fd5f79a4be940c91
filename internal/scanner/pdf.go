package scanner

import (
	"context"
	"fmt"
	"image"

	"github.com/MeKo-Tech/metascan/internal/mediatime"
	"github.com/MeKo-Tech/metascan/internal/metadata"
	"github.com/MeKo-Tech/metascan/internal/pdf"
)

// PageResult holds the descriptors found in one image of a PDF page.
type PageResult struct {
	Page    int
	Index   int
	Width   int
	Height  int
	Objects []metadata.Object
}

// Source names the page image, e.g. "doc.pdf#p3.1".
func (p PageResult) Source(document string) string {
	return fmt.Sprintf("%s#p%d.%d", document, p.Page, p.Index)
}

// PageFrame places page n of a document at time n/1 with a one-unit duration.
func PageFrame(img image.Image, page int) metadata.FrameInfo {
	b := img.Bounds()
	return metadata.FrameInfo{
		Time:     mediatime.New(int64(page), 1),
		Duration: mediatime.New(1, 1),
		Width:    b.Dx(),
		Height:   b.Dy(),
	}
}

// PDFOptions selects pages of a document and how their images are scanned.
type PDFOptions struct {
	pdf.Options
	// Normalize reports bounds relative to each page image.
	Normalize bool
}

// ScanPDF extracts the embedded images of the selected pages and scans each.
func (s *Scanner) ScanPDF(ctx context.Context, filename string, opts PDFOptions) ([]PageResult, error) {
	images, err := pdf.ExtractImages(ctx, filename, opts.Options)
	if err != nil {
		return nil, err
	}
	out := make([]PageResult, 0, len(images))
	for _, pi := range images {
		frame := PageFrame(pi.Image, pi.Page)
		frame.Normalize = opts.Normalize
		objs, err := s.ScanImage(ctx, pi.Image, frame)
		if err != nil {
			return nil, fmt.Errorf("page %d image %d: %w", pi.Page, pi.Index, err)
		}
		b := pi.Image.Bounds()
		out = append(out, PageResult{Page: pi.Page, Index: pi.Index, Width: b.Dx(), Height: b.Dy(), Objects: objs})
	}
	return out, nil
}
