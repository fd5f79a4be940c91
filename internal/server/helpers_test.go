package server

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/MeKo-Tech/metascan/internal/geometry"
	"github.com/MeKo-Tech/metascan/internal/metadata"
	"github.com/MeKo-Tech/metascan/internal/scanner"
	"github.com/MeKo-Tech/metascan/internal/store"
	"github.com/stretchr/testify/require"
)

// fakeScanner returns canned descriptors and records what it was asked.
type fakeScanner struct {
	mu      sync.Mutex
	objects []metadata.Object
	pages   []scanner.PageResult
	err     error
	frames  []metadata.FrameInfo
	pdfOpts []scanner.PDFOptions
	closed  bool
}

func (f *fakeScanner) ScanImage(_ context.Context, _ image.Image, frame metadata.FrameInfo) ([]metadata.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, frame)
	return f.objects, f.err
}

func (f *fakeScanner) ScanPDF(_ context.Context, _ string, opts scanner.PDFOptions) ([]scanner.PageResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pdfOpts = append(f.pdfOpts, opts)
	return f.pages, f.err
}

func (f *fakeScanner) Close() error {
	f.closed = true
	return nil
}

type publishCall struct {
	source  string
	objects []metadata.Object
}

type fakePublisher struct {
	mu    sync.Mutex
	calls []publishCall
	err   error
}

func (p *fakePublisher) Publish(_ context.Context, source string, objs []metadata.Object) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, publishCall{source: source, objects: objs})
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

func newTestServer(t *testing.T, sc imageScanner, opts ...Option) *Server {
	t.Helper()
	s := NewServer(Config{CORSOrigin: "*", MaxUploadMB: 5, TimeoutSec: 5, Version: "test"}, sc, opts...)
	t.Cleanup(func() { s.hub.Close() })
	return s
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func testFace(t *testing.T, id int64) *metadata.Face {
	t.Helper()
	f, err := metadata.NewFace(metadata.FaceParams{
		Common: metadata.Common{Bounds: geometry.Rect{X: 5, Y: 5, Width: 20, Height: 20}},
		FaceID: id,
		Yaw:    metadata.AngleOf(-10),
	})
	require.NoError(t, err)
	return f
}

func testCode(t *testing.T, value string) *metadata.Code {
	t.Helper()
	c, err := metadata.NewCode(metadata.CodeParams{
		Common:      metadata.Common{Bounds: geometry.Rect{X: 40, Y: 10, Width: 30, Height: 30}},
		Type:        metadata.TypeQRCode,
		StringValue: metadata.StringPtr(value),
		Corners: []geometry.Point{
			{X: 40, Y: 10}, {X: 40, Y: 40}, {X: 70, Y: 40}, {X: 70, Y: 10},
		},
	})
	require.NoError(t, err)
	return c
}

// createTestImage creates a simple gradient image.
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{byte(x % 256), byte(y % 256), 0, 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// createMultipartRequest builds a POST to target with data in field.
func createMultipartRequest(t *testing.T, target, field, filename string, data []byte, extra map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if field != "" {
		part, err := writer.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for key, value := range extra {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
