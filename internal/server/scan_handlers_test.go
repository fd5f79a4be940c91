package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MeKo-Tech/metascan/internal/mediatime"
	"github.com/MeKo-Tech/metascan/internal/metadata"
	"github.com/MeKo-Tech/metascan/internal/pdf"
	"github.com/MeKo-Tech/metascan/internal/scanner"
	"github.com/MeKo-Tech/metascan/internal/store"
	"github.com/MeKo-Tech/metascan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_ScanImageHandler(t *testing.T) {
	st := newTestStore(t)
	pub := &fakePublisher{}
	sc := &fakeScanner{objects: []metadata.Object{testFace(t, 4), testCode(t, "hello")}}
	server := newTestServer(t, sc, WithStore(st), WithPublisher(pub))

	png := encodePNG(t, createTestImage(80, 60))
	req := createMultipartRequest(t, "/scan/image?session=cam-1", "image", "photo.png", png, map[string]string{"normalize": "true"})
	w := httptest.NewRecorder()
	server.scanImageHandler(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response ScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Success)
	assert.Equal(t, "cam-1", response.Session)
	assert.Equal(t, "photo.png", response.Source)
	assert.Equal(t, 80, response.Width)
	assert.Equal(t, 60, response.Height)
	assert.Equal(t, 2, response.Count)
	assert.Equal(t, map[string]int{"face": 1, "qr": 1}, response.Counts)

	require.Len(t, sc.frames, 1)
	frame := sc.frames[0]
	assert.True(t, frame.Normalize)
	assert.True(t, frame.Time.Equal(mediatime.Zero))
	assert.False(t, frame.Duration.IsValid())
	assert.Equal(t, 80, frame.Width)

	recs, err := st.List(context.Background(), store.Query{SessionID: "cam-1"})
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	require.Len(t, pub.calls, 1)
	assert.Equal(t, "photo.png", pub.calls[0].source)
	assert.Len(t, pub.calls[0].objects, 2)
}

func TestServer_ScanImageHandler_TypeFilter(t *testing.T) {
	sc := &fakeScanner{objects: []metadata.Object{testFace(t, 4), testCode(t, "hello")}}
	server := newTestServer(t, sc)

	req := createMultipartRequest(t, "/scan/image?types=qr", "image", "a.png", encodePNG(t, createTestImage(10, 10)), nil)
	w := httptest.NewRecorder()
	server.scanImageHandler(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var response ScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, 1, response.Count)
	assert.Equal(t, metadata.TypeQRCode, response.Objects[0].Type)
	require.NotNil(t, response.Objects[0].StringValue)
	assert.Equal(t, "hello", *response.Objects[0].StringValue)
	assert.NotEmpty(t, response.Session)
}

func TestServer_ScanImageHandler_YAML(t *testing.T) {
	server := newTestServer(t, &fakeScanner{objects: []metadata.Object{testCode(t, "hello")}})

	req := createMultipartRequest(t, "/scan/image?format=yaml", "image", "a.png", encodePNG(t, createTestImage(10, 10)), nil)
	w := httptest.NewRecorder()
	server.scanImageHandler(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/yaml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "source: a.png")
	assert.Contains(t, w.Body.String(), "string_value: hello")
}

func TestServer_ScanImageHandler_Errors(t *testing.T) {
	png := encodePNG(t, createTestImage(10, 10))

	tests := []struct {
		name           string
		scanErr        error
		req            func(t *testing.T) *http.Request
		expectedStatus int
	}{
		{
			name:           "wrong method",
			req:            func(t *testing.T) *http.Request { return httptest.NewRequest(http.MethodGet, "/scan/image", nil) },
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/scan/image", strings.NewReader("x"))
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "no file",
			req:            func(t *testing.T) *http.Request { return createMultipartRequest(t, "/scan/image", "", "", nil, nil) },
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "not an image",
			req: func(t *testing.T) *http.Request {
				return createMultipartRequest(t, "/scan/image", "image", "a.png", []byte("not an image"), nil)
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unknown type",
			req: func(t *testing.T) *http.Request {
				return createMultipartRequest(t, "/scan/image?types=hologram", "image", "a.png", png, nil)
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "bad normalize",
			req: func(t *testing.T) *http.Request {
				return createMultipartRequest(t, "/scan/image?normalize=maybe", "image", "a.png", png, nil)
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "bad format",
			req: func(t *testing.T) *http.Request {
				return createMultipartRequest(t, "/scan/image?format=xml", "image", "a.png", png, nil)
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:    "scan timeout",
			scanErr: fmt.Errorf("decode barcodes: %w", context.DeadlineExceeded),
			req: func(t *testing.T) *http.Request {
				return createMultipartRequest(t, "/scan/image", "image", "a.png", png, nil)
			},
			expectedStatus: http.StatusGatewayTimeout,
		},
		{
			name:    "invalid descriptor",
			scanErr: fmt.Errorf("build: %w", metadata.ErrInvalidDescriptor),
			req: func(t *testing.T) *http.Request {
				return createMultipartRequest(t, "/scan/image", "image", "a.png", png, nil)
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:    "scan failure",
			scanErr: errors.New("boom"),
			req: func(t *testing.T) *http.Request {
				return createMultipartRequest(t, "/scan/image", "image", "a.png", png, nil)
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, &fakeScanner{err: tt.scanErr})
			w := httptest.NewRecorder()
			server.scanImageHandler(w, tt.req(t))
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
		})
	}
}

func TestServer_ScanImageHandler_PublishFailureIgnored(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	server := newTestServer(t, &fakeScanner{objects: []metadata.Object{testCode(t, "x")}}, WithPublisher(pub))

	w := httptest.NewRecorder()
	server.scanImageHandler(w, createMultipartRequest(t, "/scan/image", "image", "a.png", encodePNG(t, createTestImage(10, 10)), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, pub.calls, 1)
}

func TestServer_ScanImageHandler_RealScanner(t *testing.T) {
	sc, err := scanner.NewBuilder().WithTypes(metadata.TypeQRCode).Build()
	require.NoError(t, err)
	server := newTestServer(t, sc)

	img := testutil.QRCode(t, "metascan over http", 240)

	w := httptest.NewRecorder()
	server.scanImageHandler(w, createMultipartRequest(t, "/scan/image", "image", "qr.png", testutil.EncodePNG(t, img), nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response ScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, 1, response.Count)
	doc := response.Objects[0]
	assert.Equal(t, metadata.TypeQRCode, doc.Type)
	require.NotNil(t, doc.StringValue)
	assert.Equal(t, "metascan over http", *doc.StringValue)
	assert.Len(t, doc.Corners, 4)
}

func TestServer_ScanPDFHandler(t *testing.T) {
	sc := &fakeScanner{pages: []scanner.PageResult{
		{Page: 1, Index: 0, Width: 100, Height: 50, Objects: []metadata.Object{testCode(t, "p1")}},
		{Page: 2, Index: 0, Width: 100, Height: 50, Objects: []metadata.Object{testFace(t, 2), testCode(t, "p2")}},
	}}
	pub := &fakePublisher{}
	server := newTestServer(t, sc, WithPublisher(pub))

	req := createMultipartRequest(t, "/scan/pdf?types=qr", "pdf", "doc.pdf", []byte("%PDF-1.4"), map[string]string{"pages": "1-2", "password": "pw"})
	w := httptest.NewRecorder()
	server.scanPDFHandler(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var response PDFScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "doc.pdf", response.Source)
	assert.Equal(t, 2, response.Count)
	require.Len(t, response.Pages, 2)
	assert.Equal(t, 2, response.Pages[1].Page)
	assert.Len(t, response.Pages[1].Objects, 1)

	require.Len(t, sc.pdfOpts, 1)
	assert.Equal(t, "1-2", sc.pdfOpts[0].Pages)
	assert.Equal(t, "pw", sc.pdfOpts[0].UserPassword)

	require.Len(t, pub.calls, 2)
	assert.Equal(t, "doc.pdf#p1.0", pub.calls[0].source)
	assert.Equal(t, "doc.pdf#p2.0", pub.calls[1].source)
}

func TestServer_ScanPDFHandler_Errors(t *testing.T) {
	t.Run("no file", func(t *testing.T) {
		server := newTestServer(t, &fakeScanner{})
		w := httptest.NewRecorder()
		server.scanPDFHandler(w, createMultipartRequest(t, "/scan/pdf", "", "", nil, nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("password", func(t *testing.T) {
		server := newTestServer(t, &fakeScanner{err: pdf.ErrPasswordRequired})
		w := httptest.NewRecorder()
		server.scanPDFHandler(w, createMultipartRequest(t, "/scan/pdf", "pdf", "doc.pdf", []byte("%PDF"), nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		server := newTestServer(t, &fakeScanner{})
		w := httptest.NewRecorder()
		server.scanPDFHandler(w, httptest.NewRequest(http.MethodGet, "/scan/pdf", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}
