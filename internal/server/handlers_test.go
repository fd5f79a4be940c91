package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MeKo-Tech/metascan/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_HealthHandler(t *testing.T) {
	server := newTestServer(t, &fakeScanner{})

	tests := []struct {
		name           string
		method         string
		expectedStatus int
	}{
		{name: "GET request success", method: http.MethodGet, expectedStatus: http.StatusOK},
		{name: "POST request not allowed", method: http.MethodPost, expectedStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.healthHandler(w, httptest.NewRequest(tt.method, "/health", nil))
			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedStatus == http.StatusOK {
				var response HealthResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
				assert.Equal(t, "healthy", response.Status)
				assert.Equal(t, "test", response.Version)
				assert.NotEmpty(t, response.Time)
				assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			}
		})
	}
}

func TestServer_TypesHandler(t *testing.T) {
	server := newTestServer(t, &fakeScanner{})

	w := httptest.NewRecorder()
	server.typesHandler(w, httptest.NewRequest(http.MethodGet, "/types", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var response TypesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, len(metadata.KnownTypes()), response.Count)
	assert.Contains(t, response.Types, TypeInfo{Type: metadata.TypeQRCode, Short: "qr", Kind: "code"})
	assert.Contains(t, response.Types, TypeInfo{Type: metadata.TypeFace, Short: "face", Kind: "face"})
}

func TestServer_DescriptorsHandler(t *testing.T) {
	t.Run("no store", func(t *testing.T) {
		server := newTestServer(t, &fakeScanner{})
		w := httptest.NewRecorder()
		server.descriptorsHandler(w, httptest.NewRequest(http.MethodGet, "/descriptors", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	st := newTestStore(t)
	require.NoError(t, st.Save(context.Background(), "s1", []metadata.Object{testFace(t, 1), testCode(t, "a")}))
	require.NoError(t, st.Save(context.Background(), "s2", []metadata.Object{testCode(t, "b")}))
	server := newTestServer(t, &fakeScanner{}, WithStore(st))

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		expectedCount  int
	}{
		{name: "all", query: "", expectedStatus: http.StatusOK, expectedCount: 3},
		{name: "by session", query: "?session=s1", expectedStatus: http.StatusOK, expectedCount: 2},
		{name: "by short type", query: "?type=qr", expectedStatus: http.StatusOK, expectedCount: 2},
		{name: "by types", query: "?type=face,qr&session=s1", expectedStatus: http.StatusOK, expectedCount: 2},
		{name: "limit", query: "?limit=1", expectedStatus: http.StatusOK, expectedCount: 1},
		{name: "bad type", query: "?type=hologram", expectedStatus: http.StatusBadRequest},
		{name: "bad limit", query: "?limit=-2", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.descriptorsHandler(w, httptest.NewRequest(http.MethodGet, "/descriptors"+tt.query, nil))
			require.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus != http.StatusOK {
				return
			}
			var response DescriptorsResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.expectedCount, response.Count)
			assert.Len(t, response.Records, tt.expectedCount)
		})
	}
}

func TestServer_SessionsHandler(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.Save(context.Background(), "alpha", []metadata.Object{testCode(t, "x")}))
	server := newTestServer(t, &fakeScanner{}, WithStore(st))

	w := httptest.NewRecorder()
	server.sessionsHandler(w, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var response SessionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, 1, response.Count)
	assert.Equal(t, "alpha", response.Sessions[0].ID)
	assert.Equal(t, 1, response.Sessions[0].Objects)
}

func TestServer_Routes(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t, &fakeScanner{}).Handler())
	defer ts.Close()

	for _, path := range []string{"/health", "/types", "/metrics"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "metascan_http_requests_total")
}

func TestParseTypesParam(t *testing.T) {
	types, err := parseTypesParam([]string{"qr, ean13", "", "face"})
	require.NoError(t, err)
	assert.Equal(t, []metadata.Type{metadata.TypeQRCode, metadata.TypeEAN13Code, metadata.TypeFace}, types)

	types, err = parseTypesParam(nil)
	require.NoError(t, err)
	assert.Nil(t, types)

	_, err = parseTypesParam([]string{"bogus"})
	assert.ErrorIs(t, err, metadata.ErrUnknownType)
}
