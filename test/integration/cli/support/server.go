package support

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/metascan/internal/scanner"
	"github.com/MeKo-Tech/metascan/internal/server"
	"github.com/MeKo-Tech/metascan/internal/store"
	"github.com/gorilla/websocket"
)

// ServerHarness runs the HTTP API on an httptest server backed by the real
// scanner and an in-memory store.
type ServerHarness struct {
	HTTP   *httptest.Server
	API    *server.Server
	Store  store.Store
	WS     *websocket.Conn
	client *http.Client
}

// StartServer builds the scanner, store and API and starts serving.
func StartServer(ctx context.Context) (*ServerHarness, error) {
	s, err := scanner.NewBuilder().Build()
	if err != nil {
		return nil, fmt.Errorf("build scanner: %w", err)
	}
	st, err := store.Open(ctx, "sqlite", ":memory:")
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	api := server.NewServer(server.Config{Version: "integration"}, s, server.WithStore(st))
	return &ServerHarness{
		HTTP:   httptest.NewServer(api.Handler()),
		API:    api,
		Store:  st,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Close shuts everything down.
func (h *ServerHarness) Close() {
	if h.WS != nil {
		_ = h.WS.Close()
	}
	h.HTTP.Close()
	_ = h.API.Close()
	_ = h.Store.Close()
}

// Get issues a GET request against path.
func (h *ServerHarness) Get(path string) (*http.Response, error) {
	return h.client.Get(h.HTTP.URL + path)
}

// Upload posts file as the multipart field to path.
func (h *ServerHarness) Upload(path, field, file string) (*http.Response, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filepath.Base(file))
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return h.client.Post(h.HTTP.URL+path, writer.FormDataContentType(), &buf)
}

// ConnectWebSocket subscribes to the descriptor stream and waits until the
// hub has registered the connection.
func (h *ServerHarness) ConnectWebSocket() error {
	url := "ws" + strings.TrimPrefix(h.HTTP.URL, "http") + "/ws/descriptors"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	h.WS = conn

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if h.API.Hub().ClientCount() > 0 {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return errors.New("websocket client was not registered")
}

// ReadMessage waits for the next websocket text message.
func (h *ServerHarness) ReadMessage(timeout time.Duration) (string, error) {
	if h.WS == nil {
		return "", errors.New("no websocket connection")
	}
	_ = h.WS.SetReadDeadline(time.Now().Add(timeout))
	_, data, err := h.WS.ReadMessage()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func readResponse(resp *http.Response) (int, string, map[string]string, error) {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", nil, err
	}
	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}
	return resp.StatusCode, string(body), headers, nil
}

// decodeJSON unmarshals the last HTTP response.
func decodeJSON(body string, v any) error {
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("decode response: %w\n%s", err, body)
	}
	return nil
}
