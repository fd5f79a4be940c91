// Package server exposes the scanner over HTTP.
package server

import (
	"context"
	"image"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/metascan/internal/codec"
	"github.com/MeKo-Tech/metascan/internal/metadata"
	"github.com/MeKo-Tech/metascan/internal/publish"
	"github.com/MeKo-Tech/metascan/internal/scanner"
	"github.com/MeKo-Tech/metascan/internal/store"
)

// imageScanner is the part of *scanner.Scanner the server depends on.
type imageScanner interface {
	ScanImage(ctx context.Context, img image.Image, frame metadata.FrameInfo) ([]metadata.Object, error)
	ScanPDF(ctx context.Context, filename string, opts scanner.PDFOptions) ([]scanner.PageResult, error)
	Close() error
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	scanner     imageScanner
	store       store.Store
	publisher   publish.Publisher
	hub         *Hub
	rateLimiter *RateLimiter
	logger      *slog.Logger

	corsOrigin  string
	maxUploadMB int64
	timeout     time.Duration
	version     string
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	Version     string
	RateLimit   RateLimitConfig
}

// RateLimitConfig enables per-client request limits. Zero limits are off.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64
}

// Option customises a Server.
type Option func(*Server)

// WithStore persists every scan result.
func WithStore(st store.Store) Option { return func(s *Server) { s.store = st } }

// WithPublisher forwards every scan result.
func WithPublisher(p publish.Publisher) Option { return func(s *Server) { s.publisher = p } }

// WithLogger replaces slog.Default.
func WithLogger(l *slog.Logger) Option { return func(s *Server) { s.logger = l } }

// Response types for API endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
	Clients int    `json:"websocket_clients"`
}

type TypeInfo struct {
	Type  metadata.Type `json:"type"`
	Short string        `json:"short"`
	Kind  string        `json:"kind"`
}

type TypesResponse struct {
	Types []TypeInfo `json:"types"`
	Count int        `json:"count"`
}

type ScanResponse struct {
	Success bool             `json:"success"`
	Session string           `json:"session"`
	Source  string           `json:"source"`
	Width   int              `json:"width"`
	Height  int              `json:"height"`
	Count   int              `json:"count"`
	Objects []codec.Document `json:"objects"`
	Counts  map[string]int   `json:"counts,omitempty"`
}

type PageResponse struct {
	Page    int              `json:"page"`
	Index   int              `json:"index"`
	Width   int              `json:"width"`
	Height  int              `json:"height"`
	Objects []codec.Document `json:"objects"`
}

type PDFScanResponse struct {
	Success bool           `json:"success"`
	Session string         `json:"session"`
	Source  string         `json:"source"`
	Count   int            `json:"count"`
	Pages   []PageResponse `json:"pages"`
}

type RecordResponse struct {
	ID       int64          `json:"id"`
	Session  string         `json:"session"`
	StoredAt time.Time      `json:"stored_at"`
	Object   codec.Document `json:"object"`
}

type DescriptorsResponse struct {
	Records []RecordResponse `json:"records"`
	Count   int              `json:"count"`
}

type SessionsResponse struct {
	Sessions []store.Session `json:"sessions"`
	Count    int             `json:"count"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewServer creates a server around sc. Store and publisher are optional.
func NewServer(config Config, sc imageScanner, opts ...Option) *Server {
	s := &Server{
		scanner:     sc,
		publisher:   publish.Nop{},
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeout:     time.Duration(config.TimeoutSec) * time.Second,
		version:     config.Version,
		logger:      slog.Default(),
	}
	if s.maxUploadMB <= 0 {
		s.maxUploadMB = 50
	}
	if s.timeout <= 0 {
		s.timeout = 30 * time.Second
	}
	if rl := config.RateLimit; rl.Enabled {
		s.rateLimiter = NewRateLimiter(rl.RequestsPerMinute, rl.RequestsPerHour, rl.MaxRequestsPerDay, rl.MaxDataPerDay)
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewHub(s.logger)
	return s
}

// Hub returns the websocket hub that receives every scan result.
func (s *Server) Hub() *Hub { return s.hub }

// Close disconnects websocket clients and releases the scanner.
func (s *Server) Close() error {
	s.hub.Close()
	if s.scanner != nil {
		return s.scanner.Close()
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/types", s.corsMiddleware(s.typesHandler))
	mux.HandleFunc("/scan/image", s.corsMiddleware(s.rateLimitMiddleware(s.scanImageHandler)))
	mux.HandleFunc("/scan/pdf", s.corsMiddleware(s.rateLimitMiddleware(s.scanPDFHandler)))
	mux.HandleFunc("/descriptors", s.corsMiddleware(s.descriptorsHandler))
	mux.HandleFunc("/sessions", s.corsMiddleware(s.sessionsHandler))
	mux.HandleFunc("/ws/descriptors", s.descriptorsWebSocketHandler)
	mux.Handle("/metrics", metricsHandler())
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}
