package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/metascan/internal/codec"
	"github.com/MeKo-Tech/metascan/internal/geometry"
	"github.com/MeKo-Tech/metascan/internal/metadata"
	"github.com/MeKo-Tech/metascan/internal/store"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: s.version,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Clients: s.hub.ClientCount(),
	})
}

// typesHandler lists the descriptor type vocabulary.
func (s *Server) typesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	known := metadata.KnownTypes()
	infos := make([]TypeInfo, len(known))
	for i, t := range known {
		infos[i] = TypeInfo{Type: t, Short: t.ShortName(), Kind: t.Kind().String()}
	}
	s.writeJSON(w, http.StatusOK, TypesResponse{Types: infos, Count: len(infos)})
}

// descriptorsHandler lists stored descriptors, newest first.
func (s *Server) descriptorsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		s.writeErrorResponse(w, "no descriptor store configured", http.StatusServiceUnavailable)
		return
	}

	q := store.Query{SessionID: r.URL.Query().Get("session")}
	types, err := parseTypesParam(r.URL.Query()["type"])
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	q.Types = types
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeErrorResponse(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		q.Limit = n
	}

	recs, err := s.store.List(r.Context(), q)
	if err != nil {
		s.logger.Error("list descriptors", "error", err)
		s.writeErrorResponse(w, "failed to list descriptors", http.StatusInternalServerError)
		return
	}

	out := DescriptorsResponse{Records: make([]RecordResponse, 0, len(recs))}
	for _, rec := range recs {
		doc, err := codec.Encode(rec.Object)
		if err != nil {
			s.logger.Warn("skipping stored descriptor", "id", rec.ID, "error", err)
			continue
		}
		out.Records = append(out.Records, RecordResponse{ID: rec.ID, Session: rec.SessionID, StoredAt: rec.StoredAt, Object: doc})
	}
	out.Count = len(out.Records)
	s.writeJSON(w, http.StatusOK, out)
}

// sessionsHandler lists scan sessions known to the store.
func (s *Server) sessionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		s.writeErrorResponse(w, "no descriptor store configured", http.StatusServiceUnavailable)
		return
	}
	sessions, err := s.store.Sessions(r.Context())
	if err != nil {
		s.logger.Error("list sessions", "error", err)
		s.writeErrorResponse(w, "failed to list sessions", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, SessionsResponse{Sessions: sessions, Count: len(sessions)})
}

// parseTypesParam accepts repeated and comma separated type names.
func parseTypesParam(values []string) ([]metadata.Type, error) {
	var names []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				names = append(names, part)
			}
		}
	}
	if len(names) == 0 {
		return nil, nil
	}
	return metadata.ParseTypes(names)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error body.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, ErrorResponse{Success: false, Error: message})
}

// statusForScanError maps scanner failures to HTTP status codes.
func statusForScanError(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, metadata.ErrInvalidDescriptor), errors.Is(err, geometry.ErrEmptyFrame):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
