package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/MeKo-Tech/metascan/internal/codec"
	"github.com/MeKo-Tech/metascan/internal/metadata"
	"github.com/MeKo-Tech/metascan/internal/pdf"
	"github.com/MeKo-Tech/metascan/internal/scanner"
	"github.com/google/uuid"
)

// scanParams are the per-request options shared by the scan endpoints.
type scanParams struct {
	types     []metadata.Type
	normalize bool
	format    codec.Format
	session   string
	source    string
}

// parseScanParams reads types, normalize, format, session and source from
// the query string or form.
func parseScanParams(r *http.Request, defaultSource string) (scanParams, error) {
	var p scanParams
	types, err := parseTypesParam(r.Form["types"])
	if err != nil {
		return p, err
	}
	p.types = types

	if v := r.FormValue("normalize"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return p, fmt.Errorf("normalize must be a boolean: %q", v)
		}
		p.normalize = b
	}

	if p.format, err = codec.ParseFormat(r.FormValue("format")); err != nil {
		return p, err
	}

	p.session = r.FormValue("session")
	if p.session == "" {
		p.session = uuid.NewString()
	}
	p.source = r.FormValue("source")
	if p.source == "" {
		p.source = defaultSource
	}
	return p, nil
}

// parseUpload limits the body, parses the multipart form and opens field.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request, field string) (multipart.File, *multipart.FileHeader, bool) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		}
		return nil, nil, false
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("No %s file provided", field), http.StatusBadRequest)
		return nil, nil, false
	}
	uploadSizeBytes.Observe(float64(header.Size))
	return file, header, true
}

// scanImageHandler scans one uploaded image.
func (s *Server) scanImageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	file, header, ok := s.parseUpload(w, r, "image")
	if !ok {
		scanRequestsTotal.WithLabelValues("image", "error").Inc()
		return
	}
	defer func() { _ = file.Close() }()

	params, err := parseScanParams(r, header.Filename)
	if err != nil {
		scanRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	img, _, err := scanner.DecodeImage(file)
	if err != nil {
		scanRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeErrorResponse(w, fmt.Sprintf("Failed to decode image: %v", err), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	frame := scanner.StillFrame(img)
	frame.Normalize = params.normalize

	start := time.Now()
	objs, err := s.scanner.ScanImage(ctx, img, frame)
	if err != nil {
		scanRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeErrorResponse(w, fmt.Sprintf("Scan failed: %v", err), statusForScanError(err))
		return
	}
	objs = filterTypes(objs, params.types)

	if err := s.deliver(ctx, params.session, params.source, objs); err != nil {
		scanRequestsTotal.WithLabelValues("image", "error").Inc()
		s.writeErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}
	scanRequestsTotal.WithLabelValues("image", "success").Inc()
	scanDuration.WithLabelValues("image").Observe(time.Since(start).Seconds())
	recordDescriptors(objs)

	if params.format != codec.FormatJSON {
		s.writeRendered(w, params.format, []codec.Frame{{Source: params.source, Objects: objs}})
		return
	}

	docs, err := codec.EncodeAll(objs)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}
	b := img.Bounds()
	s.writeJSON(w, http.StatusOK, ScanResponse{
		Success: true,
		Session: params.session,
		Source:  params.source,
		Width:   b.Dx(),
		Height:  b.Dy(),
		Count:   len(docs),
		Objects: docs,
		Counts:  shortCounts(objs),
	})
}

// scanPDFHandler scans the embedded images of an uploaded PDF.
func (s *Server) scanPDFHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	file, header, ok := s.parseUpload(w, r, "pdf")
	if !ok {
		scanRequestsTotal.WithLabelValues("pdf", "error").Inc()
		return
	}
	defer func() { _ = file.Close() }()

	params, err := parseScanParams(r, header.Filename)
	if err != nil {
		scanRequestsTotal.WithLabelValues("pdf", "error").Inc()
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	path, err := spoolUpload(file)
	if err != nil {
		scanRequestsTotal.WithLabelValues("pdf", "error").Inc()
		s.writeErrorResponse(w, "Failed to store upload", http.StatusInternalServerError)
		return
	}
	defer func() { _ = os.Remove(path) }()

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	opts := scanner.PDFOptions{
		Options: pdf.Options{
			Pages:         r.FormValue("pages"),
			UserPassword:  r.FormValue("password"),
			OwnerPassword: r.FormValue("owner_password"),
		},
		Normalize: params.normalize,
	}

	start := time.Now()
	pages, err := s.scanner.ScanPDF(ctx, path, opts)
	if err != nil {
		scanRequestsTotal.WithLabelValues("pdf", "error").Inc()
		status := statusForScanError(err)
		if pdf.IsPasswordError(err) {
			status = http.StatusUnauthorized
		}
		s.writeErrorResponse(w, fmt.Sprintf("Scan failed: %v", err), status)
		return
	}

	resp := PDFScanResponse{Success: true, Session: params.session, Source: params.source}
	frames := make([]codec.Frame, 0, len(pages))
	for _, p := range pages {
		objs := filterTypes(p.Objects, params.types)
		source := p.Source(params.source)
		if err := s.deliver(ctx, params.session, source, objs); err != nil {
			scanRequestsTotal.WithLabelValues("pdf", "error").Inc()
			s.writeErrorResponse(w, err.Error(), http.StatusInternalServerError)
			return
		}
		recordDescriptors(objs)
		frames = append(frames, codec.Frame{Source: source, Objects: objs})

		docs, err := codec.EncodeAll(objs)
		if err != nil {
			s.writeErrorResponse(w, err.Error(), http.StatusInternalServerError)
			return
		}
		resp.Pages = append(resp.Pages, PageResponse{Page: p.Page, Index: p.Index, Width: p.Width, Height: p.Height, Objects: docs})
		resp.Count += len(docs)
	}
	scanRequestsTotal.WithLabelValues("pdf", "success").Inc()
	scanDuration.WithLabelValues("pdf").Observe(time.Since(start).Seconds())

	if params.format != codec.FormatJSON {
		s.writeRendered(w, params.format, frames)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// deliver stores, publishes and broadcasts the descriptors of one source.
// Only a storage failure is reported; publishing is best effort.
func (s *Server) deliver(ctx context.Context, session, source string, objs []metadata.Object) error {
	if s.store != nil && len(objs) > 0 {
		if err := s.store.Save(ctx, session, objs); err != nil {
			s.logger.Error("store descriptors", "session", session, "error", err)
			return fmt.Errorf("failed to store descriptors: %w", err)
		}
	}
	if err := s.publisher.Publish(ctx, source, objs); err != nil {
		s.logger.Warn("publish descriptors", "source", source, "error", err)
	}
	s.hub.BroadcastScan(session, source, objs)
	return nil
}

func (s *Server) writeRendered(w http.ResponseWriter, format codec.Format, frames []codec.Frame) {
	switch format {
	case codec.FormatYAML:
		w.Header().Set("Content-Type", "application/yaml")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	if err := codec.Write(w, format, frames); err != nil {
		s.logger.Error("render response", "format", format, "error", err)
	}
}

// spoolUpload copies an upload to a temporary file, which the caller removes.
func spoolUpload(src io.Reader) (string, error) {
	tmp, err := os.CreateTemp("", "metascan-upload-*.pdf")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, src); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func filterTypes(objs []metadata.Object, types []metadata.Type) []metadata.Object {
	if len(types) == 0 {
		return objs
	}
	return metadata.FilterByType(objs, types...)
}

func shortCounts(objs []metadata.Object) map[string]int {
	out := make(map[string]int)
	for t, n := range metadata.CountByType(objs) {
		out[t.ShortName()] = n
	}
	return out
}
