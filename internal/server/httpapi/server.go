// Package httpapi exposes the document and session services over HTTP: the
// browser-facing file and editor routes and the document server's save-back
// callback.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophdocs/internal/common"
	"github.com/dmitrijs2005/gophdocs/internal/logging"
	"github.com/dmitrijs2005/gophdocs/internal/server/services"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

type ServerConfig struct {
	// PublicBaseURL overrides the base derived from the request.
	PublicBaseURL string
	// InternalBaseURL is how the document server reaches this service.
	InternalBaseURL     string
	MaxBodyBytes        int64
	ShutdownTimeout     time.Duration
	VerifyCallbackToken bool
	Secret              []byte
}

type Server struct {
	files     *services.FileService
	builder   *services.DescriptorBuilder
	callbacks *services.CallbackService
	cfg       ServerConfig
	log       logging.Logger
	schema    *jsonschema.Schema
	handler   http.Handler
}

func NewServer(files *services.FileService, builder *services.DescriptorBuilder, callbacks *services.CallbackService, cfg ServerConfig, log logging.Logger) (*Server, error) {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 20
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.VerifyCallbackToken && len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("%w: callback token verification needs a secret", common.ErrConfiguration)
	}

	schema, err := compileCallbackSchema()
	if err != nil {
		return nil, err
	}

	s := &Server{
		files:     files,
		builder:   builder,
		callbacks: callbacks,
		cfg:       cfg,
		log:       log.With("module", "http"),
		schema:    schema,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/files", s.handleListFiles)
	mux.HandleFunc("POST /api/files/create", s.handleCreateFile)
	mux.HandleFunc("PUT /api/files/{name}", s.handleUploadFile)
	mux.HandleFunc("DELETE /api/files/{name}", s.handleDeleteFile)
	mux.HandleFunc("GET "+common.FilesPath+"{name}", s.handleDownload)
	mux.HandleFunc("GET /api/editor/{name}", s.handleEditor)
	mux.HandleFunc("POST "+common.CallbackPath, s.handleCallback)

	s.handler = s.withRequestLog(mux)
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := parseBoundedInt(q.Get("page"), 1, 1, 1<<20)
	perPage := parseBoundedInt(q.Get("perPage"), services.DefaultPerPage, 1, 1000)

	res, err := s.files.List(r.Context(), page, perPage)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type createRequest struct {
	Name   string `json:"name"`
	Format string `json:"format"`
}

func (s *Server) handleCreateFile(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !s.decodeJSONBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, http.StatusBadRequest, "bad_request", "missing name")
		return
	}

	name, err := s.files.Create(r.Context(), req.Name, req.Format)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "name": name})
}

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readRequestBody(w, r)
	if !ok {
		return
	}
	name, err := s.files.Upload(r.Context(), r.PathValue("name"), body)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "name": name})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	if err := s.files.Delete(r.Context(), r.PathValue("name")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	doc, err := s.files.Open(r.Context(), r.PathValue("name"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.Header().Set("Cache-Control", "no-cache")
	if r.URL.Query().Get("download") == "1" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Name))
	}
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(doc.Data)
	}
}

func (s *Server) handleEditor(w http.ResponseWriter, r *http.Request) {
	d, err := s.builder.Build(r.Context(), r.PathValue("name"), s.publicBaseURL(r), s.cfg.InternalBaseURL)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// publicBaseURL is the configured override, else the scheme and host the
// browser used, honoring a reverse proxy's X-Forwarded-* headers.
func (s *Server) publicBaseURL(r *http.Request) string {
	if s.cfg.PublicBaseURL != "" {
		return s.cfg.PublicBaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := firstValue(r.Header.Get("X-Forwarded-Proto")); p != "" {
		scheme = p
	}
	host := r.Host
	if h := firstValue(r.Header.Get("X-Forwarded-Host")); h != "" {
		host = h
	}
	return scheme + "://" + host
}

func firstValue(v string) string {
	first, _, _ := strings.Cut(v, ",")
	return strings.TrimSpace(first)
}

// writeServiceError maps service errors to HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, common.ErrorNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, common.ErrInvalidName):
		status, code = http.StatusBadRequest, "invalid_name"
	case errors.Is(err, common.ErrAlreadyExists):
		status, code = http.StatusConflict, "file_exists"
	case errors.Is(err, common.ErrNoTemplate):
		status, code = http.StatusInternalServerError, "no_valid_local_template"
	case errors.Is(err, common.ErrConfiguration):
		status, code = http.StatusInternalServerError, "configuration_error"
	case errors.Is(err, common.ErrPersistence):
		status, code = http.StatusInternalServerError, "persistence_error"
	}

	if status >= http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeError(w, r, status, code, err.Error())
}

func (s *Server) readRequestBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", "request body exceeds configured limit")
			return nil, false
		}
		writeError(w, r, http.StatusBadRequest, "bad_request", "failed to read request body")
		return nil, false
	}
	return body, true
}

func (s *Server) decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, ok := s.readRequestBody(w, r)
	if !ok {
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", "invalid json body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error":     code,
		"message":   message,
		"requestId": logging.RequestID(r.Context()),
	})
}

func parseBoundedInt(raw string, fallback, min, max int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	if parsed < min {
		return fallback
	}
	if parsed > max {
		return max
	}
	return parsed
}
