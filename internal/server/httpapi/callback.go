package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gophdocs/internal/common"
	"github.com/dmitrijs2005/gophdocs/internal/server/auth"
	"github.com/dmitrijs2005/gophdocs/internal/server/models"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const callbackSchemaURL = "gophdocs://schemas/callback.json"

// callbackSchema describes the fields of the document server's callback
// this service reads. Unknown fields are allowed.
const callbackSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["key", "status"],
  "properties": {
    "key":      {"type": "string", "minLength": 1, "maxLength": 128},
    "status":   {"type": "integer"},
    "url":      {"type": "string"},
    "filetype": {"type": "string"},
    "users":    {"type": "array", "items": {"type": "string"}},
    "token":    {"type": "string"}
  }
}`

func compileCallbackSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(callbackSchema))
	if err != nil {
		return nil, fmt.Errorf("callback schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(callbackSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("callback schema: %w", err)
	}
	return c.Compile(callbackSchemaURL)
}

type callbackRequest struct {
	Key      string   `json:"key"`
	Status   int      `json:"status"`
	URL      string   `json:"url"`
	FileType string   `json:"filetype"`
	Users    []string `json:"users"`
	Token    string   `json:"token"`
}

type callbackResponse struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

func writeCallback(w http.ResponseWriter, status int, message string) {
	code := 0
	if status != http.StatusOK {
		code = 1
	}
	writeJSON(w, status, callbackResponse{Error: code, Message: message})
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, ok := s.readCallbackBody(w, r)
	if !ok {
		return
	}

	if s.cfg.VerifyCallbackToken {
		payload, err := s.verifyCallbackToken(r, body)
		if err != nil {
			s.log.Warn(ctx, "callback token rejected", "error", err)
			writeCallback(w, http.StatusUnauthorized, "invalid token")
			return
		}
		body = payload
	}

	req, err := s.decodeCallback(body)
	if err != nil {
		s.log.Warn(ctx, "malformed callback", "error", err)
		writeCallback(w, http.StatusBadRequest, "malformed callback")
		return
	}

	cb := &models.Callback{
		Key:      req.Key,
		Status:   models.CallbackStatus(req.Status),
		URL:      req.URL,
		FileType: req.FileType,
		Users:    req.Users,
	}

	res, err := s.callbacks.Handle(ctx, cb)
	switch {
	case err == nil && res.Outcome == models.OutcomeNotReady:
		writeCallback(w, http.StatusOK, "Document not ready for save")
	case err == nil:
		writeCallback(w, http.StatusOK, "Document saved successfully")
	case errors.Is(err, common.ErrMalformedCallback):
		writeCallback(w, http.StatusBadRequest, "malformed callback")
	case errors.Is(err, common.ErrorNotFound):
		s.log.Warn(ctx, "callback for unknown session key", "key", cb.Key)
		writeCallback(w, http.StatusNotFound, "unknown document key")
	case errors.Is(err, common.ErrSaveFetch):
		s.log.Error(ctx, "save-back fetch failed", "key", cb.Key, "error", err)
		writeCallback(w, http.StatusInternalServerError, "Failed to download document")
	default:
		s.log.Error(ctx, "save-back failed", "key", cb.Key, "error", err)
		writeCallback(w, http.StatusInternalServerError, "Failed to save document")
	}
}

func (s *Server) readCallbackBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r.Body); err != nil {
		writeCallback(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	return buf.Bytes(), true
}

// verifyCallbackToken checks the token in the body, falling back to the
// Authorization header, and returns the callback it carries.
func (s *Server) verifyCallbackToken(r *http.Request, body []byte) ([]byte, error) {
	var carrier struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(body, &carrier)

	token := carrier.Token
	if token == "" {
		token = bearerToken(r.Header.Get("Authorization"))
	}
	if token == "" {
		return nil, common.ErrInvalidToken
	}
	return auth.ParseCallbackToken(token, s.cfg.Secret)
}

// decodeCallback validates raw against the callback schema and decodes it.
func (s *Server) decodeCallback(raw []byte) (*callbackRequest, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	if err := s.schema.Validate(inst); err != nil {
		return nil, err
	}

	var req callbackRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func bearerToken(h string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
