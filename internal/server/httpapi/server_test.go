package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophdocs/internal/common"
	"github.com/dmitrijs2005/gophdocs/internal/lockx"
	"github.com/dmitrijs2005/gophdocs/internal/logging"
	"github.com/dmitrijs2005/gophdocs/internal/netx"
	"github.com/dmitrijs2005/gophdocs/internal/server/auth"
	"github.com/dmitrijs2005/gophdocs/internal/server/models"
	"github.com/dmitrijs2005/gophdocs/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophdocs/internal/server/services"
	"github.com/dmitrijs2005/gophdocs/internal/server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "http-test-secret"

type harness struct {
	server    *Server
	storage   *storage.LocalStorage
	templates string
	upstream  *httptest.Server
	served    []byte
}

type harnessOption func(*ServerConfig)

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	ctx := context.Background()

	db, repos, err := repomanager.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	st, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	h := &harness{storage: st, templates: t.TempDir()}
	h.upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cache/out" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(h.served)
	}))
	t.Cleanup(h.upstream.Close)

	log := logging.Nop()
	locks := &lockx.KeyedMutex{}
	ledger := services.NewLedger(db, repos)
	registry := services.NewRegistry(db, repos)
	builder := services.NewDescriptorBuilder(ledger, registry, st, locks, services.DescriptorOptions{
		Secret:        []byte(secret),
		RequireSigned: true,
		Permissions:   models.AllPermissions(),
		User:          auth.User{ID: "admin", Name: "Administrator", Roles: []string{"admin"}},
	}, log)
	fetcher := netx.NewFetcher(5 * time.Second)
	callbacks := services.NewCallbackService(ledger, registry, st, fetcher, locks, services.PolicyFallback, log)
	reconciler := services.NewReconciler(ledger, registry, st, locks, log)
	files := services.NewFileService(st, reconciler, h.templates, log)

	cfg := ServerConfig{Secret: []byte(secret), MaxBodyBytes: 1 << 20}
	for _, o := range opts {
		o(&cfg)
	}
	h.server, err = NewServer(files, builder, callbacks, cfg, log)
	require.NoError(t, err)
	return h
}

func (h *harness) do(t *testing.T, method, path string, body io.Reader, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.server.ServeHTTP(rec, req)
	return rec
}

func (h *harness) put(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, h.storage.Write(context.Background(), name, []byte(content)))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(common.RequestIDHeaderName))
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/files/missing", nil, common.RequestIDHeaderName, "abc-123")
	assert.Equal(t, "abc-123", rec.Header().Get(common.RequestIDHeaderName))
}

func TestListFiles(t *testing.T) {
	h := newHarness(t)
	h.put(t, "a.docx", "a")
	h.put(t, "b.xlsx", "bb")

	rec := h.do(t, http.MethodGet, "/api/files?page=1&perPage=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	page := decode[models.FilePage](t, rec)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 1, page.PerPage)
	assert.Len(t, page.Items, 1)

	rec = h.do(t, http.MethodGet, "/api/files?page=abc&perPage=-4", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode[models.FilePage](t, rec)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, services.DefaultPerPage, page.PerPage)
}

func TestDownload(t *testing.T) {
	h := newHarness(t)
	h.put(t, "report.pdf", "%PDF-1.4 body")

	rec := h.do(t, http.MethodGet, "/files/report.pdf?v=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF-1.4 body", rec.Body.String())
	assert.Empty(t, rec.Header().Get("Content-Disposition"))

	rec = h.do(t, http.MethodGet, "/files/report.pdf?download=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="report.pdf"`, rec.Header().Get("Content-Disposition"))

	rec = h.do(t, http.MethodGet, "/files/missing.pdf", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateUploadDelete(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.WriteFile(filepath.Join(h.templates, "blank.docx"), []byte("BLANK"), 0o600))

	rec := h.do(t, http.MethodPost, "/api/files/create", strings.NewReader(`{"name":"memo"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"ok":true,"name":"memo.docx"}`, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/api/files/create", strings.NewReader(`{"name":"memo.docx"}`))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/files/create", strings.NewReader(`{"name":"sheet","format":"xlsx"}`))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "no_valid_local_template", decode[map[string]any](t, rec)["error"])

	rec = h.do(t, http.MethodPost, "/api/files/create", strings.NewReader(`{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/files/create", strings.NewReader(`not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodPut, "/api/files/upload.docx", strings.NewReader("raw bytes"))
	require.Equal(t, http.StatusOK, rec.Code)
	data, err := h.storage.Read(context.Background(), "upload.docx")
	require.NoError(t, err)
	assert.Equal(t, "raw bytes", string(data))

	rec = h.do(t, http.MethodDelete, "/api/files/upload.docx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(t, http.MethodDelete, "/api/files/upload.docx", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadTooLarge(t *testing.T) {
	h := newHarness(t, func(c *ServerConfig) { c.MaxBodyBytes = 8 })

	rec := h.do(t, http.MethodPut, "/api/files/big.docx", bytes.NewReader(make([]byte, 64)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestEditorDescriptor(t *testing.T) {
	h := newHarness(t)
	h.put(t, "deck.pptx", "slides")

	rec := h.do(t, http.MethodGet, "/api/editor/deck.pptx", nil,
		"X-Forwarded-Proto", "https", "X-Forwarded-Host", "docs.example.com")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var d map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, "slide", d["documentType"])
	assert.NotEmpty(t, d["token"])
	assert.NotContains(t, d, "Generation")

	doc := d["document"].(map[string]any)
	assert.Equal(t, "https://docs.example.com/files/deck.pptx?v=0", doc["url"])
	assert.Equal(t, "pptx", doc["fileType"])
	assert.Len(t, doc["key"], 64)

	ec := d["editorConfig"].(map[string]any)
	assert.Equal(t, "https://docs.example.com/onlyoffice/webhook", ec["callbackUrl"])

	rec = h.do(t, http.MethodGet, "/api/editor/missing.docx", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEditorDescriptor_InternalBase(t *testing.T) {
	h := newHarness(t, func(c *ServerConfig) {
		c.PublicBaseURL = "https://public.example.com"
		c.InternalBaseURL = "backend:4000"
	})
	h.put(t, "a.docx", "x")

	rec := h.do(t, http.MethodGet, "/api/editor/a.docx", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	d := decode[models.Descriptor](t, rec)
	assert.Equal(t, "http://backend:4000/files/a.docx?v=0", d.Document.URL)
	assert.Equal(t, "http://backend:4000/onlyoffice/webhook", d.EditorConfig.CallbackURL)
}

func TestPublicBaseURL(t *testing.T) {
	s := &Server{}

	r := httptest.NewRequest(http.MethodGet, "http://localhost:4000/api/editor/a.docx", nil)
	assert.Equal(t, "http://localhost:4000", s.publicBaseURL(r))

	r.Header.Set("X-Forwarded-Proto", "https, http")
	r.Header.Set("X-Forwarded-Host", "docs.example.com")
	assert.Equal(t, "https://docs.example.com", s.publicBaseURL(r))

	s.cfg.PublicBaseURL = "https://fixed.example.com"
	assert.Equal(t, "https://fixed.example.com", s.publicBaseURL(r))
}

func TestMethodNotAllowed(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/onlyoffice/webhook", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestParseBoundedInt(t *testing.T) {
	assert.Equal(t, 5, parseBoundedInt("", 5, 1, 10))
	assert.Equal(t, 5, parseBoundedInt("x", 5, 1, 10))
	assert.Equal(t, 5, parseBoundedInt("0", 5, 1, 10))
	assert.Equal(t, 10, parseBoundedInt("99", 5, 1, 10))
	assert.Equal(t, 7, parseBoundedInt(" 7 ", 5, 1, 10))
}
