package services

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dmitrijs2005/gophdocs/internal/lockx"
	"github.com/dmitrijs2005/gophdocs/internal/logging"
	"github.com/dmitrijs2005/gophdocs/internal/server/auth"
	"github.com/dmitrijs2005/gophdocs/internal/server/models"
	"github.com/dmitrijs2005/gophdocs/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophdocs/internal/server/storage"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret"
	publicBase = "http://docs.example.com"
)

// env wires the session services over an in-memory SQLite database and a
// temp-dir storage, the way the server does.
type env struct {
	db         *sql.DB
	repos      repomanager.RepositoryManager
	storage    *storage.LocalStorage
	locks      *lockx.KeyedMutex
	ledger     *Ledger
	registry   *Registry
	builder    *DescriptorBuilder
	callbacks  *CallbackService
	reconciler *Reconciler
	files      *FileService
	fetcher    *fakeFetcher
}

type fakeFetcher struct {
	mu    sync.Mutex
	data  map[string][]byte
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.data[location]
	if !ok {
		return nil, errors.New("no such location")
	}
	return b, nil
}

func (f *fakeFetcher) serve(location string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[location] = data
}

func newEnv(t *testing.T, policy UnresolvedKeyPolicy) *env {
	t.Helper()
	ctx := context.Background()

	db, repos, err := repomanager.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	st, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	e := &env{
		db:      db,
		repos:   repos,
		storage: st,
		locks:   &lockx.KeyedMutex{},
		fetcher: &fakeFetcher{data: map[string][]byte{}},
	}
	log := logging.Nop()

	e.ledger = NewLedger(db, repos)
	e.registry = NewRegistry(db, repos)
	e.builder = NewDescriptorBuilder(e.ledger, e.registry, st, e.locks, DescriptorOptions{
		Secret:        []byte(testSecret),
		RequireSigned: true,
		Permissions:   models.AllPermissions(),
		User:          auth.User{ID: "admin", Name: "Administrator", Roles: []string{"admin"}},
	}, log)
	e.callbacks = NewCallbackService(e.ledger, e.registry, st, e.fetcher, e.locks, policy, log)
	e.reconciler = NewReconciler(e.ledger, e.registry, st, e.locks, log)
	e.files = NewFileService(st, e.reconciler, t.TempDir(), log)
	return e
}

func (e *env) put(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, e.storage.Write(context.Background(), name, []byte(content)))
}

func (e *env) read(t *testing.T, name string) string {
	t.Helper()
	b, err := e.storage.Read(context.Background(), name)
	require.NoError(t, err)
	return string(b)
}

func writeTemplate(e *env, ext, content string) error {
	return os.WriteFile(filepath.Join(e.files.templatesDir, "blank"+ext), []byte(content), 0o600)
}
