// Package server assembles the document session services from configuration
// and runs the HTTP server until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophdocs/internal/lockx"
	"github.com/dmitrijs2005/gophdocs/internal/logging"
	"github.com/dmitrijs2005/gophdocs/internal/netx"
	"github.com/dmitrijs2005/gophdocs/internal/server/auth"
	"github.com/dmitrijs2005/gophdocs/internal/server/config"
	"github.com/dmitrijs2005/gophdocs/internal/server/httpapi"
	"github.com/dmitrijs2005/gophdocs/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophdocs/internal/server/services"
	"github.com/dmitrijs2005/gophdocs/internal/server/storage"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, err := logging.New(c.LogBackend, c.LogLevel, os.Stdout)
	if err != nil {
		return nil, err
	}

	db, repos, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := newApp(ctx, c, logger, db, repos)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB, repos repomanager.RepositoryManager) (*App, error) {
	st, err := openStorage(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	policy, err := services.ParseUnresolvedKeyPolicy(c.UnresolvedKeyPolicy)
	if err != nil {
		return nil, err
	}

	fetchOpts := []netx.Option{netx.WithMaxBytes(c.MaxDocumentBytes)}
	if c.AllowLocalCallbackURLs {
		fetchOpts = append(fetchOpts, netx.WithLocal(c.LocalCallbackRoot))
	}
	fetcher := netx.NewFetcher(c.CallbackFetchTimeout, fetchOpts...)

	locks := &lockx.KeyedMutex{}
	ledger := services.NewLedger(db, repos)
	registry := services.NewRegistry(db, repos)
	secret := []byte(c.JWTSecret)

	builder := services.NewDescriptorBuilder(ledger, registry, st, locks, services.DescriptorOptions{
		Secret:            secret,
		RequireSigned:     c.RequireSignedDescriptors,
		TokenTTL:          c.EditorTokenTTL,
		Permissions:       c.Permissions,
		User:              auth.User{ID: c.EditorUserID, Name: c.EditorUserName, Roles: []string{"admin"}},
		Mode:              c.EditorMode,
		DocumentServerURL: c.DocumentServerURL,
	}, logger)
	callbacks := services.NewCallbackService(ledger, registry, st, fetcher, locks, policy, logger)
	reconciler := services.NewReconciler(ledger, registry, st, locks, logger)
	files := services.NewFileService(st, reconciler, c.TemplatesDir, logger)

	srv, err := httpapi.NewServer(files, builder, callbacks, httpapi.ServerConfig{
		PublicBaseURL:       c.PublicBaseURL,
		InternalBaseURL:     c.InternalBaseURL,
		MaxBodyBytes:        c.MaxBodyBytes,
		ShutdownTimeout:     c.ShutdownTimeout,
		VerifyCallbackToken: c.VerifyCallbackToken,
		Secret:              secret,
	}, logger)
	if err != nil {
		return nil, err
	}

	return &App{config: c, logger: logger, db: db, server: srv}, nil
}

// openStorage picks the document backend. Local storage is swept of
// zero-byte and temp files left by interrupted writes.
func openStorage(ctx context.Context, c *config.Config, logger logging.Logger) (storage.Storage, error) {
	switch c.StorageBackend {
	case "s3":
		return storage.NewS3Storage(ctx, storage.S3Config{
			Region:       c.S3Region,
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
			BaseEndpoint: c.S3BaseEndpoint,
			Bucket:       c.S3Bucket,
			Prefix:       c.S3Prefix,
		})
	default:
		st, err := storage.NewLocalStorage(c.FilesDir)
		if err != nil {
			return nil, err
		}
		removed, err := st.RemoveEmptyFiles(ctx)
		if err != nil {
			logger.Warn(ctx, "startup sweep failed", "dir", st.Dir(), "error", err)
		}
		for _, name := range removed {
			logger.Info(ctx, "removed empty file", "file", name)
		}
		return st, nil
	}
}

// watchSignals cancels the app on the first signal from sigs. It returns when
// that happens or when ctx is done.
func (app *App) watchSignals(ctx context.Context, sigs <-chan os.Signal, cancelFunc context.CancelFunc) error {
	select {
	case sig := <-sigs:
		app.logger.Info(ctx, "Signal received", "signal", sig.String())
		cancelFunc()
	case <-ctx.Done():
	}
	return nil
}

// Run serves until ctx is cancelled, a termination signal arrives or the
// server fails, then closes the database.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sigs)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.server.Run(gctx, app.config.HTTPAddr)
	})
	g.Go(func() error {
		return app.watchSignals(gctx, sigs, cancelFunc)
	})

	err := g.Wait()
	if cerr := app.db.Close(); cerr != nil {
		app.logger.Error(ctx, "closing database", "error", cerr)
	}
	app.logger.Info(ctx, "App stopped")
	return err
}
