// Package config handles configuration for the server: defaults, an
// optional JSON or YAML file, GOPHDOCS_* environment variables and
// command-line flags, applied in that order.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophdocs/internal/common"
	"github.com/dmitrijs2005/gophdocs/internal/server/models"
)

// Config holds runtime settings for the gophdocs server.
type Config struct {
	HTTPAddr        string
	DatabaseDSN     string
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64

	// JWTSecret is shared with the document server. There is no default.
	JWTSecret string
	// RequireSignedDescriptors refuses to start without JWTSecret.
	RequireSignedDescriptors bool
	EditorTokenTTL           time.Duration
	// VerifyCallbackToken requires save-back callbacks to carry a token
	// signed with JWTSecret.
	VerifyCallbackToken bool

	// PublicBaseURL overrides the base URL derived from each request.
	PublicBaseURL string
	// InternalBaseURL is how the document server reaches this service,
	// e.g. "backend:4000" inside a docker network.
	InternalBaseURL   string
	DocumentServerURL string
	EditorMode        string
	EditorUserID      string
	EditorUserName    string
	Permissions       models.Permissions

	StorageBackend string
	FilesDir       string
	TemplatesDir   string
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3Prefix       string

	CallbackFetchTimeout   time.Duration
	MaxDocumentBytes       int64
	UnresolvedKeyPolicy    string
	AllowLocalCallbackURLs bool
	LocalCallbackRoot      string

	LogBackend string
	LogLevel   string
}

// LoadDefaults populates Config with development defaults. JWTSecret is
// intentionally left empty.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":4000"
	c.DatabaseDSN = "sqlite://data/state.db"
	c.ShutdownTimeout = 10 * time.Second
	c.MaxBodyBytes = 64 << 20

	c.RequireSignedDescriptors = true
	c.EditorTokenTTL = time.Hour
	c.VerifyCallbackToken = true

	c.DocumentServerURL = "http://localhost:80"
	c.EditorMode = "edit"
	c.EditorUserID = "admin"
	c.EditorUserName = "Administrator"
	c.Permissions = models.AllPermissions()

	c.StorageBackend = "local"
	c.FilesDir = "data/files"
	c.TemplatesDir = "templates"
	c.S3Region = "us-east-1"

	c.CallbackFetchTimeout = 30 * time.Second
	c.MaxDocumentBytes = 512 << 20
	c.UnresolvedKeyPolicy = "fallback"

	c.LogBackend = "slog"
	c.LogLevel = "info"
}

// LoadConfig applies defaults, then the config file named by -c/-config,
// then the environment, then flags, and validates the result.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseFile(cfg); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.RequireSignedDescriptors && c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt secret is required when signed descriptors are required"))
	}
	if c.VerifyCallbackToken && c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt secret is required to verify callback tokens"))
	}
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http address is empty"))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database dsn is empty"))
	}
	switch c.StorageBackend {
	case "local":
		if c.FilesDir == "" {
			errs = append(errs, errors.New("files dir is empty"))
		}
	case "s3":
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("s3 bucket is empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.StorageBackend))
	}
	switch c.UnresolvedKeyPolicy {
	case "", "fallback", "reject":
	default:
		errs = append(errs, fmt.Errorf("unknown unresolved key policy %q", c.UnresolvedKeyPolicy))
	}
	switch c.LogBackend {
	case "", "slog", "zap":
	default:
		errs = append(errs, fmt.Errorf("unknown log backend %q", c.LogBackend))
	}
	if c.EditorTokenTTL <= 0 {
		errs = append(errs, errors.New("editor token ttl must be positive"))
	}
	if c.CallbackFetchTimeout <= 0 {
		errs = append(errs, errors.New("callback fetch timeout must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", common.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}
