package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "GOPHDOCS_"

// parseEnv overlays config with GOPHDOCS_* variables. Malformed values are
// reported together.
func parseEnv(config *Config) error {
	e := &envReader{}

	e.str("HTTP_ADDR", &config.HTTPAddr)
	e.str("DATABASE_DSN", &config.DatabaseDSN)
	e.duration("SHUTDOWN_TIMEOUT", &config.ShutdownTimeout)
	e.int64("MAX_BODY_BYTES", &config.MaxBodyBytes)

	e.str("JWT_SECRET", &config.JWTSecret)
	e.bool("REQUIRE_SIGNED_DESCRIPTORS", &config.RequireSignedDescriptors)
	e.duration("EDITOR_TOKEN_TTL", &config.EditorTokenTTL)
	e.bool("VERIFY_CALLBACK_TOKEN", &config.VerifyCallbackToken)

	e.str("PUBLIC_BASE_URL", &config.PublicBaseURL)
	e.str("INTERNAL_BASE_URL", &config.InternalBaseURL)
	e.str("DOCUMENT_SERVER_URL", &config.DocumentServerURL)
	e.str("EDITOR_MODE", &config.EditorMode)

	e.str("STORAGE_BACKEND", &config.StorageBackend)
	e.str("FILES_DIR", &config.FilesDir)
	e.str("TEMPLATES_DIR", &config.TemplatesDir)
	e.str("S3_ACCESS_KEY", &config.S3AccessKey)
	e.str("S3_SECRET_KEY", &config.S3SecretKey)
	e.str("S3_BUCKET", &config.S3Bucket)
	e.str("S3_REGION", &config.S3Region)
	e.str("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	e.str("S3_PREFIX", &config.S3Prefix)

	e.duration("CALLBACK_FETCH_TIMEOUT", &config.CallbackFetchTimeout)
	e.int64("MAX_DOCUMENT_BYTES", &config.MaxDocumentBytes)
	e.str("UNRESOLVED_KEY_POLICY", &config.UnresolvedKeyPolicy)
	e.bool("ALLOW_LOCAL_CALLBACK_URLS", &config.AllowLocalCallbackURLs)
	e.str("LOCAL_CALLBACK_ROOT", &config.LocalCallbackRoot)

	e.str("LOG_BACKEND", &config.LogBackend)
	e.str("LOG_LEVEL", &config.LogLevel)

	return errors.Join(e.errs...)
}

type envReader struct {
	errs []error
}

func (e *envReader) lookup(name string) (string, bool) {
	raw, ok := os.LookupEnv(envPrefix + name)
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

func (e *envReader) fail(name, raw string, err error) {
	e.errs = append(e.errs, fmt.Errorf("invalid %s%s=%q: %w", envPrefix, name, raw, err))
}

func (e *envReader) str(name string, dst *string) {
	if raw, ok := e.lookup(name); ok {
		*dst = raw
	}
}

func (e *envReader) bool(name string, dst *bool) {
	raw, ok := e.lookup(name)
	if !ok {
		return
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		e.fail(name, raw, err)
		return
	}
	*dst = v
}

func (e *envReader) int64(name string, dst *int64) {
	raw, ok := e.lookup(name)
	if !ok {
		return
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		e.fail(name, raw, err)
		return
	}
	*dst = v
}

func (e *envReader) duration(name string, dst *time.Duration) {
	raw, ok := e.lookup(name)
	if !ok {
		return
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		e.fail(name, raw, err)
		return
	}
	*dst = v
}
