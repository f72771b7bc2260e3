package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/gophdocs/internal/flagx"
	"github.com/dmitrijs2005/gophdocs/internal/server/models"
	"github.com/dmitrijs2005/gophdocs/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk form of Config, shared by JSON and YAML.
// Durations accept "30s" strings or integer nanoseconds. Absent fields
// keep their current value.
type FileConfig struct {
	HTTPAddr        string          `json:"http_addr" yaml:"http_addr"`
	DatabaseDSN     string          `json:"database_dsn" yaml:"database_dsn"`
	ShutdownTimeout *timex.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxBodyBytes    int64           `json:"max_body_bytes" yaml:"max_body_bytes"`

	JWTSecret                string          `json:"jwt_secret" yaml:"jwt_secret"`
	RequireSignedDescriptors *bool           `json:"require_signed_descriptors" yaml:"require_signed_descriptors"`
	EditorTokenTTL           *timex.Duration `json:"editor_token_ttl" yaml:"editor_token_ttl"`
	VerifyCallbackToken      *bool           `json:"verify_callback_token" yaml:"verify_callback_token"`

	PublicBaseURL     string              `json:"public_base_url" yaml:"public_base_url"`
	InternalBaseURL   string              `json:"internal_base_url" yaml:"internal_base_url"`
	DocumentServerURL string              `json:"document_server_url" yaml:"document_server_url"`
	EditorMode        string              `json:"editor_mode" yaml:"editor_mode"`
	EditorUserID      string              `json:"editor_user_id" yaml:"editor_user_id"`
	EditorUserName    string              `json:"editor_user_name" yaml:"editor_user_name"`
	Permissions       *models.Permissions `json:"permissions" yaml:"permissions"`

	StorageBackend string `json:"storage_backend" yaml:"storage_backend"`
	FilesDir       string `json:"files_dir" yaml:"files_dir"`
	TemplatesDir   string `json:"templates_dir" yaml:"templates_dir"`
	S3AccessKey    string `json:"s3_access_key" yaml:"s3_access_key"`
	S3SecretKey    string `json:"s3_secret_key" yaml:"s3_secret_key"`
	S3Bucket       string `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region       string `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	S3Prefix       string `json:"s3_prefix" yaml:"s3_prefix"`

	CallbackFetchTimeout   *timex.Duration `json:"callback_fetch_timeout" yaml:"callback_fetch_timeout"`
	MaxDocumentBytes       int64           `json:"max_document_bytes" yaml:"max_document_bytes"`
	UnresolvedKeyPolicy    string          `json:"unresolved_key_policy" yaml:"unresolved_key_policy"`
	AllowLocalCallbackURLs *bool           `json:"allow_local_callback_urls" yaml:"allow_local_callback_urls"`
	LocalCallbackRoot      string          `json:"local_callback_root" yaml:"local_callback_root"`

	LogBackend string `json:"log_backend" yaml:"log_backend"`
	LogLevel   string `json:"log_level" yaml:"log_level"`
}

// parseFile loads the file named by -c/-config, if any.
func parseFile(config *Config) error {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return nil
	}
	return LoadFile(config, path)
}

// LoadFile overlays config with the JSON or YAML file at path. The format
// is picked by extension; anything but .yaml/.yml is read as JSON.
func LoadFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", filepath.Base(path), err)
	}

	fc.apply(config)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.HTTPAddr, fc.HTTPAddr)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	if fc.ShutdownTimeout != nil {
		c.ShutdownTimeout = fc.ShutdownTimeout.Duration
	}
	if fc.MaxBodyBytes > 0 {
		c.MaxBodyBytes = fc.MaxBodyBytes
	}

	setString(&c.JWTSecret, fc.JWTSecret)
	if fc.RequireSignedDescriptors != nil {
		c.RequireSignedDescriptors = *fc.RequireSignedDescriptors
	}
	if fc.EditorTokenTTL != nil {
		c.EditorTokenTTL = fc.EditorTokenTTL.Duration
	}
	if fc.VerifyCallbackToken != nil {
		c.VerifyCallbackToken = *fc.VerifyCallbackToken
	}

	setString(&c.PublicBaseURL, fc.PublicBaseURL)
	setString(&c.InternalBaseURL, fc.InternalBaseURL)
	setString(&c.DocumentServerURL, fc.DocumentServerURL)
	setString(&c.EditorMode, fc.EditorMode)
	setString(&c.EditorUserID, fc.EditorUserID)
	setString(&c.EditorUserName, fc.EditorUserName)
	if fc.Permissions != nil {
		c.Permissions = *fc.Permissions
	}

	setString(&c.StorageBackend, fc.StorageBackend)
	setString(&c.FilesDir, fc.FilesDir)
	setString(&c.TemplatesDir, fc.TemplatesDir)
	setString(&c.S3AccessKey, fc.S3AccessKey)
	setString(&c.S3SecretKey, fc.S3SecretKey)
	setString(&c.S3Bucket, fc.S3Bucket)
	setString(&c.S3Region, fc.S3Region)
	setString(&c.S3BaseEndpoint, fc.S3BaseEndpoint)
	setString(&c.S3Prefix, fc.S3Prefix)

	if fc.CallbackFetchTimeout != nil {
		c.CallbackFetchTimeout = fc.CallbackFetchTimeout.Duration
	}
	if fc.MaxDocumentBytes > 0 {
		c.MaxDocumentBytes = fc.MaxDocumentBytes
	}
	setString(&c.UnresolvedKeyPolicy, fc.UnresolvedKeyPolicy)
	if fc.AllowLocalCallbackURLs != nil {
		c.AllowLocalCallbackURLs = *fc.AllowLocalCallbackURLs
	}
	setString(&c.LocalCallbackRoot, fc.LocalCallbackRoot)

	setString(&c.LogBackend, fc.LogBackend)
	setString(&c.LogLevel, fc.LogLevel)
}
