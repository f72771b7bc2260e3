// Package storage holds the document bytes. Names are canonical filenames
// produced by CleanName; the session core treats them as opaque keys.
package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophdocs/internal/common"
	"github.com/dmitrijs2005/gophdocs/internal/filex"
	"github.com/dmitrijs2005/gophdocs/internal/server/models"
)

// Storage is a flat namespace of documents.
//
// Read, ReadHead, Stat and Delete return common.ErrorNotFound for missing
// names. ReadHead returns at most the first n bytes.
// Write replaces the document atomically: concurrent readers observe the
// previous content or the new one in full.
type Storage interface {
	Read(ctx context.Context, name string) ([]byte, error)
	ReadHead(ctx context.Context, name string, n int64) ([]byte, error)
	Write(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
	Stat(ctx context.Context, name string) (models.FileInfo, error)
	List(ctx context.Context) ([]models.FileInfo, error)
}

// CleanName validates a document name. It must be a single path element:
// no separators, no "." or "..", no control characters, and not reserved
// for in-flight writes.
func CleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "", name == ".", name == "..":
		return "", fmt.Errorf("%w: %q", common.ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`):
		return "", fmt.Errorf("%w: %q", common.ErrInvalidName, name)
	case strings.ContainsFunc(name, func(r rune) bool { return r < 0x20 || r == 0x7f }):
		return "", fmt.Errorf("%w: %q", common.ErrInvalidName, name)
	case filex.IsTempName(name):
		return "", fmt.Errorf("%w: %q", common.ErrInvalidName, name)
	}
	return name, nil
}
