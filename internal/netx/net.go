// Package netx retrieves finished documents from the location the document
// server reports in its save-back callback.
package netx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultMaxBytes = 512 << 20
	userAgent       = "gophdocs/1.0"
)

var (
	ErrLocalDisabled   = errors.New("local locations are disabled")
	ErrOutsideRoot     = errors.New("local location outside of allowed root")
	ErrUnsupportedURL  = errors.New("unsupported location scheme")
	ErrTooLarge        = errors.New("document exceeds size limit")
	ErrUnexpectedReply = errors.New("unexpected status")
)

// Fetcher downloads a document with a bounded timeout and a single attempt.
// Retrying is left to the document server, which re-sends its callback.
type Fetcher struct {
	client     *http.Client
	allowLocal bool
	localRoot  string
	maxBytes   int64
}

type Option func(*Fetcher)

// WithLocal enables reading file:// and absolute-path locations. When root
// is non-empty the path must resolve inside it.
func WithLocal(root string) Option {
	return func(f *Fetcher) {
		f.allowLocal = true
		f.localRoot = root
	}
}

func WithMaxBytes(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// WithHTTPClient replaces the client; its Timeout is overwritten.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

func NewFetcher(timeout time.Duration, opts ...Option) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	f := &Fetcher{
		client:   &http.Client{},
		maxBytes: defaultMaxBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	clone := *f.client
	clone.Timeout = timeout
	f.client = &clone
	return f
}

// Fetch returns the bytes behind location.
func (f *Fetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if isLocal(location) {
		return f.readLocal(location)
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("parse location: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s; body: %s", ErrUnexpectedReply, resp.Status, string(b))
	}

	return readLimited(resp.Body, f.maxBytes)
}

func (f *Fetcher) readLocal(location string) ([]byte, error) {
	if !f.allowLocal {
		return nil, ErrLocalDisabled
	}
	path := strings.TrimPrefix(location, "file://")
	path = filepath.Clean(path)

	if f.localRoot != "" {
		root, err := filepath.Abs(f.localRoot)
		if err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, ErrOutsideRoot
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return readLimited(file, f.maxBytes)
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, ErrTooLarge
	}
	return b, nil
}

func isLocal(location string) bool {
	return strings.HasPrefix(location, "file://") || strings.HasPrefix(location, "/")
}
