package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dmitrijs2005/gophdocs/internal/common"
	"github.com/dmitrijs2005/gophdocs/internal/logging"
	"github.com/dmitrijs2005/gophdocs/internal/server/doctype"
	"github.com/dmitrijs2005/gophdocs/internal/server/models"
	"github.com/dmitrijs2005/gophdocs/internal/server/storage"
)

const (
	DefaultPerPage = 20
	defaultExt     = ".docx"
)

// blankPDF is served when a PDF is created and no template exists.
var blankPDF = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n" +
	"1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n" +
	"2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n" +
	"3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 200] /Contents 4 0 R >>\nendobj\n" +
	"4 0 obj\n<< /Length 44 >>\nstream\nBT /F1 24 Tf 72 100 Td (Blank PDF) Tj ET\nendstream\nendobj\n" +
	"xref\n0 5\n0000000000 65535 f \n0000000010 00000 n \n0000000060 00000 n \n0000000120 00000 n \n0000000200 00000 n \n" +
	"trailer\n<< /Root 1 0 R /Size 5 >>\nstartxref\n300\n%%EOF")

// FileService is the document CRUD surface. Deletes and recreations go
// through the Reconciler so no session outlives its document.
type FileService struct {
	storage      storage.Storage
	reconciler   *Reconciler
	templatesDir string
	log          logging.Logger
}

func NewFileService(st storage.Storage, reconciler *Reconciler, templatesDir string, log logging.Logger) *FileService {
	return &FileService{
		storage:      st,
		reconciler:   reconciler,
		templatesDir: templatesDir,
		log:          log.With("module", "files"),
	}
}

// List returns one page of documents, newest first. page and perPage below
// 1 fall back to 1 and DefaultPerPage.
func (s *FileService) List(ctx context.Context, page, perPage int) (*models.FilePage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}

	files, err := s.storage.List(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name < files[j].Name
		}
		return files[i].ModTime.After(files[j].ModTime)
	})

	for i := range files {
		files[i].URL = common.FilesPath + url.PathEscape(files[i].Name)
	}

	total := len(files)
	totalPages := max(1, (total+perPage-1)/perPage)

	start := min((page-1)*perPage, total)
	end := min(start+perPage, total)

	return &models.FilePage{
		Items:      files[start:end],
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}, nil
}

// Document is an opened document ready to be served.
type Document struct {
	Name        string
	ContentType string
	Data        []byte
}

func (s *FileService) Open(ctx context.Context, name string) (*Document, error) {
	clean, err := storage.CleanName(name)
	if err != nil {
		return nil, err
	}
	data, err := s.storage.Read(ctx, clean)
	if err != nil {
		return nil, err
	}
	return &Document{Name: clean, ContentType: doctype.ContentType(clean, data), Data: data}, nil
}

// Delete removes the document and invalidates its sessions.
func (s *FileService) Delete(ctx context.Context, name string) error {
	clean, err := storage.CleanName(name)
	if err != nil {
		return err
	}
	_, err = s.reconciler.OnDelete(ctx, clean, func(ctx context.Context) error {
		return s.storage.Delete(ctx, clean)
	})
	return err
}

// NormalizeNewName reduces name to its base and makes sure it carries an
// extension: its own, else format, else .docx.
func NormalizeNewName(name, format string) (string, string, error) {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if base == "/" || base == "." {
		return "", "", fmt.Errorf("%w: %q", common.ErrInvalidName, name)
	}

	ext := path.Ext(base)
	if ext == "" {
		if f := strings.TrimPrefix(strings.TrimSpace(format), "."); f != "" {
			ext = "." + f
		} else {
			ext = defaultExt
		}
	}
	if !strings.HasSuffix(strings.ToLower(base), strings.ToLower(ext)) {
		base += ext
	}

	clean, err := storage.CleanName(base)
	if err != nil {
		return "", "", err
	}
	return clean, strings.ToLower(ext), nil
}

// Create materializes a new blank document from templatesDir/blank<ext>.
// Existing names are rejected with common.ErrAlreadyExists.
func (s *FileService) Create(ctx context.Context, name, format string) (string, error) {
	clean, ext, err := NormalizeNewName(name, format)
	if err != nil {
		return "", err
	}

	exists, err := s.storage.Exists(ctx, clean)
	if err != nil {
		return "", err
	}
	if exists {
		return "", fmt.Errorf("%s: %w", clean, common.ErrAlreadyExists)
	}

	content, err := s.template(ext)
	if err != nil {
		return "", err
	}

	_, err = s.reconciler.OnRecreate(ctx, clean, func(ctx context.Context) error {
		if ok, err := s.storage.Exists(ctx, clean); err != nil {
			return err
		} else if ok {
			return fmt.Errorf("%s: %w", clean, common.ErrAlreadyExists)
		}
		return s.storage.Write(ctx, clean, content)
	})
	if err != nil {
		return "", err
	}

	s.log.Info(ctx, "document created", "file", clean, "bytes", len(content))
	return clean, nil
}

func (s *FileService) template(ext string) ([]byte, error) {
	if s.templatesDir != "" {
		data, err := os.ReadFile(filepath.Join(s.templatesDir, "blank"+ext))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn(context.Background(), "template unreadable", "ext", ext, "error", err)
		}
	}
	if ext == ".pdf" {
		return blankPDF, nil
	}
	return nil, fmt.Errorf("%w for %s", common.ErrNoTemplate, ext)
}

// Upload stores data under name, replacing and invalidating any existing
// document with that name.
func (s *FileService) Upload(ctx context.Context, name string, data []byte) (string, error) {
	clean, err := storage.CleanName(name)
	if err != nil {
		return "", err
	}
	_, err = s.reconciler.OnRecreate(ctx, clean, func(ctx context.Context) error {
		return s.storage.Write(ctx, clean, data)
	})
	if err != nil {
		return "", err
	}
	return clean, nil
}
