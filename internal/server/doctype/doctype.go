// Package doctype classifies documents into the editor's type buckets and
// resolves their file type and content type.
package doctype

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/gophdocs/internal/server/models"
	"github.com/gabriel-vasile/mimetype"
)

var byExtension = map[string]string{
	"ppt":  models.DocumentTypeSlide,
	"pptx": models.DocumentTypeSlide,
	"odp":  models.DocumentTypeSlide,
	"xls":  models.DocumentTypeCell,
	"xlsx": models.DocumentTypeCell,
	"ods":  models.DocumentTypeCell,
	"csv":  models.DocumentTypeCell,
}

// mime types (as detected by mimetype) mapped to the editor's file types.
var byMIME = map[string]string{
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   "docx",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         "xlsx",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": "pptx",
	"application/msword":                                                        "doc",
	"application/vnd.ms-excel":                                                  "xls",
	"application/vnd.ms-powerpoint":                                             "ppt",
	"application/vnd.oasis.opendocument.text":                                   "odt",
	"application/vnd.oasis.opendocument.spreadsheet":                            "ods",
	"application/vnd.oasis.opendocument.presentation":                           "odp",
	"application/pdf":                                                           "pdf",
	"application/rtf":                                                           "rtf",
	"text/rtf":                                                                  "rtf",
	"text/csv":                                                                  "csv",
	"text/plain":                                                                "txt",
}

// Ext returns the lower-case extension of name without the dot.
func Ext(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// Classify returns the document type bucket for name. head is an optional
// prefix of the file content, used only when name has no extension.
// Anything unrecognized is a word-processing document.
func Classify(name string, head []byte) string {
	ext := Ext(name)
	if ext == "" && len(head) > 0 {
		ext = FileType(name, head)
	}
	if t, ok := byExtension[ext]; ok {
		return t
	}
	return models.DocumentTypeWord
}

// FileType returns the editor file type: the extension when present,
// otherwise the type sniffed from head. Empty when neither is known.
func FileType(name string, head []byte) string {
	if ext := Ext(name); ext != "" {
		return ext
	}
	if len(head) == 0 {
		return ""
	}
	for m := mimetype.Detect(head); m != nil; m = m.Parent() {
		if ft, ok := byMIME[m.String()]; ok {
			return ft
		}
		base, _, _ := strings.Cut(m.String(), ";")
		if ft, ok := byMIME[base]; ok {
			return ft
		}
	}
	return ""
}

// ContentType returns the HTTP content type used to serve name.
// Extensionless names that look like documents are served as docx.
func ContentType(name string, head []byte) string {
	ext := Ext(name)
	if ext == "" && strings.Contains(strings.ToLower(name), "document") {
		ext = "docx"
	}
	if ext != "" {
		if ct := mime.TypeByExtension("." + ext); ct != "" {
			return ct
		}
		for m, ft := range byMIME {
			if ft == ext {
				return m
			}
		}
	}
	if len(head) > 0 {
		return mimetype.Detect(head).String()
	}
	return "application/octet-stream"
}
