// Package models defines the data exchanged between the session services,
// the repositories and the HTTP layer.
package models

import "time"

// SessionKey is a Key Registry entry: the key handed to the document server
// and the document it was issued for.
type SessionKey struct {
	// Key is the hex digest derived from the versioned fetch URL.
	Key string
	// Filename is the canonical document name the key resolves to.
	Filename string
	// Generation is the ledger value the key was derived from.
	Generation int64
	// CreatedAt is set by the store.
	CreatedAt time.Time
}

// Document type buckets understood by the document server.
const (
	DocumentTypeWord  = "word"
	DocumentTypeCell  = "cell"
	DocumentTypeSlide = "slide"
)

// Permissions are the document permissions granted to the editor session.
type Permissions struct {
	Comment              bool `json:"comment" yaml:"comment"`
	Copy                 bool `json:"copy" yaml:"copy"`
	Download             bool `json:"download" yaml:"download"`
	Edit                 bool `json:"edit" yaml:"edit"`
	FillForms            bool `json:"fillForms" yaml:"fillForms"`
	ModifyContentControl bool `json:"modifyContentControl" yaml:"modifyContentControl"`
	ModifyFilter         bool `json:"modifyFilter" yaml:"modifyFilter"`
	Print                bool `json:"print" yaml:"print"`
	Review               bool `json:"review" yaml:"review"`
}

// AllPermissions grants every recognized permission.
func AllPermissions() Permissions {
	return Permissions{
		Comment:              true,
		Copy:                 true,
		Download:             true,
		Edit:                 true,
		FillForms:            true,
		ModifyContentControl: true,
		ModifyFilter:         true,
		Print:                true,
		Review:               true,
	}
}

// DocumentConfig is the "document" section of the editor configuration.
type DocumentConfig struct {
	Title       string      `json:"title"`
	URL         string      `json:"url"`
	Key         string      `json:"key"`
	FileType    string      `json:"fileType,omitempty"`
	Permissions Permissions `json:"permissions"`
}

// EditorConfig is the "editorConfig" section of the editor configuration.
type EditorConfig struct {
	CallbackURL string `json:"callbackUrl"`
	Mode        string `json:"mode"`
}

// Descriptor is the per-request session descriptor passed to the browser,
// which forwards it verbatim to the document server.
type Descriptor struct {
	DocumentType      string         `json:"documentType"`
	Document          DocumentConfig `json:"document"`
	EditorConfig      EditorConfig   `json:"editorConfig"`
	Token             string         `json:"token,omitempty"`
	DocumentServerURL string         `json:"documentServerUrl,omitempty"`

	// Generation is kept for callers and logs; it is not part of the wire format.
	Generation int64 `json:"-"`
}
