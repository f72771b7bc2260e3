package models

import "time"

// FileInfo describes a stored document as listed to the browser.
type FileInfo struct {
	Name    string    `json:"name"`
	URL     string    `json:"url"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mtime"`
}

// FilePage is one page of a file listing.
type FilePage struct {
	Items      []FileInfo `json:"items"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	PerPage    int        `json:"perPage"`
	TotalPages int        `json:"totalPages"`
}
