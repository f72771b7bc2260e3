// Package common contains shared constants and sentinel errors used across
// gophdocs components.
package common

// CallbackPath is the route the document server posts save-back
// notifications to. It is embedded into every session descriptor.
const CallbackPath = "/onlyoffice/webhook"

// FilesPath is the route prefix the document server downloads documents from.
const FilesPath = "/files/"

// RequestIDHeaderName carries the per-request id assigned by the HTTP layer.
const RequestIDHeaderName = "X-Request-Id"
