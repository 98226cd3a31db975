package utils

import "time"

// OAuth scopes
const (
	ScopeReadonly         = "https://www.googleapis.com/auth/drive.readonly"
	ScopeMetadataReadonly = "https://www.googleapis.com/auth/drive.metadata.readonly"
)

// ScopesConnector is the scope set requested for connector credentials.
// Metadata access is enough for mirroring; content is never downloaded.
var ScopesConnector = []string{
	ScopeReadonly,
	ScopeMetadataReadonly,
}

// Google Workspace MIME types
const (
	MimeTypeFolder   = "application/vnd.google-apps.folder"
	MimeTypeShortcut = "application/vnd.google-apps.shortcut"
)

// Pagination
const (
	FilesPageSize  = 200
	DrivesPageSize = 100
)

// Webhook channel lifecycle. Drive grants at most 7 days per channel; a
// channel inside the renewal window is reported as expiring soon.
const (
	ChannelTTL           = 7 * 24 * time.Hour
	ChannelRenewalWindow = 24 * time.Hour
)

// ReconcilerFanOut bounds concurrent per-node store lookups during listing
const ReconcilerFanOut = 4

// IsFolderMimeType reports whether a MIME type denotes a Drive folder
func IsFolderMimeType(mimeType string) bool {
	return mimeType == MimeTypeFolder
}
