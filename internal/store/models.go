package store

// Connector is one configured integration instance
type Connector struct {
	ID            string
	Provider      string
	WorkspaceID   string
	Paused        bool
	SyncCursor    string
	ConfigVersion int64
	CreatedAt     int64
}

// MirroredFolder is a user-selected folder root. Its existence is the sole
// source of truth for "this subtree is in scope".
type MirroredFolder struct {
	ConnectorID string
	FolderID    string
	Selected    bool
	CreatedAt   int64
}

// MirroredFile is one mirrored node below a selected root. Folder-typed
// children are mirrored here too, distinguished by MimeType.
type MirroredFile struct {
	ConnectorID  string
	FileID       string
	ParentID     string
	Name         string
	MimeType     string
	DocumentID   string
	LastUpserted int64
}

// WebhookChannel is the single tracked push-notification registration of a
// connector
type WebhookChannel struct {
	ConnectorID string
	ChannelID   string
	ResourceID  string
	ExpiresAt   int64
	RenewedAt   int64
}
