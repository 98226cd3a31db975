package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// DB is the local mirror store. It is shared across connectors but every
// row is partitioned by connector id; no cross-connector transaction is
// ever required.
type DB struct {
	db *sql.DB
}

// Open opens (and migrates) the mirror database at path. ":memory:" is
// accepted for tests.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	instance := &DB{db: db}
	if err := instance.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return instance, nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, schemaSQL)
	return err
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS connectors (
	id TEXT PRIMARY KEY,
	provider TEXT NOT NULL,
	workspace_id TEXT NOT NULL,
	paused INTEGER NOT NULL DEFAULT 0,
	sync_cursor TEXT,
	config_version INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS mirrored_folders (
	connector_id TEXT NOT NULL,
	folder_id TEXT NOT NULL,
	selected INTEGER NOT NULL DEFAULT 1,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (connector_id, folder_id),
	FOREIGN KEY (connector_id) REFERENCES connectors(id)
);

CREATE TABLE IF NOT EXISTS mirrored_files (
	connector_id TEXT NOT NULL,
	file_id TEXT NOT NULL,
	parent_id TEXT,
	name TEXT NOT NULL,
	mime_type TEXT NOT NULL DEFAULT '',
	document_id TEXT NOT NULL DEFAULT '',
	last_upserted INTEGER NOT NULL,
	PRIMARY KEY (connector_id, file_id),
	FOREIGN KEY (connector_id) REFERENCES connectors(id)
);

CREATE INDEX IF NOT EXISTS idx_files_parent ON mirrored_files(connector_id, parent_id);

CREATE TABLE IF NOT EXISTS webhook_channels (
	connector_id TEXT NOT NULL UNIQUE,
	channel_id TEXT NOT NULL,
	resource_id TEXT,
	expires_at INTEGER NOT NULL,
	renewed_at INTEGER NOT NULL,
	FOREIGN KEY (connector_id) REFERENCES connectors(id)
);

CREATE INDEX IF NOT EXISTS idx_channels_channel_id ON webhook_channels(channel_id);

CREATE TABLE IF NOT EXISTS sync_configs (
	connector_id TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (connector_id, key),
	FOREIGN KEY (connector_id) REFERENCES connectors(id)
);
`
