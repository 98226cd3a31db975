package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// CreateConnector inserts a connector row
func (d *DB) CreateConnector(ctx context.Context, c Connector) error {
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().Unix()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO connectors (id, provider, workspace_id, paused, sync_cursor, config_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.Provider, c.WorkspaceID, boolToInt(c.Paused), c.SyncCursor, c.ConfigVersion, c.CreatedAt)
	return err
}

// GetConnector returns the connector or nil if it does not exist
func (d *DB) GetConnector(ctx context.Context, id string) (*Connector, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, provider, workspace_id, paused, sync_cursor, config_version, created_at
		FROM connectors WHERE id = ?
	`, id)

	var c Connector
	var paused int
	var cursor sql.NullString
	err := row.Scan(&c.ID, &c.Provider, &c.WorkspaceID, &paused, &cursor, &c.ConfigVersion, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.Paused = paused != 0
	c.SyncCursor = cursor.String
	return &c, nil
}

// ListConnectors returns all connectors ordered by creation time
func (d *DB) ListConnectors(ctx context.Context) ([]Connector, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, provider, workspace_id, paused, sync_cursor, config_version, created_at
		FROM connectors ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var connectors []Connector
	for rows.Next() {
		var c Connector
		var paused int
		var cursor sql.NullString
		if err := rows.Scan(&c.ID, &c.Provider, &c.WorkspaceID, &paused, &cursor, &c.ConfigVersion, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Paused = paused != 0
		c.SyncCursor = cursor.String
		connectors = append(connectors, c)
	}
	return connectors, rows.Err()
}

// SetPaused flips the administrative pause flag
func (d *DB) SetPaused(ctx context.Context, id string, paused bool) error {
	_, err := d.db.ExecContext(ctx, `UPDATE connectors SET paused = ? WHERE id = ?`,
		boolToInt(paused), id)
	return err
}

// UpdateSyncCursor stores the change-feed cursor for incremental syncs
func (d *DB) UpdateSyncCursor(ctx context.Context, id, cursor string) error {
	_, err := d.db.ExecContext(ctx, `UPDATE connectors SET sync_cursor = ? WHERE id = ?`,
		cursor, id)
	return err
}

// DeleteConnector removes the connector and everything it owns in one
// transaction. Teardown destroys the whole aggregate.
func (d *DB) DeleteConnector(ctx context.Context, id string) (err error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range []string{
		`DELETE FROM mirrored_files WHERE connector_id = ?`,
		`DELETE FROM mirrored_folders WHERE connector_id = ?`,
		`DELETE FROM webhook_channels WHERE connector_id = ?`,
		`DELETE FROM sync_configs WHERE connector_id = ?`,
		`DELETE FROM connectors WHERE id = ?`,
	} {
		if _, err = tx.ExecContext(ctx, stmt, id); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
