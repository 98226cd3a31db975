package store

import (
	"context"
	"database/sql"
	"errors"
)

// SetSyncConfig stores a feature toggle and bumps the connector's config
// version. A version bump invalidates cached sync results: the next sync
// the orchestrator schedules must be a full one.
func (d *DB) SetSyncConfig(ctx context.Context, connectorID, key, value string) (err error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO sync_configs (connector_id, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT (connector_id, key) DO UPDATE SET value = excluded.value
	`, connectorID, key, value); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE connectors SET config_version = config_version + 1 WHERE id = ?
	`, connectorID); err != nil {
		return err
	}

	return tx.Commit()
}

// GetSyncConfig returns a toggle value; ok is false when the key is unset
func (d *DB) GetSyncConfig(ctx context.Context, connectorID, key string) (value string, ok bool, err error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT value FROM sync_configs WHERE connector_id = ? AND key = ?
	`, connectorID, key)
	err = row.Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// ListSyncConfig returns all toggles of a connector
func (d *DB) ListSyncConfig(ctx context.Context, connectorID string) (configs map[string]string, err error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT key, value FROM sync_configs WHERE connector_id = ?
	`, connectorID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	configs = make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		configs[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return configs, nil
}
