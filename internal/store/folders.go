package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// UpsertFolder records a selected folder root. Returns true when a row was
// actually inserted, false when the selection already existed.
func (d *DB) UpsertFolder(ctx context.Context, connectorID, folderID string) (bool, error) {
	res, err := d.db.ExecContext(ctx, `
		INSERT INTO mirrored_folders (connector_id, folder_id, selected, created_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT (connector_id, folder_id) DO NOTHING
	`, connectorID, folderID, time.Now().Unix())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteFolder removes a selected folder root. Deleting an absent row is a
// no-op and returns false.
func (d *DB) DeleteFolder(ctx context.Context, connectorID, folderID string) (bool, error) {
	res, err := d.db.ExecContext(ctx, `
		DELETE FROM mirrored_folders WHERE connector_id = ? AND folder_id = ?
	`, connectorID, folderID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListFolders returns all selected folder roots of a connector
func (d *DB) ListFolders(ctx context.Context, connectorID string) (folders []MirroredFolder, err error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT connector_id, folder_id, selected, created_at
		FROM mirrored_folders WHERE connector_id = ?
	`, connectorID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for rows.Next() {
		var f MirroredFolder
		var selected int
		if err := rows.Scan(&f.ConnectorID, &f.FolderID, &selected, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.Selected = selected != 0
		folders = append(folders, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return folders, nil
}

// FolderExists reports whether a folder root is selected for the connector
func (d *DB) FolderExists(ctx context.Context, connectorID, folderID string) (bool, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT 1 FROM mirrored_folders WHERE connector_id = ? AND folder_id = ? LIMIT 1
	`, connectorID, folderID)
	var one int
	err := row.Scan(&one)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, err
}
