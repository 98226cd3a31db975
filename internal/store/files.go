package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// UpsertFile creates or refreshes one mirrored file row
func (d *DB) UpsertFile(ctx context.Context, f MirroredFile) error {
	if f.LastUpserted == 0 {
		f.LastUpserted = time.Now().Unix()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO mirrored_files (connector_id, file_id, parent_id, name, mime_type, document_id, last_upserted)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (connector_id, file_id) DO UPDATE SET
			parent_id = excluded.parent_id,
			name = excluded.name,
			mime_type = excluded.mime_type,
			document_id = excluded.document_id,
			last_upserted = excluded.last_upserted
	`, f.ConnectorID, f.FileID, f.ParentID, f.Name, f.MimeType, f.DocumentID, f.LastUpserted)
	return err
}

// UpsertFilesBatch applies one reconciliation pass's upserts in a single
// transaction so concurrent readers never observe a partial tree.
func (d *DB) UpsertFilesBatch(ctx context.Context, files []MirroredFile) (err error) {
	if len(files) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO mirrored_files (connector_id, file_id, parent_id, name, mime_type, document_id, last_upserted)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (connector_id, file_id) DO UPDATE SET
			parent_id = excluded.parent_id,
			name = excluded.name,
			mime_type = excluded.mime_type,
			document_id = excluded.document_id,
			last_upserted = excluded.last_upserted
	`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	now := time.Now().Unix()
	for _, f := range files {
		if f.LastUpserted == 0 {
			f.LastUpserted = now
		}
		if _, err = stmt.ExecContext(ctx, f.ConnectorID, f.FileID, f.ParentID, f.Name, f.MimeType, f.DocumentID, f.LastUpserted); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// GetFile returns one mirrored file or nil if absent
func (d *DB) GetFile(ctx context.Context, connectorID, fileID string) (*MirroredFile, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT connector_id, file_id, parent_id, name, mime_type, document_id, last_upserted
		FROM mirrored_files WHERE connector_id = ? AND file_id = ?
	`, connectorID, fileID)

	var f MirroredFile
	var parent sql.NullString
	err := row.Scan(&f.ConnectorID, &f.FileID, &parent, &f.Name, &f.MimeType, &f.DocumentID, &f.LastUpserted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f.ParentID = parent.String
	return &f, nil
}

// FindChildren lists mirrored children of a parent node
func (d *DB) FindChildren(ctx context.Context, connectorID, parentID string) (files []MirroredFile, err error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT connector_id, file_id, parent_id, name, mime_type, document_id, last_upserted
		FROM mirrored_files WHERE connector_id = ? AND parent_id = ?
	`, connectorID, parentID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for rows.Next() {
		var f MirroredFile
		var parent sql.NullString
		if err := rows.Scan(&f.ConnectorID, &f.FileID, &parent, &f.Name, &f.MimeType, &f.DocumentID, &f.LastUpserted); err != nil {
			return nil, err
		}
		f.ParentID = parent.String
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return files, nil
}

// ChildExists reports whether a node has at least one mirrored child
func (d *DB) ChildExists(ctx context.Context, connectorID, parentID string) (bool, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT 1 FROM mirrored_files WHERE connector_id = ? AND parent_id = ? LIMIT 1
	`, connectorID, parentID)
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

// ResolveNames returns file_id -> name for the ids known to the mirror.
// Unknown ids are simply absent from the map.
func (d *DB) ResolveNames(ctx context.Context, connectorID string, ids []string) (names map[string]string, err error) {
	names = make(map[string]string)
	if len(ids) == 0 {
		return names, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, connectorID)
	for _, id := range ids {
		args = append(args, id)
	}

	query := fmt.Sprintf(`
		SELECT file_id, name FROM mirrored_files
		WHERE connector_id = ? AND file_id IN (%s)
	`, placeholders)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

// GarbageCollect deletes mirrored files no longer reachable from any
// selected folder root. Returns the number of rows removed.
func (d *DB) GarbageCollect(ctx context.Context, connectorID string) (int64, error) {
	res, err := d.db.ExecContext(ctx, `
		WITH RECURSIVE reachable(id) AS (
			SELECT folder_id FROM mirrored_folders WHERE connector_id = ?1
			UNION
			SELECT f.file_id FROM mirrored_files f
			JOIN reachable r ON f.parent_id = r.id
			WHERE f.connector_id = ?1
		)
		DELETE FROM mirrored_files
		WHERE connector_id = ?1 AND file_id NOT IN (SELECT id FROM reachable)
	`, connectorID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
