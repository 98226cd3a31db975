package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SaveChannel records the connector's channel, replacing any previous one.
// The UNIQUE constraint on connector_id serializes concurrent registration
// attempts: only one tracked channel survives.
func (d *DB) SaveChannel(ctx context.Context, ch WebhookChannel) error {
	if ch.RenewedAt == 0 {
		ch.RenewedAt = time.Now().Unix()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO webhook_channels (connector_id, channel_id, resource_id, expires_at, renewed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (connector_id) DO UPDATE SET
			channel_id = excluded.channel_id,
			resource_id = excluded.resource_id,
			expires_at = excluded.expires_at,
			renewed_at = excluded.renewed_at
	`, ch.ConnectorID, ch.ChannelID, ch.ResourceID, ch.ExpiresAt, ch.RenewedAt)
	return err
}

// FindChannelByID resolves a provider channel id to the tracked channel,
// or nil if unknown
func (d *DB) FindChannelByID(ctx context.Context, channelID string) (*WebhookChannel, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT connector_id, channel_id, resource_id, expires_at, renewed_at
		FROM webhook_channels WHERE channel_id = ?
	`, channelID)
	return scanChannel(row)
}

// FindChannelByConnector returns the connector's tracked channel, or nil
func (d *DB) FindChannelByConnector(ctx context.Context, connectorID string) (*WebhookChannel, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT connector_id, channel_id, resource_id, expires_at, renewed_at
		FROM webhook_channels WHERE connector_id = ?
	`, connectorID)
	return scanChannel(row)
}

// DeleteChannel removes the connector's tracked channel
func (d *DB) DeleteChannel(ctx context.Context, connectorID string) error {
	_, err := d.db.ExecContext(ctx, `
		DELETE FROM webhook_channels WHERE connector_id = ?
	`, connectorID)
	return err
}

func scanChannel(row *sql.Row) (*WebhookChannel, error) {
	var ch WebhookChannel
	var resource sql.NullString
	err := row.Scan(&ch.ConnectorID, &ch.ChannelID, &resource, &ch.ExpiresAt, &ch.RenewedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ch.ResourceID = resource.String
	return &ch, nil
}
