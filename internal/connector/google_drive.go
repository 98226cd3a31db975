package connector

import (
	"context"

	"github.com/kestrelhq/driveconnect/internal/logging"
	"github.com/kestrelhq/driveconnect/internal/store"
	"github.com/kestrelhq/driveconnect/internal/utils"
	"github.com/kestrelhq/driveconnect/internal/webhook"
)

// ProviderGoogleDrive is the registry name of the Google Drive provider
const ProviderGoogleDrive = "google_drive"

// Launcher is the full workflow trigger surface the provider needs
type Launcher interface {
	TriggerFullSync(ctx context.Context, connectorID, cursor string) error
	TriggerIncrementalSync(ctx context.Context, connectorID string) error
	TriggerGarbageCollect(ctx context.Context, connectorID string) error
}

// GoogleDriveProvider implements the connector lifecycle for Google Drive
type GoogleDriveProvider struct {
	db       *store.DB
	channels *webhook.Manager
	launcher Launcher
	logger   logging.Logger
}

// NewGoogleDriveProvider creates the Google Drive provider
func NewGoogleDriveProvider(db *store.DB, channels *webhook.Manager, launcher Launcher, logger logging.Logger) *GoogleDriveProvider {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &GoogleDriveProvider{
		db:       db,
		channels: channels,
		launcher: launcher,
		logger:   logger,
	}
}

// Create persists the connector, registers its webhook channel and kicks
// off the first full sync
func (p *GoogleDriveProvider) Create(ctx context.Context, connectorID, workspaceID string) error {
	if err := p.db.CreateConnector(ctx, store.Connector{
		ID:          connectorID,
		Provider:    ProviderGoogleDrive,
		WorkspaceID: workspaceID,
	}); err != nil {
		return err
	}

	if _, err := p.channels.Register(ctx, connectorID); err != nil {
		return err
	}

	if err := p.launcher.TriggerFullSync(ctx, connectorID, ""); err != nil {
		// The connector exists and the channel is live; the first sync
		// can be relaunched. Creation itself did not fail.
		p.logger.Error("Initial full sync trigger failed",
			logging.F("connectorId", connectorID),
			logging.F("error", err.Error()),
		)
	}

	p.logger.Info("Connector created",
		logging.F("connectorId", connectorID),
		logging.F("workspaceId", workspaceID),
	)
	return nil
}

// Stop pauses the connector; notifications are acknowledged and dropped
// until Resume
func (p *GoogleDriveProvider) Stop(ctx context.Context, connectorID string) error {
	if err := p.requireConnector(ctx, connectorID); err != nil {
		return err
	}
	return p.db.SetPaused(ctx, connectorID, true)
}

// Resume lifts the pause and triggers an incremental sync to catch up on
// notifications dropped while paused
func (p *GoogleDriveProvider) Resume(ctx context.Context, connectorID string) error {
	if err := p.requireConnector(ctx, connectorID); err != nil {
		return err
	}
	if err := p.db.SetPaused(ctx, connectorID, false); err != nil {
		return err
	}
	if err := p.launcher.TriggerIncrementalSync(ctx, connectorID); err != nil {
		p.logger.Error("Catch-up sync trigger failed",
			logging.F("connectorId", connectorID),
			logging.F("error", err.Error()),
		)
	}
	return nil
}

// Cleanup unregisters the provider channel and destroys the connector
// aggregate: folders, files, channel and config rows go with it
func (p *GoogleDriveProvider) Cleanup(ctx context.Context, connectorID string) error {
	if err := p.requireConnector(ctx, connectorID); err != nil {
		return err
	}
	if err := p.channels.Unregister(ctx, connectorID); err != nil {
		return err
	}
	return p.db.DeleteConnector(ctx, connectorID)
}

// Sync forces a full resync from the connector's current cursor, followed
// by garbage collection of mirror rows the resync no longer covers
func (p *GoogleDriveProvider) Sync(ctx context.Context, connectorID string) error {
	connector, err := p.db.GetConnector(ctx, connectorID)
	if err != nil {
		return err
	}
	if connector == nil {
		return connectorNotFound(connectorID)
	}
	if err := p.launcher.TriggerFullSync(ctx, connectorID, connector.SyncCursor); err != nil {
		return err
	}
	if err := p.launcher.TriggerGarbageCollect(ctx, connectorID); err != nil {
		p.logger.Warn("Garbage collect trigger failed",
			logging.F("connectorId", connectorID),
			logging.F("error", err.Error()),
		)
	}
	return nil
}

// UpdateSyncConfig stores a feature toggle and forces a full resync.
// Results computed under the old configuration are stale once the
// version moves, so the next sync must rebuild from scratch.
func (p *GoogleDriveProvider) UpdateSyncConfig(ctx context.Context, connectorID, key, value string) error {
	connector, err := p.db.GetConnector(ctx, connectorID)
	if err != nil {
		return err
	}
	if connector == nil {
		return connectorNotFound(connectorID)
	}
	if err := p.db.SetSyncConfig(ctx, connectorID, key, value); err != nil {
		return err
	}
	if err := p.launcher.TriggerFullSync(ctx, connectorID, connector.SyncCursor); err != nil {
		// The toggle is stored and the version bumped; the resync can
		// be relaunched
		p.logger.Error("Config-change full sync trigger failed",
			logging.F("connectorId", connectorID),
			logging.F("error", err.Error()),
		)
	}
	return nil
}

func (p *GoogleDriveProvider) requireConnector(ctx context.Context, connectorID string) error {
	connector, err := p.db.GetConnector(ctx, connectorID)
	if err != nil {
		return err
	}
	if connector == nil {
		return connectorNotFound(connectorID)
	}
	return nil
}

func connectorNotFound(connectorID string) error {
	return utils.NewAppError(utils.NewServiceError(utils.ErrCodeConnectorNotFound,
		"connector does not exist").WithContext("connectorId", connectorID).Build())
}
