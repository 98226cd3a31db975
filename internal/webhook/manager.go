package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/kestrelhq/driveconnect/internal/logging"
	"github.com/kestrelhq/driveconnect/internal/store"
	"github.com/kestrelhq/driveconnect/internal/types"
	"github.com/kestrelhq/driveconnect/internal/utils"
)

// ChannelAPI is the provider contract for push-notification channels
type ChannelAPI interface {
	GetStartPageToken(ctx context.Context, connectorID string) (string, error)
	WatchChanges(ctx context.Context, connectorID, pageToken, address string) (*types.Channel, error)
	StopChannel(ctx context.Context, connectorID, channelID, resourceID string) error
}

// Launcher triggers syncs on the external workflow engine
type Launcher interface {
	TriggerIncrementalSync(ctx context.Context, connectorID string) error
}

// Manager maintains at most one live push-notification registration per
// connector and translates inbound notifications into sync triggers.
type Manager struct {
	db          *store.DB
	remote      ChannelAPI
	launcher    Launcher
	callbackURL string
	logger      logging.Logger
}

// NewManager creates a webhook manager. callbackURL is the public base URL
// the provider delivers notifications to.
func NewManager(db *store.DB, remote ChannelAPI, launcher Launcher, callbackURL string, logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Manager{
		db:          db,
		remote:      remote,
		launcher:    launcher,
		callbackURL: callbackURL,
		logger:      logger,
	}
}

// Register creates a provider channel and persists it. The UNIQUE
// constraint on connector id in the store serializes concurrent attempts.
// The caller decides whether a failed registration is retried.
func (m *Manager) Register(ctx context.Context, connectorID string) (*store.WebhookChannel, error) {
	connector, err := m.db.GetConnector(ctx, connectorID)
	if err != nil {
		return nil, err
	}
	if connector == nil {
		return nil, utils.NewAppError(utils.NewServiceError(utils.ErrCodeConnectorNotFound,
			"connector does not exist").WithContext("connectorId", connectorID).Build())
	}

	pageToken, err := m.remote.GetStartPageToken(ctx, connectorID)
	if err != nil {
		return nil, registrationFailed(connectorID, err)
	}

	channel, err := m.remote.WatchChanges(ctx, connectorID, pageToken, m.notificationAddress(connectorID))
	if err != nil {
		return nil, registrationFailed(connectorID, err)
	}

	tracked := store.WebhookChannel{
		ConnectorID: connectorID,
		ChannelID:   channel.ID,
		ResourceID:  channel.ResourceID,
		ExpiresAt:   channel.Expiration / 1000,
		RenewedAt:   time.Now().Unix(),
	}
	if err := m.db.SaveChannel(ctx, tracked); err != nil {
		return nil, err
	}
	if err := m.db.UpdateSyncCursor(ctx, connectorID, pageToken); err != nil {
		return nil, err
	}

	m.logger.Info("Webhook channel registered",
		logging.F("connectorId", connectorID),
		logging.F("channelId", channel.ID),
		logging.F("expiresAt", tracked.ExpiresAt),
	)
	return &tracked, nil
}

// Unregister stops the provider channel (best-effort) and forgets it
func (m *Manager) Unregister(ctx context.Context, connectorID string) error {
	channel, err := m.db.FindChannelByConnector(ctx, connectorID)
	if err != nil {
		return err
	}
	if channel == nil {
		return nil
	}

	if err := m.remote.StopChannel(ctx, connectorID, channel.ChannelID, channel.ResourceID); err != nil {
		// The provider expires channels on its own; a failed stop only
		// costs some notifications to an already-forgotten channel.
		m.logger.Warn("Stopping provider channel failed",
			logging.F("connectorId", connectorID),
			logging.F("channelId", channel.ChannelID),
			logging.F("error", err.Error()),
		)
	}

	return m.db.DeleteChannel(ctx, connectorID)
}

// Renew replaces the connector's channel with a fresh one. Renewal
// scheduling is the job of an external scheduler; this is the primitive
// it calls.
func (m *Manager) Renew(ctx context.Context, connectorID string) (*store.WebhookChannel, error) {
	if err := m.Unregister(ctx, connectorID); err != nil {
		return nil, err
	}
	return m.Register(ctx, connectorID)
}

// HandleNotification resolves an inbound provider notification to a
// connector and triggers an incremental sync. A channel id unknown to the
// store falls back to the connector id carried in the notification's
// routing path. Paused connectors acknowledge and drop. A rate-limited
// trigger is acknowledged and only logged: the provider must never see it
// as a failure.
func (m *Manager) HandleNotification(ctx context.Context, channelID, fallbackConnectorID string) error {
	connectorID := ""

	channel, err := m.db.FindChannelByID(ctx, channelID)
	if err != nil {
		return err
	}
	if channel != nil {
		connectorID = channel.ConnectorID
	} else if fallbackConnectorID != "" {
		connector, err := m.db.GetConnector(ctx, fallbackConnectorID)
		if err != nil {
			return err
		}
		if connector != nil {
			connectorID = connector.ID
		}
	}

	if connectorID == "" {
		return utils.NewAppError(utils.NewServiceError(utils.ErrCodeUnresolvedChannel,
			"notification does not resolve to a connector").
			WithContext("channelId", channelID).
			Build())
	}

	connector, err := m.db.GetConnector(ctx, connectorID)
	if err != nil {
		return err
	}
	if connector == nil {
		return utils.NewAppError(utils.NewServiceError(utils.ErrCodeUnresolvedChannel,
			"notification channel points at a deleted connector").
			WithContext("channelId", channelID).
			WithContext("connectorId", connectorID).
			Build())
	}

	if connector.Paused {
		m.logger.Info("Notification dropped for paused connector",
			logging.F("connectorId", connectorID),
			logging.F("channelId", channelID),
		)
		return nil
	}

	if err := m.launcher.TriggerIncrementalSync(ctx, connectorID); err != nil {
		if utils.IsCode(err, utils.ErrCodeRateLimited) {
			m.logger.Warn("Incremental sync trigger rate limited",
				logging.F("connectorId", connectorID),
			)
			return nil
		}
		m.logger.Error("Incremental sync trigger failed",
			logging.F("connectorId", connectorID),
			logging.F("error", err.Error()),
		)
		return nil
	}

	m.logger.Debug("Incremental sync triggered",
		logging.F("connectorId", connectorID),
		logging.F("channelId", channelID),
	)
	return nil
}

// IsExpiringSoon reports whether the channel is inside the renewal window
func IsExpiringSoon(channel *store.WebhookChannel, now time.Time) bool {
	if channel == nil {
		return false
	}
	return time.Unix(channel.ExpiresAt, 0).Sub(now) < utils.ChannelRenewalWindow
}

func (m *Manager) notificationAddress(connectorID string) string {
	return fmt.Sprintf("%s/webhooks/%s/google_drive", m.callbackURL, connectorID)
}

func registrationFailed(connectorID string, cause error) error {
	return utils.NewAppError(utils.NewServiceError(utils.ErrCodeRegistrationFailed,
		"provider channel registration failed").
		WithContext("connectorId", connectorID).
		WithContext("cause", cause.Error()).
		Build())
}
