package remote

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kestrelhq/driveconnect/internal/api"
	"github.com/kestrelhq/driveconnect/internal/types"
	"github.com/kestrelhq/driveconnect/internal/utils"
	"google.golang.org/api/drive/v3"
)

// GetStartPageToken fetches the change-feed cursor for a fresh channel
func (m *Manager) GetStartPageToken(ctx context.Context, connectorID string) (string, error) {
	reqCtx := api.NewRequestContext(connectorID, types.RequestTypeStartToken)

	call := m.client.Service().Changes.GetStartPageToken().
		SupportsAllDrives(true)

	result, err := api.Execute(ctx, m.client, reqCtx, func() (*drive.StartPageToken, error) {
		return call.Do()
	})
	if err != nil {
		return "", err
	}
	return result.StartPageToken, nil
}

// WatchChanges registers a push-notification channel for the change feed.
// The channel id is generated here; the provider assigns the resource id
// and the effective expiration.
func (m *Manager) WatchChanges(ctx context.Context, connectorID, pageToken, address string) (*types.Channel, error) {
	reqCtx := api.NewRequestContext(connectorID, types.RequestTypeWatch)

	channel := &drive.Channel{
		Id:         uuid.New().String(),
		Type:       "web_hook",
		Address:    address,
		Expiration: time.Now().Add(utils.ChannelTTL).UnixMilli(),
	}

	call := m.client.Service().Changes.Watch(pageToken, channel).
		IncludeItemsFromAllDrives(true).
		SupportsAllDrives(true)

	result, err := api.Execute(ctx, m.client, reqCtx, func() (*drive.Channel, error) {
		return call.Do()
	})
	if err != nil {
		return nil, err
	}

	return &types.Channel{
		ID:          result.Id,
		ResourceID:  result.ResourceId,
		ResourceURI: result.ResourceUri,
		Type:        result.Type,
		Address:     result.Address,
		Expiration:  result.Expiration,
	}, nil
}

// StopChannel tears down a push-notification channel at the provider
func (m *Manager) StopChannel(ctx context.Context, connectorID, channelID, resourceID string) error {
	reqCtx := api.NewRequestContext(connectorID, types.RequestTypeStopChannel)

	channel := &drive.Channel{
		Id:         channelID,
		ResourceId: resourceID,
	}

	_, err := api.Execute(ctx, m.client, reqCtx, func() (*struct{}, error) {
		err := m.client.Service().Channels.Stop(channel).Do()
		return &struct{}{}, err
	})
	return err
}
