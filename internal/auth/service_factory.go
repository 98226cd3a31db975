package auth

import (
	"context"
	"net/http"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// ServiceFactory builds provider API services from stored credentials
type ServiceFactory struct {
	manager *Manager
	wrap    func(http.RoundTripper) http.RoundTripper
}

// NewServiceFactory creates a service factory. wrap may be nil; when set
// it decorates the oauth transport (used for debug request tracing).
func NewServiceFactory(manager *Manager, wrap func(http.RoundTripper) http.RoundTripper) *ServiceFactory {
	return &ServiceFactory{manager: manager, wrap: wrap}
}

// CreateDriveService builds a Drive API service for a connector
func (f *ServiceFactory) CreateDriveService(ctx context.Context, connectorID string) (*drive.Service, error) {
	creds, err := f.manager.LoadCredentials(connectorID)
	if err != nil {
		return nil, err
	}

	client := f.manager.HTTPClient(ctx, creds)
	if f.wrap != nil {
		client.Transport = f.wrap(client.Transport)
	}
	return drive.NewService(ctx, option.WithHTTPClient(client))
}
