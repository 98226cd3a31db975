package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const keyringService = "driveconnect"

// Credentials is the persisted OAuth state of one connector
type Credentials struct {
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenExpiry  time.Time `json:"token_expiry"`
	Scopes       []string  `json:"scopes"`
}

// Manager persists and restores per-connector credentials
type Manager struct {
	backend StorageBackend
}

// NewManager creates a credential manager over the given backend
func NewManager(backend StorageBackend) *Manager {
	return &Manager{backend: backend}
}

// NewManagerFromConfig picks the keyring backend when requested and
// available, falling back to encrypted files under baseDir
func NewManagerFromConfig(baseDir string, useKeyring bool) (*Manager, error) {
	if useKeyring {
		return NewManager(NewKeyringStorage(keyringService)), nil
	}
	backend, err := NewEncryptedFileStorage(baseDir)
	if err != nil {
		return nil, err
	}
	return NewManager(backend), nil
}

// SaveCredentials persists a connector's credentials
func (m *Manager) SaveCredentials(connectorID string, creds *Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return m.backend.Save(connectorID, data)
}

// LoadCredentials restores a connector's credentials
func (m *Manager) LoadCredentials(connectorID string) (*Credentials, error) {
	data, err := m.backend.Load(connectorID)
	if err != nil {
		return nil, err
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("corrupt credentials for connector %q: %w", connectorID, err)
	}
	return &creds, nil
}

// DeleteCredentials removes a connector's credentials
func (m *Manager) DeleteCredentials(connectorID string) error {
	return m.backend.Delete(connectorID)
}

// HTTPClient builds an oauth2-refreshing HTTP client for the credentials
func (m *Manager) HTTPClient(ctx context.Context, creds *Credentials) *http.Client {
	config := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       creds.Scopes,
	}
	token := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		Expiry:       creds.TokenExpiry,
	}
	return config.Client(ctx, token)
}
