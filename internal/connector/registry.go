package connector

import (
	"context"
	"strings"
	"sync"

	"github.com/kestrelhq/driveconnect/internal/utils"
)

// Provider is the lifecycle contract every connector provider implements.
// The variant is resolved once at registration, not per call site.
type Provider interface {
	// Create provisions a new connector instance for a workspace
	Create(ctx context.Context, connectorID, workspaceID string) error
	// Stop pauses the connector administratively
	Stop(ctx context.Context, connectorID string) error
	// Resume lifts the pause and catches up
	Resume(ctx context.Context, connectorID string) error
	// Cleanup tears the connector down and destroys everything it owns
	Cleanup(ctx context.Context, connectorID string) error
	// Sync forces a full resync
	Sync(ctx context.Context, connectorID string) error
}

var providerRegistry = struct {
	mu        sync.RWMutex
	providers map[string]Provider
}{
	providers: map[string]Provider{},
}

// Register binds a provider implementation to a provider name
func Register(name string, provider Provider) {
	name = normalizeName(name)
	if name == "" || provider == nil {
		return
	}
	providerRegistry.mu.Lock()
	defer providerRegistry.mu.Unlock()
	providerRegistry.providers[name] = provider
}

// Lookup resolves a provider by name
func Lookup(name string) (Provider, error) {
	name = normalizeName(name)
	providerRegistry.mu.RLock()
	defer providerRegistry.mu.RUnlock()
	provider, ok := providerRegistry.providers[name]
	if !ok {
		return nil, utils.NewAppError(utils.NewServiceError(utils.ErrCodeInvalidArgument,
			"unknown connector provider").WithContext("provider", name).Build())
	}
	return provider, nil
}

// Names returns the registered provider names
func Names() []string {
	providerRegistry.mu.RLock()
	defer providerRegistry.mu.RUnlock()
	names := make([]string, 0, len(providerRegistry.providers))
	for name := range providerRegistry.providers {
		names = append(names, name)
	}
	return names
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
