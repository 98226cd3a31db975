package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kestrelhq/driveconnect/internal/api"
	"github.com/kestrelhq/driveconnect/internal/auth"
	"github.com/kestrelhq/driveconnect/internal/config"
	"github.com/kestrelhq/driveconnect/internal/connector"
	"github.com/kestrelhq/driveconnect/internal/logging"
	"github.com/kestrelhq/driveconnect/internal/orchestrator"
	"github.com/kestrelhq/driveconnect/internal/reconciler"
	"github.com/kestrelhq/driveconnect/internal/remote"
	"github.com/kestrelhq/driveconnect/internal/store"
	"github.com/kestrelhq/driveconnect/internal/webhook"
)

// runtime is the fully wired service graph shared by serve and the
// administration commands
type runtime struct {
	cfg        *config.Config
	db         *store.DB
	remote     *remote.Manager
	reconciler *reconciler.Reconciler
	webhooks   *webhook.Manager
	provider   *connector.GoogleDriveProvider
}

func (r *runtime) Close() {
	if r.db != nil {
		_ = r.db.Close()
	}
}

// buildRuntime loads configuration, opens the mirror store and wires
// every manager together. The Drive service authenticates with the
// credentials stored under the configured profile.
func buildRuntime(ctx context.Context) (*runtime, error) {
	cfg := config.Load()

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open mirror store: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate mirror store: %w", err)
	}

	log := GetLogger()

	authMgr, err := auth.NewManagerFromConfig(cfg.CredentialsDir, cfg.UseKeyring)
	if err != nil {
		db.Close()
		return nil, err
	}
	var wrap func(http.RoundTripper) http.RoundTripper
	if debugTransport != nil {
		wrap = func(base http.RoundTripper) http.RoundTripper {
			return &logging.DebugTransport{Base: base, Logger: log}
		}
	}
	factory := auth.NewServiceFactory(authMgr, wrap)
	service, err := factory.CreateDriveService(ctx, cfg.CredentialsProfile)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to build Drive service: %w", err)
	}
	client := api.NewClient(service, log)
	remoteMgr := remote.NewManager(client)
	launcher := orchestrator.NewClient(cfg.WorkflowEngineURL, cfg.WorkflowEngineToken, log)

	rec := reconciler.New(db, remoteMgr, launcher, log)
	webhooks := webhook.NewManager(db, remoteMgr, launcher, cfg.PublicBaseURL, log)

	provider := connector.NewGoogleDriveProvider(db, webhooks, launcher, log)
	connector.Register(connector.ProviderGoogleDrive, provider)

	return &runtime{
		cfg:        cfg,
		db:         db,
		remote:     remoteMgr,
		reconciler: rec,
		webhooks:   webhooks,
		provider:   provider,
	}, nil
}
