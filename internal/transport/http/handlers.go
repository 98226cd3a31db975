package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kestrelhq/driveconnect/internal/connector"
	"github.com/kestrelhq/driveconnect/internal/logging"
	"github.com/kestrelhq/driveconnect/internal/reconciler"
	"github.com/kestrelhq/driveconnect/internal/types"
	"github.com/kestrelhq/driveconnect/internal/webhook"
)

// Handler wires HTTP requests to the reconciler, webhook manager and
// provider registry
type Handler struct {
	reconciler *reconciler.Reconciler
	webhooks   *webhook.Manager
	logger     logging.Logger
}

// NewHandler creates the HTTP handler
func NewHandler(rec *reconciler.Reconciler, webhooks *webhook.Manager, logger logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Handler{
		reconciler: rec,
		webhooks:   webhooks,
		logger:     logger,
	}
}

// Notification receives a provider push notification. The provider must
// see success for anything except a malformed request: a notification we
// cannot resolve is acknowledged and logged, never failed, so the provider
// does not disable the channel.
func (h *Handler) Notification(c *fiber.Ctx) error {
	channelID := c.Get("X-Goog-Channel-ID")
	if channelID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing X-Goog-Channel-ID header",
		})
	}

	fallbackConnectorID := c.Params("connector_id")

	if err := h.webhooks.HandleNotification(c.Context(), channelID, fallbackConnectorID); err != nil {
		h.logger.Warn("Notification not processed",
			logging.F("channelId", channelID),
			logging.F("connectorId", fallbackConnectorID),
			logging.F("error", err.Error()),
		)
	}

	return c.JSON(fiber.Map{"status": "acknowledged"})
}

type createConnectorRequest struct {
	ConnectorID string `json:"connector_id"`
	Provider    string `json:"provider"`
	WorkspaceID string `json:"workspace_id"`
}

// CreateConnector provisions a connector through its provider
func (h *Handler) CreateConnector(c *fiber.Ctx) error {
	var req createConnectorRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.ConnectorID == "" || req.WorkspaceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "connector_id and workspace_id required"})
	}
	if req.Provider == "" {
		req.Provider = connector.ProviderGoogleDrive
	}

	provider, err := connector.Lookup(req.Provider)
	if err != nil {
		return err
	}
	if err := provider.Create(c.Context(), req.ConnectorID, req.WorkspaceID); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": "created"})
}

// ListVisibleNodes returns the permission tree below an optional parent
func (h *Handler) ListVisibleNodes(c *fiber.Ctx) error {
	connectorID := c.Params("connector_id")
	parentID := c.Query("parent_id")
	filter := types.Filter(c.Query("filter", string(types.FilterReadOnly)))

	nodes, err := h.reconciler.ListVisibleNodes(c.Context(), connectorID, parentID, filter)
	if err != nil {
		return err
	}
	if nodes == nil {
		nodes = []types.ContentNode{}
	}
	return c.JSON(fiber.Map{"nodes": nodes})
}

type permissionChangesRequest struct {
	Changes map[string]types.Permission `json:"changes"`
}

// ApplyPermissionChanges grants or revokes folder selections in a batch
func (h *Handler) ApplyPermissionChanges(c *fiber.Ctx) error {
	connectorID := c.Params("connector_id")

	var req permissionChangesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if len(req.Changes) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "changes required"})
	}

	if err := h.reconciler.ApplyPermissionChanges(c.Context(), connectorID, req.Changes); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "applied"})
}

type resolveTitlesRequest struct {
	IDs []string `json:"ids"`
}

// ResolveTitles batch-resolves node titles from the local mirror
func (h *Handler) ResolveTitles(c *fiber.Ctx) error {
	connectorID := c.Params("connector_id")

	var req resolveTitlesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
	}

	titles, err := h.reconciler.ResolveTitles(c.Context(), connectorID, req.IDs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"titles": titles})
}

// ResolveParentChain walks the mirror from a node to its root
func (h *Handler) ResolveParentChain(c *fiber.Ctx) error {
	connectorID := c.Params("connector_id")
	nodeID := c.Params("node_id")

	chain, err := h.reconciler.ResolveParentChain(c.Context(), connectorID, nodeID, reconciler.NewChainCache())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"chain": chain})
}

// PauseConnector stops processing notifications for the connector
func (h *Handler) PauseConnector(c *fiber.Ctx) error {
	return h.lifecycle(c, func(p connector.Provider, connectorID string) error {
		return p.Stop(c.Context(), connectorID)
	})
}

// ResumeConnector lifts the pause
func (h *Handler) ResumeConnector(c *fiber.Ctx) error {
	return h.lifecycle(c, func(p connector.Provider, connectorID string) error {
		return p.Resume(c.Context(), connectorID)
	})
}

// SyncConnector forces a full resync
func (h *Handler) SyncConnector(c *fiber.Ctx) error {
	return h.lifecycle(c, func(p connector.Provider, connectorID string) error {
		return p.Sync(c.Context(), connectorID)
	})
}

// DeleteConnector tears the connector down
func (h *Handler) DeleteConnector(c *fiber.Ctx) error {
	return h.lifecycle(c, func(p connector.Provider, connectorID string) error {
		return p.Cleanup(c.Context(), connectorID)
	})
}

func (h *Handler) lifecycle(c *fiber.Ctx, op func(connector.Provider, string) error) error {
	connectorID := c.Params("connector_id")
	provider, err := connector.Lookup(c.Query("provider", connector.ProviderGoogleDrive))
	if err != nil {
		return err
	}
	if err := op(provider, connectorID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
