package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/kestrelhq/driveconnect/internal/logging"
	"github.com/kestrelhq/driveconnect/internal/utils"
)

// NewApp builds the fiber application with webhook and admin routes wired
func NewApp(handler *Handler, logger logging.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "driveconnect",
		ErrorHandler: errorHandler(logger),
	})

	app.Use(recover.New())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Provider notifications. The connector-id route is the primary shape;
	// the bare route is kept for channels registered before connector ids
	// were part of the callback address.
	app.Post("/webhooks/google_drive", handler.Notification)
	app.Post("/webhooks/:connector_id/google_drive", handler.Notification)

	admin := app.Group("/connectors")
	admin.Post("/", handler.CreateConnector)
	admin.Get("/:connector_id/nodes", handler.ListVisibleNodes)
	admin.Post("/:connector_id/permissions", handler.ApplyPermissionChanges)
	admin.Post("/:connector_id/titles", handler.ResolveTitles)
	admin.Get("/:connector_id/parents/:node_id", handler.ResolveParentChain)
	admin.Post("/:connector_id/pause", handler.PauseConnector)
	admin.Post("/:connector_id/resume", handler.ResumeConnector)
	admin.Post("/:connector_id/sync", handler.SyncConnector)
	admin.Delete("/:connector_id", handler.DeleteConnector)

	return app
}

// errorHandler maps service error codes onto HTTP statuses
func errorHandler(logger logging.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
		}

		code := utils.CodeOf(err)
		status := statusForCode(code)
		if status >= fiber.StatusInternalServerError {
			logger.Error("Request failed",
				logging.F("path", c.Path()),
				logging.F("code", code),
				logging.F("error", err.Error()),
			)
		}
		return c.Status(status).JSON(fiber.Map{
			"error": err.Error(),
			"code":  code,
		})
	}
}

func statusForCode(code string) int {
	switch code {
	case utils.ErrCodeConnectorNotFound, utils.ErrCodeNodeNotFound:
		return fiber.StatusNotFound
	case utils.ErrCodeInvalidPermission, utils.ErrCodeInvalidArgument:
		return fiber.StatusBadRequest
	case utils.ErrCodeUpstreamUnavailable, utils.ErrCodeRegistrationFailed:
		return fiber.StatusBadGateway
	case utils.ErrCodeRateLimited:
		return fiber.StatusTooManyRequests
	case utils.ErrCodeAuthExpired, utils.ErrCodePermissionDenied:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}
