package api

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kestrelhq/driveconnect/internal/errors"
	"github.com/kestrelhq/driveconnect/internal/logging"
	"github.com/kestrelhq/driveconnect/internal/types"
	"google.golang.org/api/drive/v3"
)

// Client wraps the Drive API service with request tracing and error
// classification. It performs no local retries: retryable failures are
// surfaced as such and the caller's workflow engine schedules the retry.
type Client struct {
	service *drive.Service
	logger  logging.Logger
}

// NewClient creates a new Drive API client
func NewClient(service *drive.Service, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Client{
		service: service,
		logger:  logger,
	}
}

// NewRequestContext creates a request context with a fresh trace ID
func NewRequestContext(connectorID string, requestType types.RequestType) *types.RequestContext {
	return &types.RequestContext{
		ConnectorID:     connectorID,
		InvolvedNodeIDs: []string{},
		RequestType:     requestType,
		TraceID:         uuid.New().String(),
	}
}

// WithNodeIDs adds node IDs to the request context
func (c *Client) WithNodeIDs(reqCtx *types.RequestContext, nodeIDs ...string) *types.RequestContext {
	reqCtx.InvolvedNodeIDs = append(reqCtx.InvolvedNodeIDs, nodeIDs...)
	return reqCtx
}

// Execute runs a single API call with tracing and error classification
func Execute[T any](ctx context.Context, client *Client, reqCtx *types.RequestContext, fn func() (T, error)) (T, error) {
	var result T

	logger := client.logger.WithTraceID(reqCtx.TraceID)
	logger.Debug("API operation starting",
		logging.F("requestType", reqCtx.RequestType),
		logging.F("connectorId", reqCtx.ConnectorID),
	)

	start := time.Now()

	if err := ctx.Err(); err != nil {
		return result, err
	}

	result, err := fn()
	duration := time.Since(start)
	if err != nil {
		logger.Error("API operation failed",
			logging.F("duration_ms", duration.Milliseconds()),
			logging.F("error", err.Error()),
		)
		return result, errors.ClassifyGoogleAPIError(err, reqCtx, client.logger)
	}

	logger.Debug("API operation completed",
		logging.F("duration_ms", duration.Milliseconds()),
	)
	return result, nil
}

// Service returns the underlying Drive service
func (c *Client) Service() *drive.Service {
	return c.service
}
