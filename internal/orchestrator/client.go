package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kestrelhq/driveconnect/internal/logging"
	"github.com/kestrelhq/driveconnect/internal/utils"
)

// Workflow kinds understood by the engine
const (
	KindFullSync        = "full_sync"
	KindIncrementalSync = "incremental_sync"
	KindGarbageCollect  = "garbage_collect"
)

// Client is the trigger layer in front of the external workflow engine.
// Scheduling, retries and durability all live in the engine; a trigger's
// success only means the engine accepted the launch request.
type Client struct {
	baseURL      string
	serviceToken string
	httpClient   *http.Client
	logger       logging.Logger
}

// NewClient creates a workflow engine client
func NewClient(baseURL, serviceToken string, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Client{
		baseURL:      baseURL,
		serviceToken: serviceToken,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
	}
}

type launchRequest struct {
	ConnectorID string            `json:"connector_id"`
	Params      map[string]string `json:"params,omitempty"`
}

// TriggerFullSync launches a full resync from the given cursor ("" means
// from the beginning)
func (c *Client) TriggerFullSync(ctx context.Context, connectorID, cursor string) error {
	params := map[string]string{}
	if cursor != "" {
		params["cursor"] = cursor
	}
	return c.launch(ctx, KindFullSync, connectorID, params)
}

// TriggerIncrementalSync launches an incremental sync
func (c *Client) TriggerIncrementalSync(ctx context.Context, connectorID string) error {
	return c.launch(ctx, KindIncrementalSync, connectorID, nil)
}

// TriggerGarbageCollect launches garbage collection of orphaned mirror rows
func (c *Client) TriggerGarbageCollect(ctx context.Context, connectorID string) error {
	return c.launch(ctx, KindGarbageCollect, connectorID, nil)
}

// launch POSTs one workflow trigger. 2xx means triggered; 409 means the
// workflow is already running, which counts as success; 429 surfaces as
// RATE_LIMITED so callers can treat it as a soft condition.
func (c *Client) launch(ctx context.Context, kind, connectorID string, params map[string]string) error {
	body, err := json.Marshal(launchRequest{ConnectorID: connectorID, Params: params})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/workflows/%s", c.baseURL, kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.serviceToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return utils.NewAppError(utils.NewServiceError(utils.ErrCodeUpstreamUnavailable,
			"workflow engine unreachable").
			WithRetryable(true).
			WithContext("kind", kind).
			WithContext("connectorId", connectorID).
			WithContext("cause", err.Error()).
			Build())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		c.logger.Debug("Workflow triggered",
			logging.F("kind", kind),
			logging.F("connectorId", connectorID),
		)
		return nil
	case resp.StatusCode == http.StatusConflict:
		// Engine already runs this workflow; the work will happen.
		c.logger.Debug("Workflow already running",
			logging.F("kind", kind),
			logging.F("connectorId", connectorID),
		)
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return utils.NewAppError(utils.NewServiceError(utils.ErrCodeRateLimited,
			"workflow engine rate limited the trigger").
			WithHTTPStatus(resp.StatusCode).
			WithRetryable(true).
			WithContext("kind", kind).
			WithContext("connectorId", connectorID).
			Build())
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return utils.NewAppError(utils.NewServiceError(utils.ErrCodeUpstreamUnavailable,
			"workflow engine rejected the trigger").
			WithHTTPStatus(resp.StatusCode).
			WithRetryable(resp.StatusCode >= 500).
			WithContext("kind", kind).
			WithContext("connectorId", connectorID).
			WithContext("response", string(detail)).
			Build())
	}
}
