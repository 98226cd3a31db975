package errors

import (
	"github.com/kestrelhq/driveconnect/internal/logging"
	"github.com/kestrelhq/driveconnect/internal/types"
	"github.com/kestrelhq/driveconnect/internal/utils"
	"google.golang.org/api/googleapi"
)

// ClassifyGoogleAPIError converts a Drive API error into the service
// taxonomy. Retryable conditions are marked but never retried here; the
// workflow engine owns retry policy.
func ClassifyGoogleAPIError(err error, reqCtx *types.RequestContext, logger logging.Logger) error {
	apiErr, ok := err.(*googleapi.Error)
	if !ok {
		logger.Error("Non-API error from provider",
			logging.F("error", err.Error()),
			logging.F("traceId", reqCtx.TraceID),
		)
		return utils.NewAppError(utils.NewServiceError(utils.ErrCodeUpstreamUnavailable, err.Error()).
			WithRetryable(true).
			WithContext("traceId", reqCtx.TraceID).
			WithContext("connectorId", reqCtx.ConnectorID).
			Build())
	}

	var code string
	var retryable bool

	switch apiErr.Code {
	case 400:
		code = utils.ErrCodeInvalidArgument
	case 401:
		code = utils.ErrCodeAuthExpired
	case 403:
		code = utils.ErrCodePermissionDenied
		for _, e := range apiErr.Errors {
			switch e.Reason {
			case "rateLimitExceeded", "userRateLimitExceeded", "sharingRateLimitExceeded":
				code = utils.ErrCodeRateLimited
				retryable = true
			case "dailyLimitExceeded":
				code = utils.ErrCodeRateLimited
			}
		}
	case 404:
		code = utils.ErrCodeNodeNotFound
	case 429:
		code = utils.ErrCodeRateLimited
		retryable = true
	case 500, 502, 503, 504:
		code = utils.ErrCodeUpstreamUnavailable
		retryable = true
	default:
		if apiErr.Code >= 500 {
			code = utils.ErrCodeUpstreamUnavailable
			retryable = true
		} else {
			code = utils.ErrCodeUnknown
		}
	}

	logger.Error("Provider API error classified",
		logging.F("httpStatus", apiErr.Code),
		logging.F("errorCode", code),
		logging.F("retryable", retryable),
		logging.F("message", apiErr.Message),
		logging.F("traceId", reqCtx.TraceID),
		logging.F("connectorId", reqCtx.ConnectorID),
	)

	builder := utils.NewServiceError(code, apiErr.Message).
		WithHTTPStatus(apiErr.Code).
		WithRetryable(retryable).
		WithContext("traceId", reqCtx.TraceID).
		WithContext("requestType", string(reqCtx.RequestType)).
		WithContext("connectorId", reqCtx.ConnectorID)

	if len(apiErr.Errors) > 0 {
		builder.WithContext("reason", apiErr.Errors[0].Reason)
	}

	return utils.NewAppError(builder.Build())
}

// IsNotFound reports whether the raw provider error is a 404
func IsNotFound(err error) bool {
	apiErr, ok := err.(*googleapi.Error)
	return ok && apiErr.Code == 404
}
