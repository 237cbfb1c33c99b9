// Package httpapi exposes ingestion and question answering over HTTP using echo.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/paperchat/internal/core/domain"
	"github.com/custodia-labs/paperchat/internal/logger"
)

// ErrMissingIngestService is returned when the ingestion service is not provided.
var ErrMissingIngestService = errors.New("httpapi: ingestion service is required")

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("httpapi: query service is required")

// errorResponse is the single error envelope returned by every route.
type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps a service error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrUnreadableDocument),
		errors.Is(err, domain.ErrUnsupportedType):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrProviderUnavailable),
		errors.Is(err, domain.ErrUnknownReference):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrStorageUnavailable),
		errors.Is(err, domain.ErrStoreCorrupt):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err in the error envelope with the status for its class.
func fail(c echo.Context, err error) error {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("%s %s: %v", c.Request().Method, c.Path(), err)
	} else {
		logger.Debug("%s %s: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(status, errorResponse{Error: err.Error()})
}

// errorHandler renders echo's own errors (unknown route, body too large,
// recovered panics) in the same envelope as service errors.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		}
	}
	if status >= http.StatusInternalServerError {
		logger.Error("%s %s: %v", c.Request().Method, c.Request().URL.Path, err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, errorResponse{Error: msg})
	}
	if err != nil {
		logger.Error("write error response: %v", err)
	}
}
