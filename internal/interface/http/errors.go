package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pianova-hub/piano-progression-hub/internal/domain/shared"
	"github.com/pianova-hub/piano-progression-hub/pkg/logger"
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler maps domain errors to HTTP status codes. Malformed input is
// the caller's fault, transient storage trouble is retryable, everything
// else is an internal error with the detail kept out of the response.
func errorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, code := classify(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			log.Error("unhandled request error",
				logger.String("path", c.Request().URL.Path),
				logger.Err(err),
			)
			msg = "internal error"
		}

		_ = c.JSON(status, errorResponse{Error: errorBody{Code: code, Message: msg}})
	}
}

func classify(err error) (int, string) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code := "bad_request"
		if httpErr.Code == http.StatusNotFound {
			code = "not_found"
		}
		return httpErr.Code, code
	}

	switch {
	case shared.IsInvalidEvent(err),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case shared.IsTransient(err):
		return http.StatusServiceUnavailable, "storage_unavailable"
	case shared.IsConfiguration(err):
		return http.StatusInternalServerError, "configuration_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
