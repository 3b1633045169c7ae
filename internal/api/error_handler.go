package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/biblioteca/lending-platform/internal/api/middleware"
	"github.com/biblioteca/lending-platform/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors. Code is
// stable and machine-readable; clients branch on it, never on the message.
type errorResponse struct {
	Error string      `json:"error"`
	Code  domain.Code `json:"code"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps coded domain errors to their HTTP status and renders their code.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>", "code": "<CODE>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolveError(err, log, c)
		_ = c.JSON(status, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Coded domain errors carry their own status mapping.
	var de *domain.Error
	if errors.As(err, &de) {
		return middleware.StatusForCode(de.Code), errorResponse{Error: de.Message, Code: de.Code}
	}

	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{
			Error: fmt.Sprintf("%v", he.Message),
			Code:  codeForStatus(he.Code),
		}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{
		Error: "internal server error",
		Code:  domain.CodeInternal,
	}
}

func codeForStatus(status int) domain.Code {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return domain.CodeNoToken
	case http.StatusForbidden:
		return domain.CodeInsufficientPermissions
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusConflict:
		return "CONFLICT"
	default:
		return domain.CodeInternal
	}
}
