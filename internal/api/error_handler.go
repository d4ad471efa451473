package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/fusepoint/dashboard-service/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// conflictResponse is the 409 body for a stale write.
type conflictResponse struct {
	Error          string `json:"error"`
	Code           string `json:"code"`
	CurrentVersion *int64 `json:"currentVersion"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var conflict *domain.VersionConflictError
		if errors.As(err, &conflict) {
			resp := conflictResponse{Error: "dashboard was modified by someone else", Code: "VERSION_CONFLICT"}
			if conflict.Current > 0 {
				resp.CurrentVersion = &conflict.Current
			}
			_ = c.JSON(http.StatusConflict, resp)
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrInvalidLayout):
		return http.StatusBadRequest, domain.ErrInvalidLayout.Error()
	case errors.Is(err, domain.ErrInvalidProjectID):
		return http.StatusBadRequest, domain.ErrInvalidProjectID.Error()
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "access forbidden"
	case errors.Is(err, domain.ErrVersionConflict):
		return http.StatusConflict, domain.ErrVersionConflict.Error()
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
