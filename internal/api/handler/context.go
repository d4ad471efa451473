package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/fusepoint/dashboard-service/internal/core/domain"
)

// ctxActor extracts the caller injected by the Auth middleware and
// fast-fails before any service call when it is absent.
func ctxActor(c echo.Context) (domain.Actor, error) {
	actor, ok := c.Get("actor").(domain.Actor)
	if !ok || actor.UserID <= 0 {
		return domain.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return actor, nil
}

// ctxProjectID prefers the id already parsed by the ProjectAccess middleware
// and falls back to the path parameter.
func ctxProjectID(c echo.Context) (int64, error) {
	if id, ok := c.Get("project_id").(int64); ok && id > 0 {
		return id, nil
	}
	id, err := strconv.ParseInt(c.Param("projectId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidProjectID
	}
	return id, nil
}
