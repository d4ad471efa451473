package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/fusepoint/dashboard-service/internal/api/metrics"
	"github.com/fusepoint/dashboard-service/internal/core/domain"
	"github.com/fusepoint/dashboard-service/internal/core/ports"
)

// ProjectAccess gates a /projects/:projectId route on the resolver's
// decision for mode. It must run after Auth. On success the parsed id is
// stored as "project_id" and the decision as "access".
func ProjectAccess(resolver ports.AccessResolver, mode domain.AccessMode, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			projectID, err := strconv.ParseInt(c.Param("projectId"), 10, 64)
			if err != nil || projectID <= 0 {
				return echo.NewHTTPError(http.StatusBadRequest, domain.ErrInvalidProjectID.Error())
			}

			actor, ok := c.Get("actor").(domain.Actor)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
			}

			decision, err := resolver.Decide(c.Request().Context(), projectID, actor, mode)
			if err != nil {
				metrics.AccessDecisionsTotal.WithLabelValues(mode.String(), "error", decision.Reason).Inc()
				log.Error().Err(err).
					Int64("project_id", projectID).
					Int64("user_id", actor.UserID).
					Str("mode", mode.String()).
					Msg("access check failed")
				return domain.ErrForbidden
			}
			if !decision.Granted {
				metrics.AccessDecisionsTotal.WithLabelValues(mode.String(), "denied", decision.Reason).Inc()
				log.Debug().
					Int64("project_id", projectID).
					Int64("user_id", actor.UserID).
					Str("role", string(actor.Role)).
					Str("mode", mode.String()).
					Msg("access denied")
				return domain.ErrForbidden
			}

			metrics.AccessDecisionsTotal.WithLabelValues(mode.String(), "granted", decision.Reason).Inc()
			c.Set("project_id", projectID)
			c.Set("access", decision)
			return next(c)
		}
	}
}
