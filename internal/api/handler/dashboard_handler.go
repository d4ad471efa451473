package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fusepoint/dashboard-service/internal/api/metrics"
	"github.com/fusepoint/dashboard-service/internal/core/domain"
	"github.com/fusepoint/dashboard-service/internal/core/ports"
)

// DashboardHandler handles HTTP requests for project dashboards. Routes are
// expected to be gated by the ProjectAccess middleware.
type DashboardHandler struct {
	service  ports.DashboardService
	resolver ports.AccessResolver
}

func NewDashboardHandler(service ports.DashboardService, resolver ports.AccessResolver) *DashboardHandler {
	return &DashboardHandler{service: service, resolver: resolver}
}

// Get handles GET /v1/projects/:projectId/dashboard.
//
// @Summary      Get a project dashboard
// @Description  Returns the layout, creating the default one on first access.
// @Tags         dashboards
// @Produce      json
// @Security     BearerAuth
// @Param        projectId      path      int     true   "Project ID"
// @Param        If-None-Match  header    string  false  "Entity tag from a previous read"
// @Success      200            {object}  dashboardResponse
// @Success      304            "Not modified"
// @Failure      400            {object}  map[string]string
// @Failure      401            {object}  map[string]string
// @Failure      403            {object}  map[string]string
// @Failure      500            {object}  map[string]string
// @Router       /v1/projects/{projectId}/dashboard [get]
func (h *DashboardHandler) Get(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	projectID, err := ctxProjectID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	if inm := c.Request().Header.Get("If-None-Match"); inm != "" {
		if v, err := h.service.DashboardVersion(ctx, projectID); err == nil && etagMatches(inm, v) {
			metrics.DashboardReadsTotal.WithLabelValues("not_modified").Inc()
			c.Response().Header().Set("ETag", etag(v))
			return c.NoContent(http.StatusNotModified)
		}
	}

	d, err := h.service.GetDashboard(ctx, projectID)
	if err != nil {
		metrics.DashboardReadsTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.DashboardReadsTotal.WithLabelValues("ok").Inc()

	c.Response().Header().Set("ETag", etag(d.Version))
	return c.JSON(http.StatusOK, toDashboardResponse(d, h.resolver.CanEdit(ctx, projectID, actor)))
}

// Update handles PUT /v1/projects/:projectId/dashboard.
//
// @Summary      Replace a project dashboard
// @Description  Replaces the whole layout. Send the version last read, in the body or If-Match, to reject concurrent edits.
// @Tags         dashboards
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        projectId  path      int                     true   "Project ID"
// @Param        If-Match   header    string                  false  "Entity tag of the version being replaced"
// @Param        body       body      updateDashboardRequest  true   "New layout"
// @Success      200        {object}  dashboardResponse
// @Failure      400        {object}  map[string]string
// @Failure      401        {object}  map[string]string
// @Failure      403        {object}  map[string]string
// @Failure      409        {object}  map[string]any
// @Failure      500        {object}  map[string]string
// @Router       /v1/projects/{projectId}/dashboard [put]
func (h *DashboardHandler) Update(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	projectID, err := ctxProjectID(c)
	if err != nil {
		return err
	}

	var req updateDashboardRequest
	if err := decodeBody(c, &req); err != nil {
		metrics.DashboardWritesTotal.WithLabelValues("invalid").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		metrics.DashboardWritesTotal.WithLabelValues("invalid").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	expected, err := expectedVersion(req.Version, c.Request().Header.Get("If-Match"))
	if err != nil {
		metrics.DashboardWritesTotal.WithLabelValues("invalid").Inc()
		return err
	}

	d, err := h.service.UpdateDashboard(c.Request().Context(), ports.UpdateDashboardInput{
		ProjectID:       projectID,
		Layout:          req.Layout,
		ActorID:         actor.UserID,
		ExpectedVersion: expected,
	})
	if err != nil {
		metrics.DashboardWritesTotal.WithLabelValues(writeResult(err)).Inc()
		return err
	}
	metrics.DashboardWritesTotal.WithLabelValues("ok").Inc()

	c.Response().Header().Set("ETag", etag(d.Version))
	return c.JSON(http.StatusOK, toDashboardResponse(d, true))
}

// Bootstrap handles POST /v1/admin/dashboards/bootstrap.
//
// @Summary      Create missing dashboards
// @Description  Creates the default dashboard for every project that has none. Individual failures are reported, not fatal.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  bootstrapResponse
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /v1/admin/dashboards/bootstrap [post]
func (h *DashboardHandler) Bootstrap(c echo.Context) error {
	start := time.Now()
	report, err := h.service.BootstrapAll(c.Request().Context())
	metrics.BootstrapDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}

	metrics.BootstrapProjectsTotal.WithLabelValues("created").Add(float64(report.Created))
	metrics.BootstrapProjectsTotal.WithLabelValues("existing").Add(float64(report.Existing))
	metrics.BootstrapProjectsTotal.WithLabelValues("failed").Add(float64(len(report.Failures)))
	return c.JSON(http.StatusOK, toBootstrapResponse(report))
}

// decodeBody reads the JSON body keeping numbers as json.Number, so layout
// values are stored exactly as sent. An empty body leaves v untouched.
func decodeBody(c echo.Context, v any) error {
	dec := json.NewDecoder(c.Request().Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// expectedVersion picks the optimistic-lock version from the body or the
// If-Match header. When both are present they must agree.
func expectedVersion(body *int64, ifMatch string) (*int64, error) {
	if ifMatch == "" || ifMatch == "*" {
		return body, nil
	}
	v, ok := parseETag(ifMatch)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid If-Match header")
	}
	if body != nil && *body != v {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "version and If-Match disagree")
	}
	return &v, nil
}

func writeResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrVersionConflict):
		return "conflict"
	case errors.Is(err, domain.ErrInvalidLayout), errors.Is(err, domain.ErrInvalidProjectID):
		return "invalid"
	default:
		return "error"
	}
}
