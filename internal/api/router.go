package api

import (
	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/fusepoint/dashboard-service/docs"
	"github.com/fusepoint/dashboard-service/internal/api/handler"
	"github.com/fusepoint/dashboard-service/internal/api/middleware"
	"github.com/fusepoint/dashboard-service/internal/core/domain"
	"github.com/fusepoint/dashboard-service/internal/core/ports"
	infrahttp "github.com/fusepoint/dashboard-service/internal/infrastructure/http"
	"github.com/fusepoint/dashboard-service/internal/infrastructure/http/handlers"
)

// Deps are the collaborators the HTTP layer is built from.
type Deps struct {
	Service   ports.DashboardService
	Resolver  ports.AccessResolver
	JWTSecret string
	Log       zerolog.Logger
	Probes    []handlers.Probe
	// Registerer receives the HTTP request metrics. Defaults to the global
	// Prometheus registerer.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	registerer := deps.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "dashboards",
		Subsystem:  "http",
		Registerer: registerer,
	}))

	// --- Operational endpoints (no auth required) ---
	infrahttp.RegisterProbes(e, deps.Probes...)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Dependencies ---
	dashboardHandler := handler.NewDashboardHandler(deps.Service, deps.Resolver)
	authMiddleware := middleware.Auth(deps.JWTSecret)

	// --- Dashboard routes ---
	v1 := e.Group("/v1", authMiddleware)
	v1.GET("/projects/:projectId/dashboard", dashboardHandler.Get,
		middleware.ProjectAccess(deps.Resolver, domain.AccessView, deps.Log))
	v1.PUT("/projects/:projectId/dashboard", dashboardHandler.Update,
		middleware.ProjectAccess(deps.Resolver, domain.AccessEdit, deps.Log))

	// --- Admin routes ---
	v1.POST("/admin/dashboards/bootstrap", dashboardHandler.Bootstrap,
		middleware.RBAC(domain.RoleAdmin, domain.RoleSuperAdmin))

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil {
				evt = log.Warn().Err(v.Error)
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
