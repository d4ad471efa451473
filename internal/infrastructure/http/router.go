package http

import (
	"github.com/labstack/echo/v4"

	"github.com/fusepoint/dashboard-service/internal/infrastructure/http/handlers"
)

// RegisterProbes mounts the health endpoints on e.
func RegisterProbes(e *echo.Echo, probes ...handlers.Probe) {
	// --- Health probes (no auth required) ---
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(probes...)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
}
