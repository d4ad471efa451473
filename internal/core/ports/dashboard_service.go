package ports

import (
	"context"

	"github.com/fusepoint/dashboard-service/internal/core/domain"
)

// UpdateDashboardInput is the DTO passed from the transport layer.
type UpdateDashboardInput struct {
	ProjectID int64
	// Layout is the decoded request body; it must be a JSON object.
	Layout  any
	ActorID int64
	// ExpectedVersion enables the optimistic-concurrency check when non-nil.
	ExpectedVersion *int64
}

// BootstrapFailure records one project that could not be bootstrapped.
type BootstrapFailure struct {
	ProjectID int64
	Err       error
}

// BootstrapReport summarizes a BootstrapAll run. Existing counts projects
// whose dashboard appeared between listing and bootstrapping, for example
// through a concurrent first read.
type BootstrapReport struct {
	Total    int
	Created  int
	Existing int
	Failures []BootstrapFailure
}

// DashboardService is the only entry point transport code calls. Access is
// expected to be gated before GetDashboard and UpdateDashboard are reached.
type DashboardService interface {
	GetDashboard(ctx context.Context, projectID int64) (*domain.ProjectDashboard, error)
	UpdateDashboard(ctx context.Context, input UpdateDashboardInput) (*domain.ProjectDashboard, error)
	// DashboardVersion returns the current version, preferring the cache.
	DashboardVersion(ctx context.Context, projectID int64) (int64, error)
	BootstrapAll(ctx context.Context) (*BootstrapReport, error)
}
