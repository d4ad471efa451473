package ports

import (
	"context"

	"github.com/fusepoint/dashboard-service/internal/core/domain"
)

// DashboardRepository persists one versioned layout document per project.
// Implementations must make every method a single atomic store operation.
type DashboardRepository interface {
	// FindOrCreate returns the stored dashboard, inserting defaults at
	// version 1 when none exists. created is true only for the call whose
	// insert produced the row. Concurrent first calls must not fail.
	FindOrCreate(ctx context.Context, projectID int64, defaults domain.Layout) (d *domain.ProjectDashboard, created bool, err error)

	// Save replaces the layout and increments the version. When
	// expectedVersion is non-nil and a row exists with a different version it
	// returns a *domain.VersionConflictError and mutates nothing. A missing
	// row is inserted at version 1.
	Save(ctx context.Context, projectID int64, layout domain.Layout, actorID int64, expectedVersion *int64) (*domain.ProjectDashboard, error)

	// ListProjectsWithoutDashboard returns ids of known projects that have no
	// dashboard row yet.
	ListProjectsWithoutDashboard(ctx context.Context) ([]int64, error)
}

// VersionCache holds the last known dashboard version per project. It is a
// hint for conditional reads only; misses and errors fall back to the store.
type VersionCache interface {
	Get(ctx context.Context, projectID int64) (version int64, ok bool, err error)
	Set(ctx context.Context, projectID int64, version int64) error
	// Delete drops the entry so the next lookup reads the store.
	Delete(ctx context.Context, projectID int64) error
}
