package service

import (
	"context"

	"github.com/fusepoint/dashboard-service/internal/core/domain"
	"github.com/fusepoint/dashboard-service/internal/core/ports"
)

// DashboardStore owns input validation and default bootstrapping in front of
// the repository. Callers always receive a materialized Layout.
type DashboardStore struct {
	repo ports.DashboardRepository
}

func NewDashboardStore(repo ports.DashboardRepository) *DashboardStore {
	return &DashboardStore{repo: repo}
}

// Read returns the project's dashboard, creating the default document on
// first access.
func (s *DashboardStore) Read(ctx context.Context, projectID int64) (*domain.ProjectDashboard, error) {
	if projectID <= 0 {
		return nil, domain.ErrInvalidProjectID
	}
	d, _, err := s.repo.FindOrCreate(ctx, projectID, domain.DefaultLayout())
	return d, err
}

// Ensure makes sure the project has a dashboard and reports whether this
// call created it.
func (s *DashboardStore) Ensure(ctx context.Context, projectID int64) (bool, error) {
	if projectID <= 0 {
		return false, domain.ErrInvalidProjectID
	}
	_, created, err := s.repo.FindOrCreate(ctx, projectID, domain.DefaultLayout())
	return created, err
}

// Write replaces the layout wholesale. Invalid input is rejected before the
// repository is touched.
func (s *DashboardStore) Write(ctx context.Context, projectID int64, layout any, actorID int64, expectedVersion *int64) (*domain.ProjectDashboard, error) {
	if projectID <= 0 {
		return nil, domain.ErrInvalidProjectID
	}
	doc, err := domain.ParseLayout(layout)
	if err != nil {
		return nil, err
	}
	return s.repo.Save(ctx, projectID, doc, actorID, expectedVersion)
}

// Missing lists projects that do not have a dashboard yet.
func (s *DashboardStore) Missing(ctx context.Context) ([]int64, error) {
	return s.repo.ListProjectsWithoutDashboard(ctx)
}
