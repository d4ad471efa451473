package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/fusepoint/dashboard-service/internal/core/domain"
	"github.com/fusepoint/dashboard-service/internal/core/ports"
)

// BootstrapDispatcher fans a batch of project ids out to workers and returns
// the error of every project whose fn failed.
type BootstrapDispatcher interface {
	Run(ctx context.Context, projectIDs []int64, fn func(context.Context, int64) error) map[int64]error
}

type dashboardService struct {
	store      *DashboardStore
	cache      ports.VersionCache
	dispatcher BootstrapDispatcher
	log        zerolog.Logger
}

// NewDashboardService returns the dashboard facade. A nil cache disables the
// version hint; a nil dispatcher bootstraps projects sequentially.
func NewDashboardService(
	store *DashboardStore,
	cache ports.VersionCache,
	dispatcher BootstrapDispatcher,
	log zerolog.Logger,
) ports.DashboardService {
	if cache == nil {
		cache = noopVersionCache{}
	}
	if dispatcher == nil {
		dispatcher = sequentialDispatcher{}
	}
	return &dashboardService{
		store:      store,
		cache:      cache,
		dispatcher: dispatcher,
		log:        log,
	}
}

// GetDashboard reads (or bootstraps) the dashboard. Access must already have
// been checked by the caller.
func (s *dashboardService) GetDashboard(ctx context.Context, projectID int64) (*domain.ProjectDashboard, error) {
	d, err := s.store.Read(ctx, projectID)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidProjectID) {
			s.log.Error().Err(err).Int64("project_id", projectID).Msg("failed to read dashboard")
		}
		return nil, err
	}
	s.rememberVersion(ctx, d)
	return d, nil
}

// UpdateDashboard writes a new layout. Version conflicts are returned as-is
// so callers can branch on domain.ErrVersionConflict.
func (s *dashboardService) UpdateDashboard(ctx context.Context, in ports.UpdateDashboardInput) (*domain.ProjectDashboard, error) {
	d, err := s.store.Write(ctx, in.ProjectID, in.Layout, in.ActorID, in.ExpectedVersion)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrVersionConflict):
			s.log.Info().Err(err).
				Int64("project_id", in.ProjectID).
				Int64("actor_id", in.ActorID).
				Msg("dashboard update rejected")
		case errors.Is(err, domain.ErrInvalidLayout), errors.Is(err, domain.ErrInvalidProjectID):
		default:
			s.log.Error().Err(err).Int64("project_id", in.ProjectID).Msg("failed to update dashboard")
		}
		return nil, err
	}

	s.publishVersion(ctx, d)
	s.log.Info().
		Int64("project_id", d.ProjectID).
		Int64("actor_id", in.ActorID).
		Int64("version", d.Version).
		Msg("dashboard updated")
	return d, nil
}

func (s *dashboardService) DashboardVersion(ctx context.Context, projectID int64) (int64, error) {
	if projectID <= 0 {
		return 0, domain.ErrInvalidProjectID
	}
	v, ok, err := s.cache.Get(ctx, projectID)
	if err != nil {
		s.log.Warn().Err(err).Int64("project_id", projectID).Msg("version cache lookup failed")
	} else if ok {
		return v, nil
	}

	d, err := s.GetDashboard(ctx, projectID)
	if err != nil {
		return 0, err
	}
	return d.Version, nil
}

// BootstrapAll creates the default dashboard for every project that lacks
// one. A failing project is logged and reported, never aborts the batch.
func (s *dashboardService) BootstrapAll(ctx context.Context) (*ports.BootstrapReport, error) {
	ids, err := s.store.Missing(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects without dashboard: %w", err)
	}

	report := &ports.BootstrapReport{Total: len(ids)}
	if len(ids) == 0 {
		return report, nil
	}

	s.log.Info().Int("projects", len(ids)).Msg("bootstrapping dashboards")

	var created atomic.Int64
	failed := s.dispatcher.Run(ctx, ids, func(ctx context.Context, projectID int64) error {
		ok, err := s.store.Ensure(ctx, projectID)
		if ok {
			created.Add(1)
		}
		return err
	})

	for projectID, ferr := range failed {
		s.log.Error().Err(ferr).Int64("project_id", projectID).Msg("dashboard bootstrap failed")
		report.Failures = append(report.Failures, ports.BootstrapFailure{ProjectID: projectID, Err: ferr})
	}
	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].ProjectID < report.Failures[j].ProjectID
	})
	report.Created = int(created.Load())
	report.Existing = report.Total - report.Created - len(report.Failures)

	s.log.Info().
		Int("total", report.Total).
		Int("created", report.Created).
		Int("existing", report.Existing).
		Int("failed", len(report.Failures)).
		Msg("dashboard bootstrap finished")
	return report, nil
}

func (s *dashboardService) rememberVersion(ctx context.Context, d *domain.ProjectDashboard) {
	if err := s.cache.Set(ctx, d.ProjectID, d.Version); err != nil {
		s.log.Warn().Err(err).Int64("project_id", d.ProjectID).Msg("failed to cache dashboard version")
	}
}

// publishVersion records the version produced by a write. The cache still
// holds the previous version when Set fails, so the entry is dropped instead;
// a cached version older than the store would answer 304 for a stale ETag.
func (s *dashboardService) publishVersion(ctx context.Context, d *domain.ProjectDashboard) {
	err := s.cache.Set(ctx, d.ProjectID, d.Version)
	if err == nil {
		return
	}
	log := s.log.With().Int64("project_id", d.ProjectID).Int64("version", d.Version).Logger()
	if derr := s.cache.Delete(ctx, d.ProjectID); derr != nil {
		log.Error().Err(errors.Join(err, derr)).Msg("version cache may be stale after update")
		return
	}
	log.Warn().Err(err).Msg("failed to cache dashboard version, entry dropped")
}

type noopVersionCache struct{}

func (noopVersionCache) Get(context.Context, int64) (int64, bool, error) { return 0, false, nil }
func (noopVersionCache) Set(context.Context, int64, int64) error         { return nil }
func (noopVersionCache) Delete(context.Context, int64) error             { return nil }

type sequentialDispatcher struct{}

func (sequentialDispatcher) Run(ctx context.Context, ids []int64, fn func(context.Context, int64) error) map[int64]error {
	failed := make(map[int64]error)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			failed[id] = err
			continue
		}
		if err := fn(ctx, id); err != nil {
			failed[id] = err
		}
	}
	return failed
}
