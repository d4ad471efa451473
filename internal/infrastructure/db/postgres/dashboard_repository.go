package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fusepoint/dashboard-service/internal/core/domain"
	"github.com/fusepoint/dashboard-service/internal/core/ports"
)

const dashboardColumns = `project_id, layout, version, updated_at, updated_by`

// DashboardRepository implements ports.DashboardRepository on the
// project_dashboards table. Every write is one statement; the version check
// lives in its WHERE clause or ON CONFLICT arm.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

func NewDashboardRepository(pool *pgxpool.Pool) ports.DashboardRepository {
	return &DashboardRepository{pool: pool}
}

func (r *DashboardRepository) FindOrCreate(ctx context.Context, projectID int64, defaults domain.Layout) (*domain.ProjectDashboard, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	d, err := r.find(ctx, projectID)
	if err == nil {
		return d, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("get dashboard %d: %w", projectID, err)
	}

	encoded, err := domain.EncodeLayout(defaults)
	if err != nil {
		return nil, false, err
	}
	// DO NOTHING keeps concurrent first reads from failing; the loser reads
	// the winner's row below.
	d, err = scanDashboard(r.pool.QueryRow(ctx,
		`INSERT INTO project_dashboards (project_id, layout, version)
		 VALUES ($1, $2, 1)
		 ON CONFLICT (project_id) DO NOTHING
		 RETURNING `+dashboardColumns,
		projectID, encoded))
	if err == nil {
		return d, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("create dashboard %d: %w", projectID, err)
	}

	d, err = r.find(ctx, projectID)
	if err != nil {
		return nil, false, fmt.Errorf("get dashboard %d: %w", projectID, err)
	}
	return d, false, nil
}

func (r *DashboardRepository) Save(ctx context.Context, projectID int64, layout domain.Layout, actorID int64, expectedVersion *int64) (*domain.ProjectDashboard, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	encoded, err := domain.EncodeLayout(layout)
	if err != nil {
		return nil, err
	}

	if expectedVersion == nil {
		d, err := scanDashboard(r.pool.QueryRow(ctx,
			`INSERT INTO project_dashboards (project_id, layout, version, updated_by)
			 VALUES ($1, $2, 1, $3)
			 ON CONFLICT (project_id) DO UPDATE SET
			   layout = EXCLUDED.layout,
			   version = project_dashboards.version + 1,
			   updated_by = EXCLUDED.updated_by,
			   updated_at = NOW()
			 RETURNING `+dashboardColumns,
			projectID, encoded, actorID))
		if err != nil {
			return nil, fmt.Errorf("upsert dashboard %d: %w", projectID, err)
		}
		return d, nil
	}

	d, err := scanDashboard(r.pool.QueryRow(ctx,
		`UPDATE project_dashboards
		 SET layout = $2, version = version + 1, updated_by = $3, updated_at = NOW()
		 WHERE project_id = $1 AND version = $4
		 RETURNING `+dashboardColumns,
		projectID, encoded, actorID, *expectedVersion))
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update dashboard %d: %w", projectID, err)
	}

	// Nothing at the expected version. Insert if the row is missing; an
	// existing row means another writer got there first.
	d, err = scanDashboard(r.pool.QueryRow(ctx,
		`INSERT INTO project_dashboards (project_id, layout, version, updated_by)
		 VALUES ($1, $2, 1, $3)
		 ON CONFLICT (project_id) DO NOTHING
		 RETURNING `+dashboardColumns,
		projectID, encoded, actorID))
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) && !isUniqueViolation(err) {
		return nil, fmt.Errorf("insert dashboard %d: %w", projectID, err)
	}

	conflict := &domain.VersionConflictError{ProjectID: projectID, Expected: *expectedVersion}
	var current int64
	if err := r.pool.QueryRow(ctx, `SELECT version FROM project_dashboards WHERE project_id = $1`, projectID).Scan(&current); err == nil {
		conflict.Current = current
	}
	return nil, conflict
}

// ListProjectsWithoutDashboard reads the platform's projects table.
func (r *DashboardRepository) ListProjectsWithoutDashboard(ctx context.Context) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*defaultTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx,
		`SELECT p.id
		 FROM projects p
		 LEFT JOIN project_dashboards d ON d.project_id = p.id
		 WHERE d.project_id IS NULL
		 ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("list projects without dashboard: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scan project ids: %w", err)
	}
	return ids, nil
}

func (r *DashboardRepository) find(ctx context.Context, projectID int64) (*domain.ProjectDashboard, error) {
	return scanDashboard(r.pool.QueryRow(ctx,
		`SELECT `+dashboardColumns+` FROM project_dashboards WHERE project_id = $1`, projectID))
}

func scanDashboard(row pgx.Row) (*domain.ProjectDashboard, error) {
	var (
		d         domain.ProjectDashboard
		raw       []byte
		updatedAt time.Time
	)
	if err := row.Scan(&d.ProjectID, &raw, &d.Version, &updatedAt, &d.UpdatedBy); err != nil {
		return nil, err
	}
	layout, err := domain.DecodeLayout(raw)
	if err != nil {
		return nil, fmt.Errorf("dashboard %d: %w", d.ProjectID, err)
	}
	d.Layout = layout
	d.UpdatedAt = updatedAt.UTC()
	return &d, nil
}
