package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fusepoint/dashboard-service/internal/core/domain"
)

// ProjectRepository reads ownership columns from the platform's projects table.
type ProjectRepository struct {
	pool *pgxpool.Pool
}

func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

func (r *ProjectRepository) FindProject(ctx context.Context, projectID int64) (*domain.Project, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var agentID, clientID, companyID *int64
	p := domain.Project{ID: projectID}
	err := r.pool.QueryRow(ctx,
		`SELECT agent_id, client_id, company_id FROM projects WHERE id = $1`, projectID,
	).Scan(&agentID, &clientID, &companyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("find project %d: %w", projectID, err)
	}
	p.AgentID = deref(agentID)
	p.ClientID = deref(clientID)
	p.CompanyID = deref(companyID)
	return &p, nil
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
