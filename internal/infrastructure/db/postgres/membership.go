package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ProjectMemberSource checks project_members, the current membership table.
type ProjectMemberSource struct {
	pool *pgxpool.Pool
}

func NewProjectMemberSource(pool *pgxpool.Pool) *ProjectMemberSource {
	return &ProjectMemberSource{pool: pool}
}

func (s *ProjectMemberSource) Name() string { return "project_members" }

func (s *ProjectMemberSource) IsMember(ctx context.Context, projectID, userID int64) (bool, error) {
	return exists(ctx, s.pool, s.Name(),
		`SELECT EXISTS(
		   SELECT 1 FROM project_members
		   WHERE project_id = $1 AND user_id = $2
		     AND (status IS NULL OR status = 'active'))`,
		projectID, userID)
}

// TeamMemberSource checks the older team schema, where members hang off a
// per-project team row.
type TeamMemberSource struct {
	pool *pgxpool.Pool
}

func NewTeamMemberSource(pool *pgxpool.Pool) *TeamMemberSource {
	return &TeamMemberSource{pool: pool}
}

func (s *TeamMemberSource) Name() string { return "project_team_members" }

func (s *TeamMemberSource) IsMember(ctx context.Context, projectID, userID int64) (bool, error) {
	return exists(ctx, s.pool, s.Name(),
		`SELECT EXISTS(
		   SELECT 1 FROM project_teams t
		   JOIN team_members m ON m.team_id = t.id
		   WHERE t.project_id = $1 AND m.user_id = $2
		     AND COALESCE(m.is_active, TRUE))`,
		projectID, userID)
}

// exists runs a boolean probe. A deployment without the probed table answers
// "no" instead of failing.
func exists(ctx context.Context, pool *pgxpool.Pool, source, query string, args ...any) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var ok bool
	if err := pool.QueryRow(ctx, query, args...).Scan(&ok); err != nil {
		if isUndefinedRelation(err) {
			return false, nil
		}
		return false, fmt.Errorf("%s lookup: %w", source, err)
	}
	return ok, nil
}
