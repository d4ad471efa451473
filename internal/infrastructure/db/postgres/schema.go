package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// dashboardTableColumns are the columns the repositories read and write.
var dashboardTableColumns = []string{"project_id", "layout", "version", "created_at", "updated_at", "updated_by"}

// VerifySchema checks that project_dashboards exists with every column the
// repositories use and that project_id carries a unique constraint. The
// table itself is provisioned by the platform's schema tooling.
func VerifySchema(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := pool.Query(ctx,
		`SELECT column_name FROM information_schema.columns
		 WHERE table_schema = current_schema() AND table_name = 'project_dashboards'`)
	if err != nil {
		return fmt.Errorf("inspect project_dashboards: %w", err)
	}
	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("inspect project_dashboards: %w", err)
		}
		present[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("inspect project_dashboards: %w", err)
	}
	if missing := missingColumns(present); len(missing) > 0 {
		return fmt.Errorf("project_dashboards is missing columns %v", missing)
	}

	var unique bool
	err = pool.QueryRow(ctx,
		`SELECT EXISTS(
		   SELECT 1 FROM pg_index i
		   JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
		   WHERE i.indrelid = 'project_dashboards'::regclass
		     AND i.indisunique AND i.indnatts = 1 AND a.attname = 'project_id')`,
	).Scan(&unique)
	if err != nil {
		return fmt.Errorf("inspect project_dashboards indexes: %w", err)
	}
	if !unique {
		return fmt.Errorf("project_dashboards.project_id must be unique")
	}
	return nil
}

func missingColumns(present map[string]bool) []string {
	var missing []string
	for _, col := range dashboardTableColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}
