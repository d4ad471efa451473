package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fusepoint/dashboard-service/internal/core/domain"
)

// RelationshipRepository reads agent_client_relationships.
type RelationshipRepository struct {
	pool *pgxpool.Pool
}

func NewRelationshipRepository(pool *pgxpool.Pool) *RelationshipRepository {
	return &RelationshipRepository{pool: pool}
}

func (r *RelationshipRepository) ActiveRelationship(ctx context.Context, agentID, clientID int64) (*domain.AgentClientRelationship, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rel := domain.AgentClientRelationship{AgentID: agentID, ClientID: clientID}
	var permissions []byte
	err := r.pool.QueryRow(ctx,
		`SELECT status, permissions
		 FROM agent_client_relationships
		 WHERE agent_id = $1 AND client_id = $2 AND status = $3
		 LIMIT 1`,
		agentID, clientID, domain.RelationshipActive,
	).Scan(&rel.Status, &permissions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isUndefinedRelation(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find relationship %d->%d: %w", agentID, clientID, err)
	}

	perms, err := decodePermissions(permissions)
	if err != nil {
		return nil, fmt.Errorf("relationship %d->%d: %w", agentID, clientID, err)
	}
	rel.Permissions = perms
	return &rel, nil
}

// decodePermissions accepts the JSON array the column normally holds; NULL
// and empty values mean no extra permissions.
func decodePermissions(raw []byte) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var perms []string
	if err := json.Unmarshal(raw, &perms); err != nil {
		return nil, fmt.Errorf("decode permissions: %w", err)
	}
	return perms, nil
}
