package ports

import (
	"context"

	"github.com/fusepoint/dashboard-service/internal/core/domain"
)

// ProjectLookup resolves the ownership fields of a project. A missing project
// returns domain.ErrProjectNotFound.
type ProjectLookup interface {
	FindProject(ctx context.Context, projectID int64) (*domain.Project, error)
}

// MembershipSource answers whether a user is an active member of a project
// under one membership schema. Several sources are consulted in priority
// order; errors are treated as "not a member" by the caller.
type MembershipSource interface {
	Name() string
	IsMember(ctx context.Context, projectID, userID int64) (bool, error)
}

// RelationshipLookup finds the active agent-client relationship between two
// users. It returns (nil, nil) when none exists.
type RelationshipLookup interface {
	ActiveRelationship(ctx context.Context, agentID, clientID int64) (*domain.AgentClientRelationship, error)
}
