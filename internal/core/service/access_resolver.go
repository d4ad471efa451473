package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fusepoint/dashboard-service/internal/core/domain"
	"github.com/fusepoint/dashboard-service/internal/core/ports"
)

// AccessResolver implements ports.AccessResolver. Rules are evaluated in a
// fixed order and the first grant wins.
type AccessResolver struct {
	projects      ports.ProjectLookup
	memberships   []ports.MembershipSource
	relationships ports.RelationshipLookup
	log           zerolog.Logger
}

// NewAccessResolver builds a resolver. Membership sources are consulted in
// the order given.
func NewAccessResolver(
	projects ports.ProjectLookup,
	relationships ports.RelationshipLookup,
	log zerolog.Logger,
	memberships ...ports.MembershipSource,
) *AccessResolver {
	return &AccessResolver{
		projects:      projects,
		memberships:   memberships,
		relationships: relationships,
		log:           log,
	}
}

func (r *AccessResolver) Decide(ctx context.Context, projectID int64, actor domain.Actor, mode domain.AccessMode) (domain.AccessDecision, error) {
	actor.Role = domain.ParseRole(string(actor.Role))

	// 1. Platform admins.
	if actor.Role.IsAdmin() {
		return domain.AccessDecision{Granted: true, Level: domain.LevelAdmin, Reason: domain.ReasonAdmin}, nil
	}
	if actor.UserID <= 0 || projectID <= 0 {
		return domain.Deny(), nil
	}

	// 2. Project membership, any schema.
	if r.isMember(ctx, projectID, actor.UserID) {
		return domain.AccessDecision{Granted: true, Level: memberLevel(actor.Role), Reason: domain.ReasonMember}, nil
	}

	project, err := r.projects.FindProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			return domain.Deny(), nil
		}
		return domain.Deny(), fmt.Errorf("resolve access: %w", err)
	}

	// 3. Assigned agent.
	if project.AgentID != 0 && project.AgentID == actor.UserID {
		return domain.AccessDecision{Granted: true, Level: domain.LevelAgent, Reason: domain.ReasonAssignedAgent}, nil
	}

	// 4. Owning client.
	if actor.Role == domain.RoleClient && project.ClientID != 0 && project.ClientID == actor.UserID {
		return domain.AccessDecision{Granted: true, Level: domain.LevelUser, Reason: domain.ReasonOwnerClient}, nil
	}

	// 5. Agents with a standing relationship to the client may only view.
	if mode == domain.AccessView && actor.Role == domain.RoleAgent && project.ClientID != 0 {
		if rel := r.activeRelationship(ctx, actor.UserID, project.ClientID); rel != nil {
			return domain.AccessDecision{
				Granted:     true,
				Level:       domain.LevelAgent,
				Permissions: rel.Permissions,
				Reason:      domain.ReasonRelationship,
			}, nil
		}
	}

	return domain.Deny(), nil
}

func (r *AccessResolver) CanView(ctx context.Context, projectID int64, actor domain.Actor) bool {
	return r.allowed(ctx, projectID, actor, domain.AccessView)
}

func (r *AccessResolver) CanEdit(ctx context.Context, projectID int64, actor domain.Actor) bool {
	return r.allowed(ctx, projectID, actor, domain.AccessEdit)
}

func (r *AccessResolver) allowed(ctx context.Context, projectID int64, actor domain.Actor, mode domain.AccessMode) bool {
	decision, err := r.Decide(ctx, projectID, actor, mode)
	if err != nil {
		r.log.Warn().Err(err).
			Int64("project_id", projectID).
			Int64("user_id", actor.UserID).
			Str("mode", mode.String()).
			Msg("access check failed, denying")
		return false
	}
	return decision.Granted
}

func (r *AccessResolver) isMember(ctx context.Context, projectID, userID int64) bool {
	for _, src := range r.memberships {
		ok, err := src.IsMember(ctx, projectID, userID)
		if err != nil {
			r.log.Debug().Err(err).
				Str("source", src.Name()).
				Int64("project_id", projectID).
				Msg("membership lookup failed, skipping source")
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

func (r *AccessResolver) activeRelationship(ctx context.Context, agentID, clientID int64) *domain.AgentClientRelationship {
	if r.relationships == nil {
		return nil
	}
	rel, err := r.relationships.ActiveRelationship(ctx, agentID, clientID)
	if err != nil {
		r.log.Debug().Err(err).
			Int64("agent_id", agentID).
			Int64("client_id", clientID).
			Msg("relationship lookup failed")
		return nil
	}
	if !rel.Active() {
		return nil
	}
	return rel
}

func memberLevel(role domain.Role) domain.PermissionLevel {
	if role == domain.RoleAgent {
		return domain.LevelAgent
	}
	return domain.LevelUser
}
