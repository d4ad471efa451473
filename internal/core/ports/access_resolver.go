package ports

import (
	"context"

	"github.com/fusepoint/dashboard-service/internal/core/domain"
)

// AccessResolver decides whether an actor may view or edit a project's
// dashboard. It never mutates state.
type AccessResolver interface {
	// Decide returns the full decision. A non-nil error means the mandatory
	// project lookup failed and the decision is a denial.
	Decide(ctx context.Context, projectID int64, actor domain.Actor, mode domain.AccessMode) (domain.AccessDecision, error)
	CanView(ctx context.Context, projectID int64, actor domain.Actor) bool
	CanEdit(ctx context.Context, projectID int64, actor domain.Actor) bool
}
