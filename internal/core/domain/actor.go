package domain

import "strings"

// Role is the platform role carried by an authenticated actor.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
	RoleAgent      Role = "agent"
	RoleClient     Role = "client"
	RoleUser       Role = "user"
)

// ParseRole normalizes a role claim. Unknown values are kept lower-cased so
// they simply never match a grant rule.
func ParseRole(s string) Role {
	return Role(strings.ToLower(strings.TrimSpace(s)))
}

// IsAdmin reports whether the role bypasses project-level checks.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Actor is the authenticated caller, supplied by the auth middleware.
type Actor struct {
	UserID int64
	Role   Role
}

// AccessMode selects which dashboard operation is being authorized.
type AccessMode int

const (
	AccessView AccessMode = iota
	AccessEdit
)

func (m AccessMode) String() string {
	if m == AccessEdit {
		return "edit"
	}
	return "view"
}

// PermissionLevel is the capacity in which access was granted.
type PermissionLevel string

const (
	LevelAdmin PermissionLevel = "admin"
	LevelAgent PermissionLevel = "agent"
	LevelUser  PermissionLevel = "user"
)

// Grant reasons, used for logs and metrics labels.
const (
	ReasonAdmin         = "admin"
	ReasonMember        = "member"
	ReasonAssignedAgent = "assigned_agent"
	ReasonOwnerClient   = "owner_client"
	ReasonRelationship  = "agent_client_relationship"
	ReasonDenied        = "denied"
)

// AccessDecision is computed per request and never persisted.
type AccessDecision struct {
	Granted     bool
	Level       PermissionLevel
	Permissions []string
	Reason      string
}

// Deny is the zero-grant decision.
func Deny() AccessDecision {
	return AccessDecision{Reason: ReasonDenied}
}
