package domain

// Project carries the ownership fields the access resolver needs. Zero ids
// mean the relation is not set.
type Project struct {
	ID        int64
	AgentID   int64
	ClientID  int64
	CompanyID int64
}

// RelationshipActive is the only status that grants anything.
const RelationshipActive = "active"

// AgentClientRelationship is a standing assignment of an agent to a client,
// independent of project membership.
type AgentClientRelationship struct {
	AgentID     int64
	ClientID    int64
	Status      string
	Permissions []string
}

// Active reports whether the relationship currently grants access.
func (r *AgentClientRelationship) Active() bool {
	return r != nil && r.Status == RelationshipActive
}
