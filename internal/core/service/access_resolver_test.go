package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fusepoint/dashboard-service/internal/core/domain"
	"github.com/fusepoint/dashboard-service/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubProjects struct {
	byID  map[int64]*domain.Project
	err   error
	calls int
}

func (s *stubProjects) FindProject(_ context.Context, projectID int64) (*domain.Project, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.byID[projectID]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	return p, nil
}

type stubMembership struct {
	name    string
	members map[[2]int64]bool
	err     error
	calls   int
}

func (s *stubMembership) Name() string { return s.name }

func (s *stubMembership) IsMember(_ context.Context, projectID, userID int64) (bool, error) {
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	return s.members[[2]int64{projectID, userID}], nil
}

type stubRelationships struct {
	rels map[[2]int64]*domain.AgentClientRelationship
	err  error
}

func (s *stubRelationships) ActiveRelationship(_ context.Context, agentID, clientID int64) (*domain.AgentClientRelationship, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rels[[2]int64{agentID, clientID}], nil
}

// project 100: agent 7, client 35.
func newResolverFixture() (*stubProjects, *stubMembership, *stubMembership, *stubRelationships) {
	projects := &stubProjects{byID: map[int64]*domain.Project{
		100: {ID: 100, AgentID: 7, ClientID: 35},
		200: {ID: 200, AgentID: 7},
	}}
	primary := &stubMembership{name: "project_members", members: map[[2]int64]bool{}}
	legacy := &stubMembership{name: "project_team", members: map[[2]int64]bool{}}
	rels := &stubRelationships{rels: map[[2]int64]*domain.AgentClientRelationship{
		{8, 35}: {AgentID: 8, ClientID: 35, Status: domain.RelationshipActive, Permissions: []string{"view_reports"}},
		{9, 35}: {AgentID: 9, ClientID: 35, Status: "inactive"},
	}}
	return projects, primary, legacy, rels
}

func newResolver(projects ports.ProjectLookup, rels ports.RelationshipLookup, sources ...ports.MembershipSource) *AccessResolver {
	return NewAccessResolver(projects, rels, zerolog.Nop(), sources...)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestAccessResolver_RoleGrants(t *testing.T) {
	cases := []struct {
		name    string
		actor   domain.Actor
		project int64
		canView bool
		canEdit bool
	}{
		{name: "admin any project", actor: domain.Actor{UserID: 1, Role: domain.RoleAdmin}, project: 100, canView: true, canEdit: true},
		{name: "admin unknown project", actor: domain.Actor{UserID: 1, Role: domain.RoleAdmin}, project: 999, canView: true, canEdit: true},
		{name: "super admin upper case", actor: domain.Actor{UserID: 2, Role: "SUPER_ADMIN"}, project: 100, canView: true, canEdit: true},
		{name: "owning client", actor: domain.Actor{UserID: 35, Role: domain.RoleClient}, project: 100, canView: true, canEdit: true},
		{name: "foreign client", actor: domain.Actor{UserID: 99, Role: domain.RoleClient}, project: 100, canView: false, canEdit: false},
		{name: "user with client id is not the client", actor: domain.Actor{UserID: 35, Role: domain.RoleUser}, project: 100, canView: false, canEdit: false},
		{name: "assigned agent", actor: domain.Actor{UserID: 7, Role: domain.RoleAgent}, project: 100, canView: true, canEdit: true},
		{name: "relationship agent views only", actor: domain.Actor{UserID: 8, Role: domain.RoleAgent}, project: 100, canView: true, canEdit: false},
		{name: "inactive relationship", actor: domain.Actor{UserID: 9, Role: domain.RoleAgent}, project: 100, canView: false, canEdit: false},
		{name: "relationship without project client", actor: domain.Actor{UserID: 8, Role: domain.RoleAgent}, project: 200, canView: false, canEdit: false},
		{name: "unknown project", actor: domain.Actor{UserID: 7, Role: domain.RoleAgent}, project: 999, canView: false, canEdit: false},
		{name: "anonymous", actor: domain.Actor{}, project: 100, canView: false, canEdit: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			projects, primary, legacy, rels := newResolverFixture()
			r := newResolver(projects, rels, primary, legacy)
			ctx := context.Background()

			if got := r.CanView(ctx, tc.project, tc.actor); got != tc.canView {
				t.Errorf("CanView = %v, want %v", got, tc.canView)
			}
			if got := r.CanEdit(ctx, tc.project, tc.actor); got != tc.canEdit {
				t.Errorf("CanEdit = %v, want %v", got, tc.canEdit)
			}
		})
	}
}

func TestAccessResolver_AdminSkipsLookups(t *testing.T) {
	projects, primary, legacy, rels := newResolverFixture()
	r := newResolver(projects, rels, primary, legacy)

	d, err := r.Decide(context.Background(), 100, domain.Actor{UserID: 1, Role: domain.RoleAdmin}, domain.AccessEdit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Granted || d.Level != domain.LevelAdmin {
		t.Errorf("expected admin grant, got %+v", d)
	}
	if projects.calls != 0 || primary.calls != 0 {
		t.Errorf("admin decision must not query collaborators")
	}
}

func TestAccessResolver_MembershipGrantsBeforeProjectLookup(t *testing.T) {
	projects, primary, legacy, rels := newResolverFixture()
	primary.members[[2]int64{100, 50}] = true
	r := newResolver(projects, rels, primary, legacy)

	d, err := r.Decide(context.Background(), 100, domain.Actor{UserID: 50, Role: domain.RoleUser}, domain.AccessEdit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Granted || d.Reason != domain.ReasonMember || d.Level != domain.LevelUser {
		t.Errorf("expected member grant, got %+v", d)
	}
	if legacy.calls != 0 {
		t.Errorf("legacy source must not be consulted after a match")
	}
	if projects.calls != 0 {
		t.Errorf("project lookup must not run after a membership grant")
	}
}

func TestAccessResolver_MembershipFallsBackToLegacySource(t *testing.T) {
	projects, primary, legacy, rels := newResolverFixture()
	primary.err = errors.New(`relation "project_members" does not exist`)
	legacy.members[[2]int64{100, 51}] = true
	r := newResolver(projects, rels, primary, legacy)

	d, err := r.Decide(context.Background(), 100, domain.Actor{UserID: 51, Role: domain.RoleAgent}, domain.AccessEdit)
	if err != nil {
		t.Fatalf("membership errors must be swallowed, got %v", err)
	}
	if !d.Granted || d.Level != domain.LevelAgent {
		t.Errorf("expected legacy member grant as agent, got %+v", d)
	}
	if primary.calls != 1 || legacy.calls != 1 {
		t.Errorf("expected both sources consulted once, got %d/%d", primary.calls, legacy.calls)
	}
}

func TestAccessResolver_AllMembershipSourcesFailing(t *testing.T) {
	projects, primary, legacy, rels := newResolverFixture()
	primary.err = errors.New("boom")
	legacy.err = errors.New("boom")
	r := newResolver(projects, rels, primary, legacy)

	if !r.CanView(context.Background(), 100, domain.Actor{UserID: 35, Role: domain.RoleClient}) {
		t.Error("owner client must still be granted when membership lookups fail")
	}
	if r.CanView(context.Background(), 100, domain.Actor{UserID: 60, Role: domain.RoleUser}) {
		t.Error("unrelated user must be denied")
	}
}

func TestAccessResolver_ProjectLookupErrorFailsClosed(t *testing.T) {
	projects, primary, legacy, rels := newResolverFixture()
	projects.err = errors.New("connection reset")
	r := newResolver(projects, rels, primary, legacy)
	actor := domain.Actor{UserID: 7, Role: domain.RoleAgent}

	d, err := r.Decide(context.Background(), 100, actor, domain.AccessView)
	if err == nil {
		t.Fatal("expected project lookup error to propagate")
	}
	if d.Granted {
		t.Error("decision must be a denial on lookup error")
	}
	if r.CanView(context.Background(), 100, actor) {
		t.Error("CanView must fail closed")
	}
}

func TestAccessResolver_RelationshipErrorIsNoMatch(t *testing.T) {
	projects, primary, legacy, rels := newResolverFixture()
	rels.err = errors.New("table agent_client_relationships missing")
	r := newResolver(projects, rels, primary, legacy)

	d, err := r.Decide(context.Background(), 100, domain.Actor{UserID: 8, Role: domain.RoleAgent}, domain.AccessView)
	if err != nil {
		t.Fatalf("relationship errors must be swallowed, got %v", err)
	}
	if d.Granted {
		t.Errorf("expected denial, got %+v", d)
	}
}

func TestAccessResolver_RelationshipCarriesPermissions(t *testing.T) {
	projects, primary, legacy, rels := newResolverFixture()
	r := newResolver(projects, rels, primary, legacy)

	d, err := r.Decide(context.Background(), 100, domain.Actor{UserID: 8, Role: domain.RoleAgent}, domain.AccessView)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Reason != domain.ReasonRelationship || len(d.Permissions) != 1 || d.Permissions[0] != "view_reports" {
		t.Errorf("unexpected decision: %+v", d)
	}
}

func TestAccessResolver_EditNeverWiderThanView(t *testing.T) {
	projects, primary, legacy, rels := newResolverFixture()
	primary.members[[2]int64{100, 70}] = true
	r := newResolver(projects, rels, primary, legacy)
	ctx := context.Background()

	actors := []domain.Actor{
		{UserID: 1, Role: domain.RoleAdmin},
		{UserID: 7, Role: domain.RoleAgent},
		{UserID: 8, Role: domain.RoleAgent},
		{UserID: 9, Role: domain.RoleAgent},
		{UserID: 35, Role: domain.RoleClient},
		{UserID: 70, Role: domain.RoleUser},
		{UserID: 99, Role: domain.RoleClient},
	}
	for _, a := range actors {
		for _, p := range []int64{100, 200, 999} {
			if r.CanEdit(ctx, p, a) && !r.CanView(ctx, p, a) {
				t.Errorf("actor %+v can edit project %d without view", a, p)
			}
		}
	}
}
