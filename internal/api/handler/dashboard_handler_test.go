package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fusepoint/dashboard-service/internal/core/domain"
	"github.com/fusepoint/dashboard-service/internal/core/ports"
)

// --- Stubs ---

type stubDashboardService struct {
	dashboard *domain.ProjectDashboard
	version   int64
	err       error
	report    *ports.BootstrapReport

	lastUpdate   ports.UpdateDashboardInput
	getCalls     int
	versionCalls int
}

func (s *stubDashboardService) GetDashboard(context.Context, int64) (*domain.ProjectDashboard, error) {
	s.getCalls++
	return s.dashboard, s.err
}

func (s *stubDashboardService) UpdateDashboard(_ context.Context, in ports.UpdateDashboardInput) (*domain.ProjectDashboard, error) {
	s.lastUpdate = in
	if s.err != nil {
		return nil, s.err
	}
	if _, err := domain.ParseLayout(in.Layout); err != nil {
		return nil, err
	}
	return s.dashboard, nil
}

func (s *stubDashboardService) DashboardVersion(context.Context, int64) (int64, error) {
	s.versionCalls++
	return s.version, nil
}

func (s *stubDashboardService) BootstrapAll(context.Context) (*ports.BootstrapReport, error) {
	return s.report, s.err
}

type stubAccess struct{ edit bool }

func (s stubAccess) Decide(context.Context, int64, domain.Actor, domain.AccessMode) (domain.AccessDecision, error) {
	return domain.AccessDecision{Granted: true}, nil
}
func (s stubAccess) CanView(context.Context, int64, domain.Actor) bool { return true }
func (s stubAccess) CanEdit(context.Context, int64, domain.Actor) bool { return s.edit }

// --- Helpers ---

func sampleDashboard(version int64) *domain.ProjectDashboard {
	by := int64(5)
	return &domain.ProjectDashboard{
		ProjectID: 100,
		Layout:    domain.Layout{"widgets": []any{}},
		Version:   version,
		UpdatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		UpdatedBy: &by,
	}
}

func newContext(method, body string, headers map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, "/v1/projects/100/dashboard", strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("projectId")
	c.SetParamValues("100")
	c.Set("actor", domain.Actor{UserID: 5, Role: domain.RoleUser})
	return c, rec
}

// --- Get ---

func TestDashboardHandler_Get(t *testing.T) {
	svc := &stubDashboardService{dashboard: sampleDashboard(3)}
	h := NewDashboardHandler(svc, stubAccess{edit: true})
	c, rec := newContext(http.MethodGet, "", nil)

	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("ETag"); got != `W/"3"` {
		t.Fatalf("unexpected ETag %q", got)
	}

	var body dashboardResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ProjectID != 100 || body.Version != 3 || !body.CanEdit {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.UpdatedAt != "2026-03-01T12:00:00Z" || body.UpdatedBy == nil || *body.UpdatedBy != 5 {
		t.Fatalf("unexpected audit fields: %+v", body)
	}
	if svc.versionCalls != 0 {
		t.Fatal("version lookup should only run for conditional reads")
	}
}

func TestDashboardHandler_GetReportsViewOnly(t *testing.T) {
	h := NewDashboardHandler(&stubDashboardService{dashboard: sampleDashboard(1)}, stubAccess{edit: false})
	c, rec := newContext(http.MethodGet, "", nil)

	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body dashboardResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.CanEdit {
		t.Fatal("expected canEdit=false")
	}
}

func TestDashboardHandler_GetNotModified(t *testing.T) {
	svc := &stubDashboardService{dashboard: sampleDashboard(4), version: 4}
	h := NewDashboardHandler(svc, stubAccess{})
	c, rec := newContext(http.MethodGet, "", map[string]string{"If-None-Match": `"2", W/"4"`})

	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", rec.Code)
	}
	if svc.getCalls != 0 {
		t.Fatal("layout should not be loaded for a matching tag")
	}
}

func TestDashboardHandler_GetStaleTagLoadsLayout(t *testing.T) {
	svc := &stubDashboardService{dashboard: sampleDashboard(5), version: 5}
	h := NewDashboardHandler(svc, stubAccess{})
	c, rec := newContext(http.MethodGet, "", map[string]string{"If-None-Match": `W/"4"`})

	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK || svc.getCalls != 1 {
		t.Fatalf("expected full read, got %d (gets=%d)", rec.Code, svc.getCalls)
	}
}

func TestDashboardHandler_GetPropagatesErrors(t *testing.T) {
	boom := errors.New("store down")
	h := NewDashboardHandler(&stubDashboardService{err: boom}, stubAccess{})
	c, _ := newContext(http.MethodGet, "", nil)

	if err := h.Get(c); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestDashboardHandler_GetRequiresActor(t *testing.T) {
	h := NewDashboardHandler(&stubDashboardService{dashboard: sampleDashboard(1)}, stubAccess{})
	c, _ := newContext(http.MethodGet, "", nil)
	c.Set("actor", nil)

	var he *echo.HTTPError
	if err := h.Get(c); !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

// --- Update ---

func TestDashboardHandler_Update(t *testing.T) {
	svc := &stubDashboardService{dashboard: sampleDashboard(4)}
	h := NewDashboardHandler(svc, stubAccess{})
	c, rec := newContext(http.MethodPut, `{"layout":{"widgets":[{"id":"w1"}]},"version":3}`, nil)

	if err := h.Update(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("ETag") != `W/"4"` {
		t.Fatalf("unexpected ETag %q", rec.Header().Get("ETag"))
	}
	in := svc.lastUpdate
	if in.ProjectID != 100 || in.ActorID != 5 {
		t.Fatalf("unexpected input: %+v", in)
	}
	if in.ExpectedVersion == nil || *in.ExpectedVersion != 3 {
		t.Fatalf("expected version 3, got %v", in.ExpectedVersion)
	}
	if _, ok := in.Layout.(map[string]any); !ok {
		t.Fatalf("layout should arrive as a JSON object, got %T", in.Layout)
	}
}

func TestDashboardHandler_UpdateUsesIfMatch(t *testing.T) {
	svc := &stubDashboardService{dashboard: sampleDashboard(8)}
	h := NewDashboardHandler(svc, stubAccess{})
	c, _ := newContext(http.MethodPut, `{"layout":{}}`, map[string]string{"If-Match": `W/"7"`})

	if err := h.Update(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.lastUpdate.ExpectedVersion == nil || *svc.lastUpdate.ExpectedVersion != 7 {
		t.Fatalf("expected version 7 from If-Match, got %v", svc.lastUpdate.ExpectedVersion)
	}
}

func TestDashboardHandler_UpdateUnconditional(t *testing.T) {
	svc := &stubDashboardService{dashboard: sampleDashboard(2)}
	h := NewDashboardHandler(svc, stubAccess{})
	c, _ := newContext(http.MethodPut, `{"layout":{"a":1}}`, nil)

	if err := h.Update(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.lastUpdate.ExpectedVersion != nil {
		t.Fatalf("expected no version check, got %d", *svc.lastUpdate.ExpectedVersion)
	}
}

func TestDashboardHandler_UpdateRejectsBadVersions(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		headers map[string]string
	}{
		{name: "zero body version", body: `{"layout":{},"version":0}`},
		{name: "malformed If-Match", body: `{"layout":{}}`, headers: map[string]string{"If-Match": "seven"}},
		{name: "disagreeing versions", body: `{"layout":{},"version":2}`, headers: map[string]string{"If-Match": `"3"`}},
		{name: "malformed JSON", body: `{"layout":`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubDashboardService{dashboard: sampleDashboard(1)}
			h := NewDashboardHandler(svc, stubAccess{})
			c, _ := newContext(http.MethodPut, tc.body, tc.headers)

			var he *echo.HTTPError
			if err := h.Update(c); !errors.As(err, &he) || he.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %v", err)
			}
			if svc.lastUpdate.ProjectID != 0 {
				t.Fatal("service should not be called")
			}
		})
	}
}

func TestDashboardHandler_UpdateKeepsLargeIntegers(t *testing.T) {
	svc := &stubDashboardService{dashboard: sampleDashboard(2)}
	h := NewDashboardHandler(svc, stubAccess{})
	c, _ := newContext(http.MethodPut, `{"layout":{"widgets":[{"id":9007199254740993}]},"version":1}`, nil)

	if err := h.Update(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	layout, _ := svc.lastUpdate.Layout.(map[string]any)
	widgets, _ := layout["widgets"].([]any)
	if len(widgets) != 1 {
		t.Fatalf("unexpected layout: %#v", svc.lastUpdate.Layout)
	}
	widget, _ := widgets[0].(map[string]any)
	if widget["id"] != json.Number("9007199254740993") {
		t.Fatalf("id lost precision: %#v", widget["id"])
	}
	if svc.lastUpdate.ExpectedVersion == nil || *svc.lastUpdate.ExpectedVersion != 1 {
		t.Fatalf("expected version 1, got %v", svc.lastUpdate.ExpectedVersion)
	}
}

func TestDashboardHandler_UpdateNonObjectLayout(t *testing.T) {
	for _, body := range []string{`{"layout":null}`, `{"layout":[1,2]}`, `{"layout":"x"}`, `{}`} {
		h := NewDashboardHandler(&stubDashboardService{dashboard: sampleDashboard(1)}, stubAccess{})
		c, _ := newContext(http.MethodPut, body, nil)

		if err := h.Update(c); !errors.Is(err, domain.ErrInvalidLayout) {
			t.Fatalf("%s: expected ErrInvalidLayout, got %v", body, err)
		}
	}
}

func TestDashboardHandler_UpdateConflict(t *testing.T) {
	conflict := &domain.VersionConflictError{ProjectID: 100, Expected: 1, Current: 2}
	h := NewDashboardHandler(&stubDashboardService{err: conflict}, stubAccess{})
	c, _ := newContext(http.MethodPut, `{"layout":{},"version":1}`, nil)

	if err := h.Update(c); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

// --- Bootstrap ---

func TestDashboardHandler_Bootstrap(t *testing.T) {
	svc := &stubDashboardService{report: &ports.BootstrapReport{
		Total:    4,
		Created:  2,
		Existing: 1,
		Failures: []ports.BootstrapFailure{{ProjectID: 9, Err: errors.New("timeout")}},
	}}
	h := NewDashboardHandler(svc, stubAccess{})
	c, rec := newContext(http.MethodPost, "", nil)

	if err := h.Bootstrap(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body bootstrapResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 4 || body.Created != 2 || body.Existing != 1 || body.Failed != 1 {
		t.Fatalf("unexpected counts: %+v", body)
	}
	if len(body.Failures) != 1 || body.Failures[0].ProjectID != 9 || body.Failures[0].Error != "timeout" {
		t.Fatalf("unexpected failures: %+v", body.Failures)
	}
}

// --- Entity tags ---

func TestParseETag(t *testing.T) {
	cases := map[string]int64{
		`"3"`:     3,
		`W/"12"`:  12,
		` W/"1" `: 1,
	}
	for in, want := range cases {
		if got, ok := parseETag(in); !ok || got != want {
			t.Fatalf("parseETag(%q) = %d, %v", in, got, ok)
		}
	}
	for _, bad := range []string{"", "3", `"0"`, `"-1"`, `W/"x"`, `"`} {
		if _, ok := parseETag(bad); ok {
			t.Fatalf("parseETag(%q) should fail", bad)
		}
	}
}

func TestEtagMatches(t *testing.T) {
	if !etagMatches(`"1", W/"2"`, 2) {
		t.Fatal("expected match in list")
	}
	if !etagMatches("*", 9) {
		t.Fatal("wildcard should match")
	}
	if etagMatches(`W/"2"`, 3) {
		t.Fatal("stale tag should not match")
	}
}

func TestValidator_UsesJSONFieldNames(t *testing.T) {
	zero := int64(0)
	err := NewValidator().Validate(updateDashboardRequest{Layout: map[string]any{}, Version: &zero})
	if err == nil || err.Error() != "version must be at least 1" {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if err := NewValidator().Validate(updateDashboardRequest{Layout: map[string]any{}}); err != nil {
		t.Fatalf("version is optional: %v", err)
	}
}
