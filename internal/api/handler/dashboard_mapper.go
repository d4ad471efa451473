package handler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fusepoint/dashboard-service/internal/core/domain"
	"github.com/fusepoint/dashboard-service/internal/core/ports"
)

// --- Domain → Response ---

func toDashboardResponse(d *domain.ProjectDashboard, canEdit bool) dashboardResponse {
	return dashboardResponse{
		ProjectID: d.ProjectID,
		Layout:    d.Layout,
		Version:   d.Version,
		UpdatedAt: d.UpdatedAt.UTC().Format(time.RFC3339),
		UpdatedBy: d.UpdatedBy,
		CanEdit:   canEdit,
	}
}

func toBootstrapResponse(r *ports.BootstrapReport) bootstrapResponse {
	out := bootstrapResponse{
		Total:    r.Total,
		Created:  r.Created,
		Existing: r.Existing,
		Failed:   len(r.Failures),
		Failures: make([]bootstrapFailureResponse, 0, len(r.Failures)),
	}
	for _, f := range r.Failures {
		out.Failures = append(out.Failures, bootstrapFailureResponse{ProjectID: f.ProjectID, Error: f.Err.Error()})
	}
	return out
}

// --- Version ↔ entity tag ---

// etag renders a dashboard version as a weak entity tag.
func etag(version int64) string {
	return fmt.Sprintf(`W/"%d"`, version)
}

// parseETag reads a single version tag, weak or strong.
func parseETag(raw string) (int64, bool) {
	tag := strings.TrimSpace(raw)
	tag = strings.TrimPrefix(tag, "W/")
	if len(tag) < 2 || tag[0] != '"' || tag[len(tag)-1] != '"' {
		return 0, false
	}
	v, err := strconv.ParseInt(tag[1:len(tag)-1], 10, 64)
	if err != nil || v < 1 {
		return 0, false
	}
	return v, true
}

// etagMatches implements weak comparison against an If-None-Match list.
func etagMatches(header string, version int64) bool {
	for _, part := range strings.Split(header, ",") {
		if strings.TrimSpace(part) == "*" {
			return true
		}
		if v, ok := parseETag(part); ok && v == version {
			return true
		}
	}
	return false
}
