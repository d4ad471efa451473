package handler

// --- Request / Response types ---

// updateDashboardRequest is the PUT body. Layout stays untyped so that
// non-object values reach the domain check and fail there.
type updateDashboardRequest struct {
	Layout  any    `json:"layout"`
	Version *int64 `json:"version" validate:"omitempty,gte=1"`
}

type dashboardResponse struct {
	ProjectID int64          `json:"projectId"`
	Layout    map[string]any `json:"layout"`
	Version   int64          `json:"version"`
	UpdatedAt string         `json:"updatedAt"`
	UpdatedBy *int64         `json:"updatedBy"`
	CanEdit   bool           `json:"canEdit"`
}

type bootstrapFailureResponse struct {
	ProjectID int64  `json:"projectId"`
	Error     string `json:"error"`
}

type bootstrapResponse struct {
	Total    int                        `json:"total"`
	Created  int                        `json:"created"`
	Existing int                        `json:"existing"`
	Failed   int                        `json:"failed"`
	Failures []bootstrapFailureResponse `json:"failures"`
}
