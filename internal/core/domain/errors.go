package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidLayout    = errors.New("layout must be a JSON object")
	ErrInvalidProjectID = errors.New("invalid project id")
	ErrProjectNotFound  = errors.New("project not found")
	ErrForbidden        = errors.New("access forbidden")
	ErrVersionConflict  = errors.New("dashboard version conflict")
)

// VersionConflictError reports a write whose expected version no longer
// matches the stored one. It unwraps to ErrVersionConflict.
type VersionConflictError struct {
	ProjectID int64
	Expected  int64
	// Current is the stored version observed after the failed write, or 0
	// when it could not be read.
	Current int64
}

func (e *VersionConflictError) Error() string {
	if e.Current > 0 {
		return fmt.Sprintf("%s: project %d expected version %d, current %d",
			ErrVersionConflict, e.ProjectID, e.Expected, e.Current)
	}
	return fmt.Sprintf("%s: project %d expected version %d", ErrVersionConflict, e.ProjectID, e.Expected)
}

func (e *VersionConflictError) Unwrap() error { return ErrVersionConflict }
