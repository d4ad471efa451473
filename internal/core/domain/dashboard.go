package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Layout is the opaque dashboard document (widgets, grid, settings). Its
// schema belongs to the UI; the service only guarantees it is a JSON object.
type Layout map[string]any

// ProjectDashboard is the single versioned layout document of a project.
type ProjectDashboard struct {
	ProjectID int64
	Layout    Layout
	Version   int64
	UpdatedAt time.Time
	// UpdatedBy is nil until the first write after bootstrap.
	UpdatedBy *int64
}

// DefaultLayout returns a fresh copy of the document a project starts with.
func DefaultLayout() Layout {
	return Layout{
		"widgets": []any{},
		"layout": map[string]any{
			"columns":   12,
			"rowHeight": 60,
			"margin":    []any{10, 10},
		},
		"settings": map[string]any{
			"editable":  true,
			"resizable": true,
			"draggable": true,
		},
	}
}

// ParseLayout accepts a decoded JSON value and returns it as a Layout.
// Anything other than a non-nil JSON object is rejected with ErrInvalidLayout.
func ParseLayout(v any) (Layout, error) {
	switch doc := v.(type) {
	case Layout:
		if doc == nil {
			return nil, ErrInvalidLayout
		}
		return doc, nil
	case map[string]any:
		if doc == nil {
			return nil, ErrInvalidLayout
		}
		return Layout(doc), nil
	default:
		return nil, ErrInvalidLayout
	}
}

// EncodeLayout produces the canonical persisted form of a layout.
func EncodeLayout(l Layout) ([]byte, error) {
	if l == nil {
		return nil, ErrInvalidLayout
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("encode layout: %w", err)
	}
	return b, nil
}

// DecodeLayout materializes a persisted layout. An empty payload decodes to
// an empty document rather than nil. Numbers stay json.Number so integer ids
// beyond 2^53 survive unchanged.
func DecodeLayout(b []byte) (Layout, error) {
	if len(b) == 0 {
		return Layout{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var l Layout
	if err := dec.Decode(&l); err != nil {
		return nil, fmt.Errorf("decode layout: %w", err)
	}
	if l == nil {
		return Layout{}, nil
	}
	return l, nil
}
