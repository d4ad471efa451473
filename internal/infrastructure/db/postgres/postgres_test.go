package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUndefinedRelation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "missing table", err: &pgconn.PgError{Code: codeUndefinedTable}, want: true},
		{name: "missing column", err: &pgconn.PgError{Code: codeUndefinedColumn}, want: true},
		{name: "wrapped", err: fmt.Errorf("lookup: %w", &pgconn.PgError{Code: codeUndefinedTable}), want: true},
		{name: "unique violation", err: &pgconn.PgError{Code: codeUniqueViolation}, want: false},
		{name: "plain error", err: errors.New("connection refused"), want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isUndefinedRelation(tc.err); got != tc.want {
				t.Fatalf("isUndefinedRelation(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: codeUniqueViolation})) {
		t.Fatal("expected wrapped 23505 to be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: codeUndefinedTable}) {
		t.Fatal("42P01 is not a unique violation")
	}
}

func TestDecodePermissions(t *testing.T) {
	perms, err := decodePermissions([]byte(`["view_reports","view_files"]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(perms) != 2 || perms[0] != "view_reports" {
		t.Fatalf("unexpected permissions: %v", perms)
	}

	for _, raw := range [][]byte{nil, []byte("null")} {
		perms, err := decodePermissions(raw)
		if err != nil || perms != nil {
			t.Fatalf("expected no permissions for %q, got %v, %v", raw, perms, err)
		}
	}

	if _, err := decodePermissions([]byte(`{"edit":true}`)); err == nil {
		t.Fatal("expected error for non-array permissions")
	}
}

func TestMissingColumns(t *testing.T) {
	present := map[string]bool{"project_id": true, "layout": true, "version": true, "created_at": true, "updated_at": true}
	missing := missingColumns(present)
	if len(missing) != 1 || missing[0] != "updated_by" {
		t.Fatalf("expected updated_by missing, got %v", missing)
	}

	present["updated_by"] = true
	if missing := missingColumns(present); len(missing) != 0 {
		t.Fatalf("expected complete table, got %v", missing)
	}
}
