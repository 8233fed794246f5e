package tools

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type stubSpecStore struct {
	rows  map[string]string
	err   error
	calls int
}

func (s *stubSpecStore) LookupSpec(_ context.Context, toolName string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	raw, ok := s.rows[toolName]
	if !ok {
		return "", sql.ErrNoRows
	}
	return raw, nil
}

const lookupUserJSON = `{
	"method": "GET",
	"base_url_env_var": "LOOKUP_USER_BASE_URL",
	"path_template": "/users/{id}",
	"timeout_seconds": 5,
	"parameters": [{"name": "id", "location": "path", "required": true}]
}`

func TestPostgresCatalog_GetSpec(t *testing.T) {
	store := &stubSpecStore{rows: map[string]string{"lookup_user": lookupUserJSON}}
	c := newPostgresCatalogWithStore(store, 30*time.Second, zap.NewNop())

	spec, err := c.GetSpec(context.Background(), "lookup_user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec == nil {
		t.Fatal("expected spec")
	}
	if spec.ToolName != "lookup_user" {
		t.Fatalf("expected tool name backfilled from row key, got %q", spec.ToolName)
	}
	if spec.Timeout() != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %v", spec.Timeout())
	}
	if len(spec.Parameters) != 1 || spec.Parameters[0].Location != InPath {
		t.Fatalf("unexpected parameters: %+v", spec.Parameters)
	}
}

func TestPostgresCatalog_NotInCatalog(t *testing.T) {
	store := &stubSpecStore{rows: map[string]string{}}
	c := newPostgresCatalogWithStore(store, 30*time.Second, zap.NewNop())

	spec, err := c.GetSpec(context.Background(), "ghost_tool")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec != nil {
		t.Fatal("expected nil spec for unknown tool")
	}

	// Negative cache
	if _, err := c.GetSpec(context.Background(), "ghost_tool"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("expected 1 store call (negative cache), got %d", store.calls)
	}
}

func TestPostgresCatalog_StoreError(t *testing.T) {
	store := &stubSpecStore{err: errors.New("connection refused")}
	c := newPostgresCatalogWithStore(store, 30*time.Second, zap.NewNop())

	if _, err := c.GetSpec(context.Background(), "lookup_user"); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseSpec_Malformed(t *testing.T) {
	if _, err := parseSpec("bad", "{not json"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSpecTimeout_Default(t *testing.T) {
	s := &APIToolSpec{}
	if s.Timeout() != 10*time.Second {
		t.Fatalf("expected 10s default, got %v", s.Timeout())
	}
}
