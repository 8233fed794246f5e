package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func userLookupSpec() *APIToolSpec {
	return &APIToolSpec{
		ToolName:      "lookup_user",
		Method:        "GET",
		BaseURLEnvVar: "LOOKUP_USER_BASE_URL",
		PathTemplate:  "/users/{id}",
		Parameters:    []Param{{Name: "id", Location: InPath, Required: true}},
	}
}

func TestAPIExecutor_PathTemplateSubstitution(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]string{"id": "42", "name": "ada"})
	}))
	defer srv.Close()
	t.Setenv("LOOKUP_USER_BASE_URL", srv.URL)

	e := newAPIExecutor(userLookupSpec(), zap.NewNop())
	result, err := e.Invoke(context.Background(), map[string]any{"id": "42"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/users/42" {
		t.Fatalf("expected path /users/42, got %s", gotPath)
	}
	if result["status_code"] != 200 {
		t.Fatalf("expected status 200, got %v", result["status_code"])
	}
	data, ok := result["data"].(map[string]any)
	if !ok || data["name"] != "ada" {
		t.Fatalf("unexpected data: %+v", result["data"])
	}
}

func TestAPIExecutor_UnsetBaseURLIsStructuredError(t *testing.T) {
	t.Setenv("LOOKUP_USER_BASE_URL", "")

	e := newAPIExecutor(userLookupSpec(), zap.NewNop())
	result, err := e.Invoke(context.Background(), map[string]any{"id": "42"})
	if err != nil {
		t.Fatalf("expected structured error payload, got raised error: %v", err)
	}
	if result["error"] != "configuration" {
		t.Fatalf("expected configuration error, got %+v", result)
	}
}

func TestAPIExecutor_MissingRequiredParam(t *testing.T) {
	t.Setenv("LOOKUP_USER_BASE_URL", "http://example.invalid")

	e := newAPIExecutor(userLookupSpec(), zap.NewNop())
	result, err := e.Invoke(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("expected structured error payload, got raised error: %v", err)
	}
	if result["error"] != "missing_parameter" {
		t.Fatalf("expected missing_parameter error, got %+v", result)
	}
}

func TestAPIExecutor_MissingOptionalPathParam(t *testing.T) {
	t.Setenv("LOOKUP_USER_BASE_URL", "http://example.invalid")

	spec := userLookupSpec()
	spec.Parameters[0].Required = false

	e := newAPIExecutor(spec, zap.NewNop())
	result, err := e.Invoke(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("expected structured error payload, got raised error: %v", err)
	}
	if result["error"] != "missing_parameter" {
		t.Fatalf("expected missing_parameter error, got %+v", result)
	}
}

func TestAPIExecutor_QueryParams(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	t.Setenv("SEARCH_BASE_URL", srv.URL)

	spec := &APIToolSpec{
		ToolName:      "search_tickets",
		Method:        "GET",
		BaseURLEnvVar: "SEARCH_BASE_URL",
		PathTemplate:  "/tickets",
		Parameters: []Param{
			{Name: "status", Location: InQuery},
			{Name: "limit", Location: InQuery},
		},
	}
	e := newAPIExecutor(spec, zap.NewNop())
	if _, err := e.Invoke(context.Background(), map[string]any{"status": "open", "limit": 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery != "limit=5&status=open" {
		t.Fatalf("unexpected query: %s", gotQuery)
	}
}

func TestAPIExecutor_LeftoverArgsBecomeBody(t *testing.T) {
	var gotBody map[string]any
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()
	t.Setenv("TICKETS_BASE_URL", srv.URL)

	spec := &APIToolSpec{
		ToolName:      "create_ticket",
		Method:        "POST",
		BaseURLEnvVar: "TICKETS_BASE_URL",
		PathTemplate:  "/projects/{project}/tickets",
		Parameters:    []Param{{Name: "project", Location: InPath, Required: true}},
	}
	e := newAPIExecutor(spec, zap.NewNop())
	result, err := e.Invoke(context.Background(), map[string]any{
		"project": "infra",
		"title":   "disk full",
		"urgent":  true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["status_code"] != 201 {
		t.Fatalf("expected 201, got %v", result["status_code"])
	}
	if gotContentType != "application/json" {
		t.Fatalf("expected json content type, got %s", gotContentType)
	}
	if gotBody["title"] != "disk full" || gotBody["urgent"] != true {
		t.Fatalf("unexpected body: %+v", gotBody)
	}
	if _, present := gotBody["project"]; present {
		t.Fatal("path param must not leak into the body")
	}
}

func TestAPIExecutor_LeftoverArgsCarryOnGET(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	t.Setenv("LOOKUP_USER_BASE_URL", srv.URL)

	e := newAPIExecutor(userLookupSpec(), zap.NewNop())
	if _, err := e.Invoke(context.Background(), map[string]any{
		"id":      "42",
		"include": "profile",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotBody["include"] != "profile" {
		t.Fatalf("leftover arg dropped on GET: %+v", gotBody)
	}
}

func TestAPIExecutor_ExplicitBodyParams(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
	}))
	defer srv.Close()
	t.Setenv("NOTIFY_BASE_URL", srv.URL)

	spec := &APIToolSpec{
		ToolName:      "notify",
		Method:        "POST",
		BaseURLEnvVar: "NOTIFY_BASE_URL",
		PathTemplate:  "/notify",
		Parameters: []Param{
			{Name: "message", Location: InBody, Required: true},
		},
	}
	e := newAPIExecutor(spec, zap.NewNop())
	if _, err := e.Invoke(context.Background(), map[string]any{
		"message":  "hello",
		"untagged": "should be dropped",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotBody["message"] != "hello" {
		t.Fatalf("unexpected body: %+v", gotBody)
	}
	if _, present := gotBody["untagged"]; present {
		t.Fatal("untagged args must be dropped when body params are explicit")
	}
}

func TestAPIExecutor_AuthHeadersFromEnv(t *testing.T) {
	var gotAuth, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("X-Api-Key")
	}))
	defer srv.Close()
	t.Setenv("SECURE_BASE_URL", srv.URL)
	t.Setenv("SECURE_AUTH_HEADER", "Bearer secret-token")
	t.Setenv("SECURE_API_KEY", "k-123")

	spec := &APIToolSpec{
		ToolName:         "secure_call",
		Method:           "GET",
		BaseURLEnvVar:    "SECURE_BASE_URL",
		PathTemplate:     "/ping",
		AuthHeaderEnvVar: "SECURE_AUTH_HEADER",
		APIKeyHeaderName: "X-Api-Key",
		APIKeyEnvVar:     "SECURE_API_KEY",
	}
	e := newAPIExecutor(spec, zap.NewNop())
	if _, err := e.Invoke(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAuth != "Bearer secret-token" {
		t.Fatalf("unexpected Authorization header: %q", gotAuth)
	}
	if gotKey != "k-123" {
		t.Fatalf("unexpected api key header: %q", gotKey)
	}
}

func TestAPIExecutor_TransportFailureIsStructured(t *testing.T) {
	t.Setenv("DEAD_BASE_URL", "http://127.0.0.1:1")

	spec := &APIToolSpec{
		ToolName:       "dead_call",
		Method:         "GET",
		BaseURLEnvVar:  "DEAD_BASE_URL",
		PathTemplate:   "/ping",
		TimeoutSeconds: 1,
	}
	e := newAPIExecutor(spec, zap.NewNop())
	result, err := e.Invoke(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected structured error payload, got raised error: %v", err)
	}
	if result["error"] != "transport" {
		t.Fatalf("expected transport error, got %+v", result)
	}
}

func TestAPIExecutor_UpstreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()
	t.Setenv("LOOKUP_USER_BASE_URL", srv.URL)

	e := newAPIExecutor(userLookupSpec(), zap.NewNop())
	result, err := e.Invoke(context.Background(), map[string]any{"id": "42"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["status_code"] != 403 || result["error"] != "http_error" {
		t.Fatalf("expected http_error with 403, got %+v", result)
	}
}

func TestAPIExecutor_SchemaValidation(t *testing.T) {
	t.Setenv("LOOKUP_USER_BASE_URL", "http://example.invalid")

	spec := userLookupSpec()
	spec.ArgumentSchema = map[string]any{
		"type":     "object",
		"required": []any{"id"},
		"properties": map[string]any{
			"id": map[string]any{"type": "string"},
		},
	}
	e := newAPIExecutor(spec, zap.NewNop())

	result, err := e.Invoke(context.Background(), map[string]any{"id": 42})
	if err != nil {
		t.Fatalf("expected structured error payload, got raised error: %v", err)
	}
	if result["error"] != "invalid_arguments" {
		t.Fatalf("expected invalid_arguments, got %+v", result)
	}
}
