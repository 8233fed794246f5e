package policy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestHTTPEvaluator_Allowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/evaluate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req evaluateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.PolicyID != "infra_change_policy" {
			t.Errorf("expected infra_change_policy, got %s", req.PolicyID)
		}
		json.NewEncoder(w).Encode(Decision{Allowed: true, Reason: "ok"})
	}))
	defer srv.Close()

	ev := NewHTTPEvaluator(HTTPEvaluatorConfig{Endpoint: srv.URL, Logger: zap.NewNop()})
	d, err := ev.Evaluate(context.Background(), "infra_change_policy", map[string]any{"tool": "restart_instance"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed || d.Reason != "ok" {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestHTTPEvaluator_Denied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(Decision{Allowed: false, Reason: "change freeze"})
	}))
	defer srv.Close()

	ev := NewHTTPEvaluator(HTTPEvaluatorConfig{Endpoint: srv.URL, Logger: zap.NewNop()})
	d, err := ev.Evaluate(context.Background(), "freeze_policy", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Allowed {
		t.Fatal("expected denial")
	}
}

func TestHTTPEvaluator_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ev := NewHTTPEvaluator(HTTPEvaluatorConfig{Endpoint: srv.URL, Logger: zap.NewNop()})
	_, err := ev.Evaluate(context.Background(), "p1", nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestHTTPEvaluator_ConnectionRefusedIsUnavailable(t *testing.T) {
	ev := NewHTTPEvaluator(HTTPEvaluatorConfig{
		Endpoint: "http://127.0.0.1:1",
		Timeout:  200 * time.Millisecond,
		Logger:   zap.NewNop(),
	})
	_, err := ev.Evaluate(context.Background(), "p1", nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
