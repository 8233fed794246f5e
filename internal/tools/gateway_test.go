package tools

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/triage-ai/warden/internal/manifest"
	"go.uber.org/zap"
)

func echoTool(name string) Handle {
	return NewFunc(name, func(_ context.Context, args map[string]any) (map[string]any, error) {
		return map[string]any{"echo": args}, nil
	})
}

func testGateway(t *testing.T, m *manifest.Manifest, native *NativeRegistry, catalog Catalog) *Gateway {
	t.Helper()
	return NewGateway(GatewayConfig{
		Manifest: m,
		Native:   native,
		Catalog:  catalog,
		Logger:   zap.NewNop(),
	})
}

func TestGateway_AllowListDominatesResolvability(t *testing.T) {
	native := NewNativeRegistry()
	native.Register(echoTool("delete_instance")) // implementation exists

	m := &manifest.Manifest{ActorID: "cloud_healing", AllowedTools: []string{"restart_instance"}}
	g := testGateway(t, m, native, nil)

	_, err := g.Get(context.Background(), "delete_instance")
	if !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("expected ErrNotAllowed for unlisted tool with native impl, got %v", err)
	}
}

func TestGateway_AllowedButMissingIsNotFound(t *testing.T) {
	m := &manifest.Manifest{ActorID: "cloud_healing", AllowedTools: []string{"restart_instance"}}
	g := testGateway(t, m, NewNativeRegistry(), nil)

	_, err := g.Get(context.Background(), "restart_instance")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGateway_NativeResolution(t *testing.T) {
	native := NewNativeRegistry()
	native.Register(echoTool("restart_instance"))

	m := &manifest.Manifest{ActorID: "cloud_healing", AllowedTools: []string{"restart_instance"}}
	g := testGateway(t, m, native, nil)

	h, err := g.Get(context.Background(), "restart_instance")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Name() != "restart_instance" {
		t.Fatalf("expected restart_instance, got %s", h.Name())
	}
}

func TestGateway_OverrideBeatsNative(t *testing.T) {
	native := NewNativeRegistry()
	native.Register(echoTool("restart_instance"))

	m := &manifest.Manifest{ActorID: "cloud_healing", AllowedTools: []string{"restart_instance"}}
	g := testGateway(t, m, native, nil)

	override := NewFunc("restart_instance", func(_ context.Context, _ map[string]any) (map[string]any, error) {
		return map[string]any{"source": "override"}, nil
	})
	g.RegisterOverride(override)

	result, err := g.Run(context.Background(), "restart_instance", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["source"] != "override" {
		t.Fatalf("expected override result, got %+v", result)
	}
}

func TestGateway_CatalogResolution(t *testing.T) {
	catalog := NewStaticCatalog(&APIToolSpec{
		ToolName:      "lookup_user",
		Method:        "GET",
		BaseURLEnvVar: "LOOKUP_USER_BASE_URL",
		PathTemplate:  "/users/{id}",
		Parameters:    []Param{{Name: "id", Location: InPath, Required: true}},
	})

	m := &manifest.Manifest{ActorID: "support_agent", AllowedTools: []string{"lookup_user"}}
	g := testGateway(t, m, NewNativeRegistry(), catalog)

	h, err := g.Get(context.Background(), "lookup_user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := h.(*apiExecutor); !ok {
		t.Fatalf("expected generic api executor, got %T", h)
	}
}

func TestGateway_HandleCachedPerSession(t *testing.T) {
	calls := 0
	catalog := &countingCatalog{inner: NewStaticCatalog(&APIToolSpec{
		ToolName:      "lookup_user",
		BaseURLEnvVar: "LOOKUP_USER_BASE_URL",
		PathTemplate:  "/users/{id}",
	}), calls: &calls}

	m := &manifest.Manifest{ActorID: "support_agent", AllowedTools: []string{"lookup_user"}}
	g := testGateway(t, m, NewNativeRegistry(), catalog)

	for i := 0; i < 3; i++ {
		if _, err := g.Get(context.Background(), "lookup_user"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 catalog lookup, got %d", calls)
	}

	// A second gateway for the same manifest has its own empty cache.
	g2 := testGateway(t, m, NewNativeRegistry(), catalog)
	if _, err := g2.Get(context.Background(), "lookup_user"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected per-session caches, got %d catalog lookups", calls)
	}
}

type countingCatalog struct {
	inner Catalog
	calls *int
	mu    sync.Mutex
}

func (c *countingCatalog) GetSpec(ctx context.Context, toolName string) (*APIToolSpec, error) {
	c.mu.Lock()
	*c.calls++
	c.mu.Unlock()
	return c.inner.GetSpec(ctx, toolName)
}

func TestGateway_RunNativeTool(t *testing.T) {
	native := NewNativeRegistry()
	native.Register(echoTool("restart_instance"))

	m := &manifest.Manifest{ActorID: "cloud_healing", AllowedTools: []string{"restart_instance"}}
	g := testGateway(t, m, native, nil)

	result, err := g.Run(context.Background(), "restart_instance", map[string]any{"instance_id": "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	echo, ok := result["echo"].(map[string]any)
	if !ok || echo["instance_id"] != "x" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestGateway_RunNotAllowed(t *testing.T) {
	m := &manifest.Manifest{ActorID: "cloud_healing", AllowedTools: nil}
	g := testGateway(t, m, NewNativeRegistry(), nil)

	_, err := g.Run(context.Background(), "anything", nil)
	if !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("expected ErrNotAllowed, got %v", err)
	}
}

func TestGateway_ConcurrentGet(t *testing.T) {
	native := NewNativeRegistry()
	native.Register(echoTool("restart_instance"))

	m := &manifest.Manifest{ActorID: "cloud_healing", AllowedTools: []string{"restart_instance"}}
	g := testGateway(t, m, native, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := g.Get(context.Background(), "restart_instance"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
}
