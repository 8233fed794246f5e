package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/triage-ai/warden/internal/killswitch"
	"github.com/triage-ai/warden/internal/manifest"
	"github.com/triage-ai/warden/internal/tools"
	"go.uber.org/zap"
)

// brokenSwitches always fails its lookups.
type brokenSwitches struct{}

func (brokenSwitches) Disabled(_ context.Context, _, _ string) (bool, error) {
	return false, killswitch.ErrUnavailable
}

func testResolver(t *testing.T, reg manifest.Registry, sw killswitch.Registry, failClosed bool) *CapabilityResolver {
	t.Helper()
	return New(Config{
		Manifests:  reg,
		Switches:   sw,
		Native:     tools.NewNativeRegistry(),
		FailClosed: failClosed,
		Logger:     zap.NewNop(),
	})
}

func TestResolve_BuildsContext(t *testing.T) {
	reg := manifest.NewStaticRegistry(&manifest.Manifest{
		ActorID:      "cloud_healing",
		Version:      2,
		RiskTier:     "write",
		AllowedTools: []string{"restart_instance"},
	})
	r := testResolver(t, reg, killswitch.NewStaticRegistry(), false)

	authCtx, err := r.Resolve(context.Background(), "cloud_healing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if authCtx.Manifest.Version != 2 {
		t.Fatalf("expected version 2, got %d", authCtx.Manifest.Version)
	}
	if authCtx.Tools == nil {
		t.Fatal("expected a session tool gateway")
	}
	if authCtx.LLM.Present() {
		t.Fatal("expected absent llm capability for manifest without backend")
	}
}

func TestResolve_NotFound(t *testing.T) {
	r := testResolver(t, manifest.NewStaticRegistry(), killswitch.NewStaticRegistry(), false)

	_, err := r.Resolve(context.Background(), "ghost")
	if !errors.Is(err, manifest.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolve_ActorKillSwitch(t *testing.T) {
	reg := manifest.NewStaticRegistry(&manifest.Manifest{ActorID: "rogue_agent"})
	sw := killswitch.NewStaticRegistry()
	sw.Set(killswitch.SubjectActor, "rogue_agent", true)
	r := testResolver(t, reg, sw, false)

	_, err := r.Resolve(context.Background(), "rogue_agent")
	if !errors.Is(err, ErrActorDisabled) {
		t.Fatalf("expected ErrActorDisabled even with a valid manifest, got %v", err)
	}
}

func TestResolve_BackendKillSwitch(t *testing.T) {
	reg := manifest.NewStaticRegistry(&manifest.Manifest{
		ActorID:    "support_agent",
		LLMBackend: "bedrock",
	})
	sw := killswitch.NewStaticRegistry()
	sw.Set(killswitch.SubjectBackend, "bedrock", true)
	r := testResolver(t, reg, sw, false)

	_, err := r.Resolve(context.Background(), "support_agent")
	if !errors.Is(err, ErrBackendDisabled) {
		t.Fatalf("expected ErrBackendDisabled, got %v", err)
	}
}

func TestResolve_SwitchUnavailable_FailOpen(t *testing.T) {
	reg := manifest.NewStaticRegistry(&manifest.Manifest{ActorID: "cloud_healing"})
	r := testResolver(t, reg, brokenSwitches{}, false)

	if _, err := r.Resolve(context.Background(), "cloud_healing"); err != nil {
		t.Fatalf("expected fail-open resolution, got %v", err)
	}
}

func TestResolve_SwitchUnavailable_FailClosed(t *testing.T) {
	reg := manifest.NewStaticRegistry(&manifest.Manifest{ActorID: "cloud_healing"})
	r := testResolver(t, reg, brokenSwitches{}, true)

	_, err := r.Resolve(context.Background(), "cloud_healing")
	if !errors.Is(err, ErrKillSwitchUnavailable) {
		t.Fatalf("expected ErrKillSwitchUnavailable, got %v", err)
	}
}

func TestResolve_ConcurrentContextsAreIsolated(t *testing.T) {
	reg := manifest.NewStaticRegistry(&manifest.Manifest{
		ActorID:      "cloud_healing",
		AllowedTools: []string{"restart_instance"},
	})
	r := testResolver(t, reg, killswitch.NewStaticRegistry(), false)

	contexts := make([]*AuthorizedContext, 20)
	var wg sync.WaitGroup
	for i := range contexts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			authCtx, err := r.Resolve(context.Background(), "cloud_healing")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			contexts[i] = authCtx
		}(i)
	}
	wg.Wait()

	seen := make(map[*tools.Gateway]bool)
	for _, c := range contexts {
		if c == nil {
			t.Fatal("missing context")
		}
		if seen[c.Tools] {
			t.Fatal("two contexts share a tool gateway")
		}
		seen[c.Tools] = true
	}
}
