package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

// stubEvaluator returns canned decisions by policy id.
type stubEvaluator struct {
	decisions map[string]*Decision
	err       error
	delay     time.Duration
}

func (s *stubEvaluator) Evaluate(ctx context.Context, policyID string, _ map[string]any) (*Decision, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	if d, ok := s.decisions[policyID]; ok {
		return d, nil
	}
	return &Decision{Allowed: true}, nil
}

func newChecker(t *testing.T, ev Evaluator, failClosed bool) *Checker {
	t.Helper()
	return NewChecker(CheckerConfig{
		Evaluator:  ev,
		Timeout:    100 * time.Millisecond,
		FailClosed: failClosed,
		Logger:     zap.NewNop(),
	})
}

func TestChecker_AllAllowed(t *testing.T) {
	ev := &stubEvaluator{decisions: map[string]*Decision{
		"infra_change_policy": {Allowed: true, Reason: "within change window"},
	}}
	c := newChecker(t, ev, false)

	decisions, err := c.Check(context.Background(), []string{"infra_change_policy"}, map[string]any{"tool": "restart_instance"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decisions) != 1 || !decisions[0].Allowed {
		t.Fatalf("expected 1 allowing decision, got %+v", decisions)
	}
}

func TestChecker_ExplicitDeny(t *testing.T) {
	ev := &stubEvaluator{decisions: map[string]*Decision{
		"freeze_policy": {Allowed: false, Reason: "change freeze in effect"},
	}}
	c := newChecker(t, ev, false)

	_, err := c.Check(context.Background(), []string{"freeze_policy"}, nil)
	if !errors.Is(err, ErrPolicyDenied) {
		t.Fatalf("expected ErrPolicyDenied, got %v", err)
	}
}

func TestChecker_UnavailableFailsOpen(t *testing.T) {
	ev := &stubEvaluator{err: errors.New("connection refused")}
	c := newChecker(t, ev, false)

	decisions, err := c.Check(context.Background(), []string{"p1", "p2"}, nil)
	if err != nil {
		t.Fatalf("expected fail-open, got error: %v", err)
	}
	if len(decisions) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(decisions))
	}
	for _, d := range decisions {
		if !d.Allowed || d.Reason != "unavailable" {
			t.Fatalf("expected fail-open decision, got %+v", d)
		}
	}
}

func TestChecker_UnavailableFailsClosed(t *testing.T) {
	ev := &stubEvaluator{err: errors.New("connection refused")}
	c := newChecker(t, ev, true)

	_, err := c.Check(context.Background(), []string{"p1"}, nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable under fail-closed, got %v", err)
	}
}

func TestChecker_TimeoutAppliesFailMode(t *testing.T) {
	ev := &stubEvaluator{delay: 2 * time.Second}
	c := newChecker(t, ev, false)

	start := time.Now()
	decisions, err := c.Check(context.Background(), []string{"slow_policy"}, nil)
	if err != nil {
		t.Fatalf("expected fail-open on timeout, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("expected check to be bounded by the checker timeout")
	}
	if len(decisions) != 1 || decisions[0].Reason != "unavailable" {
		t.Fatalf("expected unavailable decision for timed-out policy, got %+v", decisions)
	}
}

func TestChecker_NoPolicies(t *testing.T) {
	c := newChecker(t, &stubEvaluator{}, false)
	decisions, err := c.Check(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decisions != nil {
		t.Fatalf("expected nil decisions, got %+v", decisions)
	}
}
