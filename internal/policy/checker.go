package policy

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Checker fans out a manifest's policy ids to the evaluator in parallel and
// collects the decisions. Policies that exceed the timeout fall back to the
// configured fail mode, same as an unreachable evaluator.
type Checker struct {
	evaluator  Evaluator
	timeout    time.Duration
	failClosed bool
	logger     *zap.Logger
}

// CheckerConfig configures the Checker.
type CheckerConfig struct {
	Evaluator  Evaluator
	Timeout    time.Duration // Default: 3s
	FailClosed bool          // Default: false (fail-open on unavailability)
	Logger     *zap.Logger
}

// NewChecker creates a Checker.
func NewChecker(cfg CheckerConfig) *Checker {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 3 * time.Second
	}
	return &Checker{
		evaluator:  cfg.Evaluator,
		timeout:    timeout,
		failClosed: cfg.FailClosed,
		logger:     cfg.Logger,
	}
}

// checkOutput holds a single policy's decision alongside its id.
type checkOutput struct {
	policyID string
	decision *Decision
	err      error
}

// Check evaluates every policy id against the input document.
//
// Each goroutine sends its result through a buffered channel, so the main
// goroutine can safely read completed results without racing against
// in-flight writes. When the deadline fires, unfinished policies are treated
// as unavailable.
//
// Returns the decisions, and ErrPolicyDenied when any policy explicitly
// denies. Unavailable policies yield {Allowed: true, Reason: "unavailable"}
// unless the checker is configured fail-closed.
func (c *Checker) Check(ctx context.Context, policyIDs []string, input map[string]any) ([]*Decision, error) {
	if len(policyIDs) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ch := make(chan checkOutput, len(policyIDs))

	for _, id := range policyIDs {
		go func(policyID string) {
			decision, err := c.evaluator.Evaluate(ctx, policyID, input)
			ch <- checkOutput{policyID: policyID, decision: decision, err: err}
		}(id)
	}

	collected := make([]checkOutput, 0, len(policyIDs))
	remaining := len(policyIDs)
	for remaining > 0 {
		select {
		case out := <-ch:
			collected = append(collected, out)
			remaining--
		case <-ctx.Done():
			c.logger.Warn("policy evaluation timeout exceeded, applying fail mode to unfinished policies",
				zap.Duration("timeout", c.timeout),
				zap.Int("unfinished", remaining),
			)
			remaining = 0
		}
	}

	decisions := make([]*Decision, 0, len(policyIDs))
	finished := make(map[string]bool, len(collected))

	for _, out := range collected {
		finished[out.policyID] = true

		if out.err != nil {
			c.logger.Warn("policy evaluation failed",
				zap.String("policy_id", out.policyID),
				zap.Error(out.err),
			)
			d, err := c.failModeDecision(out.policyID)
			if err != nil {
				return nil, err
			}
			decisions = append(decisions, d)
			continue
		}

		decisions = append(decisions, out.decision)
		if !out.decision.Allowed {
			return decisions, fmt.Errorf("%w: policy %s: %s", ErrPolicyDenied, out.policyID, out.decision.Reason)
		}
	}

	// Policies the deadline cut off.
	for _, id := range policyIDs {
		if finished[id] {
			continue
		}
		d, err := c.failModeDecision(id)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}

	return decisions, nil
}

func (c *Checker) failModeDecision(policyID string) (*Decision, error) {
	if c.failClosed {
		return nil, fmt.Errorf("%w: policy %s could not be evaluated (fail-closed)", ErrUnavailable, policyID)
	}
	return &Decision{Allowed: true, Reason: "unavailable"}, nil
}
