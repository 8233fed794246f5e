// Package policy is the client side of the remote policy evaluator.
//
// An explicit denial from the evaluator is authoritative and surfaces as
// ErrPolicyDenied. Evaluator unavailability is not a denial: callers get the
// configured fail-mode default instead, so "denied" and "could not check"
// stay distinguishable.
package policy

import (
	"context"
	"errors"
)

var (
	// ErrPolicyDenied is returned when the evaluator explicitly denies.
	ErrPolicyDenied = errors.New("policy denied")

	// ErrUnavailable indicates the evaluator could not be reached.
	ErrUnavailable = errors.New("policy evaluator unavailable")
)

// Decision is the evaluator's verdict for one policy.
type Decision struct {
	Allowed bool           `json:"allowed"`
	Reason  string         `json:"reason"`
	Details map[string]any `json:"details,omitempty"`
}

// Evaluator evaluates a single policy against an input document.
type Evaluator interface {
	Evaluate(ctx context.Context, policyID string, input map[string]any) (*Decision, error)
}
