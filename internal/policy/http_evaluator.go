package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HTTPEvaluator calls a remote policy evaluator over HTTP JSON.
//
// Request:  POST {endpoint}/v1/evaluate  {"policy_id": ..., "input": {...}}
// Response: {"allowed": bool, "reason": string, "details": {...}}
type HTTPEvaluator struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// HTTPEvaluatorConfig configures the HTTPEvaluator.
type HTTPEvaluatorConfig struct {
	Endpoint string
	Timeout  time.Duration // Default: 3s
	Logger   *zap.Logger
}

// NewHTTPEvaluator creates an evaluator client for the given endpoint.
func NewHTTPEvaluator(cfg HTTPEvaluatorConfig) *HTTPEvaluator {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 3 * time.Second
	}
	return &HTTPEvaluator{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   cfg.Logger,
	}
}

type evaluateRequest struct {
	PolicyID string         `json:"policy_id"`
	Input    map[string]any `json:"input"`
}

func (e *HTTPEvaluator) Evaluate(ctx context.Context, policyID string, input map[string]any) (*Decision, error) {
	body, err := json.Marshal(evaluateRequest{PolicyID: policyID, Input: input})
	if err != nil {
		return nil, fmt.Errorf("Evaluate: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/v1/evaluate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("Evaluate: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: evaluator returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var decision Decision
	if err := json.NewDecoder(resp.Body).Decode(&decision); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrUnavailable, err)
	}
	return &decision, nil
}
