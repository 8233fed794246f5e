package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.uber.org/zap"
)

const maxResponseBytes = 1 << 20 // 1 MiB

// apiExecutor is the generic executor for tools described purely by an
// APIToolSpec. Configuration and transport failures are returned as
// structured error payloads, never raised past the gateway boundary.
type apiExecutor struct {
	spec   *APIToolSpec
	client *http.Client
	logger *zap.Logger
}

func newAPIExecutor(spec *APIToolSpec, logger *zap.Logger) *apiExecutor {
	return &apiExecutor{
		spec:   spec,
		client: &http.Client{},
		logger: logger,
	}
}

func (e *apiExecutor) Name() string { return e.spec.ToolName }

// errPayload builds the structured error result for a failed call.
func errPayload(kind, reason string) map[string]any {
	return map[string]any{
		"error":  kind,
		"reason": reason,
	}
}

func (e *apiExecutor) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	spec := e.spec

	baseURL := os.Getenv(spec.BaseURLEnvVar)
	if baseURL == "" {
		return errPayload("configuration",
			fmt.Sprintf("environment variable %s is not set", spec.BaseURLEnvVar)), nil
	}

	if spec.ArgumentSchema != nil {
		if msg := validateArgs(args, spec.ArgumentSchema); msg != "" {
			return errPayload("invalid_arguments", msg), nil
		}
	}

	// Path template substitution
	path := spec.PathTemplate
	consumed := make(map[string]bool)
	explicitBody := false

	for _, p := range spec.Parameters {
		if p.Location == InBody {
			explicitBody = true
		}
		val, present := args[p.Name]
		if !present {
			if p.Required {
				return errPayload("missing_parameter",
					fmt.Sprintf("required parameter %q is missing", p.Name)), nil
			}
			// A path placeholder has no sensible absent form; leaving the
			// literal {name} in the URL would leak template text upstream.
			if p.Location == InPath {
				return errPayload("missing_parameter",
					fmt.Sprintf("path parameter %q is missing", p.Name)), nil
			}
			continue
		}
		if p.Location == InPath {
			path = strings.ReplaceAll(path, "{"+p.Name+"}", url.PathEscape(fmt.Sprintf("%v", val)))
			consumed[p.Name] = true
		}
	}

	// Query string
	query := url.Values{}
	for _, p := range spec.Parameters {
		if p.Location != InQuery {
			continue
		}
		if val, present := args[p.Name]; present {
			query.Set(p.Name, fmt.Sprintf("%v", val))
			consumed[p.Name] = true
		}
	}

	// Body: explicitly body-tagged params, or all leftover args when none
	// are tagged.
	body := make(map[string]any)
	if explicitBody {
		for _, p := range spec.Parameters {
			if p.Location != InBody {
				continue
			}
			if val, present := args[p.Name]; present {
				body[p.Name] = val
				consumed[p.Name] = true
			}
		}
	} else {
		for name, val := range args {
			if !consumed[name] {
				body[name] = val
			}
		}
	}

	method := strings.ToUpper(spec.Method)
	if method == "" {
		method = http.MethodGet
	}

	fullURL := strings.TrimSuffix(baseURL, "/") + path
	if encoded := query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	// Any method carries the body when the spec routes arguments there;
	// dropping leftover args silently would change the call's meaning.
	var reqBody io.Reader
	hasBody := len(body) > 0
	if hasBody {
		raw, err := json.Marshal(body)
		if err != nil {
			return errPayload("invalid_arguments", fmt.Sprintf("body marshal failed: %v", err)), nil
		}
		reqBody = bytes.NewReader(raw)
	}

	ctx, cancel := context.WithTimeout(ctx, spec.Timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return errPayload("configuration", fmt.Sprintf("request build failed: %v", err)), nil
	}
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}

	// Credentials come strictly from the spec's named env vars.
	if spec.AuthHeaderEnvVar != "" {
		if v := os.Getenv(spec.AuthHeaderEnvVar); v != "" {
			req.Header.Set("Authorization", v)
		}
	}
	if spec.APIKeyHeaderName != "" && spec.APIKeyEnvVar != "" {
		if v := os.Getenv(spec.APIKeyEnvVar); v != "" {
			req.Header.Set(spec.APIKeyHeaderName, v)
		}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		e.logger.Warn("api tool transport failure",
			zap.String("tool_name", spec.ToolName),
			zap.Error(err),
		)
		return errPayload("transport", err.Error()), nil
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return errPayload("transport", fmt.Sprintf("response read failed: %v", err)), nil
	}

	result := map[string]any{
		"status_code": resp.StatusCode,
	}

	var parsed any
	if len(raw) > 0 && json.Unmarshal(raw, &parsed) == nil {
		result["data"] = parsed
	} else if len(raw) > 0 {
		result["body"] = string(raw)
	}

	if resp.StatusCode >= 400 {
		result["error"] = "http_error"
		result["reason"] = fmt.Sprintf("upstream returned status %d", resp.StatusCode)
	}

	return result, nil
}

// validateArgs checks args against a JSON Schema. Returns "" on success,
// or a human-readable failure message.
func validateArgs(args map[string]any, schema map[string]any) string {
	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return fmt.Sprintf("invalid argument_schema: %v", err)
	}

	var schemaObj any
	if err := json.Unmarshal(schemaBytes, &schemaObj); err != nil {
		return fmt.Sprintf("schema unmarshal error: %v", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", schemaObj); err != nil {
		return fmt.Sprintf("schema compile error: %v", err)
	}
	sch, err := c.Compile("schema.json")
	if err != nil {
		return fmt.Sprintf("schema compile error: %v", err)
	}

	// Round-trip through JSON so numeric types match what the validator expects.
	argBytes, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("arguments are not valid JSON: %v", err)
	}
	var doc any
	if err := json.Unmarshal(argBytes, &doc); err != nil {
		return fmt.Sprintf("arguments are not valid JSON: %v", err)
	}

	if err := sch.Validate(doc); err != nil {
		return fmt.Sprintf("schema validation failed: %v", err)
	}
	return ""
}
