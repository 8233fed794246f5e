package audit

import "time"

// Event types emitted by the mediation pipeline.
const (
	EventInvocationRequest   = "invocation_request"
	EventInvocationAllowed   = "invocation_allowed"
	EventInvocationDenied    = "invocation_denied"
	EventInvocationCompleted = "invocation_completed"
	EventInvocationFailed    = "invocation_failed"
	EventToolCall            = "tool_call"
)

// EventWriter is the interface for writing audit events.
// Write() must NEVER block the caller.
type EventWriter interface {
	Write(event *Event)
	Close()
}

// Event is a single append-only audit record. Events are never mutated,
// deleted, or deduplicated.
type Event struct {
	EventID   string
	ActorID   string
	EventType string
	Payload   map[string]any
	Timestamp time.Time
}

// SummaryLength is the max chars stored in result summaries.
const SummaryLength = 300

// TruncateSummary returns the first N characters (runes) of a result
// summary. It never splits a multi-byte UTF-8 character.
func TruncateSummary(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}
