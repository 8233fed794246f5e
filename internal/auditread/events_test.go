package auditread

import (
	"testing"
	"time"
)

func TestListConditionsNoFilters(t *testing.T) {
	where, args := listConditions(ListEventsParams{})
	if where != "1" {
		t.Fatalf("expected unconditional clause, got %q", where)
	}
	if len(args) != 0 {
		t.Fatalf("expected no args, got %d", len(args))
	}
}

func TestListConditionsActorOnly(t *testing.T) {
	where, args := listConditions(ListEventsParams{ActorID: "cloud_healing"})
	if where != "actor_id = @actor_id" {
		t.Fatalf("unexpected clause: %q", where)
	}
	if len(args) != 1 {
		t.Fatalf("expected 1 arg, got %d", len(args))
	}
}

func TestListConditionsAllFilters(t *testing.T) {
	eventType := "invocation_denied"
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	where, args := listConditions(ListEventsParams{
		ActorID:   "cloud_healing",
		EventType: &eventType,
		StartTime: &start,
		EndTime:   &end,
	})

	expected := "actor_id = @actor_id AND event_type = @event_type AND timestamp >= @start_time AND timestamp <= @end_time"
	if where != expected {
		t.Fatalf("unexpected clause: %q", where)
	}
	if len(args) != 4 {
		t.Fatalf("expected 4 args, got %d", len(args))
	}
}
