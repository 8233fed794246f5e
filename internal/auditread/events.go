// Package auditread provides read access to the ClickHouse audit_events
// table for the query API. The trail itself only ever appends; this reader
// never mutates.
package auditread

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"
)

// Reader provides read access to the audit_events table.
type Reader struct {
	conn   driver.Conn
	logger *zap.Logger
}

// NewReader opens a ClickHouse connection for read queries.
func NewReader(dsn string, logger *zap.Logger) (*Reader, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("NewReader: %w", err)
	}
	if opts.TLS == nil {
		opts.TLS = &tls.Config{}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("NewReader: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("NewReader: %w", err)
	}

	return &Reader{conn: conn, logger: logger}, nil
}

// Close closes the ClickHouse connection.
func (r *Reader) Close() error {
	return r.conn.Close()
}

// EventRow represents a single row from the audit_events table.
type EventRow struct {
	EventID   string
	ActorID   string
	EventType string
	Payload   string // JSON
	Timestamp time.Time
}

// ListEventsParams holds filters and pagination for event listing.
type ListEventsParams struct {
	ActorID   string
	EventType *string
	StartTime *time.Time
	EndTime   *time.Time
	Page      int
	PageSize  int
}

// listConditions builds the WHERE clause for a listing. Every filter is
// optional; no filters means the full trail ("1" keeps the clause valid).
func listConditions(params ListEventsParams) (string, []any) {
	var conditions []string
	var args []any

	if params.ActorID != "" {
		conditions = append(conditions, "actor_id = @actor_id")
		args = append(args, clickhouse.Named("actor_id", params.ActorID))
	}
	if params.EventType != nil {
		conditions = append(conditions, "event_type = @event_type")
		args = append(args, clickhouse.Named("event_type", *params.EventType))
	}
	if params.StartTime != nil {
		conditions = append(conditions, "timestamp >= @start_time")
		args = append(args, clickhouse.Named("start_time", *params.StartTime))
	}
	if params.EndTime != nil {
		conditions = append(conditions, "timestamp <= @end_time")
		args = append(args, clickhouse.Named("end_time", *params.EndTime))
	}

	if len(conditions) == 0 {
		return "1", nil
	}
	return strings.Join(conditions, " AND "), args
}

// ListEvents returns paginated, filtered audit events and the total count.
func (r *Reader) ListEvents(ctx context.Context, params ListEventsParams) ([]EventRow, int, error) {
	where, args := listConditions(params)

	var total uint64
	countQuery := "SELECT count() FROM audit_events WHERE " + where
	if err := r.conn.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ListEvents: count: %w", err)
	}

	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`
		SELECT event_id, actor_id, event_type, payload, timestamp
		FROM audit_events
		WHERE %s
		ORDER BY timestamp DESC
		LIMIT %d OFFSET %d
	`, where, pageSize, offset)

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ListEvents: %w", err)
	}
	defer rows.Close()

	var events []EventRow
	for rows.Next() {
		var e EventRow
		if err := rows.Scan(&e.EventID, &e.ActorID, &e.EventType, &e.Payload, &e.Timestamp); err != nil {
			return nil, 0, fmt.Errorf("ListEvents: scan: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ListEvents: rows: %w", err)
	}

	return events, int(total), nil
}

// GetEvent returns a single event by id, or nil if not found.
func (r *Reader) GetEvent(ctx context.Context, eventID string) (*EventRow, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT event_id, actor_id, event_type, payload, timestamp
		FROM audit_events
		WHERE event_id = @event_id
		LIMIT 1
	`, clickhouse.Named("event_id", eventID))
	if err != nil {
		return nil, fmt.Errorf("GetEvent: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil
	}
	var e EventRow
	if err := rows.Scan(&e.EventID, &e.ActorID, &e.EventType, &e.Payload, &e.Timestamp); err != nil {
		return nil, fmt.Errorf("GetEvent: scan: %w", err)
	}
	return &e, nil
}
