package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// APIToolRow represents a row in the api_tools table.
type APIToolRow struct {
	ToolName  string
	Spec      json.RawMessage // JSONB
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GetAPITool returns the catalog entry for a tool, or nil if not found.
func (s *Store) GetAPITool(ctx context.Context, toolName string) (*APIToolRow, error) {
	var t APIToolRow
	err := s.db.QueryRowContext(ctx, `
		SELECT tool_name, spec, created_at, updated_at
		FROM api_tools WHERE tool_name = $1`, toolName,
	).Scan(&t.ToolName, &t.Spec, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetAPITool: %w", err)
	}
	return &t, nil
}

// ListAPITools returns all catalog entries ordered by tool name.
func (s *Store) ListAPITools(ctx context.Context) ([]*APIToolRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tool_name, spec, created_at, updated_at
		FROM api_tools ORDER BY tool_name`)
	if err != nil {
		return nil, fmt.Errorf("ListAPITools: %w", err)
	}
	defer rows.Close()

	var tools []*APIToolRow
	for rows.Next() {
		var t APIToolRow
		if err := rows.Scan(&t.ToolName, &t.Spec, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ListAPITools: %w", err)
		}
		tools = append(tools, &t)
	}
	return tools, rows.Err()
}

// UpsertAPITool creates or replaces a catalog entry.
func (s *Store) UpsertAPITool(ctx context.Context, toolName string, spec json.RawMessage) (*APIToolRow, error) {
	var t APIToolRow
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO api_tools (tool_name, spec)
		VALUES ($1, $2)
		ON CONFLICT (tool_name) DO UPDATE SET
			spec       = EXCLUDED.spec,
			updated_at = now()
		RETURNING tool_name, spec, created_at, updated_at`,
		toolName, spec,
	).Scan(&t.ToolName, &t.Spec, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("UpsertAPITool: %w", err)
	}
	return &t, nil
}

// DeleteAPITool removes a catalog entry. Returns true if a row was deleted.
func (s *Store) DeleteAPITool(ctx context.Context, toolName string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM api_tools WHERE tool_name = $1`, toolName)
	if err != nil {
		return false, fmt.Errorf("DeleteAPITool: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("DeleteAPITool: %w", err)
	}
	return n > 0, nil
}
