package store

import (
	"context"
	"fmt"
)

// AllowListEdge represents a row in the invocation_allowlist table.
type AllowListEdge struct {
	TargetActorID string
	CallerActorID string
}

// LoadAllowList returns all edges as target -> callers, for seeding the
// in-memory allow-list at startup.
func (s *Store) LoadAllowList(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT target_actor_id, caller_actor_id FROM invocation_allowlist`)
	if err != nil {
		return nil, fmt.Errorf("LoadAllowList: %w", err)
	}
	defer rows.Close()

	edges := make(map[string][]string)
	for rows.Next() {
		var target, caller string
		if err := rows.Scan(&target, &caller); err != nil {
			return nil, fmt.Errorf("LoadAllowList: %w", err)
		}
		edges[target] = append(edges[target], caller)
	}
	return edges, rows.Err()
}

// AddAllowListEdge inserts an edge. Idempotent.
func (s *Store) AddAllowListEdge(ctx context.Context, targetActorID, callerActorID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invocation_allowlist (target_actor_id, caller_actor_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		targetActorID, callerActorID)
	if err != nil {
		return fmt.Errorf("AddAllowListEdge: %w", err)
	}
	return nil
}

// RemoveAllowListEdge deletes an edge. Returns true if a row was deleted.
func (s *Store) RemoveAllowListEdge(ctx context.Context, targetActorID, callerActorID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM invocation_allowlist
		WHERE target_actor_id = $1 AND caller_actor_id = $2`,
		targetActorID, callerActorID)
	if err != nil {
		return false, fmt.Errorf("RemoveAllowListEdge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("RemoveAllowListEdge: %w", err)
	}
	return n > 0, nil
}
