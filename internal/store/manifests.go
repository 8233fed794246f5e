package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// ManifestRow represents a row in the actor_manifests table.
type ManifestRow struct {
	ActorID      string
	Version      int
	RiskTier     string
	AllowedTools json.RawMessage // JSONB array
	PolicyIDs    json.RawMessage // JSONB array
	LLMBackend   *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UpsertManifestParams holds fields for a manifest create-or-replace.
// Every upsert bumps the version.
type UpsertManifestParams struct {
	RiskTier     string
	AllowedTools json.RawMessage
	PolicyIDs    json.RawMessage
	LLMBackend   *string
}

// GetManifestRow returns the manifest row for an actor, or nil if not found.
func (s *Store) GetManifestRow(ctx context.Context, actorID string) (*ManifestRow, error) {
	var m ManifestRow
	var backend sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT actor_id, version, risk_tier, allowed_tools, policy_ids, llm_backend,
		       created_at, updated_at
		FROM actor_manifests WHERE actor_id = $1`, actorID,
	).Scan(&m.ActorID, &m.Version, &m.RiskTier, &m.AllowedTools, &m.PolicyIDs,
		&backend, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetManifestRow: %w", err)
	}
	if backend.Valid {
		m.LLMBackend = &backend.String
	}
	return &m, nil
}

// ListManifestRows returns all manifests ordered by actor id.
func (s *Store) ListManifestRows(ctx context.Context) ([]*ManifestRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT actor_id, version, risk_tier, allowed_tools, policy_ids, llm_backend,
		       created_at, updated_at
		FROM actor_manifests ORDER BY actor_id`)
	if err != nil {
		return nil, fmt.Errorf("ListManifestRows: %w", err)
	}
	defer rows.Close()

	var manifests []*ManifestRow
	for rows.Next() {
		var m ManifestRow
		var backend sql.NullString
		if err := rows.Scan(&m.ActorID, &m.Version, &m.RiskTier, &m.AllowedTools,
			&m.PolicyIDs, &backend, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ListManifestRows: %w", err)
		}
		if backend.Valid {
			m.LLMBackend = &backend.String
		}
		manifests = append(manifests, &m)
	}
	return manifests, rows.Err()
}

// UpsertManifest creates or replaces an actor's manifest, bumping the version.
func (s *Store) UpsertManifest(ctx context.Context, actorID string, params UpsertManifestParams) (*ManifestRow, error) {
	allowed := params.AllowedTools
	if allowed == nil {
		allowed = json.RawMessage(`[]`)
	}
	policies := params.PolicyIDs
	if policies == nil {
		policies = json.RawMessage(`[]`)
	}

	var m ManifestRow
	var backend sql.NullString
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO actor_manifests (actor_id, version, risk_tier, allowed_tools, policy_ids, llm_backend)
		VALUES ($1, 1, $2, $3, $4, $5)
		ON CONFLICT (actor_id) DO UPDATE SET
			version       = actor_manifests.version + 1,
			risk_tier     = EXCLUDED.risk_tier,
			allowed_tools = EXCLUDED.allowed_tools,
			policy_ids    = EXCLUDED.policy_ids,
			llm_backend   = EXCLUDED.llm_backend,
			updated_at    = now()
		RETURNING actor_id, version, risk_tier, allowed_tools, policy_ids, llm_backend,
		          created_at, updated_at`,
		actorID, params.RiskTier, allowed, policies, params.LLMBackend,
	).Scan(&m.ActorID, &m.Version, &m.RiskTier, &m.AllowedTools, &m.PolicyIDs,
		&backend, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("UpsertManifest: %w", err)
	}
	if backend.Valid {
		m.LLMBackend = &backend.String
	}
	return &m, nil
}

// DeleteManifest removes an actor's manifest. Returns true if a row was deleted.
func (s *Store) DeleteManifest(ctx context.Context, actorID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM actor_manifests WHERE actor_id = $1`, actorID)
	if err != nil {
		return false, fmt.Errorf("DeleteManifest: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("DeleteManifest: %w", err)
	}
	return n > 0, nil
}
