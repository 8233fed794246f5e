package manifest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ManifestStore abstracts DB queries for testability.
type ManifestStore interface {
	LookupManifest(ctx context.Context, actorID string) (*manifestRow, error)
}

type manifestRow struct {
	ActorID      string
	Version      int
	RiskTier     string
	AllowedTools string         // JSONB array as string
	PolicyIDs    string         // JSONB array as string
	LLMBackend   sql.NullString // NULL when the actor has no LLM backend
}

// sqlManifestStore is the real implementation using *sql.DB.
type sqlManifestStore struct {
	db *sql.DB
}

func (s *sqlManifestStore) LookupManifest(ctx context.Context, actorID string) (*manifestRow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT actor_id, version, risk_tier, allowed_tools, policy_ids, llm_backend
		FROM actor_manifests
		WHERE actor_id = $1
	`, actorID)

	var r manifestRow
	if err := row.Scan(
		&r.ActorID, &r.Version, &r.RiskTier,
		&r.AllowedTools, &r.PolicyIDs, &r.LLMBackend,
	); err != nil {
		return nil, err
	}
	return &r, nil
}

// PostgresRegistry fetches manifests from the actor_manifests table.
type PostgresRegistry struct {
	store  ManifestStore
	cache  *Cache
	logger *zap.Logger
}

// PostgresRegistryConfig configures the PostgresRegistry.
type PostgresRegistryConfig struct {
	DB       *sql.DB
	CacheTTL time.Duration
	Logger   *zap.Logger
}

// NewPostgresRegistry creates a new PostgresRegistry.
func NewPostgresRegistry(cfg PostgresRegistryConfig) *PostgresRegistry {
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 60 * time.Second
	}
	return &PostgresRegistry{
		store:  &sqlManifestStore{db: cfg.DB},
		cache:  NewCache(ttl),
		logger: cfg.Logger,
	}
}

// newPostgresRegistryWithStore creates a registry with a custom store (for testing).
func newPostgresRegistryWithStore(store ManifestStore, cacheTTL time.Duration, logger *zap.Logger) *PostgresRegistry {
	if cacheTTL == 0 {
		cacheTTL = 60 * time.Second
	}
	return &PostgresRegistry{
		store:  store,
		cache:  NewCache(cacheTTL),
		logger: logger,
	}
}

func (r *PostgresRegistry) GetManifest(ctx context.Context, actorID string) (*Manifest, error) {
	cacheResult := r.cache.Get(actorID)
	if cacheResult.Hit {
		if cacheResult.NeedsRefresh {
			go r.refreshInBackground(actorID)
		}
		if cacheResult.Manifest == nil {
			return nil, ErrNotFound
		}
		return cacheResult.Manifest, nil
	}

	// Cache miss — fetch from DB
	m, err := r.fetchFromDB(ctx, actorID)
	if err != nil {
		if err == sql.ErrNoRows {
			// Negative cache: actor not found
			r.cache.Set(actorID, nil)
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("GetManifest: %w", err)
	}

	r.cache.Set(actorID, m)
	return m, nil
}

func (r *PostgresRegistry) fetchFromDB(ctx context.Context, actorID string) (*Manifest, error) {
	row, err := r.store.LookupManifest(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return parseManifestRow(row)
}

func (r *PostgresRegistry) refreshInBackground(actorID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m, err := r.fetchFromDB(ctx, actorID)
	if err != nil {
		if err == sql.ErrNoRows {
			r.cache.Set(actorID, nil)
			return
		}
		r.logger.Warn("background manifest refresh failed",
			zap.String("actor_id", actorID),
			zap.Error(err),
		)
		return
	}
	r.cache.Set(actorID, m)
}

func parseManifestRow(row *manifestRow) (*Manifest, error) {
	m := &Manifest{
		ActorID:  row.ActorID,
		Version:  row.Version,
		RiskTier: row.RiskTier,
	}

	if row.AllowedTools != "" && row.AllowedTools != "[]" {
		if err := json.Unmarshal([]byte(row.AllowedTools), &m.AllowedTools); err != nil {
			return nil, fmt.Errorf("parseManifestRow: allowed_tools: %w", err)
		}
	}

	if row.PolicyIDs != "" && row.PolicyIDs != "[]" {
		if err := json.Unmarshal([]byte(row.PolicyIDs), &m.PolicyIDs); err != nil {
			return nil, fmt.Errorf("parseManifestRow: policy_ids: %w", err)
		}
	}

	if row.LLMBackend.Valid {
		m.LLMBackend = row.LLMBackend.String
	}

	return m, nil
}
