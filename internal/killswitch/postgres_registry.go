package killswitch

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SwitchStore abstracts DB queries for testability.
type SwitchStore interface {
	LookupSwitch(ctx context.Context, subjectKind, subjectID string) (bool, error)
}

// sqlSwitchStore is the real implementation using *sql.DB.
type sqlSwitchStore struct {
	db *sql.DB
}

func (s *sqlSwitchStore) LookupSwitch(ctx context.Context, subjectKind, subjectID string) (bool, error) {
	var disabled bool
	err := s.db.QueryRowContext(ctx, `
		SELECT disabled FROM kill_switches
		WHERE subject_kind = $1 AND subject_id = $2
	`, subjectKind, subjectID).Scan(&disabled)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil // no flag means enabled
		}
		return false, err
	}
	return disabled, nil
}

// PostgresRegistry reads kill-switch flags from the kill_switches table.
// Every read is bounded by a short timeout so a stalled registry cannot
// block resolution.
type PostgresRegistry struct {
	store   SwitchStore
	timeout time.Duration
	logger  *zap.Logger
}

// PostgresRegistryConfig configures the PostgresRegistry.
type PostgresRegistryConfig struct {
	DB      *sql.DB
	Timeout time.Duration // Default: 2s
	Logger  *zap.Logger
}

// NewPostgresRegistry creates a new PostgresRegistry.
func NewPostgresRegistry(cfg PostgresRegistryConfig) *PostgresRegistry {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Second
	}
	return &PostgresRegistry{
		store:   &sqlSwitchStore{db: cfg.DB},
		timeout: timeout,
		logger:  cfg.Logger,
	}
}

// newPostgresRegistryWithStore creates a registry with a custom store (for testing).
func newPostgresRegistryWithStore(store SwitchStore, timeout time.Duration, logger *zap.Logger) *PostgresRegistry {
	if timeout == 0 {
		timeout = 2 * time.Second
	}
	return &PostgresRegistry{store: store, timeout: timeout, logger: logger}
}

func (r *PostgresRegistry) Disabled(ctx context.Context, subjectKind, subjectID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	disabled, err := r.store.LookupSwitch(ctx, subjectKind, subjectID)
	if err != nil {
		r.logger.Warn("kill-switch lookup failed",
			zap.String("subject_kind", subjectKind),
			zap.String("subject_id", subjectID),
			zap.Error(err),
		)
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return disabled, nil
}
