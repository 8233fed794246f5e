package store

import (
	"context"
	"fmt"
	"time"
)

// KillSwitchRow represents a row in the kill_switches table.
type KillSwitchRow struct {
	SubjectKind string
	SubjectID   string
	Disabled    bool
	Reason      string
	UpdatedAt   time.Time
}

// SetKillSwitch creates or updates a subject's disable flag.
func (s *Store) SetKillSwitch(ctx context.Context, subjectKind, subjectID string, disabled bool, reason string) (*KillSwitchRow, error) {
	var k KillSwitchRow
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO kill_switches (subject_kind, subject_id, disabled, reason)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (subject_kind, subject_id) DO UPDATE SET
			disabled   = EXCLUDED.disabled,
			reason     = EXCLUDED.reason,
			updated_at = now()
		RETURNING subject_kind, subject_id, disabled, reason, updated_at`,
		subjectKind, subjectID, disabled, reason,
	).Scan(&k.SubjectKind, &k.SubjectID, &k.Disabled, &k.Reason, &k.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("SetKillSwitch: %w", err)
	}
	return &k, nil
}

// ListKillSwitches returns all currently set switches (disabled = true).
func (s *Store) ListKillSwitches(ctx context.Context) ([]*KillSwitchRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT subject_kind, subject_id, disabled, reason, updated_at
		FROM kill_switches WHERE disabled ORDER BY subject_kind, subject_id`)
	if err != nil {
		return nil, fmt.Errorf("ListKillSwitches: %w", err)
	}
	defer rows.Close()

	var switches []*KillSwitchRow
	for rows.Next() {
		var k KillSwitchRow
		if err := rows.Scan(&k.SubjectKind, &k.SubjectID, &k.Disabled, &k.Reason, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("ListKillSwitches: %w", err)
		}
		switches = append(switches, &k)
	}
	return switches, rows.Err()
}
