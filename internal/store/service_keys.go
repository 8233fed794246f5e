package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ServiceKey represents a row in the service_keys table. Service keys
// authenticate callers of the /v1 mediation API.
type ServiceKey struct {
	ID           string
	Name         string
	APIKeyHash   string
	APIKeyPrefix string
	CreatedAt    time.Time
}

// GenerateServiceKey creates a new wdn_ API key with its bcrypt hash and
// prefix. Returns (fullKey, hash, prefix, error). The fullKey is shown once.
func GenerateServiceKey() (string, string, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", "", fmt.Errorf("GenerateServiceKey: %w", err)
	}
	fullKey := "wdn_" + hex.EncodeToString(raw) // 68 chars total

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(fullKey), bcrypt.DefaultCost)
	if err != nil {
		return "", "", "", fmt.Errorf("GenerateServiceKey: %w", err)
	}

	prefix := fullKey[:8] // "wdn_abcd"
	return fullKey, string(hashBytes), prefix, nil
}

// CreateServiceKey inserts a new key. Returns the row and the plaintext key
// (shown once).
func (s *Store) CreateServiceKey(ctx context.Context, name string) (*ServiceKey, string, error) {
	fullKey, keyHash, keyPrefix, err := GenerateServiceKey()
	if err != nil {
		return nil, "", fmt.Errorf("CreateServiceKey: %w", err)
	}

	var k ServiceKey
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO service_keys (name, api_key_hash, api_key_prefix)
		VALUES ($1, $2, $3)
		RETURNING id, name, api_key_hash, api_key_prefix, created_at`,
		name, keyHash, keyPrefix,
	).Scan(&k.ID, &k.Name, &k.APIKeyHash, &k.APIKeyPrefix, &k.CreatedAt)
	if err != nil {
		return nil, "", fmt.Errorf("CreateServiceKey: %w", err)
	}
	return &k, fullKey, nil
}

// LookupServiceKeyByPrefix returns the key row for a prefix, or nil if not found.
func (s *Store) LookupServiceKeyByPrefix(ctx context.Context, prefix string) (*ServiceKey, error) {
	var k ServiceKey
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, api_key_hash, api_key_prefix, created_at
		FROM service_keys WHERE api_key_prefix = $1`, prefix,
	).Scan(&k.ID, &k.Name, &k.APIKeyHash, &k.APIKeyPrefix, &k.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("LookupServiceKeyByPrefix: %w", err)
	}
	return &k, nil
}

// ListServiceKeys returns all keys ordered by created_at DESC.
func (s *Store) ListServiceKeys(ctx context.Context) ([]*ServiceKey, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, api_key_hash, api_key_prefix, created_at
		FROM service_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("ListServiceKeys: %w", err)
	}
	defer rows.Close()

	var keys []*ServiceKey
	for rows.Next() {
		var k ServiceKey
		if err := rows.Scan(&k.ID, &k.Name, &k.APIKeyHash, &k.APIKeyPrefix, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("ListServiceKeys: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

// DeleteServiceKey removes a key. Returns true if a row was deleted.
func (s *Store) DeleteServiceKey(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM service_keys WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("DeleteServiceKey: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("DeleteServiceKey: %w", err)
	}
	return n > 0, nil
}
