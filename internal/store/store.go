package store

import "database/sql"

// Store provides access to the PostgreSQL database for manifest, tool spec,
// allow-list, kill-switch, and service-key administration.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store backed by the given database connection pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}
