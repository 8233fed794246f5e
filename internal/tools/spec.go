package tools

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Parameter locations in an API-tool spec.
type ParamLocation string

const (
	InPath  ParamLocation = "path"
	InQuery ParamLocation = "query"
	InBody  ParamLocation = "body"
)

// Param is one named parameter of an API tool.
type Param struct {
	Name     string        `json:"name"`
	Location ParamLocation `json:"location"`
	Required bool          `json:"required"`
}

// APIToolSpec is the immutable declarative description of an HTTP-callable
// capability. Secrets are referenced by environment-variable name only; the
// spec never carries literal secret values.
type APIToolSpec struct {
	ToolName         string         `json:"tool_name"`
	Method           string         `json:"method"`
	BaseURLEnvVar    string         `json:"base_url_env_var"`
	PathTemplate     string         `json:"path_template"` // contains {name} placeholders
	TimeoutSeconds   int            `json:"timeout_seconds"`
	Parameters       []Param        `json:"parameters"`
	AuthHeaderEnvVar string         `json:"auth_header_env_var,omitempty"`
	APIKeyHeaderName string         `json:"api_key_header_name,omitempty"`
	APIKeyEnvVar     string         `json:"api_key_env_var,omitempty"`
	ArgumentSchema   map[string]any `json:"argument_schema,omitempty"`
}

// Timeout returns the per-call bound for this tool.
func (s *APIToolSpec) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Catalog provides API-tool specs by tool name.
type Catalog interface {
	// GetSpec returns the spec for a tool name.
	// Returns nil if the tool is not in the catalog.
	GetSpec(ctx context.Context, toolName string) (*APIToolSpec, error)
}

// --- SWR spec cache ---

// SpecCache is a TTL-based in-memory cache with stale-while-revalidate for
// API-tool specs. Uses sync.Map for lock-free reads on the hot path.
type SpecCache struct {
	store sync.Map // map[string]*specCacheEntry
	ttl   time.Duration
}

type specCacheEntry struct {
	spec       *APIToolSpec // nil = negative cache (tool not in catalog)
	expiresAt  time.Time
	refreshing atomic.Bool
}

// SpecCacheResult holds the result of a cache lookup.
type SpecCacheResult struct {
	Spec         *APIToolSpec
	Hit          bool
	NeedsRefresh bool
}

// NewSpecCache creates a cache with the given TTL.
func NewSpecCache(ttl time.Duration) *SpecCache {
	return &SpecCache{ttl: ttl}
}

// Get performs a non-blocking cache lookup.
// Returns stale entries with NeedsRefresh=true when expired.
func (c *SpecCache) Get(toolName string) SpecCacheResult {
	val, ok := c.store.Load(toolName)
	if !ok {
		return SpecCacheResult{Hit: false}
	}

	entry := val.(*specCacheEntry)

	if time.Now().Before(entry.expiresAt) {
		return SpecCacheResult{Spec: entry.spec, Hit: true}
	}

	needsRefresh := entry.refreshing.CompareAndSwap(false, true)
	return SpecCacheResult{
		Spec:         entry.spec,
		Hit:          true,
		NeedsRefresh: needsRefresh,
	}
}

// Set stores a spec with a fresh TTL. Passing nil stores a negative entry.
func (c *SpecCache) Set(toolName string, spec *APIToolSpec) {
	c.store.Store(toolName, &specCacheEntry{
		spec:      spec,
		expiresAt: time.Now().Add(c.ttl),
	})
}

// Delete removes an entry from the cache.
func (c *SpecCache) Delete(toolName string) {
	c.store.Delete(toolName)
}

// --- Postgres catalog ---

// SpecStore abstracts DB queries for testability.
type SpecStore interface {
	LookupSpec(ctx context.Context, toolName string) (string, error)
}

// sqlSpecStore is the real implementation using *sql.DB.
type sqlSpecStore struct {
	db *sql.DB
}

func (s *sqlSpecStore) LookupSpec(ctx context.Context, toolName string) (string, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT spec FROM api_tools WHERE tool_name = $1
	`, toolName).Scan(&raw)
	if err != nil {
		return "", err
	}
	return raw, nil
}

// PostgresCatalog fetches API-tool specs from the api_tools table.
type PostgresCatalog struct {
	store  SpecStore
	cache  *SpecCache
	logger *zap.Logger
}

// PostgresCatalogConfig configures the PostgresCatalog.
type PostgresCatalogConfig struct {
	DB       *sql.DB
	CacheTTL time.Duration
	Logger   *zap.Logger
}

// NewPostgresCatalog creates a new PostgresCatalog.
func NewPostgresCatalog(cfg PostgresCatalogConfig) *PostgresCatalog {
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 60 * time.Second
	}
	return &PostgresCatalog{
		store:  &sqlSpecStore{db: cfg.DB},
		cache:  NewSpecCache(ttl),
		logger: cfg.Logger,
	}
}

// newPostgresCatalogWithStore creates a catalog with a custom store (for testing).
func newPostgresCatalogWithStore(store SpecStore, cacheTTL time.Duration, logger *zap.Logger) *PostgresCatalog {
	if cacheTTL == 0 {
		cacheTTL = 60 * time.Second
	}
	return &PostgresCatalog{
		store:  store,
		cache:  NewSpecCache(cacheTTL),
		logger: logger,
	}
}

func (c *PostgresCatalog) GetSpec(ctx context.Context, toolName string) (*APIToolSpec, error) {
	cacheResult := c.cache.Get(toolName)
	if cacheResult.Hit {
		if cacheResult.NeedsRefresh {
			go c.refreshInBackground(toolName)
		}
		return cacheResult.Spec, nil
	}

	spec, err := c.fetchFromDB(ctx, toolName)
	if err != nil {
		if err == sql.ErrNoRows {
			// Negative cache: tool not in catalog
			c.cache.Set(toolName, nil)
			return nil, nil
		}
		return nil, fmt.Errorf("GetSpec: %w", err)
	}

	c.cache.Set(toolName, spec)
	return spec, nil
}

func (c *PostgresCatalog) fetchFromDB(ctx context.Context, toolName string) (*APIToolSpec, error) {
	raw, err := c.store.LookupSpec(ctx, toolName)
	if err != nil {
		return nil, err
	}
	return parseSpec(toolName, raw)
}

func (c *PostgresCatalog) refreshInBackground(toolName string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	spec, err := c.fetchFromDB(ctx, toolName)
	if err != nil {
		if err == sql.ErrNoRows {
			c.cache.Set(toolName, nil)
			return
		}
		c.logger.Warn("background tool spec refresh failed",
			zap.String("tool_name", toolName),
			zap.Error(err),
		)
		return
	}
	c.cache.Set(toolName, spec)
}

func parseSpec(toolName, raw string) (*APIToolSpec, error) {
	var spec APIToolSpec
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		return nil, fmt.Errorf("parseSpec: %w", err)
	}
	if spec.ToolName == "" {
		spec.ToolName = toolName
	}
	return &spec, nil
}

// StaticCatalog serves specs from an in-memory map.
// Used for local development and tests.
type StaticCatalog struct {
	mu    sync.RWMutex
	specs map[string]*APIToolSpec
}

// NewStaticCatalog creates a catalog pre-populated with the given specs.
func NewStaticCatalog(specs ...*APIToolSpec) *StaticCatalog {
	c := &StaticCatalog{specs: make(map[string]*APIToolSpec, len(specs))}
	for _, s := range specs {
		c.specs[s.ToolName] = s
	}
	return c
}

func (c *StaticCatalog) GetSpec(_ context.Context, toolName string) (*APIToolSpec, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.specs[toolName], nil
}

// Put adds or replaces a spec.
func (c *StaticCatalog) Put(s *APIToolSpec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.specs[s.ToolName] = s
}
