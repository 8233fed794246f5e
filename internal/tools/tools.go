// Package tools resolves and executes an actor's declared tool capabilities.
//
// Allow-list membership always dominates resolvability: a tool outside the
// actor's manifest is ErrNotAllowed even when an implementation exists.
package tools

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNotAllowed is returned for tools outside the actor's allowed set.
	ErrNotAllowed = errors.New("tool not allowed")

	// ErrNotFound is returned when an allowed tool has no implementation.
	ErrNotFound = errors.New("tool not found")
)

// Handle is a resolved, invocable tool capability.
type Handle interface {
	// Name returns the tool's name.
	Name() string

	// Invoke executes the tool. Must respect ctx deadlines.
	Invoke(ctx context.Context, args map[string]any) (map[string]any, error)
}

// Func adapts a plain function to a Handle.
type Func struct {
	name string
	fn   func(ctx context.Context, args map[string]any) (map[string]any, error)
}

// NewFunc wraps fn as a named tool Handle.
func NewFunc(name string, fn func(ctx context.Context, args map[string]any) (map[string]any, error)) *Func {
	return &Func{name: name, fn: fn}
}

func (f *Func) Name() string { return f.name }

func (f *Func) Invoke(ctx context.Context, args map[string]any) (map[string]any, error) {
	return f.fn(ctx, args)
}

// NativeRegistry holds the process's native tool implementations, looked up
// by name. Populated at startup; safe for concurrent use.
type NativeRegistry struct {
	mu    sync.RWMutex
	tools map[string]Handle
}

// NewNativeRegistry creates an empty registry.
func NewNativeRegistry() *NativeRegistry {
	return &NativeRegistry{tools: make(map[string]Handle)}
}

// Register adds a tool implementation. Later registrations replace earlier ones.
func (r *NativeRegistry) Register(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[h.Name()] = h
}

// Lookup returns the implementation registered under name.
func (r *NativeRegistry) Lookup(name string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.tools[name]
	return h, ok
}
