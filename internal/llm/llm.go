// Package llm models an actor's optional language-model backend.
//
// Providers are registered by backend name at startup; whether an actor has
// a backend at all is expressed by Capability, which is either Absent or
// Present with a provider handle. Callers switch on Present() instead of
// nil-checking.
package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Provider is a handle to a language-model backend.
// Concrete wrapper clients live outside this module.
type Provider interface {
	// Name returns the backend's registered name.
	Name() string

	// Complete sends a prompt to the backend and returns the completion.
	Complete(ctx context.Context, prompt string) (string, error)
}

// ProviderFactory builds a provider handle for a backend.
type ProviderFactory func() (Provider, error)

var (
	mu        sync.RWMutex
	factories = map[string]ProviderFactory{}
)

// RegisterProvider registers a provider factory under a backend name.
// Called from main at startup; later registrations replace earlier ones.
func RegisterProvider(name string, factory ProviderFactory) {
	mu.Lock()
	defer mu.Unlock()
	factories[strings.ToLower(name)] = factory
}

// newProvider builds the provider registered under the given backend name.
func newProvider(name string) (Provider, error) {
	mu.RLock()
	factory := factories[strings.ToLower(name)]
	mu.RUnlock()

	if factory == nil {
		return nil, fmt.Errorf("llm: backend %q not registered", name)
	}
	return factory()
}

// Capability is the sum type Absent | Present(provider).
type Capability struct {
	provider Provider
}

// Absent returns the no-backend capability.
func Absent() Capability {
	return Capability{}
}

// WithProvider returns a present capability holding the given handle.
func WithProvider(p Provider) Capability {
	return Capability{provider: p}
}

// Present reports whether the actor has a language-model backend.
func (c Capability) Present() bool {
	return c.provider != nil
}

// Provider returns the backend handle. Only valid when Present() is true.
func (c Capability) Provider() Provider {
	return c.provider
}

// Probe computes the capability for a manifest's declared backend.
// An empty backend name, or a name with no registered factory, yields
// Absent — the probe runs once at context construction, never at call time.
func Probe(backendName string) Capability {
	if backendName == "" {
		return Absent()
	}
	p, err := newProvider(backendName)
	if err != nil {
		return Absent()
	}
	return WithProvider(p)
}
