// Package provider implements OAuth2 identity provider clients and the
// registry the orchestrator resolves its provider from at startup.
package provider

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/sumire/accounts/internal/domain"
)

var (
	ErrProviderConflict = errors.New("provider already registered")
	ErrProviderNotFound = errors.New("provider not found")
)

// IdentityProvider is the capability every provider client implements.
type IdentityProvider interface {
	Name() domain.AuthProvider
	// AuthURL builds the authorization endpoint URL. It performs no I/O.
	AuthURL(publicBase string) string
	// Exchange trades an authorization code for the user's provider identity.
	Exchange(ctx context.Context, code, redirectURI string) (domain.ProviderIdentity, error)
}

// Registry maps provider names to their clients.
type Registry struct {
	providers map[domain.AuthProvider]IdentityProvider
	mu        sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[domain.AuthProvider]IdentityProvider),
	}
}

// Register adds p under its own name.
func (r *Registry) Register(p IdentityProvider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[p.Name()]; ok {
		return ErrProviderConflict
	}

	r.providers[p.Name()] = p
	return nil
}

// Lookup returns the provider registered under name.
func (r *Registry) Lookup(name domain.AuthProvider) (IdentityProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, ErrProviderNotFound
	}

	return p, nil
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []domain.AuthProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]domain.AuthProvider, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
