package scripting

import (
	"fmt"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/aretw0/fable/pkg/registry"
)

// ServiceProvider is the underlying source of host services, usually a session scope.
type ServiceProvider interface {
	Service(name string) (any, bool)
}

// ScopeHandle is implemented by providers whose lifetime is reference counted.
// A resolver acquires the scope when created and releases it when the run ends.
type ScopeHandle interface {
	Acquire() error
	Release()
}

// Resolver gates script access to host services.
// One Resolver exists per script run; it is unusable after Release.
type Resolver struct {
	provider     ServiceProvider
	capabilities *registry.Registry[Capability]
	unsafe       bool
	released     bool
}

// NewResolver creates a resolver that only serves script-accessible capabilities.
func NewResolver(provider ServiceProvider, capabilities *registry.Registry[Capability]) (*Resolver, error) {
	return newResolver(provider, capabilities, false)
}

// NewUnsafeResolver creates a resolver that bypasses the allow-list.
// Reserved for trusted, administrative scripts.
func NewUnsafeResolver(provider ServiceProvider, capabilities *registry.Registry[Capability]) (*Resolver, error) {
	return newResolver(provider, capabilities, true)
}

func newResolver(provider ServiceProvider, capabilities *registry.Registry[Capability], unsafe bool) (*Resolver, error) {
	if scope, ok := provider.(ScopeHandle); ok {
		if err := scope.Acquire(); err != nil {
			return nil, fmt.Errorf("failed to acquire service scope: %w", err)
		}
	}
	return &Resolver{
		provider:     provider,
		capabilities: capabilities,
		unsafe:       unsafe,
	}, nil
}

// Unsafe reports whether the resolver bypasses the allow-list.
func (r *Resolver) Unsafe() bool {
	return r.unsafe
}

// GetService returns the service registered under name.
func (r *Resolver) GetService(name string) (any, error) {
	if _, err := r.capability(name); err != nil {
		return nil, err
	}
	svc, ok := r.provider.Service(name)
	if !ok || svc == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrServiceNotFound, name)
	}
	return svc, nil
}

func (r *Resolver) capability(name string) (Capability, error) {
	if r.released {
		return Capability{}, domain.ErrResolverReleased
	}
	capability, ok := r.capabilities.Get(name)
	if !ok {
		return Capability{}, fmt.Errorf("%w: %s", domain.ErrServiceNotFound, name)
	}
	if !r.unsafe && !capability.ScriptAccessible {
		return Capability{}, fmt.Errorf("%w: access to service %s denied", domain.ErrServiceAccessDenied, name)
	}
	return capability, nil
}

// Release ends the resolver's lifetime. It is safe to call more than once.
func (r *Resolver) Release() {
	if r.released {
		return
	}
	r.released = true
	if scope, ok := r.provider.(ScopeHandle); ok {
		scope.Release()
	}
}
