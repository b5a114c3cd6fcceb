// Package types defines the contracts every listing source implements.
package types

import (
	"context"

	"techflow-engine/internal/domain"
)

// Adapter fetches raw listings for one keyword from one source. A failure
// is returned as an error and never panics the caller.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, keyword string, max int) ([]domain.RawListing, error)
}

// Hydrator is the optional secondary fetch that fills fields the list
// view does not carry (requirements, skills, salary).
type Hydrator interface {
	Hydrate(ctx context.Context, l *domain.RawListing) error
}

// Registry maps source names to adapters in a stable order.
type Registry struct {
	order    []string
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: map[string]Adapter{}}
	for _, a := range adapters {
		r.Add(a)
	}
	return r
}

func (r *Registry) Add(a Adapter) {
	if _, ok := r.adapters[a.Name()]; !ok {
		r.order = append(r.order, a.Name())
	}
	r.adapters[a.Name()] = a
}

func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Names lists registered sources in registration order.
func (r *Registry) Names() []string { return append([]string(nil), r.order...) }
