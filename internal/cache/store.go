package cache

import (
	"context"
	"net/url"

	"github.com/s/lmsPortal/internal/api"
)

// Scope reports whether item belongs to the subset a list call with
// params returned. A nil Scope means every list call returns the whole
// collection.
type Scope[T any] func(item T, params url.Values) bool

// Store mirrors one backend collection.
type Store[T Entity, F any] struct {
	ep    api.Endpoint[T, F]
	scope Scope[T]
	items *collection[T]
}

func NewStore[T Entity, F any](ep api.Endpoint[T, F], scope Scope[T]) *Store[T, F] {
	return &Store[T, F]{ep: ep, scope: scope, items: newCollection[T]()}
}

// List fetches the subset described by params and replaces exactly that
// subset locally.
func (s *Store[T, F]) List(ctx context.Context, params url.Values) ([]T, error) {
	fresh, err := s.ep.List(ctx, params)
	if err != nil {
		return nil, err
	}
	s.items.replace(fresh, func(item T) bool {
		return s.scope == nil || s.scope(item, params)
	})
	return fresh, nil
}

func (s *Store[T, F]) Get(ctx context.Context, id int64) (T, error) {
	item, err := s.ep.Get(ctx, id)
	if err != nil {
		var zero T
		return zero, err
	}
	s.items.upsert(item)
	return item, nil
}

func (s *Store[T, F]) Create(ctx context.Context, fields F) (T, error) {
	item, err := s.ep.Create(ctx, fields)
	if err != nil {
		var zero T
		return zero, err
	}
	s.items.upsert(item)
	return item, nil
}

func (s *Store[T, F]) Update(ctx context.Context, id int64, fields F) (T, error) {
	item, err := s.ep.Update(ctx, id, fields)
	if err != nil {
		var zero T
		return zero, err
	}
	s.items.upsert(item)
	return item, nil
}

func (s *Store[T, F]) Delete(ctx context.Context, id int64) error {
	if err := s.ep.Delete(ctx, id); err != nil {
		return err
	}
	s.items.remove(id)
	return nil
}

// Cached reads the local copy without a network call.
func (s *Store[T, F]) Cached(id int64) (T, bool) { return s.items.get(id) }

func (s *Store[T, F]) All() []T { return s.items.all() }

func (s *Store[T, F]) Where(keep func(T) bool) []T { return s.items.where(keep) }

// Listing mirrors a read-only backend list.
type Listing[T Entity] struct {
	fetch func(ctx context.Context) ([]T, error)
	items *collection[T]
}

func NewListing[T Entity](fetch func(ctx context.Context) ([]T, error)) *Listing[T] {
	return &Listing[T]{fetch: fetch, items: newCollection[T]()}
}

func (l *Listing[T]) Refresh(ctx context.Context) ([]T, error) {
	fresh, err := l.fetch(ctx)
	if err != nil {
		return nil, err
	}
	l.items.replace(fresh, func(T) bool { return true })
	return fresh, nil
}

func (l *Listing[T]) Cached(id int64) (T, bool) { return l.items.get(id) }

func (l *Listing[T]) All() []T { return l.items.all() }

func (l *Listing[T]) Where(keep func(T) bool) []T { return l.items.where(keep) }
