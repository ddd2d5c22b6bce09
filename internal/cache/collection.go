// Package cache keeps a signed-in user's view of the backend: courses,
// lessons, materials, categories, enrollments and completed lessons.
// Entries only change from server responses; a failed call leaves the
// cache as it was.
package cache

import (
	"slices"
	"sync"
)

// Entity is anything the backend identifies by a numeric id.
type Entity interface {
	GetID() int64
}

// collection holds items in server order.
type collection[T Entity] struct {
	mu    sync.RWMutex
	items map[int64]T
	order []int64
}

func newCollection[T Entity]() *collection[T] {
	return &collection[T]{items: make(map[int64]T)}
}

func (c *collection[T]) get(id int64) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[id]
	return item, ok
}

func (c *collection[T]) all() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}

func (c *collection[T]) where(keep func(T) bool) []T {
	out := []T{}
	for _, item := range c.all() {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

func (c *collection[T]) upsert(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := item.GetID()
	if _, ok := c.items[id]; !ok {
		c.order = append(c.order, id)
	}
	c.items[id] = item
}

func (c *collection[T]) remove(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[id]; !ok {
		return
	}
	delete(c.items, id)
	c.order = slices.DeleteFunc(c.order, func(v int64) bool { return v == id })
}

// replace drops every item matching inScope, then appends fresh in order.
func (c *collection[T]) replace(fresh []T, inScope func(T) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order = slices.DeleteFunc(c.order, func(id int64) bool {
		if inScope(c.items[id]) {
			delete(c.items, id)
			return true
		}
		return false
	})
	for _, item := range fresh {
		id := item.GetID()
		if _, ok := c.items[id]; !ok {
			c.order = append(c.order, id)
		}
		c.items[id] = item
	}
}
