package mapview

import "slices"

// Collection is an ordered set of items compared by identity. Adding an item
// already present, or removing one that is absent, does nothing.
type Collection[T comparable] struct {
	items    []T
	canAdd   func(T) bool
	onAdd    func(T)
	onRemove func(T)
}

// Add appends items in order and returns how many were new.
func (c *Collection[T]) Add(items ...T) int {
	var zero T
	n := 0
	for _, it := range items {
		if it == zero || c.Contains(it) {
			continue
		}
		if c.canAdd != nil && !c.canAdd(it) {
			continue
		}
		c.items = append(c.items, it)
		n++
		if c.onAdd != nil {
			c.onAdd(it)
		}
	}
	return n
}

// Remove deletes items and returns how many were present.
func (c *Collection[T]) Remove(items ...T) int {
	n := 0
	for _, it := range items {
		i := slices.Index(c.items, it)
		if i < 0 {
			continue
		}
		c.items = slices.Delete(c.items, i, i+1)
		n++
		if c.onRemove != nil {
			c.onRemove(it)
		}
	}
	return n
}

// Clear removes every item, last first.
func (c *Collection[T]) Clear() {
	for len(c.items) > 0 {
		c.Remove(c.items[len(c.items)-1])
	}
}

// Contains reports whether item is present.
func (c *Collection[T]) Contains(item T) bool {
	return slices.Contains(c.items, item)
}

// Items returns a copy of the items in order.
func (c *Collection[T]) Items() []T {
	return slices.Clone(c.items)
}

// Len returns the number of items.
func (c *Collection[T]) Len() int { return len(c.items) }
