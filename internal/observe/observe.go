// Package observe holds the ordered subscriber list shared by the geometry
// and map packages.
package observe

// List is an ordered list of callbacks receiving values of type T. The zero
// value is ready to use. A List is not safe for concurrent use; it belongs to
// whichever goroutine owns the value it is embedded in.
type List[T any] struct {
	next int
	subs []entry[T]
}

type entry[T any] struct {
	id int
	fn func(T)
}

// Subscribe appends fn and returns a function removing it again. Calling the
// returned function more than once is harmless.
func (l *List[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	l.next++
	id := l.next
	l.subs = append(l.subs, entry[T]{id: id, fn: fn})
	return func() {
		for i, s := range l.subs {
			if s.id == id {
				l.subs = append(l.subs[:i], l.subs[i+1:]...)
				return
			}
		}
	}
}

// Notify calls every subscriber with v in subscription order.
func (l *List[T]) Notify(v T) {
	// Copy so a callback can unsubscribe itself.
	subs := append([]entry[T](nil), l.subs...)
	for _, s := range subs {
		s.fn(v)
	}
}

// Len returns the number of subscribers.
func (l *List[T]) Len() int { return len(l.subs) }

// Signal is a List carrying no value.
type Signal struct {
	list List[struct{}]
}

// Subscribe appends fn and returns a function removing it again.
func (s *Signal) Subscribe(fn func()) (unsubscribe func()) {
	return s.list.Subscribe(func(struct{}) { fn() })
}

// Notify calls every subscriber in subscription order.
func (s *Signal) Notify() { s.list.Notify(struct{}{}) }

// Len returns the number of subscribers.
func (s *Signal) Len() int { return s.list.Len() }
