package browser

import "sync"

// bus fans scripts out to every connected page.
type bus struct {
	mu   sync.RWMutex
	subs map[chan string]struct{}
}

func newBus() *bus {
	return &bus{subs: make(map[chan string]struct{})}
}

// publish sends script to all subscribers and returns how many took it.
// A page whose buffer is full misses the script.
func (b *bus) publish(script string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for ch := range b.subs {
		select {
		case ch <- script:
			n++
		default:
			// subscriber too slow, skip
		}
	}
	return n
}

func (b *bus) subscribe(buffer int) chan string {
	ch := make(chan string, buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// unsubscribe removes a subscriber and closes its channel. It is safe to
// call more than once.
func (b *bus) unsubscribe(ch chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; !ok {
		return
	}
	delete(b.subs, ch)
	close(ch)
}

func (b *bus) len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *bus) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}
