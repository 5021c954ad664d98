package store

import "sync"

// notifier fans out change notifications to registered subscribers.
// Callbacks run synchronously on the goroutine that triggered the
// change, matching the event-driven model: one event at a time per
// container.
type notifier struct {
	mu   sync.Mutex
	subs map[int]func()
	next int
}

func (n *notifier) subscribe(fn func()) (cancel func()) {
	n.mu.Lock()
	if n.subs == nil {
		n.subs = make(map[int]func())
	}
	id := n.next
	n.next++
	n.subs[id] = fn
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

func (n *notifier) notify() {
	n.mu.Lock()
	fns := make([]func(), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
