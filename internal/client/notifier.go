package client

import "sync"

// Notifier fans values out to subscribers. Each subscriber holds at most one
// pending value; a newer value replaces one that was not yet received. New
// subscribers start with the last published value, if any.
type Notifier[T any] struct {
	mu      sync.Mutex
	subs    map[int]chan T
	nextID  int
	last    T
	hasLast bool
}

// Subscribe registers a subscriber. The returned func removes it and closes
// the channel; calling it twice is safe.
func (n *Notifier[T]) Subscribe() (<-chan T, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]chan T)
	}
	id := n.nextID
	n.nextID++
	ch := make(chan T, 1)
	if n.hasLast {
		ch <- n.last
	}
	n.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subs, id)
			close(ch)
		})
	}
}

// Publish delivers v to every subscriber without blocking.
func (n *Notifier[T]) Publish(v T) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.last, n.hasLast = v, true
	for _, ch := range n.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

// Len returns the number of active subscribers.
func (n *Notifier[T]) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}
