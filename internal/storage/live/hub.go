// Package live fans change notifications out to invoice collection watchers.
package live

import (
	"context"
	"log/slog"
	"sync"

	"github.com/polkiloo/invoicedesk/internal/domain/model"
)

// Hub delivers coalesced change signals per owner.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan struct{}]struct{})}
}

// Subscribe registers interest in owner changes. The returned func unsubscribes.
func (h *Hub) Subscribe(owner string) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	h.mu.Lock()
	if h.subs[owner] == nil {
		h.subs[owner] = make(map[chan struct{}]struct{})
	}
	h.subs[owner][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[owner], ch)
			if len(h.subs[owner]) == 0 {
				delete(h.subs, owner)
			}
		})
	}
}

// Publish signals every watcher of owner. Pending signals are coalesced.
func (h *Hub) Publish(owner string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[owner] {
		signal(ch)
	}
}

// PublishAll signals every watcher, used after notifications may have been lost.
func (h *Hub) PublishAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, subs := range h.subs {
		for ch := range subs {
			signal(ch)
		}
	}
}

// Watchers returns the number of active subscriptions.
func (h *Hub) Watchers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, subs := range h.subs {
		n += len(subs)
	}
	return n
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Loader reads the current ordered collection.
type Loader func(ctx context.Context) ([]model.Invoice, error)

// Stream emits initial, then a fresh load after every signal, until ctx is done.
// unsubscribe is called when the stream ends.
func Stream(ctx context.Context, initial []model.Invoice, changes <-chan struct{}, unsubscribe func(), load Loader, logger *slog.Logger) <-chan []model.Invoice {
	out := make(chan []model.Invoice, 1)
	go func() {
		defer close(out)
		defer unsubscribe()

		if !send(ctx, out, initial) {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-changes:
			}
			snapshot, err := load(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Error("reload invoice snapshot failed", slog.String("error", err.Error()))
				continue
			}
			if !send(ctx, out, snapshot) {
				return
			}
		}
	}()
	return out
}

func send(ctx context.Context, out chan<- []model.Invoice, snapshot []model.Invoice) bool {
	if snapshot == nil {
		snapshot = []model.Invoice{}
	}
	select {
	case out <- snapshot:
		return true
	case <-ctx.Done():
		return false
	}
}
