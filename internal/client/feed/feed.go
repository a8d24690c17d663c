// Package feed keeps a live, newest-first view of the invoice collection.
package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/polkiloo/invoicedesk/internal/client"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
)

// Feed mirrors the snapshots delivered by the record store. Snapshots replace
// the list wholesale and keep the store's order.
type Feed struct {
	records client.RecordStore
	logger  *slog.Logger

	mu       sync.Mutex
	invoices []model.Invoice
	gen      uint64
	cancel   context.CancelFunc
	done     chan struct{}
	watchers client.Notifier[[]model.Invoice]
}

func New(records client.RecordStore, logger *slog.Logger) *Feed {
	return &Feed{records: records, logger: logger}
}

// Mount opens the live subscription, replacing any previous one.
func (f *Feed) Mount(ctx context.Context) error {
	f.Unmount()

	ctx, cancel := context.WithCancel(ctx)
	updates, err := f.records.WatchInvoices(ctx)
	if err != nil {
		cancel()
		f.logger.Error("invoice subscription failed", slog.Any("error", err))
		return err
	}

	f.mu.Lock()
	f.gen++
	gen := f.gen
	prevCancel, prevDone := f.cancel, f.done
	f.cancel = cancel
	f.done = make(chan struct{})
	done := f.done
	f.mu.Unlock()

	if prevCancel != nil {
		prevCancel()
		<-prevDone
	}
	go f.consume(ctx, gen, updates, done)
	return nil
}

func (f *Feed) consume(ctx context.Context, gen uint64, updates <-chan []model.Invoice, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-updates:
			if !ok {
				f.ended(gen)
				return
			}
			f.apply(gen, snapshot)
		}
	}
}

func (f *Feed) apply(gen uint64, snapshot []model.Invoice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen || f.cancel == nil {
		return
	}
	f.invoices = cloneInvoices(snapshot)
	f.watchers.Publish(cloneInvoices(f.invoices))
}

// ended marks the feed unmounted when the store closes the current
// subscription. The last list stays visible.
func (f *Feed) ended(gen uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen || f.cancel == nil {
		return
	}
	f.logger.Warn("invoice subscription closed by the store")
	f.cancel()
	f.cancel, f.done = nil, nil
}

// Unmount cancels the live subscription and clears the list. Snapshots
// delivered afterwards are ignored.
func (f *Feed) Unmount() {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	f.gen++
	wasMounted := cancel != nil
	if wasMounted {
		f.invoices = nil
		f.watchers.Publish(nil)
	}
	f.mu.Unlock()

	if !wasMounted {
		return
	}
	cancel()
	<-done
}

// Mounted reports whether a live subscription is open.
func (f *Feed) Mounted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancel != nil
}

// Invoices returns a copy of the current list.
func (f *Feed) Invoices() []model.Invoice {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneInvoices(f.invoices)
}

// Select returns the record with id from the current list.
func (f *Feed) Select(id string) (model.Invoice, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, invoice := range f.invoices {
		if invoice.ID == id {
			return invoice.Clone(), true
		}
	}
	return model.Invoice{}, false
}

// Delete removes the record from the store. The list only changes when the
// next snapshot arrives.
func (f *Feed) Delete(ctx context.Context, id string) error {
	if err := f.records.DeleteInvoice(ctx, id); err != nil {
		f.logger.Error("invoice delete failed", slog.String("invoice_id", id), slog.Any("error", err))
		return err
	}
	return nil
}

// Watch delivers every accepted snapshot until ctx is done. Unmount delivers
// a nil list.
func (f *Feed) Watch(ctx context.Context) <-chan []model.Invoice {
	ch, unsubscribe := f.watchers.Subscribe()
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
	return ch
}

func cloneInvoices(in []model.Invoice) []model.Invoice {
	if in == nil {
		return nil
	}
	out := make([]model.Invoice, len(in))
	for i, invoice := range in {
		out[i] = invoice.Clone()
	}
	return out
}
