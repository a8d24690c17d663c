package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/invoicedesk/internal/adapter/extractor"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
	"github.com/polkiloo/invoicedesk/internal/metrics"
)

const releaseTimeout = 5 * time.Second

// InvoiceFacade exposes the subset of application functionality required by the worker.
type InvoiceFacade interface {
	InvoicesForExtraction(ctx context.Context, limit int) ([]model.Invoice, error)
	ExtractInvoice(ctx context.Context, invoice model.Invoice) (model.InvoiceData, error)
	CompleteExtraction(ctx context.Context, id string, data model.InvoiceData) error
	ReleaseExtraction(ctx context.Context, id string) error
}

// ExtractionProcessor claims pending invoices and fills in their data concurrently.
type ExtractionProcessor struct {
	facade       InvoiceFacade
	pollInterval time.Duration
	batchSize    int
	workers      int
	metrics      *metrics.Collectors
	logger       *slog.Logger

	jobs   chan model.Invoice
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewExtractionProcessor constructs the extraction worker pool. collectors may be nil.
func NewExtractionProcessor(facade InvoiceFacade, pollInterval time.Duration, batchSize, workers int, collectors *metrics.Collectors, logger *slog.Logger) *ExtractionProcessor {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &ExtractionProcessor{
		facade:       facade,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		workers:      workers,
		metrics:      collectors,
		logger:       logger,
		jobs:         make(chan model.Invoice, batchSize*workers),
	}
}

// Start launches background processing.
func (p *ExtractionProcessor) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(runCtx)
	}

	p.wg.Add(1)
	go p.dispatch(runCtx)
}

// Stop waits for all workers to finish and hands queued invoices back to the store.
func (p *ExtractionProcessor) Stop() {
	p.mu.Lock()
	if p.cancel == nil {
		p.mu.Unlock()
		return
	}
	p.cancel()
	p.cancel = nil
	p.mu.Unlock()

	p.wg.Wait()

	var queued []model.Invoice
	for invoice := range p.jobs {
		queued = append(queued, invoice)
	}
	p.release(queued)
}

func (p *ExtractionProcessor) dispatch(ctx context.Context) {
	defer p.wg.Done()
	defer close(p.jobs)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetchAndDispatch(ctx)
		}
	}
}

func (p *ExtractionProcessor) fetchAndDispatch(ctx context.Context) {
	invoices, err := p.facade.InvoicesForExtraction(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("claim invoices for extraction failed", slog.String("error", err.Error()))
		return
	}
	for i, invoice := range invoices {
		select {
		case <-ctx.Done():
			p.release(invoices[i:])
			return
		case p.jobs <- invoice:
		}
	}
}

func (p *ExtractionProcessor) release(invoices []model.Invoice) {
	if len(invoices) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	for _, invoice := range invoices {
		if err := p.facade.ReleaseExtraction(ctx, invoice.ID); err != nil {
			p.logger.Error("release invoice failed", slog.String("invoice_id", invoice.ID), slog.String("error", err.Error()))
		}
	}
}

func (p *ExtractionProcessor) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case invoice, ok := <-p.jobs:
			if !ok {
				return
			}
			p.handleInvoice(ctx, invoice)
		}
	}
}

func (p *ExtractionProcessor) handleInvoice(ctx context.Context, invoice model.Invoice) {
	data, err := p.facade.ExtractInvoice(ctx, invoice)
	if err != nil {
		var rateLimited extractor.TooManyRequestsError
		switch {
		case ctx.Err() != nil:
			p.logger.Info("extraction interrupted, releasing invoice", slog.String("invoice_id", invoice.ID))
			p.release([]model.Invoice{invoice})
		case errors.As(err, &rateLimited):
			p.record(metrics.OutcomeRateLimited)
			p.logger.Warn("extractor rate limited", slog.Duration("retry_after", rateLimited.RetryAfter))
			p.release([]model.Invoice{invoice})
			sleep(ctx, rateLimited.RetryAfter)
		case errors.Is(err, extractor.ErrNothingExtracted):
			p.record(metrics.OutcomeFailed)
			p.logger.Warn("no line items extracted, left for manual review", slog.String("invoice_id", invoice.ID))
		default:
			p.record(metrics.OutcomeFailed)
			p.logger.Error("invoice extraction failed",
				slog.String("invoice_id", invoice.ID),
				slog.String("file", invoice.FileName),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	if err := p.facade.CompleteExtraction(ctx, invoice.ID, data); err != nil {
		if ctx.Err() != nil {
			p.logger.Info("extraction interrupted, releasing invoice", slog.String("invoice_id", invoice.ID))
			p.release([]model.Invoice{invoice})
			return
		}
		p.record(metrics.OutcomeFailed)
		p.logger.Error("store extracted data failed", slog.String("invoice_id", invoice.ID), slog.String("error", err.Error()))
		return
	}
	p.record(metrics.OutcomeProcessed)
	p.logger.Info("invoice processed", slog.String("invoice_id", invoice.ID), slog.Int("fields", len(data)))
}

func (p *ExtractionProcessor) record(outcome string) {
	if p.metrics != nil {
		p.metrics.Extractions.WithLabelValues(outcome).Inc()
	}
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
