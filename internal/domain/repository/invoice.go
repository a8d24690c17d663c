package repository

import (
	"context"

	"github.com/polkiloo/invoicedesk/internal/domain/model"
)

// InvoiceRepository describes persistence of invoice records scoped by owner.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice model.Invoice) (*model.Invoice, error)
	Get(ctx context.Context, ownerID, id string) (*model.Invoice, error)
	// ListByOwner returns invoices newest first by upload time.
	ListByOwner(ctx context.Context, ownerID string) ([]model.Invoice, error)
	// Replace overwrites file name, status and data of an existing record in one write.
	Replace(ctx context.Context, invoice model.Invoice) (*model.Invoice, error)
	Delete(ctx context.Context, ownerID, id string) error
	// Watch emits the full ordered collection of the owner on subscribe and after every change.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context, ownerID string) (<-chan []model.Invoice, error)

	ClaimForExtraction(ctx context.Context, limit int) ([]model.Invoice, error)
	CompleteExtraction(ctx context.Context, id string, data model.InvoiceData) error
	ReleaseExtraction(ctx context.Context, id string) error
}
