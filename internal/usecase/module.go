package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/invoicedesk/internal/config"
	"github.com/polkiloo/invoicedesk/internal/domain/repository"
	"github.com/polkiloo/invoicedesk/internal/storage/blob"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	NewAuthUseCase,
	NewProfileUseCase,
	newInvoiceUseCase,
	NewSubscriptionUseCase,
)

type invoiceParams struct {
	fx.In

	Invoices repository.InvoiceRepository
	Blobs    blob.Store
	Config   *config.Config
	Logger   *slog.Logger
}

func newInvoiceUseCase(p invoiceParams) *InvoiceUseCase {
	return NewInvoiceUseCase(p.Invoices, p.Blobs, p.Config.UploadMaxBytes, p.Logger)
}
