package app

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/invoicedesk/internal/adapter/extractor"
	"github.com/polkiloo/invoicedesk/internal/adapter/tally"
	domainErrors "github.com/polkiloo/invoicedesk/internal/domain/errors"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
	"github.com/polkiloo/invoicedesk/internal/domain/repository"
	"github.com/polkiloo/invoicedesk/internal/metrics"
	pkgAuth "github.com/polkiloo/invoicedesk/internal/pkg/auth"
	"github.com/polkiloo/invoicedesk/internal/usecase"
)

// FacadeParams lists the collaborators of InvoiceDeskFacade. Extractor and
// Exporter are nil when the integration is not configured.
type FacadeParams struct {
	fx.In

	Auth          *usecase.AuthUseCase
	Profiles      *usecase.ProfileUseCase
	Invoices      *usecase.InvoiceUseCase
	Subscriptions *usecase.SubscriptionUseCase
	Extractor     extractor.Client `optional:"true"`
	Exporter      tally.Exporter   `optional:"true"`
	Store         repository.Factory
	Metrics       *metrics.Collectors `optional:"true"`
	Logger        *slog.Logger
}

// InvoiceDeskFacade is the single entry point used by HTTP handlers and the worker.
type InvoiceDeskFacade struct {
	auth          *usecase.AuthUseCase
	profiles      *usecase.ProfileUseCase
	invoices      *usecase.InvoiceUseCase
	subscriptions *usecase.SubscriptionUseCase
	extractor     extractor.Client
	exporter      tally.Exporter
	store         repository.Factory
	metrics       *metrics.Collectors
	logger        *slog.Logger
}

func NewInvoiceDeskFacade(p FacadeParams) *InvoiceDeskFacade {
	return &InvoiceDeskFacade{
		auth:          p.Auth,
		profiles:      p.Profiles,
		invoices:      p.Invoices,
		subscriptions: p.Subscriptions,
		extractor:     p.Extractor,
		exporter:      p.Exporter,
		store:         p.Store,
		metrics:       p.Metrics,
		logger:        p.Logger,
	}
}

func (f *InvoiceDeskFacade) Register(ctx context.Context, email, password string) (*usecase.Session, error) {
	return f.auth.Register(ctx, email, password)
}

func (f *InvoiceDeskFacade) Authenticate(ctx context.Context, email, password string) (*usecase.Session, error) {
	return f.auth.Authenticate(ctx, email, password)
}

func (f *InvoiceDeskFacade) SignInAnonymously(ctx context.Context) (*usecase.Session, error) {
	return f.auth.SignInAnonymously(ctx)
}

func (f *InvoiceDeskFacade) SignInWithCustomToken(ctx context.Context, token string) (*usecase.Session, error) {
	return f.auth.SignInWithCustomToken(ctx, token)
}

func (f *InvoiceDeskFacade) IssueCustomToken(ctx context.Context, uid string) (string, error) {
	return f.auth.IssueCustomToken(ctx, uid)
}

func (f *InvoiceDeskFacade) ParseToken(ctx context.Context, token string) (*pkgAuth.Claims, error) {
	return f.auth.ParseToken(ctx, token)
}

func (f *InvoiceDeskFacade) SignOut(ctx context.Context, claims *pkgAuth.Claims) error {
	return f.auth.SignOut(ctx, claims)
}

func (f *InvoiceDeskFacade) Account(ctx context.Context, uid string) (*model.Account, error) {
	return f.auth.GetByID(ctx, uid)
}

func (f *InvoiceDeskFacade) TouchProfile(ctx context.Context, identity model.Identity) (*model.Profile, error) {
	return f.profiles.Touch(ctx, identity)
}

func (f *InvoiceDeskFacade) Profile(ctx context.Context, uid string) (*model.Profile, error) {
	return f.profiles.Get(ctx, uid)
}

func (f *InvoiceDeskFacade) UploadInvoice(ctx context.Context, ownerID string, file usecase.UploadFile) (*model.Invoice, error) {
	invoice, err := f.invoices.Upload(ctx, ownerID, file)
	if err != nil {
		return nil, err
	}
	if f.metrics != nil {
		f.metrics.InvoicesUploaded.Inc()
	}
	return invoice, nil
}

func (f *InvoiceDeskFacade) Invoices(ctx context.Context, ownerID string) ([]model.Invoice, error) {
	return f.invoices.List(ctx, ownerID)
}

func (f *InvoiceDeskFacade) Invoice(ctx context.Context, ownerID, id string) (*model.Invoice, error) {
	return f.invoices.Get(ctx, ownerID, id)
}

func (f *InvoiceDeskFacade) ReplaceInvoice(ctx context.Context, ownerID string, invoice model.Invoice) (*model.Invoice, error) {
	return f.invoices.Replace(ctx, ownerID, invoice)
}

func (f *InvoiceDeskFacade) DeleteInvoice(ctx context.Context, ownerID, id string) error {
	return f.invoices.Delete(ctx, ownerID, id)
}

// WatchInvoices streams snapshots of the owner's invoices and tracks the number
// of open streams.
func (f *InvoiceDeskFacade) WatchInvoices(ctx context.Context, ownerID string) (<-chan []model.Invoice, error) {
	updates, err := f.invoices.Watch(ctx, ownerID)
	if err != nil || f.metrics == nil {
		return updates, err
	}

	out := make(chan []model.Invoice)
	f.metrics.LiveSubscribers.Inc()
	go func() {
		defer f.metrics.LiveSubscribers.Dec()
		defer close(out)
		for snapshot := range updates {
			select {
			case out <- snapshot:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// ExportInvoice pushes a processed invoice into Tally.
func (f *InvoiceDeskFacade) ExportInvoice(ctx context.Context, ownerID, id string) (*tally.Result, error) {
	if f.exporter == nil {
		return nil, domainErrors.ErrFeatureDisabled
	}
	invoice, err := f.invoices.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	result, err := f.exporter.Export(ctx, *invoice)
	if err != nil {
		return nil, err
	}
	f.logger.Info("invoice exported to tally",
		slog.String("invoice_id", id),
		slog.Int("vouchers", result.Vouchers),
	)
	return result, nil
}

func (f *InvoiceDeskFacade) CheckSubscription(ctx context.Context, uid string) (model.SubscriptionStatus, error) {
	return f.subscriptions.Check(ctx, uid)
}

func (f *InvoiceDeskFacade) CreateSubscription(ctx context.Context, uid string) (*model.Checkout, error) {
	return f.subscriptions.Create(ctx, uid)
}

func (f *InvoiceDeskFacade) ConfirmPayment(ctx context.Context, uid string, confirmation model.PaymentConfirmation) error {
	return f.subscriptions.ConfirmPayment(ctx, uid, confirmation)
}

// Health pings the record store.
func (f *InvoiceDeskFacade) Health(ctx context.Context) error {
	return f.store.HealthCheck(ctx)
}

func (f *InvoiceDeskFacade) InvoicesForExtraction(ctx context.Context, limit int) ([]model.Invoice, error) {
	return f.invoices.ClaimForExtraction(ctx, limit)
}

// ExtractInvoice loads the stored file and runs it through the extraction service.
func (f *InvoiceDeskFacade) ExtractInvoice(ctx context.Context, invoice model.Invoice) (model.InvoiceData, error) {
	if f.extractor == nil {
		return nil, domainErrors.ErrFeatureDisabled
	}
	content, err := f.invoices.ReadFile(ctx, invoice)
	if err != nil {
		return nil, err
	}
	return f.extractor.Extract(ctx, invoice.FileName, content)
}

func (f *InvoiceDeskFacade) CompleteExtraction(ctx context.Context, id string, data model.InvoiceData) error {
	return f.invoices.CompleteExtraction(ctx, id, data)
}

func (f *InvoiceDeskFacade) ReleaseExtraction(ctx context.Context, id string) error {
	return f.invoices.ReleaseExtraction(ctx, id)
}
