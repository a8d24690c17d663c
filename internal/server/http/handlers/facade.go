package handlers

import (
	"context"

	"github.com/polkiloo/invoicedesk/internal/adapter/tally"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
	pkgAuth "github.com/polkiloo/invoicedesk/internal/pkg/auth"
	"github.com/polkiloo/invoicedesk/internal/usecase"
)

// AuthFacade describes authentication capabilities required by handlers.
type AuthFacade interface {
	Register(ctx context.Context, email, password string) (*usecase.Session, error)
	Authenticate(ctx context.Context, email, password string) (*usecase.Session, error)
	SignInAnonymously(ctx context.Context) (*usecase.Session, error)
	SignInWithCustomToken(ctx context.Context, token string) (*usecase.Session, error)
	IssueCustomToken(ctx context.Context, uid string) (string, error)
	ParseToken(ctx context.Context, token string) (*pkgAuth.Claims, error)
	SignOut(ctx context.Context, claims *pkgAuth.Claims) error
	Account(ctx context.Context, uid string) (*model.Account, error)
	TouchProfile(ctx context.Context, identity model.Identity) (*model.Profile, error)
	Profile(ctx context.Context, uid string) (*model.Profile, error)
}

// InvoiceFacade encapsulates invoice operations exposed via HTTP.
type InvoiceFacade interface {
	UploadInvoice(ctx context.Context, ownerID string, file usecase.UploadFile) (*model.Invoice, error)
	Invoices(ctx context.Context, ownerID string) ([]model.Invoice, error)
	Invoice(ctx context.Context, ownerID, id string) (*model.Invoice, error)
	ReplaceInvoice(ctx context.Context, ownerID string, invoice model.Invoice) (*model.Invoice, error)
	DeleteInvoice(ctx context.Context, ownerID, id string) error
	WatchInvoices(ctx context.Context, ownerID string) (<-chan []model.Invoice, error)
	ExportInvoice(ctx context.Context, ownerID, id string) (*tally.Result, error)
}

// SubscriptionFacade provides subscription gate operations.
type SubscriptionFacade interface {
	CheckSubscription(ctx context.Context, uid string) (model.SubscriptionStatus, error)
	CreateSubscription(ctx context.Context, uid string) (*model.Checkout, error)
	ConfirmPayment(ctx context.Context, uid string, confirmation model.PaymentConfirmation) error
}

// HealthFacade reports backing store health.
type HealthFacade interface {
	Health(ctx context.Context) error
}

// InvoiceDeskFacade aggregates the full set of operations used across handlers.
type InvoiceDeskFacade interface {
	AuthFacade
	InvoiceFacade
	SubscriptionFacade
	HealthFacade
}
