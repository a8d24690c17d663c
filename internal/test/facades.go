package test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/polkiloo/invoicedesk/internal/adapter/tally"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
	pkgAuth "github.com/polkiloo/invoicedesk/internal/pkg/auth"
	"github.com/polkiloo/invoicedesk/internal/usecase"
)

// AuthFacadeStub provides controllable behaviour for auth endpoints.
type AuthFacadeStub struct {
	RegisterFn     func(context.Context, string, string) (*usecase.Session, error)
	AuthenticateFn func(context.Context, string, string) (*usecase.Session, error)
	AnonymousFn    func(context.Context) (*usecase.Session, error)
	CustomFn       func(context.Context, string) (*usecase.Session, error)
	IssueCustomFn  func(context.Context, string) (string, error)
	ParseFn        func(context.Context, string) (*pkgAuth.Claims, error)
	SignOutFn      func(context.Context, *pkgAuth.Claims) error
	AccountFn      func(context.Context, string) (*model.Account, error)
	TouchFn        func(context.Context, model.Identity) (*model.Profile, error)
	ProfileFn      func(context.Context, string) (*model.Profile, error)
}

func stubSession(uid, email string, anonymous bool) *usecase.Session {
	return &usecase.Session{
		Identity: model.Identity{UID: uid, Email: email, Anonymous: anonymous},
		Token:    "token",
	}
}

// Register delegates to provided function or returns a default session.
func (s AuthFacadeStub) Register(ctx context.Context, email, password string) (*usecase.Session, error) {
	if s.RegisterFn != nil {
		return s.RegisterFn(ctx, email, password)
	}
	return stubSession("uid-1", email, false), nil
}

// Authenticate delegates to provided function or returns a default session.
func (s AuthFacadeStub) Authenticate(ctx context.Context, email, password string) (*usecase.Session, error) {
	if s.AuthenticateFn != nil {
		return s.AuthenticateFn(ctx, email, password)
	}
	return stubSession("uid-1", email, false), nil
}

// SignInAnonymously delegates to provided function or returns an anonymous session.
func (s AuthFacadeStub) SignInAnonymously(ctx context.Context) (*usecase.Session, error) {
	if s.AnonymousFn != nil {
		return s.AnonymousFn(ctx)
	}
	return stubSession("anon-1", "", true), nil
}

// SignInWithCustomToken delegates to provided function or returns a default session.
func (s AuthFacadeStub) SignInWithCustomToken(ctx context.Context, token string) (*usecase.Session, error) {
	if s.CustomFn != nil {
		return s.CustomFn(ctx, token)
	}
	return stubSession("custom-1", "", false), nil
}

// IssueCustomToken delegates to provided function or returns a fixed token.
func (s AuthFacadeStub) IssueCustomToken(ctx context.Context, uid string) (string, error) {
	if s.IssueCustomFn != nil {
		return s.IssueCustomFn(ctx, uid)
	}
	return "custom:" + uid + ":jti", nil
}

// ParseToken accepts any token as uid "user-1" unless overridden.
func (s AuthFacadeStub) ParseToken(ctx context.Context, token string) (*pkgAuth.Claims, error) {
	if s.ParseFn != nil {
		return s.ParseFn(ctx, token)
	}
	return &pkgAuth.Claims{UID: "user-1", TokenUse: pkgAuth.TokenUseSession}, nil
}

// SignOut delegates to provided function.
func (s AuthFacadeStub) SignOut(ctx context.Context, claims *pkgAuth.Claims) error {
	if s.SignOutFn != nil {
		return s.SignOutFn(ctx, claims)
	}
	return nil
}

// Account delegates to provided function or echoes the uid.
func (s AuthFacadeStub) Account(ctx context.Context, uid string) (*model.Account, error) {
	if s.AccountFn != nil {
		return s.AccountFn(ctx, uid)
	}
	return &model.Account{UID: uid}, nil
}

// TouchProfile delegates to provided function or echoes the identity.
func (s AuthFacadeStub) TouchProfile(ctx context.Context, identity model.Identity) (*model.Profile, error) {
	if s.TouchFn != nil {
		return s.TouchFn(ctx, identity)
	}
	return &model.Profile{UID: identity.UID, Email: identity.Email, LastLogin: time.Unix(0, 0)}, nil
}

// Profile delegates to provided function or returns an empty profile.
func (s AuthFacadeStub) Profile(ctx context.Context, uid string) (*model.Profile, error) {
	if s.ProfileFn != nil {
		return s.ProfileFn(ctx, uid)
	}
	return &model.Profile{UID: uid}, nil
}

// InvoiceFacadeStub simulates invoice operations.
type InvoiceFacadeStub struct {
	UploadFn  func(context.Context, string, usecase.UploadFile) (*model.Invoice, error)
	ListFn    func(context.Context, string) ([]model.Invoice, error)
	GetFn     func(context.Context, string, string) (*model.Invoice, error)
	ReplaceFn func(context.Context, string, model.Invoice) (*model.Invoice, error)
	DeleteFn  func(context.Context, string, string) error
	WatchFn   func(context.Context, string) (<-chan []model.Invoice, error)
	ExportFn  func(context.Context, string, string) (*tally.Result, error)
}

// UploadInvoice delegates to provided function or returns a pending invoice.
func (s InvoiceFacadeStub) UploadInvoice(ctx context.Context, ownerID string, file usecase.UploadFile) (*model.Invoice, error) {
	if s.UploadFn != nil {
		return s.UploadFn(ctx, ownerID, file)
	}
	return &model.Invoice{ID: "inv-1", OwnerID: ownerID, FileName: file.Name, Status: model.InvoiceStatusPending, Data: model.InvoiceData{}}, nil
}

// Invoices delegates to provided function or returns a single invoice.
func (s InvoiceFacadeStub) Invoices(ctx context.Context, ownerID string) ([]model.Invoice, error) {
	if s.ListFn != nil {
		return s.ListFn(ctx, ownerID)
	}
	return []model.Invoice{{ID: "inv-1", OwnerID: ownerID, Status: model.InvoiceStatusPending}}, nil
}

// Invoice delegates to provided function or returns the requested id.
func (s InvoiceFacadeStub) Invoice(ctx context.Context, ownerID, id string) (*model.Invoice, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, ownerID, id)
	}
	return &model.Invoice{ID: id, OwnerID: ownerID, Status: model.InvoiceStatusPending}, nil
}

// ReplaceInvoice delegates to provided function or echoes the record.
func (s InvoiceFacadeStub) ReplaceInvoice(ctx context.Context, ownerID string, invoice model.Invoice) (*model.Invoice, error) {
	if s.ReplaceFn != nil {
		return s.ReplaceFn(ctx, ownerID, invoice)
	}
	invoice.OwnerID = ownerID
	return &invoice, nil
}

// DeleteInvoice delegates to provided function.
func (s InvoiceFacadeStub) DeleteInvoice(ctx context.Context, ownerID, id string) error {
	if s.DeleteFn != nil {
		return s.DeleteFn(ctx, ownerID, id)
	}
	return nil
}

// WatchInvoices delegates to provided function or emits one empty snapshot.
func (s InvoiceFacadeStub) WatchInvoices(ctx context.Context, ownerID string) (<-chan []model.Invoice, error) {
	if s.WatchFn != nil {
		return s.WatchFn(ctx, ownerID)
	}
	ch := make(chan []model.Invoice, 1)
	ch <- []model.Invoice{}
	close(ch)
	return ch, nil
}

// ExportInvoice delegates to provided function or reports one voucher.
func (s InvoiceFacadeStub) ExportInvoice(ctx context.Context, ownerID, id string) (*tally.Result, error) {
	if s.ExportFn != nil {
		return s.ExportFn(ctx, ownerID, id)
	}
	return &tally.Result{Ledger: "Invoices", Vouchers: 1}, nil
}

// SubscriptionFacadeStub simulates the subscription gate.
type SubscriptionFacadeStub struct {
	CheckFn   func(context.Context, string) (model.SubscriptionStatus, error)
	CreateFn  func(context.Context, string) (*model.Checkout, error)
	ConfirmFn func(context.Context, string, model.PaymentConfirmation) error
}

// CheckSubscription delegates to provided function or reports active.
func (s SubscriptionFacadeStub) CheckSubscription(ctx context.Context, uid string) (model.SubscriptionStatus, error) {
	if s.CheckFn != nil {
		return s.CheckFn(ctx, uid)
	}
	return model.SubscriptionActive, nil
}

// CreateSubscription delegates to provided function or returns a fixed checkout.
func (s SubscriptionFacadeStub) CreateSubscription(ctx context.Context, uid string) (*model.Checkout, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, uid)
	}
	return &model.Checkout{SubscriptionID: "sub_1", KeyID: "rzp_test"}, nil
}

// ConfirmPayment delegates to provided function.
func (s SubscriptionFacadeStub) ConfirmPayment(ctx context.Context, uid string, confirmation model.PaymentConfirmation) error {
	if s.ConfirmFn != nil {
		return s.ConfirmFn(ctx, uid, confirmation)
	}
	return nil
}

// InvoiceDeskFacadeStub combines every handler facade.
type InvoiceDeskFacadeStub struct {
	AuthFacadeStub
	InvoiceFacadeStub
	SubscriptionFacadeStub
	HealthErr error
}

// Health returns the configured error.
func (s InvoiceDeskFacadeStub) Health(context.Context) error {
	return s.HealthErr
}

// WorkerFacadeStub mimics worker interactions with the application facade.
type WorkerFacadeStub struct {
	Batches    [][]model.Invoice
	ClaimFn    func(context.Context, int) ([]model.Invoice, error)
	ExtractFn  func(context.Context, model.Invoice) (model.InvoiceData, error)
	CompleteFn func(context.Context, string, model.InvoiceData) error
	Completed  map[string]model.InvoiceData
	Released   []string
	mu         sync.Mutex
	claimCalls int32
}

// Lock exposes internal mutex for external synchronization.
func (s *WorkerFacadeStub) Lock() { s.mu.Lock() }

// Unlock releases previously acquired lock.
func (s *WorkerFacadeStub) Unlock() { s.mu.Unlock() }

// InvoicesForExtraction returns batches from configured queue.
func (s *WorkerFacadeStub) InvoicesForExtraction(ctx context.Context, limit int) ([]model.Invoice, error) {
	if s.ClaimFn != nil {
		return s.ClaimFn(ctx, limit)
	}
	call := atomic.AddInt32(&s.claimCalls, 1)
	if int(call) <= len(s.Batches) {
		return s.Batches[call-1], nil
	}
	return nil, nil
}

// ExtractInvoice returns configured data or a single text field.
func (s *WorkerFacadeStub) ExtractInvoice(ctx context.Context, invoice model.Invoice) (model.InvoiceData, error) {
	if s.ExtractFn != nil {
		return s.ExtractFn(ctx, invoice)
	}
	return model.InvoiceData{"fileName": model.Text(invoice.FileName)}, nil
}

// CompleteExtraction records stored data.
func (s *WorkerFacadeStub) CompleteExtraction(ctx context.Context, id string, data model.InvoiceData) error {
	if s.CompleteFn != nil {
		return s.CompleteFn(ctx, id, data)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Completed == nil {
		s.Completed = make(map[string]model.InvoiceData)
	}
	s.Completed[id] = data
	return nil
}

// ReleaseExtraction records released ids.
func (s *WorkerFacadeStub) ReleaseExtraction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Released = append(s.Released, id)
	return nil
}
