// Package client holds the connections and configuration shared by the
// client-side components: session, gate, feed, editor, upload and dashboard.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/polkiloo/invoicedesk/internal/domain/model"
)

// ErrNotConfigured reports a missing or unusable connection.
var ErrNotConfigured = errors.New("client connection not configured")

// AuthProvider signs identities in and out and reports auth-state changes.
type AuthProvider interface {
	SignIn(ctx context.Context, email, password string) (model.Identity, error)
	SignUp(ctx context.Context, email, password string) (model.Identity, error)
	SignInAnonymously(ctx context.Context) (model.Identity, error)
	SignInWithCustomToken(ctx context.Context, token string) (model.Identity, error)
	SignOut(ctx context.Context) error
	// WatchAuthState delivers the current identity, nil when signed out, and
	// every later change until ctx is done.
	WatchAuthState(ctx context.Context) <-chan *model.Identity
}

// RecordStore reads and writes invoice and profile records.
type RecordStore interface {
	// WatchInvoices delivers full snapshots, newest first, until ctx is done.
	WatchInvoices(ctx context.Context) (<-chan []model.Invoice, error)
	ReplaceInvoice(ctx context.Context, invoice model.Invoice) (*model.Invoice, error)
	DeleteInvoice(ctx context.Context, id string) error
	UpsertProfile(ctx context.Context, identity model.Identity) error
}

// SubscriptionService talks to the subscription endpoints.
type SubscriptionService interface {
	CheckSubscription(ctx context.Context, uid string) (model.SubscriptionStatus, error)
	CreateSubscription(ctx context.Context) (*model.Checkout, error)
	ConfirmPayment(ctx context.Context, confirmation model.PaymentConfirmation) error
}

// Uploader submits invoice files for processing.
type Uploader interface {
	UploadInvoice(ctx context.Context, name string, content io.Reader) (*model.Invoice, error)
}

// HealthChecker probes the backend.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Connections is built once at start-up and shared by every component.
type Connections struct {
	Auth          AuthProvider
	Records       RecordStore
	Subscriptions SubscriptionService
	Uploads       Uploader
	Health        HealthChecker
}

// Validate reports which connections are missing.
func (c *Connections) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: no connections", ErrNotConfigured)
	}
	var missing []string
	if c.Auth == nil {
		missing = append(missing, "auth")
	}
	if c.Records == nil {
		missing = append(missing, "records")
	}
	if c.Subscriptions == nil {
		missing = append(missing, "subscriptions")
	}
	if c.Uploads == nil {
		missing = append(missing, "uploads")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrNotConfigured, strings.Join(missing, ", "))
	}
	return nil
}

// RemoteError is a non-2xx answer from the backend. Message carries the
// server supplied error text when there was one.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote status %d", e.Status)
	}
	return fmt.Sprintf("remote status %d: %s", e.Status, e.Message)
}
