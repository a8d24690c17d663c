// Package gate decides whether the signed-in identity may use the application.
package gate

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/polkiloo/invoicedesk/internal/client"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
)

// ErrNoIdentity is returned by purchase calls made while signed out.
var ErrNoIdentity = errors.New("no signed-in identity")

// Gate caches the subscription status of the current identity.
type Gate struct {
	subs   client.SubscriptionService
	logger *slog.Logger

	mu     sync.Mutex
	uid    string
	status model.SubscriptionStatus
}

func New(subs client.SubscriptionService, logger *slog.Logger) *Gate {
	return &Gate{subs: subs, logger: logger, status: model.SubscriptionUnknown}
}

// Check asks the backend for the status of uid. Anything but a clean active
// answer is inactive.
func (g *Gate) Check(ctx context.Context, uid string) model.SubscriptionStatus {
	status, err := g.subs.CheckSubscription(ctx, uid)
	if err != nil {
		g.logger.Warn("subscription check failed", slog.String("uid", uid), slog.Any("error", err))
		return model.SubscriptionInactive
	}
	if status != model.SubscriptionActive {
		return model.SubscriptionInactive
	}
	return model.SubscriptionActive
}

// Resolve returns the status for identity, checking only when the uid
// differs from the cached one. A nil identity resets the cache.
func (g *Gate) Resolve(ctx context.Context, identity *model.Identity) model.SubscriptionStatus {
	g.mu.Lock()
	if identity == nil {
		g.uid, g.status = "", model.SubscriptionUnknown
		g.mu.Unlock()
		return model.SubscriptionUnknown
	}
	uid := identity.UID
	if g.uid == uid && g.status != model.SubscriptionUnknown {
		status := g.status
		g.mu.Unlock()
		return status
	}
	g.uid, g.status = uid, model.SubscriptionUnknown
	g.mu.Unlock()

	status := g.Check(ctx, uid)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.uid == uid {
		g.status = status
	}
	return status
}

// Status is the cached status of the current identity.
func (g *Gate) Status() model.SubscriptionStatus {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// BeginPurchase creates a provider subscription for the checkout widget.
func (g *Gate) BeginPurchase(ctx context.Context) (*model.Checkout, error) {
	if g.currentUID() == "" {
		return nil, ErrNoIdentity
	}
	return g.subs.CreateSubscription(ctx)
}

// CompletePurchase hands the widget result to the backend, then drops the
// cached status and checks again.
func (g *Gate) CompletePurchase(ctx context.Context, confirmation model.PaymentConfirmation) (model.SubscriptionStatus, error) {
	uid := g.currentUID()
	if uid == "" {
		return model.SubscriptionUnknown, ErrNoIdentity
	}
	if confirmation.UserID == "" {
		confirmation.UserID = uid
	}
	if err := g.subs.ConfirmPayment(ctx, confirmation); err != nil {
		g.logger.Error("payment confirmation failed", slog.String("uid", uid), slog.Any("error", err))
		return g.Status(), err
	}

	g.mu.Lock()
	if g.uid == uid {
		g.status = model.SubscriptionUnknown
	}
	g.mu.Unlock()
	return g.Resolve(ctx, &model.Identity{UID: uid}), nil
}

func (g *Gate) currentUID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.uid
}
