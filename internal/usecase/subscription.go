package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/polkiloo/invoicedesk/internal/adapter/razorpay"
	domainErrors "github.com/polkiloo/invoicedesk/internal/domain/errors"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
	"github.com/polkiloo/invoicedesk/internal/domain/repository"
)

// SubscriptionUseCase implements the purchase gate on the server side.
type SubscriptionUseCase struct {
	subscriptions repository.SubscriptionRepository
	payments      razorpay.Client
	logger        *slog.Logger
}

// NewSubscriptionUseCase constructs SubscriptionUseCase. payments may be nil when
// no provider is configured.
func NewSubscriptionUseCase(subscriptions repository.SubscriptionRepository, payments razorpay.Client, logger *slog.Logger) *SubscriptionUseCase {
	return &SubscriptionUseCase{subscriptions: subscriptions, payments: payments, logger: logger}
}

// Check reports whether uid has an active subscription. Missing records are inactive.
func (u *SubscriptionUseCase) Check(ctx context.Context, uid string) (model.SubscriptionStatus, error) {
	sub, err := u.subscriptions.GetByUser(ctx, uid)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return model.SubscriptionInactive, nil
		}
		return model.SubscriptionInactive, err
	}
	return sub.Status(), nil
}

// Create starts a provider subscription for uid and stores it as created.
// An already active subscription is never replaced.
func (u *SubscriptionUseCase) Create(ctx context.Context, uid string) (*model.Checkout, error) {
	if u.payments == nil {
		return nil, domainErrors.ErrFeatureDisabled
	}
	existing, err := u.subscriptions.GetByUser(ctx, uid)
	switch {
	case err == nil && existing.Status() == model.SubscriptionActive:
		return nil, fmt.Errorf("subscription %s: %w", existing.ProviderID, domainErrors.ErrAlreadyExists)
	case err != nil && !errors.Is(err, domainErrors.ErrNotFound):
		return nil, err
	}
	remote, err := u.payments.CreateSubscription(ctx, uid)
	if err != nil {
		return nil, err
	}
	if err := u.subscriptions.Upsert(ctx, model.Subscription{
		UserID:     uid,
		ProviderID: remote.ID,
		State:      model.SubscriptionStateCreated,
	}); err != nil {
		return nil, err
	}
	return &model.Checkout{SubscriptionID: remote.ID, KeyID: u.payments.KeyID()}, nil
}

// ConfirmPayment verifies the checkout signature and activates the caller's subscription.
func (u *SubscriptionUseCase) ConfirmPayment(ctx context.Context, uid string, confirmation model.PaymentConfirmation) error {
	if u.payments == nil {
		return domainErrors.ErrFeatureDisabled
	}
	if confirmation.UserID != "" && confirmation.UserID != uid {
		return domainErrors.ErrForbidden
	}
	if !u.payments.VerifySignature(confirmation.PaymentID, confirmation.SubscriptionID, confirmation.Signature) {
		return domainErrors.ErrInvalidSignature
	}

	sub, err := u.subscriptions.GetByUser(ctx, uid)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return domainErrors.ErrForbidden
		}
		return err
	}
	if sub.ProviderID != confirmation.SubscriptionID {
		return domainErrors.ErrForbidden
	}

	sub.State = model.SubscriptionStateActive
	sub.PaymentID = confirmation.PaymentID
	if err := u.subscriptions.Upsert(ctx, *sub); err != nil {
		return err
	}
	u.logger.Info("subscription activated",
		slog.String("user_id", uid),
		slog.String("subscription_id", sub.ProviderID),
	)
	return nil
}
