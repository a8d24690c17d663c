package repository

import (
	"context"

	"github.com/polkiloo/invoicedesk/internal/domain/model"
)

// SubscriptionRepository persists payment provider subscriptions per user.
type SubscriptionRepository interface {
	GetByUser(ctx context.Context, uid string) (*model.Subscription, error)
	Upsert(ctx context.Context, sub model.Subscription) error
}
