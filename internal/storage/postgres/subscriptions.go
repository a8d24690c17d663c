package postgres

import (
	"context"

	"github.com/polkiloo/invoicedesk/internal/domain/model"
)

func (r *subscriptionRepository) GetByUser(ctx context.Context, uid string) (*model.Subscription, error) {
	const query = `SELECT user_id, provider_id, state, payment_id, created_at, updated_at FROM subscriptions WHERE user_id=$1`
	var sub model.Subscription
	err := r.storage.pool.QueryRow(ctx, query, uid).Scan(&sub.UserID, &sub.ProviderID, &sub.State, &sub.PaymentID, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	return &sub, nil
}

func (r *subscriptionRepository) Upsert(ctx context.Context, sub model.Subscription) error {
	const query = `INSERT INTO subscriptions (user_id, provider_id, state, payment_id) VALUES ($1, $2, $3, $4)
                   ON CONFLICT (user_id) DO UPDATE
                   SET provider_id = EXCLUDED.provider_id,
                       state = EXCLUDED.state,
                       payment_id = EXCLUDED.payment_id,
                       updated_at = NOW()`
	_, err := r.storage.pool.Exec(ctx, query, sub.UserID, sub.ProviderID, sub.State, sub.PaymentID)
	return translateError(err)
}
