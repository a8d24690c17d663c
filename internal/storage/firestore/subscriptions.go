package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domainErrors "github.com/polkiloo/invoicedesk/internal/domain/errors"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
)

type subscriptionDoc struct {
	ProviderID string    `firestore:"providerId"`
	State      string    `firestore:"state"`
	PaymentID  string    `firestore:"paymentId"`
	CreatedAt  time.Time `firestore:"createdAt"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
}

func (d subscriptionDoc) model(uid string) *model.Subscription {
	return &model.Subscription{
		UserID:     uid,
		ProviderID: d.ProviderID,
		State:      model.SubscriptionState(d.State),
		PaymentID:  d.PaymentID,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func (r *subscriptionRepository) GetByUser(ctx context.Context, uid string) (*model.Subscription, error) {
	snap, err := r.s.subscriptions().Doc(uid).Get(ctx)
	if err != nil {
		return nil, translateError(err)
	}
	var doc subscriptionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}
	return doc.model(uid), nil
}

// Upsert writes subscriptions/{uid}. A provider id already bound to another user is rejected.
func (r *subscriptionRepository) Upsert(ctx context.Context, sub model.Subscription) error {
	ref := r.s.subscriptions().Doc(sub.UserID)
	err := r.s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		owners, err := tx.Documents(r.s.subscriptions().Where("providerId", "==", sub.ProviderID).Limit(2)).GetAll()
		if err != nil {
			return err
		}
		for _, owner := range owners {
			if owner.Ref.ID != sub.UserID {
				return domainErrors.ErrAlreadyExists
			}
		}

		now := r.s.now().UTC()
		doc := subscriptionDoc{
			ProviderID: sub.ProviderID,
			State:      string(sub.State),
			PaymentID:  sub.PaymentID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		existing, err := tx.Get(ref)
		switch {
		case err == nil:
			var prev subscriptionDoc
			if err := existing.DataTo(&prev); err == nil && !prev.CreatedAt.IsZero() {
				doc.CreatedAt = prev.CreatedAt
			}
		case status.Code(err) != codes.NotFound:
			return err
		}
		return tx.Set(ref, doc)
	})
	return translateError(err)
}
