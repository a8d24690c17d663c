package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/polkiloo/invoicedesk/internal/domain/model"
	"github.com/polkiloo/invoicedesk/internal/server/http/dto"
)

// CheckSubscription asks the backend for the status of uid. Any answer other
// than active or inactive is an error.
func (c *Client) CheckSubscription(ctx context.Context, uid string) (model.SubscriptionStatus, error) {
	var out dto.CheckSubscriptionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/check-subscription", dto.CheckSubscriptionRequest{UserID: uid}, &out); err != nil {
		return model.SubscriptionUnknown, err
	}
	switch status := model.SubscriptionStatus(out.SubscriptionStatus); status {
	case model.SubscriptionActive, model.SubscriptionInactive:
		return status, nil
	default:
		return model.SubscriptionUnknown, fmt.Errorf("unexpected subscription status %q", out.SubscriptionStatus)
	}
}

func (c *Client) CreateSubscription(ctx context.Context) (*model.Checkout, error) {
	var out dto.CreateSubscriptionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/create-subscription", nil, &out); err != nil {
		return nil, err
	}
	return &model.Checkout{SubscriptionID: out.ID, KeyID: out.KeyID}, nil
}

func (c *Client) ConfirmPayment(ctx context.Context, confirmation model.PaymentConfirmation) error {
	in := dto.PaymentCallbackRequest{
		PaymentID:      confirmation.PaymentID,
		SubscriptionID: confirmation.SubscriptionID,
		Signature:      confirmation.Signature,
		UserID:         confirmation.UserID,
	}
	return c.doJSON(ctx, http.MethodPost, "/payment-callback", in, nil)
}
