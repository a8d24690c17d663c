package model

import "time"

// SubscriptionStatus is the client-facing view of a subscription.
type SubscriptionStatus string

const (
	SubscriptionUnknown  SubscriptionStatus = "unknown"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionInactive SubscriptionStatus = "inactive"
)

// SubscriptionState is the lifecycle of a subscription at the payment provider.
type SubscriptionState string

const (
	SubscriptionStateCreated SubscriptionState = "created"
	SubscriptionStateActive  SubscriptionState = "active"
)

// Subscription links a user to a payment provider subscription.
type Subscription struct {
	UserID     string
	ProviderID string
	State      SubscriptionState
	PaymentID  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Status collapses the provider state into active or inactive.
func (s Subscription) Status() SubscriptionStatus {
	if s.State == SubscriptionStateActive {
		return SubscriptionActive
	}
	return SubscriptionInactive
}

// Checkout carries what the payment widget needs to start a purchase.
type Checkout struct {
	SubscriptionID string
	KeyID          string
}

// PaymentConfirmation is the result handed back by the payment widget.
type PaymentConfirmation struct {
	PaymentID      string
	SubscriptionID string
	Signature      string
	UserID         string
}
