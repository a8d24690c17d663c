package dto

// CheckSubscriptionRequest asks for the status of one user.
type CheckSubscriptionRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// CheckSubscriptionResponse carries "active" or "inactive".
type CheckSubscriptionResponse struct {
	SubscriptionStatus string `json:"subscription_status"`
}

// CreateSubscriptionResponse starts the checkout widget.
type CreateSubscriptionResponse struct {
	ID    string `json:"id"`
	KeyID string `json:"key_id"`
}

// PaymentCallbackRequest is posted after the checkout widget succeeds.
type PaymentCallbackRequest struct {
	PaymentID      string `json:"razorpay_payment_id" binding:"required"`
	SubscriptionID string `json:"razorpay_subscription_id" binding:"required"`
	Signature      string `json:"razorpay_signature" binding:"required"`
	UserID         string `json:"user_id"`
}

// StatusResponse is a generic acknowledgement.
type StatusResponse struct {
	Status string `json:"status"`
}
