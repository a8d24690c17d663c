package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/invoicedesk/internal/domain/errors"
	"github.com/polkiloo/invoicedesk/internal/domain/model"
	"github.com/polkiloo/invoicedesk/internal/server/http/dto"
)

// SubscriptionHandler serves the subscription gate endpoints.
type SubscriptionHandler struct {
	facade SubscriptionFacade
}

// NewSubscriptionHandler constructs SubscriptionHandler.
func NewSubscriptionHandler(facade SubscriptionFacade) *SubscriptionHandler {
	return &SubscriptionHandler{facade: facade}
}

// Check handles POST /check-subscription. Callers may only ask about themselves.
func (h *SubscriptionHandler) Check(c *gin.Context) {
	var req dto.CheckSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "user_id is required", err)
		return
	}
	if req.UserID != CurrentUserID(c) {
		respondError(c, http.StatusForbidden, "forbidden", nil)
		return
	}

	status, err := h.facade.CheckSubscription(c.Request.Context(), req.UserID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to check subscription", err)
		return
	}
	c.JSON(http.StatusOK, dto.CheckSubscriptionResponse{SubscriptionStatus: string(status)})
}

// Create handles POST /create-subscription.
func (h *SubscriptionHandler) Create(c *gin.Context) {
	checkout, err := h.facade.CreateSubscription(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrFeatureDisabled):
			respondError(c, http.StatusNotImplemented, "payments are not configured", nil)
		case errors.Is(err, domainErrors.ErrAlreadyExists):
			respondError(c, http.StatusConflict, "subscription is already active", nil)
		default:
			respondError(c, http.StatusBadGateway, "failed to create subscription", err)
		}
		return
	}
	c.JSON(http.StatusOK, dto.CreateSubscriptionResponse{ID: checkout.SubscriptionID, KeyID: checkout.KeyID})
}

// PaymentCallback handles POST /payment-callback.
func (h *SubscriptionHandler) PaymentCallback(c *gin.Context) {
	var req dto.PaymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid payment confirmation", err)
		return
	}

	err := h.facade.ConfirmPayment(c.Request.Context(), CurrentUserID(c), model.PaymentConfirmation{
		PaymentID:      req.PaymentID,
		SubscriptionID: req.SubscriptionID,
		Signature:      req.Signature,
		UserID:         req.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, domainErrors.ErrInvalidSignature):
			respondError(c, http.StatusBadRequest, "invalid payment signature", nil)
		case errors.Is(err, domainErrors.ErrForbidden):
			respondError(c, http.StatusForbidden, "forbidden", nil)
		case errors.Is(err, domainErrors.ErrFeatureDisabled):
			respondError(c, http.StatusNotImplemented, "payments are not configured", nil)
		default:
			respondError(c, http.StatusInternalServerError, "failed to confirm payment", err)
		}
		return
	}
	c.JSON(http.StatusOK, dto.StatusResponse{Status: "success"})
}
