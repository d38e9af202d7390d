package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"ekkoscope/internal/billing"
	apperrors "ekkoscope/internal/errors"
	"ekkoscope/internal/logger"
	"ekkoscope/internal/models"
	"ekkoscope/internal/sentinel"
	"ekkoscope/internal/services"
)

// BillingHandler handles Stripe checkout and webhook requests.
type BillingHandler struct {
	billing         *billing.Client
	purchaseService services.PurchaseServicer
	businessService services.BusinessServicer
	sentinel        *sentinel.Client
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(
	billingClient *billing.Client,
	purchaseService services.PurchaseServicer,
	businessService services.BusinessServicer,
	sentinelClient *sentinel.Client,
) *BillingHandler {
	return &BillingHandler{
		billing:         billingClient,
		purchaseService: purchaseService,
		businessService: businessService,
		sentinel:        sentinelClient,
	}
}

// CheckoutRequest selects the product and business to purchase for.
type CheckoutRequest struct {
	BusinessID uint   `json:"business_id" binding:"required"`
	Kind       string `json:"kind" binding:"required,purchase_kind"`
	SuccessURL string `json:"success_url" binding:"required,url"`
	CancelURL  string `json:"cancel_url" binding:"required,url"`
}

// CreateCheckout opens a Stripe checkout session and records the pending
// purchase.
func (h *BillingHandler) CreateCheckout(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if !h.billing.Enabled() {
		respondWithError(c, apperrors.ErrBillingNotConfigured)
		return
	}

	// The caller must own the business they are buying for.
	if _, err := h.businessService.GetBusinessByID(userID, req.BusinessID); err != nil {
		respondWithError(c, err)
		return
	}

	kind := models.PurchaseKind(req.Kind)
	session, err := h.billing.CreateCheckoutSession(userID, req.BusinessID, kind, req.SuccessURL, req.CancelURL)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if _, err := h.purchaseService.CreatePending(userID, req.BusinessID, kind, session.ID); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"checkout_url": session.URL,
		"session_id":   session.ID,
	})
}

// Webhook processes Stripe events. The body must be read raw: signature
// verification covers the exact payload bytes.
func (h *BillingHandler) Webhook(c *gin.Context) {
	if !h.billing.Enabled() {
		respondWithError(c, apperrors.ErrBillingNotConfigured)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<16))
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInvalidWebhook, err))
		return
	}

	event, err := h.billing.VerifyEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	log := logger.Get()
	switch event.Type {
	case billing.EventCheckoutCompleted:
		completion, err := billing.DecodeCheckoutCompletion(event)
		if err != nil {
			respondWithError(c, err)
			return
		}
		purchase, err := h.purchaseService.CompleteCheckout(completion)
		if err != nil {
			respondWithError(c, err)
			return
		}
		h.sentinel.LogPayment(0, "usd", "ekkoscope_"+string(purchase.Kind))
		log.Infow("Stripe checkout completed",
			"session_id", completion.SessionID,
			"purchase_id", purchase.ID,
			"kind", purchase.Kind,
		)

	case billing.EventSubscriptionDeleted:
		subscriptionID, err := billing.DecodeSubscriptionID(event)
		if err != nil {
			respondWithError(c, err)
			return
		}
		if err := h.purchaseService.DeactivateSubscription(subscriptionID); err != nil {
			respondWithError(c, err)
			return
		}
		log.Infow("Stripe subscription cancelled", "subscription_id", subscriptionID)

	default:
		log.Debugw("Ignoring Stripe event", "type", event.Type)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
