package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"ekkoscope/internal/billing"
	apperrors "ekkoscope/internal/errors"
	"ekkoscope/internal/logger"
	"ekkoscope/internal/models"
	"ekkoscope/internal/scheduler"
)

// purchaseService records Stripe checkout outcomes and manages entitlements.
type purchaseService struct {
	db *gorm.DB
}

// NewPurchaseService creates a new PurchaseServicer.
func NewPurchaseService(db *gorm.DB) PurchaseServicer {
	return &purchaseService{db: db}
}

// CreatePending records a purchase awaiting checkout completion.
func (s *purchaseService) CreatePending(userID, businessID uint, kind models.PurchaseKind, checkoutSessionID string) (*models.Purchase, error) {
	purchase := &models.Purchase{
		UserID:                  userID,
		BusinessID:              businessID,
		Kind:                    kind,
		Status:                  models.PurchaseStatusPending,
		StripeCheckoutSessionID: checkoutSessionID,
	}
	if err := s.db.Create(purchase).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return purchase, nil
}

// CompleteCheckout marks a purchase as paid from a completed checkout
// session. Ongoing purchases also activate the business subscription and
// schedule its first audit. The handler is idempotent: a session already
// marked paid is left alone.
func (s *purchaseService) CompleteCheckout(completion *billing.CheckoutCompletion) (*models.Purchase, error) {
	log := logger.Get()

	var purchase models.Purchase
	err := s.db.Where("stripe_checkout_session_id = ?", completion.SessionID).First(&purchase).Error
	switch {
	case err == nil:
		if purchase.Status == models.PurchaseStatusPaid {
			return &purchase, nil
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		// Webhook arrived before (or without) a local pending record.
		purchase = models.Purchase{
			UserID:                  completion.UserID,
			BusinessID:              completion.BusinessID,
			Kind:                    completion.Kind,
			StripeCheckoutSessionID: completion.SessionID,
		}
	default:
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	now := time.Now().UTC()
	purchase.Status = models.PurchaseStatusPaid
	purchase.StripePaymentIntentID = completion.PaymentIntentID
	purchase.CompletedAt = &now
	if err := s.db.Save(&purchase).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if purchase.Kind == models.PurchaseKindOngoing {
		nextAudit := scheduler.NextAuditDate(now)
		updates := map[string]interface{}{
			"subscription_active":    true,
			"plan":                   models.PlanOngoing,
			"stripe_subscription_id": completion.SubscriptionID,
			"next_audit_at":          nextAudit,
		}
		if err := s.db.Model(&models.Business{}).Where("id = ?", purchase.BusinessID).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		log.Infow("Subscription activated",
			"business_id", purchase.BusinessID,
			"next_audit_at", nextAudit,
		)
	}

	log.Infow("Purchase completed",
		"purchase_id", purchase.ID,
		"business_id", purchase.BusinessID,
		"kind", purchase.Kind,
	)
	return &purchase, nil
}

// DeactivateSubscription turns off the subscription for the business tied to
// a cancelled Stripe subscription.
func (s *purchaseService) DeactivateSubscription(stripeSubscriptionID string) error {
	if stripeSubscriptionID == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "subscription ID is required")
	}

	result := s.db.Model(&models.Business{}).
		Where("stripe_subscription_id = ?", stripeSubscriptionID).
		Update("subscription_active", false)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		logger.Get().Warnw("Subscription cancellation for unknown business",
			"stripe_subscription_id", stripeSubscriptionID,
		)
	}
	return nil
}

// ConsumeSnapshotCredit marks the oldest unused paid snapshot purchase as
// used, returning ErrEntitlementRequired when none exists.
func (s *purchaseService) ConsumeSnapshotCredit(userID, businessID uint) error {
	var purchase models.Purchase
	err := s.db.Where("user_id = ? AND business_id = ? AND kind = ? AND status = ? AND used = ?",
		userID, businessID, models.PurchaseKindSnapshot, models.PurchaseStatusPaid, false).
		Order("created_at ASC").
		First(&purchase).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrEntitlementRequired
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.db.Model(&purchase).Update("used", true).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
