package models

import "time"

// PurchaseKind distinguishes a one-time snapshot audit from an ongoing subscription.
type PurchaseKind string

const (
	PurchaseKindSnapshot PurchaseKind = "snapshot"
	PurchaseKindOngoing  PurchaseKind = "ongoing"
)

// PurchaseStatus tracks Stripe checkout progress.
type PurchaseStatus string

const (
	PurchaseStatusPending PurchaseStatus = "pending"
	PurchaseStatusPaid    PurchaseStatus = "paid"
)

// Purchase tracks user payments and entitlements for a business.
type Purchase struct {
	Base
	UserID                  uint           `gorm:"not null;index" json:"user_id"`
	BusinessID              uint           `gorm:"not null;index" json:"business_id"`
	Kind                    PurchaseKind   `gorm:"size:20;not null" json:"kind"`
	Status                  PurchaseStatus `gorm:"size:20;default:'pending'" json:"status"`
	StripeCheckoutSessionID string         `gorm:"size:255;index" json:"-"`
	StripePaymentIntentID   string         `gorm:"size:255" json:"-"`
	Used                    bool           `gorm:"default:false" json:"used"`
	CompletedAt             *time.Time     `json:"completed_at,omitempty"`
}
