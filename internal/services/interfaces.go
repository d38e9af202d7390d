package services

import (
	"context"

	"ekkoscope/internal/billing"
	"ekkoscope/internal/fixplan"
	"ekkoscope/internal/models"
	"ekkoscope/internal/pagination"
	"ekkoscope/internal/reportparse"
	"ekkoscope/internal/tenants"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID uint, tokenHash string) error
	GetRefreshTokenHash(userID uint) (string, error)
}

// BusinessInput carries the mutable business profile fields.
type BusinessInput struct {
	Name          string
	PrimaryDomain string
	ExtraDomains  []string
	BusinessType  models.BusinessType
	Regions       []string
	Categories    []string
	ContactName   string
	ContactEmail  string
}

// BusinessServicer defines the contract for business profiles and
// entitlements.
type BusinessServicer interface {
	CreateBusiness(ownerID uint, in BusinessInput) (*models.Business, error)
	GetUserBusinesses(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Business], error)
	GetBusinessByID(userID, businessID uint) (*models.Business, error)
	GetBusiness(businessID uint) (*models.Business, error)
	UpdateBusiness(userID, businessID uint, in BusinessInput) (*models.Business, error)
	AdminListBusinesses(page pagination.PageRequest) (*pagination.PageResponse[models.Business], error)
	TenantConfig(businessID uint) (tenants.Config, error)
	HasSnapshotCredit(userID, businessID uint) (bool, error)
	HasActiveSubscription(businessID uint) (bool, error)
	HasAccess(userID, businessID uint) (bool, error)
}

// PurchaseServicer defines the contract for Stripe purchase bookkeeping.
type PurchaseServicer interface {
	CreatePending(userID, businessID uint, kind models.PurchaseKind, checkoutSessionID string) (*models.Purchase, error)
	CompleteCheckout(completion *billing.CheckoutCompletion) (*models.Purchase, error)
	DeactivateSubscription(stripeSubscriptionID string) error
	ConsumeSnapshotCredit(userID, businessID uint) error
}

// AuditServicer defines the contract for the audit pipeline.
type AuditServicer interface {
	StartAudit(ctx context.Context, userID, businessID uint, channel string) (*models.Audit, error)
	RunAudit(ctx context.Context, auditID uint) error
	RunScheduledAudit(ctx context.Context, businessID uint) error
	GetAudit(userID, auditID uint) (*models.Audit, error)
	AdminGetAudit(auditID uint) (*models.Audit, error)
	ListAudits(userID, businessID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Audit], error)
	LatestDoneAudit(userID, businessID uint) (*models.Audit, error)
}

// MissionServicer defines the contract for Sherlock remediation missions.
type MissionServicer interface {
	ListMissions(ctx context.Context, userID, businessID uint, status string) ([]models.SherlockMission, error)
	CompleteMission(ctx context.Context, userID, missionID uint) (*models.SherlockMission, error)
}

// FixPlanResult bundles the parsed report, the generated plan, and the
// projected score.
type FixPlanResult struct {
	Analysis *reportparse.Analysis `json:"analysis"`
	Plan     *fixplan.Plan         `json:"fix_plan"`
	Estimate fixplan.ScoreEstimate `json:"estimate"`
}

// FixServicer defines the contract for the report-to-fix-plan pipeline.
type FixServicer interface {
	GenerateFixPlan(ctx context.Context, userID, auditID uint) (*FixPlanResult, error)
}
