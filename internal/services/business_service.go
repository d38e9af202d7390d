package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "ekkoscope/internal/errors"
	"ekkoscope/internal/models"
	"ekkoscope/internal/pagination"
	"ekkoscope/internal/tenants"
)

// businessService handles business profiles and entitlement checks.
type businessService struct {
	db *gorm.DB
}

// NewBusinessService creates a new BusinessServicer.
func NewBusinessService(db *gorm.DB) BusinessServicer {
	return &businessService{db: db}
}

// CreateBusiness registers a business profile owned by the given user.
func (s *businessService) CreateBusiness(ownerID uint, in BusinessInput) (*models.Business, error) {
	if in.Name == "" || in.PrimaryDomain == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name and primary_domain are required")
	}

	businessType := in.BusinessType
	if businessType == "" {
		businessType = models.BusinessTypeLocalService
	}

	business := &models.Business{
		OwnerUserID:   &ownerID,
		Name:          strings.TrimSpace(in.Name),
		PrimaryDomain: normalizeDomain(in.PrimaryDomain),
		BusinessType:  businessType,
		ContactName:   in.ContactName,
		ContactEmail:  in.ContactEmail,
		Source:        "public",
		Plan:          models.PlanSnapshot,
	}
	business.SetExtraDomains(in.ExtraDomains)
	business.SetRegions(in.Regions)
	business.SetCategories(in.Categories)

	if err := s.db.Create(business).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return business, nil
}

// GetUserBusinesses lists the businesses owned by a user.
func (s *businessService) GetUserBusinesses(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Business], error) {
	page.Defaults()

	var total int64
	if err := s.db.Model(&models.Business{}).Where("owner_user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var businesses []models.Business
	err := s.db.Where("owner_user_id = ?", userID).
		Order("created_at DESC").
		Scopes(pagination.Paginate(page)).
		Find(&businesses).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(businesses, page.Page, page.PageSize, total)
	return &resp, nil
}

// GetBusinessByID retrieves a business, scoped to its owner.
func (s *businessService) GetBusinessByID(userID, businessID uint) (*models.Business, error) {
	var business models.Business
	err := s.db.Where("id = ? AND owner_user_id = ?", businessID, userID).First(&business).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBusinessNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &business, nil
}

// GetBusiness retrieves a business without owner scoping, for internal and
// admin use.
func (s *businessService) GetBusiness(businessID uint) (*models.Business, error) {
	var business models.Business
	if err := s.db.First(&business, businessID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBusinessNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &business, nil
}

// UpdateBusiness updates the profile fields of an owned business.
func (s *businessService) UpdateBusiness(userID, businessID uint, in BusinessInput) (*models.Business, error) {
	business, err := s.GetBusinessByID(userID, businessID)
	if err != nil {
		return nil, err
	}

	if in.Name != "" {
		business.Name = strings.TrimSpace(in.Name)
	}
	if in.PrimaryDomain != "" {
		business.PrimaryDomain = normalizeDomain(in.PrimaryDomain)
	}
	if in.BusinessType != "" {
		business.BusinessType = in.BusinessType
	}
	if in.ExtraDomains != nil {
		business.SetExtraDomains(in.ExtraDomains)
	}
	if in.Regions != nil {
		business.SetRegions(in.Regions)
	}
	if in.Categories != nil {
		business.SetCategories(in.Categories)
	}
	if in.ContactName != "" {
		business.ContactName = in.ContactName
	}
	if in.ContactEmail != "" {
		business.ContactEmail = in.ContactEmail
	}

	if err := s.db.Save(business).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return business, nil
}

// AdminListBusinesses lists all businesses regardless of owner.
func (s *businessService) AdminListBusinesses(page pagination.PageRequest) (*pagination.PageResponse[models.Business], error) {
	page.Defaults()

	var total int64
	if err := s.db.Model(&models.Business{}).Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var businesses []models.Business
	err := s.db.Order("created_at DESC").
		Scopes(pagination.Paginate(page)).
		Find(&businesses).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(businesses, page.Page, page.PageSize, total)
	return &resp, nil
}

// TenantConfig derives the analysis configuration for a business.
func (s *businessService) TenantConfig(businessID uint) (tenants.Config, error) {
	business, err := s.GetBusiness(businessID)
	if err != nil {
		return tenants.Config{}, err
	}
	return tenants.FromBusiness(business), nil
}

// HasSnapshotCredit reports whether the user holds a paid, unused snapshot
// purchase for the business.
func (s *businessService) HasSnapshotCredit(userID, businessID uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.Purchase{}).
		Where("user_id = ? AND business_id = ? AND kind = ? AND status = ? AND used = ?",
			userID, businessID, models.PurchaseKindSnapshot, models.PurchaseStatusPaid, false).
		Count(&count).Error
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return count > 0, nil
}

// HasActiveSubscription reports whether the business has a live ongoing plan.
func (s *businessService) HasActiveSubscription(businessID uint) (bool, error) {
	var business models.Business
	if err := s.db.Select("subscription_active").First(&business, businessID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, apperrors.ErrBusinessNotFound
		}
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return business.SubscriptionActive, nil
}

// HasAccess reports whether the user may run an audit for the business:
// either an unused snapshot credit or an active subscription.
func (s *businessService) HasAccess(userID, businessID uint) (bool, error) {
	subscribed, err := s.HasActiveSubscription(businessID)
	if err != nil {
		return false, err
	}
	if subscribed {
		return true, nil
	}
	return s.HasSnapshotCredit(userID, businessID)
}

func normalizeDomain(domain string) string {
	domain = strings.TrimSpace(strings.ToLower(domain))
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	return strings.TrimRight(domain, "/")
}
