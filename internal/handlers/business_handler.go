package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "ekkoscope/internal/errors"
	"ekkoscope/internal/models"
	"ekkoscope/internal/pagination"
	"ekkoscope/internal/services"
)

// BusinessHandler handles business profile requests.
type BusinessHandler struct {
	businessService services.BusinessServicer
}

// NewBusinessHandler creates a new BusinessHandler.
func NewBusinessHandler(businessService services.BusinessServicer) *BusinessHandler {
	return &BusinessHandler{businessService: businessService}
}

// BusinessRequest represents the create/update payload.
type BusinessRequest struct {
	Name          string   `json:"name" binding:"max=255"`
	PrimaryDomain string   `json:"primary_domain" binding:"max=255"`
	ExtraDomains  []string `json:"extra_domains" binding:"omitempty,max=10,dive,max=255"`
	BusinessType  string   `json:"business_type" binding:"omitempty,business_type"`
	Regions       []string `json:"regions" binding:"omitempty,max=20,dive,max=100"`
	Categories    []string `json:"categories" binding:"omitempty,max=20,dive,max=100"`
	ContactName   string   `json:"contact_name" binding:"max=255"`
	ContactEmail  string   `json:"contact_email" binding:"omitempty,email,max=255"`
}

func (r BusinessRequest) toInput() services.BusinessInput {
	return services.BusinessInput{
		Name:          r.Name,
		PrimaryDomain: r.PrimaryDomain,
		ExtraDomains:  r.ExtraDomains,
		BusinessType:  models.BusinessType(r.BusinessType),
		Regions:       r.Regions,
		Categories:    r.Categories,
		ContactName:   r.ContactName,
		ContactEmail:  r.ContactEmail,
	}
}

func businessResponse(b *models.Business) gin.H {
	return gin.H{
		"id":                  b.ID,
		"name":                b.Name,
		"primary_domain":      b.PrimaryDomain,
		"extra_domains":       b.GetExtraDomains(),
		"business_type":       b.BusinessType,
		"regions":             b.GetRegions(),
		"categories":          b.GetCategories(),
		"contact_name":        b.ContactName,
		"contact_email":       b.ContactEmail,
		"plan":                b.Plan,
		"subscription_active": b.SubscriptionActive,
		"next_audit_at":       b.NextAuditAt,
		"created_at":          b.CreatedAt,
	}
}

// CreateBusiness registers a business owned by the caller.
func (h *BusinessHandler) CreateBusiness(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req BusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	business, err := h.businessService.CreateBusiness(userID, req.toInput())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, businessResponse(business))
}

// ListBusinesses returns the caller's businesses, paginated.
func (h *BusinessHandler) ListBusinesses(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	resp, err := h.businessService.GetUserBusinesses(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetBusiness returns one of the caller's businesses.
func (h *BusinessHandler) GetBusiness(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	businessID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	business, err := h.businessService.GetBusinessByID(userID, businessID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, businessResponse(business))
}

// UpdateBusiness updates profile fields on one of the caller's businesses.
func (h *BusinessHandler) UpdateBusiness(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	businessID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req BusinessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	business, err := h.businessService.UpdateBusiness(userID, businessID, req.toInput())
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, businessResponse(business))
}
