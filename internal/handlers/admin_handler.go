package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	apperrors "ekkoscope/internal/errors"
	"ekkoscope/internal/models"
	"ekkoscope/internal/pagination"
	"ekkoscope/internal/services"
)

// AdminHandler serves the operator surface: cross-tenant listings, audit
// inspection, and manually triggered runs.
type AdminHandler struct {
	db              *gorm.DB
	businessService services.BusinessServicer
	auditService    services.AuditServicer
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(db *gorm.DB, businessService services.BusinessServicer, auditService services.AuditServicer) *AdminHandler {
	return &AdminHandler{db: db, businessService: businessService, auditService: auditService}
}

// ListBusinesses lists every business regardless of owner.
func (h *AdminHandler) ListBusinesses(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	resp, err := h.businessService.AdminListBusinesses(page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetAudit returns any audit with its business preloaded.
func (h *AdminHandler) GetAudit(c *gin.Context) {
	auditID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	audit, err := h.auditService.AdminGetAudit(auditID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	body := auditResponse(audit)
	if audit.Business != nil {
		body["business"] = gin.H{
			"id":     audit.Business.ID,
			"name":   audit.Business.Name,
			"domain": audit.Business.PrimaryDomain,
			"plan":   audit.Business.Plan,
		}
	}
	c.JSON(http.StatusOK, body)
}

// RunAudit starts an audit for any business, bypassing entitlement checks.
// Used for concierge runs and re-runs after provider incidents.
func (h *AdminHandler) RunAudit(c *gin.Context) {
	businessID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if _, err := h.businessService.GetBusiness(businessID); err != nil {
		respondWithError(c, err)
		return
	}

	audit := &models.Audit{
		BusinessID: businessID,
		Channel:    "concierge",
		Status:     models.AuditStatusPending,
	}
	if err := h.db.Create(audit).Error; err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	// Run outside the request context; failures are persisted on the audit row.
	go h.auditService.RunAudit(context.Background(), audit.ID) //nolint:errcheck

	c.JSON(http.StatusAccepted, auditResponse(audit))
}

// Stats returns coarse platform counters.
func (h *AdminHandler) Stats(c *gin.Context) {
	var users, businesses, audits, doneAudits, purchases, activeSubscriptions int64

	counters := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&users, h.db.Model(&models.User{})},
		{&businesses, h.db.Model(&models.Business{})},
		{&audits, h.db.Model(&models.Audit{})},
		{&doneAudits, h.db.Model(&models.Audit{}).Where("status = ?", models.AuditStatusDone)},
		{&purchases, h.db.Model(&models.Purchase{})},
		{&activeSubscriptions, h.db.Model(&models.Business{}).Where("subscription_active = ?", true)},
	}
	for _, counter := range counters {
		if err := counter.query.Count(counter.dest).Error; err != nil {
			respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"users":                users,
		"businesses":           businesses,
		"audits":               audits,
		"audits_done":          doneAudits,
		"purchases":            purchases,
		"active_subscriptions": activeSubscriptions,
	})
}
