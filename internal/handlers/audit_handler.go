package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	apperrors "ekkoscope/internal/errors"
	"ekkoscope/internal/models"
	"ekkoscope/internal/pagination"
	"ekkoscope/internal/services"
)

// AuditHandler handles audit lifecycle and report delivery requests.
type AuditHandler struct {
	auditService services.AuditServicer
	fixService   services.FixServicer
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditService services.AuditServicer, fixService services.FixServicer) *AuditHandler {
	return &AuditHandler{auditService: auditService, fixService: fixService}
}

func auditResponse(a *models.Audit) gin.H {
	body := gin.H{
		"id":                  a.ID,
		"business_id":         a.BusinessID,
		"channel":             a.Channel,
		"status":              a.Status,
		"site_inspector_used": a.SiteInspectorUsed,
		"completed_at":        a.CompletedAt,
		"created_at":          a.CreatedAt,
	}
	if summary, err := a.GetVisibilitySummary(); err == nil && summary != nil {
		body["visibility_summary"] = summary
	}
	if suggestions, err := a.GetSuggestions(); err == nil && suggestions != nil {
		body["suggestions"] = suggestions
	}
	return body
}

// StartAudit begins a visibility audit for an owned business. The pipeline
// runs in the background; poll the audit until it reaches done or error.
func (h *AuditHandler) StartAudit(c *gin.Context) {
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

	audit, err := h.auditService.StartAudit(c.Request.Context(), userID, businessID, "self_serve")
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, auditResponse(audit))
}

// ListAudits lists an owned business's audits.
func (h *AuditHandler) ListAudits(c *gin.Context) {
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

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	resp, err := h.auditService.ListAudits(userID, businessID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetAudit returns a single audit with its stored payloads.
func (h *AuditHandler) GetAudit(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	auditID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	audit, err := h.auditService.GetAudit(userID, auditID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, auditResponse(audit))
}

// DownloadReport streams the audit's PDF report.
func (h *AuditHandler) DownloadReport(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	auditID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	audit, err := h.auditService.GetAudit(userID, auditID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	servePDF(c, audit)
}

// DownloadDossier streams the latest completed audit PDF for a business.
func (h *AuditHandler) DownloadDossier(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	businessID, err := parsePathID(c, "business_id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	audit, err := h.auditService.LatestDoneAudit(userID, businessID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	servePDF(c, audit)
}

func servePDF(c *gin.Context, audit *models.Audit) {
	if audit.Status != models.AuditStatusDone {
		respondWithError(c, apperrors.ErrAuditNotReady)
		return
	}
	if audit.PDFPath == "" {
		respondWithError(c, apperrors.ErrReportNotGenerated)
		return
	}
	if _, err := os.Stat(audit.PDFPath); err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrReportNotGenerated, err))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filepath.Base(audit.PDFPath)+`"`)
	c.Header("Content-Type", "application/pdf")
	c.File(audit.PDFPath)
}

// GenerateFixPlan parses a completed audit's report and returns a
// prioritized remediation plan with a projected score.
func (h *AuditHandler) GenerateFixPlan(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	auditID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.fixService.GenerateFixPlan(c.Request.Context(), userID, auditID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
