package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "ekkoscope/internal/errors"
	"ekkoscope/internal/models"
	"ekkoscope/internal/services"
	"ekkoscope/internal/sherlock"
)

// SherlockHandler exposes the semantic gap engine: knowledge ingestion,
// competitor tracking, gap analysis, and remediation missions.
type SherlockHandler struct {
	engine          *sherlock.Engine
	missionService  services.MissionServicer
	businessService services.BusinessServicer
}

// NewSherlockHandler creates a new SherlockHandler.
func NewSherlockHandler(engine *sherlock.Engine, missionService services.MissionServicer, businessService services.BusinessServicer) *SherlockHandler {
	return &SherlockHandler{
		engine:          engine,
		missionService:  missionService,
		businessService: businessService,
	}
}

// Status reports whether the vector store side of the engine is configured.
func (h *SherlockHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"enabled": h.engine.Enabled(),
	})
}

// IngestRequest targets one URL for topic extraction and embedding.
type IngestRequest struct {
	BusinessID  uint   `json:"business_id" binding:"required"`
	URL         string `json:"url" binding:"required,url"`
	ContentType string `json:"content_type" binding:"omitempty,content_type"`
}

// Ingest scrapes a URL, extracts its topics, and stores the embedding.
func (h *SherlockHandler) Ingest(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if _, err := h.businessService.GetBusinessByID(userID, req.BusinessID); err != nil {
		respondWithError(c, err)
		return
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = models.ContentTypeClientSite
	}

	result, err := h.engine.IngestKnowledge(c.Request.Context(), req.URL, contentType, req.BusinessID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CompetitorRequest registers a competitor site for gap analysis.
type CompetitorRequest struct {
	BusinessID uint   `json:"business_id" binding:"required"`
	Name       string `json:"name" binding:"required,max=255"`
	Domain     string `json:"domain" binding:"required,max=255"`
	URL        string `json:"url" binding:"omitempty,url"`
}

// AddCompetitor records a competitor and, when a URL is given, ingests its
// content immediately.
func (h *SherlockHandler) AddCompetitor(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CompetitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	if _, err := h.businessService.GetBusinessByID(userID, req.BusinessID); err != nil {
		respondWithError(c, err)
		return
	}

	competitor, err := h.engine.AddCompetitor(c.Request.Context(), req.BusinessID, req.Name, req.Domain)
	if err != nil {
		respondWithError(c, err)
		return
	}

	body := gin.H{"competitor": competitor}
	if req.URL != "" {
		ingested, err := h.engine.IngestKnowledge(c.Request.Context(), req.URL, models.ContentTypeCompetitorSite, req.BusinessID)
		if err != nil {
			body["ingest_error"] = err.Error()
		} else {
			body["ingested"] = ingested
		}
	}
	c.JSON(http.StatusOK, body)
}

// AnalyzeGap compares the business's topic coverage against its competitors.
func (h *SherlockHandler) AnalyzeGap(c *gin.Context) {
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

	if _, err := h.businessService.GetBusinessByID(userID, businessID); err != nil {
		respondWithError(c, err)
		return
	}

	analysis, err := h.engine.AnalyzeGap(c.Request.Context(), businessID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// GenerateMissions runs a gap analysis and converts the gaps into missions.
func (h *SherlockHandler) GenerateMissions(c *gin.Context) {
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

	if _, err := h.businessService.GetBusinessByID(userID, businessID); err != nil {
		respondWithError(c, err)
		return
	}

	missions, err := h.engine.GenerateMissions(c.Request.Context(), businessID, nil)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"missions": missions,
		"count":    len(missions),
	})
}

// ListMissions returns a business's missions, optionally filtered by the
// status query parameter.
func (h *SherlockHandler) ListMissions(c *gin.Context) {
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

	missions, err := h.missionService.ListMissions(c.Request.Context(), userID, businessID, c.Query("status"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"missions": missions,
		"count":    len(missions),
	})
}

// CompleteMission marks a mission done.
func (h *SherlockHandler) CompleteMission(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	missionID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	mission, err := h.missionService.CompleteMission(c.Request.Context(), userID, missionID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, mission)
}
