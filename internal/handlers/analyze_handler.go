package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "ekkoscope/internal/errors"
	"ekkoscope/internal/insights"
	"ekkoscope/internal/querygen"
	"ekkoscope/internal/report"
	"ekkoscope/internal/tenants"
	"ekkoscope/internal/visibility"
)

// AnalyzeHandler serves the registry-backed demo surface: visibility runs
// for tenants bootstrapped from the JSON file, with no persistence.
type AnalyzeHandler struct {
	registry  *tenants.Registry
	hub       *visibility.Hub
	insights  *insights.Generator
	integrity report.ContentGenerator
}

// NewAnalyzeHandler creates a new AnalyzeHandler.
func NewAnalyzeHandler(registry *tenants.Registry, hub *visibility.Hub, gen *insights.Generator, integrity report.ContentGenerator) *AnalyzeHandler {
	return &AnalyzeHandler{registry: registry, hub: hub, insights: gen, integrity: integrity}
}

// ListTenants returns the registered tenant IDs and names.
func (h *AnalyzeHandler) ListTenants(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tenants": h.registry.List(),
		"count":   h.registry.Len(),
	})
}

// Analyze runs a one-off visibility probe for a registry tenant and returns
// the scored result inline.
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	cfg, err := h.registry.Get(c.Param("tenant_id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	if h.hub.ProviderCount() == 0 {
		respondWithError(c, apperrors.ErrNoProviders)
		return
	}

	queries := make([]querygen.Query, 0, len(cfg.PriorityQueries))
	for _, q := range cfg.PriorityQueries {
		queries = append(queries, querygen.Query{Text: q, IntentType: "priority", IntentValue: 8})
	}
	if len(queries) == 0 {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "tenant has no priority queries"))
		return
	}

	primaryDomain := ""
	if len(cfg.Domains) > 0 {
		primaryDomain = cfg.Domains[0]
	}
	target := visibility.Target{
		BusinessName:  cfg.DisplayName,
		PrimaryDomain: primaryDomain,
		Regions:       cfg.GeoFocus,
		Aliases:       cfg.BrandAliases,
	}

	result := h.hub.Run(c.Request.Context(), target, queries)
	if len(result.ProvidersUsed) == 0 {
		respondWithError(c, apperrors.ErrMissingAPIKey)
		return
	}

	outcomes := make([]report.QueryOutcome, 0, len(result.Queries))
	stats := insights.Stats{TotalQueries: len(result.Queries)}
	totalScore := 0
	for i := range result.Queries {
		agg := &result.Queries[i]
		score := agg.Score()
		totalScore += score
		if agg.TargetFoundCount() > 0 {
			stats.MentionedCount++
		}
		if score == 2 {
			stats.PrimaryCount++
		}
		outcomes = append(outcomes, report.QueryOutcome{
			Query:       agg.Query,
			TargetFound: agg.TargetFoundCount() > 0,
			Score:       score,
		})
	}
	if len(result.Queries) > 0 {
		stats.AvgScore = float64(totalScore) / float64(len(result.Queries))
	}

	suggestions := h.insights.GenerateSuggestions(c.Request.Context(), cfg, stats)
	content := report.Content{
		ExecutiveSummary: suggestions.VisibilitySummary,
		Suggestions:      suggestions.Suggestions,
	}
	trueScore := report.VerifyIntegrity(c.Request.Context(), h.integrity, &content, outcomes, cfg.DisplayName)
	content.VisibilityScore = trueScore.CalculatedScore

	c.JSON(http.StatusOK, gin.H{
		"tenant_id":   cfg.ID,
		"tenant_name": cfg.DisplayName,
		"run_at":      time.Now().UTC().Format(time.RFC3339),
		"true_score":  trueScore,
		"content":     content,
		"result":      result,
	})
}
