package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/gorm"

	"ekkoscope/internal/config"
	apperrors "ekkoscope/internal/errors"
	"ekkoscope/internal/insights"
	"ekkoscope/internal/logger"
	"ekkoscope/internal/models"
	"ekkoscope/internal/pagination"
	"ekkoscope/internal/querygen"
	"ekkoscope/internal/report"
	"ekkoscope/internal/sentinel"
	"ekkoscope/internal/sitescan"
	"ekkoscope/internal/tenants"
	"ekkoscope/internal/visibility"
)

// auditService runs the full visibility audit pipeline: probe providers,
// score deterministically, generate narrative, guard integrity, and write
// the report artifacts.
type auditService struct {
	db         *gorm.DB
	cfg        *config.Config
	hub        *visibility.Hub
	insights   *insights.Generator
	integrity  report.ContentGenerator
	scanner    *sitescan.Scanner
	businesses BusinessServicer
	purchases  PurchaseServicer
	sentinel   *sentinel.Client
}

// NewAuditService creates a new AuditServicer. The integrity generator and
// sentinel client may be nil when not configured.
func NewAuditService(
	db *gorm.DB,
	cfg *config.Config,
	hub *visibility.Hub,
	gen *insights.Generator,
	integrity report.ContentGenerator,
	scanner *sitescan.Scanner,
	businesses BusinessServicer,
	purchases PurchaseServicer,
	sentinelClient *sentinel.Client,
) AuditServicer {
	return &auditService{
		db:         db,
		cfg:        cfg,
		hub:        hub,
		insights:   gen,
		integrity:  integrity,
		scanner:    scanner,
		businesses: businesses,
		purchases:  purchases,
		sentinel:   sentinelClient,
	}
}

// StartAudit validates ownership and entitlement, consumes a snapshot credit
// when the business has no subscription, and kicks the pipeline off in the
// background.
func (s *auditService) StartAudit(ctx context.Context, userID, businessID uint, channel string) (*models.Audit, error) {
	business, err := s.businesses.GetBusinessByID(userID, businessID)
	if err != nil {
		return nil, err
	}

	if s.hub.ProviderCount() == 0 {
		return nil, apperrors.ErrNoProviders
	}

	hasAccess, err := s.businesses.HasAccess(userID, businessID)
	if err != nil {
		return nil, err
	}
	if !hasAccess {
		return nil, apperrors.ErrEntitlementRequired
	}

	if channel == "" {
		channel = "self_serve"
	}
	audit := &models.Audit{
		BusinessID: business.ID,
		Channel:    channel,
		Status:     models.AuditStatusPending,
	}
	if err := s.db.Create(audit).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	subscribed, err := s.businesses.HasActiveSubscription(businessID)
	if err != nil {
		return nil, err
	}
	if !subscribed {
		if err := s.purchases.ConsumeSnapshotCredit(userID, businessID); err != nil {
			return nil, err
		}
	}

	go func() {
		if err := s.RunAudit(context.Background(), audit.ID); err != nil {
			logger.Get().Errorw("Background audit failed",
				"audit_id", audit.ID,
				"business_id", businessID,
				"error", err,
			)
		}
	}()

	return audit, nil
}

// RunAudit executes the pipeline for an existing audit record.
func (s *auditService) RunAudit(ctx context.Context, auditID uint) error {
	log := logger.Get()

	var audit models.Audit
	if err := s.db.First(&audit, auditID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrAuditNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	business, err := s.businesses.GetBusiness(audit.BusinessID)
	if err != nil {
		return s.failAudit(&audit, err)
	}
	cfg := tenants.FromBusiness(business)

	if err := s.db.Model(&audit).Update("status", models.AuditStatusRunning).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	log.Infow("Starting audit",
		"audit_id", audit.ID,
		"business_id", business.ID,
		"business", business.Name,
	)

	queries := querygen.Generate(querygen.Profile{
		Name:         business.Name,
		Categories:   business.GetCategories(),
		Regions:      business.GetRegions(),
		BusinessType: string(business.BusinessType),
	}, s.cfg.MaxVisibilityQueries)
	if len(queries) == 0 {
		return s.failAudit(&audit, apperrors.WithMessage(apperrors.ErrInternalServer, "no queries generated for business"))
	}

	target := visibility.Target{
		BusinessName:  cfg.DisplayName,
		PrimaryDomain: business.PrimaryDomain,
		Regions:       cfg.GeoFocus,
		Aliases:       cfg.BrandAliases,
	}
	result := s.hub.Run(ctx, target, queries)
	if len(result.ProvidersUsed) == 0 {
		return s.failAudit(&audit, apperrors.WithMessage(apperrors.ErrMissingAPIKey, "every provider probe failed"))
	}

	outcomes := make([]report.QueryOutcome, 0, len(result.Queries))
	for i := range result.Queries {
		agg := &result.Queries[i]
		outcomes = append(outcomes, report.QueryOutcome{
			Query:       agg.Query,
			TargetFound: agg.TargetFoundCount() > 0,
			Score:       agg.Score(),
		})
	}
	stats := auditStats(outcomes)

	suggestions := s.insights.GenerateSuggestions(ctx, cfg, stats)
	genius := s.insights.GenerateGenius(ctx, cfg, &result, stats)

	content := report.Content{
		ExecutiveSummary: suggestions.VisibilitySummary,
		Suggestions:      suggestions.Suggestions,
	}
	trueScore := report.VerifyIntegrity(ctx, s.integrity, &content, outcomes, cfg.DisplayName)
	content.VisibilityScore = trueScore.CalculatedScore
	content.VisibilityText = fmt.Sprintf("%s is mentioned in %d of %d AI assistant answers (%.1f%%).",
		cfg.DisplayName, trueScore.ClientMentions, trueScore.TotalQueries, trueScore.CalculatedScore)

	snapshot := s.scanner.FetchSnapshot(ctx, cfg.Domains, nil)
	audit.SiteInspectorUsed = snapshot.Used()

	if err := s.persistQueryResults(&audit, result); err != nil {
		return s.failAudit(&audit, err)
	}

	summary := map[string]any{
		"tenant_id":          cfg.ID,
		"tenant_name":        cfg.DisplayName,
		"run_at":             time.Now().UTC().Format(time.RFC3339),
		"total_queries":      stats.TotalQueries,
		"mentioned_count":    stats.MentionedCount,
		"primary_count":      stats.PrimaryCount,
		"avg_score":          stats.AvgScore,
		"visibility_summary": result.Summary,
		"providers_used":     result.ProvidersUsed,
	}
	if err := audit.SetVisibilitySummary(summary); err != nil {
		return s.failAudit(&audit, apperrors.Wrap(apperrors.ErrInternalServer, err))
	}
	if err := audit.SetSuggestions(map[string]any{
		"suggestions":     content.Suggestions,
		"genius_insights": genius,
		"site_snapshot":   sitescan.SummarizeContent(snapshot),
	}); err != nil {
		return s.failAudit(&audit, apperrors.Wrap(apperrors.ErrInternalServer, err))
	}

	if err := s.persistPatterns(&audit, business, genius); err != nil {
		return s.failAudit(&audit, err)
	}

	data := buildReportData(business, cfg, trueScore, content, result, genius, snapshot)
	textPath, pdfPath, err := s.writeReports(&audit, business, data)
	if err != nil {
		return s.failAudit(&audit, err)
	}

	now := time.Now().UTC()
	audit.Status = models.AuditStatusDone
	audit.CompletedAt = &now
	audit.ReportTextPath = textPath
	audit.PDFPath = pdfPath
	if err := s.db.Save(&audit).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	s.sentinel.LogVisibilityScore(business.Name, trueScore.CalculatedScore, result.ProvidersUsed)
	s.sentinel.LogReportGenerated(business.Name, "visibility_audit", len(data.Queries))
	if len(data.Competitors) > 0 {
		names := make([]string, 0, len(data.Competitors))
		for _, c := range data.Competitors {
			names = append(names, c.Name)
		}
		s.sentinel.LogCompetitorAnalysis(business.Name, names)
	}

	log.Infow("Audit completed",
		"audit_id", audit.ID,
		"business", business.Name,
		"score", trueScore.CalculatedScore,
		"providers", result.ProvidersUsed,
	)
	return nil
}

// RunScheduledAudit creates and runs an audit on the scheduled channel. It
// satisfies the scheduler's runner contract.
func (s *auditService) RunScheduledAudit(ctx context.Context, businessID uint) error {
	audit := &models.Audit{
		BusinessID: businessID,
		Channel:    "scheduled",
		Status:     models.AuditStatusPending,
	}
	if err := s.db.Create(audit).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.RunAudit(ctx, audit.ID)
}

// GetAudit retrieves an audit scoped to the owner of its business.
func (s *auditService) GetAudit(userID, auditID uint) (*models.Audit, error) {
	var audit models.Audit
	err := s.db.Joins("JOIN businesses ON businesses.id = audits.business_id").
		Where("audits.id = ? AND businesses.owner_user_id = ?", auditID, userID).
		First(&audit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAuditNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &audit, nil
}

// AdminGetAudit retrieves an audit without owner scoping.
func (s *auditService) AdminGetAudit(auditID uint) (*models.Audit, error) {
	var audit models.Audit
	if err := s.db.Preload("Business").First(&audit, auditID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAuditNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &audit, nil
}

// ListAudits lists a business's audits for its owner, newest first.
func (s *auditService) ListAudits(userID, businessID uint, page pagination.PageRequest) (*pagination.PageResponse[models.Audit], error) {
	if _, err := s.businesses.GetBusinessByID(userID, businessID); err != nil {
		return nil, err
	}
	page.Defaults()

	var total int64
	if err := s.db.Model(&models.Audit{}).Where("business_id = ?", businessID).Count(&total).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var audits []models.Audit
	err := s.db.Where("business_id = ?", businessID).
		Order("created_at DESC").
		Scopes(pagination.Paginate(page)).
		Find(&audits).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	resp := pagination.NewPageResponse(audits, page.Page, page.PageSize, total)
	return &resp, nil
}

// LatestDoneAudit returns the most recent completed audit for a business.
func (s *auditService) LatestDoneAudit(userID, businessID uint) (*models.Audit, error) {
	if _, err := s.businesses.GetBusinessByID(userID, businessID); err != nil {
		return nil, err
	}

	var audit models.Audit
	err := s.db.Where("business_id = ? AND status = ?", businessID, models.AuditStatusDone).
		Order("created_at DESC").
		First(&audit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAuditNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &audit, nil
}

func (s *auditService) failAudit(audit *models.Audit, cause error) error {
	logger.Get().Errorw("Audit failed",
		"audit_id", audit.ID,
		"business_id", audit.BusinessID,
		"error", cause,
	)
	_ = audit.SetVisibilitySummary(map[string]any{"error": cause.Error()})
	audit.Status = models.AuditStatusError
	if err := s.db.Save(audit).Error; err != nil {
		logger.Get().Errorw("Failed to persist audit error state", "audit_id", audit.ID, "error", err)
	}
	return cause
}

// persistQueryResults writes the normalized per-query and per-brand rows.
func (s *auditService) persistQueryResults(audit *models.Audit, result visibility.Result) error {
	for i := range result.Queries {
		agg := &result.Queries[i]
		row := models.AuditQuery{
			AuditID:     audit.ID,
			QueryText:   agg.Query,
			Intent:      agg.Intent,
			TargetFound: agg.TargetFoundCount() > 0,
		}
		if err := s.db.Create(&row).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		var hits []models.QueryVisibilityResult
		for _, pr := range agg.Providers {
			for rank, brand := range pr.Brands {
				position := rank + 1
				hits = append(hits, models.QueryVisibilityResult{
					AuditQueryID: row.ID,
					Provider:     pr.Provider,
					BrandName:    brand.Name,
					BrandURL:     brand.URL,
					Reason:       brand.Reason,
					Rank:         &position,
					IsTarget:     pr.TargetFound && pr.TargetPosition != nil && *pr.TargetPosition == position,
				})
			}
		}
		if len(hits) > 0 {
			if err := s.db.Create(&hits).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
	}
	return nil
}

// persistPatterns stores blueprints and roadmap tasks tagged for
// cross-tenant pattern learning.
func (s *auditService) persistPatterns(audit *models.Audit, business *models.Business, genius insights.Genius) error {
	industry := ""
	if categories := business.GetCategories(); len(categories) > 0 {
		industry = categories[0]
	}
	regionGroup := models.DeriveRegionGroup(business.GetRegions())

	for _, opp := range genius.PriorityOpportunities {
		outline, err := json.Marshal(opp.RecommendedPage.Outline)
		if err != nil {
			outline = []byte("[]")
		}
		blueprint := models.PageBlueprint{
			AuditID:        audit.ID,
			BusinessID:     business.ID,
			IntentCluster:  opp.Query,
			URLSlug:        opp.RecommendedPage.Slug,
			SEOTitle:       opp.RecommendedPage.SEOTitle,
			H1:             opp.RecommendedPage.H1,
			OutlineJSON:    string(outline),
			TargetKeywords: strings.Join(opp.RecommendedPage.InternalLinks, ", "),
			Industry:       industry,
			BusinessType:   string(business.BusinessType),
			RegionGroup:    regionGroup,
		}
		if err := s.db.Create(&blueprint).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	for i, win := range genius.QuickWins {
		task := models.RoadmapTask{
			AuditID:      audit.ID,
			BusinessID:   business.ID,
			WeekNumber:   i%4 + 1,
			TaskText:     win,
			Impact:       "high",
			Effort:       "low",
			OwnerRole:    "marketing",
			Industry:     industry,
			BusinessType: string(business.BusinessType),
			RegionGroup:  regionGroup,
		}
		if err := s.db.Create(&task).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return nil
}

// writeReports renders the plain-text and PDF artifacts under the reports
// directory and returns their paths.
func (s *auditService) writeReports(audit *models.Audit, business *models.Business, data *report.Data) (string, string, error) {
	if err := os.MkdirAll(s.cfg.ReportsDir, 0o755); err != nil {
		return "", "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	base := fmt.Sprintf("ekkoscope_%s_%d_%s",
		safeFileName(business.Name), audit.ID, time.Now().UTC().Format("20060102_150405"))
	textPath := filepath.Join(s.cfg.ReportsDir, base+".txt")
	pdfPath := filepath.Join(s.cfg.ReportsDir, base+".pdf")

	if err := os.WriteFile(textPath, []byte(report.BuildText(data)), 0o644); err != nil {
		return "", "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := report.BuildPDF(data, pdfPath); err != nil {
		return "", "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return textPath, pdfPath, nil
}

func buildReportData(
	business *models.Business,
	cfg tenants.Config,
	trueScore report.TrueScore,
	content report.Content,
	result visibility.Result,
	genius insights.Genius,
	snapshot sitescan.Snapshot,
) *report.Data {
	queries := make([]report.QueryRow, 0, len(result.Queries))
	for i := range result.Queries {
		agg := &result.Queries[i]
		queries = append(queries, report.QueryRow{
			Query:       agg.Query,
			Score:       agg.Score(),
			Intent:      agg.Intent,
			TargetFound: agg.TargetFoundCount() > 0,
		})
	}

	competitors := make([]report.CompetitorRow, 0, len(result.Summary.TopCompetitors))
	for _, c := range result.Summary.TopCompetitors {
		competitors = append(competitors, report.CompetitorRow{Name: c.Name, Count: c.Count})
	}

	blueprints := make([]string, 0, len(genius.PriorityOpportunities))
	for _, opp := range genius.PriorityOpportunities {
		if opp.RecommendedPage.SEOTitle != "" {
			blueprints = append(blueprints, opp.RecommendedPage.SEOTitle)
		}
	}

	return &report.Data{
		BusinessName: business.Name,
		BusinessType: string(business.BusinessType),
		Domain:       business.PrimaryDomain,
		GeneratedAt:  time.Now().UTC(),
		TrueScore:    trueScore,
		Content:      content,
		Queries:      queries,
		Competitors:  competitors,
		Blueprints:   blueprints,
		SiteSummary:  sitescan.SummarizeContent(snapshot),
	}
}

func auditStats(outcomes []report.QueryOutcome) insights.Stats {
	stats := insights.Stats{TotalQueries: len(outcomes)}
	if len(outcomes) == 0 {
		return stats
	}
	total := 0
	for _, o := range outcomes {
		total += o.Score
		if o.TargetFound {
			stats.MentionedCount++
		}
		if o.Score == 2 {
			stats.PrimaryCount++
		}
	}
	stats.AvgScore = float64(total) / float64(len(outcomes))
	return stats
}

func safeFileName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
