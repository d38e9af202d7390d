package reportparse

import (
	"testing"
)

const sampleReport = `Acme Packaging
AI Visibility Report
Generated: June 1, 2025 at 12:00 UTC
https://acme.com
Business Type: ecom

AI Visibility Summary
Visibility Score: 20.0%
Risk Level: HIGH
Total Queries: 10
Mentioned: 2
Primary: 1
Score 0: 8
Score 1: 1
Score 2: 1

Executive Summary
LOW VISIBILITY WARNING: Acme Packaging appeared in 2 of 10 queries (20.0%).
Missing meta descriptions and no schema markup were detected on key pages.

Per-Query Analysis
"best packaging supplier for warehouses" - Score: 2
"bulk trash bags wholesale pricing" - Score: 1
"wholesale stretch film distributor" - Score: 0

Competitor Landscape
1. Uline - 7 mentions
2. Global Industrial - 3 mentions

Recommendations
- Urgent: add schema markup to product pages for AI understanding
- Expand FAQ content so assistants can cite your answers directly

Page Blueprints
Page: Bulk Trash Can Liners for Warehouses
Page: Stretch Film Buying Guide
`

func TestParseBusinessInfo(t *testing.T) {
	info := Parse(sampleReport).BusinessInfo

	if info.BusinessName != "Acme Packaging" {
		t.Errorf("BusinessName = %q", info.BusinessName)
	}
	if info.BusinessType != "ecom" {
		t.Errorf("BusinessType = %q", info.BusinessType)
	}
	if info.Domain != "https://acme.com" {
		t.Errorf("Domain = %q", info.Domain)
	}
	if info.ReportDate != "June 1, 2025 at 12:00 UTC" {
		t.Errorf("ReportDate = %q", info.ReportDate)
	}
}

func TestParseScore(t *testing.T) {
	score := Parse(sampleReport).Score

	if score.VisibilityPercentage != 20 {
		t.Errorf("VisibilityPercentage = %d, want 20", score.VisibilityPercentage)
	}
	if score.OverallScore != 0.4 {
		t.Errorf("OverallScore = %v, want 0.4", score.OverallScore)
	}
	if score.MentionedCount != 2 || score.PrimaryCount != 1 || score.TotalQueries != 10 {
		t.Errorf("counts = %+v", score)
	}
	if score.ScoreDistribution[0] != 8 || score.ScoreDistribution[2] != 1 {
		t.Errorf("distribution = %v", score.ScoreDistribution)
	}
}

func TestParseIssues(t *testing.T) {
	issues := Parse(sampleReport).Issues

	types := make(map[string]Issue)
	for _, issue := range issues {
		types[issue.Type] = issue
	}

	if _, ok := types["zero_visibility"]; !ok {
		t.Error("expected zero_visibility issue from Score: 0 lines")
	}
	if issue, ok := types["missing_meta"]; !ok {
		t.Error("expected missing_meta issue")
	} else if issue.FixType != "seo_optimization" {
		t.Errorf("missing_meta fix type = %q", issue.FixType)
	}
	if _, ok := types["missing_schema"]; !ok {
		t.Error("expected missing_schema issue")
	}
}

func TestParseIssuesFallback(t *testing.T) {
	text := `Acme
AI Visibility Report
Visibility Score: 25%
Total Queries: 4
`
	issues := Parse(text).Issues
	if len(issues) == 0 {
		t.Fatal("expected fallback issues for low score")
	}
	foundLow := false
	for _, issue := range issues {
		if issue.Type == "poor_ai_presence" {
			foundLow = true
		}
	}
	if !foundLow {
		t.Errorf("issues = %v, want poor_ai_presence", issues)
	}
}

func TestParseCompetitors(t *testing.T) {
	competitors := Parse(sampleReport).Competitors

	if len(competitors) < 2 {
		t.Fatalf("competitors = %v", competitors)
	}

	byName := make(map[string]Competitor)
	for _, c := range competitors {
		byName[c.Name] = c
	}

	uline, ok := byName["Uline"]
	if !ok {
		t.Fatalf("Uline not found in %v", competitors)
	}
	if uline.Mentions != 7 {
		t.Errorf("Uline mentions = %d, want 7", uline.Mentions)
	}
	if uline.ThreatLevel != "high" {
		t.Errorf("Uline threat = %q, want high", uline.ThreatLevel)
	}

	global, ok := byName["Global Industrial"]
	if !ok {
		t.Fatalf("Global Industrial not found in %v", competitors)
	}
	if global.ThreatLevel != "medium" {
		t.Errorf("Global Industrial threat = %q, want medium", global.ThreatLevel)
	}
}

func TestParseQueries(t *testing.T) {
	queries := Parse(sampleReport).Queries

	if len(queries) != 3 {
		t.Fatalf("queries = %v", queries)
	}
	if queries[0].Query != "best packaging supplier for warehouses" || queries[0].Score != 2 {
		t.Errorf("first query = %+v", queries[0])
	}
	if !queries[2].NeedsFix {
		t.Error("zero-score query should need fix")
	}
	if queries[0].NeedsFix {
		t.Error("score-2 query should not need fix")
	}
}

func TestParseRecommendations(t *testing.T) {
	recs := Parse(sampleReport).Recommendations

	if len(recs) != 2 {
		t.Fatalf("recs = %v", recs)
	}
	if recs[0].Priority != "high" {
		t.Errorf("urgent rec priority = %q, want high", recs[0].Priority)
	}
	if recs[1].Priority != "medium" {
		t.Errorf("second rec priority = %q, want medium", recs[1].Priority)
	}
}

func TestParseBlueprints(t *testing.T) {
	blueprints := Parse(sampleReport).Blueprints

	if len(blueprints) != 2 {
		t.Fatalf("blueprints = %v", blueprints)
	}
	if blueprints[0].PageTitle != "Bulk Trash Can Liners for Warehouses" {
		t.Errorf("first blueprint = %+v", blueprints[0])
	}
	if blueprints[0].Status != "not_created" {
		t.Errorf("blueprint status = %q", blueprints[0].Status)
	}
}

func TestParseEmptyText(t *testing.T) {
	analysis := Parse("")
	if analysis.BusinessInfo.BusinessName != "" {
		t.Errorf("BusinessName = %q", analysis.BusinessInfo.BusinessName)
	}
	if len(analysis.Queries) != 0 || len(analysis.Competitors) != 0 {
		t.Error("expected empty collections")
	}
}
