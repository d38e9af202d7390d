// Package fixplan turns a parsed visibility report into a remediation plan:
// content rewrites, schema markup, new pages, and quick wins, each with an
// expected impact used to project the post-fix score.
package fixplan

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ekkoscope/internal/logger"
	"ekkoscope/internal/providers"
	"ekkoscope/internal/reportparse"
)

const systemPrompt = `You are EkkoScope FixEngine, an expert AI visibility remediation specialist.
You analyze business visibility issues identified by AI audits and generate precise, actionable fix plans.

Your expertise covers:
- SEO optimization for AI assistants (ChatGPT, Gemini, Perplexity)
- Schema markup and structured data for AI comprehension
- Content optimization for natural language understanding
- Local SEO signals for geographic relevance
- Meta tag optimization for AI snippets
- FAQ and knowledge base structuring

CRITICAL RULES:
1. Generate SPECIFIC, IMPLEMENTABLE fixes - not generic advice
2. Include actual code, content, and markup that can be deployed
3. Prioritize fixes by impact on AI visibility
4. Consider the specific business type and industry
5. All content must be factually accurate for the business
6. Generate complete, production-ready solutions

Output JSON format for each fix.`

// ContentFix is a content rewrite for an existing page.
type ContentFix struct {
	FixID            string   `json:"fix_id"`
	Type             string   `json:"type"`
	TargetPage       string   `json:"target_page"`
	CurrentIssue     string   `json:"current_issue"`
	FixContent       string   `json:"fix_content"`
	KeywordsTargeted []string `json:"keywords_targeted"`
	ExpectedImpact   string   `json:"expected_impact"`
}

// SEOFix is a technical fix, typically schema markup.
type SEOFix struct {
	FixID          string          `json:"fix_id"`
	Type           string          `json:"type"`
	TargetPage     string          `json:"target_page"`
	SchemaType     string          `json:"schema_type,omitempty"`
	SchemaJSON     json.RawMessage `json:"schema_json,omitempty"`
	ExpectedImpact string          `json:"expected_impact"`
}

// NewPage proposes a page to create for an uncovered query cluster.
type NewPage struct {
	FixID           string   `json:"fix_id"`
	PageTitle       string   `json:"page_title"`
	PageSlug        string   `json:"page_slug"`
	PagePurpose     string   `json:"page_purpose"`
	ContentOutline  []string `json:"content_outline"`
	TargetQueries   []string `json:"target_queries"`
	MetaDescription string   `json:"meta_description"`
	ExpectedImpact  string   `json:"expected_impact"`
}

// QuickWin is a small action with immediate effect.
type QuickWin struct {
	FixID              string `json:"fix_id"`
	Action             string `json:"action"`
	ImplementationTime string `json:"implementation_time"`
	ExpectedImpact     string `json:"expected_impact"`
}

// Plan is the complete remediation plan.
type Plan struct {
	FixSummary              string       `json:"fix_summary"`
	EstimatedVisibilityGain string       `json:"estimated_visibility_gain"`
	PriorityOrder           []string     `json:"priority_order"`
	ContentFixes            []ContentFix `json:"content_fixes"`
	SEOFixes                []SEOFix     `json:"seo_fixes"`
	NewPages                []NewPage    `json:"new_pages"`
	QuickWins               []QuickWin   `json:"quick_wins"`
	GeneratedAt             time.Time    `json:"generated_at"`
	BusinessName            string       `json:"business_name"`
	OriginalScore           float64      `json:"original_score"`
	OriginalPercentage      int          `json:"original_percentage"`
	Fallback                bool         `json:"fallback,omitempty"`
}

// Impacts collects the expected_impact value of every fix in the plan.
func (p *Plan) Impacts() []string {
	var impacts []string
	for _, f := range p.ContentFixes {
		impacts = append(impacts, f.ExpectedImpact)
	}
	for _, f := range p.SEOFixes {
		impacts = append(impacts, f.ExpectedImpact)
	}
	for _, f := range p.NewPages {
		impacts = append(impacts, f.ExpectedImpact)
	}
	for _, f := range p.QuickWins {
		impacts = append(impacts, f.ExpectedImpact)
	}
	return impacts
}

// TotalFixes counts every fix in the plan.
func (p *Plan) TotalFixes() int {
	return len(p.ContentFixes) + len(p.SEOFixes) + len(p.NewPages) + len(p.QuickWins)
}

// chatCompleter is the slice of providers.ChatClient the planner needs.
type chatCompleter interface {
	Complete(ctx context.Context, messages []providers.ChatMessage, jsonMode bool) (*providers.ChatResult, error)
}

// Planner generates fix plans, preferring the model and falling back to
// templates when no client is configured or the call fails.
type Planner struct {
	chat chatCompleter
}

// NewPlanner builds a planner. chat may be nil; the planner then always uses
// the template fallback.
func NewPlanner(chat *providers.ChatClient) *Planner {
	if chat == nil {
		return &Planner{}
	}
	return &Planner{chat: chat}
}

// GeneratePlan builds a remediation plan from a parsed report.
func (pl *Planner) GeneratePlan(ctx context.Context, analysis *reportparse.Analysis, businessType string) *Plan {
	businessName := analysis.BusinessInfo.BusinessName
	if businessName == "" {
		businessName = "Unknown Business"
	}

	if pl.chat == nil {
		return fallbackPlan(analysis, businessName, businessType)
	}

	plan, err := pl.modelPlan(ctx, analysis, businessName, businessType)
	if err != nil {
		logger.Get().Warnw("model fix plan failed, using fallback",
			"business", businessName, "error", err)
		return fallbackPlan(analysis, businessName, businessType)
	}
	return plan
}

func (pl *Planner) modelPlan(ctx context.Context, analysis *reportparse.Analysis, businessName, businessType string) (*Plan, error) {
	var zeroScoreQueries []reportparse.QueryResult
	for _, q := range analysis.Queries {
		if q.Score == 0 {
			zeroScoreQueries = append(zeroScoreQueries, q)
			if len(zeroScoreQueries) == 10 {
				break
			}
		}
	}

	issues, _ := json.MarshalIndent(analysis.Issues, "", "  ")
	zeroQueries, _ := json.MarshalIndent(zeroScoreQueries, "", "  ")
	competitors, _ := json.MarshalIndent(firstN(analysis.Competitors, 5), "", "  ")
	recs, _ := json.MarshalIndent(firstN(analysis.Recommendations, 10), "", "  ")
	blueprints, _ := json.MarshalIndent(analysis.Blueprints, "", "  ")

	prompt := fmt.Sprintf(`Analyze this AI visibility report and generate a complete fix plan.

BUSINESS PROFILE:
- Name: %s
- Type: %s
- Domain: %s
- Current Visibility Score: %.2f/2 (%d%%)
- Queries Analyzed: %d
- Mentioned Count: %d
- Primary Recommendation Count: %d

IDENTIFIED ISSUES:
%s

ZERO-VISIBILITY QUERIES (Critical - Need Immediate Fix):
%s

TOP COMPETITORS (What They're Doing Right):
%s

EXISTING RECOMMENDATIONS:
%s

PAGE BLUEPRINTS SUGGESTED:
%s

Generate a comprehensive fix plan as a JSON object with these keys:
fix_summary, estimated_visibility_gain, priority_order, content_fixes, seo_fixes, new_pages, quick_wins.
Each fix needs fix_id and expected_impact ("high", "medium", or "low").
Generate specific, implementable fixes for %s. Include actual content, not placeholders.`,
		businessName, businessType, analysis.BusinessInfo.Domain,
		analysis.Score.OverallScore, analysis.Score.VisibilityPercentage,
		analysis.Score.TotalQueries, analysis.Score.MentionedCount, analysis.Score.PrimaryCount,
		issues, zeroQueries, competitors, recs, blueprints, businessName)

	messages := []providers.ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	}

	answer, err := pl.chat.Complete(ctx, messages, true)
	if err != nil {
		return nil, err
	}

	var plan Plan
	if err := json.Unmarshal([]byte(providers.ExtractJSON(answer.Content)), &plan); err != nil {
		return nil, fmt.Errorf("failed to decode fix plan: %w", err)
	}

	plan.GeneratedAt = time.Now().UTC()
	plan.BusinessName = businessName
	plan.OriginalScore = analysis.Score.OverallScore
	plan.OriginalPercentage = analysis.Score.VisibilityPercentage
	return &plan, nil
}

// fallbackPlan is the deterministic template plan used when no model is
// available.
func fallbackPlan(analysis *reportparse.Analysis, businessName, businessType string) *Plan {
	schema, _ := LocalBusinessSchema(businessName, businessType, analysis.BusinessInfo.Domain)

	return &Plan{
		FixSummary:              fmt.Sprintf("Template-based remediation plan for %s (%s)", businessName, businessType),
		EstimatedVisibilityGain: "0% -> 60%",
		GeneratedAt:             time.Now().UTC(),
		BusinessName:            businessName,
		OriginalScore:           analysis.Score.OverallScore,
		OriginalPercentage:      analysis.Score.VisibilityPercentage,
		PriorityOrder:           []string{"meta_description", "schema_markup", "faq_section", "service_page"},
		Fallback:                true,
		ContentFixes: []ContentFix{
			{
				FixID:            "content_001",
				Type:             "meta_description",
				TargetPage:       "homepage",
				CurrentIssue:     "Meta description not optimized for AI visibility",
				FixContent:       fmt.Sprintf("%s - Your trusted %s provider. Quality service, competitive pricing, and expert solutions.", businessName, businessType),
				KeywordsTargeted: []string{strings.ToLower(businessType), "service", "provider"},
				ExpectedImpact:   "high",
			},
		},
		SEOFixes: []SEOFix{
			{
				FixID:          "seo_001",
				Type:           "schema_markup",
				TargetPage:     "homepage",
				SchemaType:     "LocalBusiness",
				SchemaJSON:     schema,
				ExpectedImpact: "high",
			},
		},
		NewPages: []NewPage{
			{
				FixID:           "page_001",
				PageTitle:       "FAQ - " + businessName,
				PageSlug:        "/faq",
				PagePurpose:     "Answer common questions for AI assistants",
				ContentOutline:  []string{"About Us", "Our Services", "Pricing", "Contact"},
				TargetQueries:   []string{"frequently asked questions"},
				MetaDescription: "Find answers to common questions about " + businessName,
				ExpectedImpact:  "medium",
			},
		},
		QuickWins: []QuickWin{
			{
				FixID:              "quick_001",
				Action:             "Add business to Google Business Profile",
				ImplementationTime: "30 minutes",
				ExpectedImpact:     "high",
			},
		},
	}
}

// LocalBusinessSchema builds a JSON-LD LocalBusiness block.
func LocalBusinessSchema(businessName, businessType, domain string) (json.RawMessage, error) {
	schema := map[string]any{
		"@context":    "https://schema.org",
		"@type":       "LocalBusiness",
		"name":        businessName,
		"description": fmt.Sprintf("%s is a %s provider.", businessName, businessType),
	}
	if domain != "" {
		if !strings.HasPrefix(domain, "http") {
			domain = "https://" + domain
		}
		schema["url"] = domain
	}
	return json.Marshal(schema)
}

// ScoreEstimate projects a post-fix score from the impact weights of the
// applied fixes.
type ScoreEstimate struct {
	OriginalScore       float64 `json:"original_score"`
	OriginalPercentage  int     `json:"original_percentage"`
	EstimatedScore      float64 `json:"estimated_score"`
	EstimatedPercentage int     `json:"estimated_percentage"`
	Improvement         string  `json:"improvement"`
	FixesCounted        int     `json:"fixes_counted"`
}

// Impact weights per fix. Total gain is capped at 1.5 and the projected
// score at 2.0 (the per-query scale maximum).
var impactValues = map[string]float64{
	"high":   0.4,
	"medium": 0.2,
	"low":    0.1,
}

const (
	maxTotalImpact = 1.5
	maxScore       = 2.0
)

// EstimatePostFixScore projects what the visibility score becomes after the
// given fixes are applied. originalScore is on the 0-2 per-query scale.
func EstimatePostFixScore(originalScore float64, impacts []string) ScoreEstimate {
	total := 0.0
	for _, impact := range impacts {
		w, ok := impactValues[strings.ToLower(impact)]
		if !ok {
			w = impactValues["medium"]
		}
		total += w
	}
	if total > maxTotalImpact {
		total = maxTotalImpact
	}

	estimated := originalScore + total
	if estimated > maxScore {
		estimated = maxScore
	}

	originalPct := int(originalScore / 2 * 100)
	estimatedPct := int(estimated / 2 * 100)

	return ScoreEstimate{
		OriginalScore:       originalScore,
		OriginalPercentage:  originalPct,
		EstimatedScore:      float64(int(estimated*100+0.5)) / 100,
		EstimatedPercentage: estimatedPct,
		Improvement:         fmt.Sprintf("%d%% -> %d%%", originalPct, estimatedPct),
		FixesCounted:        len(impacts),
	}
}

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
