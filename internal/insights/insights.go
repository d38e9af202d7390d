// Package insights turns raw visibility results into consultant-grade
// narrative: a visibility summary with actionable suggestions, plus "genius"
// insights (patterns, priority opportunities with page blueprints, quick
// wins, and future AI answer previews).
package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ekkoscope/internal/logger"
	"ekkoscope/internal/providers"
	"ekkoscope/internal/report"
	"ekkoscope/internal/tenants"
	"ekkoscope/internal/visibility"
)

type chatCompleter interface {
	Complete(ctx context.Context, messages []providers.ChatMessage, jsonMode bool) (*providers.ChatResult, error)
}

// Generator produces narrative insights from visibility data.
type Generator struct {
	chat chatCompleter
}

// NewGenerator wires a generator. A nil chat client yields deterministic
// fallbacks instead of model output.
func NewGenerator(chat *providers.ChatClient) *Generator {
	if chat == nil {
		return &Generator{}
	}
	return &Generator{chat: chat}
}

// Stats is the compact run summary fed to the consultant prompts.
type Stats struct {
	TotalQueries   int     `json:"total_queries"`
	MentionedCount int     `json:"mentioned_count"`
	PrimaryCount   int     `json:"primary_count"`
	AvgScore       float64 `json:"avg_score"`
}

// Suggestions is the narrative summary plus content recommendations.
type Suggestions struct {
	VisibilitySummary string              `json:"visibility_summary"`
	Suggestions       []report.Suggestion `json:"suggestions"`
}

const suggestionsSystemPrompt = "You are a GEO (Generative Engine Optimization) consultant. You help businesses get recommended more often inside AI-generated answers like ChatGPT or other LLMs."

// GenerateSuggestions asks for 5-10 concrete content recommendations focused
// on the tenant's own domains. Failures degrade to an empty suggestion list.
func (g *Generator) GenerateSuggestions(ctx context.Context, cfg tenants.Config, stats Stats) Suggestions {
	fallback := Suggestions{
		VisibilitySummary: "Unable to generate suggestions at this time.",
		Suggestions:       []report.Suggestion{},
	}
	if g.chat == nil {
		return fallback
	}

	tenantJSON, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fallback
	}
	statsJSON, _ := json.MarshalIndent(stats, "", "  ")

	prompt := fmt.Sprintf(`Here is the tenant profile (JSON):

%s

Here are the current AI visibility results (JSON):

%s

Based on this, generate 5 to 10 concrete, actionable content recommendations to improve this business's visibility in AI-generated answers.

Rules:
- Focus on changes to the business's OWN domains: %s.
- Each recommendation should have:
  - "title": a short label
  - "type": one of ["new_page", "update_page", "faq", "authority", "branding"]
  - "details": 2-4 sentences explaining WHAT to create/change and WHY it helps AI mention them more.
- Output strict JSON of this structure:

{
  "visibility_summary": "One-paragraph human-readable summary",
  "suggestions": [
    {"title": "...", "type": "...", "details": "..."}
  ]
}`, tenantJSON, statsJSON, strings.Join(cfg.Domains, ", "))

	answer, err := g.chat.Complete(ctx, []providers.ChatMessage{
		{Role: "system", Content: suggestionsSystemPrompt},
		{Role: "user", Content: prompt},
	}, true)
	if err != nil {
		logger.Get().Warnw("suggestion generation failed", "tenant", cfg.ID, "error", err)
		return fallback
	}

	var out Suggestions
	if err := json.Unmarshal([]byte(providers.ExtractJSON(answer.Content)), &out); err != nil {
		logger.Get().Warnw("could not parse suggestions", "tenant", cfg.ID, "error", err)
		return fallback
	}
	if out.Suggestions == nil {
		out.Suggestions = []report.Suggestion{}
	}
	return out
}

// PageRecommendation is a full content blueprint for one opportunity.
type PageRecommendation struct {
	Slug          string   `json:"slug"`
	SEOTitle      string   `json:"seo_title"`
	H1            string   `json:"h1"`
	Outline       []string `json:"outline"`
	InternalLinks []string `json:"internal_links,omitempty"`
}

// Pattern is one observed visibility pattern with its evidence.
type Pattern struct {
	Summary     string   `json:"summary"`
	Evidence    []string `json:"evidence"`
	Implication string   `json:"implication"`
}

// Opportunity is a high-value query worth targeting with a dedicated page.
type Opportunity struct {
	Query           string             `json:"query"`
	CurrentScore    int                `json:"current_score"`
	TopCompetitors  []string           `json:"top_competitors"`
	IntentValue     int                `json:"intent_value"`
	Difficulty      string             `json:"difficulty"`
	Reason          string             `json:"reason"`
	RecommendedPage PageRecommendation `json:"recommended_page"`
}

// FutureAnswer previews how an AI assistant would answer once the gaps close.
type FutureAnswer struct {
	Query         string `json:"query"`
	ExampleAnswer string `json:"example_answer"`
}

// Genius is the full strategist output.
type Genius struct {
	Patterns              []Pattern      `json:"patterns"`
	PriorityOpportunities []Opportunity  `json:"priority_opportunities"`
	QuickWins             []string       `json:"quick_wins"`
	FutureAIAnswers       []FutureAnswer `json:"future_ai_answers"`
}

const geniusSystemPrompt = `You are an expert GEO (Generative Engine Optimization) strategist analyzing AI visibility data for a specific business.

Your job is to produce SPECIFIC, ACTIONABLE insights that reference:
- The actual business name, domains, and geographic focus
- The actual queries tested and their scores
- The actual competitors that appeared

CRITICAL RULES:
1. NO generic advice like "improve SEO" or "create better content"
2. Every insight MUST reference specific queries, competitors, or data from the analysis
3. Page blueprints MUST include real slugs, titles, and outlines specific to this business
4. Quick wins MUST be concrete actions that can be done this week
5. Future AI answers MUST explicitly name the tenant as the recommended business

Output ONLY valid JSON matching this exact structure:

{
  "patterns": [
    {"summary": "One-line pattern observation", "evidence": ["Specific evidence from queries/scores"], "implication": "What this means for the business"}
  ],
  "priority_opportunities": [
    {
      "query": "The exact query text",
      "current_score": 0,
      "top_competitors": ["Competitor names from data"],
      "intent_value": 8,
      "difficulty": "low|medium|high",
      "reason": "Why this matters for this specific business",
      "recommended_page": {
        "slug": "/specific-slug-for-this-content",
        "seo_title": "Title with business name and location",
        "h1": "H1 heading",
        "outline": ["Section 1", "Section 2", "Section 3", "Section 4", "CTA"],
        "internal_links": ["Link suggestion 1", "Link suggestion 2"]
      }
    }
  ],
  "quick_wins": ["Specific action 1 with exact details", "Specific action 2 with exact details"],
  "future_ai_answers": [
    {"query": "Exact query text", "example_answer": "A realistic AI response that recommends this business by name..."}
  ]
}

Generate 2-3 patterns, 2-3 priority opportunities with full page blueprints, 3-5 quick wins, and 2 future AI answer previews.`

type geniusQueryContext struct {
	Query       string   `json:"query"`
	Score       int      `json:"score"`
	Mentioned   bool     `json:"mentioned"`
	Primary     bool     `json:"primary"`
	Competitors []string `json:"competitors"`
}

// GenerateGenius produces strategist insights from the visibility result.
// Any failure yields an empty (never nil) structure.
func (g *Generator) GenerateGenius(ctx context.Context, cfg tenants.Config, result *visibility.Result, stats Stats) Genius {
	empty := Genius{
		Patterns:              []Pattern{},
		PriorityOpportunities: []Opportunity{},
		QuickWins:             []string{},
		FutureAIAnswers:       []FutureAnswer{},
	}
	if g.chat == nil || result == nil {
		return empty
	}

	queries := make([]geniusQueryContext, 0, len(result.Queries))
	for _, agg := range result.Queries {
		score := agg.Score()
		queries = append(queries, geniusQueryContext{
			Query:       agg.Query,
			Score:       score,
			Mentioned:   agg.TargetFoundCount() > 0,
			Primary:     score == 2,
			Competitors: agg.Competitors(),
		})
	}

	contextJSON, err := json.MarshalIndent(map[string]any{
		"tenant_name":   cfg.DisplayName,
		"domains":       cfg.Domains,
		"geo_focus":     cfg.GeoFocus,
		"brand_aliases": cfg.BrandAliases,
		"summary": map[string]any{
			"total_queries":   stats.TotalQueries,
			"avg_score":       stats.AvgScore,
			"mentioned_count": stats.MentionedCount,
			"primary_count":   stats.PrimaryCount,
		},
		"queries":         queries,
		"top_competitors": result.Summary.TopCompetitors,
	}, "", "  ")
	if err != nil {
		return empty
	}

	geo := strings.Join(cfg.GeoFocus, ", ")
	if geo == "" {
		geo = "their local area"
	}
	domains := strings.Join(cfg.Domains, ", ")
	if domains == "" {
		domains = "not specified"
	}

	prompt := fmt.Sprintf(`Analyze this GEO visibility data and generate genius insights:

%s

Remember:
- %s operates in %s
- Their domains are: %s
- Reference the ACTUAL queries and competitors from the data above
- Make every recommendation specific to THIS business`, contextJSON, cfg.DisplayName, geo, domains)

	answer, err := g.chat.Complete(ctx, []providers.ChatMessage{
		{Role: "system", Content: geniusSystemPrompt},
		{Role: "user", Content: prompt},
	}, true)
	if err != nil {
		logger.Get().Warnw("genius insight generation failed", "tenant", cfg.ID, "error", err)
		return empty
	}

	var out Genius
	if err := json.Unmarshal([]byte(providers.ExtractJSON(answer.Content)), &out); err != nil {
		logger.Get().Warnw("could not parse genius insights", "tenant", cfg.ID, "error", err)
		return empty
	}
	if out.Patterns == nil {
		out.Patterns = []Pattern{}
	}
	if out.PriorityOpportunities == nil {
		out.PriorityOpportunities = []Opportunity{}
	}
	if out.QuickWins == nil {
		out.QuickWins = []string{}
	}
	if out.FutureAIAnswers == nil {
		out.FutureAIAnswers = []FutureAnswer{}
	}
	return out
}
