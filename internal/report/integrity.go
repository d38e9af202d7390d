// Package report renders audit results into the client-facing report
// artifacts (PDF plus a plain-text twin) and enforces the integrity
// guardrail that keeps narrative text aligned with the computed score.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ekkoscope/internal/logger"
	"ekkoscope/internal/providers"
)

// Risk levels derived from the calculated visibility score.
const (
	RiskCritical = "CRITICAL"
	RiskHigh     = "HIGH"
	RiskModerate = "MODERATE"
	RiskLow      = "LOW"
)

// QueryOutcome is the per-query fact the guardrail trusts: whether any
// provider surfaced the target business.
type QueryOutcome struct {
	Query       string
	TargetFound bool
	Score       int
}

// TrueScore is the deterministically computed visibility score. No model
// output feeds into it.
type TrueScore struct {
	CalculatedScore float64 `json:"calculated_score"`
	ClientMentions  int     `json:"client_mentions"`
	TotalQueries    int     `json:"total_queries"`
	Status          string  `json:"status"`
	RiskLevel       string  `json:"risk_level"`
}

// CalculateTrueScore computes mentions/total*100 from raw query outcomes,
// clamped to [0, 100], and assigns the risk level.
func CalculateTrueScore(outcomes []QueryOutcome) TrueScore {
	if len(outcomes) == 0 {
		return TrueScore{Status: "NO_DATA", RiskLevel: RiskCritical}
	}

	mentions := 0
	for _, o := range outcomes {
		if o.TargetFound {
			mentions++
		}
	}

	score := float64(mentions) / float64(len(outcomes)) * 100
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	score = round1(score)

	var risk string
	switch {
	case score == 0:
		risk = RiskCritical
	case score < 20:
		risk = RiskHigh
	case score < 50:
		risk = RiskModerate
	default:
		risk = RiskLow
	}

	return TrueScore{
		CalculatedScore: score,
		ClientMentions:  mentions,
		TotalQueries:    len(outcomes),
		Status:          "CALCULATED",
		RiskLevel:       risk,
	}
}

// Suggestion is one recommended action in the report.
type Suggestion struct {
	Title    string `json:"title"`
	Priority string `json:"priority,omitempty"`
	Details  string `json:"details,omitempty"`
	Type     string `json:"type,omitempty"`
}

// IntegrityCheck records what the guardrail did to a report.
type IntegrityCheck struct {
	Verified             bool     `json:"verified"`
	CalculatedScore      float64  `json:"calculated_score"`
	CorrectionsMade      []string `json:"corrections_made"`
	RiskLevel            string   `json:"risk_level"`
	NarrativeRegenerated bool     `json:"narrative_regenerated,omitempty"`
	RegenerationReason   string   `json:"regeneration_reason,omitempty"`
}

// Content is the narrative portion of a report, subject to correction.
type Content struct {
	VisibilityScore  float64        `json:"visibility_score"`
	VisibilityText   string         `json:"visibility_text"`
	ExecutiveSummary string         `json:"executive_summary"`
	StatusOverride   string         `json:"status_override,omitempty"`
	Suggestions      []Suggestion   `json:"recommendations"`
	Integrity        IntegrityCheck `json:"integrity_check"`
}

// Narratives a model must never attach to a zero-score report.
var dangerPhrases = []string{
	"dominating", "strong presence", "excellent visibility",
	"well-positioned", "leading", "high visibility",
	"strong foothold", "commanding", "impressive",
}

var positivePhrases = []string{
	"strong", "leading", "dominating", "excellent", "well-positioned",
}

// OverrideHallucinatedContent rewrites the parts of a report that contradict
// the calculated score. A zero score forces the critical narrative and
// prepends an emergency recommendation; a score under 20 caps any inflated
// headline number.
func OverrideHallucinatedContent(content *Content, ts TrueScore) {
	check := IntegrityCheck{
		Verified:        true,
		CalculatedScore: ts.CalculatedScore,
		CorrectionsMade: []string{},
		RiskLevel:       ts.RiskLevel,
	}

	if ts.CalculatedScore == 0 {
		content.VisibilityScore = 0
		content.VisibilityText = "0% - Critical Risk"
		content.StatusOverride = "INVISIBLE"
		check.CorrectionsMade = append(check.CorrectionsMade, "Forced 0% visibility due to zero signals")

		summary := strings.ToLower(content.ExecutiveSummary)
		for _, phrase := range dangerPhrases {
			if strings.Contains(summary, phrase) {
				content.ExecutiveSummary = "CRITICAL ALERT: Zero visibility detected. " +
					"Your business received NO mentions across all AI-assisted queries tested. " +
					"Competitors are capturing 100% of AI recommendation share in your market. " +
					"Immediate strategic intervention required."
				check.CorrectionsMade = append(check.CorrectionsMade, "Overwrote hallucinated positive summary")
				break
			}
		}

		if len(content.Suggestions) > 0 {
			alert := Suggestion{
				Title:    "EMERGENCY: Zero AI Visibility",
				Priority: "CRITICAL",
				Details:  "Your business is completely invisible to AI assistants. This requires immediate action.",
			}
			content.Suggestions = append([]Suggestion{alert}, content.Suggestions...)
			check.CorrectionsMade = append(check.CorrectionsMade, "Added critical alert to recommendations")
		}
	} else if ts.CalculatedScore < 20 && content.VisibilityScore > 50 {
		check.CorrectionsMade = append(check.CorrectionsMade,
			fmt.Sprintf("Corrected inflated score from %.1f%% to %.1f%%", content.VisibilityScore, ts.CalculatedScore))
		content.VisibilityScore = ts.CalculatedScore
		content.VisibilityText = fmt.Sprintf("%.1f%% - High Risk", ts.CalculatedScore)
	}

	content.Integrity = check
}

// CorrectedNarrative produces a template-based executive summary that always
// matches the calculated score. No model involved.
func CorrectedNarrative(ts TrueScore, businessName string) string {
	score := ts.CalculatedScore
	mentions := ts.ClientMentions
	total := ts.TotalQueries

	switch {
	case score == 0:
		return fmt.Sprintf(
			"CRITICAL VISIBILITY FAILURE: %s achieved ZERO mentions across %d AI-assisted queries tested. "+
				"Your business is completely invisible to AI recommendation systems. Competitors are capturing "+
				"100%% of AI-driven discovery in your market. This represents a severe strategic vulnerability "+
				"requiring immediate intervention.",
			businessName, total)
	case score < 10:
		return fmt.Sprintf(
			"SEVERE VISIBILITY DEFICIT: %s was mentioned in only %d of %d queries (%.1f%%). At this level, "+
				"AI assistants are actively recommending competitors over your business in nearly all scenarios. "+
				"Urgent content and technical optimization required.",
			businessName, mentions, total, score)
	case score < 25:
		return fmt.Sprintf(
			"LOW VISIBILITY WARNING: %s appeared in %d of %d queries (%.1f%%). While not invisible, your "+
				"presence in AI recommendations is significantly below competitive levels. Strategic improvements "+
				"needed to capture AI-driven discovery opportunities.",
			businessName, mentions, total, score)
	case score < 50:
		return fmt.Sprintf(
			"MODERATE VISIBILITY: %s was found in %d of %d queries (%.1f%%). Your business has emerging AI "+
				"visibility but remains below the competitive threshold. Targeted optimizations can improve your "+
				"AI recommendation share.",
			businessName, mentions, total, score)
	case score < 75:
		return fmt.Sprintf(
			"GOOD VISIBILITY: %s achieved mentions in %d of %d queries (%.1f%%). Your business maintains solid "+
				"AI visibility with room for improvement. Continue optimizing to maintain competitive position in "+
				"AI-driven discovery.",
			businessName, mentions, total, score)
	default:
		return fmt.Sprintf(
			"STRONG VISIBILITY: %s was mentioned in %d of %d queries (%.1f%%). Your business demonstrates "+
				"excellent AI visibility, appearing prominently in AI assistant recommendations. Focus on "+
				"maintaining this position and monitoring competitor activity.",
			businessName, mentions, total, score)
	}
}

// ContentGenerator produces text from a prompt. Satisfied by
// *providers.GeminiClient.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

var _ ContentGenerator = (*providers.GeminiClient)(nil)

type sanityVerdict struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// SanityCheck asks a fast model whether the narrative contradicts the
// calculated metrics. Any failure of the check itself passes the report
// through: the guardrail must not block delivery.
func SanityCheck(ctx context.Context, gen ContentGenerator, content *Content, ts TrueScore) (bool, string) {
	if gen == nil {
		return true, "Sanity check skipped (not configured)"
	}

	recs, _ := json.Marshal(firstSuggestions(content.Suggestions, 3))
	prompt := fmt.Sprintf(`You are a report integrity auditor. Review this AI visibility report data for logical consistency.

CALCULATED METRICS (Ground Truth):
- Visibility Score: %.1f%%
- Client Mentions: %d out of %d queries
- Risk Level: %s

REPORT CONTENT TO VERIFY:
- Executive Summary: %s
- Top Recommendations: %s

INTEGRITY RULES:
1. If Score is 0%% but summary mentions "strong", "leading", "dominating" -> REJECT
2. If Score < 20%% but summary is overly optimistic -> REJECT
3. Summary tone must match the calculated score severity

Respond with ONLY a JSON object:
{"status": "PASS" or "REJECT", "reason": "brief explanation"}`,
		ts.CalculatedScore, ts.ClientMentions, ts.TotalQueries, ts.RiskLevel,
		truncateStr(content.ExecutiveSummary, 500), string(recs))

	raw, err := gen.GenerateContent(ctx, prompt)
	if err != nil {
		logger.Get().Warnw("integrity sanity check failed", "error", err)
		return true, fmt.Sprintf("Sanity check error: %v", err)
	}

	var verdict sanityVerdict
	if err := json.Unmarshal([]byte(providers.ExtractJSON(raw)), &verdict); err != nil {
		if strings.Contains(strings.ToUpper(raw), "REJECT") {
			return false, truncateStr(raw, 200)
		}
		return true, "Parsed as pass"
	}

	if strings.EqualFold(verdict.Status, "REJECT") {
		logger.Get().Warnw("integrity sanity check rejected report", "reason", verdict.Reason)
		return false, verdict.Reason
	}
	return true, verdict.Reason
}

// VerifyIntegrity runs the full guardrail: compute the true score, override
// contradictions, sanity-check the narrative, and regenerate it from
// templates when the check rejects or the risk is critical.
func VerifyIntegrity(ctx context.Context, gen ContentGenerator, content *Content, outcomes []QueryOutcome, businessName string) TrueScore {
	ts := CalculateTrueScore(outcomes)
	logger.Get().Infow("report integrity check",
		"business", businessName,
		"score", ts.CalculatedScore,
		"mentions", ts.ClientMentions,
		"queries", ts.TotalQueries,
	)

	OverrideHallucinatedContent(content, ts)

	needsFix := false
	reason := ""

	if passed, why := SanityCheck(ctx, gen, content, ts); !passed {
		needsFix = true
		reason = why
	} else if ts.RiskLevel == RiskCritical {
		needsFix = true
		reason = "Critical risk level"
	} else if ts.CalculatedScore < 20 {
		summary := strings.ToLower(content.ExecutiveSummary)
		for _, phrase := range positivePhrases {
			if strings.Contains(summary, phrase) {
				needsFix = true
				reason = "Mismatched positive summary for low score"
				break
			}
		}
	}

	if needsFix {
		content.ExecutiveSummary = CorrectedNarrative(ts, businessName)
		content.Integrity.NarrativeRegenerated = true
		content.Integrity.RegenerationReason = reason
	}

	return ts
}

func firstSuggestions(s []Suggestion, n int) []Suggestion {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func truncateStr(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
