// Package reportparse extracts structured issues, scores, competitors, and
// recommendations from a generated report's text artifact. The fix planner
// consumes the result.
package reportparse

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// BusinessInfo is the report header data.
type BusinessInfo struct {
	BusinessName string `json:"business_name"`
	BusinessType string `json:"business_type"`
	Domain       string `json:"domain"`
	ReportDate   string `json:"report_date"`
}

// ScoreInfo is the parsed score block. OverallScore is on the 0-2 per-query
// scale; VisibilityPercentage is the 0-100 headline number.
type ScoreInfo struct {
	OverallScore         float64     `json:"overall_score"`
	VisibilityPercentage int         `json:"visibility_percentage"`
	MentionedCount       int         `json:"mentioned_count"`
	PrimaryCount         int         `json:"primary_count"`
	TotalQueries         int         `json:"total_queries"`
	ScoreDistribution    map[int]int `json:"score_distribution"`
}

// Issue is an actionable visibility problem detected in the report.
type Issue struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Count       int    `json:"count,omitempty"`
	FixType     string `json:"fix_type"`
}

// Competitor is a competitor reference found in the report.
type Competitor struct {
	Name        string `json:"name"`
	Mentions    int    `json:"mentions"`
	ThreatLevel string `json:"threat_level"`
}

// QueryResult is one scored query line.
type QueryResult struct {
	Query    string `json:"query"`
	Score    int    `json:"score"`
	NeedsFix bool   `json:"needs_fix"`
}

// Recommendation is an existing recommendation parsed from the report.
type Recommendation struct {
	Text     string `json:"text"`
	Priority string `json:"priority"`
}

// Blueprint is a suggested page found in the blueprint section.
type Blueprint struct {
	PageTitle string `json:"page_title"`
	Status    string `json:"status"`
	Priority  string `json:"priority"`
}

// Analysis is the complete parse result.
type Analysis struct {
	ParsedAt        time.Time        `json:"parsed_at"`
	Path            string           `json:"path,omitempty"`
	BusinessInfo    BusinessInfo     `json:"business_info"`
	Score           ScoreInfo        `json:"visibility_score"`
	Issues          []Issue          `json:"issues"`
	Competitors     []Competitor     `json:"competitors"`
	Queries         []QueryResult    `json:"queries"`
	Recommendations []Recommendation `json:"recommendations"`
	Blueprints      []Blueprint      `json:"page_blueprints"`
}

var (
	scoreRe        = regexp.MustCompile(`(?i)(?:Overall|Average|Visibility)\s*(?:Score)?[:\s]*(\d+(?:\.\d+)?)\s*(?:/\s*2|%)?`)
	mentionedRe    = regexp.MustCompile(`(?i)Mentioned[:\s]*(\d+)`)
	primaryRe      = regexp.MustCompile(`(?i)Primary[:\s]*(\d+)`)
	queriesTotalRe = regexp.MustCompile(`(?i)(?:Total\s*)?Queries[:\s]*(\d+)`)
	domainRe       = regexp.MustCompile(`^(?:https?://|www\.)`)

	zeroScoreRe = regexp.MustCompile(`(?i)(?:Score:\s*0|visibility.*?0%|not\s*mentioned|zero\s*visibility)`)

	competitorSectionRe = regexp.MustCompile(`(?is)Competitor(?:s|.*?Analysis|.*?Landscape|.*?Overview)(.*?)(?:Recommendations|Page\s*Blueprints|Genius|$)`)
	numberedLineRe      = regexp.MustCompile(`^\d+[.)]\s*`)
	mentionTallyRe      = regexp.MustCompile(`(?i)([a-zA-Z][\w&'.]*(?:\s+[\w&'.]+){0,4})\s*[-:]\s*(\d+)\s*mention`)

	queryScoreRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)"([^"]+)"\s*[-:]\s*Score[:\s]*(\d)`),
		regexp.MustCompile(`(?i)Query[:\s]*([^\n]+?)\s*Score[:\s]*(\d)`),
	}

	recSectionRe    = regexp.MustCompile(`(?is)Recommendations?(.*?)(?:Action\s*Plan|Next\s*Steps|Page\s*Blueprints|Appendix|$)`)
	bulletPrefixRe  = regexp.MustCompile(`^[\d\-*.)\x{2022}]+\s*`)
	blueprintSecRe  = regexp.MustCompile(`(?is)Page\s*Blueprints?(.*?)(?:Roadmap|Action\s*Plan|Appendix|$)`)
	blueprintPageRe = regexp.MustCompile(`(?i)(?:Page|Create)[:\s]*([^\n]+)`)
)

var missingPatterns = []struct {
	re          *regexp.Regexp
	issueType   string
	description string
}{
	{regexp.MustCompile(`(?i)missing\s*(?:meta|description)`), "missing_meta", "SEO meta descriptions not optimized for AI"},
	{regexp.MustCompile(`(?i)no\s*(?:schema|structured\s*data)`), "missing_schema", "No schema markup for AI understanding"},
	{regexp.MustCompile(`(?i)missing\s*(?:local|geo)\s*(?:seo|signals)`), "missing_local_seo", "Missing local SEO signals"},
	{regexp.MustCompile(`(?i)(?:no|missing)\s*faq`), "missing_faq", "No FAQ section for AI to reference"},
	{regexp.MustCompile(`(?i)(?:thin|weak|poor)\s*content`), "thin_content", "Content too thin for AI visibility"},
	{regexp.MustCompile(`(?i)(?:no|missing)\s*keywords?`), "missing_keywords", "Missing target keywords"},
}

// ParseFile reads a report text artifact and parses it.
func ParseFile(path string) (*Analysis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("report not found: %w", err)
	}
	analysis := Parse(string(raw))
	analysis.Path = path
	return analysis, nil
}

// Parse extracts a full analysis from report text.
func Parse(text string) *Analysis {
	return &Analysis{
		ParsedAt:        time.Now().UTC(),
		BusinessInfo:    parseBusinessInfo(text),
		Score:           parseScore(text),
		Issues:          parseIssues(text),
		Competitors:     parseCompetitors(text),
		Queries:         parseQueries(text),
		Recommendations: parseRecommendations(text),
		Blueprints:      parseBlueprints(text),
	}
}

func parseBusinessInfo(text string) BusinessInfo {
	var info BusinessInfo
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.Contains(line, "AI Visibility Report") || strings.Contains(line, "GEO Report"):
			if i > 0 && info.BusinessName == "" {
				info.BusinessName = strings.TrimSpace(lines[i-1])
			}
		case strings.HasPrefix(trimmed, "Generated:"):
			info.ReportDate = strings.TrimSpace(strings.TrimPrefix(trimmed, "Generated:"))
		case strings.HasPrefix(trimmed, "Business Type:"):
			info.BusinessType = strings.TrimSpace(strings.TrimPrefix(trimmed, "Business Type:"))
		case domainRe.MatchString(trimmed):
			if info.Domain == "" {
				info.Domain = trimmed
			}
		}
	}
	return info
}

func parseScore(text string) ScoreInfo {
	score := ScoreInfo{ScoreDistribution: map[int]int{}}

	if m := scoreRe.FindStringSubmatch(text); m != nil {
		v, _ := strconv.ParseFloat(m[1], 64)
		if v > 2 {
			score.VisibilityPercentage = int(v)
			score.OverallScore = v / 100 * 2
		} else {
			score.OverallScore = v
			score.VisibilityPercentage = int(v / 2 * 100)
		}
	}
	if m := mentionedRe.FindStringSubmatch(text); m != nil {
		score.MentionedCount, _ = strconv.Atoi(m[1])
	}
	if m := primaryRe.FindStringSubmatch(text); m != nil {
		score.PrimaryCount, _ = strconv.Atoi(m[1])
	}
	if m := queriesTotalRe.FindStringSubmatch(text); m != nil {
		score.TotalQueries, _ = strconv.Atoi(m[1])
	}
	for _, v := range []int{0, 1, 2} {
		re := regexp.MustCompile(fmt.Sprintf(`(?i)Score\s*%d[:\s]*(\d+)`, v))
		if m := re.FindStringSubmatch(text); m != nil {
			score.ScoreDistribution[v], _ = strconv.Atoi(m[1])
		}
	}
	return score
}

func parseIssues(text string) []Issue {
	var issues []Issue

	if zeros := zeroScoreRe.FindAllString(text, -1); len(zeros) > 0 {
		issues = append(issues, Issue{
			Type:        "zero_visibility",
			Severity:    "critical",
			Description: "Business has 0% visibility in AI responses",
			Count:       len(zeros),
			FixType:     "content_optimization",
		})
	}

	for _, p := range missingPatterns {
		if p.re.MatchString(text) {
			fixType := "content_optimization"
			if p.issueType == "missing_schema" || p.issueType == "missing_meta" {
				fixType = "seo_optimization"
			}
			issues = append(issues, Issue{
				Type:        p.issueType,
				Severity:    "high",
				Description: p.description,
				FixType:     fixType,
			})
		}
	}

	if len(issues) == 0 {
		score := parseScore(text)
		if score.OverallScore < 0.5 {
			issues = append(issues, Issue{
				Type:        "low_visibility",
				Severity:    "critical",
				Description: fmt.Sprintf("Overall visibility score is %.2f/2 - needs comprehensive optimization", score.OverallScore),
				FixType:     "comprehensive",
			})
		}
		if score.VisibilityPercentage < 30 {
			issues = append(issues, Issue{
				Type:        "poor_ai_presence",
				Severity:    "high",
				Description: fmt.Sprintf("Only %d%% visibility across AI platforms", score.VisibilityPercentage),
				FixType:     "content_optimization",
			})
		}
	}

	return issues
}

func parseCompetitors(text string) []Competitor {
	byName := make(map[string]*Competitor)
	var order []string

	add := func(name string, mentions int) {
		name = strings.TrimSpace(name)
		if name == "" || len(name) >= 100 {
			return
		}
		lower := strings.ToLower(name)
		for _, skip := range []string{"score", "visibility", "mentioned"} {
			if strings.Contains(lower, skip) {
				return
			}
		}
		if existing, ok := byName[lower]; ok {
			if mentions > existing.Mentions {
				existing.Mentions = mentions
				existing.ThreatLevel = threatLevel(mentions)
			}
			return
		}
		byName[lower] = &Competitor{Name: name, Mentions: mentions, ThreatLevel: threatLevel(mentions)}
		order = append(order, lower)
	}

	if m := competitorSectionRe.FindStringSubmatch(text); m != nil {
		for _, line := range strings.Split(m[1], "\n") {
			line = strings.TrimSpace(line)
			if len(line) <= 3 || !numberedLineRe.MatchString(line) {
				continue
			}
			entry := numberedLineRe.ReplaceAllString(line, "")
			if tally := mentionTallyRe.FindStringSubmatch(entry); tally != nil {
				count, _ := strconv.Atoi(tally[2])
				add(tally[1], count)
			} else {
				add(entry, 0)
			}
		}
	}

	for _, tally := range mentionTallyRe.FindAllStringSubmatch(text, -1) {
		count, _ := strconv.Atoi(tally[2])
		add(tally[1], count)
	}

	competitors := make([]Competitor, 0, len(order))
	for _, key := range order {
		competitors = append(competitors, *byName[key])
		if len(competitors) == 15 {
			break
		}
	}
	return competitors
}

func threatLevel(mentions int) string {
	switch {
	case mentions == 0:
		return "unknown"
	case mentions > 5:
		return "high"
	default:
		return "medium"
	}
}

func parseQueries(text string) []QueryResult {
	var queries []QueryResult
	seen := make(map[string]bool)

	for _, re := range queryScoreRes {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			queryText := strings.TrimSpace(m[1])
			if len(queryText) <= 10 || len(queryText) >= 200 || seen[queryText] {
				continue
			}
			seen[queryText] = true
			score, _ := strconv.Atoi(m[2])
			queries = append(queries, QueryResult{
				Query:    queryText,
				Score:    score,
				NeedsFix: score == 0,
			})
			if len(queries) == 30 {
				return queries
			}
		}
	}
	return queries
}

func parseRecommendations(text string) []Recommendation {
	var recs []Recommendation

	m := recSectionRe.FindStringSubmatch(text)
	if m == nil {
		return recs
	}

	for _, line := range strings.Split(m[1], "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !bulletPrefixRe.MatchString(line) && len(line) <= 20 {
			continue
		}
		clean := strings.TrimSpace(bulletPrefixRe.ReplaceAllString(line, ""))
		if len(clean) <= 15 || len(clean) >= 300 {
			continue
		}

		priority := "medium"
		lower := strings.ToLower(clean)
		for _, urgent := range []string{"urgent", "critical", "immediate"} {
			if strings.Contains(lower, urgent) {
				priority = "high"
				break
			}
		}
		recs = append(recs, Recommendation{Text: clean, Priority: priority})
		if len(recs) == 20 {
			break
		}
	}
	return recs
}

func parseBlueprints(text string) []Blueprint {
	var blueprints []Blueprint

	m := blueprintSecRe.FindStringSubmatch(text)
	if m == nil {
		return blueprints
	}

	for _, page := range blueprintPageRe.FindAllStringSubmatch(m[1], -1) {
		title := strings.TrimSpace(page[1])
		if len(title) <= 10 {
			continue
		}
		blueprints = append(blueprints, Blueprint{
			PageTitle: title,
			Status:    "not_created",
			Priority:  "high",
		})
		if len(blueprints) == 7 {
			break
		}
	}
	return blueprints
}
