package report

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// QueryRow is one analyzed query in the report.
type QueryRow struct {
	Query       string
	Score       int
	Intent      string
	TargetFound bool
}

// CompetitorRow is a competitor mention tally in the report.
type CompetitorRow struct {
	Name  string
	Count int
}

// Data is everything the report builders need.
type Data struct {
	BusinessName string
	BusinessType string
	Domain       string
	GeneratedAt  time.Time
	TrueScore    TrueScore
	Content      Content
	Queries      []QueryRow
	Competitors  []CompetitorRow
	Blueprints   []string
	SiteSummary  string
}

// ScoreDistribution tallies queries per score value (0, 1, 2).
func (d *Data) ScoreDistribution() map[int]int {
	dist := map[int]int{0: 0, 1: 0, 2: 0}
	for _, q := range d.Queries {
		if q.Score >= 0 && q.Score <= 2 {
			dist[q.Score]++
		}
	}
	return dist
}

// MentionedCount counts queries where the business appeared at all.
func (d *Data) MentionedCount() int {
	count := 0
	for _, q := range d.Queries {
		if q.Score >= 1 {
			count++
		}
	}
	return count
}

// PrimaryCount counts queries where the business was the top recommendation.
func (d *Data) PrimaryCount() int {
	count := 0
	for _, q := range d.Queries {
		if q.Score == 2 {
			count++
		}
	}
	return count
}

// BuildText renders the plain-text twin of the PDF report. The fix planner
// parses this artifact, so section headings and the per-query line format
// are load-bearing.
func BuildText(d *Data) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s\n", d.BusinessName)
	sb.WriteString("AI Visibility Report\n")
	fmt.Fprintf(&sb, "Generated: %s\n", d.GeneratedAt.UTC().Format("January 2, 2006 at 15:04 UTC"))
	if d.Domain != "" {
		fmt.Fprintf(&sb, "%s\n", normalizeDomain(d.Domain))
	}
	if d.BusinessType != "" {
		fmt.Fprintf(&sb, "Business Type: %s\n", d.BusinessType)
	}
	sb.WriteString("\n")

	sb.WriteString("AI Visibility Summary\n")
	fmt.Fprintf(&sb, "Visibility Score: %.1f%%\n", d.TrueScore.CalculatedScore)
	fmt.Fprintf(&sb, "Risk Level: %s\n", d.TrueScore.RiskLevel)
	fmt.Fprintf(&sb, "Total Queries: %d\n", d.TrueScore.TotalQueries)
	fmt.Fprintf(&sb, "Mentioned: %d\n", d.MentionedCount())
	fmt.Fprintf(&sb, "Primary: %d\n", d.PrimaryCount())

	dist := d.ScoreDistribution()
	for _, score := range []int{0, 1, 2} {
		fmt.Fprintf(&sb, "Score %d: %d\n", score, dist[score])
	}
	sb.WriteString("\n")

	if d.Content.ExecutiveSummary != "" {
		sb.WriteString("Executive Summary\n")
		sb.WriteString(d.Content.ExecutiveSummary)
		sb.WriteString("\n\n")
	}

	if len(d.Queries) > 0 {
		sb.WriteString("Per-Query Analysis\n")
		for _, q := range d.Queries {
			fmt.Fprintf(&sb, "%q - Score: %d\n", q.Query, q.Score)
		}
		sb.WriteString("\n")
	}

	if len(d.Competitors) > 0 {
		sb.WriteString("Competitor Landscape\n")
		for i, c := range d.Competitors {
			fmt.Fprintf(&sb, "%d. %s - %d mentions\n", i+1, c.Name, c.Count)
		}
		sb.WriteString("\n")
	}

	if len(d.Content.Suggestions) > 0 {
		sb.WriteString("Recommendations\n")
		for _, s := range d.Content.Suggestions {
			line := s.Title
			if s.Details != "" {
				line += ": " + s.Details
			}
			fmt.Fprintf(&sb, "- %s\n", line)
		}
		sb.WriteString("\n")
	}

	if len(d.Blueprints) > 0 {
		sb.WriteString("Page Blueprints\n")
		for _, bp := range d.Blueprints {
			fmt.Fprintf(&sb, "Page: %s\n", bp)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func normalizeDomain(domain string) string {
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return domain
	}
	return "https://" + domain
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
