package visibility

import (
	"math"
	"sort"
	"strings"
)

const topCompetitorLimit = 10

// ComputeSummary rolls per-query aggregates up into provider statistics,
// competitor tallies, and an overall target-found percentage.
func ComputeSummary(aggregates []QueryAggregate, businessName string) Summary {
	summary := Summary{
		TotalQueries:         len(aggregates),
		ProviderStats:        make(map[string]*ProviderStats),
		CompetitorByProvider: make(map[string][]CompetitorCount),
		IntentBreakdown:      make(map[string]int),
		TopCompetitors:       []CompetitorCount{},
	}

	competitorCounts := make(map[string]int)
	competitorByProvider := make(map[string]map[string]int)
	targetLower := strings.ToLower(businessName)

	for _, agg := range aggregates {
		if agg.Intent != "" {
			summary.IntentBreakdown[agg.Intent]++
		}

		queryTargetFound := false
		for _, pv := range agg.Providers {
			stats, ok := summary.ProviderStats[pv.Provider]
			if !ok {
				stats = &ProviderStats{}
				summary.ProviderStats[pv.Provider] = stats
				competitorByProvider[pv.Provider] = make(map[string]int)
			}

			stats.TotalProbes++
			if pv.Success {
				stats.SuccessfulProbes++
			}
			if pv.TargetFound {
				stats.TargetFound++
				queryTargetFound = true
			}

			for _, brand := range pv.Brands {
				if strings.ToLower(brand.Name) == targetLower {
					continue
				}
				competitorCounts[brand.Name]++
				competitorByProvider[pv.Provider][brand.Name]++
			}
		}

		if queryTargetFound {
			summary.OverallTargetFound++
		}
	}

	for _, stats := range summary.ProviderStats {
		if stats.SuccessfulProbes > 0 {
			stats.TargetPercent = round1(float64(stats.TargetFound) / float64(stats.SuccessfulProbes) * 100)
		}
	}

	if summary.TotalQueries > 0 {
		summary.OverallTargetPercent = round1(float64(summary.OverallTargetFound) / float64(summary.TotalQueries) * 100)
	}

	for _, cc := range rankCounts(competitorCounts, topCompetitorLimit) {
		if summary.TotalQueries > 0 {
			cc.Percent = round1(float64(cc.Count) / float64(summary.TotalQueries) * 100)
		}
		summary.TopCompetitors = append(summary.TopCompetitors, cc)
	}

	for provider, counts := range competitorByProvider {
		summary.CompetitorByProvider[provider] = rankCounts(counts, topCompetitorLimit)
	}

	return summary
}

// rankCounts sorts a tally map by descending count (name ascending on ties,
// so output is deterministic) and keeps at most limit entries.
func rankCounts(counts map[string]int, limit int) []CompetitorCount {
	ranked := make([]CompetitorCount, 0, len(counts))
	for name, count := range counts {
		ranked = append(ranked, CompetitorCount{Name: name, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Name < ranked[j].Name
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
