// Package visibility aggregates brand-visibility probes across multiple AI
// assistant providers into per-query and per-provider statistics.
package visibility

// BrandHit is a single business recommended by a provider.
type BrandHit struct {
	Name   string `json:"name"`
	URL    string `json:"url,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// ProviderResult holds one provider's answer for one query.
type ProviderResult struct {
	Provider       string     `json:"provider"`
	Query          string     `json:"query"`
	Intent         string     `json:"intent,omitempty"`
	Brands         []BrandHit `json:"recommended_brands"`
	TargetFound    bool       `json:"target_found"`
	TargetPosition *int       `json:"target_position,omitempty"`
	RawResponse    string     `json:"raw_response,omitempty"`
	Success        bool       `json:"success"`
}

// QueryAggregate collects every provider's result for a single query.
type QueryAggregate struct {
	Query       string           `json:"query"`
	Intent      string           `json:"intent,omitempty"`
	IntentValue int              `json:"intent_value,omitempty"`
	Providers   []ProviderResult `json:"providers"`
}

// TargetFoundCount reports how many providers surfaced the target business.
func (a *QueryAggregate) TargetFoundCount() int {
	count := 0
	for _, p := range a.Providers {
		if p.TargetFound {
			count++
		}
	}
	return count
}

// Score maps the aggregate onto the 0/1/2 per-query scale: 2 when any
// provider placed the target first, 1 when mentioned at all, 0 otherwise.
func (a *QueryAggregate) Score() int {
	score := 0
	for _, p := range a.Providers {
		if !p.TargetFound {
			continue
		}
		if p.TargetPosition != nil && *p.TargetPosition == 1 {
			return 2
		}
		score = 1
	}
	return score
}

// Competitors returns the deduplicated competitor names across providers.
func (a *QueryAggregate) Competitors() []string {
	seen := make(map[string]bool)
	var names []string
	for _, p := range a.Providers {
		for _, brand := range p.Brands {
			if !seen[brand.Name] {
				seen[brand.Name] = true
				names = append(names, brand.Name)
			}
		}
	}
	return names
}

// ProviderStats counts probe outcomes for a single provider.
type ProviderStats struct {
	TotalProbes      int     `json:"total_probes"`
	SuccessfulProbes int     `json:"successful_probes"`
	TargetFound      int     `json:"target_found"`
	TargetPercent    float64 `json:"target_percent"`
}

// CompetitorCount is a competitor mention tally.
type CompetitorCount struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent,omitempty"`
}

// Summary is the cross-provider rollup for a full probe run.
type Summary struct {
	TotalQueries         int                          `json:"total_queries"`
	ProviderStats        map[string]*ProviderStats    `json:"provider_stats"`
	OverallTargetFound   int                          `json:"overall_target_found"`
	OverallTargetPercent float64                      `json:"overall_target_percent"`
	TopCompetitors       []CompetitorCount            `json:"top_competitors"`
	CompetitorByProvider map[string][]CompetitorCount `json:"competitor_by_provider"`
	IntentBreakdown      map[string]int               `json:"intent_breakdown"`
}

// Result is the complete output of a multi-provider visibility run.
type Result struct {
	Queries       []QueryAggregate `json:"queries"`
	Summary       Summary          `json:"summary"`
	ProvidersUsed []string         `json:"providers_used"`
}

// Target describes the business whose visibility is being measured.
type Target struct {
	BusinessName  string
	PrimaryDomain string
	Regions       []string
	Aliases       []string
}
