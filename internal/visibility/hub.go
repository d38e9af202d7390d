package visibility

import (
	"context"
	"sync"

	"ekkoscope/internal/logger"
	"ekkoscope/internal/querygen"
)

// Prober answers a single visibility query against one AI provider.
// Implementations must not panic; transport failures come back as a
// ProviderResult with Success=false.
type Prober interface {
	Name() string
	Probe(ctx context.Context, target Target, query querygen.Query) ProviderResult
}

// Hub fans visibility queries out across the registered providers.
type Hub struct {
	probers    []Prober
	maxQueries int
}

// NewHub builds a hub over the given providers. maxQueries caps how many
// queries each provider is asked.
func NewHub(probers []Prober, maxQueries int) *Hub {
	if maxQueries <= 0 {
		maxQueries = 10
	}
	return &Hub{probers: probers, maxQueries: maxQueries}
}

// ProviderCount reports how many providers the hub probes.
func (h *Hub) ProviderCount() int { return len(h.probers) }

// Run probes every provider with the given queries and aggregates the
// results. Providers run concurrently; within a provider queries run
// sequentially to respect rate limits. A provider whose probes all fail is
// excluded from ProvidersUsed but its failures still count in the stats.
func (h *Hub) Run(ctx context.Context, target Target, queries []querygen.Query) Result {
	log := logger.Get()

	if len(queries) > h.maxQueries {
		queries = queries[:h.maxQueries]
	}

	log.Infow("starting multi-provider visibility run",
		"business", target.BusinessName,
		"queries", len(queries),
		"providers", len(h.probers),
	)

	aggregates := make([]QueryAggregate, len(queries))
	index := make(map[string]int, len(queries))
	for i, q := range queries {
		aggregates[i] = QueryAggregate{
			Query:       q.Text,
			Intent:      q.IntentType,
			IntentValue: q.IntentValue,
		}
		index[q.Text] = i
	}

	type providerOutcome struct {
		name    string
		results []ProviderResult
	}

	outcomes := make([]providerOutcome, len(h.probers))
	var wg sync.WaitGroup
	for i, prober := range h.probers {
		wg.Add(1)
		go func(i int, prober Prober) {
			defer wg.Done()
			results := make([]ProviderResult, 0, len(queries))
			for _, q := range queries {
				if ctx.Err() != nil {
					return
				}
				results = append(results, prober.Probe(ctx, target, q))
			}
			outcomes[i] = providerOutcome{name: prober.Name(), results: results}
		}(i, prober)
	}
	wg.Wait()

	var providersUsed []string
	for _, outcome := range outcomes {
		if outcome.name == "" {
			continue
		}
		successful := 0
		for _, r := range outcome.results {
			if r.Success {
				successful++
			}
			if i, ok := index[r.Query]; ok {
				aggregates[i].Providers = append(aggregates[i].Providers, r)
			}
		}
		if successful > 0 {
			providersUsed = append(providersUsed, outcome.name)
			log.Infow("provider visibility complete",
				"provider", outcome.name,
				"results", len(outcome.results),
				"successful", successful,
			)
		} else {
			log.Warnw("provider visibility: all probes failed", "provider", outcome.name)
		}
	}

	return Result{
		Queries:       aggregates,
		Summary:       ComputeSummary(aggregates, target.BusinessName),
		ProvidersUsed: providersUsed,
	}
}
