package visibility

import (
	"context"
	"testing"

	"ekkoscope/internal/querygen"
)

type fakeProber struct {
	name   string
	answer func(query string) ProviderResult
}

func (f *fakeProber) Name() string { return f.name }

func (f *fakeProber) Probe(_ context.Context, _ Target, q querygen.Query) ProviderResult {
	r := f.answer(q.Text)
	r.Provider = f.name
	r.Query = q.Text
	return r
}

func TestHubRun(t *testing.T) {
	target := Target{BusinessName: "Acme", Aliases: []string{"Acme"}}
	queries := []querygen.Query{
		{Text: "best supplier", IntentType: "high_ticket", IntentValue: 9},
		{Text: "bulk bags", IntentType: "transactional", IntentValue: 8},
	}

	t.Run("aggregates results across providers", func(t *testing.T) {
		finder := &fakeProber{name: "openai_sim", answer: func(string) ProviderResult {
			return ProviderResult{Success: true, TargetFound: true, Brands: []BrandHit{{Name: "Acme"}}}
		}}
		misser := &fakeProber{name: "gemini_sim", answer: func(string) ProviderResult {
			return ProviderResult{Success: true, Brands: []BrandHit{{Name: "Uline"}}}
		}}

		hub := NewHub([]Prober{finder, misser}, 10)
		result := hub.Run(context.Background(), target, queries)

		if len(result.Queries) != 2 {
			t.Fatalf("expected 2 query aggregates, got %d", len(result.Queries))
		}
		for _, agg := range result.Queries {
			if len(agg.Providers) != 2 {
				t.Errorf("query %q has %d provider results, want 2", agg.Query, len(agg.Providers))
			}
		}
		if len(result.ProvidersUsed) != 2 {
			t.Errorf("ProvidersUsed = %v, want both providers", result.ProvidersUsed)
		}
		if result.Summary.OverallTargetPercent != 100.0 {
			t.Errorf("OverallTargetPercent = %v, want 100", result.Summary.OverallTargetPercent)
		}
	})

	t.Run("provider with all failures excluded from ProvidersUsed", func(t *testing.T) {
		broken := &fakeProber{name: "perplexity_web", answer: func(string) ProviderResult {
			return ProviderResult{Success: false}
		}}

		hub := NewHub([]Prober{broken}, 10)
		result := hub.Run(context.Background(), target, queries)

		if len(result.ProvidersUsed) != 0 {
			t.Errorf("ProvidersUsed = %v, want empty", result.ProvidersUsed)
		}
		stats := result.Summary.ProviderStats["perplexity_web"]
		if stats == nil || stats.TotalProbes != 2 || stats.SuccessfulProbes != 0 {
			t.Errorf("expected failed probes still counted, got %+v", stats)
		}
	})

	t.Run("caps queries at maxQueries", func(t *testing.T) {
		var probed int
		counter := &fakeProber{name: "openai_sim", answer: func(string) ProviderResult {
			probed++
			return ProviderResult{Success: true}
		}}

		hub := NewHub([]Prober{counter}, 1)
		result := hub.Run(context.Background(), target, queries)

		if probed != 1 {
			t.Errorf("probed %d queries, want 1", probed)
		}
		if len(result.Queries) != 1 {
			t.Errorf("got %d aggregates, want 1", len(result.Queries))
		}
	})
}
