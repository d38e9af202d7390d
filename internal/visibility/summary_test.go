package visibility

import "testing"

func TestComputeSummary(t *testing.T) {
	t.Run("computes per-provider and overall percentages", func(t *testing.T) {
		aggregates := []QueryAggregate{
			{
				Query:  "best packaging supplier",
				Intent: "high_ticket",
				Providers: []ProviderResult{
					{Provider: "openai_sim", Query: "best packaging supplier", Success: true, TargetFound: true,
						Brands: []BrandHit{{Name: "Acme"}, {Name: "Uline"}}},
					{Provider: "perplexity_web", Query: "best packaging supplier", Success: true, TargetFound: false,
						Brands: []BrandHit{{Name: "Uline"}}},
				},
			},
			{
				Query:  "bulk trash bags",
				Intent: "high_ticket",
				Providers: []ProviderResult{
					{Provider: "openai_sim", Query: "bulk trash bags", Success: true, TargetFound: false,
						Brands: []BrandHit{{Name: "Uline"}, {Name: "Global Industrial"}}},
					{Provider: "perplexity_web", Query: "bulk trash bags", Success: false},
				},
			},
		}

		summary := ComputeSummary(aggregates, "Acme")

		if summary.TotalQueries != 2 {
			t.Errorf("TotalQueries = %d, want 2", summary.TotalQueries)
		}
		if summary.OverallTargetFound != 1 {
			t.Errorf("OverallTargetFound = %d, want 1", summary.OverallTargetFound)
		}
		if summary.OverallTargetPercent != 50.0 {
			t.Errorf("OverallTargetPercent = %v, want 50.0", summary.OverallTargetPercent)
		}

		openai := summary.ProviderStats["openai_sim"]
		if openai == nil {
			t.Fatal("missing openai_sim stats")
		}
		if openai.TotalProbes != 2 || openai.SuccessfulProbes != 2 || openai.TargetFound != 1 {
			t.Errorf("openai stats = %+v", openai)
		}
		if openai.TargetPercent != 50.0 {
			t.Errorf("openai TargetPercent = %v, want 50.0", openai.TargetPercent)
		}

		pplx := summary.ProviderStats["perplexity_web"]
		if pplx == nil {
			t.Fatal("missing perplexity_web stats")
		}
		if pplx.SuccessfulProbes != 1 || pplx.TargetFound != 0 {
			t.Errorf("perplexity stats = %+v", pplx)
		}
	})

	t.Run("excludes the target business from competitor tallies", func(t *testing.T) {
		aggregates := []QueryAggregate{
			{
				Query: "q1",
				Providers: []ProviderResult{
					{Provider: "openai_sim", Query: "q1", Success: true,
						Brands: []BrandHit{{Name: "Acme"}, {Name: "Uline"}, {Name: "Uline"}}},
				},
			},
		}

		summary := ComputeSummary(aggregates, "acme")
		for _, c := range summary.TopCompetitors {
			if c.Name == "Acme" {
				t.Error("target business counted as competitor")
			}
		}
		if len(summary.TopCompetitors) == 0 || summary.TopCompetitors[0].Name != "Uline" {
			t.Errorf("TopCompetitors = %v, want Uline first", summary.TopCompetitors)
		}
		if summary.TopCompetitors[0].Count != 2 {
			t.Errorf("Uline count = %d, want 2", summary.TopCompetitors[0].Count)
		}
	})

	t.Run("empty input yields zeroed summary", func(t *testing.T) {
		summary := ComputeSummary(nil, "Acme")
		if summary.TotalQueries != 0 || summary.OverallTargetPercent != 0 {
			t.Errorf("unexpected summary %+v", summary)
		}
	})

	t.Run("tracks intent breakdown", func(t *testing.T) {
		aggregates := []QueryAggregate{
			{Query: "a", Intent: "emergency"},
			{Query: "b", Intent: "emergency"},
			{Query: "c", Intent: "informational"},
		}

		summary := ComputeSummary(aggregates, "Acme")
		if summary.IntentBreakdown["emergency"] != 2 {
			t.Errorf("emergency count = %d, want 2", summary.IntentBreakdown["emergency"])
		}
		if summary.IntentBreakdown["informational"] != 1 {
			t.Errorf("informational count = %d, want 1", summary.IntentBreakdown["informational"])
		}
	})
}
