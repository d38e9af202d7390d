package visibility

import "testing"

func TestScoreQueryResult(t *testing.T) {
	aliases := []string{"Acme Packaging", "Acme"}

	t.Run("primary recommendation scores 2", func(t *testing.T) {
		brands := []BrandHit{
			{Name: "Acme Packaging Co"},
			{Name: "Uline"},
		}

		score := ScoreQueryResult(aliases, brands)
		if !score.PrimaryRecommendation {
			t.Error("expected primary recommendation")
		}
		if score.Score != ScorePrimary {
			t.Errorf("score = %d, want %d", score.Score, ScorePrimary)
		}
		if len(score.Competitors) != 1 || score.Competitors[0] != "Uline" {
			t.Errorf("competitors = %v, want [Uline]", score.Competitors)
		}
	})

	t.Run("non-primary mention scores 1", func(t *testing.T) {
		brands := []BrandHit{
			{Name: "Uline"},
			{Name: "acme packaging"},
		}

		score := ScoreQueryResult(aliases, brands)
		if score.PrimaryRecommendation {
			t.Error("expected no primary recommendation")
		}
		if !score.Mentioned {
			t.Error("expected mention")
		}
		if score.Score != ScoreMentioned {
			t.Errorf("score = %d, want %d", score.Score, ScoreMentioned)
		}
	})

	t.Run("absent target scores 0", func(t *testing.T) {
		brands := []BrandHit{
			{Name: "Uline"},
			{Name: "Global Industrial"},
		}

		score := ScoreQueryResult(aliases, brands)
		if score.Mentioned || score.Score != ScoreAbsent {
			t.Errorf("expected absent, got mentioned=%v score=%d", score.Mentioned, score.Score)
		}
		if len(score.Competitors) != 2 {
			t.Errorf("competitors = %v, want 2 entries", score.Competitors)
		}
	})

	t.Run("empty recommendations score 0", func(t *testing.T) {
		score := ScoreQueryResult(aliases, nil)
		if score.Score != ScoreAbsent {
			t.Errorf("score = %d, want 0", score.Score)
		}
	})
}

func TestMatchesAlias(t *testing.T) {
	t.Run("exact match ignoring case and whitespace", func(t *testing.T) {
		if !MatchesAlias("  ACME  ", []string{"acme"}) {
			t.Error("expected match")
		}
	})

	t.Run("containment works both directions", func(t *testing.T) {
		if !MatchesAlias("Acme", []string{"Acme Packaging"}) {
			t.Error("expected alias-contains-name match")
		}
		if !MatchesAlias("Acme Packaging Co LLC", []string{"Acme Packaging"}) {
			t.Error("expected name-contains-alias match")
		}
	})

	t.Run("empty name never matches", func(t *testing.T) {
		if MatchesAlias("", []string{"acme"}) {
			t.Error("expected no match for empty name")
		}
		if MatchesAlias("   ", []string{"acme"}) {
			t.Error("expected no match for whitespace name")
		}
	})

	t.Run("empty alias never matches", func(t *testing.T) {
		if MatchesAlias("Uline", []string{""}) {
			t.Error("expected no match against empty alias")
		}
	})
}

func TestQueryAggregateScore(t *testing.T) {
	first, third := 1, 3
	cases := []struct {
		name string
		agg  QueryAggregate
		want int
	}{
		{"primary", QueryAggregate{Providers: []ProviderResult{{TargetFound: true, TargetPosition: &first}}}, 2},
		{"mentioned", QueryAggregate{Providers: []ProviderResult{{TargetFound: true, TargetPosition: &third}}}, 1},
		{"mentioned_no_position", QueryAggregate{Providers: []ProviderResult{{TargetFound: true}}}, 1},
		{"absent", QueryAggregate{Providers: []ProviderResult{{TargetFound: false}}}, 0},
		{"primary_beats_mention", QueryAggregate{Providers: []ProviderResult{
			{TargetFound: true, TargetPosition: &third},
			{TargetFound: true, TargetPosition: &first},
		}}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.agg.Score(); got != tc.want {
				t.Errorf("Score() = %d, want %d", got, tc.want)
			}
		})
	}
}
