package report

import (
	"context"
	"strings"
	"testing"
)

func outcomes(found ...bool) []QueryOutcome {
	out := make([]QueryOutcome, len(found))
	for i, f := range found {
		out[i] = QueryOutcome{Query: "q", TargetFound: f}
	}
	return out
}

func TestCalculateTrueScore(t *testing.T) {
	t.Run("no data", func(t *testing.T) {
		ts := CalculateTrueScore(nil)
		if ts.Status != "NO_DATA" || ts.RiskLevel != RiskCritical {
			t.Errorf("got %+v", ts)
		}
	})

	t.Run("zero mentions is critical", func(t *testing.T) {
		ts := CalculateTrueScore(outcomes(false, false, false))
		if ts.CalculatedScore != 0 {
			t.Errorf("score = %v, want 0", ts.CalculatedScore)
		}
		if ts.RiskLevel != RiskCritical {
			t.Errorf("risk = %v, want CRITICAL", ts.RiskLevel)
		}
	})

	t.Run("risk bands", func(t *testing.T) {
		cases := []struct {
			name    string
			found   int
			total   int
			risk    string
			percent float64
		}{
			{"high risk under 20", 1, 10, RiskHigh, 10.0},
			{"moderate under 50", 3, 10, RiskModerate, 30.0},
			{"low at 50 and above", 5, 10, RiskLow, 50.0},
			{"full visibility", 10, 10, RiskLow, 100.0},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				o := make([]QueryOutcome, tc.total)
				for i := range o {
					o[i].TargetFound = i < tc.found
				}
				ts := CalculateTrueScore(o)
				if ts.CalculatedScore != tc.percent {
					t.Errorf("score = %v, want %v", ts.CalculatedScore, tc.percent)
				}
				if ts.RiskLevel != tc.risk {
					t.Errorf("risk = %v, want %v", ts.RiskLevel, tc.risk)
				}
			})
		}
	})

	t.Run("score stays within bounds", func(t *testing.T) {
		ts := CalculateTrueScore(outcomes(true, true))
		if ts.CalculatedScore < 0 || ts.CalculatedScore > 100 {
			t.Errorf("score %v out of range", ts.CalculatedScore)
		}
	})

	t.Run("rounds to one decimal", func(t *testing.T) {
		ts := CalculateTrueScore(outcomes(true, false, false))
		if ts.CalculatedScore != 33.3 {
			t.Errorf("score = %v, want 33.3", ts.CalculatedScore)
		}
	})
}

func TestOverrideHallucinatedContent(t *testing.T) {
	t.Run("zero score forces critical text and kills dominance narrative", func(t *testing.T) {
		content := &Content{
			VisibilityScore:  85,
			ExecutiveSummary: "Your business is dominating the AI recommendation landscape.",
			Suggestions:      []Suggestion{{Title: "Keep it up"}},
		}
		ts := CalculateTrueScore(outcomes(false, false))

		OverrideHallucinatedContent(content, ts)

		if content.VisibilityScore != 0 {
			t.Errorf("VisibilityScore = %v, want 0", content.VisibilityScore)
		}
		if content.VisibilityText != "0% - Critical Risk" {
			t.Errorf("VisibilityText = %q", content.VisibilityText)
		}
		if content.StatusOverride != "INVISIBLE" {
			t.Errorf("StatusOverride = %q", content.StatusOverride)
		}
		if !strings.Contains(content.ExecutiveSummary, "CRITICAL ALERT") {
			t.Errorf("summary not overwritten: %q", content.ExecutiveSummary)
		}
		if len(content.Suggestions) != 2 || content.Suggestions[0].Priority != "CRITICAL" {
			t.Errorf("expected emergency recommendation prepended, got %v", content.Suggestions)
		}
		if len(content.Integrity.CorrectionsMade) == 0 {
			t.Error("expected corrections recorded")
		}
	})

	t.Run("zero score keeps honest summary", func(t *testing.T) {
		content := &Content{ExecutiveSummary: "Visibility is very poor and needs work."}
		OverrideHallucinatedContent(content, CalculateTrueScore(outcomes(false)))

		if !strings.Contains(content.ExecutiveSummary, "very poor") {
			t.Errorf("honest summary was overwritten: %q", content.ExecutiveSummary)
		}
	})

	t.Run("low score caps inflated headline number", func(t *testing.T) {
		content := &Content{VisibilityScore: 80}
		ts := CalculateTrueScore(outcomes(true, false, false, false, false, false, false, false, false, false))

		OverrideHallucinatedContent(content, ts)

		if content.VisibilityScore != 10.0 {
			t.Errorf("VisibilityScore = %v, want 10", content.VisibilityScore)
		}
		if !strings.Contains(content.VisibilityText, "High Risk") {
			t.Errorf("VisibilityText = %q", content.VisibilityText)
		}
	})

	t.Run("healthy score untouched", func(t *testing.T) {
		content := &Content{VisibilityScore: 60, ExecutiveSummary: "Solid visibility."}
		OverrideHallucinatedContent(content, CalculateTrueScore(outcomes(true, true, false)))

		if content.VisibilityScore != 60 {
			t.Errorf("VisibilityScore = %v, want 60", content.VisibilityScore)
		}
		if content.ExecutiveSummary != "Solid visibility." {
			t.Errorf("summary changed: %q", content.ExecutiveSummary)
		}
	})
}

func TestCorrectedNarrative(t *testing.T) {
	cases := []struct {
		name  string
		ts    TrueScore
		wants string
	}{
		{"zero", TrueScore{CalculatedScore: 0, TotalQueries: 10}, "CRITICAL VISIBILITY FAILURE"},
		{"severe", TrueScore{CalculatedScore: 5, ClientMentions: 1, TotalQueries: 20}, "SEVERE VISIBILITY DEFICIT"},
		{"low", TrueScore{CalculatedScore: 15, ClientMentions: 3, TotalQueries: 20}, "LOW VISIBILITY WARNING"},
		{"moderate", TrueScore{CalculatedScore: 40, ClientMentions: 4, TotalQueries: 10}, "MODERATE VISIBILITY"},
		{"good", TrueScore{CalculatedScore: 60, ClientMentions: 6, TotalQueries: 10}, "GOOD VISIBILITY"},
		{"strong", TrueScore{CalculatedScore: 90, ClientMentions: 9, TotalQueries: 10}, "STRONG VISIBILITY"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CorrectedNarrative(tc.ts, "Acme")
			if !strings.Contains(got, tc.wants) {
				t.Errorf("narrative %q missing %q", got, tc.wants)
			}
			if !strings.Contains(got, "Acme") {
				t.Error("narrative missing business name")
			}
		})
	}
}

type fakeGenerator struct {
	response string
	err      error
}

func (f *fakeGenerator) GenerateContent(_ context.Context, _ string) (string, error) {
	return f.response, f.err
}

func TestVerifyIntegrity(t *testing.T) {
	t.Run("critical risk regenerates narrative even when check passes", func(t *testing.T) {
		gen := &fakeGenerator{response: `{"status": "PASS", "reason": "consistent"}`}
		content := &Content{ExecutiveSummary: "Some model text."}

		ts := VerifyIntegrity(context.Background(), gen, content, outcomes(false, false), "Acme")

		if ts.RiskLevel != RiskCritical {
			t.Fatalf("risk = %v", ts.RiskLevel)
		}
		if !content.Integrity.NarrativeRegenerated {
			t.Error("expected narrative regeneration")
		}
		if !strings.Contains(content.ExecutiveSummary, "CRITICAL VISIBILITY FAILURE") {
			t.Errorf("summary = %q", content.ExecutiveSummary)
		}
	})

	t.Run("rejection regenerates narrative", func(t *testing.T) {
		gen := &fakeGenerator{response: `{"status": "REJECT", "reason": "tone mismatch"}`}
		content := &Content{ExecutiveSummary: "All good."}

		VerifyIntegrity(context.Background(), gen, content, outcomes(true, true, true), "Acme")

		if !content.Integrity.NarrativeRegenerated {
			t.Error("expected regeneration after rejection")
		}
		if content.Integrity.RegenerationReason != "tone mismatch" {
			t.Errorf("reason = %q", content.Integrity.RegenerationReason)
		}
	})

	t.Run("generator failure passes report through", func(t *testing.T) {
		gen := &fakeGenerator{err: context.DeadlineExceeded}
		content := &Content{ExecutiveSummary: "Honest moderate summary.", VisibilityScore: 66.7}

		VerifyIntegrity(context.Background(), gen, content, outcomes(true, true, false), "Acme")

		if content.Integrity.NarrativeRegenerated {
			t.Error("expected no regeneration when check errors on a healthy score")
		}
	})

	t.Run("nil generator skips check", func(t *testing.T) {
		content := &Content{ExecutiveSummary: "Fine."}
		VerifyIntegrity(context.Background(), nil, content, outcomes(true, true), "Acme")
		if content.Integrity.NarrativeRegenerated {
			t.Error("expected no regeneration")
		}
	})
}
