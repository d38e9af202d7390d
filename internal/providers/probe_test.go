package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"ekkoscope/internal/querygen"
	"ekkoscope/internal/visibility"
)

// chatCompletionsServer fakes an OpenAI-compatible endpoint returning the
// given answer content and citations.
func chatCompletionsServer(t *testing.T, content string, citations []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		body := map[string]any{
			"choices":   []map[string]any{{"message": map[string]any{"content": content}}},
			"citations": citations,
		}
		if err := json.NewEncoder(w).Encode(body); err != nil {
			t.Errorf("failed to write response: %v", err)
		}
	}))
}

func TestExtractJSON(t *testing.T) {
	t.Run("strips json fences", func(t *testing.T) {
		raw := "Here you go:\n```json\n{\"a\": 1}\n```\nHope that helps."
		got := ExtractJSON(raw)
		if got != `{"a": 1}` {
			t.Errorf("ExtractJSON = %q", got)
		}
	})

	t.Run("strips bare fences", func(t *testing.T) {
		raw := "```\n{\"a\": 1}\n```"
		got := ExtractJSON(raw)
		if got != `{"a": 1}` {
			t.Errorf("ExtractJSON = %q", got)
		}
	})

	t.Run("passes unfenced text through", func(t *testing.T) {
		raw := `  {"a": 1}  `
		got := ExtractJSON(raw)
		if got != `{"a": 1}` {
			t.Errorf("ExtractJSON = %q", got)
		}
	})
}

func TestParseVisibilityAnswer(t *testing.T) {
	target := visibility.Target{
		BusinessName: "Acme Packaging",
		Aliases:      []string{"Acme Packaging", "Acme"},
	}

	t.Run("parses explicit target mention", func(t *testing.T) {
		raw := `{
			"recommended_brands": [{"name": "Acme Packaging", "url": "https://acme.com", "reason": "Great prices"}],
			"target_business_mentioned": true,
			"target_position": 1
		}`

		brands, found, pos := parseVisibilityAnswer(raw, target)
		if len(brands) != 1 {
			t.Fatalf("brands = %v", brands)
		}
		if !found {
			t.Error("expected target found")
		}
		if pos == nil || *pos != 1 {
			t.Errorf("position = %v, want 1", pos)
		}
	})

	t.Run("falls back to alias matching when flag is false", func(t *testing.T) {
		raw := `{
			"recommended_brands": [
				{"name": "Uline"},
				{"name": "acme packaging co"}
			],
			"target_business_mentioned": false,
			"target_position": null
		}`

		_, found, pos := parseVisibilityAnswer(raw, target)
		if !found {
			t.Error("expected alias fallback to find target")
		}
		if pos == nil || *pos != 2 {
			t.Errorf("position = %v, want 2", pos)
		}
	})

	t.Run("accepts string positions", func(t *testing.T) {
		raw := `{
			"recommended_brands": [],
			"target_business_mentioned": true,
			"target_position": "3"
		}`

		_, found, pos := parseVisibilityAnswer(raw, target)
		if !found {
			t.Error("expected target found")
		}
		if pos == nil || *pos != 3 {
			t.Errorf("position = %v, want 3", pos)
		}
	})

	t.Run("handles fenced JSON", func(t *testing.T) {
		raw := "```json\n{\"recommended_brands\": [{\"name\": \"Uline\"}], \"target_business_mentioned\": false}\n```"

		brands, found, _ := parseVisibilityAnswer(raw, target)
		if len(brands) != 1 || brands[0].Name != "Uline" {
			t.Errorf("brands = %v", brands)
		}
		if found {
			t.Error("expected target not found")
		}
	})

	t.Run("malformed JSON yields empty result", func(t *testing.T) {
		brands, found, pos := parseVisibilityAnswer("not json at all", target)
		if brands != nil || found || pos != nil {
			t.Errorf("expected empty result, got %v %v %v", brands, found, pos)
		}
	})

	t.Run("empty response yields empty result", func(t *testing.T) {
		brands, found, _ := parseVisibilityAnswer("", target)
		if brands != nil || found {
			t.Error("expected empty result")
		}
	})
}

func TestOpenAIProber_Probe(t *testing.T) {
	target := visibility.Target{
		BusinessName: "Acme Packaging",
		Aliases:      []string{"Acme Packaging"},
	}
	query := querygen.Query{Text: "best packaging suppliers", IntentType: "comparison"}

	t.Run("returns a provider result on success", func(t *testing.T) {
		answer := `{"recommended_brands": [{"name": "Acme Packaging"}], "target_business_mentioned": true, "target_position": 1}`
		server := chatCompletionsServer(t, answer, nil)
		defer server.Close()

		prober := NewOpenAIProber(NewChatClient("test-key", server.URL, "gpt-4o-mini"))
		result := prober.Probe(context.Background(), target, query)

		if !result.Success {
			t.Fatal("expected a successful probe")
		}
		if result.Provider != ProviderOpenAI {
			t.Errorf("provider = %q", result.Provider)
		}
		if !result.TargetFound {
			t.Error("expected target found")
		}
		if result.TargetPosition == nil || *result.TargetPosition != 1 {
			t.Errorf("position = %v, want 1", result.TargetPosition)
		}
		if len(result.Brands) != 1 {
			t.Errorf("brands = %v", result.Brands)
		}
	})

	t.Run("client error yields failed result", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error": {"message": "bad request"}}`)
		}))
		defer server.Close()

		prober := NewOpenAIProber(NewChatClient("test-key", server.URL, "gpt-4o-mini"))
		result := prober.Probe(context.Background(), target, query)

		if result.Success {
			t.Error("expected a failed probe")
		}
		if result.Provider != ProviderOpenAI || result.Query != query.Text {
			t.Errorf("result = %+v", result)
		}
	})
}

func TestPerplexityProber_Probe(t *testing.T) {
	target := visibility.Target{
		BusinessName:  "Acme Packaging",
		PrimaryDomain: "acme.com",
		Aliases:       []string{"Acme Packaging"},
	}
	query := querygen.Query{Text: "best packaging suppliers", IntentType: "comparison"}

	t.Run("citation naming the domain counts as visibility", func(t *testing.T) {
		answer := `{"recommended_brands": [{"name": "Uline"}], "target_business_mentioned": false, "target_position": null}`
		server := chatCompletionsServer(t, answer, []string{"https://acme.com/products"})
		defer server.Close()

		prober := NewPerplexityProber(NewChatClient("test-key", server.URL, "sonar-pro"))
		result := prober.Probe(context.Background(), target, query)

		if !result.Success {
			t.Fatal("expected a successful probe")
		}
		if !result.TargetFound {
			t.Error("expected citation match to mark the target found")
		}
	})

	t.Run("unrelated citations leave the target unfound", func(t *testing.T) {
		answer := `{"recommended_brands": [{"name": "Uline"}], "target_business_mentioned": false, "target_position": null}`
		server := chatCompletionsServer(t, answer, []string{"https://uline.com"})
		defer server.Close()

		prober := NewPerplexityProber(NewChatClient("test-key", server.URL, "sonar-pro"))
		result := prober.Probe(context.Background(), target, query)

		if result.TargetFound {
			t.Error("expected target not found")
		}
	})
}
