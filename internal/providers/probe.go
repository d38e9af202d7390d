package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"ekkoscope/internal/logger"
	"ekkoscope/internal/querygen"
	"ekkoscope/internal/visibility"
)

// Provider identifiers stored on persisted visibility results.
const (
	ProviderOpenAI     = "openai_sim"
	ProviderPerplexity = "perplexity_web"
	ProviderGemini     = "gemini_sim"
)

const visibilitySystemPrompt = "You are a helpful AI assistant answering user questions about businesses and services. " +
	"When asked for recommendations, provide helpful suggestions based on your knowledge. " +
	"Always respond in STRICT JSON format matching this structure:\n" +
	"{\n" +
	"  \"recommended_brands\": [{\"name\": \"Business Name\", \"url\": \"https://example.com\", \"reason\": \"Brief reason\"}],\n" +
	"  \"target_business_mentioned\": false,\n" +
	"  \"target_position\": null\n" +
	"}\n" +
	"List up to 5 recommendations. No extra commentary, just JSON."

func visibilityUserPrompt(target visibility.Target, query string) string {
	regions := "United States"
	if len(target.Regions) > 0 {
		regions = strings.Join(target.Regions, ", ")
	}
	return fmt.Sprintf(
		"I'm looking for help with this: %q\n\n"+
			"Context: I'm in the %s area. "+
			"Which businesses or brands would you recommend for this? "+
			"Please list the top recommendations with their websites if known.",
		query, regions,
	)
}

type visibilityAnswer struct {
	RecommendedBrands []visibility.BrandHit `json:"recommended_brands"`
	TargetMentioned   bool                  `json:"target_business_mentioned"`
	TargetPosition    json.RawMessage       `json:"target_position"`
}

// parseVisibilityAnswer decodes a provider's JSON answer. When the model
// neglects to set target_business_mentioned, the recommended brands are
// matched against the target's aliases as a fallback.
func parseVisibilityAnswer(raw string, target visibility.Target) ([]visibility.BrandHit, bool, *int) {
	if raw == "" {
		return nil, false, nil
	}

	var answer visibilityAnswer
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &answer); err != nil {
		logger.Get().Warnw("could not parse visibility JSON", "error", err)
		return nil, false, nil
	}

	targetFound := answer.TargetMentioned
	position := parsePosition(answer.TargetPosition)

	if !targetFound {
		aliases := target.Aliases
		if len(aliases) == 0 {
			aliases = []string{target.BusinessName}
		}
		for i, brand := range answer.RecommendedBrands {
			if visibility.MatchesAlias(brand.Name, aliases) || visibility.MatchesAlias(brand.URL, aliases) {
				targetFound = true
				p := i + 1
				position = &p
				break
			}
		}
	}

	return answer.RecommendedBrands, targetFound, position
}

// parsePosition accepts either a JSON number or a numeric string.
func parsePosition(raw json.RawMessage) *int {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return &n
		}
	}
	return nil
}

// OpenAIProber asks OpenAI to simulate a ChatGPT-style answer and reports
// which brands it would recommend.
type OpenAIProber struct {
	chat *ChatClient
}

// NewOpenAIProber wraps a chat client as the OpenAI visibility provider.
func NewOpenAIProber(chat *ChatClient) *OpenAIProber {
	return &OpenAIProber{chat: chat}
}

func (p *OpenAIProber) Name() string { return ProviderOpenAI }

func (p *OpenAIProber) Probe(ctx context.Context, target visibility.Target, query querygen.Query) visibility.ProviderResult {
	return runChatProbe(ctx, p.chat, ProviderOpenAI, target, query, true).ProviderResult
}

// PerplexityProber probes Perplexity, which answers with live web search and
// returns source citations alongside the chat completion.
type PerplexityProber struct {
	chat *ChatClient
}

// NewPerplexityProber wraps a chat client pointed at the Perplexity API.
func NewPerplexityProber(chat *ChatClient) *PerplexityProber {
	return &PerplexityProber{chat: chat}
}

func (p *PerplexityProber) Name() string { return ProviderPerplexity }

func (p *PerplexityProber) Probe(ctx context.Context, target visibility.Target, query querygen.Query) visibility.ProviderResult {
	result := runChatProbe(ctx, p.chat, ProviderPerplexity, target, query, false)

	// Citations name real pages Perplexity consulted. The target's domains
	// appearing there counts as visibility even when the answer text missed
	// the brand.
	if !result.TargetFound && result.Success {
		for _, citation := range result.citations {
			if visibility.MatchesAlias(citation, target.Aliases) ||
				(target.PrimaryDomain != "" && strings.Contains(strings.ToLower(citation), strings.ToLower(target.PrimaryDomain))) {
				result.TargetFound = true
				break
			}
		}
	}
	return result.ProviderResult
}

type chatProbeResult struct {
	visibility.ProviderResult
	citations []string
}

func runChatProbe(ctx context.Context, chat *ChatClient, provider string, target visibility.Target, query querygen.Query, jsonMode bool) chatProbeResult {
	result := chatProbeResult{
		ProviderResult: visibility.ProviderResult{
			Provider: provider,
			Query:    query.Text,
			Intent:   query.IntentType,
		},
	}

	messages := []ChatMessage{
		{Role: "system", Content: visibilitySystemPrompt},
		{Role: "user", Content: visibilityUserPrompt(target, query.Text)},
	}

	answer, err := chat.Complete(ctx, messages, jsonMode)
	if err != nil {
		logger.Get().Warnw("visibility probe failed",
			"provider", provider, "query", query.Text, "error", err)
		return result
	}

	brands, found, position := parseVisibilityAnswer(answer.Content, target)
	result.Brands = brands
	result.TargetFound = found
	result.TargetPosition = position
	result.RawResponse = answer.Content
	result.Success = true
	result.citations = answer.Citations
	return result
}

// GeminiProber asks Gemini to simulate an assistant answer.
type GeminiProber struct {
	client *GeminiClient
}

// NewGeminiProber wraps a Gemini client as a visibility provider.
func NewGeminiProber(client *GeminiClient) *GeminiProber {
	return &GeminiProber{client: client}
}

func (p *GeminiProber) Name() string { return ProviderGemini }

func (p *GeminiProber) Probe(ctx context.Context, target visibility.Target, query querygen.Query) visibility.ProviderResult {
	result := visibility.ProviderResult{
		Provider: ProviderGemini,
		Query:    query.Text,
		Intent:   query.IntentType,
	}

	prompt := visibilitySystemPrompt + "\n\n" + visibilityUserPrompt(target, query.Text)
	raw, err := p.client.GenerateContent(ctx, prompt)
	if err != nil {
		logger.Get().Warnw("visibility probe failed",
			"provider", ProviderGemini, "query", query.Text, "error", err)
		return result
	}

	brands, found, position := parseVisibilityAnswer(raw, target)
	result.Brands = brands
	result.TargetFound = found
	result.TargetPosition = position
	result.RawResponse = raw
	result.Success = true
	return result
}
