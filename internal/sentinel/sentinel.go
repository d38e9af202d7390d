// Package sentinel emits fire-and-forget telemetry events to a SentinelOS
// endpoint. Every call is safe on a nil or unconfigured client and never
// blocks or fails the caller.
package sentinel

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"ekkoscope/internal/logger"
)

const (
	defaultBaseURL = "https://sentinelos.an2b.com"
	defaultAgentID = "ekkoscope-agent"
	requestTimeout = 5 * time.Second
	userAgent      = "EkkoScope-Sentinel/1.0"
	ingestPath     = "/api/ingest"

	promptPreviewLen  = 150
	maxTopCompetitors = 5
)

// Client posts hash-chained telemetry events. Events carry a run ID, a
// monotonically increasing sequence, and a SHA-256 chain hash so the
// receiving side can detect gaps and tampering.
type Client struct {
	apiKey  string
	baseURL string
	agentID string
	runID   string
	client  *http.Client

	mu       sync.Mutex
	sequence int
	lastHash string
}

// NewClient builds a telemetry client. An empty API key yields a disabled
// client; all logging methods become no-ops.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	nonce := make([]byte, 4)
	rand.Read(nonce)
	return &Client{
		apiKey:   apiKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
		agentID:  defaultAgentID,
		runID:    fmt.Sprintf("ekko_%d_%s", time.Now().UTC().Unix(), hex.EncodeToString(nonce)),
		client:   &http.Client{Timeout: requestTimeout},
		lastHash: strings.Repeat("0", 64),
	}
}

// Enabled reports whether events will actually be sent.
func (c *Client) Enabled() bool { return c != nil && c.apiKey != "" }

// LogEvent records an event of the given type. The post happens on a
// background goroutine; failures are logged and swallowed.
func (c *Client) LogEvent(eventType string, data map[string]any) {
	if !c.Enabled() {
		return
	}

	action := map[string]any{"type": eventType}
	for k, v := range data {
		action[k] = v
	}

	c.mu.Lock()
	c.sequence++
	event := map[string]any{
		"action":    action,
		"context":   map[string]any{"eventOnly": true},
		"agent_id":  c.agentID,
		"run_id":    c.runID,
		"sequence":  c.sequence,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	event["hash"] = c.chainHash(event)
	c.mu.Unlock()

	go c.post(event)
}

// chainHash links this event to the previous one. Callers hold c.mu.
func (c *Client) chainHash(event map[string]any) string {
	payload, err := json.Marshal(event)
	if err != nil {
		return c.lastHash
	}
	sum := sha256.Sum256(append(payload, c.lastHash...))
	c.lastHash = hex.EncodeToString(sum[:])
	return c.lastHash
}

func (c *Client) post(event map[string]any) {
	body, err := json.Marshal(event)
	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+ingestPath, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Get().Debugw("sentinel event dropped", "error", err)
		return
	}
	resp.Body.Close()
}

// LogAIQuery records a probe sent to an AI provider.
func (c *Client) LogAIQuery(model, prompt, businessName string) {
	preview := prompt
	if len(preview) > promptPreviewLen {
		preview = preview[:promptPreviewLen]
	}
	c.LogEvent("ai.query", map[string]any{
		"model":          model,
		"prompt_preview": preview,
		"business_name":  businessName,
	})
}

// LogReportGenerated records a finished report.
func (c *Client) LogReportGenerated(businessName, reportType string, pages int) {
	c.LogEvent("report.generated", map[string]any{
		"business_name": businessName,
		"report_type":   reportType,
		"pages":         pages,
	})
}

// LogVisibilityScore records a computed visibility score.
func (c *Client) LogVisibilityScore(businessName string, score float64, providers []string) {
	c.LogEvent("visibility.calculated", map[string]any{
		"business_name":    businessName,
		"visibility_score": score,
		"ai_models":        providers,
	})
}

// LogCompetitorAnalysis records the competitor landscape of an audit.
func (c *Client) LogCompetitorAnalysis(businessName string, competitors []string) {
	top := competitors
	if len(top) > maxTopCompetitors {
		top = top[:maxTopCompetitors]
	}
	c.LogEvent("analysis.competitors", map[string]any{
		"business_name":    businessName,
		"competitor_count": len(competitors),
		"top_competitors":  top,
	})
}

// LogUserSignup records a registration. Only the email domain is sent.
func (c *Client) LogUserSignup(email, plan, source string) {
	domain := ""
	if i := strings.LastIndex(email, "@"); i >= 0 {
		domain = email[i+1:]
	}
	c.LogEvent("user.signup", map[string]any{
		"email_domain": domain,
		"plan":         plan,
		"source":       source,
	})
}

// LogPayment records a completed payment.
func (c *Client) LogPayment(amount float64, currency, product string) {
	c.LogEvent("payment.completed", map[string]any{
		"amount":   amount,
		"currency": currency,
		"product":  product,
	})
}
