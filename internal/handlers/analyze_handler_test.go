package handlers

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"ekkoscope/internal/insights"
	"ekkoscope/internal/querygen"
	"ekkoscope/internal/tenants"
	"ekkoscope/internal/visibility"
)

// fakeProber always lists a rival first and optionally mentions the target.
type fakeProber struct {
	name          string
	mentionTarget bool
}

func (f *fakeProber) Name() string { return f.name }

func (f *fakeProber) Probe(_ context.Context, target visibility.Target, query querygen.Query) visibility.ProviderResult {
	result := visibility.ProviderResult{
		Provider: f.name,
		Query:    query.Text,
		Intent:   query.IntentType,
		Brands:   []visibility.BrandHit{{Name: "Rival Roofing", URL: "https://rival.test"}},
		Success:  true,
	}
	if f.mentionTarget {
		pos := 1
		result.Brands = append([]visibility.BrandHit{{Name: target.BusinessName}}, result.Brands...)
		result.TargetFound = true
		result.TargetPosition = &pos
	}
	return result
}

func loadTestRegistry(t *testing.T) *tenants.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tenants.json")
	content := `{
		"apex-roofing": {
			"display_name": "Apex Roofing",
			"domains": ["apexroofing.com"],
			"priority_queries": ["best roofing company in Austin", "roof repair near me"]
		},
		"empty-tenant": {
			"display_name": "No Queries Inc"
		}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write tenants file: %v", err)
	}
	registry, err := tenants.LoadFile(path)
	if err != nil {
		t.Fatalf("failed to load tenants: %v", err)
	}
	return registry
}

func setupAnalyzeRouter(handler *AnalyzeHandler) *gin.Engine {
	r := gin.New()
	r.GET("/tenants", handler.ListTenants)
	r.POST("/analyze/:tenant_id", handler.Analyze)
	return r
}

func newAnalyzeHandler(t *testing.T, probers []visibility.Prober) *AnalyzeHandler {
	t.Helper()
	hub := visibility.NewHub(probers, 10)
	return NewAnalyzeHandler(loadTestRegistry(t), hub, insights.NewGenerator(nil), nil)
}

func TestAnalyzeHandler_ListTenants(t *testing.T) {
	handler := newAnalyzeHandler(t, nil)
	r := setupAnalyzeRouter(handler)

	rec := doRequest(r, "GET", "/tenants", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	result := parseJSON(t, rec)
	if result["count"] != float64(2) {
		t.Errorf("expected 2 tenants, got %v", result["count"])
	}
}

func TestAnalyzeHandler_Analyze(t *testing.T) {
	t.Run("scores a tenant with a mention on every query", func(t *testing.T) {
		handler := newAnalyzeHandler(t, []visibility.Prober{&fakeProber{name: "openai", mentionTarget: true}})
		r := setupAnalyzeRouter(handler)

		rec := doRequest(r, "POST", "/analyze/apex-roofing", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["tenant_name"] != "Apex Roofing" {
			t.Errorf("expected tenant_name Apex Roofing, got %v", result["tenant_name"])
		}
		trueScore, ok := result["true_score"].(map[string]interface{})
		if !ok {
			t.Fatalf("expected true_score object, got %v", result["true_score"])
		}
		if trueScore["calculated_score"] != float64(100) {
			t.Errorf("expected calculated_score 100, got %v", trueScore["calculated_score"])
		}
	})

	t.Run("zero mentions produce a critical risk score", func(t *testing.T) {
		handler := newAnalyzeHandler(t, []visibility.Prober{&fakeProber{name: "openai"}})
		r := setupAnalyzeRouter(handler)

		rec := doRequest(r, "POST", "/analyze/apex-roofing", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		trueScore := result["true_score"].(map[string]interface{})
		if trueScore["calculated_score"] != float64(0) {
			t.Errorf("expected calculated_score 0, got %v", trueScore["calculated_score"])
		}
		if trueScore["risk_level"] != "CRITICAL" {
			t.Errorf("expected CRITICAL risk, got %v", trueScore["risk_level"])
		}
	})

	t.Run("returns 404 for an unknown tenant", func(t *testing.T) {
		handler := newAnalyzeHandler(t, []visibility.Prober{&fakeProber{name: "openai"}})
		r := setupAnalyzeRouter(handler)

		rec := doRequest(r, "POST", "/analyze/nobody", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "TENANT_NOT_FOUND")
	})

	t.Run("returns 503 with no providers", func(t *testing.T) {
		handler := newAnalyzeHandler(t, nil)
		r := setupAnalyzeRouter(handler)

		rec := doRequest(r, "POST", "/analyze/apex-roofing", "")

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "NO_PROVIDERS")
	})

	t.Run("returns 400 for a tenant with no priority queries", func(t *testing.T) {
		handler := newAnalyzeHandler(t, []visibility.Prober{&fakeProber{name: "openai"}})
		r := setupAnalyzeRouter(handler)

		rec := doRequest(r, "POST", "/analyze/empty-tenant", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
