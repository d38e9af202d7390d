package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func TestBusinessFlow(t *testing.T) {
	app := setupApp(t)
	token, _, _ := app.registerUser(t, "owner@example.com", "password123")

	t.Run("create and fetch business", func(t *testing.T) {
		id := app.createBusiness(t, token, "Apex Roofing", "https://apexroofing.com")

		rec := app.request("GET", fmt.Sprintf("/api/v1/businesses/%d", id), "", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["name"] != "Apex Roofing" {
			t.Errorf("expected name, got %v", result["name"])
		}
		// Domain is normalized on create.
		if result["primary_domain"] != "apexroofing.com" {
			t.Errorf("expected normalized domain, got %v", result["primary_domain"])
		}
	})

	t.Run("list is paginated", func(t *testing.T) {
		rec := app.request("GET", "/api/v1/businesses?page=1&page_size=50", "", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if result["total_items"].(float64) < 1 {
			t.Errorf("expected at least one business, got %v", result["total_items"])
		}
		if _, ok := result["data"].([]interface{}); !ok {
			t.Errorf("expected data array, got %v", result["data"])
		}
	})

	t.Run("update business", func(t *testing.T) {
		id := app.createBusiness(t, token, "BrightSmile Dental", "brightsmile.com")

		body := `{"name":"BrightSmile Dental Group","business_type":"b2b_service","regions":["Denver, CO"]}`
		rec := app.request("PUT", fmt.Sprintf("/api/v1/businesses/%d", id), body, token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["name"] != "BrightSmile Dental Group" {
			t.Errorf("expected updated name, got %v", result["name"])
		}
		if result["business_type"] != "b2b_service" {
			t.Errorf("expected updated type, got %v", result["business_type"])
		}
	})

	t.Run("other users cannot see the business", func(t *testing.T) {
		id := app.createBusiness(t, token, "Private Biz", "private.example.com")
		otherToken, _, _ := app.registerUser(t, "intruder@example.com", "password123")

		rec := app.request("GET", fmt.Sprintf("/api/v1/businesses/%d", id), "", otherToken)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for non-owner, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "BUSINESS_NOT_FOUND")
	})

	t.Run("invalid business type rejected", func(t *testing.T) {
		body := `{"name":"Bad Type","primary_domain":"bad.example.com","business_type":"franchise"}`
		rec := app.request("POST", "/api/v1/businesses", body, token)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}
