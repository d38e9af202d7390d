package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"ekkoscope/internal/config"
	"ekkoscope/internal/fixplan"
	"ekkoscope/internal/handlers"
	"ekkoscope/internal/insights"
	"ekkoscope/internal/logger"
	"ekkoscope/internal/middleware"
	"ekkoscope/internal/models"
	"ekkoscope/internal/querygen"
	"ekkoscope/internal/services"
	"ekkoscope/internal/sherlock"
	"ekkoscope/internal/sitescan"
	"ekkoscope/internal/validator"
	"ekkoscope/internal/visibility"
)

// testApp holds the full application stack for integration tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

// dbCounter ensures each test gets a unique in-memory database.
var dbCounter atomic.Int64

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// fakeProber lists a fixed rival and optionally surfaces the target first.
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
		Brands:   []visibility.BrandHit{{Name: "Rival Roofing"}},
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

// setupIsolatedDB creates an isolated in-memory SQLite database for a single test.
func setupIsolatedDB(t *testing.T) *gorm.DB {
	t.Helper()

	n := dbCounter.Add(1)
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", n)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	allModels := []interface{}{
		&models.User{},
		&models.Business{},
		&models.Audit{},
		&models.AuditQuery{},
		&models.QueryVisibilityResult{},
		&models.Purchase{},
		&models.PageBlueprint{},
		&models.RoadmapTask{},
		&models.SherlockScan{},
		&models.SherlockCompetitor{},
		&models.SherlockMission{},
	}
	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// setupApp creates a full application stack backed by an isolated in-memory
// SQLite, with fake visibility probers and no external integrations.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := setupIsolatedDB(t)

	cfg := &config.Config{
		ReportsDir:           t.TempDir(),
		MaxVisibilityQueries: 5,
	}
	probers := []visibility.Prober{&fakeProber{name: "openai", mentionTarget: true}}
	hub := visibility.NewHub(probers, cfg.MaxVisibilityQueries)
	insightsGen := insights.NewGenerator(nil)
	planner := fixplan.NewPlanner(nil)
	scanner := sitescan.NewScanner(500 * time.Millisecond)
	engine := sherlock.NewEngine(db, nil, nil, nil, scanner)

	// Services
	userService := services.NewUserService(db)
	businessService := services.NewBusinessService(db)
	purchaseService := services.NewPurchaseService(db)
	auditService := services.NewAuditService(db, cfg, hub, insightsGen, nil,
		scanner, businessService, purchaseService, nil)
	missionService := services.NewMissionService(db, engine, businessService)
	fixService := services.NewFixService(auditService, planner)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, nil)
	businessHandler := handlers.NewBusinessHandler(businessService)
	auditHandler := handlers.NewAuditHandler(auditService, fixService)
	sherlockHandler := handlers.NewSherlockHandler(engine, missionService, businessService)
	adminHandler := handlers.NewAdminHandler(db, businessService, auditService)

	// Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())

	v1 := router.Group("/api/v1")

	// Public auth routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	businesses := protected.Group("/businesses")
	businesses.POST("", businessHandler.CreateBusiness)
	businesses.GET("", businessHandler.ListBusinesses)
	businesses.GET("/:id", businessHandler.GetBusiness)
	businesses.PUT("/:id", businessHandler.UpdateBusiness)
	businesses.POST("/:id/audits", auditHandler.StartAudit)
	businesses.GET("/:id/audits", auditHandler.ListAudits)

	audits := protected.Group("/audits")
	audits.GET("/:id", auditHandler.GetAudit)
	audits.GET("/:id/report", auditHandler.DownloadReport)
	audits.POST("/:id/fixplan", auditHandler.GenerateFixPlan)

	protected.GET("/dossier/:business_id", auditHandler.DownloadDossier)

	sherlockGroup := router.Group("/api/sherlock")
	sherlockGroup.Use(middleware.AuthMiddleware())
	sherlockGroup.GET("/status", sherlockHandler.Status)
	sherlockGroup.POST("/ingest", sherlockHandler.Ingest)
	sherlockGroup.GET("/missions/:id", sherlockHandler.ListMissions)
	sherlockGroup.POST("/missions/:id/complete", sherlockHandler.CompleteMission)

	admin := v1.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	admin.GET("/businesses", adminHandler.ListBusinesses)
	admin.GET("/audits/:id", adminHandler.GetAudit)
	admin.POST("/businesses/:id/run", adminHandler.RunAudit)
	admin.GET("/stats", adminHandler.Stats)

	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// assertErrorCode asserts the structured error code in a response body.
func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

// registerUser registers a new user and returns the access token, refresh token, and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (accessToken, refreshToken string, userID float64) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"first_name":"Test","last_name":"User"}`, email, password)
	rec := app.request("POST", "/api/v1/auth/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	user := result["user"].(map[string]interface{})
	return result["access_token"].(string), result["refresh_token"].(string), user["id"].(float64)
}

// loginUser logs in and returns the access and refresh tokens.
func (app *testApp) loginUser(t *testing.T, email, password string) (accessToken, refreshToken string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	rec := app.request("POST", "/api/v1/auth/login", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	return result["access_token"].(string), result["refresh_token"].(string)
}

// createBusiness creates a business through the API and returns its ID.
func (app *testApp) createBusiness(t *testing.T, token, name, domain string) uint {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"primary_domain":%q,"business_type":"local_service","regions":["Austin, TX"],"categories":["roofing"]}`, name, domain)
	rec := app.request("POST", "/api/v1/businesses", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create business failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	return uint(result["id"].(float64))
}

// grantSnapshotCredit inserts a paid, unused snapshot purchase for the user.
func (app *testApp) grantSnapshotCredit(t *testing.T, userID, businessID uint) {
	t.Helper()
	purchase := &models.Purchase{
		UserID:     userID,
		BusinessID: businessID,
		Kind:       models.PurchaseKindSnapshot,
		Status:     models.PurchaseStatusPaid,
	}
	if err := app.DB.Create(purchase).Error; err != nil {
		t.Fatalf("failed to grant snapshot credit: %v", err)
	}
}

// promoteToAdmin flips the user's admin flag directly in the database.
func (app *testApp) promoteToAdmin(t *testing.T, userID uint) {
	t.Helper()
	if err := app.DB.Model(&models.User{}).Where("id = ?", userID).Update("is_admin", true).Error; err != nil {
		t.Fatalf("failed to promote user: %v", err)
	}
}

// waitForAudit polls until the audit leaves the pending/running states.
func (app *testApp) waitForAudit(t *testing.T, auditID uint) *models.Audit {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		var audit models.Audit
		if err := app.DB.First(&audit, auditID).Error; err != nil {
			t.Fatalf("failed to load audit %d: %v", auditID, err)
		}
		if audit.Status == models.AuditStatusDone || audit.Status == models.AuditStatusError {
			return &audit
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("audit %d never finished", auditID)
	return nil
}
