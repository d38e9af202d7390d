package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"ekkoscope/internal/billing"
	"ekkoscope/internal/config"
	"ekkoscope/internal/database"
	"ekkoscope/internal/fixplan"
	"ekkoscope/internal/handlers"
	"ekkoscope/internal/insights"
	"ekkoscope/internal/logger"
	"ekkoscope/internal/middleware"
	"ekkoscope/internal/providers"
	"ekkoscope/internal/report"
	"ekkoscope/internal/scheduler"
	"ekkoscope/internal/sentinel"
	"ekkoscope/internal/services"
	"ekkoscope/internal/sherlock"
	"ekkoscope/internal/sitescan"
	"ekkoscope/internal/tenants"
	"ekkoscope/internal/validator"
	"ekkoscope/internal/visibility"
)

const siteScanTimeout = 15 * time.Second

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create database manager and run migrations
	dbManager, err := database.NewManager(appConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	db := dbManager.DB()

	// AI provider clients. Every provider is optional; the hub probes
	// whichever ones are configured.
	var (
		openaiChat   *providers.ChatClient
		geminiClient *providers.GeminiClient
		probers      []visibility.Prober
	)
	if appConfig.OpenAIEnabled() {
		openaiChat = providers.NewChatClient(appConfig.OpenAIKey, providers.OpenAIBaseURL, appConfig.OpenAIModel)
		probers = append(probers, providers.NewOpenAIProber(openaiChat))
	}
	if appConfig.PerplexityEnabled() {
		perplexityChat := providers.NewChatClient(appConfig.PerplexityKey, providers.PerplexityBaseURL, appConfig.PerplexityModel)
		probers = append(probers, providers.NewPerplexityProber(perplexityChat))
	}
	if appConfig.GeminiEnabled() {
		geminiClient = providers.NewGeminiClient(appConfig.GeminiKey, appConfig.GeminiModel)
		probers = append(probers, providers.NewGeminiProber(geminiClient))
	}
	log.Infof("Visibility hub configured with %d provider(s)", len(probers))

	hub := visibility.NewHub(probers, appConfig.MaxVisibilityQueries)
	insightsGen := insights.NewGenerator(openaiChat)
	planner := fixplan.NewPlanner(openaiChat)
	scanner := sitescan.NewScanner(siteScanTimeout)

	// Gemini doubles as the integrity cross-check model when configured.
	var integrityGen report.ContentGenerator
	if geminiClient != nil {
		integrityGen = geminiClient
	}

	// Sherlock semantic gap engine. Without the vector index it still
	// serves mission listing and completion but reports disabled.
	var (
		embedder sherlock.Embedder
		index    sherlock.VectorIndex
	)
	if appConfig.SherlockEnabled() && appConfig.OpenAIEnabled() {
		embedder = providers.NewEmbeddingClient(appConfig.OpenAIKey)
		index = sherlock.NewPineconeIndex(appConfig.PineconeKey, appConfig.PineconeHost)
		log.Infof("Sherlock engine enabled (index %s)", appConfig.PineconeIndex)
	}
	engine := sherlock.NewEngine(db, embedder, index, openaiChat, scanner)

	billingClient := billing.NewClient(appConfig.StripeSecretKey, appConfig.StripeWebhookSecret,
		appConfig.StripePriceSnapshot, appConfig.StripePriceOngoing)
	sentinelClient := sentinel.NewClient(appConfig.SentinelKey, appConfig.SentinelEndpoint)

	// Tenant bootstrap registry for the ops analyze surface.
	registry, err := tenants.LoadFile(appConfig.TenantsFile)
	if err != nil {
		return fmt.Errorf("failed to load tenants file: %w", err)
	}
	log.Infof("Loaded %d tenant(s) from %s", registry.Len(), appConfig.TenantsFile)

	// Initialize services
	userService := services.NewUserService(db)
	businessService := services.NewBusinessService(db)
	purchaseService := services.NewPurchaseService(db)
	auditService := services.NewAuditService(db, appConfig, hub, insightsGen, integrityGen,
		scanner, businessService, purchaseService, sentinelClient)
	missionService := services.NewMissionService(db, engine, businessService)
	fixService := services.NewFixService(auditService, planner)

	sched := scheduler.New(db, auditService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, sentinelClient)
	businessHandler := handlers.NewBusinessHandler(businessService)
	auditHandler := handlers.NewAuditHandler(auditService, fixService)
	billingHandler := handlers.NewBillingHandler(billingClient, purchaseService, businessService, sentinelClient)
	sherlockHandler := handlers.NewSherlockHandler(engine, missionService, businessService)
	adminHandler := handlers.NewAdminHandler(db, businessService, auditService)
	analyzeHandler := handlers.NewAnalyzeHandler(registry, hub, insightsGen, integrityGen)

	// Initialize Gin router
	validator.Register()
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Stripe calls this; authentication is the webhook signature.
	v1.POST("/billing/webhook", billingHandler.Webhook)

	// Tenant analyze surface, gated by the ops API key.
	ops := v1.Group("/")
	ops.Use(middleware.OpsAuthMiddleware(appConfig.OpsAPIKey))
	ops.GET("/tenants", analyzeHandler.ListTenants)
	ops.POST("/analyze/:tenant_id", analyzeHandler.Analyze)
	ops.POST("/ops/scheduler/run", func(c *gin.Context) {
		ran, err := sched.RunCycle(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "SCHEDULER_FAILED", "message": err.Error()}})
			return
		}
		c.JSON(http.StatusOK, gin.H{"audits_started": ran})
	})

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Business routes
	businesses := protected.Group("/businesses")
	businesses.POST("", businessHandler.CreateBusiness)
	businesses.GET("", businessHandler.ListBusinesses)
	businesses.GET("/:id", businessHandler.GetBusiness)
	businesses.PUT("/:id", businessHandler.UpdateBusiness)
	businesses.POST("/:id/audits", auditHandler.StartAudit)
	businesses.GET("/:id/audits", auditHandler.ListAudits)

	// Audit routes
	audits := protected.Group("/audits")
	audits.GET("/:id", auditHandler.GetAudit)
	audits.GET("/:id/report", auditHandler.DownloadReport)
	audits.POST("/:id/fixplan", auditHandler.GenerateFixPlan)

	protected.GET("/dossier/:business_id", auditHandler.DownloadDossier)

	// Billing routes
	protected.POST("/billing/checkout", billingHandler.CreateCheckout)

	// Sherlock routes. Under /missions the :id is the business for list
	// and generate, the mission itself for complete.
	sherlockGroup := router.Group("/api/sherlock")
	sherlockGroup.Use(middleware.AuthMiddleware())
	sherlockGroup.GET("/status", sherlockHandler.Status)
	sherlockGroup.POST("/ingest", sherlockHandler.Ingest)
	sherlockGroup.POST("/competitors", sherlockHandler.AddCompetitor)
	sherlockGroup.GET("/gap/:business_id", sherlockHandler.AnalyzeGap)
	sherlockGroup.GET("/missions/:id", sherlockHandler.ListMissions)
	sherlockGroup.POST("/missions/:id/generate", sherlockHandler.GenerateMissions)
	sherlockGroup.POST("/missions/:id/complete", sherlockHandler.CompleteMission)

	// Admin routes
	admin := v1.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.AdminMiddleware())
	admin.GET("/businesses", adminHandler.ListBusinesses)
	admin.GET("/audits/:id", adminHandler.GetAudit)
	admin.POST("/businesses/:id/run", adminHandler.RunAudit)
	admin.GET("/stats", adminHandler.Stats)

	// Quarterly re-audit loop for ongoing subscriptions.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Loop(ctx, appConfig.SchedulerInterval)

	log.Infof("Starting EkkoScope API server on port %s", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
