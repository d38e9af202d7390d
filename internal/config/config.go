package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Port string

	// Database
	DBDriver   string
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// AI providers
	OpenAIKey       string
	OpenAIModel     string
	PerplexityKey   string
	PerplexityModel string
	GeminiKey       string
	GeminiModel     string

	// Sherlock vector index
	PineconeKey   string
	PineconeHost  string
	PineconeIndex string

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string
	StripePriceSnapshot string
	StripePriceOngoing  string

	// Sentinel telemetry
	SentinelEndpoint string
	SentinelKey      string

	// Ops
	OpsAPIKey string

	// Audits
	ReportsDir           string
	TenantsFile          string
	MaxVisibilityQueries int
	SchedulerInterval    time.Duration
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		// Server
		Port: getEnv("PORT", "8080"),

		// Database
		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		DBPath:     getEnv("DB_PATH", "ekkoscope.db"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "ekkoscope"),
		DBPassword: getEnv("DB_PASSWORD", "ekkoscope"),
		DBName:     getEnv("DB_NAME", "ekkoscope"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),

		// AI providers
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		PerplexityKey:   os.Getenv("PERPLEXITY_API_KEY"),
		PerplexityModel: getEnv("PERPLEXITY_MODEL", "sonar-pro"),
		GeminiKey:       os.Getenv("GOOGLE_GEMINI_API_KEY"),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		// Sherlock vector index
		PineconeKey:   os.Getenv("PINECONE_API_KEY"),
		PineconeHost:  os.Getenv("PINECONE_INDEX_HOST"),
		PineconeIndex: getEnv("SHERLOCK_INDEX_NAME", "ekkoscope-memory"),

		// Stripe
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripePriceSnapshot: os.Getenv("STRIPE_PRICE_SNAPSHOT"),
		StripePriceOngoing:  os.Getenv("STRIPE_PRICE_ONGOING"),

		// Sentinel telemetry
		SentinelEndpoint: os.Getenv("SENTINEL_ENDPOINT"),
		SentinelKey:      os.Getenv("SENTINEL_API_KEY"),

		// Ops
		OpsAPIKey: os.Getenv("OPS_API_KEY"),

		// Audits
		ReportsDir:           getEnv("REPORTS_DIR", "reports"),
		TenantsFile:          getEnv("TENANTS_FILE", "data/tenants.json"),
		MaxVisibilityQueries: getEnvInt("MAX_VISIBILITY_QUERIES", 10),
	}

	// Parse JWT expiration duration
	expStr := getEnv("JWT_EXPIRES_IN", "24h")
	expDur, err := time.ParseDuration(expStr)
	if err != nil {
		log.Printf("Warning: invalid JWT_EXPIRES_IN value '%s', falling back to 24h\n", expStr)
		expDur = 24 * time.Hour
	}
	config.JWTExpirationDur = expDur

	intervalStr := getEnv("SCHEDULER_INTERVAL", "60m")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		log.Printf("Warning: invalid SCHEDULER_INTERVAL value '%s', falling back to 60m\n", intervalStr)
		interval = 60 * time.Minute
	}
	config.SchedulerInterval = interval

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// OpenAIEnabled reports whether the OpenAI API is configured.
func (c *Config) OpenAIEnabled() bool { return c.OpenAIKey != "" }

// PerplexityEnabled reports whether the Perplexity API is configured.
func (c *Config) PerplexityEnabled() bool { return c.PerplexityKey != "" }

// GeminiEnabled reports whether the Gemini API is configured.
func (c *Config) GeminiEnabled() bool { return c.GeminiKey != "" }

// SherlockEnabled reports whether the Sherlock vector index is configured.
func (c *Config) SherlockEnabled() bool { return c.PineconeKey != "" && c.PineconeHost != "" }

// StripeEnabled reports whether Stripe billing is configured.
func (c *Config) StripeEnabled() bool { return c.StripeSecretKey != "" }

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, value, defaultValue)
	}
	return defaultValue
}
