package database

import (
	"fmt"
	"time"

	"ekkoscope/internal/config"
	"ekkoscope/internal/logger"
	"ekkoscope/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// AllModels is the list of GORM models migrated at startup and in tests.
var AllModels = []interface{}{
	&models.User{},
	&models.Business{},
	&models.Audit{},
	&models.AuditQuery{},
	&models.QueryVisibilityResult{},
	&models.Purchase{},
	&models.SherlockScan{},
	&models.SherlockCompetitor{},
	&models.SherlockMission{},
	&models.PageBlueprint{},
	&models.RoadmapTask{},
}

// Manager handles database operations
type Manager struct {
	db *gorm.DB
}

// NewManager opens the configured database. SQLite is the default; set
// DB_DRIVER=postgres to use PostgreSQL.
func NewManager(cfg *config.Config) (*Manager, error) {
	var db *gorm.DB
	var err error

	switch cfg.DBDriver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	default:
		db, err = gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Manager{db: db}, nil
}

// Migrate creates or updates the schema for all models.
func (m *Manager) Migrate() error {
	logger.Get().Info("Running database migrations...")
	if err := m.db.AutoMigrate(AllModels...); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Get().Info("Database migrations completed successfully")
	return nil
}

// DB returns the underlying GORM database instance
func (m *Manager) DB() *gorm.DB {
	return m.db
}
