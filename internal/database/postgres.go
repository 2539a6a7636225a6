package database

import (
	"fmt"
	"time"

	"github.com/vladimiradmaev/chronic-care/internal/config"
	"github.com/vladimiradmaev/chronic-care/internal/database/migrations"
	"github.com/vladimiradmaev/chronic-care/internal/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// LabResultRecord is one journaled test submission
type LabResultRecord struct {
	gorm.Model
	SessionKey    string `gorm:"index"`
	Username      string
	FastingSugar  float64
	PostMealSugar float64
	MeasuredAt    time.Time
}

// MedicationPlanRecord is one journaled medication plan
type MedicationPlanRecord struct {
	gorm.Model
	SessionKey string `gorm:"index"`
	Username   string
	Day        int
	Afternoon  int
	Night      int
}

// DSN builds the postgres connection string
func DSN(cfg config.DBConfig) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName)
}

func NewPostgresDB(cfg config.DBConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(DSN(cfg)), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrations.LoadEmbedded(); err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	if err := migrations.RunMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Columns added after the SQL migrations
	if err := db.AutoMigrate(&LabResultRecord{}, &MedicationPlanRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	logger.Info("Database connection established and migrations completed", "host", cfg.Host, "db", cfg.DBName)
	return db, nil
}
