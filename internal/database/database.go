package database

import (
	"fmt"
	"time"

	"socialnet/backend/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to PostgreSQL and runs migrations.
func Open(dsn string, log zerolog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), Config(log))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	log.Info().Msg("Database connection established.")

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info().Msg("Database migrated successfully.")
	return db, nil
}

// Config is the GORM configuration shared by every dialect the service runs on.
// Timestamps are stored in UTC and driver errors are translated so that unique
// violations surface as gorm.ErrDuplicatedKey.
func Config(log zerolog.Logger) *gorm.Config {
	return &gorm.Config{
		Logger: NewLogger(log, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	}
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(&models.User{}, &models.Connection{}, &models.Message{}, &models.RevokedToken{})
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
