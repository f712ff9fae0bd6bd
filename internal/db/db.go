package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/vivahvows/internal/config"
)

// NewDB initializes the database connection using DSN from config.
// Development runs fall back to a local SQLite file when MYSQL_DSN is unset
// and no MySQL server is reachable via the assembled DSN.
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DB.DSN), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		if cfg.App.ENV != "development" {
			return nil, fmt.Errorf("failed to open db: %w", err)
		}
		db, err = gorm.Open(sqlite.Open("vivahvows.db"), &gorm.Config{TranslateError: true})
		if err != nil {
			return nil, fmt.Errorf("failed to open fallback sqlite db: %w", err)
		}
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate ensures the schema is in sync with the models.
// Shared by the server, the seeder, and package tests.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&User{},
		&Profile{},
		&Interest{},
		&MatchAction{},
		&MutualMatch{},
		&ChatRoom{},
		&Message{},
		&Notification{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
