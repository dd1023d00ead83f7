package db

import (
	"task_wallet/internal/config" // Application configuration
	"task_wallet/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus"

	"gorm.io/driver/mysql"    // MySQL driver for GORM
	"gorm.io/driver/postgres" // Postgres driver for GORM
	"gorm.io/gorm"            // GORM ORM library
	"gorm.io/gorm/logger"     // GORM logger levels
)

// Models lists every table owned by the service
func Models() []any {
	return []any{
		&domain.User{},
		&domain.Task{},
		&domain.Event{},
		&domain.WithdrawalIntent{},
		&domain.PinRecord{},
		&domain.LedgerEntry{},
	}
}

// Open connects to the configured database
func Open(cfg *config.Config) (*gorm.DB, error) {
	dialector := mysql.Open(cfg.DSN()) // MySQL is the default driver
	if cfg.DB.Driver == "postgres" {
		dialector = postgres.Open(cfg.DSN())
	}
	gormCfg := &gorm.Config{TranslateError: true} // Duplicate keys surface as gorm.ErrDuplicatedKey
	if cfg.IsProd {
		gormCfg.Logger = logger.Default.LogMode(logger.Warn) // Quiet SQL logging in production
	}
	return gorm.Open(dialector, gormCfg)
}

// Migrate performs automatic migration for the database schema
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := db.AutoMigrate(Models()...); err != nil {
		return err
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}
