package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Wikid82/warden/internal/config"
	"github.com/Wikid82/warden/internal/models"
)

// Connect opens the database selected by the configuration.
func Connect(cfg config.Config) (*gorm.DB, error) {
	switch cfg.DatabaseDriver {
	case "postgres":
		return OpenPostgres(cfg.DatabaseDSN)
	default:
		return Open(cfg.DatabasePath)
	}
}

// Open bootstraps a SQLite database using the provided filesystem path.
// Foreign keys are enforced so deleting a website cascades to its requests.
// Transactions begin IMMEDIATE so concurrent writers queue on busy_timeout
// instead of failing when they upgrade a read lock.
func Open(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(withSQLitePragmas(dbPath)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	return db, nil
}

// OpenPostgres connects to a PostgreSQL server using a libpq-style DSN or URL.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	return db, nil
}

// Migrate creates or updates the schema for every model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

const sqlitePragmas = "_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"

func withSQLitePragmas(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + sqlitePragmas
}
