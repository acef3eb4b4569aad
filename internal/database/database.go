// Package database opens the article store and migrates its schema.
package database

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/welldanyogia/paperboy/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// PostgreSQL pool limits
const (
	DefaultMaxIdleConns    = 10
	DefaultMaxOpenConns    = 100
	DefaultConnMaxLifetime = time.Hour
	DefaultConnMaxIdleTime = 10 * time.Minute
)

const sqlitePrefix = "sqlite://"

type options struct {
	production bool
	logger     *slog.Logger
	sqlLevel   gormlogger.LogLevel
}

// Option configures Connect
type Option func(*options)

// WithProduction refuses PostgreSQL URLs that disable TLS
func WithProduction(production bool) Option {
	return func(o *options) { o.production = production }
}

// WithLogger sets the logger used for connection and migration messages
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSQLLogLevel sets the gorm statement log level. Defaults to warn.
func WithSQLLogLevel(level gormlogger.LogLevel) Option {
	return func(o *options) { o.sqlLevel = level }
}

// Connect opens the article database. URLs starting with sqlite:// open a
// local SQLite file, everything else goes to the PostgreSQL driver.
func Connect(databaseURL string, opts ...Option) (*gorm.DB, error) {
	o := options{logger: slog.Default(), sqlLevel: gormlogger.Warn}
	for _, opt := range opts {
		opt(&o)
	}

	sqliteURL := IsSQLite(databaseURL)
	if o.production && !sqliteURL {
		if err := validateSSLMode(databaseURL); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(dialectorFor(databaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(o.sqlLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if sqliteURL {
		// one writer at a time, or workers hit "database is locked"
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(DefaultMaxIdleConns)
		sqlDB.SetMaxOpenConns(DefaultMaxOpenConns)
		sqlDB.SetConnMaxLifetime(DefaultConnMaxLifetime)
		sqlDB.SetConnMaxIdleTime(DefaultConnMaxIdleTime)
	}

	o.logger.Info("connected to database", slog.String("driver", db.Dialector.Name()))
	return db, nil
}

// IsSQLite reports whether the URL selects the embedded SQLite driver
func IsSQLite(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, sqlitePrefix)
}

func dialectorFor(databaseURL string) gorm.Dialector {
	if IsSQLite(databaseURL) {
		return sqlite.Open(strings.TrimPrefix(databaseURL, sqlitePrefix))
	}
	return postgres.Open(databaseURL)
}

func validateSSLMode(databaseURL string) error {
	if strings.Contains(databaseURL, "sslmode=disable") {
		return fmt.Errorf("SSL mode cannot be disabled in production")
	}
	return nil
}

// AllModels lists every persisted model in migration order
func AllModels() []interface{} {
	return []interface{}{
		&models.Newsletter{},
		&models.Article{},
		&models.EmailArchive{},
		&models.WeeklyDigest{},
		&models.InboundMessage{},
		&models.OutboundEmail{},
	}
}

// Migrate creates or updates every table
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Ping checks that the database answers
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}

// Close closes the database connection
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
