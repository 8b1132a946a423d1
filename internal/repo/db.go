// Package repo is the GORM persistence layer of the wishlist: features,
// votes and stored idempotency outcomes, on SQLite (pure Go driver) or
// PostgreSQL.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-wishlist-backend/internal/domain"
)

// Supported values for Options.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects the backing store.
type Options struct {
	Driver string // "sqlite" (default) or "postgres"
	DSN    string // file path for SQLite, URL or key=value DSN for PostgreSQL
	// Tracing registers the GORM OpenTelemetry plugin: one span per query.
	Tracing bool
	// LogQueries raises GORM's own logger from silent to warn (slow queries).
	LogQueries bool
}

// sqlitePragmas run on every new connection. foreign_keys and busy_timeout
// are per connection in SQLite, so they must travel in the DSN rather than
// be executed once on the pool.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

type poolLimits struct {
	maxOpen     int
	maxIdleTime time.Duration
	maxLifetime time.Duration
}

var (
	// WAL allows one writer; a small pool keeps writers from piling up on
	// busy_timeout.
	sqlitePool   = poolLimits{maxOpen: 10, maxIdleTime: 5 * time.Minute, maxLifetime: 30 * time.Minute}
	postgresPool = poolLimits{maxOpen: 25, maxIdleTime: 5 * time.Minute, maxLifetime: 30 * time.Minute}
)

// Open connects to the configured store.
func Open(opts Options) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverSQLite:
		db, err = OpenSQLite(opts.DSN)
	case DriverPostgres:
		db, err = OpenPostgres(opts.DSN)
	default:
		return nil, fmt.Errorf("repo: unsupported driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}
	if opts.LogQueries {
		db.Logger = logger.Default.LogMode(logger.Warn)
	}
	if opts.Tracing {
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return nil, fmt.Errorf("repo: tracing plugin: %w", err)
		}
	}
	return db, nil
}

// OpenSQLite opens (or creates) the SQLite database at path.
func OpenSQLite(path string) (*gorm.DB, error) {
	// SQLite reports a missing directory as "out of memory (14)"
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("repo: sqlite directory: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("repo: open sqlite: %w", err)
	}
	return db, sqlitePool.apply(db)
}

// sqliteDSN appends the connection pragmas to path.
func sqliteDSN(path string) string {
	var b strings.Builder
	b.WriteString(path)
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	for _, p := range sqlitePragmas {
		b.WriteString(sep + "_pragma=" + p)
		sep = "&"
	}
	return b.String()
}

// OpenPostgres connects to PostgreSQL.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("repo: postgres DSN must not be empty")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("repo: open postgres: %w", err)
	}
	return db, postgresPool.apply(db)
}

func (p poolLimits) apply(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("repo: pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(p.maxOpen)
	sqlDB.SetMaxIdleConns(p.maxOpen)
	sqlDB.SetConnMaxIdleTime(p.maxIdleTime)
	sqlDB.SetConnMaxLifetime(p.maxLifetime)
	return nil
}

// AutoMigrate creates or updates the features, votes and idempotency tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.FeatureRequest{},
		&domain.Vote{},
		&domain.Idempotency{},
	)
}
