package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver, registered as "sqlite"

	"github.com/jrsteele09/go-sso-bridge/internal/config"
)

const (
	pingTimeout   = 5 * time.Second
	sqlitePragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
)

// Open opens and pings the database described by cfg.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	var (
		driverName string
		dsn        = cfg.GetDatabaseURL()
	)

	switch cfg.GetDatabaseDriver() {
	case config.DriverPostgres:
		driverName = "postgres"
	case config.DriverSQLite:
		driverName = "sqlite"
		if err := os.MkdirAll(filepath.Dir(sqlitePath(dsn)), 0o700); err != nil {
			return nil, fmt.Errorf("[database Open] creating data folder: %w", err)
		}
		dsn = sqliteDSN(dsn)
	default:
		return nil, fmt.Errorf("[database Open] unsupported driver %q", cfg.GetDatabaseDriver())
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("[database Open] open %s: %w", driverName, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("[database Open] ping %s: %w", driverName, err)
	}
	return db, nil
}

// sqlitePath strips the file: scheme and query string from a sqlite DSN.
func sqlitePath(dsn string) string {
	path, _, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	return path
}

// sqliteDSN appends the connection pragmas, keeping any existing query.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + sqlitePragmas
	}
	return dsn + "?" + sqlitePragmas
}
