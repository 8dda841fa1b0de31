package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-sso-bridge/settings"
)

var _ settings.Repo = (*Repo)(nil)

const createTable = `
CREATE TABLE IF NOT EXISTS settings (
	namespace   VARCHAR(100) NOT NULL,
	setting_key VARCHAR(100) NOT NULL,
	value       TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL,
	PRIMARY KEY (namespace, setting_key)
)`

// Repo is a settings.Repo over database/sql. The queries stay within the
// subset of SQL shared by PostgreSQL and SQLite.
type Repo struct {
	db      *sql.DB
	nowTime func() time.Time
}

func New(db *sql.DB) *Repo {
	return &Repo{db: db, nowTime: time.Now}
}

// Migrate creates the settings table if it does not exist.
func (r *Repo) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("[settings Migrate] %w", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, namespace, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE namespace = $1 AND setting_key = $2`,
		namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", settings.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("[settings Get] %s/%s: %w", namespace, key, err)
	}
	return value, nil
}

func (r *Repo) Put(ctx context.Context, namespace, key, value string) error {
	now := r.nowTime().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (namespace, setting_key, value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (namespace, setting_key)
		DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		namespace, key, value, now,
	)
	if err != nil {
		return fmt.Errorf("[settings Put] %s/%s: %w", namespace, key, err)
	}
	return nil
}

// List returns every setting ordered by namespace and key.
func (r *Repo) List(ctx context.Context) ([]settings.Entry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT namespace, setting_key, value FROM settings ORDER BY namespace, setting_key`)
	if err != nil {
		return nil, fmt.Errorf("[settings List] %w", err)
	}
	defer rows.Close()

	var entries []settings.Entry
	for rows.Next() {
		var e settings.Entry
		if err := rows.Scan(&e.Namespace, &e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("[settings List] scan: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
