package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-sso-bridge/users"
)

var _ users.UserRepo = (*Repo)(nil)

const createTable = `
CREATE TABLE IF NOT EXISTS users (
	id              VARCHAR(36) PRIMARY KEY,
	user_id         VARCHAR(255) NOT NULL UNIQUE,
	name            VARCHAR(255) NOT NULL,
	hash            VARCHAR(255) NOT NULL,
	created_at      TIMESTAMP NOT NULL,
	updated_at      TIMESTAMP NOT NULL
)`

// Repo is a users.UserRepo over database/sql, usable with PostgreSQL and
// SQLite. Uniqueness of user_id is enforced by the database.
type Repo struct {
	db      *sql.DB
	nowTime func() time.Time
}

func New(db *sql.DB) *Repo {
	return &Repo{db: db, nowTime: time.Now}
}

// Migrate creates the users table if it does not exist.
func (r *Repo) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("[users Migrate] %w", err)
	}
	return nil
}

func (r *Repo) GetByExternalID(ctx context.Context, externalID string) (*users.User, error) {
	u := &users.User{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, hash, created_at, updated_at
		FROM users WHERE user_id = $1`, externalID,
	).Scan(&u.ID, &u.ExternalID, &u.Name, &u.CredentialHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("[users GetByExternalID] %w", err)
	}
	return u, nil
}

// Create inserts user. A row that already exists for the same user_id,
// whether present before or inserted concurrently, is reported as
// users.ErrAlreadyExists rather than as a constraint violation.
func (r *Repo) Create(ctx context.Context, user *users.User) (*users.User, error) {
	stored := *user
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.nowTime()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}
	stored.CreatedAt = stored.CreatedAt.UTC()
	stored.UpdatedAt = stored.UpdatedAt.UTC()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, user_id, name, hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO NOTHING`,
		stored.ID, stored.ExternalID, stored.Name, stored.CredentialHash, stored.CreatedAt, stored.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("[users Create] %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("[users Create] rows affected: %w", err)
	}
	if n == 0 {
		return nil, users.ErrAlreadyExists
	}
	return &stored, nil
}
