package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jrsteele09/go-sso-bridge/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT value FROM settings").
		WithArgs("jwt_ttl", "jwt_ttl").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("60"))

	value, err := New(db).Get(context.Background(), "jwt_ttl", "jwt_ttl")
	require.NoError(t, err)
	assert.Equal(t, "60", value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT value FROM settings").
		WithArgs("sso", "sso_url").
		WillReturnError(sql.ErrNoRows)

	_, err = New(db).Get(context.Background(), "sso", "sso_url")
	require.ErrorIs(t, err, settings.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT value FROM settings").WillReturnError(errors.New("connection refused"))

	_, err = New(db).Get(context.Background(), "sso", "sso_url")
	require.Error(t, err)
	assert.NotErrorIs(t, err, settings.ErrNotFound)
	assert.Contains(t, err.Error(), "sso/sso_url")
}

func TestPut(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	repo := New(db)
	repo.nowTime = func() time.Time { return now }

	mock.ExpectExec("INSERT INTO settings").
		WithArgs("sso", "sso_origin", "notifications", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Put(context.Background(), "sso", "sso_origin", "notifications"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	defer db.Close()

	repo := New(db)
	require.NoError(t, repo.Migrate(ctx))

	_, err = repo.Get(ctx, "jwt_ttl", "jwt_ttl")
	require.ErrorIs(t, err, settings.ErrNotFound)

	require.NoError(t, repo.Put(ctx, "jwt_ttl", "jwt_ttl", "60"))
	require.NoError(t, repo.Put(ctx, "jwt_ttl", "jwt_ttl", "120"))
	require.NoError(t, repo.Put(ctx, "sso", "sso_url", "https://id.example.com"))

	value, err := repo.Get(ctx, "jwt_ttl", "jwt_ttl")
	require.NoError(t, err)
	assert.Equal(t, "120", value)

	ttl, err := settings.TTLMinutes(ctx, repo)
	require.NoError(t, err)
	assert.Equal(t, 120, ttl)

	entries, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []settings.Entry{
		{Namespace: "jwt_ttl", Key: "jwt_ttl", Value: "120"},
		{Namespace: "sso", Key: "sso_url", Value: "https://id.example.com"},
	}, entries)
}
