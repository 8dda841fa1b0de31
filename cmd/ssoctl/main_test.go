package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jrsteele09/go-sso-bridge/internal/config"
	"github.com/jrsteele09/go-sso-bridge/internal/database"
	"github.com/jrsteele09/go-sso-bridge/settings"
	"github.com/jrsteele09/go-sso-bridge/users"
	usersql "github.com/jrsteele09/go-sso-bridge/users/sqlrepo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ctl(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_DRIVER", config.DriverSQLite)
	t.Setenv("PROVIDER_TIMEOUT", "5s")

	var out bytes.Buffer
	full := append([]string{"--database-driver", config.DriverSQLite, "--database-url", dbPath}, args...)
	err := run(context.Background(), full, &out)
	return out.String(), err
}

func TestSettingsSetGet(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sso.db")

	out, err := ctl(t, dbPath, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema is up to date")

	_, err = ctl(t, dbPath, "settings", "set", settings.NamespaceJWTTTL, settings.KeyJWTTTL, "60")
	require.NoError(t, err)

	out, err = ctl(t, dbPath, "settings", "get", settings.NamespaceJWTTTL, settings.KeyJWTTTL)
	require.NoError(t, err)
	assert.Equal(t, "60", strings.TrimSpace(out))

	_, err = ctl(t, dbPath, "settings", "set", settings.NamespaceSSO, settings.KeyURL, "https://id.example.com/api/login")
	require.NoError(t, err)

	out, err = ctl(t, dbPath, "settings", "list")
	require.NoError(t, err)
	var entries []settings.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	assert.Equal(t, []settings.Entry{
		{Namespace: settings.NamespaceJWTTTL, Key: settings.KeyJWTTTL, Value: "60"},
		{Namespace: settings.NamespaceSSO, Key: settings.KeyURL, Value: "https://id.example.com/api/login"},
	}, entries)
}

func TestSettingsGetMissing(t *testing.T) {
	_, err := ctl(t, filepath.Join(t.TempDir(), "sso.db"), "settings", "get", "sso", "sso_url")
	require.ErrorContains(t, err, "sso/sso_url is not set")
}

func TestUsersGet(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sso.db")
	ctx := context.Background()

	db, err := database.Open(ctx, dbConfig{driver: config.DriverSQLite, url: dbPath})
	require.NoError(t, err)
	repo := usersql.New(db)
	require.NoError(t, repo.Migrate(ctx))
	_, err = repo.Create(ctx, &users.User{ExternalID: "c194ec18", Name: "Sokha Chan", CredentialHash: "secret-hash"})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err := ctl(t, dbPath, "users", "get", "c194ec18")
	require.NoError(t, err)
	assert.Contains(t, out, `"user_id": "c194ec18"`)
	assert.Contains(t, out, `"name": "Sokha Chan"`)
	assert.NotContains(t, out, "secret-hash")

	_, err = ctl(t, dbPath, "users", "get", "nobody")
	require.ErrorContains(t, err, "has not been provisioned")
}

func TestUsageErrors(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sso.db")

	for _, args := range [][]string{
		{},
		{"bogus"},
		{"settings"},
		{"settings", "get", "only-namespace"},
		{"settings", "delete", "a", "b"},
		{"users", "list"},
	} {
		_, err := ctl(t, dbPath, args...)
		assert.Error(t, err, args)
	}
}
