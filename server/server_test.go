package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-sso-bridge/credentials"
	"github.com/jrsteele09/go-sso-bridge/internal/config"
	"github.com/jrsteele09/go-sso-bridge/provider"
	"github.com/jrsteele09/go-sso-bridge/server"
	"github.com/jrsteele09/go-sso-bridge/settings"
	fakesettingsrepo "github.com/jrsteele09/go-sso-bridge/settings/repofake"
	"github.com/jrsteele09/go-sso-bridge/sso"
	"github.com/jrsteele09/go-sso-bridge/token"
	"github.com/jrsteele09/go-sso-bridge/users"
	fakeuserrepo "github.com/jrsteele09/go-sso-bridge/users/repofake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	jwtSecret   = "local-session-secret"
	testUserID  = "c194ec18-07a4-45cc-9424-d1856c2b85a8"
	testHash    = "26EjPjkfb8aFbWrpJUg1sp2e"
	testOrigin  = "portal"
	sharedToken = "shared-token"
	allowedSite = "https://portal.example.com"
)

var now = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

type testConfig struct {
	secret string
}

var _ config.Config = testConfig{}

func (testConfig) GetPort() string { return ":0" }
func (testConfig) GetAppName() string { return "SSO Bridge" }
func (testConfig) GetEnv() string { return "TEST" }
func (testConfig) GetLogLevel() string { return "info" }
func (testConfig) IsDev() bool { return false }
func (c testConfig) GetJWTSecret() string { return c.secret }
func (testConfig) GetProviderTimeout() time.Duration { return time.Second }
func (testConfig) GetDatabaseDriver() string { return config.DriverSQLite }
func (testConfig) GetDatabaseURL() string { return ":memory:" }
func (testConfig) GetAllowedMethods() string { return "GET, POST, OPTIONS" }
func (testConfig) GetAllowedHeaders() string { return "Content-Type, Authorization" }
func (testConfig) GetAllowedOrigins() config.AllowedOrigins {
	return config.AllowedOrigins{allowedSite: {}}
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type fixture struct {
	settings *fakesettingsrepo.FakeSettingsRepo
	users    *fakeuserrepo.FakeUserRepo
	registry *prometheus.Registry
	server   *server.Server
	provider *httptest.Server
	hits     *atomic.Int32
}

func newFixture(t *testing.T, providerStatus int, providerBody string) *fixture {
	t.Helper()
	f := &fixture{
		settings: fakesettingsrepo.NewFakeSettingsRepo(),
		users:    fakeuserrepo.NewFakeUserRepo(),
		registry: prometheus.NewRegistry(),
		hits:     &atomic.Int32{},
	}
	f.provider = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(providerStatus)
		_, _ = w.Write([]byte(providerBody))
	}))
	t.Cleanup(f.provider.Close)

	ctx := context.Background()
	require.NoError(t, f.settings.Put(ctx, settings.NamespaceSSO, settings.KeyURL, f.provider.URL))
	require.NoError(t, f.settings.Put(ctx, settings.NamespaceSSO, settings.KeyOrigin, testOrigin))
	require.NoError(t, f.settings.Put(ctx, settings.NamespaceSSO, settings.KeyToken, sharedToken))

	clock := func() time.Time { return now }
	bridge := sso.New(jwtSecret, f.settings, f.users, provider.NewClient(time.Second), sso.WithNowTime(clock))
	f.server = server.New(testConfig{secret: jwtSecret}, bridge, server.WithRegistry(f.registry), server.WithNowTime(clock))
	return f
}

func (f *fixture) seedUser(t *testing.T) {
	t.Helper()
	_, err := f.users.Create(context.Background(), &users.User{ExternalID: testUserID, Name: "Sokha Chan", CredentialHash: testHash})
	require.NoError(t, err)
}

func (f *fixture) do(t *testing.T, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func gatewayToken(t *testing.T) string {
	t.Helper()
	raw, err := token.NewHMACSigner("gateway-secret").Sign(&token.Claims{UserID: testUserID, Hash: testHash})
	require.NoError(t, err)
	return raw
}

type loginData struct {
	Token string `json:"token"`
	User  struct {
		UserID string `json:"user_id"`
		Name   string `json:"name"`
	} `json:"user"`
}

func decodeLogin(t *testing.T, env envelope) loginData {
	t.Helper()
	var data loginData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data
}

const providerOK = `{"status":"success","message":"ok","data":{"token":"upstream","user":{"name":"Sokha Chan"}}}`

func TestTokenLogin(t *testing.T) {
	f := newFixture(t, http.StatusOK, providerOK)
	f.seedUser(t)

	rec, env := f.do(t, http.MethodPost, server.RouteSSOTokenLogin, `{"token":"`+gatewayToken(t)+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", env.Status)
	assert.Equal(t, "Login successful", env.Message)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	data := decodeLogin(t, env)
	assert.Equal(t, testUserID, data.User.UserID)
	assert.Equal(t, "Sokha Chan", data.User.Name)

	claims, err := token.NewCodec(token.WithNowTime(func() time.Time { return now })).Verify(data.Token, jwtSecret)
	require.NoError(t, err)
	assert.Equal(t, now.Add(24*time.Hour), claims.ExpiresAtTime().UTC())
}

func TestTokenLoginBearerFallback(t *testing.T) {
	f := newFixture(t, http.StatusOK, providerOK)
	f.seedUser(t)

	rec, env := f.do(t, http.MethodPost, server.RouteSSOTokenLogin, ``, map[string]string{"Authorization": "Bearer " + gatewayToken(t)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testUserID, decodeLogin(t, env).User.UserID)
}

func TestTokenLoginErrors(t *testing.T) {
	f := newFixture(t, http.StatusOK, providerOK)
	f.seedUser(t)

	unknown, err := token.NewHMACSigner("x").Sign(&token.Claims{UserID: "nobody", Hash: testHash})
	require.NoError(t, err)

	tests := map[string]struct {
		body    string
		status  int
		message string
	}{
		"no token":     {`{}`, http.StatusBadRequest, "Invalid request"},
		"bad json":     {`{"token":`, http.StatusBadRequest, "Invalid request"},
		"garbage":      {`{"token":"abc"}`, http.StatusUnauthorized, "Invalid or expired token"},
		"unknown user": {`{"token":"` + unknown + `"}`, http.StatusUnauthorized, "Invalid credentials or user not found"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rec, env := f.do(t, http.MethodPost, server.RouteSSOTokenLogin, tt.body, nil)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "error", env.Status)
			assert.Equal(t, tt.message, env.Message)
			assert.Equal(t, "null", string(env.Data))
		})
	}
}

func TestTokenLoginInternalErrorIsGeneric(t *testing.T) {
	f := newFixture(t, http.StatusOK, providerOK)
	f.users.FailWith(assert.AnError)

	rec, env := f.do(t, http.MethodPost, server.RouteSSOTokenLogin, `{"token":"`+gatewayToken(t)+`"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "An error occurred during authentication", env.Message)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestProviderLogin(t *testing.T) {
	f := newFixture(t, http.StatusOK, providerOK)

	rec, env := f.do(t, http.MethodPost, server.RouteSSOProviderLogin,
		`{"user_id":"`+testUserID+`","hash":"`+testHash+`"}`,
		map[string]string{"Authorization": credentials.BasicHeader(testOrigin, sharedToken)})
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeLogin(t, env)
	assert.Equal(t, testUserID, data.User.UserID)
	assert.Equal(t, "Sokha Chan", data.User.Name)
	assert.NotEqual(t, "upstream", data.Token)
	assert.Equal(t, 1, f.users.Len())
}

func TestProviderLoginErrors(t *testing.T) {
	validBody := `{"user_id":"` + testUserID + `","hash":"` + testHash + `"}`
	validAuth := map[string]string{"Authorization": credentials.BasicHeader(testOrigin, sharedToken)}

	tests := map[string]struct {
		body    string
		headers map[string]string
		status  int
	}{
		"missing hash":    {`{"user_id":"` + testUserID + `"}`, validAuth, http.StatusBadRequest},
		"empty body":      {``, validAuth, http.StatusBadRequest},
		"no header":       {validBody, nil, http.StatusUnauthorized},
		"bearer header":   {validBody, map[string]string{"Authorization": "Bearer xyz"}, http.StatusUnauthorized},
		"wrong secret":    {validBody, map[string]string{"Authorization": credentials.BasicHeader(testOrigin, "nope")}, http.StatusUnauthorized},
		"malformed basic": {validBody, map[string]string{"Authorization": "Basic !!!"}, http.StatusUnauthorized},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, http.StatusOK, providerOK)
			rec, env := f.do(t, http.MethodPost, server.RouteSSOProviderLogin, tt.body, tt.headers)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "error", env.Status)
			assert.Zero(t, f.hits.Load())
		})
	}
}

func TestProviderLoginUpstreamOutcomes(t *testing.T) {
	body := `{"user_id":"` + testUserID + `","hash":"` + testHash + `"}`
	auth := map[string]string{"Authorization": credentials.BasicHeader(testOrigin, sharedToken)}

	t.Run("provider rejects", func(t *testing.T) {
		f := newFixture(t, http.StatusUnauthorized, `{"status":"error","message":"no","data":null}`)
		rec, _ := f.do(t, http.MethodPost, server.RouteSSOProviderLogin, body, auth)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Zero(t, f.users.Len())
	})

	t.Run("provider down", func(t *testing.T) {
		f := newFixture(t, http.StatusOK, providerOK)
		f.provider.Close()
		rec, env := f.do(t, http.MethodPost, server.RouteSSOProviderLogin, body, auth)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "Identity provider unavailable", env.Message)
	})

	t.Run("settings missing", func(t *testing.T) {
		f := newFixture(t, http.StatusOK, providerOK)
		f.settings.Delete(settings.NamespaceSSO, settings.KeyURL)
		rec, env := f.do(t, http.MethodPost, server.RouteSSOProviderLogin, body, auth)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "SSO is not configured", env.Message)
		assert.Zero(t, f.hits.Load())
	})
}

func TestMe(t *testing.T) {
	f := newFixture(t, http.StatusOK, providerOK)
	f.seedUser(t)

	_, env := f.do(t, http.MethodPost, server.RouteSSOTokenLogin, `{"token":"`+gatewayToken(t)+`"}`, nil)
	session := decodeLogin(t, env).Token

	rec, env := f.do(t, http.MethodGet, server.RouteAuthMe, ``, map[string]string{"Authorization": "Bearer " + session})
	require.Equal(t, http.StatusOK, rec.Code)

	var me struct {
		UserID    string    `json:"user_id"`
		Name      string    `json:"name"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, testUserID, me.UserID)
	assert.Equal(t, "Sokha Chan", me.Name)
	assert.Equal(t, now.Add(24*time.Hour), me.ExpiresAt)
}

func TestMeRejectsInvalidSessions(t *testing.T) {
	f := newFixture(t, http.StatusOK, providerOK)

	foreign, err := token.NewCodec().Sign(token.Claims{UserID: testUserID, Hash: testHash}, "other-secret", 60)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":        "",
		"basic scheme":   credentials.BasicHeader("a", "b"),
		"garbage":        "Bearer abc.def.ghi",
		"foreign secret": "Bearer " + foreign,
	} {
		t.Run(name, func(t *testing.T) {
			headers := map[string]string{}
			if header != "" {
				headers["Authorization"] = header
			}
			rec, env := f.do(t, http.MethodGet, server.RouteAuthMe, ``, headers)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Invalid or expired token", env.Message)
			assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
		})
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, http.StatusOK, providerOK)

	rec, env := f.do(t, http.MethodGet, server.RouteHealth, ``, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Service is healthy", env.Message)

	var health struct {
		Status    string `json:"status"`
		Timestamp string `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, now.Format(time.RFC3339Nano), health.Timestamp)
}

func TestCors(t *testing.T) {
	f := newFixture(t, http.StatusOK, providerOK)

	rec, _ := f.do(t, http.MethodOptions, server.RouteSSOProviderLogin, ``, map[string]string{"Origin": allowedSite})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, allowedSite, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))

	rec, _ = f.do(t, http.MethodOptions, server.RouteSSOProviderLogin, ``, map[string]string{"Origin": "https://evil.example.com"})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, http.StatusOK, providerOK)
	f.do(t, http.MethodPost, server.RouteSSOTokenLogin, `{}`, nil)

	rec, _ := f.do(t, http.MethodGet, server.RouteMetrics, ``, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `sso_bridge_logins_total{mode="token",outcome="invalid_request"} 1`)
	assert.Contains(t, rec.Body.String(), `sso_bridge_http_requests_total{method="POST",route="POST /api/private/auth/sso",status="400"} 1`)
}
