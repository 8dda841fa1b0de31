// Package provider is the bridge's client for the external identity system's
// login endpoint.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/jrsteele09/go-sso-bridge/credentials"
	apperrors "github.com/jrsteele09/go-sso-bridge/internal/errors"
	"github.com/jrsteele09/go-sso-bridge/settings"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

const (
	// DefaultTimeout bounds a login call when no timeout is configured.
	DefaultTimeout = 5 * time.Second

	// maxResponseBytes caps how much of a provider response is read.
	maxResponseBytes = 1024 * 1024

	maxRedirects = 10

	statusSuccess = "success"
)

// Identity is what the provider vouches for after a successful login.
type Identity struct {
	UserID string // External user identifier, as presented
	Name   string // Display name reported by the provider
}

type loginRequest struct {
	UserID string `json:"user_id"`
	Hash   string `json:"hash"`
}

// Client posts credential pairs to the provider.
type Client struct {
	httpClient *http.Client
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a provider client whose calls are bounded by timeout.
// A non-positive timeout falls back to DefaultTimeout.
func NewClient(timeout time.Duration, options ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		httpClient: &http.Client{
			Timeout:       timeout,
			CheckRedirect: sameHostRedirectPolicy,
		},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// sameHostRedirectPolicy keeps the Basic credentials on the provider host.
func sameHostRedirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if len(via) > 0 && req.URL.Host != via[0].URL.Host {
		return fmt.Errorf("redirect to different host blocked: %s -> %s", via[0].URL.Host, req.URL.Host)
	}
	return nil
}

// Login asks the provider at p.URL to validate (userID, hash), authenticating
// the call itself with p.Origin and p.Token.
//
// A non-2xx answer, an envelope whose status is not "success" or one without
// data.user is apperrors.ErrUnauthorized. Transport failures are
// apperrors.ErrUpstreamUnavailable, and timeouts additionally wrap
// apperrors.ErrUpstreamTimeout. Nothing is retried.
func (c *Client) Login(ctx context.Context, p settings.Provider, userID, hash string) (*Identity, error) {
	payload, err := json.Marshal(loginRequest{UserID: userID, Hash: hash})
	if err != nil {
		return nil, fmt.Errorf("[provider Login] marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid provider url: %w", apperrors.ErrConfig, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", credentials.BasicHeader(p.Origin, p.Token))

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %w: %w", apperrors.ErrUpstreamUnavailable, apperrors.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: %w", apperrors.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %w: reading response: %w", apperrors.ErrUpstreamUnavailable, apperrors.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: reading response: %w", apperrors.ErrUpstreamUnavailable, err)
	}

	log.Debug().
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("identity provider responded")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Info().
			Int("status", resp.StatusCode).
			Str("body", sanitizeResponseBody(body)).
			Msg("identity provider rejected login")
		return nil, fmt.Errorf("%w: provider returned status %d", apperrors.ErrUnauthorized, resp.StatusCode)
	}

	return parseEnvelope(body, userID)
}

// parseEnvelope reads {status, message, data:{token, user}}.
func parseEnvelope(body []byte, userID string) (*Identity, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: provider response is not JSON", apperrors.ErrUnauthorized)
	}

	envelope := gjson.ParseBytes(body)
	if status := envelope.Get("status").String(); status != statusSuccess {
		return nil, fmt.Errorf("%w: provider status %q: %s", apperrors.ErrUnauthorized, status, envelope.Get("message").String())
	}

	user := envelope.Get("data.user")
	if !user.Exists() || user.Type == gjson.Null {
		return nil, fmt.Errorf("%w: provider response has no user", apperrors.ErrUnauthorized)
	}

	return &Identity{
		UserID: userID,
		Name:   user.Get("name").String(),
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// sanitizeResponseBody truncates a body for logging and replaces control
// characters.
func sanitizeResponseBody(body []byte) string {
	const maxLen = 256
	if len(body) > maxLen {
		body = body[:maxLen]
	}

	clean := make([]byte, 0, len(body))
	for len(body) > 0 {
		r, size := utf8.DecodeRune(body)
		switch {
		case r == utf8.RuneError && size <= 1:
			clean = append(clean, '?')
		case r < 0x20 && r != '\t':
			clean = append(clean, '?')
		default:
			clean = append(clean, body[:size]...)
		}
		body = body[size:]
	}
	return string(clean)
}
