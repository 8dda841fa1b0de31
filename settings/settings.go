package settings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-sso-bridge/internal/errors"
)

// Namespaces and keys the SSO bridge reads. They match the rows operators
// already maintain in the settings table.
const (
	NamespaceSSO = "sso"
	KeyURL       = "sso_url"
	KeyOrigin    = "sso_origin"
	KeyToken     = "sso_token"

	// KeyUpstreamSecret optionally holds the HMAC secret the upstream gateway
	// signs its tokens with. When present, local-validation logins verify
	// the inbound token signature.
	KeyUpstreamSecret = "sso_upstream_secret"

	NamespaceJWTTTL = "jwt_ttl"
	KeyJWTTTL       = "jwt_ttl"

	// DefaultTTLMinutes is used when the TTL setting is absent or unusable.
	DefaultTTLMinutes = 1440

	// MaxTTLMinutes is the longest lifetime a time.Duration can hold.
	MaxTTLMinutes = math.MaxInt64 / int64(time.Minute)
)

// Entry is a single persisted setting.
type Entry struct {
	Namespace string `json:"slug"`
	Key       string `json:"key"`
	Value     string `json:"value"`
}

// Provider holds the settings needed to call the external identity provider.
type Provider struct {
	URL    string
	Origin string
	Token  string
}

// TTLMinutes returns the configured session lifetime in minutes. A missing or
// unparsable value, or one outside 1..MaxTTLMinutes, yields DefaultTTLMinutes.
// A failing store is returned as an error.
func TTLMinutes(ctx context.Context, repo Repo) (int, error) {
	raw, err := repo.Get(ctx, NamespaceJWTTTL, KeyJWTTTL)
	if errors.Is(err, ErrNotFound) {
		return DefaultTTLMinutes, nil
	}
	if err != nil {
		return 0, fmt.Errorf("[settings TTLMinutes] %w", err)
	}

	ttl, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || ttl <= 0 || int64(ttl) > MaxTTLMinutes {
		return DefaultTTLMinutes, nil
	}
	return ttl, nil
}

// LoadProvider reads the provider URL, origin and shared token. Any missing
// value is a deployment problem and reported as apperrors.ErrConfig.
func LoadProvider(ctx context.Context, repo Repo) (Provider, error) {
	var p Provider
	for _, field := range []struct {
		key string
		dst *string
	}{
		{KeyURL, &p.URL},
		{KeyOrigin, &p.Origin},
		{KeyToken, &p.Token},
	} {
		value, err := Optional(ctx, repo, NamespaceSSO, field.key)
		if err != nil {
			return Provider{}, fmt.Errorf("[settings LoadProvider] %w", err)
		}
		if value == "" {
			return Provider{}, fmt.Errorf("%w: setting %s/%s is not set", apperrors.ErrConfig, NamespaceSSO, field.key)
		}
		*field.dst = value
	}
	return p, nil
}

// Optional returns the trimmed value of a setting, or "" when it is absent.
func Optional(ctx context.Context, repo Repo, namespace, key string) (string, error) {
	value, err := repo.Get(ctx, namespace, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}
