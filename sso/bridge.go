// Package sso turns identities asserted by the external Single ID system into
// local session tokens.
//
// Two entry points exist and are never chosen by inspecting the request:
// LoginWithToken trusts a token handed over by an upstream gateway, and
// LoginWithProvider asks the identity provider to vouch for a raw credential
// pair. Only a successful provider login creates local users.
package sso

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-sso-bridge/credentials"
	apperrors "github.com/jrsteele09/go-sso-bridge/internal/errors"
	"github.com/jrsteele09/go-sso-bridge/provider"
	"github.com/jrsteele09/go-sso-bridge/settings"
	"github.com/jrsteele09/go-sso-bridge/token"
	"github.com/jrsteele09/go-sso-bridge/users"
	"github.com/rs/zerolog/log"
)

// IdentityProvider validates a credential pair with the external system.
type IdentityProvider interface {
	Login(ctx context.Context, p settings.Provider, userID, hash string) (*provider.Identity, error)
}

var _ IdentityProvider = (*provider.Client)(nil)

// Result is returned to the caller of a successful login.
type Result struct {
	Token string        `json:"token"`
	User  users.Summary `json:"user"`
}

// ProviderLogin is the input of a remote-delegated login. Origin and Secret
// come from the caller's Basic authorization header.
type ProviderLogin struct {
	Origin string
	Secret string
	UserID string
	Hash   string
}

// Bridge holds no per-login state; concurrent logins share nothing but the
// injected collaborators.
type Bridge struct {
	secret   string
	settings settings.Repo
	users    users.UserRepo
	provider IdentityProvider
	codec    *token.Codec
	nowTime  func() time.Time // nowTime function (injectable for testing)
}

// Option defines a function type to modify the Bridge instance.
type Option func(*Bridge)

// WithNowTime sets the clock used for tokens and new user records.
func WithNowTime(nowFunc func() time.Time) Option {
	return func(b *Bridge) {
		b.nowTime = nowFunc
	}
}

// New creates a Bridge that signs session tokens with secret.
func New(secret string, settingsRepo settings.Repo, userRepo users.UserRepo, idp IdentityProvider, options ...Option) *Bridge {
	b := &Bridge{
		secret:   secret,
		settings: settingsRepo,
		users:    userRepo,
		provider: idp,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(b)
	}
	b.codec = token.NewCodec(token.WithNowTime(b.nowTime))
	return b
}

// Codec returns the codec session tokens are minted with, so that protected
// routes verify with the same clock.
func (b *Bridge) Codec() *token.Codec {
	return b.codec
}

// LoginWithToken is the local-validation login. raw is a token issued inside
// this trust domain that an upstream gateway has already authenticated; its
// user_id and hash must match a stored user.
func (b *Bridge) LoginWithToken(ctx context.Context, raw string) (*Result, error) {
	if raw == "" {
		return nil, reject(StageReceived, fmt.Errorf("%w: token is empty", apperrors.ErrInvalidToken))
	}

	claims, err := b.extractClaims(ctx, raw)
	if err != nil {
		return nil, reject(StageReceived, err)
	}

	user, err := b.users.GetByExternalID(ctx, claims.UserID)
	if errors.Is(err, users.ErrNotFound) {
		return nil, reject(StageClaimsExtracted, fmt.Errorf("%w: unknown user", apperrors.ErrUnauthorized))
	}
	if err != nil {
		return nil, reject(StageClaimsExtracted, fmt.Errorf("[sso LoginWithToken] finding user: %w", err))
	}
	if !user.MatchesCredential(claims.Hash) {
		return nil, reject(StageClaimsExtracted, fmt.Errorf("%w: credential mismatch", apperrors.ErrUnauthorized))
	}

	return b.mint(ctx, user, user.CredentialHash)
}

// extractClaims reads the identity claims of an inbound local-mode token.
func (b *Bridge) extractClaims(ctx context.Context, raw string) (*token.Claims, error) {
	upstreamSecret, err := settings.Optional(ctx, b.settings, settings.NamespaceSSO, settings.KeyUpstreamSecret)
	if err != nil {
		return nil, fmt.Errorf("[sso extractClaims] reading upstream secret: %w", err)
	}

	var claims *token.Claims
	if upstreamSecret != "" {
		claims, err = b.codec.VerifyUpstream(raw, upstreamSecret)
	} else {
		// Trust boundary: this route is deployed behind a gateway that has
		// already authenticated the bearer, so the signature is not checked
		// here. The claims are still matched against the stored credential
		// hash below. Setting sso/sso_upstream_secret enables verification.
		log.Debug().Msg("local sso login decoding token without signature check")
		claims, err = b.codec.DecodeUnverified(raw)
	}
	if err != nil {
		return nil, err
	}

	if !claims.HasIdentity() {
		return nil, fmt.Errorf("%w: token lacks user_id or hash", apperrors.ErrInvalidToken)
	}
	return claims, nil
}

// LoginWithProvider is the remote-delegated login. The caller's Basic
// credentials must match the configured origin and shared token before the
// provider is asked to validate the credential pair.
func (b *Bridge) LoginWithProvider(ctx context.Context, in ProviderLogin) (*Result, error) {
	p, err := settings.LoadProvider(ctx, b.settings)
	if err != nil {
		return nil, reject(StageReceived, err)
	}

	if in.UserID == "" || in.Hash == "" {
		return nil, reject(StageReceived, fmt.Errorf("%w: user_id and hash are required", apperrors.ErrInvalidRequest))
	}
	if !credentials.CheckBasic(in.Origin, in.Secret, p.Origin, p.Token) {
		return nil, reject(StageReceived, fmt.Errorf("%w: caller credentials do not match", apperrors.ErrUnauthorized))
	}

	identity, err := b.provider.Login(ctx, p, in.UserID, in.Hash)
	if err != nil {
		return nil, reject(StageClaimsExtracted, err)
	}

	user, err := b.findOrCreate(ctx, identity, in.Hash)
	if err != nil {
		return nil, reject(StageIdentityValidated, err)
	}

	return b.mint(ctx, user, in.Hash)
}

// findOrCreate returns the stored user for identity, creating it on first
// sight. Losing a creation race to a concurrent login is resolved by reading
// the winner's record.
func (b *Bridge) findOrCreate(ctx context.Context, identity *provider.Identity, hash string) (*users.User, error) {
	user, err := b.users.GetByExternalID(ctx, identity.UserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, users.ErrNotFound) {
		return nil, fmt.Errorf("[sso findOrCreate] finding user: %w", err)
	}

	now := b.nowTime()
	user, err = b.users.Create(ctx, &users.User{
		ExternalID:     identity.UserID,
		Name:           identity.Name,
		CredentialHash: hash,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if errors.Is(err, users.ErrAlreadyExists) {
		user, err = b.users.GetByExternalID(ctx, identity.UserID)
		if err != nil {
			return nil, fmt.Errorf("[sso findOrCreate] re-reading user after duplicate create: %w", err)
		}
		return user, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[sso findOrCreate] creating user: %w", err)
	}

	log.Info().Str("user_id", user.ExternalID).Msg("provisioned user from identity provider")
	return user, nil
}

// mint signs a session token for user. A failure here leaves any user
// created earlier in the attempt in place.
func (b *Bridge) mint(ctx context.Context, user *users.User, hash string) (*Result, error) {
	ttl, err := settings.TTLMinutes(ctx, b.settings)
	if err != nil {
		return nil, reject(StageUserResolved, fmt.Errorf("[sso mint] %w", err))
	}

	signed, err := b.codec.Sign(token.Claims{
		UserID: user.ExternalID,
		Hash:   hash,
		Name:   user.Name,
	}, b.secret, ttl)
	if err != nil {
		return nil, reject(StageUserResolved, err)
	}

	return &Result{Token: signed, User: user.Summary()}, nil
}
