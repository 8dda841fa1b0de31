package server

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/jrsteele09/go-sso-bridge/internal/errors"
	"github.com/jrsteele09/go-sso-bridge/token"
)

type contextKey string

const ContextKeyClaims contextKey = "session_claims"

// ClaimsFromContext returns the verified session claims placed by
// RequireAuth.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(*token.Claims)
	return claims, ok
}

// bearerToken returns the token of an "Authorization: Bearer" header, or "".
func bearerToken(r *http.Request) string {
	scheme, value, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(value)
}

// RequireAuth is middleware that verifies a local session token from the
// Authorization header and injects its claims into the request context.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="sso-bridge"`)
				writeError(w, r, apperrors.Wrapf(apperrors.ErrInvalidToken, "missing bearer token"))
				return
			}

			claims, err := s.bridge.Codec().Verify(raw, s.config.GetJWTSecret())
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="sso-bridge", error="invalid_token"`)
				writeError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			next(w, r.WithContext(ctx))
		}
	}
}
