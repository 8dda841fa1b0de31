package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-sso-bridge/credentials"
	apperrors "github.com/jrsteele09/go-sso-bridge/internal/errors"
	"github.com/jrsteele09/go-sso-bridge/sso"
)

// maxBodyBytes caps login request bodies.
const maxBodyBytes = 64 << 10

type tokenLoginRequest struct {
	Token string `json:"token"`
}

type providerLoginRequest struct {
	UserID string `json:"user_id"`
	Hash   string `json:"hash"`
}

// decodeBody reads a JSON body into dst. An empty body leaves dst untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: body is not valid JSON: %w", apperrors.ErrInvalidRequest, err)
}

// SSOTokenLoginHandler exchanges a gateway-authenticated token for a local
// session token. The token is read from the body, or from a Bearer header
// when the body has none.
func (s *Server) SSOTokenLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		var req tokenLoginRequest
		if err := decodeBody(w, r, &req); err != nil {
			s.metrics.observeLogin(modeToken, time.Since(start).Seconds(), err)
			writeError(w, r, err)
			return
		}
		raw := strings.TrimSpace(req.Token)
		if raw == "" {
			raw = bearerToken(r)
		}
		if raw == "" {
			err := fmt.Errorf("%w: token is required", apperrors.ErrInvalidRequest)
			s.metrics.observeLogin(modeToken, time.Since(start).Seconds(), err)
			writeError(w, r, err)
			return
		}

		result, err := s.bridge.LoginWithToken(r.Context(), raw)
		s.metrics.observeLogin(modeToken, time.Since(start).Seconds(), err)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeSuccess(w, "Login successful", result)
	}
}

// SSOProviderLoginHandler validates a credential pair with the identity
// provider. The caller authenticates with the shared origin and token in a
// Basic authorization header.
func (s *Server) SSOProviderLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		result, err := s.providerLogin(w, r)
		s.metrics.observeLogin(modeProvider, time.Since(start).Seconds(), err)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeSuccess(w, "Login successful", result)
	}
}

func (s *Server) providerLogin(w http.ResponseWriter, r *http.Request) (*sso.Result, error) {
	var req providerLoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		return nil, err
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.Hash = strings.TrimSpace(req.Hash)
	if req.UserID == "" || req.Hash == "" {
		return nil, fmt.Errorf("%w: user_id and hash are required", apperrors.ErrInvalidRequest)
	}

	origin, secret, err := credentials.ParseBasicHeader(r.Header.Get("Authorization"))
	if err != nil {
		w.Header().Set("WWW-Authenticate", `Basic realm="sso-bridge"`)
		return nil, err
	}

	return s.bridge.LoginWithProvider(r.Context(), sso.ProviderLogin{
		Origin: origin,
		Secret: secret,
		UserID: req.UserID,
		Hash:   req.Hash,
	})
}

type sessionResponse struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MeHandler returns the verified claims of the caller's session token.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			writeError(w, r, apperrors.Wrapf(apperrors.ErrInvalidToken, "no session claims"))
			return
		}
		writeSuccess(w, "Authenticated", sessionResponse{
			UserID:    claims.UserID,
			Name:      claims.Name,
			IssuedAt:  claims.IssuedAtTime().UTC(),
			ExpiresAt: claims.ExpiresAtTime().UTC(),
		})
	}
}

type healthResponse struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"`
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := s.nowTime()
		writeSuccess(w, "Service is healthy", healthResponse{
			Status:    "healthy",
			Timestamp: now.UTC().Format(time.RFC3339Nano),
			Uptime:    now.Sub(s.started).Seconds(),
		})
	}
}
