package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Expected outcomes of an SSO login. Anything not wrapping one of these is
// an internal error.
var (
	// Credential errors
	ErrMalformedCredentials = errors.New("malformed credentials")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrUnauthorized         = errors.New("unauthorized")

	// Token errors
	ErrInvalidToken = errors.New("invalid or expired token")

	// Deployment errors
	ErrConfig = errors.New("configuration error")

	// Identity provider errors
	ErrUpstreamUnavailable = errors.New("identity provider unavailable")
	ErrUpstreamTimeout     = errors.New("identity provider timed out")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// HTTPStatus maps an error to the status code the HTTP layer responds with.
// Timeouts are checked before the general upstream failure since a timeout
// wraps both.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrMalformedCredentials),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrConfig):
		return http.StatusInternalServerError
	case errors.Is(err, ErrUpstreamTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsExpected reports whether err is one of the typed login outcomes rather
// than an unexpected failure.
func IsExpected(err error) bool {
	for _, kind := range []error{
		ErrMalformedCredentials,
		ErrInvalidRequest,
		ErrUnauthorized,
		ErrInvalidToken,
		ErrConfig,
		ErrUpstreamUnavailable,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// PublicMessage returns the caller-facing message for err. It never includes
// wrapped detail.
func PublicMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "Invalid request"
	case errors.Is(err, ErrMalformedCredentials):
		return "Invalid authorization header"
	case errors.Is(err, ErrInvalidToken):
		return "Invalid or expired token"
	case errors.Is(err, ErrUnauthorized):
		return "Invalid credentials or user not found"
	case errors.Is(err, ErrConfig):
		return "SSO is not configured"
	case errors.Is(err, ErrUpstreamTimeout):
		return "Identity provider timed out"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "Identity provider unavailable"
	default:
		return "An error occurred during authentication"
	}
}
