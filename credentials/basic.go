// Package credentials validates the shared origin/secret pair that callers
// and the identity provider exchange in Basic authorization headers.
package credentials

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	apperrors "github.com/jrsteele09/go-sso-bridge/internal/errors"
)

const basicScheme = "Basic"

// CheckBasic reports whether the presented pair matches the configured pair.
// Both fields are always compared so the result does not depend on which one
// differs. Returns false when either configured value is empty.
func CheckBasic(presentedOrigin, presentedSecret, configuredOrigin, configuredSecret string) bool {
	originOK := equal(presentedOrigin, configuredOrigin)
	secretOK := equal(presentedSecret, configuredSecret)
	configured := boolToInt(configuredOrigin != "") & boolToInt(configuredSecret != "")
	return originOK&secretOK&configured == 1
}

// equal compares SHA-256 digests so differing lengths do not return early.
func equal(a, b string) int {
	ah := sha256.Sum256([]byte(a))
	bh := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ah[:], bh[:])
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ParseBasicHeader splits an "Authorization: Basic base64(origin:secret)"
// value. Any deviation from that shape is ErrMalformedCredentials.
func ParseBasicHeader(header string) (origin, secret string, err error) {
	scheme, payload, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, basicScheme) {
		return "", "", fmt.Errorf("%w: expected Basic scheme", apperrors.ErrMalformedCredentials)
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return "", "", fmt.Errorf("%w: payload is not base64", apperrors.ErrMalformedCredentials)
	}

	pair := string(decoded)
	if strings.Count(pair, ":") != 1 {
		return "", "", fmt.Errorf("%w: expected exactly one ':' separator", apperrors.ErrMalformedCredentials)
	}
	origin, secret, _ = strings.Cut(pair, ":")
	if origin == "" || secret == "" {
		return "", "", fmt.Errorf("%w: origin and secret must be non-empty", apperrors.ErrMalformedCredentials)
	}
	return origin, secret, nil
}

// BasicHeader builds the Authorization header value for an outbound call.
func BasicHeader(origin, secret string) string {
	return basicScheme + " " + base64.StdEncoding.EncodeToString([]byte(origin+":"+secret))
}
