package users

import (
	"crypto/subtle"
	"time"
)

// User is a local user record linked to an identity in the external
// Single ID system.
type User struct {
	ID             string    `json:"id,omitempty"`         // Local identifier
	ExternalID     string    `json:"user_id"`              // Identifier in the external identity system, unique
	Name           string    `json:"name"`                 // Display name
	CredentialHash string    `json:"-"`                    // Opaque shared secret minted by the identity system - never serialize
	CreatedAt      time.Time `json:"created_at,omitempty"` // When the record was provisioned
	UpdatedAt      time.Time `json:"updated_at,omitempty"` // Last modification
}

// MatchesCredential reports whether hash equals the stored credential hash.
// The hash is not a password digest; it is compared byte for byte in
// constant time.
func (u *User) MatchesCredential(hash string) bool {
	if u == nil || u.CredentialHash == "" || hash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(u.CredentialHash), []byte(hash)) == 1
}

// Summary is the public view of a user returned to login callers.
type Summary struct {
	ExternalID string `json:"user_id"`
	Name       string `json:"name"`
}

func (u *User) Summary() Summary {
	return Summary{ExternalID: u.ExternalID, Name: u.Name}
}
