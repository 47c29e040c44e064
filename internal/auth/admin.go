package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// AdminVerifier checks privileged bearer tokens against a bcrypt hash.
type AdminVerifier struct {
	hash []byte
}

// NewAdminVerifier wraps a bcrypt hash. An empty hash rejects every token.
func NewAdminVerifier(hash string) *AdminVerifier {
	return &AdminVerifier{hash: []byte(hash)}
}

// Verify reports whether token matches the configured hash.
func (v *AdminVerifier) Verify(token string) bool {
	if v == nil || len(v.hash) == 0 || token == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(v.hash, []byte(token)) == nil
}

// HashAdminToken produces the value expected in MUTUALS_ADMIN_TOKEN_HASH.
func HashAdminToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash admin token: %w", err)
	}
	return string(hash), nil
}
