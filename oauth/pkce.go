package oauthkit

import (
	"crypto/rand"

	"github.com/mr-tron/base58"
	"golang.org/x/oauth2"
)

const stateBytes = 32

// GenerateState returns a base58-encoded CSRF state drawn from crypto/rand.
func GenerateState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base58.Encode(b), nil
}

// GenerateCodeVerifier returns a 43-character RFC 7636 verifier built from 32
// random bytes.
func GenerateCodeVerifier() string { return oauth2.GenerateVerifier() }

// DeriveCodeChallenge returns BASE64URL(SHA256(verifier)) without padding,
// the "S256" challenge for verifier.
func DeriveCodeChallenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}

// ValidateState reports whether the callback state matches the stored one.
// An empty stored state never matches.
//
// Plain string comparison; not constant-time.
func ValidateState(received, stored string) bool {
	return stored != "" && received == stored
}
