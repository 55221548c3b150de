package codeverifier

import (
	"crypto/subtle"

	"golang.org/x/oauth2"
)

const MethodS256 = "S256"

type Verifier struct {
	Value string
}

func NewVerifierFrom(value string) *Verifier {
	return &Verifier{
		Value: value,
	}
}

// NewVerifier returns a verifier of 32 random bytes, base64url encoded without padding (43 characters).
func NewVerifier() *Verifier {
	return &Verifier{
		Value: oauth2.GenerateVerifier(),
	}
}

func (v *Verifier) GetValue() string {
	return v.Value
}

func (v *Verifier) CreateChallenge() (string, string) {
	return MethodS256, oauth2.S256ChallengeFromVerifier(v.Value)
}

// Matches reports whether challenge was derived from this verifier.
func (v *Verifier) Matches(challenge string) bool {
	_, expected := v.CreateChallenge()
	return subtle.ConstantTimeCompare([]byte(expected), []byte(challenge)) == 1
}
