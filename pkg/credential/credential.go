// Package credential hashes and verifies account PINs.
package credential

import (
	"fmt"

	"github.com/amirasaad/vatm/pkg/domain"
	"golang.org/x/crypto/bcrypt"
)

// DefaultLength is the number of digits a PIN must have.
const DefaultLength = 4

// Verifier hashes PINs and checks presented PINs against stored hashes.
type Verifier interface {
	Verify(hash, presented string) bool
	Validate(credential string) error
	Hash(credential string) (string, error)
	Length() int
}

// BcryptVerifier is a Verifier backed by bcrypt. The zero value is not usable; use NewBcrypt.
type BcryptVerifier struct {
	cost   int
	length int
}

// NewBcrypt returns a verifier for PINs of exactly length digits. Out-of-range
// costs fall back to bcrypt.DefaultCost; a non-positive length to DefaultLength.
func NewBcrypt(cost, length int) *BcryptVerifier {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if length <= 0 {
		length = DefaultLength
	}
	return &BcryptVerifier{cost: cost, length: length}
}

// Length is the number of digits the policy requires.
func (v *BcryptVerifier) Length() int { return v.length }

// Verify compares presented with hash in constant time. A malformed hash never matches.
func (v *BcryptVerifier) Verify(hash, presented string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(presented)) == nil
}

// Validate enforces the PIN policy: exactly the configured number of ASCII digits.
func (v *BcryptVerifier) Validate(credential string) error {
	if len(credential) != v.length {
		return fmt.Errorf("%w: must be %d digits", domain.ErrCredentialFormatInvalid, v.length)
	}
	for i := 0; i < len(credential); i++ {
		if credential[i] < '0' || credential[i] > '9' {
			return fmt.Errorf("%w: must be %d digits", domain.ErrCredentialFormatInvalid, v.length)
		}
	}
	return nil
}

// Hash validates credential and returns a salted bcrypt hash of it.
func (v *BcryptVerifier) Hash(credential string) (string, error) {
	if err := v.Validate(credential); err != nil {
		return "", err
	}
	b, err := bcrypt.GenerateFromPassword([]byte(credential), v.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var _ Verifier = (*BcryptVerifier)(nil)
