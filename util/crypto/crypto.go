// Package crypto provides cryptographic utilities for password hashing and verification.
package crypto

import (
	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// ErrPasswordTooLong is returned when the plaintext exceeds MaxPasswordBytes.
var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// Bcrypt hashes and verifies passwords with a fixed cost.
type Bcrypt struct {
	Cost int
}

// NewBcrypt returns a hasher using cost, or bcrypt.DefaultCost when cost is out of range.
func NewBcrypt(cost int) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{Cost: cost}
}

// Hash returns the salted bcrypt hash of plaintext.
func (b *Bcrypt) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), b.Cost)
	return string(hash), err
}

// Verify reports whether plaintext matches hash. A malformed hash never matches,
// and neither does input longer than MaxPasswordBytes, which bcrypt would truncate.
func (b *Bcrypt) Verify(hash, plaintext string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	return err == nil && len(plaintext) <= MaxPasswordBytes
}
