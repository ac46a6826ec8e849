package cryptox

import (
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor for new password hashes.
const DefaultBcryptCost = 12

// PasswordHasher is the slow adaptive hash used for account passwords.
type PasswordHasher interface {
	Hash(plain []byte) (string, error)
	Compare(plain []byte, digest string) bool
}

// BcryptHasher implements PasswordHasher with bcrypt.
type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{Cost: cost}
}

func (h *BcryptHasher) Hash(plain []byte) (string, error) {
	digest, err := bcrypt.GenerateFromPassword(plain, h.Cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

func (h *BcryptHasher) Compare(plain []byte, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), plain) == nil
}
