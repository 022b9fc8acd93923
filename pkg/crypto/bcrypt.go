package crypto

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var _ PasswordHandler = (*Bcrypt)(nil)

const maxBcryptPasswordLength = 72

// Bcrypt hashes with golang.org/x/crypto/bcrypt. Kept for credentials encoded
// before argon2id became the default.
type Bcrypt struct {
	Cost int
}

func NewBcrypt() *Bcrypt {
	return &Bcrypt{Cost: bcrypt.DefaultCost}
}

func (b *Bcrypt) Hash(password string) (string, error) {
	// bcrypt silently ignores bytes past 72; refuse instead of truncating.
	if len(password) > maxBcryptPasswordLength {
		return "", bcrypt.ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.Cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (b *Bcrypt) Verify(password, hash string) (bool, error) {
	// CompareHashAndPassword truncates at 72 bytes, so a longer input would
	// match the hash of its prefix. Hash never stores one, so it cannot match.
	if len(password) > maxBcryptPasswordLength {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return false, err
		}
		return false, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}
