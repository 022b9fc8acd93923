package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// PasswordHandler hashes and verifies secrets for a single scheme.
type PasswordHandler interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

// Ensure Argon2 implements PasswordHandler
var _ PasswordHandler = (*Argon2)(nil)

// Limits on parameters read back from a stored value. A stored value is
// untrusted input: argon2.IDKey panics on zero rounds or lanes and allocates
// whatever memory it is asked for.
const (
	maxArgon2Memory     = 1 << 20 // KiB, 1 GiB
	maxArgon2Iterations = 64
	maxArgon2KeyLength  = 1024
)

var ErrInvalidArgon2Hash = errors.New("invalid argon2id hash")

type Argon2 struct {
	Memory      uint32 // Memory cost in KiB
	Iterations  uint32 // Number of iterations (time cost)
	Parallelism uint8  // Number of parallel threads
	SaltLength  uint32 // Length of random salt. Ignored during Verify()
	KeyLength   uint32 // Length of generated key
}

// NewArgon2 returns the OWASP-recommended argon2id parameters.
//
// @ref https://cheatsheetseries.owasp.org/cheatsheets/Password_Storage_Cheat_Sheet.html
func NewArgon2() *Argon2 {
	return &Argon2{
		Memory:      64 * 1024, // 64 MB
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hash returns a PHC string: $argon2id$v=19$m=...,t=...,p=...$<salt>$<key>
func (a *Argon2) Hash(password string) (string, error) {
	if err := a.validate(); err != nil {
		return "", err
	}

	salt := make([]byte, a.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, a.Iterations, a.Memory, a.Parallelism, a.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		a.Memory,
		a.Iterations,
		a.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the key with the parameters stored in encodedHash.
// Parameters outside the accepted range are an error, not a mismatch.
func (a *Argon2) Verify(password, encodedHash string) (bool, error) {
	stored, salt, key, err := decodeArgon2Hash(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), salt, stored.Iterations, stored.Memory, stored.Parallelism, stored.KeyLength)

	return subtle.ConstantTimeCompare(key, computed) == 1, nil
}

func (a *Argon2) validate() error {
	switch {
	case a.Iterations < 1 || a.Iterations > maxArgon2Iterations:
		return fmt.Errorf("%w: iterations %d out of range", ErrInvalidArgon2Hash, a.Iterations)
	case a.Parallelism < 1:
		return fmt.Errorf("%w: parallelism must be at least 1", ErrInvalidArgon2Hash)
	case a.Memory < 8*uint32(a.Parallelism) || a.Memory > maxArgon2Memory:
		return fmt.Errorf("%w: memory %d KiB out of range", ErrInvalidArgon2Hash, a.Memory)
	case a.SaltLength < 1:
		return fmt.Errorf("%w: salt must not be empty", ErrInvalidArgon2Hash)
	case a.KeyLength < 1 || a.KeyLength > maxArgon2KeyLength:
		return fmt.Errorf("%w: key length %d out of range", ErrInvalidArgon2Hash, a.KeyLength)
	}
	return nil
}

func decodeArgon2Hash(encodedHash string) (*Argon2, []byte, []byte, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, nil, nil, fmt.Errorf("%w: expected 5 '$'-separated fields", ErrInvalidArgon2Hash)
	}
	if parts[1] != "argon2id" {
		return nil, nil, nil, fmt.Errorf("%w: algorithm %q", ErrInvalidArgon2Hash, parts[1])
	}

	version, err := paramValue(parts[2], "v", 32)
	if err != nil {
		return nil, nil, nil, err
	}
	if version != argon2.Version {
		return nil, nil, nil, fmt.Errorf("%w: version %d", ErrInvalidArgon2Hash, version)
	}

	fields := strings.Split(parts[3], ",")
	if len(fields) != 3 {
		return nil, nil, nil, fmt.Errorf("%w: parameters %q", ErrInvalidArgon2Hash, parts[3])
	}
	m, err := paramValue(fields[0], "m", 32)
	if err != nil {
		return nil, nil, nil, err
	}
	t, err := paramValue(fields[1], "t", 32)
	if err != nil {
		return nil, nil, nil, err
	}
	// bitSize 8 rejects p=256 instead of wrapping it to 0.
	p, err := paramValue(fields[2], "p", 8)
	if err != nil {
		return nil, nil, nil, err
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return nil, nil, nil, fmt.Errorf("%w: salt is missing or not base64", ErrInvalidArgon2Hash)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return nil, nil, nil, fmt.Errorf("%w: key is missing or not base64", ErrInvalidArgon2Hash)
	}

	stored := &Argon2{
		Memory:      uint32(m),
		Iterations:  uint32(t),
		Parallelism: uint8(p),
		SaltLength:  uint32(len(salt)),
		KeyLength:   uint32(len(key)),
	}
	if err := stored.validate(); err != nil {
		return nil, nil, nil, err
	}
	return stored, salt, key, nil
}

// paramValue parses "name=<unsigned>" into a value that fits in bitSize bits.
func paramValue(field, name string, bitSize int) (uint64, error) {
	k, v, ok := strings.Cut(field, "=")
	if !ok || k != name {
		return 0, fmt.Errorf("%w: expected %s=<n>, got %q", ErrInvalidArgon2Hash, name, field)
	}
	n, err := strconv.ParseUint(v, 10, bitSize)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidArgon2Hash, name, err)
	}
	return n, nil
}
