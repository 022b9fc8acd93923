package crypto

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

const (
	SchemeArgon2id = "argon2id"
	SchemeBcrypt   = "bcrypt"
)

var (
	ErrUnsupportedEncodingScheme = errors.New("unsupported encoding scheme")
	ErrUnknownDefaultScheme      = errors.New("default scheme is not registered")
)

// CredentialEncoder is a one-way transform whose output names its own scheme.
type CredentialEncoder interface {
	Encode(plaintext string) (string, error)
	Matches(plaintext, encoded string) (bool, error)
}

var _ CredentialEncoder = (*DelegatingEncoder)(nil)

// DelegatingEncoder prefixes every encoded value with "{scheme}" and dispatches
// verification to the handler registered under that scheme, so stored values
// stay verifiable after the default scheme changes.
type DelegatingEncoder struct {
	mu        sync.RWMutex
	defaultID string
	handlers  map[string]PasswordHandler
}

// NewDelegatingEncoder creates an encoder that encodes with defaultID.
func NewDelegatingEncoder(defaultID string, handlers map[string]PasswordHandler) (*DelegatingEncoder, error) {
	if _, ok := handlers[defaultID]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDefaultScheme, defaultID)
	}

	registered := make(map[string]PasswordHandler, len(handlers))
	for id, h := range handlers {
		registered[id] = h
	}

	return &DelegatingEncoder{
		defaultID: defaultID,
		handlers:  registered,
	}, nil
}

// NewDefaultEncoder encodes with argon2id and still verifies bcrypt values.
func NewDefaultEncoder() *DelegatingEncoder {
	e, _ := NewDelegatingEncoder(SchemeArgon2id, map[string]PasswordHandler{
		SchemeArgon2id: NewArgon2(),
		SchemeBcrypt:   NewBcrypt(),
	})
	return e
}

// Register adds or replaces the handler for id.
func (e *DelegatingEncoder) Register(id string, handler PasswordHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[id] = handler
}

// DefaultScheme returns the scheme new values are encoded with.
func (e *DelegatingEncoder) DefaultScheme() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.defaultID
}

func (e *DelegatingEncoder) Encode(plaintext string) (string, error) {
	e.mu.RLock()
	id := e.defaultID
	h := e.handlers[id]
	e.mu.RUnlock()

	hash, err := h.Hash(plaintext)
	if err != nil {
		return "", err
	}
	return "{" + id + "}" + hash, nil
}

// Matches reports whether plaintext encodes to encoded. A wrong plaintext is
// (false, nil); only a missing or unknown scheme tag, or a value the scheme
// cannot decode, is an error.
func (e *DelegatingEncoder) Matches(plaintext, encoded string) (bool, error) {
	id, hash, err := splitScheme(encoded)
	if err != nil {
		return false, err
	}

	e.mu.RLock()
	h, ok := e.handlers[id]
	e.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnsupportedEncodingScheme, id)
	}

	ok, err = h.Verify(plaintext, hash)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrUnsupportedEncodingScheme, id, err)
	}
	return ok, nil
}

// NeedsUpgrade reports whether encoded was produced by a scheme other than
// the current default.
func (e *DelegatingEncoder) NeedsUpgrade(encoded string) bool {
	id, _, err := splitScheme(encoded)
	if err != nil {
		return true
	}
	return id != e.DefaultScheme()
}

// Scheme returns the scheme tag of an encoded value.
func Scheme(encoded string) (string, error) {
	id, _, err := splitScheme(encoded)
	return id, err
}

func splitScheme(encoded string) (string, string, error) {
	if !strings.HasPrefix(encoded, "{") {
		return "", "", fmt.Errorf("%w: missing scheme tag", ErrUnsupportedEncodingScheme)
	}
	end := strings.IndexByte(encoded, '}')
	if end <= 1 {
		return "", "", fmt.Errorf("%w: missing scheme tag", ErrUnsupportedEncodingScheme)
	}
	return encoded[1:end], encoded[end+1:], nil
}
