package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/lborres/boardauth/core"
	"github.com/lborres/boardauth/pkg/crypto"
)

// FakeAccountDirectory is a test-only fake implementing core.AccountStore.
// It stores accounts in a map and exposes error fields and hooks for
// behavior injection.
type FakeAccountDirectory struct {
	accounts map[string]*core.AccountDTO
	mu       sync.RWMutex

	findErr   error
	createErr error
	updateErr error

	// beforeCreate runs before Create takes the lock; tests use it to
	// insert a competing account.
	beforeCreate func(core.NewAccount)
	// hideOnFind makes Find report absent for usernames in the set.
	hideOnFind map[string]bool

	findCalls   int
	createCalls int
}

var _ core.AccountStore = (*FakeAccountDirectory)(nil)

func NewFakeAccountDirectory() *FakeAccountDirectory {
	return &FakeAccountDirectory{
		accounts:   make(map[string]*core.AccountDTO),
		hideOnFind: make(map[string]bool),
	}
}

func (f *FakeAccountDirectory) Find(ctx context.Context, username string) (*core.AccountDTO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.hideOnFind[username] {
		return nil, nil
	}
	a, ok := f.accounts[username]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (f *FakeAccountDirectory) Create(ctx context.Context, account core.NewAccount) (*core.AccountDTO, error) {
	if f.beforeCreate != nil {
		f.beforeCreate(account)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, exists := f.accounts[account.Username]; exists {
		return nil, fmt.Errorf("%w: %s", core.ErrDuplicateUsername, account.Username)
	}
	a := &core.AccountDTO{
		Username: account.Username,
		Password: account.Password,
		Email:    account.Email,
		Nickname: account.Nickname,
		Memo:     account.Memo,
		Provider: account.Provider,
		AuditFields: core.AuditFields{
			CreatedBy:  account.CreatedBy,
			ModifiedBy: account.CreatedBy,
		},
	}
	f.accounts[a.Username] = a
	copied := *a
	return &copied, nil
}

func (f *FakeAccountDirectory) Update(ctx context.Context, account *core.AccountDTO) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.accounts[account.Username]; !ok {
		return core.ErrUnknownUser
	}
	copied := *account
	f.accounts[account.Username] = &copied
	return nil
}

// Seed stores an account directly, bypassing Create.
func (f *FakeAccountDirectory) Seed(a *core.AccountDTO) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *a
	f.accounts[a.Username] = &copied
}

func (f *FakeAccountDirectory) SetFindError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findErr = err
}

func (f *FakeAccountDirectory) SetCreateError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErr = err
}

func (f *FakeAccountDirectory) CreateCalls() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.createCalls
}

func (f *FakeAccountDirectory) FindCalls() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.findCalls
}

func (f *FakeAccountDirectory) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.accounts)
}

// FakeParserSource is a test-only fake implementing core.ParserSource.
type FakeParserSource map[string]core.AttributeParser

func (f FakeParserSource) Parser(registrationID string) (core.AttributeParser, error) {
	p, ok := f[registrationID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownProvider, registrationID)
	}
	return p, nil
}

// NewFastEncoder returns an encoder with cheap bcrypt as the default scheme
// and cheap argon2id registered, for tests.
func NewFastEncoder() *crypto.DelegatingEncoder {
	e, _ := crypto.NewDelegatingEncoder(crypto.SchemeBcrypt, map[string]crypto.PasswordHandler{
		crypto.SchemeBcrypt: &crypto.Bcrypt{Cost: 4},
		crypto.SchemeArgon2id: &crypto.Argon2{
			Memory:      8 * 1024,
			Iterations:  1,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
		},
	})
	return e
}

// fakeEncoder counts Matches calls and can fail Encode.
type fakeEncoder struct {
	crypto.CredentialEncoder
	mu           sync.Mutex
	encodeErr    error
	matchesCalls int
	lastEncoded  string
}

func (f *fakeEncoder) Encode(plaintext string) (string, error) {
	if f.encodeErr != nil {
		return "", f.encodeErr
	}
	return f.CredentialEncoder.Encode(plaintext)
}

func (f *fakeEncoder) Matches(plaintext, encoded string) (bool, error) {
	f.mu.Lock()
	f.matchesCalls++
	f.lastEncoded = encoded
	f.mu.Unlock()
	return f.CredentialEncoder.Matches(plaintext, encoded)
}
