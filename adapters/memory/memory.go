// Package memory is a process-local AccountStore for tests and demos.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lborres/boardauth/core"
)

var _ core.AccountStore = (*Store)(nil)

type Store struct {
	mu       sync.RWMutex
	accounts map[string]core.AccountDTO
	now      func() time.Time
}

func New() *Store {
	return &Store{
		accounts: make(map[string]core.AccountDTO),
		now:      time.Now,
	}
}

func (s *Store) Find(ctx context.Context, username string) (*core.AccountDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[username]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (s *Store) Create(ctx context.Context, account core.NewAccount) (*core.AccountDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[account.Username]; exists {
		return nil, fmt.Errorf("%w: %s", core.ErrDuplicateUsername, account.Username)
	}

	a := core.AccountDTO{
		Username: account.Username,
		Password: account.Password,
		Email:    account.Email,
		Nickname: account.Nickname,
		Memo:     account.Memo,
		Provider: account.Provider,
	}
	a.StampCreated(nil, account.CreatedBy, s.now().UTC())
	s.accounts[a.Username] = a
	return &a, nil
}

func (s *Store) Update(ctx context.Context, account *core.AccountDTO) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.accounts[account.Username]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownUser, account.Username)
	}
	current.Email = account.Email
	current.Nickname = account.Nickname
	current.Memo = account.Memo
	current.ModifiedAt = account.ModifiedAt
	current.ModifiedBy = account.ModifiedBy
	s.accounts[account.Username] = current
	return nil
}

// Len returns the number of stored accounts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}
