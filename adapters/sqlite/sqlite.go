// Package sqlite stores accounts in a single SQLite file. It suits local
// development and small single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/lborres/boardauth/core"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ core.AccountStore = (*Store)(nil)

// New wraps an open handle. The schema must already be migrated.
func New(db *sql.DB) *Store {
	return &Store{
		db:  db,
		now: time.Now,
	}
}

// Open opens the database file at path and applies the embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := RunMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return New(db), nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

const selectAccount = `SELECT username, password, email, nickname, memo, provider,
	created_at, created_by, modified_at, modified_by
	FROM user_account WHERE username = ?`

func (s *Store) Find(ctx context.Context, username string) (*core.AccountDTO, error) {
	var (
		account    core.AccountDTO
		memo       sql.NullString
		createdAt  int64
		modifiedAt int64
	)
	err := s.db.QueryRowContext(ctx, selectAccount, username).Scan(
		&account.Username,
		&account.Password,
		&account.Email,
		&account.Nickname,
		&memo,
		&account.Provider,
		&createdAt,
		&account.CreatedBy,
		&modifiedAt,
		&account.ModifiedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	if memo.Valid {
		account.Memo = &memo.String
	}
	account.CreatedAt = fromMillis(createdAt)
	account.ModifiedAt = fromMillis(modifiedAt)
	return &account, nil
}

func (s *Store) Create(ctx context.Context, input core.NewAccount) (*core.AccountDTO, error) {
	account := &core.AccountDTO{
		Username: input.Username,
		Password: input.Password,
		Email:    input.Email,
		Nickname: input.Nickname,
		Memo:     input.Memo,
		Provider: input.Provider,
	}
	// Millisecond precision is what the column keeps.
	account.StampCreated(nil, input.CreatedBy, s.now().UTC().Truncate(time.Millisecond))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_account
		 (username, password, email, nickname, memo, provider, created_at, created_by, modified_at, modified_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		account.Username,
		account.Password,
		account.Email,
		account.Nickname,
		nullString(account.Memo),
		account.Provider,
		toMillis(account.CreatedAt),
		account.CreatedBy,
		toMillis(account.ModifiedAt),
		account.ModifiedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", core.ErrDuplicateUsername, input.Username)
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	return account, nil
}

func (s *Store) Update(ctx context.Context, account *core.AccountDTO) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE user_account
		 SET email = ?, nickname = ?, memo = ?, modified_at = ?, modified_by = ?
		 WHERE username = ?`,
		account.Email,
		account.Nickname,
		nullString(account.Memo),
		toMillis(account.ModifiedAt),
		account.ModifiedBy,
		account.Username,
	)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", core.ErrUnknownUser, account.Username)
	}
	return nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
