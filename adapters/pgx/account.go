package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lborres/boardauth/core"
)

const uniqueViolation = "23505"

const selectAccount = `SELECT username, password, email, nickname, memo, provider,
	created_at, created_by, modified_at, modified_by
	FROM user_account WHERE username = $1`

func (a *Adapter) Find(ctx context.Context, username string) (*core.AccountDTO, error) {
	account := &core.AccountDTO{}
	err := a.pool.QueryRow(ctx, selectAccount, username).Scan(
		&account.Username,
		&account.Password,
		&account.Email,
		&account.Nickname,
		&account.Memo,
		&account.Provider,
		&account.CreatedAt,
		&account.CreatedBy,
		&account.ModifiedAt,
		&account.ModifiedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return account, nil
}

func (a *Adapter) Create(ctx context.Context, input core.NewAccount) (*core.AccountDTO, error) {
	account := &core.AccountDTO{
		Username: input.Username,
		Password: input.Password,
		Email:    input.Email,
		Nickname: input.Nickname,
		Memo:     input.Memo,
		Provider: input.Provider,
	}
	account.StampCreated(nil, input.CreatedBy, a.now().UTC())

	q := `INSERT INTO user_account
		(username, password, email, nickname, memo, provider, created_at, created_by, modified_at, modified_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := a.pool.Exec(ctx, q,
		account.Username,
		account.Password,
		account.Email,
		account.Nickname,
		account.Memo,
		account.Provider,
		account.CreatedAt,
		account.CreatedBy,
		account.ModifiedAt,
		account.ModifiedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", core.ErrDuplicateUsername, input.Username)
		}
		return nil, err
	}
	return account, nil
}

func (a *Adapter) Update(ctx context.Context, account *core.AccountDTO) error {
	q := `UPDATE user_account
		SET email = $2, nickname = $3, memo = $4, modified_at = $5, modified_by = $6
		WHERE username = $1`
	tag, err := a.pool.Exec(ctx, q,
		account.Username,
		account.Email,
		account.Nickname,
		account.Memo,
		account.ModifiedAt,
		account.ModifiedBy,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", core.ErrUnknownUser, account.Username)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
