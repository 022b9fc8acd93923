package pgx

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lborres/boardauth/core"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}, want: true},
		{name: "wrapped unique violation", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), want: true},
		{name: "not null violation", err: &pgconn.PgError{Code: "23502"}, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			if got := isUniqueViolation(test.err); got != test.want {
				t.Errorf("isUniqueViolation() = %v, want %v", got, test.want)
			}
		})
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	for _, name := range []string{
		"migrations/000001_create_user_account.up.sql",
		"migrations/000001_create_user_account.down.sql",
	} {
		if _, err := fs.Stat(migrationsFS, name); err != nil {
			t.Errorf("missing embedded migration %s: %v", name, err)
		}
	}
}

// testDatabaseURL returns TEST_DATABASE_URL or skips the test.
func testDatabaseURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	return url
}

func setupAdapter(t *testing.T) *Adapter {
	t.Helper()
	url := testDatabaseURL(t)
	if err := RunMigrations(url); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	pool, err := Connect(context.Background(), url)
	if err != nil {
		t.Skipf("database unavailable: %v", err)
	}
	t.Cleanup(pool.Close)
	if _, err := pool.Exec(context.Background(), `TRUNCATE user_account`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return New(pool)
}

func TestAdapter_CreateFindUpdate(t *testing.T) {
	// Arrange
	a := setupAdapter(t)
	ctx := context.Background()

	// Act
	created, err := a.Create(ctx, core.NewAccount{
		Username:  "kakao_1234567890",
		Password:  "{bcrypt}x",
		Email:     "test@gmail.com",
		Nickname:  "Hong",
		Provider:  "kakao",
		CreatedBy: "kakao_1234567890",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	found, err := a.Find(ctx, "kakao_1234567890")

	// Assert
	if err != nil || found == nil {
		t.Fatalf("Find() = %v, %v", found, err)
	}
	if found.Email != "test@gmail.com" || found.Provider != "kakao" || found.Memo != nil {
		t.Errorf("Find() = %+v", found)
	}
	// timestamptz keeps microseconds
	if found.CreatedAt.Sub(created.CreatedAt).Abs() > time.Millisecond {
		t.Errorf("CreatedAt = %v, want %v", found.CreatedAt, created.CreatedAt)
	}

	memo := "hi"
	found.Memo = &memo
	found.ModifiedBy = "admin"
	if err := a.Update(ctx, found); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	again, _ := a.Find(ctx, "kakao_1234567890")
	if again.Memo == nil || *again.Memo != "hi" || again.ModifiedBy != "admin" {
		t.Errorf("after Update = %+v", again)
	}

	absent, err := a.Find(ctx, "KAKAO_1234567890")
	if err != nil || absent != nil {
		t.Errorf("Find() should be case-sensitive, got %v, %v", absent, err)
	}
}

func TestAdapter_Create_ConcurrentDuplicate(t *testing.T) {
	// Arrange
	a := setupAdapter(t)
	var wg sync.WaitGroup
	errs := make([]error, 8)

	// Act
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = a.Create(context.Background(), core.NewAccount{Username: "alice", Password: "{bcrypt}x", CreatedBy: "alice"})
		}(i)
	}
	wg.Wait()

	// Assert
	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, core.ErrDuplicateUsername):
			t.Errorf("Create() error = %v, want ErrDuplicateUsername", err)
		}
	}
	if ok != 1 {
		t.Errorf("successful creates = %d, want 1", ok)
	}
}

func TestAdapter_Update_Unknown(t *testing.T) {
	a := setupAdapter(t)

	err := a.Update(context.Background(), &core.AccountDTO{Username: "ghost"})
	if !errors.Is(err, core.ErrUnknownUser) {
		t.Errorf("Update() error = %v, want ErrUnknownUser", err)
	}
}
