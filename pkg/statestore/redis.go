package statestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	rdb "github.com/redis/go-redis/v9"

	"github.com/lborres/boardauth/pkg/crypto"
)

const defaultKeyPrefix = "boardauth:oauth2:state:"

type RedisOptions struct {
	Addr      string
	DB        int
	Password  string
	KeyPrefix string
}

// Redis is a Store shared between instances. Take uses GETDEL, so it needs
// Redis 6.2 or newer.
type Redis struct {
	c      rdb.UniversalClient
	prefix string
}

var _ Store = (*Redis)(nil)

func NewRedis(opts RedisOptions) *Redis {
	return NewRedisWithClient(rdb.NewClient(&rdb.Options{
		Addr:     opts.Addr,
		DB:       opts.DB,
		Password: opts.Password,
	}), opts.KeyPrefix)
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(c rdb.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Redis{c: c, prefix: prefix}
}

func (r *Redis) key(state string) string {
	return r.prefix + crypto.HashSecret(state)
}

func (r *Redis) Put(ctx context.Context, state, registrationID string, ttl time.Duration) error {
	if state == "" {
		return ErrStateRequired
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := r.c.Set(ctx, r.key(state), registrationID, ttl).Err(); err != nil {
		return fmt.Errorf("statestore: put: %w", err)
	}
	return nil
}

func (r *Redis) Take(ctx context.Context, state string) (string, bool, error) {
	if state == "" {
		return "", false, nil
	}
	id, err := r.c.GetDel(ctx, r.key(state)).Result()
	if errors.Is(err, rdb.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("statestore: take: %w", err)
	}
	return id, true, nil
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.c.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.c.Close()
}
