// Package statestore keeps OAuth2 "state" values between the redirect to a
// provider and the provider's callback. Each state is accepted once.
package statestore

import (
	"context"
	"errors"
	"time"
)

const DefaultTTL = 10 * time.Minute

var ErrStateRequired = errors.New("state is required")

// Store holds pending authorization requests keyed by state.
type Store interface {
	// Put records that state was issued for registrationID.
	Put(ctx context.Context, state, registrationID string, ttl time.Duration) error

	// Take returns and removes the registration id bound to state. ok is
	// false when the state is unknown, expired or already used.
	Take(ctx context.Context, state string) (registrationID string, ok bool, err error)
}

// Stats are the counters of a Store.
type Stats struct {
	Puts   int64
	Hits   int64
	Misses int64
}

type Config struct {
	// Driver is "memory" (default) or "redis".
	Driver    string
	TTL       time.Duration
	RedisAddr string
	RedisDB   int
	RedisPass string
	KeyPrefix string
}

// New builds the Store selected by cfg.Driver.
func New(cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(cfg.TTL), nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, errors.New("statestore: redis address is required")
		}
		return NewRedis(RedisOptions{
			Addr:      cfg.RedisAddr,
			DB:        cfg.RedisDB,
			Password:  cfg.RedisPass,
			KeyPrefix: cfg.KeyPrefix,
		}), nil
	default:
		return nil, errors.New("statestore: unknown driver " + cfg.Driver)
	}
}
