// Package provider holds the OAuth2 identity-provider registrations: the
// authorization-code client for each provider and the parser for its
// user-info payload.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/lborres/boardauth/core"
)

var ErrLoginNotConfigured = errors.New("provider has no oauth2 client configured")

var (
	_ core.ParserSource  = (*Registry)(nil)
	_ core.ExternalLogin = (*Registry)(nil)
)

type entry struct {
	parser core.AttributeParser
	client *Client // nil for parser-only registrations
}

// Registry maps registration ids ("kakao") to providers.
type Registry struct {
	mu         sync.RWMutex
	entries    map[string]entry
	httpClient *http.Client
}

type RegistryOption func(*Registry)

// WithHTTPClient sets the client used for token exchange and user-info calls.
func WithHTTPClient(c *http.Client) RegistryOption {
	return func(r *Registry) {
		r.httpClient = c
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{entries: make(map[string]entry)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a provider with a full OAuth2 client.
func (r *Registry) Register(reg Registration) error {
	if err := reg.Validate(); err != nil {
		return err
	}
	return r.add(reg.ID, entry{
		parser: reg.Parser,
		client: newClient(reg, r.httpClient),
	})
}

// RegisterParser adds a provider known only by its payload parser, for
// attribute maps obtained outside this package.
func (r *Registry) RegisterParser(id string, parser core.AttributeParser) error {
	if id == "" {
		return fmt.Errorf("%w: empty registration id", ErrInvalidRegistration)
	}
	if parser == nil {
		return fmt.Errorf("%w: %s: parser is required", ErrInvalidRegistration, id)
	}
	return r.add(id, entry{parser: parser})
}

func (r *Registry) add(id string, e entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[id]; exists {
		return fmt.Errorf("%w: %s", core.ErrProviderConflict, id)
	}
	r.entries[id] = e
	return nil
}

func (r *Registry) lookup(id string) (entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return entry{}, fmt.Errorf("%w: %q", core.ErrUnknownProvider, id)
	}
	return e, nil
}

func (r *Registry) Parser(registrationID string) (core.AttributeParser, error) {
	e, err := r.lookup(registrationID)
	if err != nil {
		return nil, err
	}
	return e.parser, nil
}

// Client returns the OAuth2 client of a provider.
func (r *Registry) Client(registrationID string) (*Client, error) {
	e, err := r.lookup(registrationID)
	if err != nil {
		return nil, err
	}
	if e.client == nil {
		return nil, fmt.Errorf("%w: %s", ErrLoginNotConfigured, registrationID)
	}
	return e.client, nil
}

func (r *Registry) AuthCodeURL(registrationID, state string) (string, error) {
	c, err := r.Client(registrationID)
	if err != nil {
		return "", err
	}
	return c.AuthCodeURL(state), nil
}

func (r *Registry) FetchAttributes(ctx context.Context, registrationID, code string) (map[string]any, error) {
	c, err := r.Client(registrationID)
	if err != nil {
		return nil, err
	}
	return c.FetchAttributes(ctx, code)
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
