package core

import (
	"context"
)

// Ports define interfaces for external dependencies

// ============================================
// STORAGE PORTS (Database operations)
// ============================================

// AccountDirectory is the only view of the account store the authentication
// core depends on.
type AccountDirectory interface {
	// Find returns (nil, nil) when no account has exactly this username.
	Find(ctx context.Context, username string) (*AccountDTO, error)

	// Create persists a new account. Implementations must enforce username
	// uniqueness at the storage layer and return ErrDuplicateUsername on conflict.
	Create(ctx context.Context, account NewAccount) (*AccountDTO, error)
}

// AccountStore adds the account-management operations used outside the core.
type AccountStore interface {
	AccountDirectory

	// Update rewrites email, nickname, memo and modified audit fields.
	Update(ctx context.Context, account *AccountDTO) error
}

// ============================================
// PROVIDER PORTS
// ============================================

// ProviderProfile is the part of a parsed provider payload the core consumes.
type ProviderProfile interface {
	ProviderID() string
	Email() string
	Nickname() string
}

// AttributeParser turns a provider's raw attribute map into a profile.
type AttributeParser interface {
	SchemaVersion() string
	Parse(attributes map[string]any) (ProviderProfile, error)
}

// ParserSource resolves the attribute parser registered for a provider.
type ParserSource interface {
	Parser(registrationID string) (AttributeParser, error)
}

// ExternalLogin drives the OAuth2 authorization-code flow for registered providers.
type ExternalLogin interface {
	AuthCodeURL(registrationID, state string) (string, error)
	FetchAttributes(ctx context.Context, registrationID, code string) (map[string]any, error)
}

// ============================================
// AUTH HANDLER (for HTTP adapters)
// ============================================

// AuthHandler provides authentication operations for HTTP adapters
type AuthHandler interface {
	SignUp(ctx context.Context, input SignUpInput) (*Principal, error)
	SignIn(ctx context.Context, input SignInInput) (*Principal, error)
	AuthenticateExternal(ctx context.Context, registrationID string, attributes map[string]any) (*Principal, error)
	UpdateProfile(ctx context.Context, principal *Principal, input ProfileInput) (*Principal, error)
}

// ============================================
// HTTP PORT
// ============================================

type HTTPAdapter interface {
	RegisterRoutes(handler AuthHandler, login ExternalLogin, basePath string) error
}
