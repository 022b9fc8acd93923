package core

import (
	"errors"

	"github.com/lborres/boardauth/pkg/crypto"
)

// Authentication Related Errors
var (
	// Account errors
	ErrUnknownUser        = errors.New("unknown user")                 // 401 Unauthorized (never rendered as such)
	ErrDuplicateUsername  = errors.New("username already exists")      // 409 Conflict
	ErrInvalidCredentials = errors.New("invalid username or password") // 401 Unauthorized

	// ErrUnsupportedEncodingScheme means a stored credential carries a missing or
	// unknown scheme tag. It is an integrity problem, not a user error.
	ErrUnsupportedEncodingScheme = crypto.ErrUnsupportedEncodingScheme // 500
)

// External provider errors
var (
	ErrMalformedProviderPayload = errors.New("malformed provider payload") // 401
	ErrUnknownProvider          = errors.New("unknown provider")           // 401
	ErrStateMismatch            = errors.New("oauth2 state mismatch")      // 401
	ErrProviderUnavailable      = errors.New("provider request failed")    // 502
)

// Validation errors (client input)
var (
	ErrInvalidAuthHeader = errors.New("invalid authorization format, expected 'Basic <credentials>'") // 401
	ErrMissingAuthHeader = errors.New("missing authorization header")                                 // 401
	ErrUsernameRequired  = errors.New("username is required")                                         // 400
	ErrUsernameTooLong   = errors.New("username is too long")                                         // 400
	ErrPasswordRequired  = errors.New("password is required")                                         // 400
	ErrPasswordTooShort  = errors.New("password is too short")                                        // 400
	ErrPasswordTooLong   = errors.New("password is too long")                                         // 400
	ErrInvalidEmail      = errors.New("invalid email format")                                         // 400
)

// Config errors (server-side configuration)
var (
	ErrDirectoryRequired   = errors.New("account directory is required") // 500
	ErrHTTPAdapterRequired = errors.New("adapter is required")           // 500
	ErrProviderConflict    = errors.New("provider already registered")   // 500
)

var (
	ErrNotImplemented = errors.New("not implemented") // 501
)
