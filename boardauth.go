package boardauth

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/lborres/boardauth/core"
	"github.com/lborres/boardauth/pkg/crypto"
	"github.com/lborres/boardauth/pkg/logger"
	"github.com/lborres/boardauth/provider"
	"github.com/lborres/boardauth/provider/kakao"
	"github.com/lborres/boardauth/services"
)

// interfaces
type (
	AccountDirectory = core.AccountDirectory
	AccountStore     = core.AccountStore
	AttributeParser  = core.AttributeParser
	ExternalLogin    = core.ExternalLogin
	Providers        = core.Providers

	HTTPAdapter = core.HTTPAdapter

	CredentialEncoder = crypto.CredentialEncoder
	PasswordHandler   = crypto.PasswordHandler
)

// structs
type (
	Config = core.Config

	Principal   = core.Principal
	AccountDTO  = core.AccountDTO
	NewAccount  = core.NewAccount
	SignUpInput = core.SignUpInput
	SignInInput = core.SignInInput

	ProfileInput = core.ProfileInput
	Registration = provider.Registration
)

const (
	defaultBasePath = "/api/auth"
)

// Constructors & helpers (convenience re-exports)
var (
	NewDefaultEncoder = crypto.NewDefaultEncoder
	NewArgon2         = crypto.NewArgon2
	NewBcrypt         = crypto.NewBcrypt
	NewRegistry       = provider.NewRegistry
	KakaoRegistration = kakao.Registration
	SyntheticUsername = core.SyntheticUsername
)

var (
	ErrUnknownUser        = core.ErrUnknownUser
	ErrDuplicateUsername  = core.ErrDuplicateUsername
	ErrInvalidCredentials = core.ErrInvalidCredentials

	ErrUnsupportedEncodingScheme = core.ErrUnsupportedEncodingScheme
)

var (
	ErrMalformedProviderPayload = core.ErrMalformedProviderPayload
	ErrUnknownProvider          = core.ErrUnknownProvider
	ErrStateMismatch            = core.ErrStateMismatch
	ErrProviderUnavailable      = core.ErrProviderUnavailable
)

var (
	ErrInvalidAuthHeader = core.ErrInvalidAuthHeader
	ErrMissingAuthHeader = core.ErrMissingAuthHeader
	ErrUsernameRequired  = core.ErrUsernameRequired
	ErrUsernameTooLong   = core.ErrUsernameTooLong
	ErrPasswordRequired  = core.ErrPasswordRequired
	ErrPasswordTooShort  = core.ErrPasswordTooShort
	ErrPasswordTooLong   = core.ErrPasswordTooLong
	ErrInvalidEmail      = core.ErrInvalidEmail
)

var (
	ErrDirectoryRequired   = core.ErrDirectoryRequired
	ErrHTTPAdapterRequired = core.ErrHTTPAdapterRequired
	ErrProviderConflict    = core.ErrProviderConflict
)

var (
	ErrNotImplemented = core.ErrNotImplemented
)

// BoardAuth is a configured authentication core with its routes mounted.
type BoardAuth struct {
	Auth      *services.AuthService
	Providers core.Providers
	Encoder   crypto.CredentialEncoder
	BasePath  string
}

type options struct {
	log     *zap.Logger
	metrics prometheus.Registerer
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithMetrics registers the authentication counters with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.metrics = reg
	}
}

// DefaultProviders returns a registry that knows the Kakao payload but has no
// OAuth2 client. Register a full Registration to enable the browser flow.
func DefaultProviders() *provider.Registry {
	r := provider.NewRegistry()
	_ = r.RegisterParser(kakao.RegistrationID, kakao.Parser{})
	return r
}

func New(config Config, opts ...Option) (*BoardAuth, error) {
	if config.Directory == nil {
		return nil, ErrDirectoryRequired
	}
	if config.HTTP == nil {
		return nil, ErrHTTPAdapterRequired
	}

	o := options{log: logger.L()}
	for _, opt := range opts {
		opt(&o)
	}

	// Set Defaults

	encoder := config.Encoder
	if encoder == nil {
		encoder = crypto.NewDefaultEncoder()
	}

	var providers core.Providers = config.Providers
	if providers == nil {
		providers = DefaultProviders()
	}

	basePath := config.BasePath
	if basePath == "" {
		basePath = defaultBasePath
	}

	serviceOpts := []services.Option{services.WithLogger(o.log)}
	if o.metrics != nil {
		metrics, err := services.NewMetrics(o.metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		serviceOpts = append(serviceOpts, services.WithMetrics(metrics))
	}

	auth := services.NewAuthService(config.Directory, encoder, providers, serviceOpts...)

	if err := config.HTTP.RegisterRoutes(auth, providers, basePath); err != nil {
		return nil, err
	}

	return &BoardAuth{
		Auth:      auth,
		Providers: providers,
		Encoder:   encoder,
		BasePath:  basePath,
	}, nil
}
