package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lborres/boardauth/core"
	"github.com/lborres/boardauth/pkg/crypto"
	"github.com/lborres/boardauth/pkg/logger"
)

// AuthService turns local credentials and provider attributes into Principals,
// creating accounts on first external login.
type AuthService struct {
	directory core.AccountDirectory
	encoder   crypto.CredentialEncoder
	parsers   core.ParserSource
	log       *zap.Logger
	metrics   *Metrics
	now       func() time.Time

	// decoy is an encoded throwaway secret compared against when the
	// username is unknown, so both failure paths cost one hash check.
	decoyOnce sync.Once
	decoy     string
}

// Ensure AuthService implements AuthHandler
var _ core.AuthHandler = (*AuthService)(nil)

type Option func(*AuthService)

func WithLogger(l *zap.Logger) Option {
	return func(s *AuthService) {
		if l != nil {
			s.log = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *AuthService) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *AuthService) {
		if now != nil {
			s.now = now
		}
	}
}

func NewAuthService(directory core.AccountDirectory, encoder crypto.CredentialEncoder, parsers core.ParserSource, opts ...Option) *AuthService {
	s := &AuthService{
		directory: directory,
		encoder:   encoder,
		parsers:   parsers,
		log:       logger.L(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Layer("service"))
	return s
}

// AuthenticateLocal resolves a principal for a local login id.
//
// It does not check credentials; callers that have a password use SignIn.
func (s *AuthService) AuthenticateLocal(ctx context.Context, username string) (*core.Principal, error) {
	account, err := s.directory.Find(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return nil, core.ErrUnknownUser
	}
	return core.FromAccount(account), nil
}

// AuthenticateExternal resolves or provisions the account for a provider login.
//
// The first login creates "<registrationID>_<providerID>" with a random,
// never-disclosed credential. Later logins return the stored account as is;
// profile changes at the provider are not copied over.
func (s *AuthService) AuthenticateExternal(ctx context.Context, registrationID string, attributes map[string]any) (p *core.Principal, err error) {
	log := logger.From(ctx, s.log).With(logger.Component("auth.external"), logger.Provider(registrationID))
	defer func() { s.metrics.authentication(methodExternal, err) }()

	parser, err := s.parsers.Parser(registrationID)
	if err != nil {
		log.Warn("no parser for provider", logger.Err(err))
		return nil, err
	}

	profile, err := parser.Parse(attributes)
	if err != nil {
		if !errors.Is(err, core.ErrMalformedProviderPayload) {
			err = fmt.Errorf("%w: %v", core.ErrMalformedProviderPayload, err)
		}
		log.Warn("provider payload rejected",
			logger.SchemaVersion(parser.SchemaVersion()),
			logger.Err(err),
		)
		return nil, err
	}

	username := core.SyntheticUsername(registrationID, profile.ProviderID())
	log = log.With(logger.Username(username))

	existing, err := s.directory.Find(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if existing != nil {
		log.Debug("external login matched existing account")
		return core.FromAccount(existing), nil
	}

	secret, err := crypto.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate stand-in secret: %w", err)
	}
	encoded, err := s.encoder.Encode(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to encode stand-in secret: %w", err)
	}

	created, err := s.directory.Create(ctx, core.NewAccount{
		Username:  username,
		Password:  encoded,
		Email:     profile.Email(),
		Nickname:  profile.Nickname(),
		Provider:  registrationID,
		CreatedBy: username,
	})
	if err == nil {
		s.metrics.accountProvisioned(registrationID)
		log.Info("account provisioned", logger.EmailMasked(core.MaskEmail(profile.Email())))
		return core.FromAccount(created), nil
	}
	if !errors.Is(err, core.ErrDuplicateUsername) {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	// A concurrent first login created the account between Find and Create.
	s.metrics.provisioningConflict(registrationID)
	log.Warn("provisioning conflict, reusing concurrent account")

	winner, err := s.directory.Find(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find account after conflict: %w", err)
	}
	if winner == nil {
		log.Error("account missing after duplicate-username conflict")
		return nil, fmt.Errorf("provisioning %s: %w", username, core.ErrDuplicateUsername)
	}
	return core.FromAccount(winner), nil
}

// SignIn checks a username and password.
//
// An unknown user, a wrong password and an unreadable stored credential all
// return ErrInvalidCredentials.
func (s *AuthService) SignIn(ctx context.Context, input core.SignInInput) (p *core.Principal, err error) {
	log := logger.From(ctx, s.log).With(logger.Component("auth.local"))
	defer func() { s.metrics.authentication(methodLocal, err) }()

	if input.Username == "" || input.Password == "" {
		return nil, core.ErrInvalidCredentials
	}

	p, err = s.AuthenticateLocal(ctx, input.Username)
	if errors.Is(err, core.ErrUnknownUser) {
		_, _ = s.encoder.Matches(input.Password, s.decoyCredential(log))
		return nil, core.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	ok, err := s.encoder.Matches(input.Password, p.Password)
	if err != nil {
		if errors.Is(err, core.ErrUnsupportedEncodingScheme) {
			scheme, _ := crypto.Scheme(p.Password)
			log.Error("stored credential has unsupported encoding",
				logger.Username(p.Username),
				logger.Scheme(scheme),
				logger.Err(err),
			)
			return nil, core.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, core.ErrInvalidCredentials
	}
	return p, nil
}

// fallbackDecoy is a well-formed argon2id value at the default cost. It is
// compared against when the encoder cannot produce a decoy of its own.
const fallbackDecoy = "{argon2id}$argon2id$v=19$m=65536,t=3,p=2$Ym9hcmRhdXRoLWRlY295IQ$Ym9hcmRhdXRoLWRlY295LWNyZWRlbnRpYWwtdmFsdWU"

func (s *AuthService) decoyCredential(log *zap.Logger) string {
	s.decoyOnce.Do(func() {
		s.decoy = fallbackDecoy
		secret, err := crypto.GenerateSecret()
		if err != nil {
			log.Warn("failed to generate decoy secret", logger.Err(err))
			return
		}
		encoded, err := s.encoder.Encode(secret)
		if err != nil {
			log.Warn("failed to encode decoy credential", logger.Err(err))
			return
		}
		s.decoy = encoded
	})
	return s.decoy
}

// SignUp registers a local account. The new account is its own creator.
func (s *AuthService) SignUp(ctx context.Context, input core.SignUpInput) (*core.Principal, error) {
	if err := validateSignUp(input); err != nil {
		return nil, err
	}

	encoded, err := s.encoder.Encode(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to encode password: %w", err)
	}

	account, err := s.directory.Create(ctx, core.NewAccount{
		Username:  input.Username,
		Password:  encoded,
		Email:     input.Email,
		Nickname:  input.Nickname,
		Memo:      input.Memo,
		CreatedBy: input.Username,
	})
	if err != nil {
		if errors.Is(err, core.ErrDuplicateUsername) {
			return nil, core.ErrDuplicateUsername
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	logger.From(ctx, s.log).Info("account registered",
		logger.Component("auth.local"),
		logger.Username(account.Username),
	)
	return core.FromAccount(account), nil
}

// UpdateProfile edits the principal's own account and stamps it as modified
// by that principal. It needs a directory that also implements core.AccountStore.
func (s *AuthService) UpdateProfile(ctx context.Context, principal *core.Principal, input core.ProfileInput) (*core.Principal, error) {
	if principal == nil {
		return nil, core.ErrInvalidCredentials
	}
	store, ok := s.directory.(core.AccountStore)
	if !ok {
		return nil, fmt.Errorf("profile updates: %w", core.ErrNotImplemented)
	}

	if input.Email != nil && *input.Email != "" {
		if err := validateEmail(*input.Email); err != nil {
			return nil, err
		}
	}

	account, err := store.Find(ctx, principal.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return nil, core.ErrUnknownUser
	}

	if input.Email != nil {
		account.Email = *input.Email
	}
	if input.Nickname != nil {
		account.Nickname = *input.Nickname
	}
	if input.Memo != nil {
		memo := *input.Memo
		account.Memo = &memo
		if memo == "" {
			account.Memo = nil
		}
	}
	account.StampModified(principal, s.now().UTC())

	if err := store.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	return core.FromAccount(account), nil
}
