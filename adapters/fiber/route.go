// Package fiber mounts the authentication endpoints on a Fiber v3 app.
package fiber

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/lborres/boardauth/core"
	"github.com/lborres/boardauth/pkg/logger"
	"github.com/lborres/boardauth/pkg/statestore"
	"github.com/lborres/boardauth/services"
)

type Adapter struct {
	app       *fiber.App
	states    statestore.Store
	stateTTL  time.Duration
	endpoints *services.EndpointRegistry
	log       *zap.Logger
	secure    bool
}

var _ core.HTTPAdapter = (*Adapter)(nil)

type Option func(*Adapter)

// WithStateStore sets where OAuth2 states wait for the provider callback.
func WithStateStore(s statestore.Store, ttl time.Duration) Option {
	return func(a *Adapter) {
		if s != nil {
			a.states = s
		}
		if ttl > 0 {
			a.stateTTL = ttl
		}
	}
}

func WithEndpointRegistry(r *services.EndpointRegistry) Option {
	return func(a *Adapter) {
		if r != nil {
			a.endpoints = r
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.log = l
		}
	}
}

// WithSecureCookies marks the state cookie Secure. Enable behind HTTPS.
func WithSecureCookies(secure bool) Option {
	return func(a *Adapter) {
		a.secure = secure
	}
}

func New(app *fiber.App, opts ...Option) *Adapter {
	a := &Adapter{
		app:       app,
		stateTTL:  statestore.DefaultTTL,
		endpoints: services.NewEndpointRegistry(),
		log:       logger.L(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.states == nil {
		a.states = statestore.NewMemory(a.stateTTL)
	}
	a.log = a.log.With(logger.Layer("http"))
	return a
}

func (a *Adapter) RegisterRoutes(handler core.AuthHandler, login core.ExternalLogin, basePath string) error {
	h := &handlers{
		auth:     handler,
		login:    login,
		states:   a.states,
		stateTTL: a.stateTTL,
		log:      a.log,
		secure:   a.secure,
		basePath: basePath,
	}

	byOperation := map[string]fiber.Handler{
		services.OpSignUp:         h.signUp,
		services.OpSignIn:         h.signIn,
		services.OpAuthorize:      h.authorize,
		services.OpProviderReturn: h.providerReturn,
		services.OpGetMe:          h.me,
		services.OpUpdateMe:       h.updateMe,
	}
	var requireAuth fiber.Handler = h.requireAuth

	api := a.app.Group(basePath)
	api.Use(a.requestContext)

	for _, ep := range a.endpoints.Endpoints() {
		fn, ok := byOperation[ep.Metadata.OperationID]
		if !ok {
			return fmt.Errorf("%w: no fiber handler for %s %s", core.ErrNotImplemented, ep.Method, ep.Path)
		}
		if ep.Protected {
			api.Add([]string{ep.Method}, ep.Path, requireAuth, fn)
			continue
		}
		api.Add([]string{ep.Method}, ep.Path, fn)
	}
	return nil
}

// Protected returns middleware that admits requests with valid Basic
// credentials, for application routes mounted outside the base path.
// Use PrincipalFrom in the next handler.
func (a *Adapter) Protected(handler core.AuthHandler) fiber.Handler {
	h := &handlers{auth: handler, log: a.log}
	return h.requireAuth
}
