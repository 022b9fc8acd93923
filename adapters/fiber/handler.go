package fiber

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/lborres/boardauth/core"
	"github.com/lborres/boardauth/pkg/crypto"
	"github.com/lborres/boardauth/pkg/logger"
	"github.com/lborres/boardauth/pkg/statestore"
	"github.com/lborres/boardauth/provider"
)

const (
	stateCookie = "boardauth_oauth2_state"

	msgInvalidCredentials = "invalid username or password"
	msgExternalLogin      = "external login failed"
	msgInternal           = "internal server error"
)

type handlers struct {
	auth     core.AuthHandler
	login    core.ExternalLogin
	states   statestore.Store
	stateTTL time.Duration
	log      *zap.Logger
	secure   bool
	basePath string
}

func (h *handlers) signUp(c fiber.Ctx) error {
	var input core.SignUpInput
	if err := c.Bind().Body(&input); err != nil {
		return badBody(c)
	}

	principal, err := h.auth.SignUp(c.Context(), input)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusCreated).JSON(principal)
}

func (h *handlers) signIn(c fiber.Ctx) error {
	var input core.SignInInput
	if err := c.Bind().Body(&input); err != nil {
		return badBody(c)
	}

	principal, err := h.auth.SignIn(c.Context(), input)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(principal)
}

// authorize starts the authorization-code flow: it issues a one-time state,
// binds it to the browser with a cookie and redirects to the provider.
func (h *handlers) authorize(c fiber.Ctx) error {
	registrationID := c.Params("registrationId")

	state, err := crypto.GenerateSecret()
	if err != nil {
		return h.fail(c, err)
	}

	target, err := h.login.AuthCodeURL(registrationID, state)
	if err != nil {
		return h.fail(c, err)
	}

	if err := h.states.Put(c.Context(), state, registrationID, h.stateTTL); err != nil {
		return h.fail(c, err)
	}

	h.setStateCookie(c, state, time.Now().Add(h.stateTTL))
	return c.Redirect().Status(http.StatusFound).To(target)
}

// providerReturn handles the provider's redirect back with ?code=&state=.
func (h *handlers) providerReturn(c fiber.Ctx) error {
	registrationID := c.Params("registrationId")
	ctx := c.Context()
	log := logger.From(ctx, h.log).With(logger.Provider(registrationID))

	cookieState := c.Cookies(stateCookie)
	h.setStateCookie(c, "", time.Unix(1, 0))

	if reason := c.Query("error"); reason != "" {
		log.Info("provider denied authorization", logger.String("reason", reason))
		return h.fail(c, core.ErrStateMismatch)
	}

	state := c.Query("state")
	if !crypto.EqualSecrets(state, cookieState) {
		return h.fail(c, core.ErrStateMismatch)
	}
	boundTo, ok, err := h.states.Take(ctx, state)
	if err != nil {
		return h.fail(c, err)
	}
	if !ok || boundTo != registrationID {
		return h.fail(c, core.ErrStateMismatch)
	}

	code := c.Query("code")
	if code == "" {
		return h.fail(c, core.ErrMalformedProviderPayload)
	}

	attrs, err := h.login.FetchAttributes(ctx, registrationID, code)
	if err != nil {
		return h.fail(c, err)
	}

	principal, err := h.auth.AuthenticateExternal(ctx, registrationID, attrs)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(principal)
}

// setStateCookie binds a state to the browser. A past expiry deletes it.
func (h *handlers) setStateCookie(c fiber.Ctx, value string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     stateCookie,
		Value:    value,
		Path:     h.basePath,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *handlers) me(c fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(PrincipalFrom(c))
}

func (h *handlers) updateMe(c fiber.Ctx) error {
	var input core.ProfileInput
	if err := c.Bind().Body(&input); err != nil {
		return badBody(c)
	}

	principal, err := h.auth.UpdateProfile(c.Context(), PrincipalFrom(c), input)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(principal)
}

func badBody(c fiber.Ctx) error {
	return c.Status(http.StatusBadRequest).JSON(core.ErrorResponse{
		Error: "invalid request body",
		Code:  http.StatusBadRequest,
	})
}

// fail writes the error response. Server-side failures are logged and
// replaced with a generic message.
func (h *handlers) fail(c fiber.Ctx, err error) error {
	status, message := mapError(err)
	if status >= http.StatusInternalServerError {
		logger.From(c.Context(), h.log).Error("request failed", logger.Status(status), logger.Err(err))
	}
	return c.Status(status).JSON(core.ErrorResponse{
		Error: message,
		Code:  status,
	})
}

// mapError maps domain errors to a status code and a client-facing message.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrInvalidCredentials),
		errors.Is(err, core.ErrUnknownUser):
		return http.StatusUnauthorized, msgInvalidCredentials

	case errors.Is(err, core.ErrMissingAuthHeader),
		errors.Is(err, core.ErrInvalidAuthHeader):
		return http.StatusUnauthorized, err.Error()

	case errors.Is(err, core.ErrUsernameRequired),
		errors.Is(err, core.ErrUsernameTooLong),
		errors.Is(err, core.ErrPasswordRequired),
		errors.Is(err, core.ErrPasswordTooShort),
		errors.Is(err, core.ErrPasswordTooLong),
		errors.Is(err, core.ErrInvalidEmail):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, core.ErrDuplicateUsername):
		return http.StatusConflict, core.ErrDuplicateUsername.Error()

	case errors.Is(err, core.ErrMalformedProviderPayload),
		errors.Is(err, core.ErrUnknownProvider),
		errors.Is(err, core.ErrStateMismatch),
		errors.Is(err, provider.ErrLoginNotConfigured):
		return http.StatusUnauthorized, msgExternalLogin

	case errors.Is(err, core.ErrProviderUnavailable):
		return http.StatusBadGateway, msgExternalLogin

	case errors.Is(err, core.ErrNotImplemented):
		return http.StatusNotImplemented, core.ErrNotImplemented.Error()

	default:
		return http.StatusInternalServerError, msgInternal
	}
}
