package fiber

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/lborres/boardauth/core"
	"github.com/lborres/boardauth/pkg/logger"
)

const (
	HeaderRequestID = "X-Request-ID"

	principalKey = "principal"
	basicRealm   = `Basic realm="boardauth", charset="UTF-8"`
)

// requestContext tags the request with an id and a request-scoped logger.
func (a *Adapter) requestContext(c fiber.Ctx) error {
	start := time.Now()

	rid := strings.TrimSpace(c.Get(HeaderRequestID))
	if rid == "" || len(rid) > 128 {
		rid = uuid.NewString()
	}
	c.Set(HeaderRequestID, rid)

	l := a.log.With(
		logger.RequestID(rid),
		logger.Method(c.Method()),
		logger.Path(c.Path()),
	)
	c.SetContext(logger.ToContext(c.Context(), l))

	err := c.Next()

	l.Debug("request completed",
		logger.Status(c.Response().StatusCode()),
		logger.Duration(time.Since(start)),
	)
	return err
}

// requireAuth authenticates the request with HTTP Basic credentials and
// stores the principal for the handlers that follow. Nothing is kept between
// requests.
func (h *handlers) requireAuth(c fiber.Ctx) error {
	username, password, err := parseBasicAuth(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		c.Set(fiber.HeaderWWWAuthenticate, basicRealm)
		return h.fail(c, err)
	}

	principal, err := h.auth.SignIn(c.Context(), core.SignInInput{
		Username: username,
		Password: password,
	})
	if err != nil {
		c.Set(fiber.HeaderWWWAuthenticate, basicRealm)
		return h.fail(c, err)
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFrom returns the principal resolved by the authentication
// middleware, or nil on unprotected routes.
func PrincipalFrom(c fiber.Ctx) *core.Principal {
	p, _ := c.Locals(principalKey).(*core.Principal)
	return p
}

func parseBasicAuth(header string) (string, string, error) {
	if header == "" {
		return "", "", core.ErrMissingAuthHeader
	}
	const prefix = "basic "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", "", core.ErrInvalidAuthHeader
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header[len(prefix):]))
	if err != nil {
		return "", "", core.ErrInvalidAuthHeader
	}
	username, password, ok := strings.Cut(string(raw), ":")
	if !ok {
		return "", "", core.ErrInvalidAuthHeader
	}
	return username, password, nil
}
