package fiber

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/lborres/boardauth/core"
	"github.com/lborres/boardauth/pkg/statestore"
)

// mockAuthHandler is a test fake implementing core.AuthHandler.
type mockAuthHandler struct {
	signUpInput core.SignUpInput
	signUpErr   error

	signInInput core.SignInInput
	signInErr   error

	externalID    string
	externalAttrs map[string]any
	externalErr   error

	updatePrincipal *core.Principal
	updateInput     core.ProfileInput
	updateErr       error
}

func alice() *core.Principal {
	return core.FromAccount(&core.AccountDTO{Username: "alice", Email: "alice@example.com", Nickname: "Alice"})
}

func (m *mockAuthHandler) SignUp(ctx context.Context, input core.SignUpInput) (*core.Principal, error) {
	m.signUpInput = input
	if m.signUpErr != nil {
		return nil, m.signUpErr
	}
	return core.FromAccount(&core.AccountDTO{Username: input.Username, Email: input.Email}), nil
}

func (m *mockAuthHandler) SignIn(ctx context.Context, input core.SignInInput) (*core.Principal, error) {
	m.signInInput = input
	if m.signInErr != nil {
		return nil, m.signInErr
	}
	if input.Username != "alice" || input.Password != "SecurePass123!" {
		return nil, core.ErrInvalidCredentials
	}
	return alice(), nil
}

func (m *mockAuthHandler) AuthenticateExternal(ctx context.Context, registrationID string, attributes map[string]any) (*core.Principal, error) {
	m.externalID = registrationID
	m.externalAttrs = attributes
	if m.externalErr != nil {
		return nil, m.externalErr
	}
	return core.FromAccount(&core.AccountDTO{Username: "kakao_1234567890", Provider: registrationID}), nil
}

func (m *mockAuthHandler) UpdateProfile(ctx context.Context, principal *core.Principal, input core.ProfileInput) (*core.Principal, error) {
	m.updatePrincipal = principal
	m.updateInput = input
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	updated := *principal
	if input.Nickname != nil {
		updated.Nickname = *input.Nickname
	}
	return &updated, nil
}

// mockLogin is a test fake implementing core.ExternalLogin.
type mockLogin struct {
	code     string
	attrs    map[string]any
	fetchErr error
}

func (m *mockLogin) AuthCodeURL(registrationID, state string) (string, error) {
	if registrationID != "kakao" {
		return "", fmt.Errorf("%w: %q", core.ErrUnknownProvider, registrationID)
	}
	return "https://kauth.example/authorize?state=" + url.QueryEscape(state), nil
}

func (m *mockLogin) FetchAttributes(ctx context.Context, registrationID, code string) (map[string]any, error) {
	m.code = code
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.attrs, nil
}

func newTestApp(t *testing.T, auth *mockAuthHandler, login *mockLogin) *fiber.App {
	t.Helper()
	app := fiber.New()
	adapter := New(app, WithLogger(zap.NewNop()), WithStateStore(statestore.NewMemory(0), 0))
	if err := adapter.RegisterRoutes(auth, login, "/api/auth"); err != nil {
		t.Fatalf("RegisterRoutes() error = %v", err)
	}
	return app
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func basic(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("Unmarshal(%s) error = %v", body, err)
	}
}

// Requirement: sign-up returns 201 with the principal and maps service errors to status codes.
func TestHandler_SignUp(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
	}{
		{name: "created", body: `{"username":"alice","password":"SecurePass123!","email":"alice@example.com"}`, wantStatus: http.StatusCreated},
		{name: "invalid json", body: `{"username":`, wantStatus: http.StatusBadRequest},
		{name: "validation error", body: `{"username":"alice"}`, serviceErr: core.ErrPasswordRequired, wantStatus: http.StatusBadRequest},
		{name: "duplicate username", body: `{"username":"alice","password":"SecurePass123!"}`, serviceErr: core.ErrDuplicateUsername, wantStatus: http.StatusConflict},
		{name: "storage failure", body: `{"username":"alice","password":"SecurePass123!"}`, serviceErr: errors.New("db down"), wantStatus: http.StatusInternalServerError},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			auth := &mockAuthHandler{signUpErr: test.serviceErr}
			app := newTestApp(t, auth, &mockLogin{})

			// Act
			resp, err := app.Test(jsonRequest(http.MethodPost, "/api/auth/sign-up", test.body))

			// Assert
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != test.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, test.wantStatus)
			}
			if resp.Header.Get(HeaderRequestID) == "" {
				t.Error("response should carry a request id")
			}
		})
	}
}

func TestHandler_SignUp_InternalErrorIsGeneric(t *testing.T) {
	// Arrange
	auth := &mockAuthHandler{signUpErr: errors.New("pq: connection to 10.0.0.5 refused")}
	app := newTestApp(t, auth, &mockLogin{})

	// Act
	resp, _ := app.Test(jsonRequest(http.MethodPost, "/api/auth/sign-up", `{"username":"a","password":"b"}`))

	// Assert
	var body core.ErrorResponse
	decode(t, resp, &body)
	if body.Error != msgInternal {
		t.Errorf("error = %q, want %q", body.Error, msgInternal)
	}
}

// Requirement: unknown user and wrong password produce identical responses.
func TestHandler_SignIn(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
	}{
		{name: "valid credentials", body: `{"username":"alice","password":"SecurePass123!"}`, wantStatus: http.StatusOK},
		{name: "wrong password", body: `{"username":"alice","password":"nope"}`, wantStatus: http.StatusUnauthorized},
		{name: "unknown user", body: `{"username":"ghost","password":"SecurePass123!"}`, serviceErr: core.ErrUnknownUser, wantStatus: http.StatusUnauthorized},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			auth := &mockAuthHandler{signInErr: test.serviceErr}
			app := newTestApp(t, auth, &mockLogin{})

			// Act
			resp, err := app.Test(jsonRequest(http.MethodPost, "/api/auth/sign-in", test.body))

			// Assert
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != test.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, test.wantStatus)
			}
			if test.wantStatus == http.StatusUnauthorized {
				var body core.ErrorResponse
				decode(t, resp, &body)
				if body.Error != msgInvalidCredentials {
					t.Errorf("error = %q, want %q", body.Error, msgInvalidCredentials)
				}
				return
			}
			var p map[string]any
			decode(t, resp, &p)
			if p["username"] != "alice" {
				t.Errorf("username = %v", p["username"])
			}
			if _, leaked := p["password"]; leaked {
				t.Error("response should not include the password")
			}
		})
	}
}

// Requirement: protected routes authenticate each request with Basic credentials.
func TestHandler_Me(t *testing.T) {
	tests := []struct {
		name          string
		authorization string
		wantStatus    int
	}{
		{name: "valid credentials", authorization: basic("alice", "SecurePass123!"), wantStatus: http.StatusOK},
		{name: "wrong password", authorization: basic("alice", "wrong"), wantStatus: http.StatusUnauthorized},
		{name: "missing header", authorization: "", wantStatus: http.StatusUnauthorized},
		{name: "bearer token", authorization: "Bearer abc", wantStatus: http.StatusUnauthorized},
		{name: "not base64", authorization: "Basic !!!", wantStatus: http.StatusUnauthorized},
		{name: "no colon", authorization: "Basic " + base64.StdEncoding.EncodeToString([]byte("alice")), wantStatus: http.StatusUnauthorized},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			app := newTestApp(t, &mockAuthHandler{}, &mockLogin{})
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if test.authorization != "" {
				req.Header.Set("Authorization", test.authorization)
			}

			// Act
			resp, err := app.Test(req)

			// Assert
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != test.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, test.wantStatus)
			}
			if test.wantStatus == http.StatusUnauthorized && resp.Header.Get("WWW-Authenticate") == "" {
				t.Error("401 should carry a WWW-Authenticate challenge")
			}
		})
	}
}

func TestHandler_UpdateMe(t *testing.T) {
	// Arrange
	auth := &mockAuthHandler{}
	app := newTestApp(t, auth, &mockLogin{})
	req := jsonRequest(http.MethodPatch, "/api/auth/me", `{"nickname":"Ally"}`)
	req.Header.Set("Authorization", basic("alice", "SecurePass123!"))

	// Act
	resp, err := app.Test(req)

	// Assert
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if auth.updatePrincipal == nil || auth.updatePrincipal.Username != "alice" {
		t.Errorf("UpdateProfile principal = %+v, want alice", auth.updatePrincipal)
	}
	if auth.updateInput.Nickname == nil || *auth.updateInput.Nickname != "Ally" {
		t.Errorf("UpdateProfile input = %+v", auth.updateInput)
	}
	var p map[string]any
	decode(t, resp, &p)
	if p["nickname"] != "Ally" {
		t.Errorf("nickname = %v", p["nickname"])
	}
}

// startLogin runs the redirect leg and returns the issued state cookie.
func startLogin(t *testing.T, app *fiber.App, registrationID string) (*http.Cookie, *url.URL) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/auth/oauth2/authorization/"+registrationID, nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("authorize status = %d, want 302", resp.StatusCode)
	}
	location, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatalf("Location parse error = %v", err)
	}
	for _, c := range resp.Cookies() {
		if c.Name == stateCookie {
			return c, location
		}
	}
	t.Fatal("authorize should set the state cookie")
	return nil, nil
}

func callback(registrationID, state, code string, cookie *http.Cookie) *http.Request {
	q := url.Values{}
	if state != "" {
		q.Set("state", state)
	}
	if code != "" {
		q.Set("code", code)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/auth/login/oauth2/code/"+registrationID+"?"+q.Encode(), nil)
	if cookie != nil {
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}
	return req
}

// Requirement: the provider callback authenticates the attributes fetched for the code.
func TestHandler_OAuth2Flow(t *testing.T) {
	// Arrange
	auth := &mockAuthHandler{}
	login := &mockLogin{attrs: map[string]any{"id": float64(1234567890)}}
	app := newTestApp(t, auth, login)
	cookie, location := startLogin(t, app, "kakao")
	state := location.Query().Get("state")

	// Act
	resp, err := app.Test(callback("kakao", state, "auth-code", cookie))

	// Assert
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("callback status = %d, want 200", resp.StatusCode)
	}
	if state != cookie.Value {
		t.Errorf("cookie state %q should match redirect state %q", cookie.Value, state)
	}
	if login.code != "auth-code" || auth.externalID != "kakao" || auth.externalAttrs["id"] != float64(1234567890) {
		t.Errorf("code = %q, provider = %q, attrs = %v", login.code, auth.externalID, auth.externalAttrs)
	}
	var p map[string]any
	decode(t, resp, &p)
	if p["username"] != "kakao_1234567890" || p["provenance"] != "EXTERNAL:kakao" {
		t.Errorf("principal = %v", p)
	}

	// A state is single use.
	replay, _ := app.Test(callback("kakao", state, "auth-code", cookie))
	if replay.StatusCode != http.StatusUnauthorized {
		t.Errorf("replayed callback status = %d, want 401", replay.StatusCode)
	}
}

func TestHandler_OAuth2Callback_Failures(t *testing.T) {
	tests := []struct {
		name       string
		build      func(state string, cookie *http.Cookie) *http.Request
		login      *mockLogin
		auth       *mockAuthHandler
		wantStatus int
	}{
		{
			name:       "missing cookie",
			build:      func(state string, _ *http.Cookie) *http.Request { return callback("kakao", state, "c", nil) },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "forged state",
			build:      func(_ string, cookie *http.Cookie) *http.Request { return callback("kakao", "forged", "c", cookie) },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "state issued for another provider",
			build:      func(state string, cookie *http.Cookie) *http.Request { return callback("naver", state, "c", cookie) },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing code",
			build:      func(state string, cookie *http.Cookie) *http.Request { return callback("kakao", state, "", cookie) },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "provider denied",
			build: func(state string, cookie *http.Cookie) *http.Request {
				req := callback("kakao", state, "c", cookie)
				q := req.URL.Query()
				q.Set("error", "access_denied")
				req.URL.RawQuery = q.Encode()
				return req
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "provider unavailable",
			build:      func(state string, cookie *http.Cookie) *http.Request { return callback("kakao", state, "c", cookie) },
			login:      &mockLogin{fetchErr: fmt.Errorf("%w: timeout", core.ErrProviderUnavailable)},
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "malformed payload",
			build:      func(state string, cookie *http.Cookie) *http.Request { return callback("kakao", state, "c", cookie) },
			auth:       &mockAuthHandler{externalErr: fmt.Errorf("%w: id is missing", core.ErrMalformedProviderPayload)},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Arrange
			login := test.login
			if login == nil {
				login = &mockLogin{attrs: map[string]any{}}
			}
			auth := test.auth
			if auth == nil {
				auth = &mockAuthHandler{}
			}
			app := newTestApp(t, auth, login)
			cookie, location := startLogin(t, app, "kakao")

			// Act
			resp, err := app.Test(test.build(location.Query().Get("state"), cookie))

			// Assert
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != test.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, test.wantStatus)
			}
			if test.wantStatus == http.StatusUnauthorized {
				var body core.ErrorResponse
				decode(t, resp, &body)
				if body.Error != msgExternalLogin {
					t.Errorf("error = %q, want %q", body.Error, msgExternalLogin)
				}
			}
		})
	}
}

func TestHandler_Authorize_UnknownProvider(t *testing.T) {
	app := newTestApp(t, &mockAuthHandler{}, &mockLogin{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/auth/oauth2/authorization/naver", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestHandler_RequestIDPropagation(t *testing.T) {
	app := newTestApp(t, &mockAuthHandler{}, &mockLogin{})
	req := jsonRequest(http.MethodPost, "/api/auth/sign-in", `{"username":"alice","password":"SecurePass123!"}`)
	req.Header.Set(HeaderRequestID, "req-42")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if got := resp.Header.Get(HeaderRequestID); got != "req-42" {
		t.Errorf("%s = %q, want req-42", HeaderRequestID, got)
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "invalid credentials", err: core.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized},
		{name: "unknown user", err: core.ErrUnknownUser, wantStatus: http.StatusUnauthorized},
		{name: "wrapped duplicate", err: fmt.Errorf("create: %w", core.ErrDuplicateUsername), wantStatus: http.StatusConflict},
		{name: "invalid email", err: core.ErrInvalidEmail, wantStatus: http.StatusBadRequest},
		{name: "unknown provider", err: core.ErrUnknownProvider, wantStatus: http.StatusUnauthorized},
		{name: "not implemented", err: core.ErrNotImplemented, wantStatus: http.StatusNotImplemented},
		{name: "unsupported scheme leaks nothing", err: core.ErrUnsupportedEncodingScheme, wantStatus: http.StatusInternalServerError},
		{name: "unknown", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			if status, _ := mapError(test.err); status != test.wantStatus {
				t.Errorf("mapError() = %d, want %d", status, test.wantStatus)
			}
		})
	}
}

func TestParseBasicAuth(t *testing.T) {
	u, p, err := parseBasicAuth(basic("alice", "pa:ss"))
	if err != nil || u != "alice" || p != "pa:ss" {
		t.Errorf("parseBasicAuth() = %q, %q, %v", u, p, err)
	}
	if _, _, err := parseBasicAuth("basic " + base64.StdEncoding.EncodeToString([]byte("a:b"))); err != nil {
		t.Errorf("scheme should be case-insensitive, got %v", err)
	}
}

// Requirement: application routes can reuse the Basic-auth middleware.
func TestAdapter_Protected(t *testing.T) {
	// Arrange
	app := fiber.New()
	adapter := New(app, WithLogger(zap.NewNop()))
	app.Get("/board", adapter.Protected(&mockAuthHandler{}), func(c fiber.Ctx) error {
		return c.SendString(PrincipalFrom(c).Username)
	})

	tests := []struct {
		name       string
		auth       string
		wantStatus int
		wantBody   string
	}{
		{name: "valid credentials", auth: basic("alice", "SecurePass123!"), wantStatus: http.StatusOK, wantBody: "alice"},
		{name: "wrong password", auth: basic("alice", "nope"), wantStatus: http.StatusUnauthorized},
		{name: "no header", wantStatus: http.StatusUnauthorized},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/board", nil)
			if test.auth != "" {
				req.Header.Set("Authorization", test.auth)
			}

			// Act
			resp, err := app.Test(req)

			// Assert
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != test.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, test.wantStatus)
			}
			if test.wantBody != "" {
				body, _ := io.ReadAll(resp.Body)
				if string(body) != test.wantBody {
					t.Errorf("body = %q, want %q", body, test.wantBody)
				}
			}
		})
	}
}
