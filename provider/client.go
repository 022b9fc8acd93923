package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/lborres/boardauth/core"
)

var ErrInvalidRegistration = errors.New("invalid provider registration")

// maxUserInfoBytes caps the user-info body read from a provider.
const maxUserInfoBytes = 1 << 20

// Registration describes one OAuth2 identity provider.
type Registration struct {
	ID           string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	Endpoint     oauth2.Endpoint
	UserInfoURL  string
	Parser       core.AttributeParser
}

func (r Registration) Validate() error {
	switch {
	case r.ID == "":
		return fmt.Errorf("%w: empty registration id", ErrInvalidRegistration)
	case r.ClientID == "":
		return fmt.Errorf("%w: %s: client id is required", ErrInvalidRegistration, r.ID)
	case r.Endpoint.AuthURL == "" || r.Endpoint.TokenURL == "":
		return fmt.Errorf("%w: %s: auth and token urls are required", ErrInvalidRegistration, r.ID)
	case r.UserInfoURL == "":
		return fmt.Errorf("%w: %s: user-info url is required", ErrInvalidRegistration, r.ID)
	case r.Parser == nil:
		return fmt.Errorf("%w: %s: parser is required", ErrInvalidRegistration, r.ID)
	}
	return nil
}

// Client runs the authorization-code flow against one provider.
type Client struct {
	id          string
	config      *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

func newClient(reg Registration, hc *http.Client) *Client {
	return &Client{
		id: reg.ID,
		config: &oauth2.Config{
			ClientID:     reg.ClientID,
			ClientSecret: reg.ClientSecret,
			RedirectURL:  reg.RedirectURL,
			Scopes:       reg.Scopes,
			Endpoint:     reg.Endpoint,
		},
		userInfoURL: reg.UserInfoURL,
		httpClient:  hc,
	}
}

func (c *Client) AuthCodeURL(state string) string {
	return c.config.AuthCodeURL(state)
}

// FetchAttributes exchanges code for a token and returns the decoded
// user-info document. Numbers are kept as json.Number so large ids survive.
func (c *Client) FetchAttributes(ctx context.Context, code string) (map[string]any, error) {
	if c.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	}

	token, err := c.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: token exchange: %v", core.ErrProviderUnavailable, c.id, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", core.ErrProviderUnavailable, c.id, err)
	}

	resp, err := c.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: user-info: %v", core.ErrProviderUnavailable, c.id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s: user-info returned %d", core.ErrProviderUnavailable, c.id, resp.StatusCode)
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxUserInfoBytes))
	dec.UseNumber()

	var attrs map[string]any
	if err := dec.Decode(&attrs); err != nil {
		return nil, fmt.Errorf("%w: %s: user-info body: %v", core.ErrMalformedProviderPayload, c.id, err)
	}
	if attrs == nil {
		return nil, fmt.Errorf("%w: %s: user-info body is null", core.ErrMalformedProviderPayload, c.id)
	}
	return attrs, nil
}
