package kakao

import (
	"golang.org/x/oauth2"

	"github.com/lborres/boardauth/core"
	"github.com/lborres/boardauth/provider"
)

// RegistrationID is the conventional registration id for Kakao.
const RegistrationID = "kakao"

const (
	AuthURL     = "https://kauth.kakao.com/oauth/authorize"
	TokenURL    = "https://kauth.kakao.com/oauth/token"
	UserInfoURL = "https://kapi.kakao.com/v2/user/me"
)

// Endpoint is Kakao's OAuth2 endpoint. Kakao expects client credentials in
// the form body (client_secret_post).
var Endpoint = oauth2.Endpoint{
	AuthURL:   AuthURL,
	TokenURL:  TokenURL,
	AuthStyle: oauth2.AuthStyleInParams,
}

// Parser implements core.AttributeParser for the kakao/v2 payload.
type Parser struct{}

var _ core.AttributeParser = Parser{}

func (Parser) SchemaVersion() string { return SchemaVersion }

func (Parser) Parse(attrs map[string]any) (core.ProviderProfile, error) {
	r, err := Parse(attrs)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Registration returns a Kakao provider registration with the standard
// endpoints and the kakao/v2 parser.
func Registration(clientID, clientSecret, redirectURL string, scopes ...string) provider.Registration {
	if len(scopes) == 0 {
		scopes = []string{"profile_nickname", "account_email"}
	}
	return provider.Registration{
		ID:           RegistrationID,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       scopes,
		Endpoint:     Endpoint,
		UserInfoURL:  UserInfoURL,
		Parser:       Parser{},
	}
}
