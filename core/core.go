package core

import (
	"github.com/lborres/boardauth/pkg/crypto"
)

// Providers is everything the library needs from the identity-provider
// registrations: payload parsers for the core and the OAuth2 flow for HTTP.
type Providers interface {
	ParserSource
	ExternalLogin
}

type Config struct {
	Directory AccountDirectory

	HTTP HTTPAdapter

	// Optional config
	Encoder   crypto.CredentialEncoder
	Providers Providers
	BasePath  string
}
