package services

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/lborres/boardauth/core"
)

// Operation ids of the base endpoints. Adapters key their handlers on these.
const (
	OpSignUp         = "signUpWithUsernameAndPassword"
	OpSignIn         = "signInWithUsernameAndPassword"
	OpAuthorize      = "redirectToProvider"
	OpProviderReturn = "completeProviderLogin"
	OpGetMe          = "getCurrentPrincipal"
	OpUpdateMe       = "updateCurrentProfile"
)

// BaseEndpoints returns framework-agnostic endpoint definitions
// for all core authentication endpoints.
//
// Adapters provide the framework-specific handler for each OperationID.
func BaseEndpoints() []core.Endpoint {
	return []core.Endpoint{
		{
			Path:   "/sign-up",
			Method: http.MethodPost,
			Metadata: core.EndpointMetadata{
				OperationID: OpSignUp,
				Description: "Register a local account with username and password",
			},
		},
		{
			Path:   "/sign-in",
			Method: http.MethodPost,
			Metadata: core.EndpointMetadata{
				OperationID: OpSignIn,
				Description: "Sign in with username and password",
			},
		},
		{
			Path:   "/oauth2/authorization/:registrationId",
			Method: http.MethodGet,
			Metadata: core.EndpointMetadata{
				OperationID: OpAuthorize,
				Description: "Redirect to the identity provider's authorization page",
			},
		},
		{
			Path:   "/login/oauth2/code/:registrationId",
			Method: http.MethodGet,
			Metadata: core.EndpointMetadata{
				OperationID: OpProviderReturn,
				Description: "Exchange the authorization code and sign in or provision the account",
			},
		},
		{
			Path:      "/me",
			Method:    http.MethodGet,
			Protected: true,
			Metadata: core.EndpointMetadata{
				OperationID: OpGetMe,
				Description: "Get the authenticated principal",
			},
		},
		{
			Path:      "/me",
			Method:    http.MethodPatch,
			Protected: true,
			Metadata: core.EndpointMetadata{
				OperationID: OpUpdateMe,
				Description: "Update email, nickname or memo of the authenticated account",
			},
		},
	}
}

// EndpointRegistry manages a collection of framework-agnostic endpoints
// and handles conflict detection for duplicate METHOD:PATH combinations.
//
// It starts with the base endpoints and supports registration of
// additional plugin endpoints.
type EndpointRegistry struct {
	endpoints map[string]*core.Endpoint
}

func endpointKey(ep *core.Endpoint) string {
	return fmt.Sprintf("%s:%s", ep.Method, ep.Path)
}

// NewEndpointRegistry creates a registry with all base endpoints pre-registered.
func NewEndpointRegistry() *EndpointRegistry {
	reg := &EndpointRegistry{
		endpoints: make(map[string]*core.Endpoint),
	}
	for _, ep := range BaseEndpoints() {
		ep := ep
		reg.endpoints[endpointKey(&ep)] = &ep
	}
	return reg
}

// RegisterPlugin registers additional endpoints. Either all of them are
// registered or, on any METHOD:PATH conflict, none are.
func (r *EndpointRegistry) RegisterPlugin(endpoints []core.Endpoint) error {
	seen := make(map[string]bool, len(endpoints))
	for i := range endpoints {
		key := endpointKey(&endpoints[i])
		if _, exists := r.endpoints[key]; exists {
			return fmt.Errorf("plugin endpoint conflict: %s %s already registered", endpoints[i].Method, endpoints[i].Path)
		}
		if seen[key] {
			return fmt.Errorf("plugin contains duplicate endpoint: %s %s", endpoints[i].Method, endpoints[i].Path)
		}
		seen[key] = true
	}

	for i := range endpoints {
		ep := endpoints[i]
		r.endpoints[endpointKey(&ep)] = &ep
	}
	return nil
}

// Endpoints returns all registered endpoints ordered by path, then method.
func (r *EndpointRegistry) Endpoints() []*core.Endpoint {
	result := make([]*core.Endpoint, 0, len(r.endpoints))
	for _, ep := range r.endpoints {
		result = append(result, ep)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Path != result[j].Path {
			return result[i].Path < result[j].Path
		}
		return result[i].Method < result[j].Method
	})
	return result
}
