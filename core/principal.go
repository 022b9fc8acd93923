package core

import (
	"encoding/json"
	"strings"
)

// RoleType is a named authority attached to a principal.
type RoleType int

const (
	RoleUser RoleType = iota + 1
)

var roleNames = map[RoleType]string{
	RoleUser: "ROLE_USER",
}

// Name returns the authority string, e.g. "ROLE_USER".
func (r RoleType) Name() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "ROLE_UNKNOWN"
}

func (r RoleType) String() string { return r.Name() }

func (r RoleType) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Name())
}

// defaultRoles is attached to every account. There is no per-account role
// assignment yet.
var defaultRoles = []RoleType{RoleUser}

type ProvenanceKind int

const (
	ProvenanceLocal ProvenanceKind = iota
	ProvenanceExternal
)

// Provenance records how the account behind a principal was established.
type Provenance struct {
	Kind       ProvenanceKind
	ProviderID string
}

// String renders "LOCAL" or "EXTERNAL:<providerId>".
func (p Provenance) String() string {
	if p.Kind == ProvenanceExternal {
		return "EXTERNAL:" + p.ProviderID
	}
	return "LOCAL"
}

func (p Provenance) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// Principal is the canonical identity of an authenticated request.
//
// It is rebuilt from the stored account on every authentication event and is
// never cached across events.
type Principal struct {
	Username    string     `json:"username"`
	Password    string     `json:"-"` // encoded, carried for credential checks only
	Authorities []RoleType `json:"authorities"`
	Email       string     `json:"email"`
	Nickname    string     `json:"nickname"`
	Memo        *string    `json:"memo,omitempty"`
	Provenance  Provenance `json:"provenance"`
}

// FromAccount builds a Principal from a stored account.
//
// Pure and deterministic. A nil dto is a programming error.
func FromAccount(dto *AccountDTO) *Principal {
	if dto == nil {
		panic("core: FromAccount called with nil account")
	}

	authorities := make([]RoleType, len(defaultRoles))
	copy(authorities, defaultRoles)

	provenance := Provenance{Kind: ProvenanceLocal}
	if dto.Provider != "" {
		provenance = Provenance{Kind: ProvenanceExternal, ProviderID: dto.Provider}
	}

	return &Principal{
		Username:    dto.Username,
		Password:    dto.Password,
		Authorities: authorities,
		Email:       dto.Email,
		Nickname:    dto.Nickname,
		Memo:        dto.Memo,
		Provenance:  provenance,
	}
}

// HasAuthority reports whether the principal holds role.
func (p *Principal) HasAuthority(role RoleType) bool {
	for _, r := range p.Authorities {
		if r == role {
			return true
		}
	}
	return false
}

// AuthorityNames returns the authority strings in attachment order.
func (p *Principal) AuthorityNames() []string {
	names := make([]string, 0, len(p.Authorities))
	for _, r := range p.Authorities {
		names = append(names, r.Name())
	}
	return names
}

// IsExternal reports whether the account was provisioned by an identity provider.
func (p *Principal) IsExternal() bool {
	return p.Provenance.Kind == ProvenanceExternal
}

// ToAccount converts the principal back into the account fields it was built from.
// Audit metadata is not carried by a principal and is left zero.
func (p *Principal) ToAccount() *AccountDTO {
	dto := &AccountDTO{
		Username: p.Username,
		Password: p.Password,
		Email:    p.Email,
		Nickname: p.Nickname,
		Memo:     p.Memo,
	}
	if p.IsExternal() {
		dto.Provider = p.Provenance.ProviderID
	}
	return dto
}

// SyntheticUsername derives the internal account key for a provider-scoped user id.
func SyntheticUsername(registrationID, providerID string) string {
	return registrationID + "_" + providerID
}

// MaskEmail masks an email for logging (first 2 chars + @domain).
func MaskEmail(email string) string {
	if len(email) < 3 {
		return "***"
	}
	at := strings.IndexByte(email, '@')
	if at < 2 {
		return email[:2] + "***"
	}
	return email[:2] + "***" + email[at:]
}
