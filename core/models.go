package core

import "time"

// AccountDTO is one stored user identity.
//
// Username doubles as the local login id and, for provisioned accounts, as the
// provider-derived synthetic id ("kakao_1234567890").
type AccountDTO struct {
	Username string  `json:"username"`
	Password string  `json:"-"` // encoded, never expose in JSON
	Email    string  `json:"email"`
	Nickname string  `json:"nickname"`
	Memo     *string `json:"memo,omitempty"`

	// Provider is the registration id of the identity provider that
	// provisioned the account. Empty for locally registered accounts.
	Provider string `json:"provider,omitempty"`

	AuditFields
}

// NewAccount carries the data for AccountDirectory.Create.
type NewAccount struct {
	Username  string
	Password  string // already encoded
	Email     string
	Nickname  string
	Memo      *string
	Provider  string
	CreatedBy string
}

// AuditFields holds the created/modified metadata stamped on persisted records.
type AuditFields struct {
	CreatedAt  time.Time `json:"createdAt"`
	CreatedBy  string    `json:"createdBy"`
	ModifiedAt time.Time `json:"modifiedAt"`
	ModifiedBy string    `json:"modifiedBy"`
}
