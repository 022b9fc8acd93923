package core

// SignUpInput contains the data needed to register a local account
type SignUpInput struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Email    string  `json:"email"`
	Nickname string  `json:"nickname"`
	Memo     *string `json:"memo,omitempty"`
}

// SignInInput contains the credentials for local authentication
type SignInInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ProfileInput contains the editable profile fields of an account.
// Nil fields are left unchanged.
type ProfileInput struct {
	Email    *string `json:"email,omitempty"`
	Nickname *string `json:"nickname,omitempty"`
	Memo     *string `json:"memo,omitempty"`
}
