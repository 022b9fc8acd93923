package services

import (
	"net/mail"
	"strings"

	"github.com/lborres/boardauth/core"
)

const (
	MaxUsernameLength = 50
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

func validateSignUp(input core.SignUpInput) error {
	if strings.TrimSpace(input.Username) == "" {
		return core.ErrUsernameRequired
	}
	if len(input.Username) > MaxUsernameLength {
		return core.ErrUsernameTooLong
	}
	if input.Password == "" {
		return core.ErrPasswordRequired
	}
	if len(input.Password) < MinPasswordLength {
		return core.ErrPasswordTooShort
	}
	if len(input.Password) > MaxPasswordLength {
		return core.ErrPasswordTooLong
	}
	if input.Email != "" {
		if err := validateEmail(input.Email); err != nil {
			return err
		}
	}
	return nil
}

// validateEmail accepts a bare address only; "Name <a@b.c>" is rejected.
func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return core.ErrInvalidEmail
	}
	return nil
}
