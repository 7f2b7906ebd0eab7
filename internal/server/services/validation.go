package services

import (
	"net/mail"
	"strings"

	"github.com/Eyad010/postfeed/internal/common"
)

// MinPasswordLength is the shortest password accepted on signup and change.
const MinPasswordLength = 6

// MaxPasswordLength is the bcrypt input limit in bytes.
const MaxPasswordLength = 72

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validEmail accepts a bare address; display names are rejected.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func validatePassword(password, confirm string) error {
	if len(password) < MinPasswordLength {
		return common.Errorf(common.ErrorValidation, "Password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return common.Errorf(common.ErrorValidation, "Password must be at most %d bytes", MaxPasswordLength)
	}
	if password != confirm {
		return common.NewError(common.ErrorValidation, "Passwords are not the same!")
	}
	return nil
}

func validateSignup(in SignupInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return common.NewError(common.ErrorValidation, "Please tell us your name!")
	}
	if in.Email == "" {
		return common.NewError(common.ErrorValidation, "Please provide your email")
	}
	if !validEmail(in.Email) {
		return common.NewError(common.ErrorValidation, "Please provide a valid email")
	}
	return validatePassword(in.Password, in.PasswordConfirm)
}
