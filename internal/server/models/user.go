// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is an account. Credential fields are never serialized.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Photo string `json:"photo,omitempty"`

	PasswordHash      string     `json:"-"`
	PasswordChangedAt *time.Time `json:"-"`

	// Reset fields; all three are set or cleared together.
	PasswordResetCodeHash  string     `json:"-"`
	PasswordResetExpiresAt *time.Time `json:"-"`
	PasswordResetVerified  bool       `json:"-"`

	CreatedAt time.Time `json:"createdAt"`

	// Posts is populated by profile reads only.
	Posts []*Post `json:"posts,omitempty"`
}

// ChangedPasswordAfter reports whether the password was changed at or after
// the second in which a token was issued.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.Unix() >= issuedAt.Unix()
}

// ResetCodeActive reports whether a reset code is stored and unexpired at now.
func (u *User) ResetCodeActive(now time.Time) bool {
	return u.PasswordResetCodeHash != "" &&
		u.PasswordResetExpiresAt != nil &&
		u.PasswordResetExpiresAt.After(now)
}
