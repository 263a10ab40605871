package models

import "time"

// User captures application-facing fields for an authenticated identity.
// Accounts are owned by an external identity provider; this service only
// reads them and verifies passwords at login.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsStaff      bool      `json:"is_staff"`
	IsSuperuser  bool      `json:"is_superuser"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Privileged reports whether the user may create, modify, or delete
// messages, and read another user's messages via an override token.
func (u User) Privileged() bool {
	return u.IsStaff || u.IsSuperuser
}
