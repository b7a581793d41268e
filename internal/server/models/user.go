// Package models defines server-side data models shared by the auth service,
// its storage collaborators and the transport layer.
package models

import "time"

// User is a persisted account. The auth core only relies on ID, Email,
// PasswordHash and EmailVerified; the remaining fields are carried along.
type User struct {
	ID            string
	FirstName     string
	LastName      string
	Email         string
	PasswordHash  string
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PublicUser is the externally visible projection of User. It has no
// password hash field, so it cannot leak one.
type PublicUser struct {
	ID            string    `json:"id"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Public returns the projection of u without credentials.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// NewUser carries sign-up input. Password is plaintext and never stored.
type NewUser struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// UserUpdate is a partial update; nil fields are left untouched.
type UserUpdate struct {
	FirstName     *string
	LastName      *string
	PasswordHash  *string
	EmailVerified *bool
}

// Apply copies the set fields of upd onto u.
func (upd UserUpdate) Apply(u *User) {
	if upd.FirstName != nil {
		u.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		u.LastName = *upd.LastName
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.EmailVerified != nil {
		u.EmailVerified = *upd.EmailVerified
	}
}
