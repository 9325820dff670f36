// Package models holds the domain values exchanged between the
// authentication engine, its store and its transports.
package models

import "time"

type UserStatus string

const (
	StatusActive   UserStatus = "active"
	StatusInactive UserStatus = "inactive"
)

func (s UserStatus) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

type UserType string

const (
	TypeAdmin UserType = "admin"
	TypeUser  UserType = "user"
)

func (t UserType) Valid() bool {
	return t == TypeAdmin || t == TypeUser
}

// User is an identity record. Password always holds the "<ivHex>:<cipherHex>"
// form produced by cryptox.Cipher, never plaintext. ID is zero until the
// store assigns it.
type User struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	Status    UserStatus `json:"status"`
	Type      UserType   `json:"type"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	CreatedBy string     `json:"createdBy"`
	UpdatedBy string     `json:"updatedBy"`
}

// UserUpdate is a partial update; nil fields are left unchanged.
type UserUpdate struct {
	Name     *string
	Email    *string
	Password *string
	Status   *UserStatus
}

// Empty reports whether the update carries no fields.
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.Password == nil && u.Status == nil
}

// TokenClaims is the caller-visible payload of an issued token.
type TokenClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type LoginResult struct {
	User  *User
	Token string
}

// Registration is a register request. Password is plaintext and is encrypted
// by the engine before anything is persisted. Empty Status, Type, CreatedBy
// and UpdatedBy take their defaults.
type Registration struct {
	Name      string
	Email     string
	Password  string
	Status    UserStatus
	Type      UserType
	CreatedBy string
	UpdatedBy string
}
