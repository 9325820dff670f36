// Package common defines shared constants and errors used across the
// authentication service. Domain failures are reported as *Error values
// tagged with a Kind; callers match them with errors.Is against the
// exported sentinels or inspect the kind with KindOf.
package common

import (
	"errors"
	"fmt"
	"strings"
)

// Repository-level errors.
var ErrorNotFound = errors.New("not found")

// Kind classifies a domain failure.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindDuplicateEmail
	KindInvalidCredentials
	KindAccountInactive
	KindUserNotFound
	KindEmailConflict
	KindTokenMalformed
	KindTokenExpired
	KindTokenInvalid
	KindMissingIdentity
	KindMalformedCiphertext
	KindDecryptionError
	KindStoreUnavailable
	KindValidation
)

var kindNames = map[Kind]string{
	KindUnknown:             "unknown",
	KindDuplicateEmail:      "duplicate email",
	KindInvalidCredentials:  "invalid credentials",
	KindAccountInactive:     "account inactive",
	KindUserNotFound:        "user not found",
	KindEmailConflict:       "email conflict",
	KindTokenMalformed:      "token malformed",
	KindTokenExpired:        "token expired",
	KindTokenInvalid:        "token invalid",
	KindMissingIdentity:     "missing identity",
	KindMalformedCiphertext: "malformed ciphertext",
	KindDecryptionError:     "decryption error",
	KindStoreUnavailable:    "store unavailable",
	KindValidation:          "validation error",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Error is a classified domain error. Email and UserID carry the identity the
// failure refers to when one is known; Err is the underlying cause, if any.
type Error struct {
	Kind   Kind
	Email  string
	UserID int64
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())

	var ctx []string
	if e.Email != "" {
		ctx = append(ctx, "email="+e.Email)
	}
	if e.UserID != 0 {
		ctx = append(ctx, fmt.Sprintf("user_id=%d", e.UserID))
	}
	if len(ctx) > 0 {
		b.WriteString(" (" + strings.Join(ctx, ", ") + ")")
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind. Context fields are
// ignored so the package sentinels match any error of their kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrDuplicateEmail      = &Error{Kind: KindDuplicateEmail}
	ErrInvalidCredentials  = &Error{Kind: KindInvalidCredentials}
	ErrAccountInactive     = &Error{Kind: KindAccountInactive}
	ErrUserNotFound        = &Error{Kind: KindUserNotFound}
	ErrEmailConflict       = &Error{Kind: KindEmailConflict}
	ErrTokenMalformed      = &Error{Kind: KindTokenMalformed}
	ErrTokenExpired        = &Error{Kind: KindTokenExpired}
	ErrTokenInvalid        = &Error{Kind: KindTokenInvalid}
	ErrMissingIdentity     = &Error{Kind: KindMissingIdentity}
	ErrMalformedCiphertext = &Error{Kind: KindMalformedCiphertext}
	ErrDecryptionError     = &Error{Kind: KindDecryptionError}
	ErrStoreUnavailable    = &Error{Kind: KindStoreUnavailable}
	ErrValidation          = &Error{Kind: KindValidation}
)

// NewError returns an *Error of the given kind wrapping cause.
func NewError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Err: cause}
}

// StoreUnavailable wraps a persistence failure. Errors that are already
// classified are returned unchanged.
func StoreUnavailable(cause error) error {
	if cause == nil {
		return nil
	}
	var e *Error
	if errors.As(cause, &e) {
		return cause
	}
	return &Error{Kind: KindStoreUnavailable, Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Detail returns the message of the cause of the first *Error in err's chain,
// without the kind prefix. It falls back to the kind name when there is no
// cause, and to err.Error() for unclassified errors.
func Detail(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Err.Error()
}
