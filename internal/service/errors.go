package service

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an engine failure.
type Kind string

const (
	KindValidation              Kind = "VALIDATION_ERROR"
	KindUserNotFound            Kind = "USER_NOT_FOUND"
	KindRoleNotFound            Kind = "ROLE_NOT_FOUND"
	KindPermissionNotFound      Kind = "PERMISSION_NOT_FOUND"
	KindAlreadyHasRole          Kind = "USER_ALREADY_HAS_ROLE"
	KindAlreadyGranted          Kind = "PERMISSION_ALREADY_GRANTED"
	KindCannotRemoveLastAdmin   Kind = "CANNOT_REMOVE_LAST_ADMIN"
	KindCannotDisableOwnAccount Kind = "CANNOT_DISABLE_OWN_ACCOUNT"
	KindDatabase                Kind = "DATABASE_ERROR"
)

// Error is the single failure type returned by the authorization engines.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrValidation              = &Error{Kind: KindValidation}
	ErrUserNotFound            = &Error{Kind: KindUserNotFound}
	ErrRoleNotFound            = &Error{Kind: KindRoleNotFound}
	ErrPermissionNotFound      = &Error{Kind: KindPermissionNotFound}
	ErrAlreadyHasRole          = &Error{Kind: KindAlreadyHasRole}
	ErrAlreadyGranted          = &Error{Kind: KindAlreadyGranted}
	ErrCannotRemoveLastAdmin   = &Error{Kind: KindCannotRemoveLastAdmin}
	ErrCannotDisableOwnAccount = &Error{Kind: KindCannotDisableOwnAccount}
	ErrDatabase                = &Error{Kind: KindDatabase}
)

// KindOf returns the kind of err. Anything that is not an *Error is a database failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindDatabase
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// asServiceError passes *Error values through and classifies everything else as
// a database failure with a generic message. The cause stays reachable via Unwrap
// for logging.
func asServiceError(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindDatabase, Message: "database operation failed", Err: err}
}

// requireText trims value and fails with a validation error when it is blank.
func requireText(value, field string) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", newError(KindValidation, "%s is required", field)
	}
	return v, nil
}
