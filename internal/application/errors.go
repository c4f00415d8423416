package application

import "fmt"

// ErrorKind enumerates the closed set of failures the authentication core can
// surface. Transport code switches on the kind to pick a status; nothing else
// ever crosses the boundary.
type ErrorKind int

const (
	KindPasswordPolicy ErrorKind = iota + 1
	KindAccessExists
	KindAccessNotFound
	KindUserNotFound
	KindDatabase
)

// Error is the tagged failure type of the authentication core. Email is set
// for the kinds that carry one, Detail for database failures (kept for logs,
// not shown to end users).
type Error struct {
	Kind   ErrorKind
	Email  string
	Detail string
	cause  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindPasswordPolicy:
		return "password does not meet complexity requirements: at least 8 characters, including uppercase, lowercase, and digit"
	case KindAccessExists:
		return fmt.Sprintf("access already exists: %s", e.Email)
	case KindAccessNotFound:
		return "authentication failed"
	case KindUserNotFound:
		return fmt.Sprintf("user not found: %s", e.Email)
	case KindDatabase:
		return fmt.Sprintf("database error: %s", e.Detail)
	default:
		return "unknown authentication error"
	}
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches on kind so errors.Is(err, ErrAccessExists) works regardless of
// the attached payload.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is checks. Operations return payload-carrying values
// built by the constructors below.
var (
	ErrPasswordPolicy = &Error{Kind: KindPasswordPolicy}
	ErrAccessExists   = &Error{Kind: KindAccessExists}
	ErrAccessNotFound = &Error{Kind: KindAccessNotFound}
	ErrUserNotFound   = &Error{Kind: KindUserNotFound}
	ErrDatabase       = &Error{Kind: KindDatabase}
)

func accessExistsError(email string) *Error {
	return &Error{Kind: KindAccessExists, Email: email}
}

func userNotFoundError(email string) *Error {
	return &Error{Kind: KindUserNotFound, Email: email}
}

func databaseError(err error) *Error {
	return &Error{Kind: KindDatabase, Detail: err.Error(), cause: err}
}
