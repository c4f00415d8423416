package repository

import (
	"context"
	"errors"

	"github.com/klovaare/authgate/internal/domain/entity"
)

var (
	// ErrNotFound is returned when a user or access does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateAccess is returned when an insert hits the (user, application)
	// uniqueness safeguard, e.g. two concurrent registrations for the same pair.
	ErrDuplicateAccess = errors.New("access already exists")
)

// AccessRepository defines the database operations the authentication core
// depends on. All state lives behind this interface; the core holds nothing
// between calls.
type AccessRepository interface {
	FindUserByEmail(ctx context.Context, email string) (*entity.User, error)
	// GetOrCreateUser resolves the user for email, creating it on first use.
	// Idempotent: concurrent calls for the same email yield the same row.
	GetOrCreateUser(ctx context.Context, email string) (*entity.User, error)
	FindAccess(ctx context.Context, userID, application string) (*entity.Access, error)
	AccessExists(ctx context.Context, userID, application string) (bool, error)
	InsertAccess(ctx context.Context, userID, application, credentialHash string) (string, error)
	UpdateAccessHash(ctx context.Context, email, application, newHash string) error
}
