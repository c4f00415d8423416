package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/klovaare/authgate/internal/domain/entity"
	"github.com/klovaare/authgate/internal/domain/repository"
)

// DB is the subset of pgxpool.Pool the repository needs. pgxmock satisfies it
// as well, so repository tests run without a database.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type AccessRepository struct {
	db DB
}

func NewAccessRepository(db DB) *AccessRepository {
	return &AccessRepository{db: db}
}

var _ repository.AccessRepository = (*AccessRepository)(nil)

func (r *AccessRepository) FindUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	u := &entity.User{}

	row := r.db.QueryRow(ctx, `
		SELECT id, email, created_at, updated_at
		FROM users
		WHERE email = $1
	`, email)

	if err := row.Scan(&u.ID, &u.Email, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return u, nil
}

// GetOrCreateUser resolves email to a user row, inserting on first sight. The
// insert upserts on the email uniqueness constraint, so two concurrent
// registrations for a brand-new email converge on a single row.
func (r *AccessRepository) GetOrCreateUser(ctx context.Context, email string) (*entity.User, error) {
	u, err := r.FindUserByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	u = &entity.User{}
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (email)
		VALUES ($1)
		ON CONFLICT (email) DO UPDATE SET updated_at = now()
		RETURNING id, email, created_at, updated_at
	`, email)

	if err := row.Scan(&u.ID, &u.Email, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to get or create user: %w", err)
	}

	return u, nil
}

func (r *AccessRepository) FindAccess(ctx context.Context, userID, application string) (*entity.Access, error) {
	a := &entity.Access{}

	row := r.db.QueryRow(ctx, `
		SELECT id, user_id, application, credential_hash, created_at, updated_at
		FROM accesses
		WHERE user_id = $1 AND application = $2
	`, userID, application)

	if err := row.Scan(&a.ID, &a.UserID, &a.Application, &a.CredentialHash,
		&a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return a, nil
}

func (r *AccessRepository) AccessExists(ctx context.Context, userID, application string) (bool, error) {
	var exists bool
	row := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM accesses WHERE user_id = $1 AND application = $2
		)
	`, userID, application)
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *AccessRepository) InsertAccess(ctx context.Context, userID, application, credentialHash string) (string, error) {
	var id string
	row := r.db.QueryRow(ctx, `
		INSERT INTO accesses (user_id, application, credential_hash)
		VALUES ($1, $2, $3)
		RETURNING id
	`, userID, application, credentialHash)

	if err := row.Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return "", repository.ErrDuplicateAccess
		}
		return "", err
	}
	return id, nil
}

func (r *AccessRepository) UpdateAccessHash(ctx context.Context, email, application, newHash string) error {
	res, err := r.db.Exec(ctx, `
		UPDATE accesses
		SET credential_hash = $3, updated_at = now()
		FROM users
		WHERE accesses.user_id = users.id
		  AND users.email = $1
		  AND accesses.application = $2
	`, email, application, newHash)
	if err != nil {
		return err
	}

	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}
