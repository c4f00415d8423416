package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klovaare/authgate/internal/domain/entity"
	"github.com/klovaare/authgate/internal/domain/repository"
)

// fakeRepo is an in-memory AccessRepository with call counting and error
// injection, so tests can assert how many round-trips each path performs.
type fakeRepo struct {
	users    map[string]*entity.User   // keyed by email
	accesses map[string]*entity.Access // keyed by userID + "/" + application
	nextID   int

	findUserErr   error
	findAccessErr error
	insertErr     error
	updateErr     error

	findUserCalls   int
	findAccessCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:    make(map[string]*entity.User),
		accesses: make(map[string]*entity.Access),
	}
}

func (r *fakeRepo) accessKey(userID, application string) string {
	return userID + "/" + application
}

func (r *fakeRepo) FindUserByEmail(_ context.Context, email string) (*entity.User, error) {
	r.findUserCalls++
	if r.findUserErr != nil {
		return nil, r.findUserErr
	}
	u, ok := r.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (r *fakeRepo) GetOrCreateUser(ctx context.Context, email string) (*entity.User, error) {
	if u, ok := r.users[email]; ok {
		return u, nil
	}
	r.nextID++
	u := &entity.User{ID: "user-" + strconv.Itoa(r.nextID), Email: email}
	r.users[email] = u
	return u, nil
}

func (r *fakeRepo) FindAccess(_ context.Context, userID, application string) (*entity.Access, error) {
	r.findAccessCalls++
	if r.findAccessErr != nil {
		return nil, r.findAccessErr
	}
	a, ok := r.accesses[r.accessKey(userID, application)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return a, nil
}

func (r *fakeRepo) AccessExists(ctx context.Context, userID, application string) (bool, error) {
	_, ok := r.accesses[r.accessKey(userID, application)]
	return ok, nil
}

func (r *fakeRepo) InsertAccess(_ context.Context, userID, application, hash string) (string, error) {
	if r.insertErr != nil {
		return "", r.insertErr
	}
	key := r.accessKey(userID, application)
	if _, ok := r.accesses[key]; ok {
		return "", repository.ErrDuplicateAccess
	}
	r.nextID++
	id := "access-" + strconv.Itoa(r.nextID)
	r.accesses[key] = &entity.Access{ID: id, UserID: userID, Application: application, CredentialHash: hash}
	return id, nil
}

func (r *fakeRepo) UpdateAccessHash(_ context.Context, email, application, newHash string) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	u, ok := r.users[email]
	if !ok {
		return repository.ErrNotFound
	}
	a, ok := r.accesses[r.accessKey(u.ID, application)]
	if !ok {
		return repository.ErrNotFound
	}
	a.CredentialHash = newHash
	return nil
}

// countingHasher is a cheap stand-in for Argon2 that tracks how many
// hashing-cost operations a code path performs.
type countingHasher struct {
	hashCalls   int
	verifyCalls int
}

func (h *countingHasher) Hash(password string) (string, error) {
	h.hashCalls++
	return "fake$" + password, nil
}

func (h *countingHasher) Verify(password, encoded string) (bool, error) {
	h.verifyCalls++
	return encoded == "fake$"+password, nil
}

// hashCost is the total number of hashing-cost operations performed.
func (h *countingHasher) hashCost() int { return h.hashCalls + h.verifyCalls }

func newTestService() (*Service, *fakeRepo, *countingHasher) {
	repo := newFakeRepo()
	hasher := &countingHasher{}
	logger, _ := test.NewNullLogger()
	return NewService(repo, hasher, logger), repo, hasher
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("first registration returns an access id", func(t *testing.T) {
		svc, _, _ := newTestService()
		id, err := svc.Register(ctx, "a@a.com", "svc", "Abcdef12")
		require.NoError(t, err)
		assert.NotEmpty(t, id)
	})

	t.Run("same email and application conflicts", func(t *testing.T) {
		svc, _, hasher := newTestService()
		_, err := svc.Register(ctx, "a@a.com", "svc", "Abcdef12")
		require.NoError(t, err)

		before := hasher.hashCalls
		_, err = svc.Register(ctx, "a@a.com", "svc", "Abcdef12")
		require.ErrorIs(t, err, ErrAccessExists)

		var appErr *Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "a@a.com", appErr.Email)

		// The conflicting attempt still paid the full hashing cost.
		assert.Equal(t, before+1, hasher.hashCalls)
	})

	t.Run("same email different application succeeds", func(t *testing.T) {
		svc, repo, _ := newTestService()
		_, err := svc.Register(ctx, "a@a.com", "svc", "Abcdef12")
		require.NoError(t, err)
		id, err := svc.Register(ctx, "a@a.com", "other", "Abcdef12")
		require.NoError(t, err)
		assert.NotEmpty(t, id)
		assert.Len(t, repo.users, 1, "both accesses belong to the same user")
	})

	t.Run("policy violation touches neither hasher nor repository", func(t *testing.T) {
		svc, repo, hasher := newTestService()
		_, err := svc.Register(ctx, "a@a.com", "svc", "short")
		require.ErrorIs(t, err, ErrPasswordPolicy)
		assert.Zero(t, hasher.hashCost())
		assert.Empty(t, repo.users)
	})

	t.Run("insert race converts duplicate into conflict", func(t *testing.T) {
		svc, repo, _ := newTestService()
		repo.insertErr = repository.ErrDuplicateAccess
		_, err := svc.Register(ctx, "a@a.com", "svc", "Abcdef12")
		require.ErrorIs(t, err, ErrAccessExists)
	})

	t.Run("repository failure maps to database error", func(t *testing.T) {
		svc, repo, _ := newTestService()
		repo.insertErr = errors.New("connection refused")
		_, err := svc.Register(ctx, "a@a.com", "svc", "Abcdef12")
		require.ErrorIs(t, err, ErrDatabase)
		assert.ErrorContains(t, err, "connection refused")
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	register := func(t *testing.T, svc *Service, email, app, pwd string) {
		t.Helper()
		_, err := svc.Register(ctx, email, app, pwd)
		require.NoError(t, err)
	}

	t.Run("correct credential", func(t *testing.T) {
		svc, _, _ := newTestService()
		register(t, svc, "a@a.com", "svc", "Abcdef12")
		assert.True(t, svc.Authenticate(ctx, "a@a.com", "svc", "Abcdef12"))
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, _, _ := newTestService()
		register(t, svc, "a@a.com", "svc", "Abcdef12")
		assert.False(t, svc.Authenticate(ctx, "a@a.com", "svc", "Wrong1234"))
	})

	t.Run("unknown email is false, not an error", func(t *testing.T) {
		svc, _, _ := newTestService()
		assert.False(t, svc.Authenticate(ctx, "nobody@a.com", "svc", "Abcdef12"))
	})

	t.Run("known email wrong application", func(t *testing.T) {
		svc, _, _ := newTestService()
		register(t, svc, "a@a.com", "svc", "Abcdef12")
		assert.False(t, svc.Authenticate(ctx, "a@a.com", "other", "Abcdef12"))
	})

	t.Run("user lookup failure is suppressed into false", func(t *testing.T) {
		svc, repo, _ := newTestService()
		repo.findUserErr = errors.New("connection refused")
		assert.False(t, svc.Authenticate(ctx, "a@a.com", "svc", "Abcdef12"))
	})
}

// Every authenticate outcome must perform exactly one hashing-cost operation
// and one access-shaped lookup, so elapsed time does not reveal which branch
// ran.
func TestAuthenticateUniformCost(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name  string
		setup func(svc *Service, repo *fakeRepo)
		email string
	}{
		{
			name: "known email, wrong password",
			setup: func(svc *Service, repo *fakeRepo) {
				_, err := svc.Register(ctx, "a@a.com", "svc", "Abcdef12")
				require.NoError(t, err)
			},
			email: "a@a.com",
		},
		{
			name:  "unknown email",
			setup: func(svc *Service, repo *fakeRepo) {},
			email: "nobody@a.com",
		},
		{
			name: "user lookup error",
			setup: func(svc *Service, repo *fakeRepo) {
				repo.findUserErr = errors.New("down")
			},
			email: "a@a.com",
		},
		{
			name: "known email, unknown application",
			setup: func(svc *Service, repo *fakeRepo) {
				_, err := svc.Register(ctx, "a@a.com", "other", "Abcdef12")
				require.NoError(t, err)
			},
			email: "a@a.com",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo, hasher := newTestService()
			tc.setup(svc, repo)

			costBefore := hasher.hashCost()
			lookupsBefore := repo.findAccessCalls

			ok := svc.Authenticate(ctx, tc.email, "svc", "Wrong1234")

			assert.False(t, ok)
			assert.Equal(t, 1, hasher.hashCost()-costBefore, "exactly one hashing-cost operation")
			assert.Equal(t, 1, repo.findAccessCalls-lookupsBefore, "exactly one access-shaped lookup")
		})
	}
}

func TestRotatePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("wrong old password leaves hash unchanged", func(t *testing.T) {
		svc, repo, _ := newTestService()
		_, err := svc.Register(ctx, "a@a.com", "svc", "Abcdef12")
		require.NoError(t, err)

		user := repo.users["a@a.com"]
		stored := repo.accesses[repo.accessKey(user.ID, "svc")].CredentialHash

		err = svc.RotatePassword(ctx, "a@a.com", "svc", "Wrong1234", "Newpass12")
		require.ErrorIs(t, err, ErrAccessNotFound)
		assert.Equal(t, stored, repo.accesses[repo.accessKey(user.ID, "svc")].CredentialHash)
	})

	t.Run("correct old password swaps authenticate outcomes", func(t *testing.T) {
		svc, _, _ := newTestService()
		_, err := svc.Register(ctx, "a@a.com", "svc", "Abcdef12")
		require.NoError(t, err)

		require.NoError(t, svc.RotatePassword(ctx, "a@a.com", "svc", "Abcdef12", "Newpass12"))

		assert.False(t, svc.Authenticate(ctx, "a@a.com", "svc", "Abcdef12"), "old password no longer valid")
		assert.True(t, svc.Authenticate(ctx, "a@a.com", "svc", "Newpass12"), "new password valid")
	})

	t.Run("invalid new password rejected before authentication", func(t *testing.T) {
		svc, _, hasher := newTestService()
		_, err := svc.Register(ctx, "a@a.com", "svc", "Abcdef12")
		require.NoError(t, err)

		before := hasher.hashCost()
		err = svc.RotatePassword(ctx, "a@a.com", "svc", "Abcdef12", "weak")
		require.ErrorIs(t, err, ErrPasswordPolicy)
		assert.Equal(t, before, hasher.hashCost())
	})

	t.Run("access vanishing mid-rotation is a no-op success", func(t *testing.T) {
		svc, repo, _ := newTestService()
		_, err := svc.Register(ctx, "a@a.com", "svc", "Abcdef12")
		require.NoError(t, err)

		repo.updateErr = repository.ErrNotFound
		assert.NoError(t, svc.RotatePassword(ctx, "a@a.com", "svc", "Abcdef12", "Newpass12"))
	})

	t.Run("update failure maps to database error", func(t *testing.T) {
		svc, repo, _ := newTestService()
		_, err := svc.Register(ctx, "a@a.com", "svc", "Abcdef12")
		require.NoError(t, err)

		repo.updateErr = errors.New("connection refused")
		err = svc.RotatePassword(ctx, "a@a.com", "svc", "Abcdef12", "Newpass12")
		require.ErrorIs(t, err, ErrDatabase)
	})
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "access already exists: a@a.com", accessExistsError("a@a.com").Error())
	assert.Equal(t, "authentication failed", ErrAccessNotFound.Error())
	assert.Equal(t, "user not found: b@b.com", userNotFoundError("b@b.com").Error())
	assert.Equal(t, "database error: boom", databaseError(fmt.Errorf("boom")).Error())
	assert.ErrorIs(t, databaseError(fmt.Errorf("boom")), ErrDatabase)
}
