package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/wishlist-backend/pkg/db"
	"github.com/angelmondragon/wishlist-backend/pkg/db/dbtest"
	"github.com/angelmondragon/wishlist-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/wishlist-backend/pkg/errors"
)

type recordedNotice struct {
	userID  uuid.UUID
	login   string
	changed []string
}

type stubNotifier struct {
	notices []recordedNotice
}

func (s *stubNotifier) EnqueueAccountChangeNotice(_ context.Context, _ *gorm.DB, userID uuid.UUID, _ string, login string, changed []string) error {
	s.notices = append(s.notices, recordedNotice{userID: userID, login: login, changed: changed})
	return nil
}

func newTestService(t *testing.T) (Service, *Repository, *stubNotifier) {
	t.Helper()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	notifier := &stubNotifier{}
	svc, err := NewService(ServiceParams{Repo: repo, DB: db.FromConn(conn), Notifier: notifier})
	require.NoError(t, err)
	return svc, repo, notifier
}

func mustCreateUser(t *testing.T, repo *Repository, login, email string) *models.User {
	t.Helper()
	user, err := repo.Create(context.Background(), CreateUserDTO{
		Email:        email,
		Login:        login,
		PasswordHash: "hash",
		FirstName:    "First",
		LastName:     "Last",
	})
	require.NoError(t, err)
	return user
}

func TestUpdateProfileRenamesLogin(t *testing.T) {
	svc, repo, notifier := newTestService(t)
	user := mustCreateUser(t, repo, "alice", "alice@example.com")

	access := true
	out, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{
		Login:     " alice2 ",
		Email:     "ALICE@example.com",
		FirstName: "First",
		LastName:  "Last",
		Access:    &access,
	})
	require.NoError(t, err)
	assert.Equal(t, "alice2", out.Login)
	assert.Equal(t, "alice@example.com", out.Email)
	assert.True(t, out.Access)

	require.Len(t, notifier.notices, 1)
	assert.Equal(t, []string{"login", "access"}, notifier.notices[0].changed)
	assert.Equal(t, "alice2", notifier.notices[0].login)
}

func TestUpdateProfileRejectsTakenLoginAndEmail(t *testing.T) {
	svc, repo, notifier := newTestService(t)
	user := mustCreateUser(t, repo, "alice", "alice@example.com")
	mustCreateUser(t, repo, "bob", "bob@example.com")

	_, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{
		Login:     "bob",
		Email:     "bob@example.com",
		FirstName: "First",
		LastName:  "Last",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "login")
	assert.Contains(t, details, "email")
	assert.Empty(t, notifier.notices)

	reloaded, err := repo.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", reloaded.Login)
}

func TestUpdateProfileKeepsOwnValues(t *testing.T) {
	svc, repo, notifier := newTestService(t)
	user := mustCreateUser(t, repo, "alice", "alice@example.com")

	_, err := svc.UpdateProfile(context.Background(), user.ID, UpdateProfileInput{
		Login:     "alice",
		Email:     "alice@example.com",
		FirstName: "First",
		LastName:  "Last",
	})
	require.NoError(t, err)
	require.Len(t, notifier.notices, 1)
	assert.Empty(t, notifier.notices[0].changed)
}

func TestProfileNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Profile(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
