package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmanager/internal/apperr"
	"taskmanager/internal/models"
	"taskmanager/internal/secure"
)

type fakeDirectory struct {
	byID    map[int64]models.User
	byEmail map[string]models.User
}

func (f *fakeDirectory) UserByID(_ context.Context, id int64, scope models.Scope) (models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return models.User{}, apperr.ErrNotFound
	}
	if scope == models.ScopeActive && !u.IsActive() {
		return models.User{}, apperr.ErrNotFound
	}
	if scope == models.ScopeDeleted && u.IsActive() {
		return models.User{}, apperr.ErrNotFound
	}
	return u, nil
}

func (f *fakeDirectory) UserByEmail(_ context.Context, email string) (models.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return models.User{}, apperr.ErrNotFound
	}
	return u, nil
}

func newTestService() (*Service, *fakeDirectory) {
	hasher := secure.NewHasher("test-secret")
	active := models.User{
		ID: 1, Email: "active@example.com",
		PasswordHash: hasher.Hash("password1"),
		Lifecycle:    models.LifecycleActive,
	}
	deleted := models.User{
		ID: 2, Email: "deleted@example.com",
		PasswordHash: hasher.Hash("password2"),
		Lifecycle:    models.LifecycleDeleted,
	}

	dir := &fakeDirectory{
		byID:    map[int64]models.User{1: active, 2: deleted},
		byEmail: map[string]models.User{active.Email: active, deleted.Email: deleted},
	}
	return NewService(dir, hasher), dir
}

func TestSignInActiveUser(t *testing.T) {
	svc, _ := newTestService()

	user, result, err := svc.SignIn(context.Background(), "active@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, SignInOK, result)
	assert.Equal(t, int64(1), user.ID)
}

func TestSignInDeletedUser(t *testing.T) {
	svc, _ := newTestService()

	user, result, err := svc.SignIn(context.Background(), "deleted@example.com", "password2")
	require.NoError(t, err)
	assert.Equal(t, SignInRestorable, result)
	assert.Equal(t, int64(2), user.ID)
}

func TestSignInRejections(t *testing.T) {
	svc, _ := newTestService()

	_, result, err := svc.SignIn(context.Background(), "active@example.com", "wrong")
	require.NoError(t, err)
	assert.Equal(t, SignInRejected, result)

	_, result, err = svc.SignIn(context.Background(), "nobody@example.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, SignInRejected, result)
}

func TestResolveActor(t *testing.T) {
	svc, _ := newTestService()

	actor, err := svc.ResolveActor(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, actor.Current)
	assert.Nil(t, actor.Restorable)
	assert.Equal(t, int64(1), actor.Current.ID)

	actor, err = svc.ResolveActor(context.Background(), 2)
	require.NoError(t, err)
	require.NotNil(t, actor.Restorable)
	assert.Nil(t, actor.Current)
	assert.Equal(t, int64(2), actor.Restorable.ID)

	actor, err = svc.ResolveActor(context.Background(), 0)
	require.NoError(t, err)
	assert.Nil(t, actor.Current)
	assert.Nil(t, actor.Restorable)

	actor, err = svc.ResolveActor(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, actor.Current)
	assert.Nil(t, actor.Restorable)
}
