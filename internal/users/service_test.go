package users

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userdesk/internal/models"
	"userdesk/shared/logger"
)

func init() {
	logger.SetGlobalLogger(logger.NewNoOpLogger())
}

// fakeStore is an in-memory Store that counts every access.
type fakeStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]models.User
	calls  int

	failWith error // returned by every call when set
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1, users: map[int64]models.User{}}
}

func (f *fakeStore) enter() error {
	f.calls++
	return f.failWith
}

func (f *fakeStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return nil, err
	}
	for _, u := range f.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeStore) FindByID(_ context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return nil, err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (f *fakeStore) List(context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return nil, err
	}
	var out []models.User
	for _, u := range f.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) Insert(_ context.Context, in models.UserInput) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return nil, err
	}
	for _, u := range f.users {
		if u.Email == in.Email {
			return nil, ErrEmailTaken
		}
	}
	now := time.Now().UTC()
	u := models.User{Root: models.Root{ID: f.nextID, CreatedAt: now, UpdatedAt: now}, Name: in.Name, Email: in.Email}
	f.users[u.ID] = u
	f.nextID++
	return &u, nil
}

func (f *fakeStore) Update(_ context.Context, id int64, patch models.UserPatch) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return nil, err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	u.UpdatedAt = time.Now().UTC()
	f.users[id] = u
	return &u, nil
}

func (f *fakeStore) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(); err != nil {
		return err
	}
	delete(f.users, id)
	return nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

// recordingViews remembers every invalidated key.
type recordingViews struct {
	keys []string
}

func (r *recordingViews) Invalidate(_ context.Context, keys ...string) {
	r.keys = append(r.keys, keys...)
}

var alice = &models.Principal{ID: "google-oauth2|alice", Name: "Alice"}

func newTestService() (*Service, *fakeStore, *recordingViews) {
	store := newFakeStore()
	views := &recordingViews{}
	return NewService(store, views), store, views
}

func strPtr(s string) *string { return &s }

func mustCreate(t *testing.T, svc *Service, name, email string) *models.User {
	t.Helper()
	env, err := svc.Create(context.Background(), alice, models.UserInput{Name: name, Email: email})
	require.NoError(t, err)
	require.True(t, env.Success, env.Message)
	user, ok := env.Data.(*models.User)
	require.True(t, ok)
	return user
}

func TestCreateRoundTrip(t *testing.T) {
	svc, _, views := newTestService()
	ctx := context.Background()

	env, err := svc.Create(ctx, alice, models.UserInput{Name: "Ann", Email: "ann@x.com"})
	require.NoError(t, err)
	assert.True(t, env.Success)
	assert.Equal(t, MsgCreated, env.Message)
	assert.Nil(t, env.Err)
	assert.Equal(t, []string{ViewHome, ViewUsers}, views.keys)

	created := env.Data.(*models.User)
	got, err := svc.GetUser(ctx, alice, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.NotZero(t, got.ID)
	assert.Equal(t, "Ann", got.Name)
	assert.Equal(t, "ann@x.com", got.Email)

	all, err := svc.ListUsers(ctx, alice)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, created.ID, all[0].ID)
}

func TestCreateValidationFailureTouchesNothing(t *testing.T) {
	svc, store, views := newTestService()

	env, err := svc.Create(context.Background(), alice, models.UserInput{Name: "A", Email: "bad"})
	require.NoError(t, err)
	assert.False(t, env.Success)
	assert.Equal(t, MsgValidationFailed, env.Message)
	assert.NotEmpty(t, env.Errors["name"])
	assert.NotEmpty(t, env.Errors["email"])
	assert.ErrorIs(t, env.Err, ErrValidation)
	assert.Zero(t, store.calls)
	assert.Empty(t, views.keys)
}

func TestCreateDuplicateEmail(t *testing.T) {
	svc, store, _ := newTestService()
	mustCreate(t, svc, "Ann", "ann@x.com")

	env, err := svc.Create(context.Background(), alice, models.UserInput{Name: "Another Ann", Email: "ann@x.com"})
	require.NoError(t, err)
	assert.False(t, env.Success)
	assert.Contains(t, env.Message, "already in use")
	assert.Equal(t, []string{MsgEmailInUseAt}, env.Errors["email"])
	assert.ErrorIs(t, env.Err, ErrEmailTaken)
	assert.Equal(t, 1, store.count())
}

// raceStore hides existing rows from FindByEmail, as a concurrent writer would.
type raceStore struct{ *fakeStore }

func (r raceStore) FindByEmail(context.Context, string) (*models.User, error) {
	return nil, ErrNotFound
}

func TestCreateUniqueViolationIsConflict(t *testing.T) {
	store := newFakeStore()
	svc := NewService(raceStore{store}, nil)
	mustCreate(t, svc, "Ann", "ann@x.com")

	env, err := svc.Create(context.Background(), alice, models.UserInput{Name: "Ann Two", Email: "ann@x.com"})
	require.NoError(t, err)
	assert.False(t, env.Success)
	assert.Equal(t, MsgEmailInUse, env.Message)
	assert.Equal(t, 1, store.count())
}

func TestCreateStoreFailureIsEnveloped(t *testing.T) {
	svc, store, views := newTestService()
	store.failWith = errors.New("connection refused")

	env, err := svc.Create(context.Background(), alice, models.UserInput{Name: "Ann", Email: "ann@x.com"})
	require.NoError(t, err)
	assert.False(t, env.Success)
	assert.Equal(t, MsgCreateFailed, env.Message)
	assert.ErrorIs(t, env.Err, ErrStoreFailure)
	assert.Empty(t, views.keys)
}

func TestListUsersOrderedAndEmpty(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	all, err := svc.ListUsers(ctx, alice)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)

	mustCreate(t, svc, "Ann", "ann@x.com")
	mustCreate(t, svc, "Bob", "bob@x.com")
	mustCreate(t, svc, "Cid", "cid@x.com")

	all, err = svc.ListUsers(ctx, alice)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID)
	}
}

func TestReadsRaiseStoreFailures(t *testing.T) {
	svc, store, _ := newTestService()
	store.failWith = errors.New("timeout")

	_, err := svc.ListUsers(context.Background(), alice)
	assert.ErrorIs(t, err, ErrStoreFailure)

	_, err = svc.GetUser(context.Background(), alice, 1)
	assert.ErrorIs(t, err, ErrStoreFailure)
}

func TestGetUserMissingIsAbsent(t *testing.T) {
	svc, _, _ := newTestService()

	user, err := svc.GetUser(context.Background(), alice, 42)
	assert.NoError(t, err)
	assert.Nil(t, user)
}

func TestUpdate(t *testing.T) {
	svc, _, views := newTestService()
	ann := mustCreate(t, svc, "Ann", "ann@x.com")
	views.keys = nil

	env, err := svc.Update(context.Background(), alice, ann.ID, models.UserPatch{Name: strPtr("Annabel")})
	require.NoError(t, err)
	require.True(t, env.Success)
	assert.Equal(t, MsgUpdated, env.Message)

	updated := env.Data.(*models.User)
	assert.Equal(t, "Annabel", updated.Name)
	assert.Equal(t, "ann@x.com", updated.Email)
	assert.Equal(t, []string{ViewHome, ViewUsers, UserView(ann.ID)}, views.keys)
}

func TestUpdateOwnEmailIsAllowed(t *testing.T) {
	svc, _, _ := newTestService()
	ann := mustCreate(t, svc, "Ann", "ann@x.com")

	env, err := svc.Update(context.Background(), alice, ann.ID, models.UserPatch{Email: strPtr("ann@x.com")})
	require.NoError(t, err)
	assert.True(t, env.Success)
}

func TestUpdateEmailOwnedByAnother(t *testing.T) {
	svc, _, views := newTestService()
	ctx := context.Background()
	one := mustCreate(t, svc, "One", "one@x.com")
	mustCreate(t, svc, "Two", "other-existing@x.com")
	views.keys = nil

	env, err := svc.Update(ctx, alice, one.ID, models.UserPatch{Email: strPtr("other-existing@x.com")})
	require.NoError(t, err)
	assert.False(t, env.Success)
	assert.Equal(t, MsgEmailTakenByID, env.Message)
	assert.ErrorIs(t, env.Err, ErrEmailTaken)
	assert.Empty(t, views.keys)

	got, err := svc.GetUser(ctx, alice, one.ID)
	require.NoError(t, err)
	assert.Equal(t, "one@x.com", got.Email)
}

func TestUpdateMissingUser(t *testing.T) {
	svc, _, _ := newTestService()

	env, err := svc.Update(context.Background(), alice, 99, models.UserPatch{Name: strPtr("Ghost")})
	require.NoError(t, err)
	assert.False(t, env.Success)
	assert.Equal(t, MsgNotFound, env.Message)
	assert.ErrorIs(t, env.Err, ErrNotFound)

	env, err = svc.Update(context.Background(), alice, 99, models.UserPatch{})
	require.NoError(t, err)
	assert.ErrorIs(t, env.Err, ErrNotFound)
}

func TestUpdateInvalidPatch(t *testing.T) {
	svc, store, _ := newTestService()

	env, err := svc.Update(context.Background(), alice, 1, models.UserPatch{Email: strPtr("nope")})
	require.NoError(t, err)
	assert.False(t, env.Success)
	assert.Equal(t, MsgValidationFailed, env.Message)
	assert.Zero(t, store.calls)
}

func TestUpdateEmptyPatchReturnsCurrent(t *testing.T) {
	svc, _, views := newTestService()
	ann := mustCreate(t, svc, "Ann", "ann@x.com")
	views.keys = nil

	env, err := svc.Update(context.Background(), alice, ann.ID, models.UserPatch{})
	require.NoError(t, err)
	assert.True(t, env.Success)
	assert.Equal(t, ann.Email, env.Data.(*models.User).Email)
	assert.Empty(t, views.keys)
}

func TestDelete(t *testing.T) {
	svc, store, views := newTestService()
	ann := mustCreate(t, svc, "Ann", "ann@x.com")
	views.keys = nil

	env, err := svc.Delete(context.Background(), alice, ann.ID)
	require.NoError(t, err)
	assert.True(t, env.Success)
	assert.Equal(t, MsgDeleted, env.Message)
	assert.Zero(t, store.count())
	assert.Contains(t, views.keys, ViewUsers)
}

func TestDeleteMissingIsIdempotent(t *testing.T) {
	svc, _, _ := newTestService()

	env, err := svc.Delete(context.Background(), alice, 12345)
	require.NoError(t, err)
	assert.True(t, env.Success)
	assert.Nil(t, env.Err)
}

func TestDeleteStoreFailureIsEnveloped(t *testing.T) {
	svc, store, _ := newTestService()
	store.failWith = errors.New("disk full")

	env, err := svc.Delete(context.Background(), alice, 1)
	require.NoError(t, err)
	assert.False(t, env.Success)
	assert.Equal(t, MsgDeleteFailed, env.Message)
}

func TestUnauthorizedNeverTouchesStore(t *testing.T) {
	principals := map[string]*models.Principal{
		"nil":      nil,
		"empty id": {Name: "Nobody"},
	}

	for name, p := range principals {
		t.Run(name, func(t *testing.T) {
			svc, store, views := newTestService()
			ctx := context.Background()

			_, err := svc.Create(ctx, p, models.UserInput{Name: "Ann", Email: "ann@x.com"})
			assert.ErrorIs(t, err, ErrUnauthorized)

			_, err = svc.ListUsers(ctx, p)
			assert.ErrorIs(t, err, ErrUnauthorized)

			_, err = svc.GetUser(ctx, p, 1)
			assert.ErrorIs(t, err, ErrUnauthorized)

			_, err = svc.Update(ctx, p, 1, models.UserPatch{Name: strPtr("Bob")})
			assert.ErrorIs(t, err, ErrUnauthorized)

			_, err = svc.Delete(ctx, p, 1)
			assert.ErrorIs(t, err, ErrUnauthorized)

			assert.Zero(t, store.calls)
			assert.Empty(t, views.keys)
		})
	}
}
