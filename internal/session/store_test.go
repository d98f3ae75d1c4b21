package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/halolight/halolight/internal/common/errors"
	"github.com/halolight/halolight/internal/common/logger"
	"github.com/halolight/halolight/internal/db"
	"github.com/halolight/halolight/internal/events/bus"
	"github.com/halolight/halolight/internal/identity"
	"github.com/halolight/halolight/internal/identity/auth"
	"github.com/halolight/halolight/internal/storage"
)

const (
	testWaitLong = 2 * time.Second
	testWaitTick = 5 * time.Millisecond
)

// fakeAuthenticator accepts demo@example.com / demo123 and can be made to
// block so tests can interleave concurrent logins.
type fakeAuthenticator struct {
	mu          sync.Mutex
	gate        chan struct{} // when set, Authenticate blocks until it closes
	pairCounter int
	refreshErr  error
}

func (f *fakeAuthenticator) Authenticate(ctx context.Context, creds identity.Credentials) (*identity.User, *auth.TokenPair, error) {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	if creds.Email != "demo@example.com" || creds.Password != "demo123" {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}
	return f.demoUser(), f.nextPair(), nil
}

func (f *fakeAuthenticator) Refresh(ctx context.Context, refreshToken string) (*identity.User, *auth.TokenPair, error) {
	f.mu.Lock()
	err := f.refreshErr
	f.mu.Unlock()
	if err != nil {
		return nil, nil, err
	}
	return f.demoUser(), f.nextPair(), nil
}

func (f *fakeAuthenticator) demoUser() *identity.User {
	return &identity.User{
		ID:          "u-demo",
		DisplayName: "Demo Admin",
		Email:       "demo@example.com",
		Role:        identity.RoleAdmin,
		Status:      identity.StatusActive,
	}
}

func (f *fakeAuthenticator) nextPair() *auth.TokenPair {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pairCounter++
	return &auth.TokenPair{
		AccessToken:  "access-" + string(rune('a'+f.pairCounter)),
		RefreshToken: "refresh-" + string(rune('a'+f.pairCounter)),
		ExpiresIn:    3600,
	}
}

func newTestNamespace(t *testing.T) *storage.Namespace {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "session_test.db")
	writer, err := db.OpenSQLite(dbPath)
	require.NoError(t, err)
	reader, err := db.OpenSQLiteReader(dbPath)
	require.NoError(t, err)

	pool := db.NewPool(writer, reader)
	t.Cleanup(func() {
		_ = pool.Close()
	})

	log, err := logger.NewLogger(logger.LoggingConfig{Level: "error", Format: "console", OutputPath: "stdout"})
	require.NoError(t, err)

	store, err := storage.NewStore(context.Background(), pool, log)
	require.NoError(t, err)
	return store.Namespace("ns-test")
}

func newTestStore(t *testing.T, ids Authenticator) *Store {
	t.Helper()
	log, err := logger.NewLogger(logger.LoggingConfig{Level: "error", Format: "console", OutputPath: "stdout"})
	require.NoError(t, err)
	return NewStore(newTestNamespace(t), ids, bus.NewMemoryEventBus(log), log)
}

func TestStore_LoginDemoUser(t *testing.T) {
	store := newTestStore(t, &fakeAuthenticator{})
	ctx := context.Background()

	require.NoError(t, store.Login(ctx, identity.Credentials{
		Email:      "demo@example.com",
		Password:   "demo123",
		RememberMe: true,
	}))

	state := store.State()
	require.NotNil(t, state.User)
	assert.Equal(t, "u-demo", state.User.ID)
	assert.Equal(t, identity.RoleAdmin, state.User.Role)
	require.NotNil(t, state.Tokens)
	assert.True(t, state.RememberMe)
	assert.Empty(t, state.Error)
	require.Len(t, state.Accounts, 1)
	assert.Equal(t, "u-demo", state.ActiveAccountID)
	assert.True(t, store.IsAuthenticated())
}

func TestStore_LoginFailureSetsErrorOnly(t *testing.T) {
	store := newTestStore(t, &fakeAuthenticator{})
	ctx := context.Background()

	err := store.Login(ctx, identity.Credentials{Email: "demo@example.com", Password: "wrong"})
	require.Error(t, err)

	state := store.State()
	assert.Nil(t, state.User)
	assert.Nil(t, state.Tokens)
	assert.Empty(t, state.Accounts)
	assert.Equal(t, "invalid email or password", state.Error)
	assert.False(t, store.IsAuthenticated())
}

func TestStore_LoginSupersession(t *testing.T) {
	ids := &fakeAuthenticator{}
	store := newTestStore(t, ids)
	ctx := context.Background()

	gate := make(chan struct{})
	ids.mu.Lock()
	ids.gate = gate
	ids.mu.Unlock()

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- store.Login(ctx, identity.Credentials{Email: "demo@example.com", Password: "demo123"})
	}()

	// Start a second login; both block at the gate but the second holds the
	// newer generation.
	secondDone := make(chan error, 1)
	go func() {
		secondDone <- store.Login(ctx, identity.Credentials{Email: "demo@example.com", Password: "demo123"})
	}()

	// Wait until both attempts have registered their generation.
	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.loginGen == 2
	}, testWaitLong, testWaitTick)

	close(gate)

	err1 := <-firstDone
	err2 := <-secondDone

	// Exactly one attempt committed; the other was superseded.
	if err1 == nil {
		assert.ErrorIs(t, err2, ErrLoginSuperseded)
	} else {
		assert.ErrorIs(t, err1, ErrLoginSuperseded)
		assert.NoError(t, err2)
	}
	assert.True(t, store.IsAuthenticated())
}

// A logout issued while a login is still waiting on the authenticator wins:
// the late login result must not resurrect the session.
func TestStore_LogoutSupersedesInFlightLogin(t *testing.T) {
	ids := &fakeAuthenticator{}
	store := newTestStore(t, ids)
	ctx := context.Background()

	gate := make(chan struct{})
	ids.mu.Lock()
	ids.gate = gate
	ids.mu.Unlock()

	loginDone := make(chan error, 1)
	go func() {
		loginDone <- store.Login(ctx, identity.Credentials{Email: "demo@example.com", Password: "demo123"})
	}()

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.loginGen == 1
	}, testWaitLong, testWaitTick)

	store.Logout(ctx)
	close(gate)

	assert.ErrorIs(t, <-loginDone, ErrLoginSuperseded)
	assert.False(t, store.IsAuthenticated())
	assert.Nil(t, store.State().User)
}

func TestStore_LogoutClearsStateAndStorage(t *testing.T) {
	ns := newTestNamespace(t)
	log, err := logger.NewLogger(logger.LoggingConfig{Level: "error", Format: "console", OutputPath: "stdout"})
	require.NoError(t, err)
	store := NewStore(ns, &fakeAuthenticator{}, bus.NewMemoryEventBus(log), log)
	ctx := context.Background()

	require.NoError(t, store.Login(ctx, identity.Credentials{Email: "demo@example.com", Password: "demo123"}))
	store.Logout(ctx)

	state := store.State()
	assert.Nil(t, state.User)
	assert.Nil(t, state.Tokens)
	assert.Empty(t, state.Accounts)
	assert.False(t, store.IsAuthenticated())

	var tokens auth.TokenPair
	assert.False(t, ns.Get(ctx, storage.KeyToken, &tokens))
	var user identity.User
	assert.False(t, ns.Get(ctx, storage.KeyUser, &user))
}

func TestStore_SwitchAccount(t *testing.T) {
	store := newTestStore(t, &fakeAuthenticator{})
	ctx := context.Background()

	require.NoError(t, store.Login(ctx, identity.Credentials{Email: "demo@example.com", Password: "demo123"}))

	second := &identity.User{ID: "u-2", DisplayName: "Second", Email: "second@example.com", Role: identity.RoleViewer}
	store.AddAccount(ctx, second, &auth.TokenPair{AccessToken: "a2", RefreshToken: "r2"})

	require.NoError(t, store.SwitchAccount(ctx, "u-2"))
	state := store.State()
	assert.Equal(t, "u-2", state.ActiveAccountID)
	assert.Equal(t, "u-2", state.User.ID)
	assert.Equal(t, "a2", state.Tokens.AccessToken)

	// Unknown id: error field set, active account untouched.
	err := store.SwitchAccount(ctx, "u-ghost")
	assert.True(t, apperrors.IsNotFound(err))
	state = store.State()
	assert.Equal(t, "u-2", state.ActiveAccountID)
	assert.NotEmpty(t, state.Error)
}

func TestStore_AddAccountPromotesWhenEmpty(t *testing.T) {
	store := newTestStore(t, &fakeAuthenticator{})
	ctx := context.Background()

	user := &identity.User{ID: "u-1", DisplayName: "One", Email: "one@example.com", Role: identity.RoleViewer}
	store.AddAccount(ctx, user, &auth.TokenPair{AccessToken: "a1", RefreshToken: "r1"})

	state := store.State()
	assert.Equal(t, "u-1", state.ActiveAccountID)
	require.NotNil(t, state.User)
	assert.Equal(t, "u-1", state.User.ID)
}

func TestStore_AddAccountUpsertsByID(t *testing.T) {
	store := newTestStore(t, &fakeAuthenticator{})
	ctx := context.Background()

	user := &identity.User{ID: "u-1", DisplayName: "One", Email: "one@example.com"}
	store.AddAccount(ctx, user, &auth.TokenPair{AccessToken: "a1"})

	renamed := &identity.User{ID: "u-1", DisplayName: "One Renamed", Email: "one@example.com"}
	store.AddAccount(ctx, renamed, &auth.TokenPair{AccessToken: "a1b"})

	state := store.State()
	require.Len(t, state.Accounts, 1)
	assert.Equal(t, "One Renamed", state.Accounts[0].DisplayName)
}

func TestStore_RemoveAccount(t *testing.T) {
	store := newTestStore(t, &fakeAuthenticator{})
	ctx := context.Background()

	require.NoError(t, store.Login(ctx, identity.Credentials{Email: "demo@example.com", Password: "demo123"}))
	second := &identity.User{ID: "u-2", DisplayName: "Second", Email: "second@example.com"}
	store.AddAccount(ctx, second, &auth.TokenPair{AccessToken: "a2", RefreshToken: "r2"})

	// Removing the active account promotes the first remaining one.
	store.RemoveAccount(ctx, "u-demo")
	state := store.State()
	assert.Equal(t, "u-2", state.ActiveAccountID)
	require.Len(t, state.Accounts, 1)

	// Unknown id is a no-op.
	store.RemoveAccount(ctx, "u-ghost")
	assert.Len(t, store.State().Accounts, 1)

	// Removing the last account is a full logout.
	store.RemoveAccount(ctx, "u-2")
	assert.False(t, store.IsAuthenticated())
	assert.Empty(t, store.State().Accounts)
}

func TestStore_RefreshTokenSuccess(t *testing.T) {
	store := newTestStore(t, &fakeAuthenticator{})
	ctx := context.Background()

	require.NoError(t, store.Login(ctx, identity.Credentials{Email: "demo@example.com", Password: "demo123"}))
	before := store.State().Tokens.AccessToken

	require.NoError(t, store.RefreshToken(ctx))
	state := store.State()
	assert.NotEqual(t, before, state.Tokens.AccessToken)
	assert.True(t, store.IsAuthenticated())

	// The active account's stored tokens follow the rotation.
	require.Len(t, state.Accounts, 1)
	assert.Equal(t, state.Tokens.AccessToken, state.Accounts[0].Tokens.AccessToken)
}

func TestStore_RefreshFailureCascadesToLogout(t *testing.T) {
	ids := &fakeAuthenticator{}
	store := newTestStore(t, ids)
	ctx := context.Background()

	require.NoError(t, store.Login(ctx, identity.Credentials{Email: "demo@example.com", Password: "demo123"}))

	ids.mu.Lock()
	ids.refreshErr = apperrors.Unauthorized("refresh token revoked")
	ids.mu.Unlock()

	err := store.RefreshToken(ctx)
	require.Error(t, err)
	assert.False(t, store.IsAuthenticated())
	assert.Empty(t, store.State().Accounts)
}

func TestStore_RefreshWithoutTokensLogsOut(t *testing.T) {
	store := newTestStore(t, &fakeAuthenticator{})
	err := store.RefreshToken(context.Background())
	assert.True(t, apperrors.IsUnauthorized(err))
	assert.False(t, store.IsAuthenticated())
}

func TestStore_InitializeRehydrates(t *testing.T) {
	ns := newTestNamespace(t)
	log, err := logger.NewLogger(logger.LoggingConfig{Level: "error", Format: "console", OutputPath: "stdout"})
	require.NoError(t, err)
	ctx := context.Background()

	first := NewStore(ns, &fakeAuthenticator{}, bus.NewMemoryEventBus(log), log)
	require.NoError(t, first.Login(ctx, identity.Credentials{Email: "demo@example.com", Password: "demo123", RememberMe: true}))

	// A fresh store over the same namespace picks the session back up.
	second := NewStore(ns, &fakeAuthenticator{}, bus.NewMemoryEventBus(log), log)
	second.Initialize(ctx)

	state := second.State()
	require.NotNil(t, state.User)
	assert.Equal(t, "u-demo", state.User.ID)
	assert.True(t, state.RememberMe)
	assert.Equal(t, "u-demo", state.ActiveAccountID)
	assert.True(t, second.IsAuthenticated())
}

func TestStore_InitializeEmptyNamespaceIsNoOp(t *testing.T) {
	store := newTestStore(t, &fakeAuthenticator{})

	notified := false
	store.Subscribe(func(State) { notified = true })

	store.Initialize(context.Background())
	assert.False(t, store.IsAuthenticated())
	assert.False(t, notified)
}

func TestStore_SubscribeAndUnsubscribe(t *testing.T) {
	store := newTestStore(t, &fakeAuthenticator{})
	ctx := context.Background()

	var mu sync.Mutex
	var snapshots []State
	unsubscribe := store.Subscribe(func(s State) {
		mu.Lock()
		snapshots = append(snapshots, s)
		mu.Unlock()
	})

	require.NoError(t, store.Login(ctx, identity.Credentials{Email: "demo@example.com", Password: "demo123"}))

	mu.Lock()
	require.NotEmpty(t, snapshots)
	last := snapshots[len(snapshots)-1]
	count := len(snapshots)
	mu.Unlock()
	require.NotNil(t, last.User)
	assert.Equal(t, "u-demo", last.User.ID)

	unsubscribe()
	store.Logout(ctx)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, snapshots, count)
}
