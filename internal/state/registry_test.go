package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halolight/halolight/internal/common/config"
	apperrors "github.com/halolight/halolight/internal/common/errors"
	"github.com/halolight/halolight/internal/common/logger"
	"github.com/halolight/halolight/internal/db"
	"github.com/halolight/halolight/internal/events/bus"
	"github.com/halolight/halolight/internal/identity"
	"github.com/halolight/halolight/internal/identity/auth"
	"github.com/halolight/halolight/internal/storage"
)

type stubAuthenticator struct{}

func (stubAuthenticator) Authenticate(ctx context.Context, creds identity.Credentials) (*identity.User, *auth.TokenPair, error) {
	if creds.Email != "demo@example.com" || creds.Password != "demo123" {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}
	user := &identity.User{ID: "u-demo", DisplayName: "Demo Admin", Email: creds.Email, Role: identity.RoleAdmin}
	return user, &auth.TokenPair{AccessToken: "a", RefreshToken: "r", ExpiresIn: 3600}, nil
}

func (stubAuthenticator) Refresh(ctx context.Context, refreshToken string) (*identity.User, *auth.TokenPair, error) {
	user := &identity.User{ID: "u-demo", DisplayName: "Demo Admin", Email: "demo@example.com", Role: identity.RoleAdmin}
	return user, &auth.TokenPair{AccessToken: "a2", RefreshToken: "r2", ExpiresIn: 3600}, nil
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "registry_test.db")
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

	cfg := config.UIConfig{
		DefaultTheme:      "system",
		NotificationTTLMs: 5000,
		HomeTabPath:       "/dashboard",
		HomeTabTitle:      "Dashboard",
	}
	registry := NewRegistry(store, stubAuthenticator{}, bus.NewMemoryEventBus(log), cfg, log)
	t.Cleanup(registry.Close)
	return registry
}

func TestRegistry_GetCreatesOnce(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	a := registry.Get(ctx, "ns-1")
	require.NotNil(t, a)
	b := registry.Get(ctx, "ns-1")
	assert.Same(t, a, b)
	assert.Equal(t, 1, registry.Count())

	c := registry.Get(ctx, "ns-2")
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, registry.Count())
}

func TestRegistry_BundleIsWired(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	bundle := registry.Get(ctx, "ns-1")
	require.NoError(t, bundle.Session.Login(ctx, identity.Credentials{Email: "demo@example.com", Password: "demo123"}))
	assert.True(t, bundle.Session.IsAuthenticated())

	// The tab strip starts at the configured home tab.
	tabsState := bundle.Tabs.State()
	require.Len(t, tabsState.Tabs, 1)
	assert.Equal(t, "/dashboard", tabsState.Tabs[0].Path)

	// Client-reported scheme flows into system theme resolution.
	bundle.Scheme.Set("dark")
	assert.Equal(t, "dark", string(bundle.UI.State().ResolvedScheme))
}

func TestRegistry_NamespacesAreIsolated(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	a := registry.Get(ctx, "ns-1")
	b := registry.Get(ctx, "ns-2")

	require.NoError(t, a.Session.Login(ctx, identity.Credentials{Email: "demo@example.com", Password: "demo123"}))
	assert.True(t, a.Session.IsAuthenticated())
	assert.False(t, b.Session.IsAuthenticated())
}

func TestRegistry_Peek(t *testing.T) {
	registry := newTestRegistry(t)

	_, ok := registry.Peek("ns-1")
	assert.False(t, ok)

	registry.Get(context.Background(), "ns-1")
	_, ok = registry.Peek("ns-1")
	assert.True(t, ok)
}
