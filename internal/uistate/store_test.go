package uistate

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halolight/halolight/internal/common/config"
	apperrors "github.com/halolight/halolight/internal/common/errors"
	"github.com/halolight/halolight/internal/common/logger"
	"github.com/halolight/halolight/internal/db"
	"github.com/halolight/halolight/internal/events/bus"
	"github.com/halolight/halolight/internal/storage"
)

func testUIConfig() config.UIConfig {
	return config.UIConfig{
		DefaultTheme:      "system",
		NotificationTTLMs: 5000,
		HomeTabPath:       "/dashboard",
		HomeTabTitle:      "Dashboard",
		StorageKeyPrefix:  "halolight",
	}
}

func newTestNamespace(t *testing.T) *storage.Namespace {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "uistate_test.db")
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

func newTestStore(t *testing.T, scheme SystemSchemeSource, cfg config.UIConfig) *Store {
	t.Helper()
	log, err := logger.NewLogger(logger.LoggingConfig{Level: "error", Format: "console", OutputPath: "stdout"})
	require.NoError(t, err)
	store := NewStore(newTestNamespace(t), scheme, cfg, bus.NewMemoryEventBus(log), log)
	t.Cleanup(store.Close)
	return store
}

func TestStore_ThemeCycle(t *testing.T) {
	source := NewStaticSchemeSource(SchemeDark)
	cfg := testUIConfig()
	cfg.DefaultTheme = "light"
	store := newTestStore(t, source, cfg)
	ctx := context.Background()

	assert.Equal(t, ThemeDark, store.ToggleTheme(ctx))
	assert.Equal(t, ThemeSystem, store.ToggleTheme(ctx))
	assert.Equal(t, ThemeLight, store.ToggleTheme(ctx))
	assert.Equal(t, ThemeDark, store.ToggleTheme(ctx))
}

func TestStore_SystemThemeResolvesWithoutStoringResolution(t *testing.T) {
	source := NewStaticSchemeSource(SchemeDark)
	store := newTestStore(t, source, testUIConfig())
	ctx := context.Background()

	require.NoError(t, store.SetTheme(ctx, ThemeSystem))

	state := store.State()
	assert.Equal(t, ThemeSystem, state.Theme)
	assert.Equal(t, SchemeDark, state.ResolvedScheme)

	// The persisted value is the preference, not the resolution.
	var stored Theme
	require.True(t, store.ns.Get(ctx, storage.KeyTheme, &stored))
	assert.Equal(t, ThemeSystem, stored)
}

func TestStore_SchemeChangeOnlyAppliesInSystemMode(t *testing.T) {
	source := NewStaticSchemeSource(SchemeLight)
	store := newTestStore(t, source, testUIConfig())
	ctx := context.Background()

	require.NoError(t, store.SetTheme(ctx, ThemeSystem))
	source.Set(SchemeDark)
	assert.Equal(t, SchemeDark, store.State().ResolvedScheme)

	// An explicit theme pins the scheme; OS changes are ignored.
	require.NoError(t, store.SetTheme(ctx, ThemeLight))
	source.Set(SchemeLight)
	source.Set(SchemeDark)
	assert.Equal(t, SchemeLight, store.State().ResolvedScheme)
}

func TestStore_SetThemeRejectsUnknownValue(t *testing.T) {
	store := newTestStore(t, NewStaticSchemeSource(SchemeLight), testUIConfig())
	err := store.SetTheme(context.Background(), Theme("sepia"))
	assert.True(t, apperrors.IsBadRequest(err))
	assert.Equal(t, ThemeSystem, store.State().Theme)
}

func TestStore_Sidebar(t *testing.T) {
	store := newTestStore(t, NewStaticSchemeSource(SchemeLight), testUIConfig())
	ctx := context.Background()

	assert.False(t, store.State().SidebarCollapsed)
	store.ToggleSidebar(ctx)
	assert.True(t, store.State().SidebarCollapsed)
	store.SetSidebarCollapsed(ctx, false)
	assert.False(t, store.State().SidebarCollapsed)
}

func TestStore_Breadcrumbs(t *testing.T) {
	store := newTestStore(t, NewStaticSchemeSource(SchemeLight), testUIConfig())
	ctx := context.Background()

	trail := []Breadcrumb{{Title: "Home", Path: "/dashboard"}, {Title: "Users", Path: "/users"}}
	store.SetBreadcrumbs(ctx, trail)
	assert.Equal(t, trail, store.State().Breadcrumbs)

	// Wholesale replace, including with an empty trail.
	store.SetBreadcrumbs(ctx, nil)
	assert.Empty(t, store.State().Breadcrumbs)
}

func TestStore_NotificationDefaults(t *testing.T) {
	store := newTestStore(t, NewStaticSchemeSource(SchemeLight), testUIConfig())
	ctx := context.Background()

	id := store.AddNotification(ctx, Notification{Message: "saved"})
	require.NotEmpty(t, id)

	state := store.State()
	require.Len(t, state.Notifications, 1)
	n := state.Notifications[0]
	assert.Equal(t, NotifyInfo, n.Type)
	assert.Equal(t, 5000, n.DurationMs)
	assert.False(t, n.CreatedAt.IsZero())
}

func TestStore_NotificationExpires(t *testing.T) {
	store := newTestStore(t, NewStaticSchemeSource(SchemeLight), testUIConfig())
	ctx := context.Background()

	store.AddNotification(ctx, Notification{Message: "quick", DurationMs: 100})
	require.Len(t, store.State().Notifications, 1)

	require.Eventually(t, func() bool {
		return len(store.State().Notifications) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStore_ManualRemovalCancelsTimer(t *testing.T) {
	store := newTestStore(t, NewStaticSchemeSource(SchemeLight), testUIConfig())
	ctx := context.Background()

	id := store.AddNotification(ctx, Notification{Message: "bye", DurationMs: 100})
	store.RemoveNotification(ctx, id)
	assert.Empty(t, store.State().Notifications)

	var mu sync.Mutex
	fired := 0
	unsubscribe := store.Subscribe(func(State) {
		mu.Lock()
		fired++
		mu.Unlock()
	})
	defer unsubscribe()

	// If the timer were still pending it would fire within this window and
	// notify observers again.
	time.Sleep(250 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, fired)
}

func TestStore_RemoveNotificationIdempotent(t *testing.T) {
	store := newTestStore(t, NewStaticSchemeSource(SchemeLight), testUIConfig())
	ctx := context.Background()

	store.RemoveNotification(ctx, "nope")

	id := store.AddNotification(ctx, Notification{Message: "x"})
	store.RemoveNotification(ctx, id)
	store.RemoveNotification(ctx, id)
	assert.Empty(t, store.State().Notifications)
}

func TestStore_ClearNotifications(t *testing.T) {
	store := newTestStore(t, NewStaticSchemeSource(SchemeLight), testUIConfig())
	ctx := context.Background()

	store.AddNotification(ctx, Notification{Message: "one", DurationMs: 100})
	store.AddNotification(ctx, Notification{Message: "two", DurationMs: 100})
	store.ClearNotifications(ctx)
	assert.Empty(t, store.State().Notifications)

	// Clearing an empty list is a no-op.
	store.ClearNotifications(ctx)
	assert.Empty(t, store.State().Notifications)
}

func TestStore_InitializeRehydrates(t *testing.T) {
	ns := newTestNamespace(t)
	log, err := logger.NewLogger(logger.LoggingConfig{Level: "error", Format: "console", OutputPath: "stdout"})
	require.NoError(t, err)
	ctx := context.Background()
	source := NewStaticSchemeSource(SchemeLight)

	first := NewStore(ns, source, testUIConfig(), bus.NewMemoryEventBus(log), log)
	require.NoError(t, first.SetTheme(ctx, ThemeDark))
	first.SetSidebarCollapsed(ctx, true)
	first.SetSkin(ctx, "aurora")
	first.Close()

	second := NewStore(ns, source, testUIConfig(), bus.NewMemoryEventBus(log), log)
	t.Cleanup(second.Close)
	second.Initialize(ctx)

	state := second.State()
	assert.Equal(t, ThemeDark, state.Theme)
	assert.Equal(t, SchemeDark, state.ResolvedScheme)
	assert.True(t, state.SidebarCollapsed)
	assert.Equal(t, "aurora", state.Skin)
}
