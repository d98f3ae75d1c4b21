// Package uistate holds per-client interface preferences: sidebar state,
// theme, skin, breadcrumbs, and transient notifications.
package uistate

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/halolight/halolight/internal/common/config"
	apperrors "github.com/halolight/halolight/internal/common/errors"
	"github.com/halolight/halolight/internal/common/logger"
	"github.com/halolight/halolight/internal/events"
	"github.com/halolight/halolight/internal/events/bus"
	"github.com/halolight/halolight/internal/storage"
)

// Notification levels.
const (
	NotifyInfo    = "info"
	NotifySuccess = "success"
	NotifyWarning = "warning"
	NotifyError   = "error"
)

// Notification is a transient toast shown to the client. A zero DurationMs
// takes the configured default; notifications are never persisted.
type Notification struct {
	ID         string    `json:"id"`
	Title      string    `json:"title,omitempty"`
	Message    string    `json:"message"`
	Type       string    `json:"type"`
	DurationMs int       `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Breadcrumb is one segment of the navigation trail.
type Breadcrumb struct {
	Title string `json:"title"`
	Path  string `json:"path,omitempty"`
}

// State is an observable snapshot of the UI preferences.
type State struct {
	SidebarCollapsed bool           `json:"sidebarCollapsed"`
	Theme            Theme          `json:"theme"`
	ResolvedScheme   Scheme         `json:"resolvedScheme"`
	Skin             string         `json:"skin"`
	Breadcrumbs      []Breadcrumb   `json:"breadcrumbs"`
	Notifications    []Notification `json:"notifications"`
}

// Observer receives a state snapshot after every committed mutation.
type Observer func(State)

// Store serializes UI preference mutations behind a mutex. Notification
// expiry runs on per-id timers that are cancelled when the notification is
// removed by hand.
type Store struct {
	mu           sync.Mutex
	state        State
	ns           *storage.Namespace
	scheme       SystemSchemeSource
	bus          bus.EventBus
	log          *logger.Logger
	defaultTTL   time.Duration
	timers       map[string]*time.Timer
	observers    map[int]Observer
	nextObserver int
	unsubScheme  func()
	closed       bool
}

// NewStore creates a UI store bound to one storage namespace. Live OS scheme
// changes re-resolve the effective scheme only while the stored theme is
// "system".
func NewStore(ns *storage.Namespace, scheme SystemSchemeSource, cfg config.UIConfig, eventBus bus.EventBus, log *logger.Logger) *Store {
	s := &Store{
		ns:         ns,
		scheme:     scheme,
		bus:        eventBus,
		log:        log.WithFields(zap.String("component", "uistate")).WithNamespace(ns.Name()),
		defaultTTL: cfg.NotificationTTL(),
		timers:     make(map[string]*time.Timer),
		observers:  make(map[int]Observer),
	}

	theme := Theme(cfg.DefaultTheme)
	if !ValidTheme(theme) {
		theme = ThemeSystem
	}
	s.state.Theme = theme
	s.state.ResolvedScheme = s.resolve(theme)
	s.state.Skin = "default"

	s.unsubScheme = scheme.Subscribe(s.onSchemeChange)
	return s
}

// Close cancels pending notification timers and the scheme subscription.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	unsub := s.unsubScheme
	s.unsubScheme = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// Subscribe registers an observer and returns its unsubscribe function.
func (s *Store) Subscribe(fn Observer) func() {
	s.mu.Lock()
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// State returns a snapshot of the current UI state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Initialize rehydrates persisted preferences from storage.
func (s *Store) Initialize(ctx context.Context) {
	s.mu.Lock()

	var collapsed bool
	if s.ns.Get(ctx, storage.KeySidebarCollapsed, &collapsed) {
		s.state.SidebarCollapsed = collapsed
	}
	var theme Theme
	if s.ns.Get(ctx, storage.KeyTheme, &theme) && ValidTheme(theme) {
		s.state.Theme = theme
		s.state.ResolvedScheme = s.resolve(theme)
	}
	var skin string
	if s.ns.Get(ctx, storage.KeySkin, &skin) && skin != "" {
		s.state.Skin = skin
	}

	s.notifyLocked(ctx, events.UIChanged, nil)
}

// ToggleSidebar flips the sidebar collapsed flag.
func (s *Store) ToggleSidebar(ctx context.Context) {
	s.mu.Lock()
	s.state.SidebarCollapsed = !s.state.SidebarCollapsed
	s.ns.Set(ctx, storage.KeySidebarCollapsed, s.state.SidebarCollapsed)
	s.notifyLocked(ctx, events.UIChanged, nil)
}

// SetSidebarCollapsed sets the sidebar collapsed flag.
func (s *Store) SetSidebarCollapsed(ctx context.Context, collapsed bool) {
	s.mu.Lock()
	s.state.SidebarCollapsed = collapsed
	s.ns.Set(ctx, storage.KeySidebarCollapsed, collapsed)
	s.notifyLocked(ctx, events.UIChanged, nil)
}

// SetTheme stores the preference and resolves the effective scheme. The
// stored value stays "system" when that is what was asked for; only the
// resolved scheme reflects the OS.
func (s *Store) SetTheme(ctx context.Context, theme Theme) error {
	if !ValidTheme(theme) {
		return apperrors.BadRequest("theme must be one of: light, dark, system")
	}

	s.mu.Lock()
	s.state.Theme = theme
	s.state.ResolvedScheme = s.resolve(theme)
	s.ns.Set(ctx, storage.KeyTheme, theme)
	s.notifyLocked(ctx, events.UIThemeChanged, map[string]interface{}{"theme": string(theme)})
	return nil
}

// ToggleTheme advances the light -> dark -> system -> light cycle.
func (s *Store) ToggleTheme(ctx context.Context) Theme {
	s.mu.Lock()
	next := NextTheme(s.state.Theme)
	s.state.Theme = next
	s.state.ResolvedScheme = s.resolve(next)
	s.ns.Set(ctx, storage.KeyTheme, next)
	s.notifyLocked(ctx, events.UIThemeChanged, map[string]interface{}{"theme": string(next)})
	return next
}

// SetSkin stores the skin name.
func (s *Store) SetSkin(ctx context.Context, skin string) {
	s.mu.Lock()
	s.state.Skin = skin
	s.ns.Set(ctx, storage.KeySkin, skin)
	s.notifyLocked(ctx, events.UIChanged, nil)
}

// SetBreadcrumbs replaces the trail wholesale. No validation is applied.
func (s *Store) SetBreadcrumbs(ctx context.Context, items []Breadcrumb) {
	s.mu.Lock()
	s.state.Breadcrumbs = append([]Breadcrumb(nil), items...)
	s.notifyLocked(ctx, events.UIChanged, nil)
}

// AddNotification assigns an id and creation time, appends the notification,
// and schedules its auto-removal. Returns the assigned id.
func (s *Store) AddNotification(ctx context.Context, n Notification) string {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ""
	}

	n.ID = uuid.NewString()
	n.CreatedAt = time.Now().UTC()
	if n.Type == "" {
		n.Type = NotifyInfo
	}
	if n.DurationMs <= 0 {
		n.DurationMs = int(s.defaultTTL.Milliseconds())
	}
	s.state.Notifications = append(s.state.Notifications, n)

	id := n.ID
	s.timers[id] = time.AfterFunc(time.Duration(n.DurationMs)*time.Millisecond, func() {
		s.expireNotification(id)
	})

	s.notifyLocked(ctx, events.UINotificationAdded, map[string]interface{}{"notification_id": id})
	return id
}

// RemoveNotification removes by id and cancels its expiry timer. Removing an
// unknown id is a no-op.
func (s *Store) RemoveNotification(ctx context.Context, id string) {
	s.mu.Lock()
	if !s.dropNotificationLocked(id) {
		s.mu.Unlock()
		return
	}
	s.notifyLocked(ctx, events.UIChanged, nil)
}

// ClearNotifications removes everything and cancels all pending timers.
func (s *Store) ClearNotifications(ctx context.Context) {
	s.mu.Lock()
	if len(s.state.Notifications) == 0 {
		s.mu.Unlock()
		return
	}
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.state.Notifications = nil
	s.notifyLocked(ctx, events.UIChanged, nil)
}

// expireNotification is the timer callback for auto-removal.
func (s *Store) expireNotification(id string) {
	s.mu.Lock()
	if s.closed || !s.dropNotificationLocked(id) {
		s.mu.Unlock()
		return
	}
	s.notifyLocked(context.Background(), events.UIChanged, nil)
}

// dropNotificationLocked removes the notification and stops its timer,
// reporting whether anything changed.
func (s *Store) dropNotificationLocked(id string) bool {
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
	for i := range s.state.Notifications {
		if s.state.Notifications[i].ID == id {
			s.state.Notifications = append(s.state.Notifications[:i], s.state.Notifications[i+1:]...)
			return true
		}
	}
	return false
}

// onSchemeChange re-resolves the effective scheme while the stored theme is
// "system"; explicit themes ignore OS changes.
func (s *Store) onSchemeChange(scheme Scheme) {
	s.mu.Lock()
	if s.closed || s.state.Theme != ThemeSystem || s.state.ResolvedScheme == scheme {
		s.mu.Unlock()
		return
	}
	s.state.ResolvedScheme = scheme
	s.notifyLocked(context.Background(), events.UIThemeChanged, map[string]interface{}{"scheme": string(scheme)})
}

func (s *Store) resolve(theme Theme) Scheme {
	switch theme {
	case ThemeLight:
		return SchemeLight
	case ThemeDark:
		return SchemeDark
	default:
		return s.scheme.Current()
	}
}

func (s *Store) snapshotLocked() State {
	snapshot := s.state
	snapshot.Breadcrumbs = append([]Breadcrumb(nil), s.state.Breadcrumbs...)
	snapshot.Notifications = append([]Notification(nil), s.state.Notifications...)
	return snapshot
}

// notifyLocked snapshots state and observers, releases the lock, then runs
// callbacks and publishes the change event. Callers must hold the lock; it is
// released on return.
func (s *Store) notifyLocked(ctx context.Context, eventType string, data map[string]interface{}) {
	snapshot := s.snapshotLocked()
	observers := make([]Observer, 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}

	if s.bus != nil {
		if data == nil {
			data = map[string]interface{}{}
		}
		data["namespace"] = s.ns.Name()
		event := bus.NewEvent(eventType, "ui-store", data)
		subject := events.BuildUISubject(s.ns.Name())
		if err := s.bus.Publish(ctx, subject, event); err != nil {
			s.log.Warn("Failed to publish UI event", zap.Error(err))
		}
	}
}
