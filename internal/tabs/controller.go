// Package tabs manages the ordered strip of open dashboard tabs for one
// client. The home tab is pinned: it is always present and cannot be removed.
package tabs

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/halolight/halolight/internal/common/config"
	"github.com/halolight/halolight/internal/common/logger"
	"github.com/halolight/halolight/internal/events"
	"github.com/halolight/halolight/internal/events/bus"
)

// Tab is one entry in the strip. Paths are unique: opening a route whose tab
// already exists activates it instead of adding a duplicate.
type Tab struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Path   string `json:"path"`
	Pinned bool   `json:"pinned"`
}

// TabPatch carries partial tab updates; nil fields are left unchanged.
type TabPatch struct {
	Title *string `json:"title"`
	Path  *string `json:"path"`
}

// State is an observable snapshot of the strip. ActiveID always references
// a tab in Tabs.
type State struct {
	Tabs     []Tab  `json:"tabs"`
	ActiveID string `json:"activeId"`
}

// Observer receives a state snapshot after every committed mutation.
type Observer func(State)

// Controller serializes tab mutations behind a mutex.
type Controller struct {
	mu           sync.Mutex
	state        State
	namespace    string
	homePath     string
	homeTitle    string
	bus          bus.EventBus
	log          *logger.Logger
	observers    map[int]Observer
	nextObserver int
}

// NewController creates a controller holding only the pinned home tab.
func NewController(namespace string, cfg config.UIConfig, eventBus bus.EventBus, log *logger.Logger) *Controller {
	c := &Controller{
		namespace: namespace,
		homePath:  cfg.HomeTabPath,
		homeTitle: cfg.HomeTabTitle,
		bus:       eventBus,
		log:       log.WithFields(zap.String("component", "tabs")).WithNamespace(namespace),
		observers: make(map[int]Observer),
	}
	home := c.newHomeTab()
	c.state.Tabs = []Tab{home}
	c.state.ActiveID = home.ID
	return c
}

func (c *Controller) newHomeTab() Tab {
	return Tab{
		ID:     uuid.NewString(),
		Title:  c.homeTitle,
		Path:   c.homePath,
		Pinned: true,
	}
}

// Subscribe registers an observer and returns its unsubscribe function.
func (c *Controller) Subscribe(fn Observer) func() {
	c.mu.Lock()
	id := c.nextObserver
	c.nextObserver++
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// State returns a snapshot of the strip.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// ActiveTab returns the currently active tab.
func (c *Controller) ActiveTab() Tab {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tab := c.findByIDLocked(c.state.ActiveID); tab != nil {
		return *tab
	}
	// ActiveID is kept valid by every mutation; reaching here means a bug.
	return c.state.Tabs[0]
}

// AddTab opens a tab for path, reusing and activating an existing tab with
// the same path instead of creating a duplicate. Returns the tab's id.
func (c *Controller) AddTab(ctx context.Context, title, path string) string {
	c.mu.Lock()
	if existing := c.findByPathLocked(path); existing != nil {
		id := existing.ID
		c.state.ActiveID = id
		c.notifyLocked(ctx)
		return id
	}

	tab := Tab{ID: uuid.NewString(), Title: title, Path: path}
	c.state.Tabs = append(c.state.Tabs, tab)
	c.state.ActiveID = tab.ID
	c.notifyLocked(ctx)
	return tab.ID
}

// SetActiveTab activates the tab with the given id; unknown ids are ignored.
func (c *Controller) SetActiveTab(ctx context.Context, id string) {
	c.mu.Lock()
	if c.findByIDLocked(id) == nil {
		c.mu.Unlock()
		return
	}
	c.state.ActiveID = id
	c.notifyLocked(ctx)
}

// RemoveTab closes a tab. Pinned tabs and unknown ids are ignored. Closing
// the active tab activates the neighbor that now occupies the same index,
// falling back to the previous tab, then to the first.
func (c *Controller) RemoveTab(ctx context.Context, id string) {
	c.mu.Lock()
	idx := -1
	for i := range c.state.Tabs {
		if c.state.Tabs[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 || c.state.Tabs[idx].Pinned {
		c.mu.Unlock()
		return
	}

	wasActive := c.state.ActiveID == id
	c.state.Tabs = append(c.state.Tabs[:idx], c.state.Tabs[idx+1:]...)
	c.ensureHomeLocked()

	if wasActive {
		next := idx
		if next >= len(c.state.Tabs) {
			next = len(c.state.Tabs) - 1
		}
		c.state.ActiveID = c.state.Tabs[next].ID
	}
	c.notifyLocked(ctx)
}

// UpdateTab applies a patch to a tab; unknown ids are ignored.
func (c *Controller) UpdateTab(ctx context.Context, id string, patch TabPatch) {
	c.mu.Lock()
	tab := c.findByIDLocked(id)
	if tab == nil {
		c.mu.Unlock()
		return
	}
	if patch.Title != nil {
		tab.Title = *patch.Title
	}
	if patch.Path != nil {
		tab.Path = *patch.Path
	}
	c.notifyLocked(ctx)
}

// GetTabByPath returns the tab with exactly this path, if any.
func (c *Controller) GetTabByPath(path string) (Tab, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tab := c.findByPathLocked(path); tab != nil {
		return *tab, true
	}
	return Tab{}, false
}

// ClearTabs resets the strip to just the home tab.
func (c *Controller) ClearTabs(ctx context.Context) {
	c.mu.Lock()
	kept := c.state.Tabs[:0]
	for _, tab := range c.state.Tabs {
		if tab.Pinned {
			kept = append(kept, tab)
		}
	}
	c.state.Tabs = kept
	c.ensureHomeLocked()
	c.state.ActiveID = c.state.Tabs[0].ID
	c.notifyLocked(ctx)
}

// SyncRoute is the router contract: navigating to a path activates its tab
// and refreshes the title from the route table, creating the tab first when
// none exists. Returns the tab's id.
func (c *Controller) SyncRoute(ctx context.Context, path string) string {
	c.mu.Lock()
	if existing := c.findByPathLocked(path); existing != nil {
		if !existing.Pinned {
			existing.Title = TitleFor(path)
		}
		id := existing.ID
		c.state.ActiveID = id
		c.notifyLocked(ctx)
		return id
	}

	tab := Tab{ID: uuid.NewString(), Title: TitleFor(path), Path: path}
	c.state.Tabs = append(c.state.Tabs, tab)
	c.state.ActiveID = tab.ID
	c.notifyLocked(ctx)
	return tab.ID
}

// ensureHomeLocked reinserts the pinned home tab if the strip would
// otherwise be empty.
func (c *Controller) ensureHomeLocked() {
	if len(c.state.Tabs) > 0 {
		return
	}
	c.state.Tabs = []Tab{c.newHomeTab()}
	c.state.ActiveID = c.state.Tabs[0].ID
}

func (c *Controller) findByIDLocked(id string) *Tab {
	for i := range c.state.Tabs {
		if c.state.Tabs[i].ID == id {
			return &c.state.Tabs[i]
		}
	}
	return nil
}

func (c *Controller) findByPathLocked(path string) *Tab {
	for i := range c.state.Tabs {
		if c.state.Tabs[i].Path == path {
			return &c.state.Tabs[i]
		}
	}
	return nil
}

func (c *Controller) snapshotLocked() State {
	return State{
		Tabs:     append([]Tab(nil), c.state.Tabs...),
		ActiveID: c.state.ActiveID,
	}
}

// notifyLocked snapshots state and observers, releases the lock, then runs
// callbacks and publishes the change event. Callers must hold the lock; it is
// released on return.
func (c *Controller) notifyLocked(ctx context.Context) {
	snapshot := c.snapshotLocked()
	observers := make([]Observer, 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}

	if c.bus != nil {
		event := bus.NewEvent(events.TabsChanged, "tab-controller", map[string]interface{}{
			"namespace": c.namespace,
			"active_id": snapshot.ActiveID,
			"count":     len(snapshot.Tabs),
		})
		subject := events.BuildTabsSubject(c.namespace)
		if err := c.bus.Publish(ctx, subject, event); err != nil {
			c.log.Warn("Failed to publish tabs event", zap.Error(err))
		}
	}
}
