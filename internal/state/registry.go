// Package state assembles the per-client state bundles: one session store,
// one UI preference store, and one tab controller per namespace. Bundles
// survive disconnects so a returning client resumes where it left off.
package state

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/halolight/halolight/internal/common/config"
	"github.com/halolight/halolight/internal/common/logger"
	"github.com/halolight/halolight/internal/events/bus"
	"github.com/halolight/halolight/internal/session"
	"github.com/halolight/halolight/internal/storage"
	"github.com/halolight/halolight/internal/tabs"
	"github.com/halolight/halolight/internal/uistate"
)

// Bundle groups the three state containers for one client namespace.
type Bundle struct {
	Namespace string
	Session   *session.Store
	UI        *uistate.Store
	Tabs      *tabs.Controller

	// Scheme receives the client-reported OS color scheme; the UI store
	// resolves "system" through it.
	Scheme *uistate.StaticSchemeSource
}

// Registry creates and caches bundles keyed by namespace.
type Registry struct {
	mu      sync.Mutex
	bundles map[string]*Bundle
	storage *storage.Store
	ids     session.Authenticator
	bus     bus.EventBus
	cfg     config.UIConfig
	log     *logger.Logger
	closed  bool
}

// NewRegistry creates an empty registry.
func NewRegistry(store *storage.Store, ids session.Authenticator, eventBus bus.EventBus, cfg config.UIConfig, log *logger.Logger) *Registry {
	return &Registry{
		bundles: make(map[string]*Bundle),
		storage: store,
		ids:     ids,
		bus:     eventBus,
		cfg:     cfg,
		log:     log.WithFields(zap.String("component", "state-registry")),
	}
}

// Get returns the bundle for a namespace, creating and rehydrating it on
// first use.
func (r *Registry) Get(ctx context.Context, namespace string) *Bundle {
	r.mu.Lock()
	if bundle, ok := r.bundles[namespace]; ok {
		r.mu.Unlock()
		return bundle
	}
	if r.closed {
		r.mu.Unlock()
		return nil
	}

	ns := r.storage.Namespace(namespace)
	scheme := uistate.NewStaticSchemeSource(uistate.SchemeLight)
	bundle := &Bundle{
		Namespace: namespace,
		Session:   session.NewStore(ns, r.ids, r.bus, r.log),
		UI:        uistate.NewStore(ns, scheme, r.cfg, r.bus, r.log),
		Tabs:      tabs.NewController(namespace, r.cfg, r.bus, r.log),
		Scheme:    scheme,
	}
	r.bundles[namespace] = bundle
	r.mu.Unlock()

	// Rehydrate outside the registry lock; both calls are no-ops for a
	// namespace that has never persisted anything.
	bundle.Session.Initialize(ctx)
	bundle.UI.Initialize(ctx)

	r.log.Info("Created state bundle", zap.String("namespace", namespace))
	return bundle
}

// Peek returns the bundle if it already exists, without creating one.
func (r *Registry) Peek(namespace string) (*Bundle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bundle, ok := r.bundles[namespace]
	return bundle, ok
}

// Count returns the number of live bundles.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bundles)
}

// Close tears down every bundle's timers and subscriptions.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	bundles := make([]*Bundle, 0, len(r.bundles))
	for _, b := range r.bundles {
		bundles = append(bundles, b)
	}
	r.bundles = make(map[string]*Bundle)
	r.mu.Unlock()

	for _, b := range bundles {
		b.UI.Close()
	}
}
