// Package gateway exposes the /ws endpoint: each connected dashboard client
// is bound to a state bundle by namespace, invokes actions against it, and
// receives pushed events whenever one of its stores commits a mutation.
package gateway

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/halolight/halolight/internal/common/logger"
	"github.com/halolight/halolight/internal/events"
	"github.com/halolight/halolight/internal/events/bus"
	"github.com/halolight/halolight/internal/state"
	wsproto "github.com/halolight/halolight/pkg/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The dashboard is served from arbitrary dev origins; auth happens at
	// the action layer, not the handshake.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub tracks connected clients and fans store-change events out to the
// clients of the affected namespace.
type Hub struct {
	registry *state.Registry
	bus      bus.EventBus
	log      *logger.Logger

	mu          sync.RWMutex
	byNamespace map[string]map[*Client]struct{}

	subscriptions []bus.Subscription
}

// NewHub creates the hub and subscribes to the store-change subjects.
func NewHub(registry *state.Registry, eventBus bus.EventBus, log *logger.Logger) (*Hub, error) {
	h := &Hub{
		registry:    registry,
		bus:         eventBus,
		log:         log.WithFields(zap.String("component", "gateway")),
		byNamespace: make(map[string]map[*Client]struct{}),
	}

	// One wildcard subscription per store type; the namespace rides in the
	// subject suffix.
	for _, sub := range []struct {
		subject string
		event   string
	}{
		{events.BuildSessionWildcardSubject(), wsproto.EventSessionChanged},
		{events.BuildUIWildcardSubject(), wsproto.EventUIChanged},
		{events.BuildTabsWildcardSubject(), wsproto.EventTabsChanged},
	} {
		event := sub.event
		s, err := eventBus.Subscribe(sub.subject, func(ctx context.Context, e *bus.Event) error {
			if namespace, ok := e.Data["namespace"].(string); ok && namespace != "" {
				h.pushStateEvent(namespace, event)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		h.subscriptions = append(h.subscriptions, s)
	}
	return h, nil
}

// Close drops the event subscriptions and disconnects every client.
func (h *Hub) Close() {
	for _, sub := range h.subscriptions {
		_ = sub.Unsubscribe()
	}

	h.mu.Lock()
	clients := []*Client{}
	for _, set := range h.byNamespace {
		for c := range set {
			clients = append(clients, c)
		}
	}
	h.byNamespace = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// HandleWS upgrades the connection and runs the client until it disconnects.
// The namespace comes from the ?ns= query parameter; omitting it starts a
// fresh one-off namespace.
func (h *Hub) HandleWS(c *gin.Context) {
	namespace := strings.TrimSpace(c.Query("ns"))
	if namespace == "" {
		namespace = uuid.NewString()
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	bundle := h.registry.Get(c.Request.Context(), namespace)
	if bundle == nil {
		// Registry is closed; the server is shutting down.
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	client := newClient(h, conn, bundle)

	h.addClient(client)
	h.log.Info("Client connected",
		zap.String("namespace", namespace),
		zap.String("client_id", client.id))

	go client.writePump()
	client.readPump()
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.byNamespace[c.bundle.Namespace]
	if !ok {
		set = make(map[*Client]struct{})
		h.byNamespace[c.bundle.Namespace] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.byNamespace[c.bundle.Namespace]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.byNamespace, c.bundle.Namespace)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.byNamespace {
		n += len(set)
	}
	return n
}

// pushStateEvent sends the affected store's current state to every client of
// the namespace.
func (h *Hub) pushStateEvent(namespace, event string) {
	bundle, ok := h.registry.Peek(namespace)
	if !ok {
		return
	}

	var payload interface{}
	switch event {
	case wsproto.EventSessionChanged:
		payload = bundle.Session.State()
	case wsproto.EventUIChanged:
		payload = bundle.UI.State()
	case wsproto.EventTabsChanged:
		payload = bundle.Tabs.State()
	default:
		return
	}

	frame, err := wsproto.NewEvent(event, payload)
	if err != nil {
		h.log.Warn("Failed to encode push event", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.byNamespace[namespace]))
	for c := range h.byNamespace[namespace] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.send(frame)
	}
}
