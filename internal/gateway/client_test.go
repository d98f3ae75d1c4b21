package gateway

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halolight/halolight/internal/common/logger"
	wsproto "github.com/halolight/halolight/pkg/websocket"
)

func newIdleClient(t *testing.T) *Client {
	t.Helper()
	log, err := logger.NewLogger(logger.LoggingConfig{Level: "error", Format: "console", OutputPath: "stdout"})
	require.NoError(t, err)
	return &Client{
		id:       "c-test",
		outbound: make(chan []byte, sendBufferSize),
		log:      log,
	}
}

// A client whose buffer fills is dropped, and later pushes to it must be
// discarded, not panic: the hub keeps fanning store events out to a dropped
// client until removeClient runs.
func TestClient_SendAfterBufferFullDoesNotPanic(t *testing.T) {
	client := newIdleClient(t)

	frame, err := wsproto.NewEvent(wsproto.EventUIChanged, map[string]string{"k": "v"})
	require.NoError(t, err)

	// No writePump is draining, so this trips the buffer-full drop.
	for i := 0; i < sendBufferSize+1; i++ {
		client.send(frame)
	}

	assert.NotPanics(t, func() {
		client.send(frame)
		client.send(frame)
	})
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	client := newIdleClient(t)

	assert.NotPanics(t, func() {
		client.close()
		client.close()
	})

	_, open := <-client.outbound
	assert.False(t, open)
}

// A connection arriving while the registry is shutting down gets a clean
// going-away close instead of a nil-bundle dereference.
func TestHub_HandleWSAfterRegistryClose(t *testing.T) {
	registry, eventBus, log := newTestHubDeps(t)
	hub, err := NewHub(registry, eventBus, log)
	require.NoError(t, err)
	t.Cleanup(hub.Close)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws", hub.HandleWS)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	registry.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?ns=ns-late"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() {
		_ = conn.Close()
	}()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway),
		"expected a going-away close, got: %v", err)
	assert.Equal(t, 0, hub.ClientCount())
}
