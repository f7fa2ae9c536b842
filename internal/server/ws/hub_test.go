package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/dipbuyer/internal/cache/memory"
	"github.com/alanyoungcy/dipbuyer/internal/domain"
)

type staticSnapshot domain.SessionSnapshot

func (s staticSnapshot) Snapshot() domain.SessionSnapshot { return domain.SessionSnapshot(s) }

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)

	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func TestHub_RelaysBusEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := memory.NewBus()
	hub := NewHub(bus, staticSnapshot{SessionID: "s-1", Symbol: "GOOG"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	go func() { _ = hub.Run(ctx) }()

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readEnvelope(t, conn)
	assert.Equal(t, domain.ChannelStatus, first.Channel)
	var snap domain.SessionSnapshot
	require.NoError(t, json.Unmarshal(first.Payload, &snap))
	assert.Equal(t, "GOOG", snap.Symbol)

	require.NoError(t, bus.Publish(ctx, domain.ChannelCycles, []byte(`{"price":90}`)))
	env := readEnvelope(t, conn)
	assert.Equal(t, domain.ChannelCycles, env.Channel)
	assert.JSONEq(t, `{"price":90}`, string(env.Payload))
	assert.Equal(t, 1, hub.ClientCount())
}

func TestClient_Subscriptions(t *testing.T) {
	c := &client{subs: map[string]bool{domain.ChannelCycles: true}}
	assert.True(t, c.isSubscribed(domain.ChannelCycles))
	assert.False(t, c.isSubscribed(domain.ChannelPurchases))

	c.handleSubscription(subscribeMsg{Action: "subscribe", Channels: []string{domain.ChannelPurchases}})
	c.handleSubscription(subscribeMsg{Action: "unsubscribe", Channels: []string{domain.ChannelCycles}})
	assert.True(t, c.isSubscribed(domain.ChannelPurchases))
	assert.False(t, c.isSubscribed(domain.ChannelCycles))

	c.handleSubscription(subscribeMsg{Action: "subscribe", Channels: []string{"*"}})
	assert.True(t, c.isSubscribed(domain.ChannelStatus))
}

func TestHub_InitialStatusQueuedBeforeRegistration(t *testing.T) {
	hub := NewHub(memory.NewBus(), staticSnapshot{Symbol: "MSFT"}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	c := hub.newClient(nil)
	require.Len(t, c.send, 1)
	assert.Equal(t, 0, hub.ClientCount())

	var env Envelope
	require.NoError(t, json.Unmarshal(<-c.send, &env))
	assert.Equal(t, domain.ChannelStatus, env.Channel)
	for _, ch := range Channels {
		assert.True(t, c.isSubscribed(ch))
	}
}

func TestHub_ConnectAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(memory.NewBus(), staticSnapshot{Symbol: "MSFT"}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	stopped := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "a stopped hub closes new connections")
	assert.Equal(t, 0, hub.ClientCount())
}
