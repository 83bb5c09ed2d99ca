package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocket-poker/bot"
	"pocket-poker/models"
	"pocket-poker/netsync"
)

const waitFor = 3 * time.Second

func nextEvent(t *testing.T, events <-chan netsync.TransportEvent) netsync.TransportEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "events channel closed")
		return ev
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for transport event")
	}
	return netsync.TransportEvent{}
}

func testSettings() models.Settings {
	settings := models.DefaultSettings()
	settings.AnteAmount = 0
	return settings
}

// playOver starts a host on hostSide and a client on clientSide, then checks
// that the client joins and mirrors the first hand.
func playOver(t *testing.T, hostSide, clientSide netsync.Transport) {
	t.Helper()
	host := netsync.NewHost(hostSide, netsync.HostConfig{
		Name:     "Hank",
		Settings: testSettings(),
	}, netsync.WithRunnerOptions(bot.WithThinkingDelay(0)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = host.Run(ctx) }()
	defer host.Close()

	client := netsync.NewClient(clientSide, "Alice")
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	require.Eventually(t, func() bool { return client.PeerID() != "" }, waitFor, 10*time.Millisecond)
	require.Eventually(t, func() bool { return len(host.Roster()) == 2 }, waitFor, 10*time.Millisecond)

	require.NoError(t, host.StartMatch())
	require.Eventually(t, func() bool {
		s := client.State()
		return s != nil && s.HandNumber == 1
	}, waitFor, 10*time.Millisecond)

	state := client.State()
	for _, seat := range state.Seats {
		if seat.ID == client.PeerID() {
			assert.Len(t, seat.HoleCards, 2, "own cards are visible")
		} else {
			assert.Empty(t, seat.HoleCards, "opponent cards are hidden")
		}
	}

	require.NoError(t, host.Close())
	select {
	case err := <-done:
		assert.ErrorIs(t, err, netsync.ErrHostDisconnected)
	case <-time.After(waitFor):
		t.Fatal("client did not notice the host closing")
	}
}

func TestTCP_HostAndClient(t *testing.T) {
	hub, err := ListenTCP("127.0.0.1:0", "host", zerolog.Nop())
	require.NoError(t, err)
	defer hub.Close()

	client, err := DialTCP(context.Background(), hub.Addr().String(), "alice", zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	playOver(t, hub, client)
}

func TestTCP_DisconnectEvents(t *testing.T) {
	hub, err := ListenTCP("127.0.0.1:0", "host", zerolog.Nop())
	require.NoError(t, err)
	defer hub.Close()

	client, err := DialTCP(context.Background(), hub.Addr().String(), "alice", zerolog.Nop())
	require.NoError(t, err)

	ev := nextEvent(t, hub.Events())
	require.Equal(t, netsync.EventConnected, ev.Kind)
	peerID := ev.PeerID
	_, err = uuid.Parse(peerID)
	assert.NoError(t, err, "peers get uuid ids")

	assert.Equal(t, netsync.EventConnected, nextEvent(t, client.Events()).Kind)

	require.NoError(t, client.Send(HostPeerID, models.JoinMessage{Name: "Alice"}))
	ev = nextEvent(t, hub.Events())
	require.Equal(t, netsync.EventMessage, ev.Kind)
	require.NoError(t, ev.Err)
	join, ok := ev.Message.(models.JoinMessage)
	require.True(t, ok)
	assert.Equal(t, "Alice", join.Name)

	require.NoError(t, client.Close())
	ev = nextEvent(t, hub.Events())
	assert.Equal(t, netsync.EventDisconnected, ev.Kind)
	assert.Equal(t, peerID, ev.PeerID)
	assert.Empty(t, hub.Peers())
}

func TestTCP_MalformedFrame(t *testing.T) {
	hub, err := ListenTCP("127.0.0.1:0", "host", zerolog.Nop())
	require.NoError(t, err)
	defer hub.Close()

	client, err := DialTCP(context.Background(), hub.Addr().String(), "alice", zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()
	nextEvent(t, hub.Events())

	client.mu.RLock()
	l := client.links[HostPeerID]
	client.mu.RUnlock()
	require.NotNil(t, l)
	l.send <- []byte(`{"type":"NOPE"}`)

	ev := nextEvent(t, hub.Events())
	assert.Equal(t, netsync.EventMessage, ev.Kind)
	assert.Error(t, ev.Err)
}

func TestHub_SendAfterClose(t *testing.T) {
	hub := newHub("h", zerolog.Nop())
	require.NoError(t, hub.Close())
	assert.ErrorIs(t, hub.Send("x", models.LeaveMessage{}), netsync.ErrTransportClosed)
	assert.ErrorIs(t, hub.Broadcast(models.LeaveMessage{}), netsync.ErrTransportClosed)
	_, open := <-hub.Events()
	assert.False(t, open)
	assert.NoError(t, hub.Close(), "second close is a no-op")
}

func TestHub_SendUnknownPeer(t *testing.T) {
	hub := newHub("h", zerolog.Nop())
	defer hub.Close()
	assert.ErrorIs(t, hub.Send("ghost", models.LeaveMessage{}), netsync.ErrUnknownPeer)
}

func TestHub_DuplicateAttach(t *testing.T) {
	hub := newHub("h", zerolog.Nop())
	defer hub.Close()
	noop := func([]byte) error { return nil }
	require.NoError(t, hub.attach("p", noop, nil))
	assert.Error(t, hub.attach("p", noop, nil))
}

func TestWebsocket_HostAndClient(t *testing.T) {
	hub := NewWebsocketHub("host", nil, zerolog.Nop())
	defer hub.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := hub.Accept(w, r, "alice"); err != nil {
			t.Logf("accept: %v", err)
		}
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, err := DialWebsocket(context.Background(), url, "alice", zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	playOver(t, hub, client)
}

func TestWebsocket_OriginRejected(t *testing.T) {
	hub := NewWebsocketHub("host", func(*http.Request) bool { return false }, zerolog.Nop())
	defer hub.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Accept(w, r, "alice")
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, err := DialWebsocket(context.Background(), url, "alice", zerolog.Nop())
	assert.Error(t, err)
	assert.Empty(t, hub.Peers())
}

func TestRelayFrame(t *testing.T) {
	payload, err := encodeRelayFrame("alice", relayMsg, []byte(`{"type":"LEAVE"}`))
	require.NoError(t, err)

	f, err := decodeRelayFrame(string(payload))
	require.NoError(t, err)
	assert.Equal(t, "alice", f.From)
	assert.Equal(t, relayMsg, f.Kind)
	assert.JSONEq(t, `{"type":"LEAVE"}`, string(f.Data))

	_, err = decodeRelayFrame(`{"kind":"hello"}`)
	assert.Error(t, err, "sender is required")
	_, err = decodeRelayFrame(`not json`)
	assert.Error(t, err)

	assert.Equal(t, "poker:r1:host", hostChannel("r1"))
	assert.Equal(t, "poker:r1:peer:alice", peerChannel("r1", "alice"))
}

func TestRedisRelay_HostAndClient(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb, err := NewRedisClient(ctx, RedisConfig{Addr: addr}, zerolog.Nop())
	require.NoError(t, err)
	defer rdb.Close()

	room := "test-" + uuid.NewString()
	hostSide, err := ListenRedis(ctx, rdb, room, "host", zerolog.Nop())
	require.NoError(t, err)
	defer hostSide.Close()

	clientSide, err := DialRedis(ctx, rdb, room, "alice", zerolog.Nop())
	require.NoError(t, err)
	defer clientSide.Close()

	playOver(t, hostSide, clientSide)
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewRedisClient(ctx, RedisConfig{Addr: "127.0.0.1:1"}, zerolog.Nop())
	assert.Error(t, err)
}
