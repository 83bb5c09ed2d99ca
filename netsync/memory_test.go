package netsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocket-poker/models"
)

func nextEvent(t *testing.T, tr Transport) TransportEvent {
	t.Helper()
	select {
	case ev, ok := <-tr.Events():
		require.True(t, ok, "event stream closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event")
	}
	return TransportEvent{}
}

func TestMemoryTransport_RoundTrip(t *testing.T) {
	network := NewMemoryNetwork()
	host, err := network.Listen("host")
	require.NoError(t, err)
	defer host.Close()

	_, err = network.Listen("host")
	assert.Error(t, err)

	peer, err := network.Dial("host", "p1")
	require.NoError(t, err)
	defer peer.Close()

	ev := nextEvent(t, host)
	assert.Equal(t, EventConnected, ev.Kind)
	assert.Equal(t, "p1", ev.PeerID)
	assert.Equal(t, EventConnected, nextEvent(t, peer).Kind)

	require.NoError(t, peer.Send("host", models.JoinMessage{Name: "Pat"}))
	ev = nextEvent(t, host)
	assert.Equal(t, EventMessage, ev.Kind)
	assert.Equal(t, models.JoinMessage{Name: "Pat"}, ev.Message)

	require.NoError(t, host.Broadcast(models.ErrorMessage{Message: "nope"}))
	assert.Equal(t, models.ErrorMessage{Message: "nope"}, nextEvent(t, peer).Message)

	assert.ErrorIs(t, host.Send("ghost", models.LeaveMessage{}), ErrUnknownPeer)
	_, err = network.Dial("nowhere", "p2")
	assert.ErrorIs(t, err, ErrUnknownPeer)
}

// States are copied through the codec, never shared.
func TestMemoryTransport_NoSharedState(t *testing.T) {
	network := NewMemoryNetwork()
	host, _ := network.Listen("host")
	defer host.Close()
	peer, _ := network.Dial("host", "p1")
	defer peer.Close()
	nextEvent(t, host)
	nextEvent(t, peer)

	st := &models.GameState{Phase: models.PhaseFlop, Pot: 30, Seats: []*models.Seat{models.NewSeat("a", "A", 10)}}
	require.NoError(t, host.Send("p1", models.StateUpdateMessage{State: st}))
	got := nextEvent(t, peer).Message.(models.StateUpdateMessage)

	st.Pot = 999
	st.Seats[0].Chips = 0
	assert.Equal(t, 30, got.State.Pot)
	assert.Equal(t, 10, got.State.Seats[0].Chips)
}

func TestMemoryTransport_CloseDisconnectsPeers(t *testing.T) {
	network := NewMemoryNetwork()
	host, _ := network.Listen("host")
	peer, _ := network.Dial("host", "p1")
	defer peer.Close()
	nextEvent(t, host)
	nextEvent(t, peer)

	require.NoError(t, host.Close())
	ev := nextEvent(t, peer)
	assert.Equal(t, EventDisconnected, ev.Kind)
	assert.Equal(t, "host", ev.PeerID)

	assert.ErrorIs(t, host.Send("p1", models.LeaveMessage{}), ErrTransportClosed)
	_, ok := <-host.Events()
	assert.False(t, ok)
}
