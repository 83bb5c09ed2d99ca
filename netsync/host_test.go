package netsync

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocket-poker/bot"
	"pocket-poker/engine"
	"pocket-poker/models"
)

const waitFor = 2 * time.Second

type harness struct {
	network *MemoryNetwork
	host    *Host
}

func testHostConfig() HostConfig {
	settings := models.DefaultSettings()
	settings.AnteAmount = 0
	return HostConfig{Name: "Hank", Settings: settings}
}

func newHarness(t *testing.T, cfg HostConfig, opts ...HostOption) *harness {
	t.Helper()
	network := NewMemoryNetwork()
	tr, err := network.Listen("host")
	require.NoError(t, err)

	opts = append([]HostOption{
		WithEngineOptions(engine.WithRand(rand.New(rand.NewSource(21)))),
		WithRunnerOptions(bot.WithThinkingDelay(0)),
	}, opts...)
	host := NewHost(tr, cfg, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = host.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = host.Close()
	})
	return &harness{network: network, host: host}
}

// peer is a joined client plus what it has seen.
type peer struct {
	client    *Client
	transport *MemoryTransport
	done      chan error

	mu     sync.Mutex
	errors []string
	ended  error
}

func (p *peer) lastError() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.errors) == 0 {
		return ""
	}
	return p.errors[len(p.errors)-1]
}

func (h *harness) dial(t *testing.T, id, name string, opts ...ClientOption) *peer {
	t.Helper()
	tr, err := h.network.Dial("host", id)
	require.NoError(t, err)

	p := &peer{transport: tr, done: make(chan error, 1)}
	opts = append(opts,
		OnServerError(func(msg string) {
			p.mu.Lock()
			p.errors = append(p.errors, msg)
			p.mu.Unlock()
		}),
		OnMatchEnded(func(err error) {
			p.mu.Lock()
			p.ended = err
			p.mu.Unlock()
		}),
	)
	p.client = NewClient(tr, name, opts...)
	go func() { p.done <- p.client.Run(context.Background()) }()
	t.Cleanup(func() { _ = tr.Close() })
	return p
}

func (h *harness) join(t *testing.T, id, name string, opts ...ClientOption) *peer {
	t.Helper()
	p := h.dial(t, id, name, opts...)
	require.Eventually(t, func() bool { return p.client.PeerID() == id }, waitFor, 5*time.Millisecond)
	return p
}

func TestHost_JoinBroadcastsLobby(t *testing.T) {
	h := newHarness(t, testHostConfig())

	alice := h.join(t, "alice", "Alice")
	bob := h.join(t, "bob", "Bob")

	assert.Eventually(t, func() bool { return len(alice.client.Lobby()) == 3 }, waitFor, 5*time.Millisecond)
	lobby := alice.client.Lobby()
	assert.Equal(t, "Hank", lobby[0].Name)
	assert.True(t, lobby[0].IsHost)
	assert.Equal(t, []string{"host", "alice", "bob"}, []string{lobby[0].ID, lobby[1].ID, lobby[2].ID})

	assert.Equal(t, 6, bob.client.Settings().MaxSeats)
	assert.Len(t, h.host.Roster(), 3)
}

func TestHost_RefusesJoin(t *testing.T) {
	t.Run("lobby full", func(t *testing.T) {
		cfg := testHostConfig()
		cfg.Settings.MaxSeats = 3
		cfg.Bots = []BotSpec{{Style: models.StylePassive}}
		h := newHarness(t, cfg)

		h.join(t, "alice", "Alice")
		late := h.dial(t, "bob", "Bob")
		assert.Eventually(t, func() bool { return late.lastError() == ErrLobbyFull.Error() }, waitFor, 5*time.Millisecond)
		assert.Empty(t, late.client.PeerID())
	})

	t.Run("match running", func(t *testing.T) {
		h := newHarness(t, testHostConfig())
		h.join(t, "alice", "Alice")
		require.NoError(t, h.host.StartMatch())

		late := h.dial(t, "bob", "Bob")
		assert.Eventually(t, func() bool { return late.lastError() == ErrMatchInProgress.Error() }, waitFor, 5*time.Millisecond)
	})

	t.Run("invite token", func(t *testing.T) {
		invites := NewInviteService("s3cret", "room-1")
		h := newHarness(t, testHostConfig(), WithInvites(invites))

		stranger := h.dial(t, "mallory", "Mallory")
		assert.Eventually(t, func() bool {
			return strings.HasPrefix(stranger.lastError(), ErrInvalidInvite.Error())
		}, waitFor, 5*time.Millisecond)

		token, err := invites.Issue(time.Minute)
		require.NoError(t, err)
		h.join(t, "alice", "Alice", WithInviteToken(token))
	})
}

func TestHost_MatchSyncsSanitizedState(t *testing.T) {
	h := newHarness(t, testHostConfig())
	alice := h.join(t, "alice", "Alice")

	require.NoError(t, h.host.StartMatch())
	require.Eventually(t, func() bool {
		st := alice.client.State()
		return st != nil && st.Phase == models.PhasePreFlop
	}, waitFor, 5*time.Millisecond)

	st := alice.client.State()
	assert.Len(t, st.SeatByID("alice").HoleCards, 2)
	assert.Empty(t, st.SeatByID("host").HoleCards)
	assert.True(t, alice.client.InMatch())

	// heads-up, the host deals and acts first
	require.Equal(t, "host", st.CurrentSeatID)
	assert.Empty(t, alice.client.LegalActions())

	require.NoError(t, alice.client.SubmitAction(models.ActionCall, 0))
	assert.Eventually(t, func() bool {
		return strings.Contains(alice.lastError(), engine.ErrNotYourTurn.Error())
	}, waitFor, 5*time.Millisecond)

	require.NoError(t, h.host.SubmitAction(models.ActionCall, 0))
	require.Eventually(t, func() bool {
		st := alice.client.State()
		return st != nil && st.CurrentSeatID == "alice"
	}, waitFor, 5*time.Millisecond)
	assert.Contains(t, alice.client.LegalActions(), models.ActionCheck)

	require.NoError(t, alice.client.SubmitAction(models.ActionCheck, 0))
	assert.Eventually(t, func() bool {
		st := alice.client.State()
		return st != nil && st.Phase == models.PhaseFlop && len(st.CommunityCards) == 3
	}, waitFor, 5*time.Millisecond)
}

func TestHost_BotsPlayRemoteHands(t *testing.T) {
	cfg := testHostConfig()
	cfg.Bots = []BotSpec{{Style: models.StyleAggressive}, {Style: models.StylePassive}}

	var mu sync.Mutex
	var seen []uint64
	observer := func(st *models.GameState) {
		mu.Lock()
		seen = append(seen, st.Sequence)
		mu.Unlock()
	}
	h := newHarness(t, cfg, WithStateObserver(observer))
	alice := h.join(t, "alice", "Alice")

	require.NoError(t, h.host.StartMatch())
	require.Len(t, h.host.Engine().Snapshot().Seats, 4)

	// the humans fold whenever it is their turn; the bots finish the hand
	assert.Eventually(t, func() bool {
		st := h.host.Engine().Snapshot()
		switch st.CurrentSeatID {
		case "host":
			_ = h.host.SubmitAction(models.ActionFold, 0)
		case "alice":
			_ = alice.client.SubmitAction(models.ActionFold, 0)
		}
		return st.Phase == models.PhaseShowdown
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.NotEmpty(t, seen)
}

func TestHost_DisconnectFoldsSeat(t *testing.T) {
	h := newHarness(t, testHostConfig())
	h.join(t, "alice", "Alice")
	require.NoError(t, h.host.StartMatch())

	h.network.Sever("host", "alice")

	assert.Eventually(t, func() bool {
		seat := h.host.Engine().Snapshot().SeatByID("alice")
		return seat.HasLeft && !seat.IsActive
	}, waitFor, 5*time.Millisecond)

	st := h.host.Engine().Snapshot()
	assert.Equal(t, "Alice (left)", st.SeatByID("alice").Name)
	assert.Equal(t, models.PhaseShowdown, st.Phase)
	assert.Equal(t, []string{"host"}, st.Winners)
	assert.Len(t, h.host.Roster(), 1)
}

func TestHost_LeaveInLobby(t *testing.T) {
	h := newHarness(t, testHostConfig())
	alice := h.join(t, "alice", "Alice")
	bob := h.join(t, "bob", "Bob")

	require.NoError(t, bob.client.Leave())
	assert.Eventually(t, func() bool { return len(alice.client.Lobby()) == 2 }, waitFor, 5*time.Millisecond)
	assert.Len(t, h.host.Roster(), 2)
}

func TestHost_CloseEndsClientMatch(t *testing.T) {
	h := newHarness(t, testHostConfig())
	alice := h.join(t, "alice", "Alice")
	require.NoError(t, h.host.StartMatch())
	require.Eventually(t, func() bool { return alice.client.State() != nil }, waitFor, 5*time.Millisecond)

	require.NoError(t, h.host.Close())

	select {
	case err := <-alice.done:
		assert.ErrorIs(t, err, ErrHostDisconnected)
	case <-time.After(waitFor):
		t.Fatal("client never noticed the host leaving")
	}
	assert.Nil(t, alice.client.State())
	assert.False(t, alice.client.InMatch())
	alice.mu.Lock()
	assert.ErrorIs(t, alice.ended, ErrHostDisconnected)
	alice.mu.Unlock()
}

func TestHost_RateLimitsPeers(t *testing.T) {
	cfg := testHostConfig()
	cfg.RateLimit = RateLimiterConfig{MessagesPerSecond: 0.01, BurstSize: 1}
	h := newHarness(t, cfg)
	alice := h.join(t, "alice", "Alice")

	require.NoError(t, alice.transport.Send("host", models.ActionMessage{Action: models.ActionCheck}))
	assert.Eventually(t, func() bool { return alice.lastError() == ErrRateLimited.Error() }, waitFor, 5*time.Millisecond)
}

func TestHost_RejectsUnexpectedMessages(t *testing.T) {
	h := newHarness(t, testHostConfig())
	alice := h.join(t, "alice", "Alice")

	require.NoError(t, alice.transport.Send("host", models.WelcomeMessage{PeerID: "alice"}))
	assert.Eventually(t, func() bool {
		return strings.HasPrefix(alice.lastError(), ErrUnexpectedMessage.Error())
	}, waitFor, 5*time.Millisecond)

	require.NoError(t, alice.transport.Send("host", models.ActionMessage{Action: models.ActionCheck}))
	assert.Eventually(t, func() bool { return alice.lastError() == ErrNoMatch.Error() }, waitFor, 5*time.Millisecond)
}

func TestHost_AutoNextHand(t *testing.T) {
	cfg := testHostConfig()
	cfg.AutoNextHand = 20 * time.Millisecond
	h := newHarness(t, cfg)
	h.join(t, "alice", "Alice")
	require.NoError(t, h.host.StartMatch())

	require.NoError(t, h.host.SubmitAction(models.ActionFold, 0))
	assert.Eventually(t, func() bool {
		st := h.host.Engine().Snapshot()
		return st.HandNumber == 2 && st.Phase == models.PhasePreFlop
	}, waitFor, 5*time.Millisecond)
}

func TestHost_DedicatedHostIsNotSeated(t *testing.T) {
	cfg := testHostConfig()
	cfg.Dedicated = true
	cfg.Settings.MaxSeats = 2
	h := newHarness(t, cfg)
	h.join(t, "alice", "Alice")
	h.join(t, "bob", "Bob")

	carol := h.dial(t, "carol", "Carol")
	assert.Eventually(t, func() bool { return carol.lastError() == ErrLobbyFull.Error() }, waitFor, 5*time.Millisecond)

	require.NoError(t, h.host.StartMatch())
	st := h.host.Engine().Snapshot()
	require.Len(t, st.Seats, 2)
	assert.Nil(t, st.SeatByID("host"))
	assert.ErrorIs(t, h.host.SubmitAction(models.ActionFold, 0), ErrNotJoined)
}
