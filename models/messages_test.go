package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMessage_Action(t *testing.T) {
	data, err := EncodeMessage(ActionMessage{Action: ActionRaise, Amount: 120})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ACTION","payload":{"action":"RAISE","amount":120}}`, string(data))

	msg, err := DecodeMessage(data)
	require.NoError(t, err)
	action, ok := msg.(ActionMessage)
	require.True(t, ok)
	assert.Equal(t, ActionRaise, action.Action)
	assert.Equal(t, 120, action.Amount)
}

func TestDecodeMessage_EmptyPayloads(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"type":"LEAVE"}`))
	require.NoError(t, err)
	assert.Equal(t, MsgLeave, msg.Type())

	msg, err = DecodeMessage([]byte(`{"type":"HOST_DISCONNECT","payload":{}}`))
	require.NoError(t, err)
	assert.Equal(t, MsgHostDisconnect, msg.Type())
}

func TestDecodeMessage_UnknownType(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"type":"SHUFFLE_DECK","payload":{}}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownMessage))
}

func TestDecodeMessage_StateCarriesNoDeck(t *testing.T) {
	state := &GameState{Phase: PhaseFlop, Seats: []*Seat{NewSeat("a", "Alice", 100)}}
	data, err := EncodeMessage(StateUpdateMessage{State: state})
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"deck":`)

	msg, err := DecodeMessage(data)
	require.NoError(t, err)
	update := msg.(StateUpdateMessage)
	assert.Equal(t, PhaseFlop, update.State.Phase)
	assert.Equal(t, "Alice", update.State.Seats[0].Name)
}
