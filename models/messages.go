package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

type MessageType string

const (
	MsgJoin           MessageType = "JOIN"
	MsgWelcome        MessageType = "WELCOME"
	MsgLobbyUpdate    MessageType = "LOBBY_UPDATE"
	MsgLobbySettings  MessageType = "LOBBY_SETTINGS"
	MsgGameStart      MessageType = "GAME_START"
	MsgStateUpdate    MessageType = "STATE_UPDATE"
	MsgAction         MessageType = "ACTION"
	MsgLeave          MessageType = "LEAVE"
	MsgHostDisconnect MessageType = "HOST_DISCONNECT"
	MsgError          MessageType = "ERROR"
)

var ErrUnknownMessage = errors.New("unknown message type")

// NetMessage is the closed set of messages exchanged between host and peers.
type NetMessage interface {
	Type() MessageType
}

type JoinMessage struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Token     string `json:"token,omitempty"`
}

type WelcomeMessage struct {
	Config Settings `json:"config"`
	PeerID string   `json:"peerId"`
}

type LobbyPeer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	IsHost    bool   `json:"isHost,omitempty"`
}

type LobbyUpdateMessage struct {
	Peers []LobbyPeer `json:"peers"`
}

type LobbySettingsMessage struct {
	Settings Settings `json:"settings"`
}

type GameStartMessage struct {
	State *GameState `json:"state"`
}

type StateUpdateMessage struct {
	State *GameState `json:"state"`
}

type ActionMessage struct {
	Action ActionType `json:"action"`
	Amount int        `json:"amount,omitempty"`
}

type LeaveMessage struct{}

type HostDisconnectMessage struct{}

type ErrorMessage struct {
	Message string `json:"message"`
}

func (JoinMessage) Type() MessageType           { return MsgJoin }
func (WelcomeMessage) Type() MessageType        { return MsgWelcome }
func (LobbyUpdateMessage) Type() MessageType    { return MsgLobbyUpdate }
func (LobbySettingsMessage) Type() MessageType  { return MsgLobbySettings }
func (GameStartMessage) Type() MessageType      { return MsgGameStart }
func (StateUpdateMessage) Type() MessageType    { return MsgStateUpdate }
func (ActionMessage) Type() MessageType         { return MsgAction }
func (LeaveMessage) Type() MessageType          { return MsgLeave }
func (HostDisconnectMessage) Type() MessageType { return MsgHostDisconnect }
func (ErrorMessage) Type() MessageType          { return MsgError }

// Envelope is the wire frame: {"type": ..., "payload": {...}}.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func EncodeMessage(msg NetMessage) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", msg.Type(), err)
	}
	return json.Marshal(Envelope{Type: msg.Type(), Payload: payload})
}

func DecodeMessage(data []byte) (NetMessage, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	var msg NetMessage
	switch env.Type {
	case MsgJoin:
		msg = &JoinMessage{}
	case MsgWelcome:
		msg = &WelcomeMessage{}
	case MsgLobbyUpdate:
		msg = &LobbyUpdateMessage{}
	case MsgLobbySettings:
		msg = &LobbySettingsMessage{}
	case MsgGameStart:
		msg = &GameStartMessage{}
	case MsgStateUpdate:
		msg = &StateUpdateMessage{}
	case MsgAction:
		msg = &ActionMessage{}
	case MsgLeave:
		return LeaveMessage{}, nil
	case MsgHostDisconnect:
		return HostDisconnectMessage{}, nil
	case MsgError:
		msg = &ErrorMessage{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
	}

	if len(env.Payload) > 0 && string(env.Payload) != "null" {
		if err := json.Unmarshal(env.Payload, msg); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
	}
	return deref(msg), nil
}

// deref hands values, not pointers, to callers so type switches stay uniform.
func deref(msg NetMessage) NetMessage {
	switch m := msg.(type) {
	case *JoinMessage:
		return *m
	case *WelcomeMessage:
		return *m
	case *LobbyUpdateMessage:
		return *m
	case *LobbySettingsMessage:
		return *m
	case *GameStartMessage:
		return *m
	case *StateUpdateMessage:
		return *m
	case *ActionMessage:
		return *m
	case *ErrorMessage:
		return *m
	}
	return msg
}
