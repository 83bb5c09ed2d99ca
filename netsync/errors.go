package netsync

import "errors"

var (
	ErrLobbyFull         = errors.New("lobby is full")
	ErrMatchInProgress   = errors.New("match already in progress")
	ErrNoMatch           = errors.New("no match in progress")
	ErrInvalidInvite     = errors.New("invalid invite token")
	ErrAlreadyJoined     = errors.New("peer already joined")
	ErrNotJoined         = errors.New("peer has not joined")
	ErrUnexpectedMessage = errors.New("unexpected message")
	ErrProtocol          = errors.New("protocol violation")
	ErrRateLimited       = errors.New("rate limit exceeded, slow down")
	ErrHostDisconnected  = errors.New("host disconnected")
	ErrUnknownPeer       = errors.New("unknown peer")
	ErrTransportClosed   = errors.New("transport closed")
)
