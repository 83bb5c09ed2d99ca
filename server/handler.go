package server

import (
	"encoding/json"
	"fmt"
	"strconv"

	"pocket-poker/models"
)

// Command is one control request, sent over the control port or POST /api/command.
type Command struct {
	Command string                 `json:"command"`
	Data    map[string]interface{} `json:"data"`
}

type Response struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type CommandHandler struct {
	rooms *RoomManager
}

func NewCommandHandler(rooms *RoomManager) *CommandHandler {
	return &CommandHandler{rooms: rooms}
}

func (h *CommandHandler) Handle(cmd Command) Response {
	switch cmd.Command {
	case "room.create":
		return h.handleCreateRoom(cmd.Data)
	case "room.destroy":
		return h.handleDestroyRoom(cmd.Data)
	case "room.get":
		return h.handleGetRoom(cmd.Data)
	case "room.list":
		return h.handleListRooms()
	case "room.settings":
		return h.handleUpdateSettings(cmd.Data)
	case "room.invite":
		return h.handleInvite(cmd.Data)
	case "room.history":
		return h.handleHistory(cmd.Data)
	case "match.start":
		return h.handleStartMatch(cmd.Data)
	case "match.nextHand":
		return h.handleNextHand(cmd.Data)
	default:
		return Response{Success: false, Error: fmt.Sprintf("unknown command: %s", cmd.Command)}
	}
}

func (h *CommandHandler) handleCreateRoom(data map[string]interface{}) Response {
	var req CreateRoomRequest
	if err := decodeData(data, &req); err != nil {
		return failure(err)
	}
	info, err := h.rooms.CreateRoom(req)
	if err != nil {
		return failure(err)
	}
	return Response{Success: true, Data: info}
}

func (h *CommandHandler) handleDestroyRoom(data map[string]interface{}) Response {
	if err := h.rooms.DestroyRoom(getString(data, "roomId")); err != nil {
		return failure(err)
	}
	return Response{Success: true}
}

func (h *CommandHandler) handleGetRoom(data map[string]interface{}) Response {
	info, err := h.rooms.GetRoom(getString(data, "roomId"))
	if err != nil {
		return failure(err)
	}
	return Response{Success: true, Data: info}
}

func (h *CommandHandler) handleListRooms() Response {
	return Response{Success: true, Data: map[string]interface{}{"rooms": h.rooms.ListRooms()}}
}

func (h *CommandHandler) handleUpdateSettings(data map[string]interface{}) Response {
	var req struct {
		Settings models.Settings `json:"settings"`
	}
	if err := decodeData(data, &req); err != nil {
		return failure(err)
	}
	if err := h.rooms.UpdateSettings(getString(data, "roomId"), req.Settings); err != nil {
		return failure(err)
	}
	return Response{Success: true}
}

func (h *CommandHandler) handleInvite(data map[string]interface{}) Response {
	token, err := h.rooms.Invite(getString(data, "roomId"))
	if err != nil {
		return failure(err)
	}
	return Response{Success: true, Data: map[string]string{"token": token}}
}

func (h *CommandHandler) handleHistory(data map[string]interface{}) Response {
	hands, err := h.rooms.History(getString(data, "roomId"), getInt(data, "limit"))
	if err != nil {
		return failure(err)
	}
	return Response{Success: true, Data: map[string]interface{}{"hands": hands}}
}

func (h *CommandHandler) handleStartMatch(data map[string]interface{}) Response {
	if err := h.rooms.StartMatch(getString(data, "roomId")); err != nil {
		return failure(err)
	}
	return Response{Success: true}
}

func (h *CommandHandler) handleNextHand(data map[string]interface{}) Response {
	if err := h.rooms.NextHand(getString(data, "roomId")); err != nil {
		return failure(err)
	}
	return Response{Success: true}
}

func failure(err error) Response {
	return Response{Success: false, Error: err.Error()}
}

// decodeData maps a loosely typed command payload onto a request struct.
func decodeData(data map[string]interface{}, v interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRoomInput, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRoomInput, err)
	}
	return nil
}

func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func getInt(data map[string]interface{}, key string) int {
	if val, ok := data[key]; ok {
		switch v := val.(type) {
		case float64:
			return int(v)
		case int:
			return v
		case string:
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
	}
	return 0
}
