package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const MaxRoomIDLen = 64

type RoomID string

// Room is the immutable part of a room. Owner is the initiator and never changes.
type Room struct {
	ID        RoomID       `json:"id"`
	Owner     ConnectionID `json:"owner"`
	CreatedAt time.Time    `json:"created_at"`
}

func NewRoom(id RoomID, owner ConnectionID) *Room {
	return &Room{ID: id, Owner: owner, CreatedAt: time.Now()}
}

// NewRoomID generates an identifier for create-room requests that omit one.
func NewRoomID() RoomID {
	return RoomID("room_" + strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// ParseRoomID validates a caller-supplied room identifier.
func ParseRoomID(raw string) (RoomID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidRoomID
	}
	if len(raw) > MaxRoomIDLen {
		return "", ErrInvalidRoomID
	}
	return RoomID(raw), nil
}
