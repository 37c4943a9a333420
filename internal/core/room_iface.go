package core

import (
	"time"

	"github.com/dkeye/Parley/internal/domain"
)

// LeaveResult is what a departure tells the caller about the room it left.
type LeaveResult struct {
	Remaining int
	WasOwner  bool
	WasMember bool
}

type RoomInfo struct {
	ID          domain.RoomID       `json:"id"`
	Owner       domain.ConnectionID `json:"owner"`
	MemberCount int                 `json:"member_count"`
	CreatedAt   time.Time           `json:"created_at"`
}

// RoomStore owns room existence, ownership and membership.
// It never touches transport resources.
type RoomStore interface {
	CreateRoom(id domain.RoomID, owner domain.ConnectionID) (*domain.Room, error)
	JoinRoom(id domain.RoomID, conn domain.ConnectionID) error
	LeaveRoom(id domain.RoomID, conn domain.ConnectionID) (LeaveResult, error)
	// MembersOf returns a copy; callers may iterate it while the room changes.
	MembersOf(id domain.RoomID) ([]domain.ConnectionID, error)
	// DeleteRoom returns the members at the instant of removal.
	DeleteRoom(id domain.RoomID) ([]domain.ConnectionID, bool)

	Get(id domain.RoomID) (RoomInfo, bool)
	List() []RoomInfo
}
