package app

import (
	"fmt"
	"strings"

	"github.com/dkeye/Parley/internal/core"
	"github.com/dkeye/Parley/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

type Policy interface {
	OnBackPressure(room domain.RoomID, member domain.ConnectionID) BackpressureAction
}

// SimplePolicy disconnects recipients that cannot keep up.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(domain.RoomID, domain.ConnectionID) BackpressureAction {
	return KickMember
}

// LossyPolicy drops the frame for the slow recipient and keeps it connected.
type LossyPolicy struct{}

func (LossyPolicy) OnBackPressure(domain.RoomID, domain.ConnectionID) BackpressureAction {
	return DropFrame
}

// ClosurePolicy decides when a departure closes a room.
type ClosurePolicy int

const (
	// CloseWhenOwnerLeaves closes the room when its owner departs or when it
	// becomes empty.
	CloseWhenOwnerLeaves ClosurePolicy = iota
	// CloseWhenEmpty closes the room only once its member set is empty.
	CloseWhenEmpty
)

func (p ClosurePolicy) ShouldClose(res core.LeaveResult) bool {
	if res.Remaining == 0 {
		return true
	}
	return p == CloseWhenOwnerLeaves && res.WasOwner
}

func (p ClosurePolicy) String() string {
	switch p {
	case CloseWhenOwnerLeaves:
		return "owner"
	case CloseWhenEmpty:
		return "empty"
	default:
		return fmt.Sprintf("ClosurePolicy(%d)", int(p))
	}
}

func ParseClosurePolicy(s string) (ClosurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "owner":
		return CloseWhenOwnerLeaves, nil
	case "empty":
		return CloseWhenEmpty, nil
	default:
		return 0, fmt.Errorf("unknown closure policy %q (want owner or empty)", s)
	}
}
