package app

import (
	"fmt"
	"slices"

	"github.com/dkeye/Parley/internal/core"
	"github.com/dkeye/Parley/internal/domain"
	"github.com/rs/zerolog/log"
)

// Relay fans frames out from one member of a room to the others. The
// audience is computed at dispatch time and frames are never queued here.
type Relay struct {
	Registry *Registry
	Rooms    core.RoomStore
	Policy   Policy
}

func NewRelay(reg *Registry, rooms core.RoomStore, policy Policy) *Relay {
	return &Relay{Registry: reg, Rooms: rooms, Policy: policy}
}

// audience returns the current members of room other than from, or
// ErrNotAMember when from is not bound to room.
func (r *Relay) audience(from domain.ConnectionID, room domain.RoomID) ([]domain.ConnectionID, error) {
	bound, ok := r.Registry.RoomOf(from)
	if !ok || bound != room {
		return nil, fmt.Errorf("%s -> %s: %w", from, room, domain.ErrNotAMember)
	}
	members, err := r.Rooms.MembersOf(room)
	if err != nil {
		return nil, fmt.Errorf("%s -> %s: %w", from, room, domain.ErrNotAMember)
	}
	if !slices.Contains(members, from) {
		return nil, fmt.Errorf("%s -> %s: %w", from, room, domain.ErrNotAMember)
	}
	return slices.DeleteFunc(members, func(id domain.ConnectionID) bool { return id == from }), nil
}

// Dispatch sends frame to every other current member of room.
func (r *Relay) Dispatch(from domain.ConnectionID, room domain.RoomID, frame core.Frame) (core.PublishResult, error) {
	targets, err := r.audience(from, room)
	if err != nil {
		return core.PublishResult{}, err
	}
	return r.publish(from, room, targets, frame), nil
}

// DispatchTo sends frame to a single other member of room.
func (r *Relay) DispatchTo(from domain.ConnectionID, room domain.RoomID, to domain.ConnectionID, frame core.Frame) (core.PublishResult, error) {
	targets, err := r.audience(from, room)
	if err != nil {
		return core.PublishResult{}, err
	}
	if !slices.Contains(targets, to) {
		return core.PublishResult{}, fmt.Errorf("%s -> %s in %s: %w", from, to, room, domain.ErrNotAMember)
	}
	return r.publish(from, room, []domain.ConnectionID{to}, frame), nil
}

func (r *Relay) publish(from domain.ConnectionID, room domain.RoomID, targets []domain.ConnectionID, frame core.Frame) core.PublishResult {
	res := core.PublishResult{}
	for _, id := range targets {
		conn, ok := r.Registry.Conn(id)
		if !ok {
			continue
		}
		if err := conn.TrySend(frame); err != nil {
			res.Dropped = append(res.Dropped, id)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "app.relay").Str("from", string(from)).Str("room", string(room)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("relay result")

	if r.Policy == nil {
		return res
	}
	for _, slow := range res.Dropped {
		switch r.Policy.OnBackPressure(room, slow) {
		case KickMember:
			log.Warn().Str("module", "app.relay").Str("conn", string(slow)).Str("room", string(room)).Msg("kicking slow member")
			r.Registry.Cancel(slow)
		case DropFrame, NoAction:
		}
	}
	return res
}
