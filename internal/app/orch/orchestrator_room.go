package orch

import (
	"errors"
	"slices"

	"github.com/dkeye/Parley/internal/domain"
	"github.com/dkeye/Parley/internal/protocol"
	"github.com/rs/zerolog/log"
)

// CreateRoom creates a room owned by id. An empty raw id asks the server to
// generate one.
func (o *Orchestrator) CreateRoom(id domain.ConnectionID, raw string) (domain.RoomID, error) {
	roomID := domain.NewRoomID()
	if raw != "" {
		parsed, err := domain.ParseRoomID(raw)
		if err != nil {
			return "", o.reject(id, err)
		}
		roomID = parsed
	}
	if _, ok := o.Registry.RoomOf(id); ok {
		return "", o.reject(id, domain.ErrAlreadyInRoom)
	}

	// Bind before the room exists so a concurrent closure can always find
	// and unbind every member it notifies.
	if err := o.Registry.Bind(id, roomID); err != nil {
		return "", err
	}
	if _, err := o.Rooms.CreateRoom(roomID, id); err != nil {
		o.Registry.UnbindIf(id, roomID)
		return "", o.reject(id, err)
	}
	o.send(id, protocol.TypeRoomCreated, protocol.RoomCreated{RoomID: string(roomID)})
	return roomID, nil
}

func (o *Orchestrator) JoinRoom(id domain.ConnectionID, raw string) error {
	roomID, err := domain.ParseRoomID(raw)
	if err != nil {
		return o.reject(id, err)
	}
	if bound, ok := o.Registry.RoomOf(id); ok {
		if bound != roomID {
			return o.reject(id, domain.ErrAlreadyInRoom)
		}
		o.sendRoomJoined(id, roomID)
		return nil
	}

	if err := o.Registry.Bind(id, roomID); err != nil {
		return err
	}
	if err := o.Rooms.JoinRoom(roomID, id); err != nil {
		o.Registry.UnbindIf(id, roomID)
		return o.reject(id, err)
	}

	others := o.sendRoomJoined(id, roomID)
	o.broadcast(others, protocol.TypeUserJoined, protocol.UserEvent{UserID: string(id)})
	log.Info().Str("module", "orch").Str("conn", string(id)).Str("room", string(roomID)).Int("others", len(others)).Msg("joined room")
	return nil
}

// sendRoomJoined acks the join and returns the other members.
func (o *Orchestrator) sendRoomJoined(id domain.ConnectionID, roomID domain.RoomID) []domain.ConnectionID {
	members, err := o.Rooms.MembersOf(roomID)
	if err != nil {
		// Closed between join and ack; the closure path notifies id.
		return nil
	}
	info, _ := o.Rooms.Get(roomID)
	resp := protocol.RoomJoined{
		RoomID:  string(roomID),
		Owner:   string(info.Owner),
		Members: make([]string, 0, len(members)),
	}
	for _, m := range members {
		resp.Members = append(resp.Members, string(m))
	}
	slices.Sort(resp.Members)
	o.send(id, protocol.TypeRoomJoined, resp)
	return slices.DeleteFunc(members, func(m domain.ConnectionID) bool { return m == id })
}

// LeaveRoom handles an explicit leave. A leave naming a room the connection
// is not bound to is dropped without a reply.
func (o *Orchestrator) LeaveRoom(id domain.ConnectionID, raw string) error {
	roomID := domain.RoomID(raw)
	bound, ok := o.Registry.RoomOf(id)
	if !ok || bound != roomID {
		log.Debug().Str("module", "orch").Str("conn", string(id)).Str("room", raw).Msg("leave for foreign room dropped")
		return domain.ErrNotAMember
	}
	if !o.Registry.UnbindIf(id, roomID) {
		return domain.ErrNotAMember
	}
	o.depart(id, roomID)
	o.send(id, protocol.TypeRoomLeft, protocol.RoomLeft{RoomID: string(roomID)})
	return nil
}

// depart removes id from roomID, notifies the remaining members and applies
// the closure policy. The caller has already unbound id.
func (o *Orchestrator) depart(id domain.ConnectionID, roomID domain.RoomID) {
	res, err := o.Rooms.LeaveRoom(roomID, id)
	if err != nil {
		if !errors.Is(err, domain.ErrRoomNotFound) {
			log.Error().Err(err).Str("module", "orch").Str("room", string(roomID)).Msg("leave")
		}
		return
	}
	if !res.WasMember {
		return
	}

	if remaining, err := o.Rooms.MembersOf(roomID); err == nil {
		o.broadcast(remaining, protocol.TypeUserLeft, protocol.UserEvent{UserID: string(id)})
	}

	if !o.Closure.ShouldClose(res) {
		return
	}
	o.closeRoom(roomID)
}

func (o *Orchestrator) closeRoom(roomID domain.RoomID) {
	members, ok := o.Rooms.DeleteRoom(roomID)
	if !ok {
		return
	}
	for _, m := range members {
		o.Registry.UnbindIf(m, roomID)
	}
	notified := o.broadcast(members, protocol.TypeRoomClosed, protocol.RoomClosed{RoomID: string(roomID)})
	log.Info().Str("module", "orch").Str("room", string(roomID)).Str("policy", o.Closure.String()).Int("members", len(members)).Int("notified", notified).Msg("room closed")
}

// EvictRoom closes a room regardless of policy.
func (o *Orchestrator) EvictRoom(roomID domain.RoomID) bool {
	if _, ok := o.Rooms.Get(roomID); !ok {
		return false
	}
	o.closeRoom(roomID)
	return true
}
