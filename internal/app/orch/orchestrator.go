package orch

import (
	"context"

	"github.com/dkeye/Parley/internal/app"
	"github.com/dkeye/Parley/internal/core"
	"github.com/dkeye/Parley/internal/domain"
	"github.com/dkeye/Parley/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Orchestrator is the session lifecycle controller. Each method handles one
// inbound event and is called from the originating connection's read loop.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomStore
	Relay    *app.Relay
	Closure  app.ClosurePolicy
}

func New(reg *app.Registry, rooms core.RoomStore, policy app.Policy, closure app.ClosurePolicy) *Orchestrator {
	return &Orchestrator{
		Registry: reg,
		Rooms:    rooms,
		Relay:    app.NewRelay(reg, rooms, policy),
		Closure:  closure,
	}
}

func (o *Orchestrator) Connect(id domain.ConnectionID, conn core.SignalConnection, cancel context.CancelFunc) {
	o.Registry.Register(id, conn, cancel)
	log.Info().Str("module", "orch").Str("conn", string(id)).Msg("connected")
}

// Disconnect runs registry cleanup and room closure evaluation. Repeated
// calls for the same connection are no-ops.
func (o *Orchestrator) Disconnect(id domain.ConnectionID) {
	room, ok := o.Registry.Unregister(id)
	if !ok {
		log.Info().Str("module", "orch").Str("conn", string(id)).Msg("disconnected")
		return
	}
	log.Info().Str("module", "orch").Str("conn", string(id)).Str("room", string(room)).Msg("disconnected from room")
	o.depart(id, room)
}

// WhoAmI reports the connection's current room, if any.
func (o *Orchestrator) WhoAmI(id domain.ConnectionID) {
	resp := protocol.WhoAmI{UserID: string(id)}
	if room, ok := o.Registry.RoomOf(id); ok {
		resp.RoomID = string(room)
	}
	o.send(id, protocol.TypeWhoAmI, resp)
}

func (o *Orchestrator) send(id domain.ConnectionID, typ string, v any) {
	frame, err := protocol.Encode(typ, v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("type", typ).Msg("encode")
		return
	}
	o.sendFrame(id, frame)
}

// sendFrame delivers a lifecycle frame. These frames cannot be dropped, so
// a connection that cannot take one is kicked and goes through Disconnect.
func (o *Orchestrator) sendFrame(id domain.ConnectionID, frame []byte) bool {
	conn, ok := o.Registry.Conn(id)
	if !ok {
		return false
	}
	if err := conn.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("conn", string(id)).Msg("send failed, kicking")
		o.Registry.Cancel(id)
		return false
	}
	return true
}

// reject reports err to the originating connection only.
func (o *Orchestrator) reject(id domain.ConnectionID, err error) error {
	log.Info().Err(err).Str("module", "orch").Str("conn", string(id)).Msg("request rejected")
	o.sendFrame(id, protocol.ErrorFrame(err))
	return err
}

// broadcast returns how many of ids actually got the frame.
func (o *Orchestrator) broadcast(ids []domain.ConnectionID, typ string, v any) int {
	if len(ids) == 0 {
		return 0
	}
	frame, err := protocol.Encode(typ, v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("type", typ).Msg("encode")
		return 0
	}
	delivered := 0
	for _, id := range ids {
		if o.sendFrame(id, frame) {
			delivered++
		}
	}
	return delivered
}
