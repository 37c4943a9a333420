package app

import (
	"context"
	"sync"

	"github.com/dkeye/Parley/internal/core"
	"github.com/dkeye/Parley/internal/domain"
	"github.com/rs/zerolog/log"
)

type connEntry struct {
	Room   domain.RoomID
	Conn   core.SignalConnection
	Cancel context.CancelFunc
}

// Registry is the authoritative record of live connections and the room,
// if any, each one is bound to.
type Registry struct {
	mu    sync.RWMutex
	conns map[domain.ConnectionID]*connEntry
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[domain.ConnectionID]*connEntry),
	}
}

// Register makes id known with no room. Registering a known id replaces its
// transport endpoint and keeps the binding.
func (r *Registry) Register(id domain.ConnectionID, conn core.SignalConnection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.conns[id]; ok {
		e.Conn = conn
		e.Cancel = cancel
		return
	}
	r.conns[id] = &connEntry{Conn: conn, Cancel: cancel}
	log.Debug().Str("module", "app.registry").Str("conn", string(id)).Msg("registered")
}

// Unregister forgets id and returns the room it was bound to. Only the first
// call for a given registration observes the room.
func (r *Registry) Unregister(id domain.ConnectionID) (domain.RoomID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return "", false
	}
	delete(r.conns, id)
	log.Debug().Str("module", "app.registry").Str("conn", string(id)).Msg("unregistered")
	return e.Room, e.Room != ""
}

// Bind associates id with room, replacing any previous binding.
func (r *Registry) Bind(id domain.ConnectionID, room domain.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return domain.ErrNotAMember
	}
	e.Room = room
	log.Debug().Str("module", "app.registry").Str("conn", string(id)).Str("room", string(room)).Msg("bound")
	return nil
}

// Unbind clears the binding of id and returns the room it had.
func (r *Registry) Unbind(id domain.ConnectionID) (domain.RoomID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok || e.Room == "" {
		return "", false
	}
	room := e.Room
	e.Room = ""
	log.Debug().Str("module", "app.registry").Str("conn", string(id)).Str("room", string(room)).Msg("unbound")
	return room, true
}

// UnbindIf clears the binding only while id is still bound to room.
func (r *Registry) UnbindIf(id domain.ConnectionID, room domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok || e.Room != room {
		return false
	}
	e.Room = ""
	return true
}

func (r *Registry) RoomOf(id domain.ConnectionID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok || e.Room == "" {
		return "", false
	}
	return e.Room, true
}

func (r *Registry) Known(id domain.ConnectionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[id]
	return ok
}

// Conn returns the transport endpoint of id.
func (r *Registry) Conn(id domain.ConnectionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	return e.Conn, true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Cancel stops the connection's pumps; cleanup follows through the normal
// disconnect path.
func (r *Registry) Cancel(id domain.ConnectionID) bool {
	r.mu.RLock()
	e, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("canceled connection")
	return true
}
