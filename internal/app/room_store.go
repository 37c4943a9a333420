package app

import (
	"cmp"
	"slices"
	"sync"

	"github.com/dkeye/Parley/internal/core"
	"github.com/dkeye/Parley/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomState is one room's membership. The store lock guards the map of rooms,
// each room's own lock guards its members.
type roomState struct {
	room *domain.Room

	mu      sync.Mutex
	members map[domain.ConnectionID]struct{}
	closed  bool
}

func (s *roomState) snapshotLocked() []domain.ConnectionID {
	out := make([]domain.ConnectionID, 0, len(s.members))
	for id := range s.members {
		out = append(out, id)
	}
	return out
}

// RoomStoreImpl is a threadsafe in-memory room store.
type RoomStoreImpl struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomState
}

func NewRoomStore() *RoomStoreImpl {
	return &RoomStoreImpl{rooms: make(map[domain.RoomID]*roomState)}
}

var _ core.RoomStore = (*RoomStoreImpl)(nil)

func (f *RoomStoreImpl) lookup(id domain.RoomID) (*roomState, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s, ok := f.rooms[id]
	return s, ok
}

func (f *RoomStoreImpl) CreateRoom(id domain.RoomID, owner domain.ConnectionID) (*domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rooms[id]; ok {
		return nil, domain.ErrRoomAlreadyExists
	}
	room := domain.NewRoom(id, owner)
	f.rooms[id] = &roomState{
		room:    room,
		members: map[domain.ConnectionID]struct{}{owner: {}},
	}
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Str("owner", string(owner)).Msg("room created")
	return room, nil
}

func (f *RoomStoreImpl) JoinRoom(id domain.RoomID, conn domain.ConnectionID) error {
	s, ok := f.lookup(id)
	if !ok {
		return domain.ErrRoomNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrRoomNotFound
	}
	s.members[conn] = struct{}{}
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Str("conn", string(conn)).Int("members", len(s.members)).Msg("member joined")
	return nil
}

func (f *RoomStoreImpl) LeaveRoom(id domain.RoomID, conn domain.ConnectionID) (core.LeaveResult, error) {
	s, ok := f.lookup(id)
	if !ok {
		return core.LeaveResult{}, domain.ErrRoomNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return core.LeaveResult{}, domain.ErrRoomNotFound
	}
	_, member := s.members[conn]
	delete(s.members, conn)
	res := core.LeaveResult{
		Remaining: len(s.members),
		WasOwner:  member && s.room.Owner == conn,
		WasMember: member,
	}
	if member {
		log.Info().Str("module", "app.rooms").Str("room", string(id)).Str("conn", string(conn)).Int("members", res.Remaining).Msg("member left")
	}
	return res, nil
}

func (f *RoomStoreImpl) MembersOf(id domain.RoomID) ([]domain.ConnectionID, error) {
	s, ok := f.lookup(id)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, domain.ErrRoomNotFound
	}
	return s.snapshotLocked(), nil
}

func (f *RoomStoreImpl) DeleteRoom(id domain.RoomID) ([]domain.ConnectionID, bool) {
	f.mu.Lock()
	s, ok := f.rooms[id]
	if ok {
		delete(f.rooms, id)
	}
	f.mu.Unlock()
	if !ok {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	members := s.snapshotLocked()
	clear(s.members)
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Int("members", len(members)).Msg("room deleted")
	return members, true
}

func (f *RoomStoreImpl) Get(id domain.RoomID) (core.RoomInfo, bool) {
	s, ok := f.lookup(id)
	if !ok {
		return core.RoomInfo{}, false
	}
	return s.info(), true
}

func (f *RoomStoreImpl) List() []core.RoomInfo {
	f.mu.RLock()
	states := make([]*roomState, 0, len(f.rooms))
	for _, s := range f.rooms {
		states = append(states, s)
	}
	f.mu.RUnlock()

	out := make([]core.RoomInfo, 0, len(states))
	for _, s := range states {
		out = append(out, s.info())
	}
	slices.SortFunc(out, func(a, b core.RoomInfo) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (s *roomState) info() core.RoomInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.RoomInfo{
		ID:          s.room.ID,
		Owner:       s.room.Owner,
		MemberCount: len(s.members),
		CreatedAt:   s.room.CreatedAt,
	}
}
