package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Parley/internal/core"
	"github.com/dkeye/Parley/internal/domain"
)

type relayFixture struct {
	reg   *Registry
	rooms *RoomStoreImpl
	relay *Relay
	conns map[domain.ConnectionID]*fakeConn
}

func newRelayFixture(t *testing.T, policy Policy) *relayFixture {
	t.Helper()
	f := &relayFixture{
		reg:   NewRegistry(),
		rooms: NewRoomStore(),
		conns: map[domain.ConnectionID]*fakeConn{},
	}
	f.relay = NewRelay(f.reg, f.rooms, policy)
	return f
}

func (f *relayFixture) connect(id domain.ConnectionID, cancel func()) *fakeConn {
	c := &fakeConn{}
	f.conns[id] = c
	f.reg.Register(id, c, cancel)
	return c
}

func (f *relayFixture) enter(t *testing.T, id domain.ConnectionID, room domain.RoomID) {
	t.Helper()
	if _, ok := f.rooms.Get(room); !ok {
		_, err := f.rooms.CreateRoom(room, id)
		require.NoError(t, err)
	} else {
		require.NoError(t, f.rooms.JoinRoom(room, id))
	}
	require.NoError(t, f.reg.Bind(id, room))
}

func TestRelayReachesOthersOnly(t *testing.T) {
	f := newRelayFixture(t, SimplePolicy{})
	a := f.connect("a", nil)
	b := f.connect("b", nil)
	c := f.connect("c", nil)
	outsider := f.connect("d", nil)
	f.enter(t, "a", "r1")
	f.enter(t, "b", "r1")
	f.enter(t, "c", "r1")
	f.enter(t, "d", "r2")

	res, err := f.relay.Dispatch("a", "r1", core.Frame("hello"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.SendTo)
	assert.Empty(t, a.Frames())
	assert.Equal(t, []string{"hello"}, b.Frames())
	assert.Equal(t, []string{"hello"}, c.Frames())
	assert.Empty(t, outsider.Frames())
}

func TestRelayRejectsNonMembers(t *testing.T) {
	f := newRelayFixture(t, SimplePolicy{})
	f.connect("a", nil)
	b := f.connect("b", nil)
	f.connect("stranger", nil)
	f.enter(t, "a", "r1")
	f.enter(t, "b", "r1")

	_, err := f.relay.Dispatch("stranger", "r1", core.Frame("inject"))
	assert.ErrorIs(t, err, domain.ErrNotAMember)

	// Bound to r1 but naming another room.
	_, err = f.relay.Dispatch("a", "r2", core.Frame("inject"))
	assert.ErrorIs(t, err, domain.ErrNotAMember)

	assert.Empty(t, b.Frames())
}

func TestRelayAudienceIsComputedPerDispatch(t *testing.T) {
	f := newRelayFixture(t, SimplePolicy{})
	f.connect("a", nil)
	b := f.connect("b", nil)
	f.enter(t, "a", "r1")

	_, err := f.relay.Dispatch("a", "r1", core.Frame("1"))
	require.NoError(t, err)
	f.enter(t, "b", "r1")
	_, err = f.relay.Dispatch("a", "r1", core.Frame("2"))
	require.NoError(t, err)

	assert.Equal(t, []string{"2"}, b.Frames())
}

func TestRelayDispatchTo(t *testing.T) {
	f := newRelayFixture(t, SimplePolicy{})
	f.connect("a", nil)
	b := f.connect("b", nil)
	c := f.connect("c", nil)
	f.connect("d", nil)
	f.enter(t, "a", "r1")
	f.enter(t, "b", "r1")
	f.enter(t, "c", "r1")
	f.enter(t, "d", "r2")

	_, err := f.relay.DispatchTo("a", "r1", "b", core.Frame("offer"))
	require.NoError(t, err)
	assert.Equal(t, []string{"offer"}, b.Frames())
	assert.Empty(t, c.Frames())

	_, err = f.relay.DispatchTo("a", "r1", "d", core.Frame("offer"))
	assert.ErrorIs(t, err, domain.ErrNotAMember)
	_, err = f.relay.DispatchTo("a", "r1", "a", core.Frame("offer"))
	assert.ErrorIs(t, err, domain.ErrNotAMember)
}

func TestRelayBackpressure(t *testing.T) {
	t.Run("kick", func(t *testing.T) {
		f := newRelayFixture(t, SimplePolicy{})
		kicked := false
		f.connect("a", nil)
		slow := f.connect("b", func() { kicked = true })
		slow.full = true
		f.enter(t, "a", "r1")
		f.enter(t, "b", "r1")

		res, err := f.relay.Dispatch("a", "r1", core.Frame("x"))
		require.NoError(t, err)
		assert.Equal(t, []domain.ConnectionID{"b"}, res.Dropped)
		assert.True(t, kicked)
	})
	t.Run("drop", func(t *testing.T) {
		f := newRelayFixture(t, LossyPolicy{})
		kicked := false
		f.connect("a", nil)
		slow := f.connect("b", func() { kicked = true })
		slow.full = true
		f.enter(t, "a", "r1")
		f.enter(t, "b", "r1")

		res, err := f.relay.Dispatch("a", "r1", core.Frame("x"))
		require.NoError(t, err)
		assert.Len(t, res.Dropped, 1)
		assert.False(t, kicked)
	})
}
