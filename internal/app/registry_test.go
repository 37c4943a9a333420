package app

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Parley/internal/domain"
)

func TestRegistryRegisterUnregister(t *testing.T) {
	r := NewRegistry()
	r.Register("a", &fakeConn{}, nil)
	assert.True(t, r.Known("a"))
	_, bound := r.RoomOf("a")
	assert.False(t, bound)

	room, ok := r.Unregister("a")
	assert.False(t, ok)
	assert.Empty(t, room)

	// Idempotent on unknown ids.
	_, ok = r.Unregister("a")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryUnregisterReturnsRoomOnce(t *testing.T) {
	r := NewRegistry()
	r.Register("a", &fakeConn{}, nil)
	require.NoError(t, r.Bind("a", "r1"))

	var hits atomic.Int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if room, ok := r.Unregister("a"); ok {
				assert.Equal(t, domain.RoomID("r1"), room)
				hits.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), hits.Load())
}

func TestRegistryBindUnbind(t *testing.T) {
	r := NewRegistry()
	assert.ErrorIs(t, r.Bind("ghost", "r1"), domain.ErrNotAMember)

	r.Register("a", &fakeConn{}, nil)
	require.NoError(t, r.Bind("a", "r1"))
	room, ok := r.RoomOf("a")
	require.True(t, ok)
	assert.Equal(t, domain.RoomID("r1"), room)

	// Explicit rebinding switches rooms.
	require.NoError(t, r.Bind("a", "r2"))
	assert.False(t, r.UnbindIf("a", "r1"))
	room, _ = r.RoomOf("a")
	assert.Equal(t, domain.RoomID("r2"), room)

	room, ok = r.Unbind("a")
	assert.True(t, ok)
	assert.Equal(t, domain.RoomID("r2"), room)
	_, ok = r.Unbind("a")
	assert.False(t, ok)
}

func TestRegistryCancel(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Register("a", &fakeConn{}, func() { called = true })
	assert.True(t, r.Cancel("a"))
	assert.True(t, called)
	assert.False(t, r.Cancel("b"))
}
