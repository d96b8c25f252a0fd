package app

import (
	"fmt"
	"sync"
	"testing"

	"github.com/dkeye/Lounge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	s := newFakeSub("c1", 1)
	g := domain.RoomGroup(1)

	r.Register(s, g)
	r.Register(s, g)

	assert.Equal(t, 1, r.Count(g))
	assert.Len(t, r.MembersOf(g), 1)
}

func TestRegistry_UnregisterAbsentIsNoop(t *testing.T) {
	r := NewRegistry()
	s := newFakeSub("c1", 1)

	r.Unregister(s, domain.RoomListGroup)
	assert.Empty(t, r.MembersOf(domain.RoomListGroup))
	assert.Empty(t, r.UnregisterAll(s))
}

func TestRegistry_UnregisterAllRemovesFromEveryGroup(t *testing.T) {
	r := NewRegistry()
	s := newFakeSub("c1", 1)
	other := newFakeSub("c2", 2)

	r.Register(s, domain.RoomGroup(1))
	r.Register(s, domain.RoomListGroup)
	r.Register(other, domain.RoomGroup(1))

	groups := r.UnregisterAll(s)
	assert.ElementsMatch(t, []domain.Group{domain.RoomGroup(1), domain.RoomListGroup}, groups)
	assert.Equal(t, 0, r.Count(domain.RoomListGroup))
	require.Len(t, r.MembersOf(domain.RoomGroup(1)), 1)
	assert.Equal(t, other.ID(), r.MembersOf(domain.RoomGroup(1))[0].ID())
	assert.Empty(t, r.GroupsOf(s))
}

func TestRegistry_ConnectionsOf(t *testing.T) {
	r := NewRegistry()
	a := newFakeSub("a", 7)
	b := newFakeSub("b", 7)
	c := newFakeSub("c", 8)
	r.Register(a, domain.RoomGroup(1))
	r.Register(b, domain.ProfileGroup(7))
	r.Register(c, domain.RoomGroup(1))

	assert.Len(t, r.ConnectionsOf(7), 2)
	assert.Len(t, r.ConnectionsOf(8), 1)
	assert.Empty(t, r.ConnectionsOf(9))
}

func TestRegistry_ConcurrentRegisterUnregister(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := range 64 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := newFakeSub(fmt.Sprintf("c%d", i), domain.UserID(i))
			g := domain.RoomGroup(domain.RoomID(i % 4))
			r.Register(s, g)
			r.Register(s, domain.RoomListGroup)
			if i%2 == 0 {
				r.UnregisterAll(s)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 32, r.Count(domain.RoomListGroup))
}
