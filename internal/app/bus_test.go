package app

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Lounge/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishIsolatesGroups(t *testing.T) {
	reg := NewRegistry()
	bus := NewBus(reg, nil)
	a1 := newFakeSub("a1", 1)
	a2 := newFakeSub("a2", 2)
	b1 := newFakeSub("b1", 3)
	reg.Register(a1, domain.RoomGroup(1))
	reg.Register(a2, domain.RoomGroup(1))
	reg.Register(b1, domain.RoomGroup(2))

	res := bus.Publish(domain.RoomGroup(1), domain.NewEvent(domain.EventMessageSend))

	assert.Equal(t, 2, res.SentTo)
	assert.Len(t, a1.events(), 1)
	assert.Len(t, a2.events(), 1)
	assert.Empty(t, b1.events())
}

func TestBus_PublishPreservesOrderPerSubscriber(t *testing.T) {
	reg := NewRegistry()
	bus := NewBus(reg, nil)
	s := newFakeSub("s", 1)
	reg.Register(s, domain.RoomGroup(1))

	for i := range 100 {
		bus.Publish(domain.RoomGroup(1), domain.NewEvent(domain.EventMessageSend).With(domain.FieldMessageID, i))
	}

	got := s.events()
	require.Len(t, got, 100)
	for i, ev := range got {
		var id int
		require.NoError(t, ev.Decode(domain.FieldMessageID, &id))
		assert.Equal(t, i, id)
	}
}

func TestBus_ConcurrentPublishersAreSerializedPerGroup(t *testing.T) {
	reg := NewRegistry()
	bus := NewBus(reg, nil)
	s1 := newFakeSub("s1", 1)
	s2 := newFakeSub("s2", 2)
	reg.Register(s1, domain.RoomGroup(1))
	reg.Register(s2, domain.RoomGroup(1))

	var wg sync.WaitGroup
	for p := range 4 {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := range 25 {
				bus.Publish(domain.RoomGroup(1), domain.NewEvent(domain.EventMessageSend).With(domain.FieldMessageID, fmt.Sprintf("%d-%d", p, i)))
			}
		}(p)
	}
	wg.Wait()

	// Both subscribers observe the same single timeline.
	e1, e2 := s1.events(), s2.events()
	require.Len(t, e1, 100)
	require.Len(t, e2, 100)
	for i := range e1 {
		r1, _ := e1[i].Raw(domain.FieldMessageID)
		r2, _ := e2[i].Raw(domain.FieldMessageID)
		assert.Equal(t, string(r1), string(r2))
	}
}

func TestBus_FailingSubscriberDoesNotAffectOthers(t *testing.T) {
	reg := NewRegistry()
	bus := NewBus(reg, DropPolicy{})
	slow := newFakeSub("slow", 1)
	slow.fail = domain.ErrBackpressure
	gone := newFakeSub("gone", 2)
	gone.fail = domain.ErrClosed
	ok := newFakeSub("ok", 3)
	for _, s := range []*fakeSub{slow, gone, ok} {
		reg.Register(s, domain.RoomGroup(1))
	}

	res := bus.Publish(domain.RoomGroup(1), domain.NewEvent(domain.EventRoomDelete))

	assert.Equal(t, 1, res.SentTo)
	assert.Len(t, res.Dropped, 1)
	assert.Len(t, ok.events(), 1)
	// Closed subscribers are pruned, slow ones stay registered under the drop policy.
	assert.Equal(t, 2, reg.Count(domain.RoomGroup(1)))
	assert.Empty(t, reg.GroupsOf(gone))
}

func TestBus_ClosePolicyClosesSlowSubscriber(t *testing.T) {
	reg := NewRegistry()
	bus := NewBus(reg, PolicyByName("close"))
	slow := newFakeSub("slow", 1)
	slow.fail = domain.ErrBackpressure
	reg.Register(slow, domain.RoomListGroup)

	bus.Publish(domain.RoomListGroup, domain.NewEvent(domain.EventRoomListUpdate))

	select {
	case code := <-slow.closed:
		assert.Equal(t, websocket.ClosePolicyViolation, code)
	case <-time.After(time.Second):
		t.Fatal("slow subscriber was not closed")
	}
}

func TestBus_PublishToEmptyGroup(t *testing.T) {
	bus := NewBus(NewRegistry(), nil)
	res := bus.Publish(domain.RoomGroup(99), domain.NewEvent(domain.EventRoomDelete))
	assert.Zero(t, res.SentTo)
}
