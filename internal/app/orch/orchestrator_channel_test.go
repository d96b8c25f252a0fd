package orch

import (
	"context"
	"testing"
	"time"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/core/mocks"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func openChannel(t *testing.T, o *Orchestrator, kind ChannelKind, credential string, target domain.UserID) (*ChannelSession, *fakeConn) {
	t.Helper()
	s := o.NewChannelSession(core.SubscriberID("ch-"+credential+"-"+kind.String()), kind)
	require.NoError(t, s.Open(context.Background(), credential, target))
	conn := &fakeConn{}
	require.NoError(t, s.Activate(conn))
	go s.Run(t.Context())
	return s, conn
}

func TestChannelSession_PersonalChannelsOnlyForOwner(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserStore(ctrl)
	users.EXPECT().FindUser(gomock.Any(), domain.UserID(5)).Return(&domain.User{ID: 5, DisplayName: "five"}, nil)
	o := newTestOrchestrator(numericAuth(ctrl), newFakeRooms())
	o.Users = users

	s := o.NewChannelSession("x", NotificationChannel)
	err := s.Open(context.Background(), "5", 6)
	require.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, Closed, s.State())

	s = o.NewChannelSession("y", NotificationChannel)
	require.NoError(t, s.Open(context.Background(), "5", 5))
	assert.Equal(t, domain.NotificationGroup(5), s.Group())
}

func TestChannelSession_UnknownUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserStore(ctrl)
	users.EXPECT().FindUser(gomock.Any(), domain.UserID(5)).Return(nil, domain.ErrNotFound)
	o := newTestOrchestrator(numericAuth(ctrl), newFakeRooms())
	o.Users = users

	err := o.NewChannelSession("x", ProfileChannel).Open(context.Background(), "5", 5)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChannelSession_RoomListPassthrough(t *testing.T) {
	o := newTestOrchestrator(numericAuth(gomock.NewController(t)), newFakeRooms())
	a, aconn := openChannel(t, o, RoomListChannel, "1", 0)
	_, bconn := openChannel(t, o, RoomListChannel, "2", 0)

	a.HandleFrame(context.Background(), []byte(`{"type":"room_list_update"}`))
	bconn.waitFor(t, domain.EventRoomListUpdate, 1)
	aconn.waitFor(t, domain.EventRoomListUpdate, 1)

	a.HandleFrame(context.Background(), []byte(`{"type":"ban","user":2}`))
	aconn.waitFor(t, domain.EventError, 1)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, bconn.events(domain.EventBan))

	a.HandleFrame(context.Background(), []byte(`{"type":"ping"}`))
	aconn.waitFor(t, domain.EventPong, 1)
	assert.Empty(t, bconn.events(domain.EventPong))
}

func TestChannelSession_LeaveUnsubscribes(t *testing.T) {
	o := newTestOrchestrator(numericAuth(gomock.NewController(t)), newFakeRooms())
	s, _ := openChannel(t, o, RoomListChannel, "1", 0)
	require.Equal(t, 1, o.Registry.Count(domain.RoomListGroup))

	s.Leave(context.Background())
	assert.Zero(t, o.Registry.Count(domain.RoomListGroup))
	assert.ErrorIs(t, s.Deliver(domain.NewEvent(domain.EventRoomListUpdate)), domain.ErrClosed)
}
