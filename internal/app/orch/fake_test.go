package orch

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/Lounge/internal/app"
	"github.com/dkeye/Lounge/internal/app/presence"
	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/core/mocks"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// fakeConn records what a session writes to its socket.
type fakeConn struct {
	mu     sync.Mutex
	frames []domain.Event
	code   int
}

func (c *fakeConn) TrySend(f core.Frame) error {
	ev, err := domain.ParseEvent(f)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, ev)
	return nil
}

func (c *fakeConn) Close(code int, _ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.code == 0 {
		c.code = code
	}
}

func (c *fakeConn) events(t domain.EventType) []domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Event
	for _, ev := range c.frames {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (c *fakeConn) closeCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code
}

func (c *fakeConn) waitFor(t *testing.T, typ domain.EventType, n int) []domain.Event {
	t.Helper()
	require.Eventually(t, func() bool { return len(c.events(typ)) >= n }, time.Second, 5*time.Millisecond,
		"waiting for %d %s", n, typ)
	return c.events(typ)
}

// fakeRooms is an in-memory RoomStore with the same validation rules as
// the gorm store.
type fakeRooms struct {
	mu      sync.Mutex
	rooms   map[string]*domain.Room
	members map[domain.RoomID]map[domain.UserID]bool
}

func newFakeRooms(rooms ...domain.Room) *fakeRooms {
	f := &fakeRooms{rooms: map[string]*domain.Room{}, members: map[domain.RoomID]map[domain.UserID]bool{}}
	for i := range rooms {
		r := rooms[i]
		f.rooms[r.Title] = &r
		f.members[r.ID] = map[domain.UserID]bool{}
	}
	return f
}

func (f *fakeRooms) snapshot(r *domain.Room) *domain.Room {
	out := *r
	out.Participants = len(f.members[r.ID])
	return &out
}

func (f *fakeRooms) FindRoomByTitle(_ context.Context, title string) (*domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rooms[title]
	if !ok {
		return nil, fmt.Errorf("room %q: %w", title, domain.ErrNotFound)
	}
	return f.snapshot(r), nil
}

func (f *fakeRooms) FindRoomByID(_ context.Context, id domain.RoomID) (*domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rooms {
		if r.ID == id {
			return f.snapshot(r), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRooms) JoinRoom(_ context.Context, room *domain.Room, uid domain.UserID, key string) (*domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members {
		if m[uid] {
			return nil, fmt.Errorf("already in a room: %w", domain.ErrForbidden)
		}
	}
	r := f.rooms[room.Title]
	if r.Key != "" && r.Key != key {
		return nil, fmt.Errorf("bad key: %w", domain.ErrForbidden)
	}
	if r.Capacity > 0 && len(f.members[r.ID]) >= r.Capacity {
		return nil, fmt.Errorf("room full: %w", domain.ErrForbidden)
	}
	f.members[r.ID][uid] = true
	return f.snapshot(r), nil
}

func (f *fakeRooms) LeaveRoom(_ context.Context, room *domain.Room, uid domain.UserID) (*domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.members[room.ID][uid] {
		return nil, fmt.Errorf("not a participant: %w", domain.ErrForbidden)
	}
	delete(f.members[room.ID], uid)
	return f.snapshot(f.rooms[room.Title]), nil
}

// numericAuth resolves a credential that is the decimal user id.
func numericAuth(ctrl *gomock.Controller) *mocks.MockAuthorizer {
	auth := mocks.NewMockAuthorizer(ctrl)
	auth.EXPECT().ResolveUserID(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, credential string) (domain.UserID, bool) {
			v, err := strconv.ParseInt(credential, 10, 64)
			if err != nil || v <= 0 {
				return 0, false
			}
			return domain.UserID(v), true
		}).AnyTimes()
	return auth
}

func newTestOrchestrator(auth core.Authorizer, rooms core.RoomStore) *Orchestrator {
	reg := app.NewRegistry()
	return &Orchestrator{
		Registry: reg,
		Bus:      app.NewBus(reg, app.DropPolicy{}),
		Presence: presence.NewManager(),
		Auth:     auth,
		Rooms:    rooms,
	}
}

var lobby = domain.Room{ID: 1, Title: "lobby", HostID: 3, Capacity: 10}

type liveRoom struct {
	*RoomSession
	conn *fakeConn
}

// join runs a room connection to Active and starts its delivery loop.
func join(t *testing.T, o *Orchestrator, title string, uid domain.UserID) liveRoom {
	t.Helper()
	s := o.NewRoomSession(core.SubscriberID(fmt.Sprintf("conn-%d-%d", uid, time.Now().UnixNano())))
	ctx := context.Background()
	require.NoError(t, s.Open(ctx, title, uid.String(), ""))
	conn := &fakeConn{}
	require.NoError(t, s.Activate(ctx, conn))
	runCtx, cancel := context.WithCancel(ctx)
	go s.Run(runCtx)
	t.Cleanup(cancel)
	return liveRoom{RoomSession: s, conn: conn}
}

func (l liveRoom) command(t *testing.T, raw string) {
	t.Helper()
	l.HandleFrame(context.Background(), []byte(raw))
}
