package store

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/dkeye/Lounge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *Store, room Room, users ...int64) *domain.Room {
	t.Helper()
	ctx := context.Background()
	for _, id := range users {
		require.NoError(t, s.CreateUser(ctx, &User{ID: id, DisplayName: fmt.Sprintf("user-%d", id)}))
	}
	require.NoError(t, s.CreateRoom(ctx, &room))
	r, err := s.FindRoomByTitle(ctx, room.Title)
	require.NoError(t, err)
	return r
}

func TestStore_FindRoom(t *testing.T) {
	s := setupStore(t)
	r := seed(t, s, Room{Title: "lobby", HostID: 3, Capacity: 4}, 3)

	assert.Equal(t, "lobby", r.Title)
	assert.Equal(t, domain.UserID(3), r.HostID)
	assert.Zero(t, r.Participants)

	byID, err := s.FindRoomByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, byID)

	_, err = s.FindRoomByTitle(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.FindUser(context.Background(), 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_JoinAndLeave(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	r := seed(t, s, Room{Title: "lobby", HostID: 3, Capacity: 4}, 3, 7)

	joined, err := s.JoinRoom(ctx, r, 3, "")
	require.NoError(t, err)
	assert.Equal(t, 1, joined.Participants)
	joined, err = s.JoinRoom(ctx, r, 7, "")
	require.NoError(t, err)
	assert.Equal(t, 2, joined.Participants)

	ids, err := s.ParticipantsOf(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.UserID{3, 7}, ids)

	left, err := s.LeaveRoom(ctx, r, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, left.Participants)

	_, err = s.LeaveRoom(ctx, r, 7)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestStore_JoinValidation(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	locked := seed(t, s, Room{Title: "vault", HostID: 1, Capacity: 1, Key: "k"}, 1, 2, 3)
	open := seed(t, s, Room{Title: "open", HostID: 1, Capacity: 5})

	_, err := s.JoinRoom(ctx, locked, 2, "wrong")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = s.JoinRoom(ctx, locked, 2, "k")
	require.NoError(t, err)

	_, err = s.JoinRoom(ctx, locked, 3, "k")
	assert.ErrorIs(t, err, domain.ErrForbidden, "full")

	_, err = s.JoinRoom(ctx, open, 2, "")
	assert.ErrorIs(t, err, domain.ErrForbidden, "already elsewhere")

	_, err = s.JoinRoom(ctx, locked, 2, "k")
	assert.ErrorIs(t, err, domain.ErrForbidden, "already here")

	_, err = s.JoinRoom(ctx, open, 404, "")
	assert.ErrorIs(t, err, domain.ErrForbidden, "unknown user")
}

func TestStore_ConcurrentJoinsRespectCapacity(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	users := make([]int64, 10)
	for i := range users {
		users[i] = int64(i + 1)
	}
	r := seed(t, s, Room{Title: "small", HostID: 1, Capacity: 3}, users...)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for _, id := range users {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if _, err := s.JoinRoom(ctx, r, domain.UserID(id), ""); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	current, err := s.FindRoomByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, current.Participants)
}
