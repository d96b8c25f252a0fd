package presence

import (
	"sync"

	"github.com/dkeye/Lounge/internal/domain"
	"github.com/rs/zerolog/log"
)

// Manager hands out per-room presence records, created lazily.
// Records live until Drop, which follows room deletion.
type Manager struct {
	mu    sync.RWMutex
	rooms map[domain.Group]*Room
}

func NewManager() *Manager {
	return &Manager{rooms: make(map[domain.Group]*Room)}
}

func (m *Manager) GetOrCreate(group domain.Group) *Room {
	m.mu.RLock()
	room, ok := m.rooms[group]
	m.mu.RUnlock()
	if ok {
		return room
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok = m.rooms[group]; ok {
		return room
	}
	room = newRoom(group)
	m.rooms[group] = room
	return room
}

// Get looks up a record without creating one.
func (m *Manager) Get(group domain.Group) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[group]
	return room, ok
}

// Drop removes room's record if it is still the current one for its group.
func (m *Manager) Drop(room *Room) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rooms[room.group] == room {
		delete(m.rooms, room.group)
		log.Info().Str("module", "app.presence").Str("group", string(room.group)).Msg("presence dropped")
	}
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}
