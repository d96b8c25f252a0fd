package presence

import (
	"sync"

	"github.com/dkeye/Lounge/internal/domain"
)

// Room guards one room group's State. All mutations of the kicked set and
// the voice roster for that room go through its lock.
type Room struct {
	group   domain.Group
	mu      sync.Mutex
	state   State
	retired bool
}

func newRoom(group domain.Group) *Room { return &Room{group: group} }

func (r *Room) Group() domain.Group { return r.group }

// Update applies fn under the room lock and stores its result.
func (r *Room) Update(fn func(State) State) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = fn(r.state)
	return r.state
}

// Retire marks the room as deleted upstream. Its record is released once
// the last connection leaves.
func (r *Room) Retire() {
	r.mu.Lock()
	r.retired = true
	r.mu.Unlock()
}

func (r *Room) Retired() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retired
}

func (r *Room) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Room) MarkKicked(uid domain.UserID) {
	r.Update(func(s State) State { return s.MarkKicked(uid) })
}

func (r *Room) IsKicked(uid domain.UserID) bool { return r.Snapshot().IsKicked(uid) }

func (r *Room) ResetKicked() {
	r.Update(State.ResetKicked)
}

func (r *Room) VoiceJoin(m domain.VoiceMember) {
	r.Update(func(s State) State { return s.VoiceJoin(m) })
}

func (r *Room) VoiceUpdate(uid domain.UserID, field VoiceField, value bool) {
	r.Update(func(s State) State { return s.VoiceUpdate(uid, field, value) })
}

func (r *Room) VoiceLeave(uid domain.UserID) {
	r.Update(func(s State) State { return s.VoiceLeave(uid) })
}

func (r *Room) VoiceRosterSnapshot() []domain.VoiceMember { return r.Snapshot().Roster() }
