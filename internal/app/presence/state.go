// Package presence holds the per-room live state that is not persisted:
// the kicked set and the voice chat roster.
package presence

import (
	"maps"
	"slices"

	"github.com/dkeye/Lounge/internal/domain"
)

// VoiceField names a toggle on a roster entry.
type VoiceField int

const (
	Speaking VoiceField = iota
	Muted
)

// State is an immutable value; every operation returns a new State and
// leaves the receiver untouched. Unknown user ids are silent no-ops.
type State struct {
	kicked map[domain.UserID]struct{}
	roster []domain.VoiceMember
}

func (s State) IsKicked(uid domain.UserID) bool {
	_, ok := s.kicked[uid]
	return ok
}

func (s State) MarkKicked(uid domain.UserID) State {
	if s.IsKicked(uid) {
		return s
	}
	kicked := make(map[domain.UserID]struct{}, len(s.kicked)+1)
	maps.Copy(kicked, s.kicked)
	kicked[uid] = struct{}{}
	return State{kicked: kicked, roster: s.roster}
}

func (s State) ResetKicked() State {
	return State{roster: s.roster}
}

// Kicked lists kicked user ids in ascending order.
func (s State) Kicked() []domain.UserID {
	return slices.Sorted(maps.Keys(s.kicked))
}

func (s State) index(uid domain.UserID) int {
	return slices.IndexFunc(s.roster, func(m domain.VoiceMember) bool { return m.ID == uid })
}

func (s State) InRoster(uid domain.UserID) bool { return s.index(uid) >= 0 }

// VoiceJoin appends m unless the user is already present; a replayed join
// must not clobber live mute/speaking flags.
func (s State) VoiceJoin(m domain.VoiceMember) State {
	if s.InRoster(m.ID) {
		return s
	}
	roster := make([]domain.VoiceMember, len(s.roster), len(s.roster)+1)
	copy(roster, s.roster)
	return State{kicked: s.kicked, roster: append(roster, m)}
}

func (s State) VoiceUpdate(uid domain.UserID, field VoiceField, value bool) State {
	i := s.index(uid)
	if i < 0 {
		return s
	}
	roster := slices.Clone(s.roster)
	switch field {
	case Speaking:
		roster[i].IsSpeaking = value
	case Muted:
		roster[i].IsMuted = value
	}
	return State{kicked: s.kicked, roster: roster}
}

// VoicePatch refreshes display fields of a present entry.
func (s State) VoicePatch(user domain.User) State {
	i := s.index(user.ID)
	if i < 0 {
		return s
	}
	roster := slices.Clone(s.roster)
	roster[i].DisplayName = user.DisplayName
	roster[i].Avatar = user.Avatar
	return State{kicked: s.kicked, roster: roster}
}

func (s State) VoiceLeave(uid domain.UserID) State {
	i := s.index(uid)
	if i < 0 {
		return s
	}
	return State{kicked: s.kicked, roster: slices.Delete(slices.Clone(s.roster), i, i+1)}
}

// Roster returns a copy in join order; never nil.
func (s State) Roster() []domain.VoiceMember {
	out := make([]domain.VoiceMember, len(s.roster))
	copy(out, s.roster)
	return out
}
