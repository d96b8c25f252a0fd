package protocol

import (
	"fmt"

	"github.com/dkeye/Lounge/internal/app/presence"
	"github.com/dkeye/Lounge/internal/domain"
)

// Actor is the connection a command came from.
type Actor struct {
	UserID domain.UserID
	RoomID domain.RoomID
	Host   bool
}

// Effects of one command: Broadcast goes to the room group, Reply only to the sender.
type Effects struct {
	Broadcast []domain.Event
	Reply     []domain.Event
}

func broadcast(ev domain.Event) Effects { return Effects{Broadcast: []domain.Event{ev}} }

func reply(ev domain.Event) Effects { return Effects{Reply: []domain.Event{ev}} }

// Reduce applies cmd from actor to s. A non-nil error means s is returned
// unchanged and nothing is published.
func Reduce(s presence.State, actor Actor, cmd Command) (presence.State, Effects, error) {
	switch c := cmd.(type) {
	case Ping:
		return s, reply(domain.NewEvent(domain.EventPong)), nil

	case WhoAmI:
		ev := domain.NewEvent(domain.EventWhoAmI).
			With(domain.FieldUser, actor.UserID).
			With(domain.FieldRoom, actor.RoomID).
			With(domain.FieldVoiceChatUsers, s.Roster())
		return s, reply(ev), nil

	case Passthrough:
		if c.Event.Type == domain.EventVoiceChatSignal && c.Event.Has(domain.FieldFrom) {
			var from domain.UserID
			if err := c.Event.Decode(domain.FieldFrom, &from); err != nil || from != actor.UserID {
				return s, Effects{}, fmt.Errorf("%w: signal sent on behalf of another user", domain.ErrForbidden)
			}
		}
		return s, broadcast(c.Event), nil

	case VoiceConnect:
		if c.Member.ID != actor.UserID {
			return s, Effects{}, fmt.Errorf("%w: voice join for another user", domain.ErrForbidden)
		}
		return s.VoiceJoin(c.Member), broadcast(c.Event), nil

	case VoiceToggleSpeaking:
		if c.UserID != actor.UserID {
			return s, Effects{}, fmt.Errorf("%w: toggle for another user", domain.ErrForbidden)
		}
		return s.VoiceUpdate(c.UserID, presence.Speaking, c.IsSpeaking), broadcast(c.Event), nil

	case VoiceToggleMic:
		if c.UserID != actor.UserID {
			return s, Effects{}, fmt.Errorf("%w: toggle for another user", domain.ErrForbidden)
		}
		return s.VoiceUpdate(c.UserID, presence.Muted, c.IsMuted), broadcast(c.Event), nil

	case VoiceDisconnect:
		if c.UserID != actor.UserID {
			return s, Effects{}, fmt.Errorf("%w: voice leave for another user", domain.ErrForbidden)
		}
		return s.VoiceLeave(c.UserID), broadcast(c.Event), nil

	case UserKick:
		if !actor.Host {
			return s, Effects{}, fmt.Errorf("%w: only the host can kick", domain.ErrForbidden)
		}
		if c.UserID == actor.UserID {
			return s, Effects{}, fmt.Errorf("%w: host cannot kick itself", domain.ErrForbidden)
		}
		return s.MarkKicked(c.UserID), broadcast(c.Event), nil
	}
	return s, Effects{}, fmt.Errorf("%w: %T", domain.ErrBadCommand, cmd)
}

// rosterEvents carry the current voice roster when forwarded to a client.
var rosterEvents = map[domain.EventType]bool{
	domain.EventRoomConnect:         true,
	domain.EventRoomDisconnect:      true,
	domain.EventRoomUpdate:          true,
	domain.EventVoiceChatConnect:    true,
	domain.EventVoiceChatDisconnect: true,
}

// Deliver transforms an event about to be forwarded to one room connection.
// A room_update carrying a full user object refreshes that user's roster
// entry and is forwarded with the user collapsed to a bare id.
func Deliver(s presence.State, ev domain.Event) (presence.State, domain.Event) {
	if ev.Type == domain.EventRoomUpdate && ev.Has(domain.FieldUser) {
		var u domain.User
		if err := ev.Decode(domain.FieldUser, &u); err == nil && u.ID != 0 && s.InRoster(u.ID) {
			s = s.VoicePatch(u)
			ev = ev.With(domain.FieldUser, u.ID)
		}
	}
	if rosterEvents[ev.Type] {
		ev = ev.With(domain.FieldVoiceChatUsers, s.Roster())
	}
	return s, ev
}
