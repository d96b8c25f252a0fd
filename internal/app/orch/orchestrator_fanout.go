package orch

import (
	"context"
	"maps"
	"slices"

	"github.com/dkeye/Lounge/internal/app/presence"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/rs/zerolog/log"
)

// The Notify* triggers are called by the CRUD layer after its write has
// committed. Each one publishes a single event and never fails.

func (o *Orchestrator) NotifyMessageSent(roomID domain.RoomID, message any) {
	o.Bus.Publish(domain.RoomGroup(roomID), domain.NewEvent(domain.EventMessageSend).
		With(domain.FieldMessage, message))
}

func (o *Orchestrator) NotifyMessageEdited(roomID domain.RoomID, messageID int64, message any) {
	o.Bus.Publish(domain.RoomGroup(roomID), domain.NewEvent(domain.EventMessageEdit).
		With(domain.FieldMessageID, messageID).
		With(domain.FieldMessage, message))
}

func (o *Orchestrator) NotifyMessageDeleted(roomID domain.RoomID, messageID int64) {
	o.Bus.Publish(domain.RoomGroup(roomID), domain.NewEvent(domain.EventMessageDelete).
		With(domain.FieldMessageID, messageID))
}

// NotifyRoomUpdated publishes room_update carrying the room title plus any
// extra fields. An extra "user" object refreshes that user's voice roster
// entry on delivery.
func (o *Orchestrator) NotifyRoomUpdated(roomID domain.RoomID, title string, extra map[string]any) {
	ev := domain.NewEvent(domain.EventRoomUpdate).With(domain.FieldRoom, title)
	for _, k := range slices.Sorted(maps.Keys(extra)) {
		if k == "type" || k == domain.FieldRoom || k == domain.FieldVoiceChatUsers {
			continue
		}
		ev = ev.With(k, extra[k])
	}
	o.Bus.Publish(domain.RoomGroup(roomID), ev)
}

// NotifyRoomDeleted tells the room's connections and retires its presence
// state. The record stays readable until the last connection leaves.
func (o *Orchestrator) NotifyRoomDeleted(roomID domain.RoomID) {
	group := domain.RoomGroup(roomID)
	o.Bus.Publish(group, domain.NewEvent(domain.EventRoomDelete))
	if p, ok := o.Presence.Get(group); ok {
		p.Retire()
		o.releaseIfIdle(p)
	}
}

// releaseIfIdle drops a retired presence record once its group is empty.
// Retire and unregister both happen before the check, so the last of
// NotifyRoomDeleted and Leave sees an empty retired group.
func (o *Orchestrator) releaseIfIdle(p *presence.Room) {
	if p.Retired() && o.Registry.Count(p.Group()) == 0 {
		o.Presence.Drop(p)
	}
}

func (o *Orchestrator) NotifyRoomListChanged() {
	o.Bus.Publish(domain.RoomListGroup, domain.NewEvent(domain.EventRoomListUpdate))
}

// NotifyUserBanned pushes ban to the user's profile channel. With CloseOnBan
// every other live connection of the user is closed as forbidden.
func (o *Orchestrator) NotifyUserBanned(uid domain.UserID) {
	profile := domain.ProfileGroup(uid)
	o.Bus.Publish(profile, domain.NewEvent(domain.EventBan).With(domain.FieldUser, uid))
	if !o.CloseOnBan {
		return
	}
	code := domain.WSCloseCode(domain.CodeForbidden)
	for _, sub := range o.Registry.ConnectionsOf(uid) {
		if slices.Contains(o.Registry.GroupsOf(sub), profile) {
			continue
		}
		log.Info().Str("module", "orch.fanout").Int64("user", int64(uid)).Str("conn", string(sub.ID())).Msg("closing banned user connection")
		sub.Close(code, "banned")
	}
}

func (o *Orchestrator) NotifyNotificationListChanged(uid domain.UserID) {
	o.Bus.Publish(domain.NotificationGroup(uid), domain.NewEvent(domain.EventNotificationListUpdate))
}

// publishOccupancy sends the room's participant count to the room list.
func (o *Orchestrator) publishOccupancy(room *domain.Room) {
	o.Bus.Publish(domain.RoomListGroup, domain.NewEvent(domain.EventRoomListUpdate).
		With(domain.FieldRoom, room.ID).
		With(domain.FieldParticipants, room.Participants))
}

// VoiceRoster returns the current voice roster of a room without creating
// presence state for it.
func (o *Orchestrator) VoiceRoster(_ context.Context, roomID domain.RoomID) []domain.VoiceMember {
	p, ok := o.Presence.Get(domain.RoomGroup(roomID))
	if !ok {
		return []domain.VoiceMember{}
	}
	return p.VoiceRosterSnapshot()
}
