package domain

import (
	"encoding/json"
	"fmt"
	"maps"
)

type EventType string

const (
	EventRoomConnect             EventType = "room_connect"
	EventRoomDisconnect          EventType = "room_disconnect"
	EventRoomUpdate              EventType = "room_update"
	EventRoomDelete              EventType = "room_delete"
	EventRoomListUpdate          EventType = "room_list_update"
	EventMessageSend             EventType = "message_send"
	EventMessageEdit             EventType = "message_edit"
	EventMessageDelete           EventType = "message_delete"
	EventUserKick                EventType = "user_kick"
	EventVoiceChatConnect        EventType = "voice_chat_connect"
	EventVoiceChatToggleSpeaking EventType = "voice_chat_toggle_speaking"
	EventVoiceChatToggleMic      EventType = "voice_chat_toggle_mic"
	EventVoiceChatSignal         EventType = "voice_chat_signal"
	EventVoiceChatDisconnect     EventType = "voice_chat_disconnect"
	EventNotificationListUpdate  EventType = "notification_list_update"
	EventBan                     EventType = "ban"

	// Control frames, never broadcast.
	EventPing   EventType = "ping"
	EventPong   EventType = "pong"
	EventWhoAmI EventType = "whoami"
	EventError  EventType = "error"
)

// Payload field names shared by publishers and the protocol layer.
const (
	FieldUser           = "user"
	FieldRoom           = "room"
	FieldMessage        = "message"
	FieldMessageID      = "id"
	FieldParticipants   = "participants"
	FieldVoiceChatUsers = "voice_chat_users"
	FieldIsSpeaking     = "is_speaking"
	FieldIsMuted        = "is_muted"
	FieldFrom           = "from"
	FieldTo             = "to"
	FieldOffer          = "offer"
	FieldAnswer         = "answer"
	FieldError          = "error"
)

// Event is an immutable broadcast record: a type discriminator plus
// type-specific payload fields. Modifiers return copies, so one Event value
// can be shared by every subscriber of a group.
type Event struct {
	Type   EventType
	fields map[string]json.RawMessage
}

func NewEvent(t EventType) Event { return Event{Type: t} }

// ParseEvent decodes a client frame. A missing type is rejected.
func ParseEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrBadCommand, err)
	}
	if e.Type == "" {
		return Event{}, fmt.Errorf("%w: missing type", ErrBadCommand)
	}
	return e, nil
}

// With returns a copy carrying key=v. v must be JSON encodable.
func (e Event) With(key string, v any) Event {
	raw, err := json.Marshal(v)
	if err != nil {
		raw = json.RawMessage("null")
	}
	return e.WithRaw(key, raw)
}

func (e Event) WithRaw(key string, raw json.RawMessage) Event {
	out := Event{Type: e.Type, fields: make(map[string]json.RawMessage, len(e.fields)+1)}
	maps.Copy(out.fields, e.fields)
	out.fields[key] = raw
	return out
}

// Raw returns the encoded payload field.
func (e Event) Raw(key string) (json.RawMessage, bool) {
	raw, ok := e.fields[key]
	return raw, ok
}

func (e Event) Has(key string) bool {
	_, ok := e.fields[key]
	return ok
}

// Decode unmarshals payload field key into v.
func (e Event) Decode(key string, v any) error {
	raw, ok := e.fields[key]
	if !ok {
		return fmt.Errorf("%w: %s has no %q", ErrBadCommand, e.Type, key)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %s.%s: %v", ErrBadCommand, e.Type, key, err)
	}
	return nil
}

func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(e.fields)+1)
	maps.Copy(out, e.fields)
	t, err := json.Marshal(e.Type)
	if err != nil {
		return nil, err
	}
	out["type"] = t
	return json.Marshal(out)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var t EventType
	if raw, ok := fields["type"]; ok {
		if err := json.Unmarshal(raw, &t); err != nil {
			return fmt.Errorf("type: %w", err)
		}
		delete(fields, "type")
	}
	e.Type = t
	e.fields = fields
	return nil
}
