// Package protocol turns client frames into commands and applies them to a
// room's presence state without touching the network.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dkeye/Lounge/internal/domain"
)

// Command is the closed set of things a client may ask of a room connection.
type Command interface{ command() }

// Passthrough is re-published verbatim to the connection's group.
type Passthrough struct{ Event domain.Event }

type VoiceConnect struct {
	Member domain.VoiceMember
	Event  domain.Event
}

type VoiceToggleSpeaking struct {
	UserID     domain.UserID
	IsSpeaking bool
	Event      domain.Event
}

type VoiceToggleMic struct {
	UserID  domain.UserID
	IsMuted bool
	Event   domain.Event
}

type VoiceDisconnect struct {
	UserID domain.UserID
	Event  domain.Event
}

type UserKick struct {
	UserID domain.UserID
	Event  domain.Event
}

type Ping struct{}

type WhoAmI struct{}

func (Passthrough) command()         {}
func (VoiceConnect) command()        {}
func (VoiceToggleSpeaking) command() {}
func (VoiceToggleMic) command()      {}
func (VoiceDisconnect) command()     {}
func (UserKick) command()            {}
func (Ping) command()                {}
func (WhoAmI) command()              {}

// serverOnly are event types a client may never inject into a room group.
var serverOnly = map[domain.EventType]bool{
	domain.EventRoomConnect:            true,
	domain.EventRoomDisconnect:         true,
	domain.EventRoomUpdate:             true,
	domain.EventRoomDelete:             true,
	domain.EventRoomListUpdate:         true,
	domain.EventMessageSend:            true,
	domain.EventMessageEdit:            true,
	domain.EventMessageDelete:          true,
	domain.EventNotificationListUpdate: true,
	domain.EventBan:                    true,
	domain.EventPong:                   true,
	domain.EventError:                  true,
}

// userRef accepts either a bare id or a user object.
type userRef struct {
	domain.User
}

func (u *userRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		return json.Unmarshal(data, &u.User)
	}
	return json.Unmarshal(data, &u.ID)
}

func decodeUser(ev domain.Event) (domain.User, error) {
	var ref userRef
	if err := ev.Decode(domain.FieldUser, &ref); err != nil {
		return domain.User{}, err
	}
	if ref.ID == 0 {
		return domain.User{}, fmt.Errorf("%w: %s without user id", domain.ErrBadCommand, ev.Type)
	}
	return ref.User, nil
}

func decodeFlag(ev domain.Event, key string) (bool, error) {
	var v bool
	err := ev.Decode(key, &v)
	return v, err
}

// DecodeRoomCommand classifies a frame received on a room connection.
func DecodeRoomCommand(ev domain.Event) (Command, error) {
	switch ev.Type {
	case domain.EventPing:
		return Ping{}, nil
	case domain.EventWhoAmI:
		return WhoAmI{}, nil
	case domain.EventVoiceChatConnect:
		u, err := decodeUser(ev)
		if err != nil {
			return nil, err
		}
		return VoiceConnect{Member: domain.NewVoiceMember(u), Event: ev}, nil
	case domain.EventVoiceChatToggleSpeaking:
		u, err := decodeUser(ev)
		if err != nil {
			return nil, err
		}
		v, err := decodeFlag(ev, domain.FieldIsSpeaking)
		if err != nil {
			return nil, err
		}
		return VoiceToggleSpeaking{UserID: u.ID, IsSpeaking: v, Event: ev}, nil
	case domain.EventVoiceChatToggleMic:
		u, err := decodeUser(ev)
		if err != nil {
			return nil, err
		}
		v, err := decodeFlag(ev, domain.FieldIsMuted)
		if err != nil {
			return nil, err
		}
		return VoiceToggleMic{UserID: u.ID, IsMuted: v, Event: ev}, nil
	case domain.EventVoiceChatDisconnect:
		u, err := decodeUser(ev)
		if err != nil {
			return nil, err
		}
		return VoiceDisconnect{UserID: u.ID, Event: ev}, nil
	case domain.EventUserKick:
		u, err := decodeUser(ev)
		if err != nil {
			return nil, err
		}
		return UserKick{UserID: u.ID, Event: ev}, nil
	}
	if serverOnly[ev.Type] {
		return nil, fmt.Errorf("%w: %s is server-originated", domain.ErrBadCommand, ev.Type)
	}
	return Passthrough{Event: ev}, nil
}

// DecodeRoomListCommand classifies a frame received on the room-list channel.
// Only room_list_update may be relayed there.
func DecodeRoomListCommand(ev domain.Event) (Command, error) {
	switch ev.Type {
	case domain.EventPing:
		return Ping{}, nil
	case domain.EventRoomListUpdate:
		return Passthrough{Event: ev}, nil
	}
	return nil, fmt.Errorf("%w: %s not accepted on room-list", domain.ErrBadCommand, ev.Type)
}

// DecodeUserChannelCommand classifies a frame on a notification or profile channel.
func DecodeUserChannelCommand(ev domain.Event) (Command, error) {
	if ev.Type == domain.EventPing {
		return Ping{}, nil
	}
	return nil, fmt.Errorf("%w: %s not accepted on this channel", domain.ErrBadCommand, ev.Type)
}
