package orch

import (
	"context"
	"fmt"

	"github.com/dkeye/Lounge/internal/app/presence"
	"github.com/dkeye/Lounge/internal/app/protocol"
	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
)

// ChannelKind selects which group a ChannelSession subscribes to.
type ChannelKind int

const (
	RoomListChannel ChannelKind = iota
	NotificationChannel
	ProfileChannel
)

func (k ChannelKind) String() string {
	switch k {
	case RoomListChannel:
		return "room-list"
	case NotificationChannel:
		return "notification"
	case ProfileChannel:
		return "profile"
	}
	return "unknown"
}

// ChannelSession is a room-list, notification or profile connection:
// Unauthenticated → Active → Closed.
type ChannelSession struct {
	endpoint
	orch  *Orchestrator
	kind  ChannelKind
	group domain.Group
}

func (o *Orchestrator) NewChannelSession(id core.SubscriberID, kind ChannelKind) *ChannelSession {
	return &ChannelSession{
		endpoint: newEndpoint(id, o.mailbox(), "orch.channel"),
		orch:     o,
		kind:     kind,
	}
}

func (s *ChannelSession) Group() domain.Group { return s.group }

// Open authorizes the connection. Personal channels only admit their owner,
// so target must equal the credential's user; it is ignored for the room list.
func (s *ChannelSession) Open(ctx context.Context, credential string, target domain.UserID) error {
	if !s.state.CompareAndSwap(int32(Unauthenticated), int32(Authorizing)) {
		return fmt.Errorf("open in state %s: %w", s.State(), domain.ErrForbidden)
	}
	if credential == "" {
		s.setState(Closed)
		return fmt.Errorf("missing credential: %w", domain.ErrForbidden)
	}
	uid, ok := s.orch.Auth.ResolveUserID(ctx, credential)
	if !ok {
		s.setState(Closed)
		return fmt.Errorf("invalid credential: %w", domain.ErrForbidden)
	}

	switch s.kind {
	case RoomListChannel:
		s.group = domain.RoomListGroup
	case NotificationChannel, ProfileChannel:
		if target != uid {
			s.setState(Closed)
			return fmt.Errorf("user %d cannot subscribe to %s of %d: %w", uid, s.kind, target, domain.ErrForbidden)
		}
		if s.orch.Users != nil {
			if _, err := s.orch.Users.FindUser(ctx, uid); err != nil {
				s.setState(Closed)
				return fmt.Errorf("user %d: %w", uid, domain.ErrNotFound)
			}
		}
		if s.kind == NotificationChannel {
			s.group = domain.NotificationGroup(uid)
		} else {
			s.group = domain.ProfileGroup(uid)
		}
	}
	s.uid.Store(int64(uid))
	s.logger = s.logger.With().Str("group", string(s.group)).Logger()
	return nil
}

// Activate attaches the accepted socket and subscribes it.
func (s *ChannelSession) Activate(conn core.SignalConnection) error {
	if !s.state.CompareAndSwap(int32(Authorizing), int32(Active)) {
		return fmt.Errorf("activate in state %s: %w", s.State(), domain.ErrForbidden)
	}
	s.attach(conn)
	s.orch.Registry.Register(s, s.group)
	s.logger.Debug().Int64("user", int64(s.UserID())).Msg("subscribed")
	return nil
}

func (s *ChannelSession) Run(ctx context.Context) {
	s.run(ctx, s.send)
}

func (s *ChannelSession) HandleFrame(_ context.Context, data []byte) {
	if s.State() != Active {
		return
	}
	ev, err := domain.ParseEvent(data)
	if err != nil {
		s.sendError(err)
		return
	}
	var cmd protocol.Command
	if s.kind == RoomListChannel {
		cmd, err = protocol.DecodeRoomListCommand(ev)
	} else {
		cmd, err = protocol.DecodeUserChannelCommand(ev)
	}
	if err != nil {
		s.logger.Debug().Err(err).Msg("rejected command")
		s.sendError(err)
		return
	}
	_, eff, err := protocol.Reduce(presence.State{}, protocol.Actor{UserID: s.UserID()}, cmd)
	if err != nil {
		s.sendError(err)
		return
	}
	for _, out := range eff.Broadcast {
		s.orch.Bus.Publish(s.group, out)
	}
	for _, r := range eff.Reply {
		s.send(r)
	}
}

func (s *ChannelSession) Leave(_ context.Context) {
	prev := State(s.state.Swap(int32(Closed)))
	s.stop()
	if prev == Active {
		s.orch.Registry.UnregisterAll(s)
		s.logger.Debug().Msg("unsubscribed")
	}
}
