package orch

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/Lounge/internal/app/presence"
	"github.com/dkeye/Lounge/internal/app/protocol"
	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
)

// RoomSession is one client's participation in one room:
// Unauthenticated → Authorizing → Joining → Active → Closed.
type RoomSession struct {
	endpoint
	orch     *Orchestrator
	room     *domain.Room
	presence *presence.Room
}

func (o *Orchestrator) NewRoomSession(id core.SubscriberID) *RoomSession {
	return &RoomSession{
		endpoint: newEndpoint(id, o.mailbox(), "orch.room"),
		orch:     o,
	}
}

// Open runs connect, authorize and the external join. On any failure the
// session is Closed and nothing has been registered or published; the error
// wraps domain.ErrNotFound or domain.ErrForbidden.
func (s *RoomSession) Open(ctx context.Context, title, credential, key string) error {
	if !s.state.CompareAndSwap(int32(Unauthenticated), int32(Authorizing)) {
		return fmt.Errorf("open in state %s: %w", s.State(), domain.ErrForbidden)
	}

	room, err := s.orch.Rooms.FindRoomByTitle(ctx, title)
	if err != nil {
		s.setState(Closed)
		s.logger.Info().Err(err).Str("title", title).Msg("room lookup failed")
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("room %q: %w", title, domain.ErrNotFound)
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
	if p, ok := s.orch.Presence.Get(room.Group()); ok && p.IsKicked(uid) {
		s.setState(Closed)
		s.logger.Info().Int64("user", int64(uid)).Int64("room", int64(room.ID)).Msg("kicked user refused")
		return fmt.Errorf("user %d kicked from room %d: %w", uid, room.ID, domain.ErrForbidden)
	}

	s.setState(Joining)
	joined, err := s.orch.Rooms.JoinRoom(ctx, room, uid, key)
	if err != nil {
		s.setState(Closed)
		s.logger.Info().Err(err).Int64("user", int64(uid)).Int64("room", int64(room.ID)).Msg("join refused")
		if errors.Is(err, domain.ErrForbidden) || errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("join room %d: %v: %w", room.ID, err, domain.ErrForbidden)
	}

	s.uid.Store(int64(uid))
	s.room = joined
	return nil
}

// Activate attaches the accepted socket, registers the connection under the
// room group and announces it.
func (s *RoomSession) Activate(ctx context.Context, conn core.SignalConnection) error {
	if s.State() != Joining {
		return fmt.Errorf("activate in state %s: %w", s.State(), domain.ErrForbidden)
	}
	group := s.room.Group()
	s.presence = s.orch.Presence.GetOrCreate(group)
	// A kick may have landed while the external join was in flight. Checking
	// and registering under the room lock means a later kick reaches us.
	kicked := false
	s.presence.Update(func(st presence.State) presence.State {
		if st.IsKicked(s.UserID()) {
			kicked = true
			return st
		}
		s.attach(conn)
		s.orch.Registry.Register(s, group)
		s.setState(Active)
		return st
	})
	if kicked {
		s.Abort(ctx)
		return fmt.Errorf("user %d kicked during join: %w", s.UserID(), domain.ErrForbidden)
	}

	s.orch.Bus.Publish(group, domain.NewEvent(domain.EventRoomConnect).With(domain.FieldUser, s.UserID()))
	s.orch.publishOccupancy(s.room)
	s.logger.Info().Int64("user", int64(s.UserID())).Int64("room", int64(s.room.ID)).Msg("joined")
	return nil
}

// Abort undoes a successful external join when the socket could not be accepted.
func (s *RoomSession) Abort(ctx context.Context) {
	if !s.state.CompareAndSwap(int32(Joining), int32(Closed)) {
		return
	}
	s.stop()
	if _, err := s.orch.Rooms.LeaveRoom(ctx, s.room, s.UserID()); err != nil {
		s.logger.Warn().Err(err).Msg("abort: leave room")
	}
}

// Run forwards broadcast events to the client until the session ends.
func (s *RoomSession) Run(ctx context.Context) {
	s.run(ctx, s.forward)
}

func (s *RoomSession) forward(ev domain.Event) {
	if s.State() != Active {
		return
	}
	var out domain.Event
	s.presence.Update(func(st presence.State) presence.State {
		next, transformed := protocol.Deliver(st, ev)
		out = transformed
		return next
	})
	s.send(out)
}

func (s *RoomSession) actor() protocol.Actor {
	return protocol.Actor{
		UserID: s.UserID(),
		RoomID: s.room.ID,
		Host:   s.room.IsHost(s.UserID()),
	}
}

// HandleFrame applies one inbound client frame.
func (s *RoomSession) HandleFrame(ctx context.Context, data []byte) {
	if s.State() != Active {
		return
	}
	ev, err := domain.ParseEvent(data)
	if err != nil {
		s.logger.Debug().Err(err).Msg("bad frame")
		s.sendError(err)
		return
	}
	cmd, err := protocol.DecodeRoomCommand(ev)
	if err != nil {
		s.logger.Debug().Err(err).Str("type", string(ev.Type)).Msg("rejected command")
		s.sendError(err)
		return
	}
	if p, ok := cmd.(protocol.Passthrough); ok && p.Event.Type == domain.EventVoiceChatSignal && s.orch.Signals != nil {
		if err := s.orch.Signals.ValidateSignal(p.Event); err != nil {
			s.logger.Debug().Err(err).Msg("invalid voice signal")
			s.sendError(err)
			return
		}
	}

	group := s.room.Group()
	var (
		effects protocol.Effects
		rerr    error
	)
	// Publishing under the room lock keeps the event timeline in the same
	// order as the presence mutations that produced it.
	s.presence.Update(func(st presence.State) presence.State {
		next, eff, err := protocol.Reduce(st, s.actor(), cmd)
		if err != nil {
			rerr = err
			return st
		}
		effects = eff
		for _, out := range eff.Broadcast {
			s.orch.Bus.Publish(group, out)
		}
		return next
	})
	if rerr != nil {
		s.logger.Info().Err(rerr).Str("type", string(ev.Type)).Msg("command refused")
		s.sendError(rerr)
		return
	}
	for _, r := range effects.Reply {
		s.send(r)
	}
}

// Leave runs the disconnect sequence once. From Joining it only undoes the
// external join; from Active it also cleans presence and announces the leave.
func (s *RoomSession) Leave(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	prev := State(s.state.Swap(int32(Closed)))
	s.stop()
	switch prev {
	case Joining:
		if _, err := s.orch.Rooms.LeaveRoom(ctx, s.room, s.UserID()); err != nil {
			s.logger.Warn().Err(err).Msg("leave room")
		}
		return
	case Active:
	default:
		return
	}

	uid := s.UserID()
	group := s.room.Group()
	s.presence.VoiceLeave(uid)

	host := s.room.IsHost(uid)
	if current, err := s.orch.Rooms.FindRoomByID(ctx, s.room.ID); err == nil {
		host = current.IsHost(uid)
	}
	if host {
		s.presence.ResetKicked()
		s.logger.Info().Int64("room", int64(s.room.ID)).Msg("host left, kicks reset")
	}

	occupancy := s.room
	if left, err := s.orch.Rooms.LeaveRoom(ctx, s.room, uid); err != nil {
		s.logger.Warn().Err(err).Msg("leave room")
	} else {
		occupancy = left
	}

	s.orch.Registry.UnregisterAll(s)
	s.orch.releaseIfIdle(s.presence)
	s.orch.Bus.Publish(group, domain.NewEvent(domain.EventRoomDisconnect).With(domain.FieldUser, uid))
	s.orch.publishOccupancy(occupancy)
	s.logger.Info().Int64("user", int64(uid)).Int64("room", int64(s.room.ID)).Msg("left")
}
