package orch

import (
	"github.com/dkeye/Lounge/internal/app"
	"github.com/dkeye/Lounge/internal/app/presence"
	"github.com/dkeye/Lounge/internal/core"
)

// Orchestrator owns the live layer: it runs connection protocols against the
// external stores and fans state changes out through the bus.
type Orchestrator struct {
	Registry *app.Registry
	Bus      *app.Bus
	Presence *presence.Manager

	Auth    core.Authorizer
	Rooms   core.RoomStore
	Users   core.UserStore
	Signals core.SignalValidator

	// MailboxSize bounds each connection's undelivered events.
	MailboxSize int
	// CloseOnBan also disconnects every live connection of a banned user.
	CloseOnBan bool
}

const defaultMailbox = 64

func (o *Orchestrator) mailbox() int {
	if o.MailboxSize > 0 {
		return o.MailboxSize
	}
	return defaultMailbox
}
