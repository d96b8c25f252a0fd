package app

import (
	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropEvent
	CloseSubscriber
)

// Policy decides what happens to a subscriber whose mailbox is full.
type Policy interface {
	OnBackPressure(group domain.Group, sub core.Subscriber) BackpressureAction
}

// DropPolicy loses the event for that subscriber only; the client can re-fetch state.
type DropPolicy struct{}

func (DropPolicy) OnBackPressure(domain.Group, core.Subscriber) BackpressureAction { return DropEvent }

// ClosePolicy disconnects subscribers that cannot keep up.
type ClosePolicy struct{}

func (ClosePolicy) OnBackPressure(domain.Group, core.Subscriber) BackpressureAction {
	return CloseSubscriber
}

// PolicyByName maps the slow_subscriber config value to a Policy.
func PolicyByName(name string) Policy {
	if name == "close" {
		return ClosePolicy{}
	}
	return DropPolicy{}
}
