package app

import (
	"errors"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// PublishResult reports delivery stats/backpressure to the caller.
type PublishResult struct {
	SentTo  int
	Dropped []core.Subscriber
}

// Bus delivers events to every connection of a group.
// Delivery only enqueues into each subscriber's mailbox, so a slow member
// never holds up its siblings; each subscriber drains on its own goroutine.
type Bus struct {
	registry *Registry
	policy   Policy
}

func NewBus(registry *Registry, policy Policy) *Bus {
	if policy == nil {
		policy = DropPolicy{}
	}
	return &Bus{registry: registry, policy: policy}
}

// Publish is fire-and-forget: failures are logged and never reach the publisher.
func (b *Bus) Publish(group domain.Group, ev domain.Event) PublishResult {
	res := PublishResult{}
	var gone []core.Subscriber
	b.registry.sequence(group, func(members []core.Subscriber) {
		for _, sub := range members {
			err := sub.Deliver(ev)
			switch {
			case err == nil:
				res.SentTo++
			case errors.Is(err, domain.ErrClosed):
				gone = append(gone, sub)
			default:
				res.Dropped = append(res.Dropped, sub)
				b.onBackpressure(group, sub, ev, err)
			}
		}
	})
	for _, sub := range gone {
		log.Debug().Str("module", "app.bus").Str("conn", string(sub.ID())).Str("group", string(group)).Msg("pruning closed subscriber")
		b.registry.UnregisterAll(sub)
	}
	log.Debug().
		Str("module", "app.bus").
		Str("group", string(group)).
		Str("type", string(ev.Type)).
		Int("sent_to", res.SentTo).
		Int("dropped", len(res.Dropped)).
		Msg("publish result")
	return res
}

func (b *Bus) onBackpressure(group domain.Group, sub core.Subscriber, ev domain.Event, err error) {
	action := b.policy.OnBackPressure(group, sub)
	log.Warn().
		Err(err).
		Str("module", "app.bus").
		Str("conn", string(sub.ID())).
		Str("group", string(group)).
		Str("type", string(ev.Type)).
		Int("action", int(action)).
		Msg("delivery failed")
	if action == CloseSubscriber {
		go sub.Close(websocket.ClosePolicyViolation, "slow consumer")
	}
}
