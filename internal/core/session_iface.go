package core

import "github.com/dkeye/Lounge/internal/domain"

type SubscriberID string

// Subscriber is one live connection as the broadcast bus sees it.
// Deliver must not block: it enqueues and reports backpressure.
type Subscriber interface {
	ID() SubscriberID
	// UserID is zero until the connection is authorized.
	UserID() domain.UserID
	Deliver(domain.Event) error
	Close(code int, reason string)
}
