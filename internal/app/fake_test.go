package app

import (
	"sync"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
)

type fakeSub struct {
	id   core.SubscriberID
	uid  domain.UserID
	fail error

	mu       sync.Mutex
	got      []domain.Event
	closed   chan int
	closeOne sync.Once
}

func newFakeSub(id string, uid domain.UserID) *fakeSub {
	return &fakeSub{id: core.SubscriberID(id), uid: uid, closed: make(chan int, 1)}
}

func (f *fakeSub) ID() core.SubscriberID { return f.id }
func (f *fakeSub) UserID() domain.UserID { return f.uid }

func (f *fakeSub) Deliver(ev domain.Event) error {
	if f.fail != nil {
		return f.fail
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, ev)
	return nil
}

func (f *fakeSub) Close(code int, _ string) {
	f.closeOne.Do(func() { f.closed <- code })
}

func (f *fakeSub) events() []domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Event(nil), f.got...)
}
