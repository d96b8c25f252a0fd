package app

import (
	"hash/fnv"
	"sync"

	"github.com/dkeye/Lounge/internal/core"
	"github.com/dkeye/Lounge/internal/domain"
	"github.com/rs/zerolog/log"
)

const registryShards = 32

type groupEntry struct {
	// seq is the single ordering point for publishes to this group.
	seq     sync.Mutex
	members map[core.SubscriberID]core.Subscriber
}

type groupShard struct {
	mu     sync.RWMutex
	groups map[domain.Group]*groupEntry
}

type subscriberEntry struct {
	sub    core.Subscriber
	groups map[domain.Group]struct{}
}

type subscriberShard struct {
	mu   sync.RWMutex
	subs map[core.SubscriberID]*subscriberEntry
}

// Registry tracks which live connection belongs to which group.
// Both indexes are sharded so unrelated rooms do not contend on one lock.
type Registry struct {
	groups [registryShards]groupShard
	subs   [registryShards]subscriberShard
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.groups {
		r.groups[i].groups = make(map[domain.Group]*groupEntry)
		r.subs[i].subs = make(map[core.SubscriberID]*subscriberEntry)
	}
	return r
}

func shardOf(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % registryShards)
}

func (r *Registry) groupShard(g domain.Group) *groupShard { return &r.groups[shardOf(string(g))] }

func (r *Registry) subShard(id core.SubscriberID) *subscriberShard {
	return &r.subs[shardOf(string(id))]
}

// Register adds sub to group. Idempotent.
func (r *Registry) Register(sub core.Subscriber, group domain.Group) {
	gs := r.groupShard(group)
	gs.mu.Lock()
	e, ok := gs.groups[group]
	if !ok {
		e = &groupEntry{members: make(map[core.SubscriberID]core.Subscriber)}
		gs.groups[group] = e
	}
	e.members[sub.ID()] = sub
	gs.mu.Unlock()

	ss := r.subShard(sub.ID())
	ss.mu.Lock()
	se, ok := ss.subs[sub.ID()]
	if !ok {
		se = &subscriberEntry{sub: sub, groups: make(map[domain.Group]struct{})}
		ss.subs[sub.ID()] = se
	}
	se.groups[group] = struct{}{}
	ss.mu.Unlock()

	log.Debug().Str("module", "app.registry").Str("conn", string(sub.ID())).Str("group", string(group)).Msg("registered")
}

// Unregister removes sub from group; absent members are ignored.
func (r *Registry) Unregister(sub core.Subscriber, group domain.Group) {
	r.dropMember(sub.ID(), group)

	ss := r.subShard(sub.ID())
	ss.mu.Lock()
	if se, ok := ss.subs[sub.ID()]; ok {
		delete(se.groups, group)
		if len(se.groups) == 0 {
			delete(ss.subs, sub.ID())
		}
	}
	ss.mu.Unlock()
}

// UnregisterAll removes sub from every group it was added to and returns those groups.
func (r *Registry) UnregisterAll(sub core.Subscriber) []domain.Group {
	ss := r.subShard(sub.ID())
	ss.mu.Lock()
	se, ok := ss.subs[sub.ID()]
	delete(ss.subs, sub.ID())
	ss.mu.Unlock()
	if !ok {
		return nil
	}

	out := make([]domain.Group, 0, len(se.groups))
	for g := range se.groups {
		r.dropMember(sub.ID(), g)
		out = append(out, g)
	}
	log.Debug().Str("module", "app.registry").Str("conn", string(sub.ID())).Int("groups", len(out)).Msg("unregistered")
	return out
}

func (r *Registry) dropMember(id core.SubscriberID, group domain.Group) {
	gs := r.groupShard(group)
	gs.mu.Lock()
	defer gs.mu.Unlock()
	e, ok := gs.groups[group]
	if !ok {
		return
	}
	delete(e.members, id)
	if len(e.members) == 0 {
		delete(gs.groups, group)
	}
}

// MembersOf returns a snapshot of the group's current members.
func (r *Registry) MembersOf(group domain.Group) []core.Subscriber {
	gs := r.groupShard(group)
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	e, ok := gs.groups[group]
	if !ok {
		return nil
	}
	out := make([]core.Subscriber, 0, len(e.members))
	for _, s := range e.members {
		out = append(out, s)
	}
	return out
}

// Count is the number of live connections in group.
func (r *Registry) Count(group domain.Group) int {
	gs := r.groupShard(group)
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	if e, ok := gs.groups[group]; ok {
		return len(e.members)
	}
	return 0
}

// GroupsOf lists the groups sub is registered under.
func (r *Registry) GroupsOf(sub core.Subscriber) []domain.Group {
	ss := r.subShard(sub.ID())
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	se, ok := ss.subs[sub.ID()]
	if !ok {
		return nil
	}
	out := make([]domain.Group, 0, len(se.groups))
	for g := range se.groups {
		out = append(out, g)
	}
	return out
}

// ConnectionsOf returns every registered connection authorized as uid.
func (r *Registry) ConnectionsOf(uid domain.UserID) []core.Subscriber {
	var out []core.Subscriber
	for i := range r.subs {
		ss := &r.subs[i]
		ss.mu.RLock()
		for _, se := range ss.subs {
			if se.sub.UserID() == uid {
				out = append(out, se.sub)
			}
		}
		ss.mu.RUnlock()
	}
	return out
}

// sequence runs fn with the group's members while holding the group's ordering lock.
func (r *Registry) sequence(group domain.Group, fn func([]core.Subscriber)) {
	gs := r.groupShard(group)
	gs.mu.RLock()
	e, ok := gs.groups[group]
	gs.mu.RUnlock()
	if !ok {
		return
	}
	e.seq.Lock()
	defer e.seq.Unlock()
	// Read from e itself; an entry dropped from the shard stays empty.
	gs.mu.RLock()
	members := make([]core.Subscriber, 0, len(e.members))
	for _, m := range e.members {
		members = append(members, m)
	}
	gs.mu.RUnlock()
	fn(members)
}
