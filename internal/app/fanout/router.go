// Package fanout routes signaling events to groups, users and single
// connections.
package fanout

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

// Directory is the view of live connections the router delivers through.
type Directory interface {
	GetSession(sid core.SessionID) (core.MemberSession, bool)
	ConnectionsFor(uid domain.UserID) []core.SessionID
	Sessions() []core.SessionID
	Cancel(sid core.SessionID) bool
}

type Router struct {
	dir    Directory
	policy app.Policy

	mu      sync.RWMutex
	groups  map[GroupID]map[core.SessionID]struct{}
	members map[core.SessionID]map[GroupID]struct{}
}

func NewRouter(dir Directory, policy app.Policy) *Router {
	return &Router{
		dir:     dir,
		policy:  policy,
		groups:  make(map[GroupID]map[core.SessionID]struct{}),
		members: make(map[core.SessionID]map[GroupID]struct{}),
	}
}

// Join adds sid to g. It reports false when sid was already a member.
func (r *Router) Join(sid core.SessionID, g GroupID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.groups[g]
	if !ok {
		set = make(map[core.SessionID]struct{})
		r.groups[g] = set
	}
	if _, dup := set[sid]; dup {
		return false
	}
	set[sid] = struct{}{}
	mine, ok := r.members[sid]
	if !ok {
		mine = make(map[GroupID]struct{})
		r.members[sid] = mine
	}
	mine[g] = struct{}{}
	return true
}

// Leave removes sid from g. It reports false when sid was not a member.
func (r *Router) Leave(sid core.SessionID, g GroupID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(sid, g)
}

func (r *Router) leaveLocked(sid core.SessionID, g GroupID) bool {
	set, ok := r.groups[g]
	if !ok {
		return false
	}
	if _, in := set[sid]; !in {
		return false
	}
	delete(set, sid)
	if len(set) == 0 {
		delete(r.groups, g)
	}
	if mine, ok := r.members[sid]; ok {
		delete(mine, g)
		if len(mine) == 0 {
			delete(r.members, sid)
		}
	}
	return true
}

// LeaveAll drops sid from every group and returns the groups it was in.
func (r *Router) LeaveAll(sid core.SessionID) []GroupID {
	r.mu.Lock()
	defer r.mu.Unlock()
	mine := r.members[sid]
	out := make([]GroupID, 0, len(mine))
	for g := range mine {
		out = append(out, g)
	}
	for _, g := range out {
		r.leaveLocked(sid, g)
	}
	return out
}

// GroupsOf returns the groups sid is currently in.
func (r *Router) GroupsOf(sid core.SessionID) []GroupID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]GroupID, 0, len(r.members[sid]))
	for g := range r.members[sid] {
		out = append(out, g)
	}
	return out
}

func (r *Router) Members(g GroupID) []core.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.groups[g]
	out := make([]core.SessionID, 0, len(set))
	for sid := range set {
		out = append(out, sid)
	}
	return out
}

func (r *Router) InGroup(sid core.SessionID, g GroupID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.groups[g][sid]
	return ok
}

// Deliver encodes the event once and queues it on every recipient. A failed
// recipient never stops the rest; it ends up in Dropped.
func (r *Router) Deliver(d Delivery) (core.PublishResult, error) {
	recipients, err := r.resolve(d)
	if err != nil {
		return core.PublishResult{}, err
	}
	ev := d.event()
	frame, err := json.Marshal(ev)
	if err != nil {
		return core.PublishResult{}, fmt.Errorf("encode %s: %w", ev.Type, err)
	}

	var res core.PublishResult
	var slow []core.SessionID
	for _, sid := range recipients {
		sess, ok := r.dir.GetSession(sid)
		if !ok {
			continue
		}
		if err := sess.Signal().TrySend(frame); err != nil {
			res.Dropped = append(res.Dropped, sid)
			if errors.Is(err, core.ErrBackpressure) {
				slow = append(slow, sid)
			}
			continue
		}
		res.SendTo++
	}
	if len(res.Dropped) > 0 {
		log.Warn().Str("module", "fanout").Str("type", ev.Type).Int("dropped", len(res.Dropped)).
			Int("sent", res.SendTo).Msg("delivery incomplete")
	}
	r.applyPolicy(slow)
	return res, nil
}

func (r *Router) resolve(d Delivery) ([]core.SessionID, error) {
	switch d := d.(type) {
	case Broadcast:
		return without(r.Members(d.Group), d.Except), nil
	case Everyone:
		return without(r.dir.Sessions(), d.Except), nil
	case Direct:
		return r.dir.ConnectionsFor(d.To), nil
	case Reply:
		return []core.SessionID{d.Conn}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnroutable, d)
	}
}

func (r *Router) applyPolicy(slow []core.SessionID) {
	if r.policy == nil {
		return
	}
	for _, sid := range slow {
		switch r.policy.OnBackPressure(sid) {
		case app.KickMember:
			log.Warn().Str("module", "fanout").Str("sid", string(sid)).Msg("kicking slow connection")
			r.dir.Cancel(sid)
		case app.NoAction:
		}
	}
}

func without(list []core.SessionID, except core.SessionID) []core.SessionID {
	if except == "" {
		return list
	}
	out := list[:0]
	for _, sid := range list {
		if sid != except {
			out = append(out, sid)
		}
	}
	return out
}
