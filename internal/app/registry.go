package app

import (
	"context"
	"sync"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	Session core.MemberSession
	Cancel  context.CancelFunc
}

// Registry maps live signaling sessions to users. A user id is present in
// users iff at least one of its sessions is bound.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
	users    map[domain.UserID]map[core.SessionID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
		users:    make(map[domain.UserID]map[core.SessionID]struct{}),
	}
}

// Bind registers a session. It reports whether this is the user's first
// live session.
func (r *Registry) Bind(sid core.SessionID, sess core.MemberSession, cancel context.CancelFunc) bool {
	uid := sess.Meta().UserID()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{Session: sess, Cancel: cancel}
	set, ok := r.users[uid]
	if !ok {
		set = make(map[core.SessionID]struct{})
		r.users[uid] = set
	}
	set[sid] = struct{}{}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("user", string(uid)).
		Int("devices", len(set)).Msg("bound session")
	return !ok
}

// Unbind removes a session. ok is false when sid was not bound, which makes
// repeated calls for the same session no-ops. offline reports that the
// user's last session just went away.
func (r *Registry) Unbind(sid core.SessionID) (user *domain.User, offline bool, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil, false, false
	}
	delete(r.sessions, sid)
	user = e.Session.Meta().User
	uid := e.Session.Meta().UserID()
	if set, found := r.users[uid]; found {
		delete(set, sid)
		if len(set) == 0 {
			delete(r.users, uid)
			offline = true
		}
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("user", string(uid)).
		Bool("offline", offline).Msg("unbind session")
	return user, offline, true
}

func (r *Registry) GetSession(sid core.SessionID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Session, true
	}
	return nil, false
}

// UserOf returns the user behind a live session.
func (r *Registry) UserOf(sid core.SessionID) (*domain.User, bool) {
	sess, ok := r.GetSession(sid)
	if !ok {
		return nil, false
	}
	return sess.Meta().User, true
}

// ConnectionsFor returns a snapshot of the user's live sessions; empty when
// the user is offline.
func (r *Registry) ConnectionsFor(uid domain.UserID) []core.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.users[uid]
	out := make([]core.SessionID, 0, len(set))
	for sid := range set {
		out = append(out, sid)
	}
	return out
}

func (r *Registry) Online(uid domain.UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[uid]
	return ok
}

// Owns reports whether sid is a live session of uid.
func (r *Registry) Owns(uid domain.UserID, sid core.SessionID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[uid][sid]
	return ok
}

func (r *Registry) Sessions() []core.SessionID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.SessionID, 0, len(r.sessions))
	for sid := range r.sessions {
		out = append(out, sid)
	}
	return out
}

func (r *Registry) UserCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// Cancel stops the session's pumps. Cleanup follows through the adapter's
// disconnect path.
func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}
