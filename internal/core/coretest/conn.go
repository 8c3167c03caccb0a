package coretest

import (
	"encoding/json"
	"sync"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

// Conn is a core.SignalConnection that records every frame it accepts.
type Conn struct {
	mu     sync.Mutex
	frames []core.Frame
	fail   error
	closed bool
}

var _ core.SignalConnection = (*Conn)(nil)

func (c *Conn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrConnClosed
	}
	if c.fail != nil {
		return c.fail
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// FailWith makes every later TrySend return err.
func (c *Conn) FailWith(err error) {
	c.mu.Lock()
	c.fail = err
	c.mu.Unlock()
}

// Event is a decoded outbound frame.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Events decodes the recorded frames.
func (c *Conn) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, 0, len(c.frames))
	for _, f := range c.frames {
		var ev Event
		if err := json.Unmarshal(f, &ev); err == nil {
			out = append(out, ev)
		}
	}
	return out
}

// OfType returns the recorded events with the given type.
func (c *Conn) OfType(typ string) []Event {
	var out []Event
	for _, ev := range c.Events() {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (c *Conn) Reset() {
	c.mu.Lock()
	c.frames = nil
	c.mu.Unlock()
}

// Session builds a member session for sid owned by user.
func Session(sid core.SessionID, user *domain.User) (core.MemberSession, *Conn) {
	conn := &Conn{}
	return core.NewMemberSession(domain.NewMember(sid.Peer(), user), conn), conn
}

// User builds a user with the given id as its name too.
func User(id string) *domain.User {
	return &domain.User{ID: domain.UserID(id), Username: id}
}
