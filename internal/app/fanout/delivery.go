package fanout

import (
	"errors"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

var ErrUnroutable = errors.New("unroutable delivery")

// Event is the signaling envelope every outbound frame is encoded as.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Delivery says who receives an event. The set of variants is closed.
type Delivery interface {
	event() Event
}

// Broadcast reaches every member of Group except the Except connection.
type Broadcast struct {
	Group  GroupID
	Except core.SessionID
	Event  Event
}

// Everyone reaches every live connection except Except.
type Everyone struct {
	Except core.SessionID
	Event  Event
}

// Direct reaches every live connection of one user.
type Direct struct {
	To    domain.UserID
	Event Event
}

// Reply reaches exactly one connection.
type Reply struct {
	Conn  core.SessionID
	Event Event
}

func (d Broadcast) event() Event { return d.Event }
func (d Everyone) event() Event  { return d.Event }
func (d Direct) event() Event    { return d.Event }
func (d Reply) event() Event     { return d.Event }
