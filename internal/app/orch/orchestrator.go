// Package orch ties sessions, rooms and the media provider together. It
// owns the lifecycle of transports, producers and consumers and decides
// which signaling events each change produces.
package orch

import (
	"context"
	"time"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/app/fanout"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/rs/zerolog/log"
)

const defaultHistory = 50

type Orchestrator struct {
	Registry *app.Registry
	Rooms    *app.RoomManager
	Fanout   *fanout.Router
	Provider core.Provider
	Chat     core.MessageStore

	ProviderTimeout time.Duration
	// HistoryLimit caps how many stored messages a channel join replays.
	HistoryLimit int
}

func (o *Orchestrator) deliver(d fanout.Delivery) core.PublishResult {
	res, err := o.Fanout.Deliver(d)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("deliver")
	}
	return res
}

// Reply sends one event to a single connection.
func (o *Orchestrator) Reply(sid core.SessionID, typ string, data any) {
	o.deliver(fanout.Reply{Conn: sid, Event: fanout.Event{Type: typ, Data: data}})
}

// ReplyError reports a failed request back to the connection that made it.
func (o *Orchestrator) ReplyError(sid core.SessionID, op string, err error) {
	o.Reply(sid, EvError, ErrorPayload{Op: op, Error: err.Error()})
}

func (o *Orchestrator) historyLimit() int {
	if o.HistoryLimit > 0 {
		return o.HistoryLimit
	}
	return defaultHistory
}

// cleanupCtx keeps provider cleanup running after the request that
// triggered it has gone away.
func cleanupCtx(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
