package signal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrBadPayload = errors.New("bad_payload")

// envelope is the inbound frame shape: {"type": ..., "data": {...}}.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (ctl *SignalWSController) writePump(ctx context.Context, sid core.SessionID, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.Opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("writePump ctx done")
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(ctl.Opts.WriteWait))
			return
		case data, ok := <-c.send:
			if !ok {
				log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.Opts.WriteWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("writePump ping")
				return
			}
		}
	}
}

// readPump handles the connection's frames one at a time. Its exit is the
// single disconnect path for the session.
func (ctl *SignalWSController) readPump(ctx context.Context, sid core.SessionID, c *WsSignalConn, cancel context.CancelFunc) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		cancel()
		c.Close()
		user, known := ctl.Orch.Registry.UserOf(sid)
		ctl.Orch.OnDisconnect(context.WithoutCancel(ctx), sid)
		if known && ctl.Limiter != nil && !ctl.Orch.Registry.Online(user.ID) {
			ctl.Limiter.Forget(user.ID)
		}
	}()

	c.conn.SetReadLimit(ctl.Opts.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.Opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.Opts.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(ctl.Opts.PongWait))
		ctl.handleSignal(ctx, sid, data)
	}
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, sid core.SessionID, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		ctl.Orch.ReplyError(sid, "", ErrBadPayload)
		return
	}

	switch env.Type {
	case "ping":
		ctl.handlePing(sid)
	case "whoami":
		ctl.Orch.WhoAmI(sid)
	case "join_team":
		ctl.handleJoinTeam(sid, env)
	case "join_channel":
		ctl.handleJoinChannel(ctx, sid, env)
	case "leave_channel":
		ctl.handleLeaveChannel(sid, env)
	case "message:send":
		ctl.handleMessage(ctx, sid, env)
	case "join_room":
		ctl.handleJoinRoom(ctx, sid, env)
	case "leave_room":
		ctl.handleLeaveRoom(ctx, sid, env)
	case "producer:created":
		ctl.handleProducerCreated(sid, env)
	case "producer:closed":
		ctl.handleProducerClosed(ctx, sid, env)
	case "webrtc:offer", "webrtc:answer", "webrtc:ice":
		ctl.handleRelay(sid, env)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
		ctl.Orch.ReplyError(sid, env.Type, errors.New("unknown_type"))
	}
}

// decode unpacks env.Data, replying with an error frame on failure.
func decode[T any](ctl *SignalWSController, sid core.SessionID, env envelope) (T, bool) {
	var v T
	if len(env.Data) == 0 {
		ctl.Orch.ReplyError(sid, env.Type, ErrBadPayload)
		return v, false
	}
	if err := json.Unmarshal(env.Data, &v); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("type", env.Type).Msg("bad payload")
		ctl.Orch.ReplyError(sid, env.Type, ErrBadPayload)
		return v, false
	}
	return v, true
}
