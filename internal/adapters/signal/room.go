package signal

import (
	"context"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

type roomPayload struct {
	RoomID string `json:"roomId"`
}

type producerPayload struct {
	RoomID     string `json:"roomId"`
	ProducerID string `json:"producerId"`
}

func (ctl *SignalWSController) handleJoinRoom(ctx context.Context, sid core.SessionID, env envelope) {
	p, ok := decode[roomPayload](ctl, sid, env)
	if !ok {
		return
	}
	roomID, err := domain.ParseRoomID(p.RoomID)
	if err != nil {
		ctl.Orch.ReplyError(sid, env.Type, err)
		return
	}
	if err := ctl.Orch.JoinRoom(ctx, sid, roomID); err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("room", p.RoomID).Msg("join room")
		ctl.Orch.ReplyError(sid, env.Type, err)
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.RoomID).Msg("join")
}

// handleLeaveRoom leaves the room; the connection itself stays open.
func (ctl *SignalWSController) handleLeaveRoom(ctx context.Context, sid core.SessionID, env envelope) {
	p, ok := decode[roomPayload](ctl, sid, env)
	if !ok {
		return
	}
	roomID, err := domain.ParseRoomID(p.RoomID)
	if err != nil {
		ctl.Orch.ReplyError(sid, env.Type, err)
		return
	}
	if err := ctl.Orch.LeaveRoom(ctx, sid, roomID); err != nil {
		ctl.Orch.ReplyError(sid, env.Type, err)
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", p.RoomID).Msg("leave")
}

func (ctl *SignalWSController) handleProducerCreated(sid core.SessionID, env envelope) {
	p, ok := decode[producerPayload](ctl, sid, env)
	if !ok {
		return
	}
	roomID, err := domain.ParseRoomID(p.RoomID)
	if err == nil {
		err = ctl.Orch.AnnounceProducer(sid, roomID, domain.ProducerID(p.ProducerID))
	}
	if err != nil {
		ctl.Orch.ReplyError(sid, env.Type, err)
	}
}

func (ctl *SignalWSController) handleProducerClosed(ctx context.Context, sid core.SessionID, env envelope) {
	p, ok := decode[producerPayload](ctl, sid, env)
	if !ok {
		return
	}
	roomID, err := domain.ParseRoomID(p.RoomID)
	if err == nil {
		err = ctl.Orch.StopProducer(ctx, sid, roomID, domain.ProducerID(p.ProducerID))
	}
	if err != nil {
		ctl.Orch.ReplyError(sid, env.Type, err)
	}
}
