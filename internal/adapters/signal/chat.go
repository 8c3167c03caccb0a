package signal

import (
	"context"
	"errors"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

var ErrRateLimited = errors.New("rate_limited")

const maxMessageLen = 4000

type channelPayload struct {
	Channel string `json:"channel"`
}

type messagePayload struct {
	Team        string              `json:"team"`
	Channel     string              `json:"channel"`
	Content     string              `json:"content"`
	Attachments []domain.Attachment `json:"attachments"`
}

func (ctl *SignalWSController) handleJoinChannel(ctx context.Context, sid core.SessionID, env envelope) {
	p, ok := decode[channelPayload](ctl, sid, env)
	if !ok {
		return
	}
	if p.Channel == "" {
		ctl.Orch.ReplyError(sid, env.Type, ErrBadPayload)
		return
	}
	ctl.Orch.JoinChannel(ctx, sid, p.Channel)
}

func (ctl *SignalWSController) handleLeaveChannel(sid core.SessionID, env envelope) {
	p, ok := decode[channelPayload](ctl, sid, env)
	if !ok {
		return
	}
	ctl.Orch.LeaveChannel(sid, p.Channel)
}

func (ctl *SignalWSController) handleMessage(ctx context.Context, sid core.SessionID, env envelope) {
	p, ok := decode[messagePayload](ctl, sid, env)
	if !ok {
		return
	}
	if p.Channel == "" || len(p.Content) > maxMessageLen {
		ctl.Orch.ReplyError(sid, env.Type, ErrBadPayload)
		return
	}
	user, ok := ctl.Orch.Registry.UserOf(sid)
	if !ok {
		return
	}
	if ctl.Limiter != nil && !ctl.Limiter.Allow(user.ID) {
		ctl.Orch.ReplyError(sid, env.Type, ErrRateLimited)
		return
	}
	if _, err := ctl.Orch.SendMessage(ctx, sid, p.Team, p.Channel, p.Content, p.Attachments); err != nil {
		ctl.Orch.ReplyError(sid, env.Type, err)
	}
}
