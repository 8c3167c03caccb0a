package signal

import (
	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/core"
)

func (ctl *SignalWSController) handlePing(sid core.SessionID) {
	ctl.Orch.Reply(sid, orch.EvPong, nil)
}

func (ctl *SignalWSController) handleJoinTeam(sid core.SessionID, env envelope) {
	p, ok := decode[struct {
		Team string `json:"team"`
	}](ctl, sid, env)
	if !ok {
		return
	}
	if p.Team == "" {
		ctl.Orch.ReplyError(sid, env.Type, ErrBadPayload)
		return
	}
	ctl.Orch.JoinTeam(sid, p.Team)
}
