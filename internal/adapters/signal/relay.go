package signal

import (
	"encoding/json"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

// relayPayload carries an opaque negotiation message for another user.
type relayPayload struct {
	To      string          `json:"to"`
	Payload json.RawMessage `json:"payload"`
}

func (ctl *SignalWSController) handleRelay(sid core.SessionID, env envelope) {
	p, ok := decode[relayPayload](ctl, sid, env)
	if !ok {
		return
	}
	if p.To == "" || len(p.Payload) == 0 {
		ctl.Orch.ReplyError(sid, env.Type, ErrBadPayload)
		return
	}
	if err := ctl.Orch.Relay(sid, domain.UserID(p.To), env.Type, p.Payload); err != nil {
		log.Info().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("to", p.To).Msg("relay")
		ctl.Orch.ReplyError(sid, env.Type, err)
	}
}
