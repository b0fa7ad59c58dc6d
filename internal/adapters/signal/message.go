package signal

import (
	"github.com/dkeye/Relay/internal/core"
	"github.com/rs/zerolog/log"
)

// handleSendMessage never answers the sender: a message that cannot be
// delivered is dropped without a trace on the wire.
func (ctl *SignalWSController) handleSendMessage(sid core.SessionID, data []byte) {
	var p core.SendMessagePayload
	if err := ctl.decode(data, &p); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad sendMessage payload")
		return
	}
	ctl.Orch.OnSendMessage(sid, p.To, p.Message)
}
