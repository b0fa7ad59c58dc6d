package signal

import (
	"errors"

	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleJoin(sid core.SessionID, conn *WsSignalConn, data []byte) {
	var p core.JoinPayload
	if err := ctl.decode(data, &p); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad join payload")
		ctl.sendJSON(sid, conn, core.ErrorFrame("bad_payload"))
		return
	}

	if _, err := ctl.Orch.OnJoin(sid, p.Name); err != nil {
		ctl.sendJSON(sid, conn, core.ErrorFrame(joinErrorCode(err)))
	}
}

func joinErrorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrNameEmpty), errors.Is(err, domain.ErrNameTooLong):
		return "invalid_name"
	case errors.Is(err, app.ErrNameTaken):
		return "name_taken"
	case errors.Is(err, app.ErrAlreadyJoined):
		return "already_joined"
	}
	return "join_failed"
}
