package signal

import "github.com/dkeye/Relay/internal/core"

func (ctl *SignalWSController) handlePing(sid core.SessionID, conn *WsSignalConn) {
	ctl.sendJSON(sid, conn, core.Pong())
}

func (ctl *SignalWSController) handleWhoAmI(sid core.SessionID, conn *WsSignalConn) {
	name, joined := ctl.Orch.WhoAmI(sid)
	ctl.sendJSON(sid, conn, core.WhoAmI(name, joined))
}
