package app

import (
	"errors"

	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Emitter pushes encoded events onto connection outboxes. It never waits:
// a full or closed outbox loses the frame and the Policy decides whether the
// connection survives.
type Emitter struct {
	Policy  Policy
	Metrics *metrics.Metrics
}

// Send queues v on a single connection.
func (e *Emitter) Send(sid core.SessionID, conn core.SignalConnection, v any) error {
	f, err := core.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.emit").Msg("encode event")
		return err
	}
	return e.push(sid, conn, f)
}

// Broadcast queues v on every peer and reports how many accepted it.
func (e *Emitter) Broadcast(peers []Peer, v any) int {
	if len(peers) == 0 {
		return 0
	}
	f, err := core.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.emit").Msg("encode event")
		return 0
	}
	sent := 0
	for _, p := range peers {
		if e.push(p.SID, p.Conn, f) == nil {
			sent++
		}
	}
	return sent
}

func (e *Emitter) push(sid core.SessionID, conn core.SignalConnection, f core.Frame) error {
	if conn == nil {
		return core.ErrConnClosed
	}
	err := conn.TrySend(f)
	if err == nil {
		return nil
	}
	e.Metrics.OutboxDropped()
	log.Debug().Err(err).Str("module", "app.emit").Str("sid", string(sid)).Msg("frame dropped")
	if errors.Is(err, core.ErrBackpressure) && e.Policy != nil {
		switch e.Policy.OnBackPressure(sid, conn) {
		case KickMember:
			log.Warn().Str("module", "app.emit").Str("sid", string(sid)).Msg("closing slow connection")
			conn.Close()
		case DropFrame, NoAction:
		}
	}
	return err
}
