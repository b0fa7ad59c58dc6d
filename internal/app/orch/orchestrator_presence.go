package orch

import (
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

// OnJoin validates the requested name and claims it for sid. The returned
// name is the one actually bound.
func (o *Orchestrator) OnJoin(sid core.SessionID, raw string) (domain.DisplayName, error) {
	name, err := domain.NewDisplayName(raw)
	if err != nil {
		return "", err
	}
	res, err := o.Presence.OnJoin(sid, name)
	if err != nil {
		return "", err
	}
	if o.Recorder != nil {
		o.Recorder.RecordUser(domain.NewUser(res.Name, o.now()))
	}
	return res.Name, nil
}

// OnDisconnect is safe to call more than once for the same session.
func (o *Orchestrator) OnDisconnect(sid core.SessionID) {
	res := o.Presence.OnLeave(sid)
	o.Limiter.Forget(sid)
	log.Info().Str("module", "app.orch").Str("sid", string(sid)).Bool("was_joined", res.Joined).Msg("disconnected")
}
