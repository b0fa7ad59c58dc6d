package orch

import (
	"time"

	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

// OnSendMessage routes text from sid to the holder of the name to. Every
// failure is a silent drop; the outcome is only for logs and tests.
func (o *Orchestrator) OnSendMessage(sid core.SessionID, to, text string) app.RouteOutcome {
	if !o.Limiter.Allow(sid) {
		log.Debug().Str("module", "app.orch").Str("sid", string(sid)).Msg("rate limited")
		o.Router.Emitter.Metrics.Message(app.DroppedRateLimited.String())
		return app.DroppedRateLimited
	}
	recipient, err := domain.NewDisplayName(to)
	if err != nil {
		return app.DroppedInvalid
	}
	return o.Router.Route(sid, recipient, text)
}

func (o *Orchestrator) now() time.Time {
	if o.Router != nil && o.Router.Clock != nil {
		return o.Router.Clock.Now()
	}
	return time.Now()
}
