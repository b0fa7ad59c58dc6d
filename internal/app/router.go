package app

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

type RouteOutcome int

const (
	Delivered RouteOutcome = iota
	DroppedUnjoinedSender
	DroppedUnknownRecipient
	DroppedBackpressure
	DroppedInvalid
	DroppedRateLimited
)

func (o RouteOutcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case DroppedUnjoinedSender:
		return "unjoined_sender"
	case DroppedUnknownRecipient:
		return "unknown_recipient"
	case DroppedBackpressure:
		return "backpressure"
	case DroppedInvalid:
		return "invalid"
	case DroppedRateLimited:
		return "rate_limited"
	}
	return "unknown"
}

// Router delivers one envelope from a joined sender to the connection that
// holds the recipient name. Nothing is queued for offline recipients and the
// sender never gets an echo.
type Router struct {
	Registry   *Registry
	Emitter    *Emitter
	Recorder   Recorder
	Clock      clock.Clock
	Location   *time.Location
	MaxTextLen int
}

func (rt *Router) Route(sid core.SessionID, to domain.DisplayName, text string) RouteOutcome {
	outcome := rt.route(sid, to, text)
	rt.Emitter.Metrics.Message(outcome.String())
	if outcome != Delivered {
		log.Debug().
			Str("module", "app.router").
			Str("sid", string(sid)).
			Str("to", string(to)).
			Str("outcome", outcome.String()).
			Msg("message dropped")
	}
	return outcome
}

func (rt *Router) route(sid core.SessionID, to domain.DisplayName, text string) RouteOutcome {
	body, err := domain.NormalizeText(text, rt.MaxTextLen)
	if err != nil {
		return DroppedInvalid
	}

	var (
		outcome RouteOutcome
		env     domain.Envelope
	)
	rt.Registry.Resolve(sid, to, func(res Resolution) {
		switch {
		case !res.SenderOK:
			outcome = DroppedUnjoinedSender
			return
		case !res.RecipientOK:
			outcome = DroppedUnknownRecipient
			return
		}
		env = domain.NewEnvelope(res.Sender, to, body, rt.now(), rt.Location)
		if err := rt.Emitter.Send(res.RecipientSID, res.Recipient, core.NewMessage(env)); err != nil {
			outcome = DroppedBackpressure
			return
		}
		outcome = Delivered
	})

	if outcome == Delivered && rt.Recorder != nil {
		rt.Recorder.RecordMessage(env)
	}
	return outcome
}

func (rt *Router) now() time.Time {
	if rt.Clock == nil {
		return time.Now()
	}
	return rt.Clock.Now()
}
