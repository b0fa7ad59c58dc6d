package orch

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/core"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/rs/zerolog/log"
)

// Orchestrator is the single entry point the transport calls into. It owns
// no state of its own: everything lives in the Registry.
type Orchestrator struct {
	Registry *app.Registry
	Presence *app.Presence
	Router   *app.Router
	Recorder app.Recorder
	Limiter  *app.RateLimiter
	Store    app.Store
}

// Options carries the optional collaborators of an Orchestrator.
type Options struct {
	Recorder   app.Recorder
	Store      app.Store
	Limiter    *app.RateLimiter
	Clock      clock.Clock
	Location   *time.Location
	MaxTextLen int
}

// New wires presence and routing around one registry.
func New(reg *app.Registry, emitter *app.Emitter, opts Options) *Orchestrator {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	return &Orchestrator{
		Registry: reg,
		Presence: &app.Presence{Registry: reg, Emitter: emitter},
		Router: &app.Router{
			Registry:   reg,
			Emitter:    emitter,
			Recorder:   opts.Recorder,
			Clock:      opts.Clock,
			Location:   opts.Location,
			MaxTextLen: opts.MaxTextLen,
		},
		Recorder: opts.Recorder,
		Limiter:  opts.Limiter,
		Store:    opts.Store,
	}
}

// OnConnect records a new transport session. It has no name until it joins.
func (o *Orchestrator) OnConnect(sid core.SessionID, conn core.SignalConnection) {
	o.Registry.Bind(sid, conn)
	o.Presence.Emitter.Metrics.SetConnections(o.Registry.Count())
	log.Info().Str("module", "app.orch").Str("sid", string(sid)).Msg("connected")
}

// OnlineUsers is the current online list in join order.
func (o *Orchestrator) OnlineUsers() []domain.DisplayName {
	return o.Registry.AllNames()
}

// WhoAmI reports the name bound to sid, if any.
func (o *Orchestrator) WhoAmI(sid core.SessionID) (domain.DisplayName, bool) {
	return o.Registry.NameOf(sid)
}

type Stats struct {
	Connections int `json:"connections"`
	Online      int `json:"online"`
}

func (o *Orchestrator) Stats() Stats {
	return Stats{Connections: o.Registry.Count(), Online: o.Registry.OnlineCount()}
}

var ErrNoStore = app.ErrNoHistory

// DefaultHistoryLimit applies when History is asked for a non-positive limit.
const DefaultHistoryLimit = 50

// History returns up to limit of the most recently delivered messages, oldest
// first.
func (o *Orchestrator) History(ctx context.Context, limit int) ([]domain.Envelope, error) {
	if o.Store == nil {
		return nil, ErrNoStore
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return o.Store.RecentMessages(ctx, limit)
}
