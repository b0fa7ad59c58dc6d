//go:generate go run go.uber.org/mock/mockgen -source=sink.go -destination=mocks/mock_sink.go -package=mocks
package app

import (
	"context"
	"errors"
	"time"

	"github.com/dkeye/Relay/internal/domain"
	"github.com/dkeye/Relay/internal/metrics"
	"github.com/rs/zerolog/log"
)

// ErrNoHistory is returned by stores that keep nothing to read back.
var ErrNoHistory = errors.New("persistence disabled")

// Store is a durable record of users and delivered messages.
type Store interface {
	RecordUser(ctx context.Context, user domain.User) error
	RecordMessage(ctx context.Context, env domain.Envelope) error
	RecentMessages(ctx context.Context, limit int) ([]domain.Envelope, error)
	Close() error
}

// Recorder is the fire-and-forget side of persistence used on the hot path.
type Recorder interface {
	RecordUser(user domain.User)
	RecordMessage(env domain.Envelope)
}

type record struct {
	user *domain.User
	env  *domain.Envelope
}

// Dispatcher decouples routing from the Store: records go onto a bounded
// queue drained by a single worker. A full queue drops the record and a
// failed write is only logged.
type Dispatcher struct {
	store   Store
	queue   chan record
	timeout time.Duration
	metrics *metrics.Metrics
}

func NewDispatcher(store Store, size int, timeout time.Duration, m *metrics.Metrics) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	return &Dispatcher{
		store:   store,
		queue:   make(chan record, size),
		timeout: timeout,
		metrics: m,
	}
}

func (d *Dispatcher) RecordUser(user domain.User) {
	d.enqueue(record{user: &user})
}

func (d *Dispatcher) RecordMessage(env domain.Envelope) {
	d.enqueue(record{env: &env})
}

func (d *Dispatcher) enqueue(rec record) {
	select {
	case d.queue <- rec:
	default:
		d.metrics.SinkDropped()
		log.Warn().Str("module", "app.sink").Msg("persistence queue full, record dropped")
	}
}

// Run writes queued records until ctx is done, then flushes what is left.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.drain(context.WithoutCancel(ctx))
			log.Info().Str("module", "app.sink").Msg("dispatcher stopped")
			return nil
		case rec := <-d.queue:
			d.write(ctx, rec)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case rec := <-d.queue:
			d.write(ctx, rec)
		default:
			return
		}
	}
}

func (d *Dispatcher) write(parent context.Context, rec record) {
	ctx := parent
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, d.timeout)
		defer cancel()
	}

	var err error
	switch {
	case rec.user != nil:
		err = d.store.RecordUser(ctx, *rec.user)
	case rec.env != nil:
		err = d.store.RecordMessage(ctx, *rec.env)
	}
	if err != nil {
		d.metrics.SinkError()
		log.Error().Err(err).Str("module", "app.sink").Msg("persistence write failed")
	}
}
