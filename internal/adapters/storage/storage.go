// Package storage holds the persistence backends behind app.Store.
package storage

import (
	"context"
	"fmt"

	"github.com/dkeye/Relay/internal/adapters/storage/badger"
	"github.com/dkeye/Relay/internal/adapters/storage/sqlite"
	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/domain"
)

const (
	DriverNone   = "none"
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
)

// Nop discards everything. It is used when persistence is disabled, so
// reading history fails with app.ErrNoHistory.
type Nop struct{}

func (Nop) RecordUser(context.Context, domain.User) error        { return nil }
func (Nop) RecordMessage(context.Context, domain.Envelope) error { return nil }
func (Nop) RecentMessages(context.Context, int) ([]domain.Envelope, error) {
	return nil, app.ErrNoHistory
}
func (Nop) Close() error { return nil }

// Open picks a backend by driver name.
func Open(driver, path string) (app.Store, error) {
	var (
		st  app.Store
		err error
	)
	switch driver {
	case "", DriverNone:
		return Nop{}, nil
	case DriverSQLite:
		st, err = sqlite.Open(path)
	case DriverBadger:
		st, err = badger.Open(path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store at %s: %w", driver, path, err)
	}
	return st, nil
}
