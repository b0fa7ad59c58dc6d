// Package badger stores users and delivered messages in an embedded BadgerDB.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/dkeye/Relay/internal/domain"
	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"
)

var ErrNotFound = errors.New("not found")

const (
	messagePrefix = "msg:"
	userPrefix    = "user:"
)

type Store struct {
	db *badgerdb.DB
}

type diskMessage struct {
	ID     string `json:"id"`
	From   string `json:"from"`
	To     string `json:"to"`
	Text   string `json:"text"`
	Time   string `json:"time"`
	SentAt int64  `json:"sent_at"`
}

type diskUser struct {
	Name      string `json:"name"`
	FirstSeen int64  `json:"first_seen"`
	LastSeen  int64  `json:"last_seen"`
}

// Open opens (or creates) a database directory at path.
func Open(path string) (*Store, error) {
	db, err := badgerdb.Open(badgerdb.DefaultOptions(path).WithLoggingLevel(badgerdb.ERROR))
	if err != nil {
		return nil, err
	}
	return New(db), nil
}

func New(db *badgerdb.DB) *Store {
	return &Store{db: db}
}

// RecordUser keeps first_seen from the earliest record and bumps last_seen.
func (s *Store) RecordUser(_ context.Context, user domain.User) error {
	key := []byte(userPrefix + string(user.Name))
	at := user.FirstSeen.UnixNano()
	return s.db.Update(func(txn *badgerdb.Txn) error {
		record := diskUser{Name: string(user.Name), FirstSeen: at, LastSeen: at}
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badgerdb.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			var prev diskUser
			if err := item.Value(func(v []byte) error { return json.Unmarshal(v, &prev) }); err != nil {
				return err
			}
			record.FirstSeen = prev.FirstSeen
		}
		bytes, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return txn.Set(key, bytes)
	})
}

// RecordMessage appends env under "msg:{timestamp_padded}:{ulid}" so a
// lexicographic scan walks messages in send order.
func (s *Store) RecordMessage(_ context.Context, env domain.Envelope) error {
	id := ulid.Make().String()
	key := fmt.Sprintf("%s%019d:%s", messagePrefix, env.SentAt.UnixNano(), id)
	bytes, err := json.Marshal(diskMessage{
		ID:     id,
		From:   string(env.From),
		To:     string(env.To),
		Text:   env.Text,
		Time:   env.Time,
		SentAt: env.SentAt.UnixNano(),
	})
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// RecentMessages walks the message keys backwards and returns the last limit
// of them, oldest first. A non-positive limit returns everything.
func (s *Store) RecentMessages(ctx context.Context, limit int) ([]domain.Envelope, error) {
	var records []diskMessage
	err := s.db.View(func(txn *badgerdb.Txn) error {
		prefix := []byte(messagePrefix)
		options := badgerdb.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(append(prefix, []byte("9999999999999999999")...)); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(records) == limit {
				break
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			var record diskMessage
			if err := it.Item().Value(func(v []byte) error { return json.Unmarshal(v, &record) }); err != nil {
				return err
			}
			records = append(records, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	messages := lo.Map(lo.Reverse(records), func(m diskMessage, _ int) domain.Envelope {
		return domain.Envelope{
			From:   domain.DisplayName(m.From),
			To:     domain.DisplayName(m.To),
			Text:   m.Text,
			Time:   m.Time,
			SentAt: time.Unix(0, m.SentAt).UTC(),
		}
	})
	return messages, nil
}

func (s *Store) user(_ context.Context, name domain.DisplayName) (domain.User, error) {
	var record diskUser
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(userPrefix + string(name)))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error { return json.Unmarshal(v, &record) })
	})
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{Name: name, FirstSeen: time.Unix(0, record.FirstSeen).UTC()}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
