package app

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/dkeye/Relay/internal/core"
	"github.com/stretchr/testify/require"
)

// fakeConn is an in-memory outbox that records every accepted frame.
type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
	closed bool
}

func (c *fakeConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return core.ErrConnClosed
	}
	if c.full {
		return core.ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type wireEvent struct {
	Type  string   `json:"type"`
	Name  string   `json:"name"`
	Users []string `json:"users"`
	From  string   `json:"from"`
	Text  string   `json:"text"`
	Time  string   `json:"time"`
}

func (c *fakeConn) events(t *testing.T) []wireEvent {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]wireEvent, 0, len(c.frames))
	for _, f := range c.frames {
		var e wireEvent
		require.NoError(t, json.Unmarshal(f, &e))
		out = append(out, e)
	}
	return out
}

func (c *fakeConn) ofType(t *testing.T, typ string) []wireEvent {
	t.Helper()
	var out []wireEvent
	for _, e := range c.events(t) {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func newPresence(policy NamePolicy) (*Registry, *Presence) {
	reg := NewRegistry(policy)
	return reg, &Presence{Registry: reg, Emitter: &Emitter{Policy: SimplePolicy{}}}
}
