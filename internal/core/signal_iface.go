package core

import "errors"

// Frame is a raw encoded event, ready for the wire.
type Frame []byte

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// SignalConnection abstracts for a system messaging transport.
// TrySend never blocks: it either queues the frame on the connection outbox
// or fails with ErrBackpressure / ErrConnClosed.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
