package core

import "github.com/google/uuid"

// Frame is one encoded outbound message.
type Frame []byte

// ConnID identifies one open connection. It is issued at accept time and
// never reused, even after the connection closes.
type ConnID string

func NewConnID() ConnID { return ConnID(uuid.NewString()) }

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend queues f without blocking and fails when the queue is full or closed.
	TrySend(f Frame) error
	Close()
}
