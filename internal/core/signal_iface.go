package core

// Frame is one encoded outbound protocol message.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend queues f without blocking. Frames queued by one caller are
	// written in the order they were queued.
	TrySend(Frame) error
	Close()
}
