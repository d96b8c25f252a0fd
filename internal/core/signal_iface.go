package core

// Frame is a raw encoded payload (one JSON text message).
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	// Close sends a close frame with code and tears the transport down. Safe to call twice.
	Close(code int, reason string)
}
