package core

// Frame is a raw wire payload handed to a transport connection.
type Frame []byte

// ConnID identifies one live signaling connection. The presence layer holds
// it as a non-owning reference; the adapter owns the connection itself.
type ConnID string

// SignalConnection abstracts a system messaging transport.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}
