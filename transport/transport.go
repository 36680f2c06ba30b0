// Package transport carries the ftp package's already-encoded payload
// bodies over an encapsulated datagram channel addressed by
// (system id, component id). The concrete instance here is a
// point-to-point UDP transport; the Transport interface itself is the seam
// a different bus binding would implement against.
package transport

import "context"

// Message is one outer datagram: the addressing the bus uses to route a
// payload, plus the payload body ftp.Encode/ftp.Decode already framed.
type Message struct {
	TargetSystem    uint8
	TargetComponent uint8
	NetworkID       uint8
	Payload         []byte
}

// Transport sends and receives Messages. Recv delivers only messages that
// passed the target-id filter: a non-zero target system/component that
// doesn't match OwnIDs is dropped before it ever reaches the channel.
type Transport interface {
	Send(ctx context.Context, msg Message) error
	Recv() <-chan Message
	OwnIDs() (systemID, componentID uint8)
	Close() error
}

// Logger is the minimal leveled-logging surface a Transport implementation
// uses to report malformed or oversized datagrams. Shaped identically to
// ftp.Logger so a single adapter backs both without this package importing
// ftp.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...interface{}) {}
func (NopLogger) Warnf(string, ...interface{})  {}
func (NopLogger) Errorf(string, ...interface{}) {}
