package peergroup

import (
	"errors"
	"fmt"
)

// Sentinel errors for the synchronous invariant violations of spec.md §7.
var (
	ErrNoPeers          = errors.New("not connected to any peers")
	ErrNoDiscoveryMethod = errors.New("no methods available to get new peers")
	ErrGroupClosed      = errors.New("peer group is closed")
	ErrBridgeConnect    = errors.New("do not use connect() with Bridge, only incoming connections are allowed")
	ErrTransportNotFound = errors.New(`transport "webrtc" not found`)
)

// DiscoveryError wraps a failure from one discovery attempt: either the one
// candidate-producer picked for the attempt failed, or none were enabled. It is always
// recoverable: the replenisher schedules another attempt whenever the group
// is still in PhaseConnecting.
type DiscoveryError struct {
	Err error
}

func (e *DiscoveryError) Error() string { return fmt.Sprintf("discovery error: %v", e.Err) }
func (e *DiscoveryError) Unwrap() error  { return e.Err }

// ConnectTimeoutError is returned by the TCP dialer (C2) when the connect
// attempt exceeds the configured timeout. It satisfies TimeoutError so
// request/connect retry paths can recognize it uniformly.
type ConnectTimeoutError struct {
	Addr string
}

func (e *ConnectTimeoutError) Error() string {
	return fmt.Sprintf("connection timed out: %s", e.Addr)
}
func (e *ConnectTimeoutError) Timeout() bool { return true }

// HandshakeError wraps a Peer emitting error/disconnect before reaching
// readiness (spec.md's PeerHandshakeError).
type HandshakeError struct {
	Err error
}

func (e *HandshakeError) Error() string { return fmt.Sprintf("peer handshake failed: %v", e.Err) }
func (e *HandshakeError) Unwrap() error  { return e.Err }

// RequestTimeoutError wraps a request completion carrying a truthy timeout
// marker (spec.md's RequestTimeout). The offending peer is disconnected and
// the request is retried unconditionally against a different peer.
type RequestTimeoutError struct {
	Method string
	Err    error
}

func (e *RequestTimeoutError) Error() string {
	return fmt.Sprintf("request %s timed out: %v", e.Method, e.Err)
}
func (e *RequestTimeoutError) Unwrap() error  { return e.Err }
func (e *RequestTimeoutError) Timeout() bool { return true }

// asTimeout reports whether err carries a truthy timeout marker, the Go
// equivalent of spec.md's `err.timeout` check.
func asTimeout(err error) bool {
	if err == nil {
		return false
	}
	var te TimeoutError
	if errors.As(err, &te) {
		return te.Timeout()
	}
	return false
}
