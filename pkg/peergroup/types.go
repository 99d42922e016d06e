// Package peergroup implements a peer-group coordinator for a Bitcoin-style
// peer-to-peer network: it maintains a pool of outbound connections to
// remote peers discovered through several independent methods, optionally
// accepts inbound peer-exchange connections, multiplexes requests across the
// pool with automatic retry, and re-emits streamed peer events on a single
// group-level bus.
//
// The wire codec, the concrete handshake/ping/framing of one connection, and
// the peer-exchange subprotocol are treated as external collaborators: this
// package only depends on the Peer and Exchange interfaces below.
package peergroup

import (
	"context"
	"io"
	"time"
)

// Transport is a bidirectional byte stream produced by a discovery method,
// owned by the Peer once wrapped.
type Transport io.ReadWriteCloser

// TimeoutError is satisfied by any error that can report whether it
// represents a timeout, mirroring the net.Error convention. Request
// completions use this to decide whether to retry against another peer.
type TimeoutError interface {
	error
	Timeout() bool
}

// Message is one application-level command received from a peer.
type Message struct {
	Command string
	Payload []byte
}

// TxHash, BlockHash identify objects by their content address. Both are
// treated as opaque byte strings by this package; hashing and encoding
// belong to the wire-codec collaborator.
type TxHash = string
type BlockHash = string

// Tx is the minimal shape of a transaction this package needs: an address
// for dedup/topic purposes plus the opaque payload higher layers decode.
type Tx struct {
	Hash TxHash
	Raw  []byte
}

// BlockHeader carries the content address of a block or merkleblock.
type BlockHeader struct {
	Hash BlockHash
}

// Block is the minimal shape of a block this package re-emits.
type Block struct {
	Header BlockHeader
	Raw    []byte
}

// MerkleBlock is the minimal shape of a merkleblock this package re-emits.
type MerkleBlock struct {
	Header BlockHeader
	Raw    []byte
}

// PeerEventKind tags the variant carried by a PeerEvent. A tagged variant is
// used here (rather than a topic-indexed handler table) because the fixed
// set of peer-level signals is closed and small; the open-ended, per-command
// re-emission in §4.9 is handled separately by the group's message-topic
// table.
type PeerEventKind int

const (
	// EventReady fires exactly once, when the peer completes its handshake.
	EventReady PeerEventKind = iota
	// EventMessage fires once per received application command.
	EventMessage
	// EventTx fires once per observed transaction.
	EventTx
	// EventBlock fires once per observed block.
	EventBlock
	// EventMerkleBlock fires once per observed merkleblock.
	EventMerkleBlock
	// EventDisconnect fires exactly once, terminating the peer's event stream.
	EventDisconnect
	// EventError fires zero or more times for non-terminal peer errors.
	EventError
)

// PeerEvent is one signal from a Peer's event stream.
type PeerEvent struct {
	Kind        PeerEventKind
	Message     *Message
	Tx          *Tx
	Block       *Block
	MerkleBlock *MerkleBlock
	Err         error
}

// RequestOptions is an opaque bundle forwarded to a Peer's request methods.
type RequestOptions map[string]any

// Peer is the external collaborator representing one established,
// handshaken session. Its handshake, ping/keepalive, and message framing are
// out of scope for this package: a Peer only needs to stream PeerEvents and
// answer the three request methods, optionally honoring ctx for timeout.
type Peer interface {
	// Addr identifies the remote endpoint.
	Addr() string
	// Events returns the peer's event stream. It is closed after the
	// EventDisconnect event has been delivered.
	Events() <-chan PeerEvent
	// Send transmits one application command. Delivery is not guaranteed.
	Send(command string, payload []byte) error
	// Disconnect asks the peer to tear down, optionally reporting why.
	Disconnect(err error)

	GetBlocks(ctx context.Context, hashes []BlockHash, opts RequestOptions) (any, error)
	GetTransactions(ctx context.Context, blockHash BlockHash, txids []TxHash, opts RequestOptions) (any, error)
	GetHeaders(ctx context.Context, locator []BlockHash, opts RequestOptions) (any, error)
}

// PeerFactory wraps a raw Transport as a Peer using the group's stored
// per-peer option bundle. This is the boundary of component C6: everything
// past this call (handshake, ping, framing) belongs to the Peer
// implementation, not to this package.
type PeerFactory func(t Transport, opts RequestOptions) (Peer, error)

// ExchangeEvent is a spontaneous signal from the peer-exchange collaborator:
// either a freshly connected web peer (outbound, eligible for C1's
// exchange-backed candidate producer) or a freshly accepted inbound peer.
type ExchangeEvent struct {
	Transport Transport
	Incoming  bool
	Err       error
}

// Exchange is the external peer-exchange collaborator (websocket/WebRTC
// session introduction). Its own subprotocol wire format is out of scope;
// this package only depends on the shape below.
type Exchange interface {
	// Connect establishes one outbound session over the named transport
	// kind ("websocket" or "webrtc").
	Connect(ctx context.Context, transportKind, address string, opts RequestOptions) (Transport, error)
	// Accept enables inbound sessions of the named transport kind.
	Accept(ctx context.Context, transportKind string, opts RequestOptions) error
	// Unaccept disables inbound sessions of the named transport kind.
	Unaccept(ctx context.Context, transportKind string) error
	// GetNewPeer returns one outbound transport chosen by the exchange
	// among its already-connected web peers.
	GetNewPeer(ctx context.Context) (Transport, error)
	// Peers lists addresses of currently connected web peers.
	Peers() []string
	// Events surfaces spontaneous peer arrivals (inbound accepts, and web
	// peers the exchange connects on its own).
	Events() <-chan ExchangeEvent
}

// WebSeed is one entry of Params.WebSeeds, either parsed from a bare URL
// string or given explicitly.
type WebSeed struct {
	Transport string
	Address   string
	Opts      RequestOptions
}

// Params configures the network this group participates in and how its
// members are discovered. It is supplied once, at construction.
type Params struct {
	Magic          uint32
	DNSSeeds       []string
	StaticPeers    []string
	DefaultPort    int
	DefaultWebPort int
	WebSeeds       []WebSeed
	GetNewPeer     func(ctx context.Context) (Transport, error)
}

// Options tunes pool size and per-peer behavior. Zero values are replaced by
// the documented defaults in New.
type Options struct {
	NumPeers       int
	HardLimit      bool
	ConnectTimeout time.Duration
	PeerOpts       RequestOptions
	ConnectWeb     bool
	Factory        PeerFactory
	Exchange       Exchange
}

// Phase is the lifecycle stage of a Group.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseConnecting:
		return "connecting"
	case PhaseClosed:
		return "closed"
	default:
		return "unknown"
	}
}
