package peergroup

// Source is the minimal surface a stream factory needs from a Group: a
// topic subscription primitive. Defined as an interface rather than
// requiring *Group directly so the assemblers these factories feed
// (block/header/tx stream assemblers, out of scope per spec.md §1) can be
// built and tested against a fake Source without a live Group.
type Source interface {
	Subscribe(topic string) (<-chan GroupEvent, func())
}

// HeaderStream is the §6 "stream factory" for headers: a collaborator
// constructor receiving the group as source. It only wires a live Group's
// header-bearing messages to a plain event channel; sequencing the
// resulting headers into a chain is the out-of-scope assembler spec.md §1
// excludes.
type HeaderStream struct {
	events <-chan GroupEvent
	cancel func()
}

// NewHeaderStream subscribes src for the "headers" command message. The
// wire codec that decodes Message.Payload into individual headers is out
// of scope; this factory only hands the assembler its raw source.
func NewHeaderStream(src Source) *HeaderStream {
	ch, cancel := src.Subscribe("headers")
	return &HeaderStream{events: ch, cancel: cancel}
}

// Events returns the stream's event channel.
func (s *HeaderStream) Events() <-chan GroupEvent { return s.events }

// Close cancels the underlying subscription.
func (s *HeaderStream) Close() { s.cancel() }

// BlockStream is the §6 stream factory for blocks: it subscribes to every
// block re-emitted by the group's event aggregator (C9). Reconciling a
// block against the merkle blocks/transactions that accompany it is the
// out-of-scope assembler.
type BlockStream struct {
	events <-chan GroupEvent
	cancel func()
}

// NewBlockStream subscribes src to the group-level "block" topic.
func NewBlockStream(src Source) *BlockStream {
	ch, cancel := src.Subscribe(TopicBlock)
	return &BlockStream{events: ch, cancel: cancel}
}

// Events returns the stream's event channel.
func (s *BlockStream) Events() <-chan GroupEvent { return s.events }

// Close cancels the underlying subscription.
func (s *BlockStream) Close() { s.cancel() }

// TxStream is the §6 stream factory for transactions: it subscribes to
// every transaction re-emitted by the group's event aggregator (C9), ahead
// of the tx-pool's own decay-driven dedup.
type TxStream struct {
	events <-chan GroupEvent
	cancel func()
}

// NewTxStream subscribes src to the group-level "tx" topic.
func NewTxStream(src Source) *TxStream {
	ch, cancel := src.Subscribe(TopicTx)
	return &TxStream{events: ch, cancel: cancel}
}

// Events returns the stream's event channel.
func (s *TxStream) Events() <-chan GroupEvent { return s.events }

// Close cancels the underlying subscription.
func (s *TxStream) Close() { s.cancel() }
