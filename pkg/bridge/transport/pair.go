package transport

import (
	"sync"

	"github.com/entrhq/questpilot/pkg/bridge/wire"
)

// pairBuffer is the per-direction envelope buffer. Sized so a burst of
// unsolicited notifications can't block the sender's event loop.
const pairBuffer = 64

// pairEndpoint is one side of an in-process channel pair.
type pairEndpoint struct {
	out    chan<- wire.Envelope
	in     <-chan wire.Envelope
	recv   chan wire.Envelope
	accept []wire.Source

	mu      sync.Mutex
	closed  bool
	dropped int
}

// NewPair creates a connected in-process endpoint pair modelling the
// page ↔ widget channel. The page endpoint accepts only widget-sourced
// envelopes and vice versa.
func NewPair() (page Endpoint, widget Endpoint) {
	toWidget := make(chan wire.Envelope, pairBuffer)
	toPage := make(chan wire.Envelope, pairBuffer)

	p := newPairEndpoint(toWidget, toPage, wire.SourceWidget)
	w := newPairEndpoint(toPage, toWidget, wire.SourcePage)
	return p, w
}

func newPairEndpoint(out chan<- wire.Envelope, in <-chan wire.Envelope, accept wire.Source) *pairEndpoint {
	e := &pairEndpoint{
		out:    out,
		in:     in,
		recv:   make(chan wire.Envelope, pairBuffer),
		accept: []wire.Source{accept},
	}
	go e.pump()
	return e
}

// pump filters inbound envelopes through the allow-list. Filtering happens
// on the receive side so a misbehaving sender can't bypass it.
func (e *pairEndpoint) pump() {
	defer close(e.recv)
	for env := range e.in {
		if !allowed(env, e.accept) {
			e.mu.Lock()
			e.dropped++
			e.mu.Unlock()
			continue
		}
		e.recv <- env
	}
}

// Send posts the envelope to the peer without blocking. Envelopes are
// dropped when the peer's buffer is full; the channel is fire-and-forget
// by contract.
func (e *pairEndpoint) Send(env wire.Envelope) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	select {
	case e.out <- env:
	default:
		e.dropped++
	}
	return nil
}

// Receive returns accepted envelopes from the peer. The channel closes
// when the peer side closes.
func (e *pairEndpoint) Receive() <-chan wire.Envelope {
	return e.recv
}

// Close marks the endpoint closed and closes its outbound channel so the
// peer's receive loop terminates.
func (e *pairEndpoint) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	close(e.out)
	return nil
}

// Dropped returns how many envelopes were discarded (full buffer or
// allow-list mismatch). Exposed for tests and diagnostics.
func (e *pairEndpoint) Dropped() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dropped
}
