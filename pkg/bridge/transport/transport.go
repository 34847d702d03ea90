// Package transport provides the one-way notification channel the bridge
// pair communicates over. Delivery is fire-and-forget at this layer;
// request/response matching and timeouts belong to the bridge client.
//
// Every endpoint enforces an allow-list of peer sources: an envelope whose
// source is not expected from the other side is dropped before delivery.
// The original cross-document channel applied no such check, which is a
// hardening gap this layer deliberately closes.
package transport

import (
	"errors"

	"github.com/entrhq/questpilot/pkg/bridge/wire"
)

// ErrClosed is returned when sending on a closed endpoint.
var ErrClosed = errors.New("transport endpoint closed")

// Endpoint is one side of the notification channel.
type Endpoint interface {
	// Send posts an envelope to the peer. It never blocks on the peer
	// reading; an envelope sent to a full or closed peer is dropped.
	Send(env wire.Envelope) error

	// Receive returns the channel of envelopes accepted from the peer.
	// The channel is closed when the endpoint closes.
	Receive() <-chan wire.Envelope

	// Close tears the endpoint down. Safe to call more than once.
	Close() error
}

// allowed reports whether the envelope's source is in the allow-list.
func allowed(env wire.Envelope, accept []wire.Source) bool {
	for _, s := range accept {
		if env.Source == s {
			return true
		}
	}
	return false
}
