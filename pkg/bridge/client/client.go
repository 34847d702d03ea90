// Package client implements the page-side half of the bridge: it turns the
// one-way notification channel into a reliable request/response API with
// strict requestId correlation and per-call timeouts, and composes the
// primitive operations into the higher-level calls the runner uses.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/entrhq/questpilot/pkg/bridge/transport"
	"github.com/entrhq/questpilot/pkg/bridge/wire"
	"github.com/entrhq/questpilot/pkg/logging"
)

// Sentinel errors callers can match on.
var (
	// ErrTimeout is returned when a request sees no matching response in time.
	ErrTimeout = errors.New("bridge request timed out")
	// ErrFrameNotFound is returned when the widget frame cannot be located.
	ErrFrameNotFound = errors.New("widget frame not found")
	// ErrChannelClosed is returned when the notification channel is down.
	ErrChannelClosed = errors.New("bridge channel closed")
)

// Timeout budget. Individual RPCs get 10–35s depending on the operation;
// frame discovery gets 10s on the open path and 5s for liveness checks.
const (
	// DefaultRPCTimeout bounds a request with no operation-specific budget.
	DefaultRPCTimeout = 30 * time.Second

	actionTimeout    = 10 * time.Second       // type_text, click_send, clicks
	livenessTimeout  = 5 * time.Second        // check_if_open
	discoveryTimeout = 10 * time.Second       // frame polling on the open path
	discoveryPoll    = 500 * time.Millisecond // frame polling interval
	settleDelay      = 500 * time.Millisecond // between typing and sending
	// waitRPCGrace is added to a response-wait's content timeout so the
	// RPC outlives the bridge-side watcher and carries its result home.
	waitRPCGrace = 5 * time.Second
)

// DefaultResponseTimeout bounds the bridge-side response watcher.
const DefaultResponseTimeout = 30 * time.Second

// Client is the main-frame bridge client. It does not retry; retry policy
// belongs to the runner.
type Client struct {
	endpoint        transport.Endpoint
	target          Target
	logger          *logging.Logger
	responseTimeout time.Duration

	nextID atomic.Int64

	mu      sync.Mutex
	pending map[int64]chan wire.Envelope
	open    bool
	ready   bool
}

// Option adjusts client construction.
type Option func(*Client)

// WithResponseTimeout overrides the bridge-side response watcher budget that
// SendPrompt uses. Zero or negative values keep the default.
func WithResponseTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.responseTimeout = d
		}
	}
}

// New creates a client over the endpoint and starts its receive pump.
// target locates the widget frame and the page controls that toggle it.
func New(endpoint transport.Endpoint, target Target, logger *logging.Logger, opts ...Option) *Client {
	c := &Client{
		endpoint:        endpoint,
		target:          target,
		logger:          logger,
		responseTimeout: DefaultResponseTimeout,
		pending:         make(map[int64]chan wire.Envelope),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.pump()
	return c
}

// pump routes responses to their awaiting callers. A response with an
// unknown requestId resolves nothing: after a timeout the entry is gone and
// the stray response is dropped here.
func (c *Client) pump() {
	for env := range c.endpoint.Receive() {
		if env.RequestID == 0 {
			c.handleNotification(env)
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[env.RequestID]
		if ok {
			delete(c.pending, env.RequestID)
		}
		c.mu.Unlock()
		if !ok {
			c.logger.Debugf("dropping stray response %s (request %d)", env.Type, env.RequestID)
			continue
		}
		ch <- env
	}
}

// handleNotification processes unsolicited widget messages.
func (c *Client) handleNotification(env wire.Envelope) {
	if env.Type == wire.IframeReady {
		c.mu.Lock()
		c.ready = true
		c.mu.Unlock()
		c.logger.Infof("widget bridge announced ready")
	}
}

// Ready reports whether the widget bridge has announced itself.
func (c *Client) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// SendMessage posts a request into the widget frame and waits for the
// response carrying the same requestId. Concurrent calls never
// cross-resolve. After timeout the pending entry is removed, so a late
// response is dropped by the pump.
func (c *Client) SendMessage(ctx context.Context, msgType wire.MessageType, payload interface{}, timeout time.Duration) (wire.Envelope, error) {
	if timeout <= 0 {
		timeout = DefaultRPCTimeout
	}

	id := c.nextID.Add(1)
	env, err := wire.NewEnvelope(wire.SourcePage, msgType, id, payload)
	if err != nil {
		return wire.Envelope{}, fmt.Errorf("failed to encode %s request: %w", msgType, err)
	}

	ch := make(chan wire.Envelope, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.endpoint.Send(env); err != nil {
		c.unregister(id)
		return wire.Envelope{}, fmt.Errorf("failed to send %s: %w", msgType, errors.Join(ErrChannelClosed, err))
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		return resp, nil
	case <-timer.C:
		c.unregister(id)
		return wire.Envelope{}, fmt.Errorf("%s (request %d) after %s: %w", msgType, id, timeout, ErrTimeout)
	case <-ctx.Done():
		c.unregister(id)
		return wire.Envelope{}, fmt.Errorf("%s (request %d) cancelled: %w", msgType, id, ctx.Err())
	}
}

func (c *Client) unregister(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// call sends a request and decodes the response payload into out. Callers
// check the decoded payload's Success flag for operation-level failure.
func (c *Client) call(ctx context.Context, msgType wire.MessageType, payload interface{}, timeout time.Duration, out interface{}) error {
	resp, err := c.SendMessage(ctx, msgType, payload, timeout)
	if err != nil {
		return err
	}
	if err := resp.Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", resp.Type, err)
	}
	return nil
}
