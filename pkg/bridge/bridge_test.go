package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/questpilot/pkg/bridge/wire"
	"github.com/entrhq/questpilot/pkg/logging"
)

// loopEndpoint collects outbound envelopes and feeds inbound ones.
type loopEndpoint struct {
	mu   sync.Mutex
	sent []wire.Envelope
	recv chan wire.Envelope
}

func newLoopEndpoint() *loopEndpoint {
	return &loopEndpoint{recv: make(chan wire.Envelope, 16)}
}

func (l *loopEndpoint) Send(env wire.Envelope) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, env)
	return nil
}

func (l *loopEndpoint) Receive() <-chan wire.Envelope { return l.recv }

func (l *loopEndpoint) Close() error {
	close(l.recv)
	return nil
}

func (l *loopEndpoint) sentAfter(t *testing.T, n int) []wire.Envelope {
	t.Helper()
	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.sent) > n
	}, 2*time.Second, 10*time.Millisecond)
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]wire.Envelope(nil), l.sent...)
}

func runBridge(t *testing.T, dom DOM, ep *loopEndpoint) context.CancelFunc {
	t.Helper()
	logger, _ := logging.NewLogger("test")
	t.Cleanup(func() { logger.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	b := New(dom, ep, logger)
	go func() { _ = b.Run(ctx) }()
	return cancel
}

func TestBridgeAnnouncesReady(t *testing.T) {
	ep := newLoopEndpoint()
	cancel := runBridge(t, newFakeDOM(), ep)
	defer cancel()

	sent := ep.sentAfter(t, 0)
	assert.Equal(t, wire.IframeReady, sent[0].Type)
	assert.Equal(t, wire.SourceWidget, sent[0].Source)
	assert.Zero(t, sent[0].RequestID, "readiness is unsolicited")
}

func TestBridgeDispatchesAndEchoesRequestID(t *testing.T) {
	dom := newFakeDOM()
	input := &fakeElement{tag: "textarea"}
	dom.set("textarea", input)

	ep := newLoopEndpoint()
	cancel := runBridge(t, dom, ep)
	defer cancel()
	ep.sentAfter(t, 0) // wait for ready

	req, err := wire.NewEnvelope(wire.SourcePage, wire.TypeText, 42, wire.TypeTextRequest{Text: "hello"})
	require.NoError(t, err)
	ep.recv <- req

	sent := ep.sentAfter(t, 1)
	resp := sent[1]
	assert.Equal(t, wire.TextTyped, resp.Type)
	assert.Equal(t, int64(42), resp.RequestID)
	assert.Equal(t, wire.SourceWidget, resp.Source)

	var res wire.Result
	require.NoError(t, resp.Decode(&res))
	assert.True(t, res.Success)
	assert.Equal(t, "hello", input.filled)
}

func TestBridgeUnknownRequestType(t *testing.T) {
	ep := newLoopEndpoint()
	cancel := runBridge(t, newFakeDOM(), ep)
	defer cancel()
	ep.sentAfter(t, 0)

	req, err := wire.NewEnvelope(wire.SourcePage, "explode", 7, nil)
	require.NoError(t, err)
	ep.recv <- req

	sent := ep.sentAfter(t, 1)
	resp := sent[1]
	assert.Equal(t, wire.ErrorResponse, resp.Type)
	assert.Equal(t, int64(7), resp.RequestID)

	var res wire.Result
	require.NoError(t, resp.Decode(&res))
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "explode")
}

func TestBridgeSlowWaitDoesNotBlockLiveness(t *testing.T) {
	dom := newFakeDOM()
	dom.set("textarea", &fakeElement{tag: "textarea"})

	ep := newLoopEndpoint()
	cancel := runBridge(t, dom, ep)
	defer cancel()
	ep.sentAfter(t, 0)

	// A long response wait must not starve the check that follows it.
	waitReq, err := wire.NewEnvelope(wire.SourcePage, wire.WaitForResponse, 1, wire.WaitForResponseRequest{
		Keywords:  []string{"never"},
		TimeoutMs: 5000,
	})
	require.NoError(t, err)
	ep.recv <- waitReq

	statusReq, err := wire.NewEnvelope(wire.SourcePage, wire.CheckIfOpen, 2, nil)
	require.NoError(t, err)
	ep.recv <- statusReq

	sent := ep.sentAfter(t, 1)
	resp := sent[1]
	assert.Equal(t, wire.JouleStatus, resp.Type, "the status check answers while the wait is still running")
	assert.Equal(t, int64(2), resp.RequestID)
}
