package client

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/questpilot/pkg/bridge/wire"
	"github.com/entrhq/questpilot/pkg/logging"
)

// fakeEndpoint is a scriptable channel endpoint. onSend runs on the
// sender's goroutine; replies are pushed through push().
type fakeEndpoint struct {
	mu     sync.Mutex
	sent   []wire.Envelope
	recv   chan wire.Envelope
	onSend func(env wire.Envelope)
	closed bool
}

func newFakeEndpoint() *fakeEndpoint {
	return &fakeEndpoint{recv: make(chan wire.Envelope, 64)}
}

func (f *fakeEndpoint) Send(env wire.Envelope) error {
	f.mu.Lock()
	f.sent = append(f.sent, env)
	handler := f.onSend
	f.mu.Unlock()
	if handler != nil {
		handler(env)
	}
	return nil
}

func (f *fakeEndpoint) Receive() <-chan wire.Envelope { return f.recv }

func (f *fakeEndpoint) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.recv)
	}
	return nil
}

func (f *fakeEndpoint) push(env wire.Envelope) { f.recv <- env }

// reply builds a widget response envelope for a request.
func reply(t *testing.T, req wire.Envelope, msgType wire.MessageType, payload interface{}) wire.Envelope {
	t.Helper()
	env, err := wire.NewEnvelope(wire.SourceWidget, msgType, req.RequestID, payload)
	require.NoError(t, err)
	return env
}

// fakeTarget implements Target with scripted behavior.
type fakeTarget struct {
	mu        sync.Mutex
	frame     bool
	openerErr error
	closerErr error
	clickErr  error
	clicked   []string
	present   map[string]bool
	opens     int
}

func (f *fakeTarget) FrameExists() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frame
}

func (f *fakeTarget) ClickOpener() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openerErr != nil {
		return f.openerErr
	}
	f.opens++
	f.frame = true
	return nil
}

func (f *fakeTarget) ClickCloser() error { return f.closerErr }

func (f *fakeTarget) ClickSelector(selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clickErr != nil {
		return f.clickErr
	}
	f.clicked = append(f.clicked, selector)
	return nil
}

func (f *fakeTarget) SelectorPresent(selector string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.present[selector]
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, _ := logging.NewLogger("test")
	t.Cleanup(func() { logger.Close() })
	return logger
}

func TestSendMessageCorrelatesConcurrentRequests(t *testing.T) {
	ep := newFakeEndpoint()
	// Echo each request's text back in the reply after a random delay, so
	// responses arrive out of order.
	ep.onSend = func(env wire.Envelope) {
		go func() {
			time.Sleep(time.Duration(rand.Intn(30)) * time.Millisecond)
			var req wire.TypeTextRequest
			_ = env.Decode(&req)
			ep.push(reply(t, env, wire.TextTyped, wire.Result{Success: true, Error: req.Text}))
		}()
	}
	c := New(ep, nil, testLogger(t))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			marker := fmt.Sprintf("req-%d", i)
			resp, err := c.SendMessage(context.Background(), wire.TypeText, wire.TypeTextRequest{Text: marker}, time.Second)
			if !assert.NoError(t, err) {
				return
			}
			var res wire.Result
			if !assert.NoError(t, resp.Decode(&res)) {
				return
			}
			assert.Equal(t, marker, res.Error, "response must resolve the request that asked for it")
		}(i)
	}
	wg.Wait()
}

func TestSendMessageTimeoutRemovesPendingAndDropsStray(t *testing.T) {
	ep := newFakeEndpoint()
	c := New(ep, nil, testLogger(t))

	_, err := c.SendMessage(context.Background(), wire.CheckIfOpen, nil, 50*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)

	c.mu.Lock()
	pending := len(c.pending)
	c.mu.Unlock()
	assert.Zero(t, pending, "a timed-out request must not leak its pending entry")

	// The late response now arrives; it must be dropped, not resolve
	// anything, and later calls still work.
	ep.mu.Lock()
	late := ep.sent[0]
	ep.mu.Unlock()
	ep.push(reply(t, late, wire.JouleStatus, wire.StatusResult{Result: wire.Result{Success: true}, Open: true}))

	ep.onSend = func(env wire.Envelope) {
		if env.Type == wire.CheckIfOpen {
			ep.push(reply(t, env, wire.JouleStatus, wire.StatusResult{Result: wire.Result{Success: true}, Open: true}))
		}
	}
	open, err := c.CheckIfOpen(context.Background())
	require.NoError(t, err)
	assert.True(t, open)
}

func TestSendMessageCancellation(t *testing.T) {
	ep := newFakeEndpoint()
	c := New(ep, nil, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := c.SendMessage(ctx, wire.ClickSend, nil, 10*time.Second)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 2*time.Second, "cancellation must not wait out the timeout")

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Empty(t, c.pending)
}

func TestReadyNotification(t *testing.T) {
	ep := newFakeEndpoint()
	c := New(ep, nil, testLogger(t))
	assert.False(t, c.Ready())

	env, err := wire.NewEnvelope(wire.SourceWidget, wire.IframeReady, 0, nil)
	require.NoError(t, err)
	ep.push(env)

	require.Eventually(t, c.Ready, time.Second, 10*time.Millisecond)
}

func TestWaitForTarget(t *testing.T) {
	t.Run("missing frame is false without error", func(t *testing.T) {
		c := New(newFakeEndpoint(), &fakeTarget{}, testLogger(t))
		found, err := c.WaitForTarget(context.Background(), 50*time.Millisecond)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("finds a frame that appears mid-poll", func(t *testing.T) {
		target := &fakeTarget{}
		c := New(newFakeEndpoint(), target, testLogger(t))
		go func() {
			time.Sleep(100 * time.Millisecond)
			target.mu.Lock()
			target.frame = true
			target.mu.Unlock()
		}()
		found, err := c.WaitForTarget(context.Background(), 5*time.Second)
		require.NoError(t, err)
		assert.True(t, found)
	})
}

func TestOpenChat(t *testing.T) {
	t.Run("already open is idempotent", func(t *testing.T) {
		ep := newFakeEndpoint()
		ep.onSend = func(env wire.Envelope) {
			ep.push(reply(t, env, wire.JouleStatus, wire.StatusResult{Result: wire.Result{Success: true}, Open: true}))
		}
		target := &fakeTarget{frame: true}
		c := New(ep, target, testLogger(t))

		res, err := c.OpenChat(context.Background())
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.True(t, res.AlreadyOpen)
		assert.Equal(t, 0, target.opens, "an open panel must not be toggled again")
		assert.True(t, c.IsOpen())
	})

	t.Run("clicks opener and waits for the frame", func(t *testing.T) {
		target := &fakeTarget{}
		c := New(newFakeEndpoint(), target, testLogger(t))

		res, err := c.OpenChat(context.Background())
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.False(t, res.AlreadyOpen)
		assert.Equal(t, 1, target.opens)
	})
}

func TestSendPromptNamesFailingSubStep(t *testing.T) {
	ep := newFakeEndpoint()
	ep.onSend = func(env wire.Envelope) {
		if env.Type == wire.TypeText {
			ep.push(reply(t, env, wire.TextTyped, wire.Result{Error: "no text input found in widget"}))
		}
	}
	c := New(ep, nil, testLogger(t))

	_, err := c.SendPrompt(context.Background(), "hello", false, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "typing failed")
}

func TestSendPromptWaitsForResponse(t *testing.T) {
	ep := newFakeEndpoint()
	ep.onSend = func(env wire.Envelope) {
		switch env.Type {
		case wire.TypeText, wire.ClickSend:
			ep.push(reply(t, env, wire.TextTyped, wire.Result{Success: true}))
		case wire.WaitForResponse:
			ep.push(reply(t, env, wire.ResponseDetected, wire.ResponseDetectedResult{
				Result:  wire.Result{Success: true},
				Found:   true,
				Keyword: "payslip",
				Text:    "your payslip is ready",
			}))
		}
	}
	c := New(ep, nil, testLogger(t))

	res, err := c.SendPrompt(context.Background(), "show payslip", true, []string{"payslip"})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Found)
	assert.Equal(t, "payslip", res.Keyword)

	// The bridge-side watcher was asked for the configured window.
	ep.mu.Lock()
	defer ep.mu.Unlock()
	var waitReq wire.WaitForResponseRequest
	for _, env := range ep.sent {
		if env.Type == wire.WaitForResponse {
			require.NoError(t, env.Decode(&waitReq))
		}
	}
	assert.Equal(t, int(DefaultResponseTimeout/time.Millisecond), waitReq.TimeoutMs)
}

func TestWithResponseTimeoutBoundsPromptWait(t *testing.T) {
	ep := newFakeEndpoint()
	ep.onSend = func(env wire.Envelope) {
		switch env.Type {
		case wire.TypeText, wire.ClickSend:
			ep.push(reply(t, env, wire.TextTyped, wire.Result{Success: true}))
		case wire.WaitForResponse:
			ep.push(reply(t, env, wire.ResponseDetected, wire.ResponseDetectedResult{
				Result: wire.Result{Success: true},
				Found:  true,
			}))
		}
	}
	c := New(ep, nil, testLogger(t), WithResponseTimeout(45*time.Second))

	_, err := c.SendPrompt(context.Background(), "show payslip", true, nil)
	require.NoError(t, err)

	ep.mu.Lock()
	defer ep.mu.Unlock()
	var waitReq wire.WaitForResponseRequest
	for _, env := range ep.sent {
		if env.Type == wire.WaitForResponse {
			require.NoError(t, env.Decode(&waitReq))
		}
	}
	assert.Equal(t, int(45*time.Second/time.Millisecond), waitReq.TimeoutMs)

	// Non-positive overrides keep the default.
	d := New(newFakeEndpoint(), nil, testLogger(t), WithResponseTimeout(0))
	assert.Equal(t, DefaultResponseTimeout, d.responseTimeout)
}

func TestClickPageTriesCandidatesInOrder(t *testing.T) {
	target := &fakeTarget{}
	c := New(newFakeEndpoint(), target, testLogger(t))

	require.NoError(t, c.ClickPage(context.Background(), []string{".primary", ".fallback"}))
	assert.Equal(t, []string{".primary"}, target.clicked)

	assert.Error(t, c.ClickPage(context.Background(), nil))
}

func TestCloseChatAlwaysClearsOpenState(t *testing.T) {
	target := &fakeTarget{frame: true, closerErr: fmt.Errorf("no close control configured")}
	c := New(newFakeEndpoint(), target, testLogger(t))
	c.setOpen(true)

	c.CloseChat()
	assert.False(t, c.IsOpen())
	assert.Equal(t, 1, target.opens, "falls back to toggling the opener")
}
