package client

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/questpilot/pkg/bridge/wire"
)

// OpenResult reports an ensure-open outcome.
type OpenResult struct {
	Success     bool
	AlreadyOpen bool
}

// WaitForTarget polls for the widget frame until it appears or the timeout
// elapses. A missing frame after the timeout is "not yet available", not an
// error: it returns false with a nil error.
func (c *Client) WaitForTarget(ctx context.Context, timeout time.Duration) (bool, error) {
	if c.target == nil {
		return false, nil
	}
	deadline := time.Now().Add(timeout)
	for {
		if c.target.FrameExists() {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(discoveryPoll):
		}
	}
}

// OpenChat ensures the assistant panel is open. Idempotent: when the frame
// already exists its liveness is verified instead of clicking the opener
// again. Otherwise the opener is clicked and the frame polled for.
func (c *Client) OpenChat(ctx context.Context) (OpenResult, error) {
	if c.target != nil && c.target.FrameExists() {
		open, err := c.CheckIfOpen(ctx)
		if err == nil && open {
			c.setOpen(true)
			return OpenResult{Success: true, AlreadyOpen: true}, nil
		}
		// Fall through to the opener so a stuck or closed panel gets
		// toggled.
		if err != nil {
			c.logger.Warnf("widget frame present but not responding: %v", err)
		} else {
			c.logger.Warnf("widget frame present but panel reports closed; clicking the opener")
		}
	}

	if c.target == nil {
		return OpenResult{}, ErrFrameNotFound
	}
	if err := c.target.ClickOpener(); err != nil {
		return OpenResult{}, fmt.Errorf("failed to click assistant opener: %w", err)
	}

	found, err := c.WaitForTarget(ctx, discoveryTimeout)
	if err != nil {
		return OpenResult{}, err
	}
	if !found {
		return OpenResult{}, fmt.Errorf("assistant frame did not appear after opening: %w", ErrFrameNotFound)
	}
	c.setOpen(true)
	return OpenResult{Success: true}, nil
}

// SendPrompt composes type → settle → send → optional response wait. Each
// sub-step's failure aborts the composite with an error naming the sub-step.
// The returned result is nil when waitForResponse is false.
func (c *Client) SendPrompt(ctx context.Context, text string, waitForResponse bool, keywords []string) (*wire.ResponseDetectedResult, error) {
	if err := c.TypeText(ctx, text); err != nil {
		return nil, fmt.Errorf("send prompt: typing failed: %w", err)
	}

	// Give the widget's reactive state a beat to accept the value before
	// submitting, or the send can race an empty input.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(settleDelay):
	}

	if err := c.ClickSend(ctx); err != nil {
		return nil, fmt.Errorf("send prompt: sending failed: %w", err)
	}

	if !waitForResponse {
		return nil, nil
	}
	res, err := c.WaitForResponse(ctx, keywords, c.responseTimeout)
	if err != nil {
		return nil, fmt.Errorf("send prompt: response wait failed: %w", err)
	}
	return res, nil
}

// CloseChat closes the assistant panel, best-effort: it tries the explicit
// close control, falls back to toggling the opener, and always clears the
// local open state. It never returns an error a caller must act on.
func (c *Client) CloseChat() {
	defer c.setOpen(false)
	if c.target == nil {
		return
	}
	if err := c.target.ClickCloser(); err == nil {
		return
	}
	if err := c.target.ClickOpener(); err != nil {
		c.logger.Warnf("close chat: no close control and opener toggle failed: %v", err)
	}
}

// ClickPage clicks a host-page element, trying each candidate selector in
// order. Quest click targets live on the host page, outside the widget
// frame, so this path goes through the target rather than the channel.
func (c *Client) ClickPage(ctx context.Context, selectors []string) error {
	if c.target == nil {
		return ErrFrameNotFound
	}
	var lastErr error
	for _, sel := range selectors {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.target.ClickSelector(sel); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("no candidate selector clicked: %w", lastErr)
	}
	return fmt.Errorf("no candidate selectors given")
}

// PageElementPresent reports whether any candidate selector matches a
// host-page element right now.
func (c *Client) PageElementPresent(selectors []string) bool {
	if c.target == nil {
		return false
	}
	for _, sel := range selectors {
		if c.target.SelectorPresent(sel) {
			return true
		}
	}
	return false
}

// IsOpen reports the client's local open tracking state.
func (c *Client) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *Client) setOpen(open bool) {
	c.mu.Lock()
	c.open = open
	c.mu.Unlock()
}
