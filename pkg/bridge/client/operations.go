package client

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/questpilot/pkg/bridge/wire"
)

// TypeText types the text into the widget's input control.
func (c *Client) TypeText(ctx context.Context, text string) error {
	var res wire.Result
	if err := c.call(ctx, wire.TypeText, wire.TypeTextRequest{Text: text}, actionTimeout, &res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("type_text failed: %s", res.Error)
	}
	return nil
}

// ClickSend submits the typed prompt.
func (c *Client) ClickSend(ctx context.Context) error {
	var res wire.Result
	if err := c.call(ctx, wire.ClickSend, nil, actionTimeout, &res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("click_send failed: %s", res.Error)
	}
	return nil
}

// WaitForResponse watches for new reply content. timeout bounds the
// bridge-side watcher; the RPC itself is given a small grace on top so the
// found:false result makes it back instead of a spurious RPC timeout.
func (c *Client) WaitForResponse(ctx context.Context, keywords []string, timeout time.Duration) (*wire.ResponseDetectedResult, error) {
	if timeout <= 0 {
		timeout = DefaultResponseTimeout
	}
	req := wire.WaitForResponseRequest{
		Keywords:  keywords,
		TimeoutMs: int(timeout / time.Millisecond),
	}
	var res wire.ResponseDetectedResult
	if err := c.call(ctx, wire.WaitForResponse, req, timeout+waitRPCGrace, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CheckIfOpen asks the widget bridge whether its input control is present.
func (c *Client) CheckIfOpen(ctx context.Context) (bool, error) {
	var res wire.StatusResult
	if err := c.call(ctx, wire.CheckIfOpen, nil, livenessTimeout, &res); err != nil {
		return false, err
	}
	return res.Open, nil
}

// FindInteractiveElements lists buttons and links in the latest reply.
func (c *Client) FindInteractiveElements(ctx context.Context) ([]wire.InteractiveElement, error) {
	var res wire.InteractiveElementsResult
	if err := c.call(ctx, wire.FindInteractiveElements, nil, actionTimeout, &res); err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, fmt.Errorf("find_interactive_elements failed: %s", res.Error)
	}
	return res.Elements, nil
}

// ClickFirstButton clicks the first button in the latest reply, or reports
// an input when one takes priority.
func (c *Client) ClickFirstButton(ctx context.Context) (*wire.ClickedResult, error) {
	var res wire.ClickedResult
	if err := c.call(ctx, wire.ClickFirstButton, nil, actionTimeout, &res); err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, fmt.Errorf("click_first_button failed: %s", res.Error)
	}
	return &res, nil
}

// ClickButtonByText clicks the first element matching the text.
func (c *Client) ClickButtonByText(ctx context.Context, text string) (*wire.ClickedResult, error) {
	var res wire.ClickedResult
	if err := c.call(ctx, wire.ClickButtonByText, wire.ClickButtonByTextRequest{Text: text}, actionTimeout, &res); err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, fmt.Errorf("click_button_by_text failed: %s", res.Error)
	}
	return &res, nil
}

// FindInput reports the first input or select in the latest reply.
func (c *Client) FindInput(ctx context.Context) (*wire.InputFoundResult, error) {
	var res wire.InputFoundResult
	if err := c.call(ctx, wire.FindInput, nil, actionTimeout, &res); err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, fmt.Errorf("find_input failed: %s", res.Error)
	}
	return &res, nil
}
