package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/questpilot/pkg/bridge/transport"
	"github.com/entrhq/questpilot/pkg/bridge/wire"
	"github.com/entrhq/questpilot/pkg/logging"
)

// Bridge serves automation requests against the widget DOM. One bridge is
// bound to one frame for its lifetime.
type Bridge struct {
	dom      DOM
	endpoint transport.Endpoint
	logger   *logging.Logger
}

// New creates a bridge over the given DOM and channel endpoint.
func New(dom DOM, endpoint transport.Endpoint, logger *logging.Logger) *Bridge {
	return &Bridge{dom: dom, endpoint: endpoint, logger: logger}
}

// Run announces readiness and serves requests until the context is
// cancelled or the channel closes. Each request is handled on its own
// goroutine: a long wait_for_response must not block a check_if_open.
func (b *Bridge) Run(ctx context.Context) error {
	ready, err := wire.NewEnvelope(wire.SourceWidget, wire.IframeReady, 0, nil)
	if err != nil {
		return fmt.Errorf("failed to build ready notification: %w", err)
	}
	if err := b.endpoint.Send(ready); err != nil {
		return fmt.Errorf("failed to announce readiness: %w", err)
	}
	b.logger.Infof("bridge ready")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-b.endpoint.Receive():
			if !ok {
				return nil
			}
			go b.handle(ctx, env)
		}
	}
}

// handle executes one request and posts the reply with the same requestId.
// Failures become error payloads; nothing is thrown across the boundary.
func (b *Bridge) handle(ctx context.Context, env wire.Envelope) {
	b.logger.Debugf("handling %s (request %d)", env.Type, env.RequestID)

	var (
		respType wire.MessageType
		payload  interface{}
	)

	switch env.Type {
	case wire.TypeText:
		var req wire.TypeTextRequest
		if err := env.Decode(&req); err != nil {
			respType, payload = wire.ErrorResponse, wire.Result{Error: err.Error()}
			break
		}
		respType, payload = wire.TextTyped, typeText(b.dom, req.Text)

	case wire.ClickSend:
		respType, payload = wire.SendClicked, clickSend(b.dom)

	case wire.WaitForResponse:
		var req wire.WaitForResponseRequest
		if err := env.Decode(&req); err != nil {
			respType, payload = wire.ErrorResponse, wire.Result{Error: err.Error()}
			break
		}
		timeout := time.Duration(req.TimeoutMs) * time.Millisecond
		respType, payload = wire.ResponseDetected, waitForResponse(ctx, b.dom, req.Keywords, timeout)

	case wire.CheckIfOpen:
		respType, payload = wire.JouleStatus, checkIfOpen(b.dom)

	case wire.FindInteractiveElements:
		respType, payload = wire.InteractiveElementsFound, findInteractiveElements(b.dom)

	case wire.ClickFirstButton:
		respType, payload = wire.ButtonClicked, clickFirstButton(b.dom)

	case wire.ClickButtonByText:
		var req wire.ClickButtonByTextRequest
		if err := env.Decode(&req); err != nil {
			respType, payload = wire.ErrorResponse, wire.Result{Error: err.Error()}
			break
		}
		respType, payload = wire.ButtonClicked, clickButtonByText(b.dom, req.Text)

	case wire.FindInput:
		respType, payload = wire.InputFound, findInput(b.dom)

	default:
		respType = wire.ErrorResponse
		payload = wire.Result{Error: fmt.Sprintf("unknown request type %q", env.Type)}
	}

	resp, err := wire.NewEnvelope(wire.SourceWidget, respType, env.RequestID, payload)
	if err != nil {
		b.logger.Errorf("failed to encode %s response: %v", respType, err)
		return
	}
	if err := b.endpoint.Send(resp); err != nil {
		b.logger.Warnf("failed to send %s response: %v", respType, err)
	}
}
