package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/questpilot/pkg/bridge/client"
	"github.com/entrhq/questpilot/pkg/bridge/wire"
	"github.com/entrhq/questpilot/pkg/classifier"
	"github.com/entrhq/questpilot/pkg/quest"
	"github.com/entrhq/questpilot/pkg/types"
)

// runDemoStep performs the step itself, paced so a watching user can follow
// along: a beat before acting, a longer beat while the reply is on screen.
func (r *Runner) runDemoStep(ctx context.Context, q *quest.Quest, step quest.Step, idx, total int) error {
	if err := r.sleep(ctx, r.demoStepDelay); err != nil {
		return err
	}
	r.surface.ShowStep(step, idx+1, total, "")

	switch step.Action {
	case quest.ActionClick:
		sels, err := r.selectors.Resolve(step.Selector)
		if err != nil {
			return err
		}
		return r.bridge.ClickPage(ctx, sels)

	case quest.ActionTypeAndSend:
		res, err := r.bridge.SendPrompt(ctx, step.Prompt, step.WaitForResponse, step.ResponseKeywords)
		if err != nil {
			return err
		}
		if !step.WaitForResponse {
			return nil
		}
		parsed := r.parseReply(res)
		r.emit(types.RunnerEvent{Type: types.EventTypeResponseParsed, QuestID: q.ID, StepIndex: idx, Message: parsed.Message})
		r.surface.ShowStep(step, idx+1, total, responseSummary(parsed))
		if err := r.sleep(ctx, r.demoResponseDelay); err != nil {
			return err
		}
		if !parsed.Success {
			return &responseError{parsed: parsed}
		}
		return nil
	}
	return fmt.Errorf("unknown step action %q", step.Action)
}

// runRealStep shows the user what to do and polls until the expected effect
// appears or the verification window closes.
func (r *Runner) runRealStep(ctx context.Context, q *quest.Quest, step quest.Step, idx, total int) error {
	r.emit(types.RunnerEvent{Type: types.EventTypeStepInstructions, QuestID: q.ID, StepIndex: idx, Message: step.Instructions})
	r.surface.ShowStepInstructions(step, idx+1, total)

	switch step.Action {
	case quest.ActionClick:
		key := step.VerifySelector
		if key == "" {
			key = step.Selector
		}
		sels, err := r.selectors.Resolve(key)
		if err != nil {
			return err
		}
		deadline := time.Now().Add(r.verifyTimeout)
		for {
			if r.bridge.PageElementPresent(sels) {
				return nil
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("element %s never appeared: %w", key, client.ErrTimeout)
			}
			if err := r.sleep(ctx, r.verifyPoll); err != nil {
				return err
			}
		}

	case quest.ActionTypeAndSend:
		// The user types and sends; the bridge watches for the reply.
		res, err := r.bridge.WaitForResponse(ctx, step.ResponseKeywords, r.verifyTimeout)
		if err != nil {
			return err
		}
		parsed := r.parseReply(res)
		r.emit(types.RunnerEvent{Type: types.EventTypeResponseParsed, QuestID: q.ID, StepIndex: idx, Message: parsed.Message})
		r.surface.ShowStep(step, idx+1, total, responseSummary(parsed))
		if !parsed.Success {
			return &responseError{parsed: parsed}
		}
		return nil
	}
	return fmt.Errorf("unknown step action %q", step.Action)
}

// parseReply classifies a wait result. A watcher that gave up (found:false)
// is a timeout no matter what trailing text it captured.
func (r *Runner) parseReply(res *wire.ResponseDetectedResult) classifier.ParsedResponse {
	if res == nil || !res.Found {
		return r.classifier.Parse("", "")
	}
	return r.classifier.Parse(res.HTML, res.Text)
}

// responseSummary picks the one-line rendering of a classified reply.
func responseSummary(p classifier.ParsedResponse) string {
	switch p.Type {
	case classifier.TypeList:
		if p.List != nil {
			return fmt.Sprintf("%s (%d of %d)", p.List.Title, p.List.Shown, p.List.Total)
		}
	case classifier.TypeCard:
		if p.Cards != nil {
			return fmt.Sprintf("%d card(s)", p.Cards.Count)
		}
	case classifier.TypeMarkdown:
		return p.Summary
	}
	return p.Message
}

// stepLabel names a step for success lines.
func stepLabel(step quest.Step) string {
	switch step.Action {
	case quest.ActionClick:
		return fmt.Sprintf("clicked %s", step.Selector)
	case quest.ActionTypeAndSend:
		return fmt.Sprintf("sent %q", step.Prompt)
	}
	return string(step.Action)
}
