// Package presenter renders quest progress and errors. Implementations are
// purely reactive to runner state; they never drive the quest.
package presenter

import (
	"github.com/entrhq/questpilot/pkg/quest"
	"github.com/entrhq/questpilot/pkg/types"
)

// Surface is the presentation contract the runner feeds. Methods must not
// block quest execution.
type Surface interface {
	// ShowQuestStart announces a new run.
	ShowQuestStart(q *quest.Quest)

	// ShowStep renders the current step; responseText carries the
	// classified reply summary when one exists.
	ShowStep(step quest.Step, current, total int, responseText string)

	// ShowStepInstructions tells the user what to do in real mode.
	ShowStepInstructions(step quest.Step, current, total int)

	// ShowStepSuccess confirms a completed step.
	ShowStepSuccess(message string)

	// ShowStepError renders a step failure by error kind; details holds
	// technical text shown only on demand.
	ShowStepError(step quest.Step, kind types.ErrorKind, details string)

	// ShowQuestComplete renders the terminal screen with per-step
	// results and the indices of failed optional steps.
	ShowQuestComplete(q *quest.Quest, outcome types.Outcome, failedSteps []int)

	// ShowError renders a quest-level blocking error.
	ShowError(message string)

	// Hide clears the surface.
	Hide()
}

// Noop is a Surface that renders nothing. Useful in tests and headless
// wiring.
type Noop struct{}

func (Noop) ShowQuestStart(*quest.Quest)                          {}
func (Noop) ShowStep(quest.Step, int, int, string)                {}
func (Noop) ShowStepInstructions(quest.Step, int, int)            {}
func (Noop) ShowStepSuccess(string)                               {}
func (Noop) ShowStepError(quest.Step, types.ErrorKind, string)    {}
func (Noop) ShowQuestComplete(*quest.Quest, types.Outcome, []int) {}
func (Noop) ShowError(string)                                     {}
func (Noop) Hide()                                                {}
