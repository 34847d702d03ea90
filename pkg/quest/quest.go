// Package quest defines the immutable quest and step model plus the loaders
// for the quest library and selector map consumed by the runner.
package quest

import (
	"fmt"
	"strings"
)

// ActionKind is the kind of interaction a step performs.
type ActionKind string

const (
	// ActionClick clicks a UI target resolved through the selector map.
	ActionClick ActionKind = "click"
	// ActionTypeAndSend types a prompt into the assistant and submits it.
	ActionTypeAndSend ActionKind = "type_and_send"
)

// Difficulty tags a quest for presentation and point scaling.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Step is one atomic instruction within a quest. Steps are immutable once
// loaded; the runner never mutates them.
type Step struct {
	// ID identifies the step within its quest.
	ID string `json:"id"`

	// Action is the kind of interaction: click or type_and_send.
	Action ActionKind `json:"action"`

	// Selector is a dot-path key into the selector map. Only used for
	// click steps.
	Selector string `json:"selector,omitempty"`

	// VerifySelector is the key for the element whose appearance proves
	// a click step completed (real mode). Defaults to Selector.
	VerifySelector string `json:"verifySelector,omitempty"`

	// Prompt is the text typed into the assistant for type_and_send steps.
	Prompt string `json:"prompt,omitempty"`

	// Instructions is shown to the user in real mode before verification.
	Instructions string `json:"instructions,omitempty"`

	// WaitForResponse makes the step wait for an assistant reply after
	// the action completes.
	WaitForResponse bool `json:"waitForResponse,omitempty"`

	// ResponseKeywords are matched case-insensitively against the reply;
	// any single hit satisfies the wait.
	ResponseKeywords []string `json:"responseKeywords,omitempty"`

	// Optional steps may fail without aborting the quest.
	Optional bool `json:"optional,omitempty"`
}

// Quest is a named, ordered sequence of steps worth a point reward on
// completion. Quests are owned by configuration and read-only to the runner.
type Quest struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Category      string     `json:"category"`
	Points        int        `json:"points"`
	Difficulty    Difficulty `json:"difficulty"`
	Prerequisites []string   `json:"prerequisites,omitempty"`
	Steps         []Step     `json:"steps"`
}

// Validate checks structural invariants on the quest definition.
func (q *Quest) Validate() error {
	if q.ID == "" {
		return fmt.Errorf("quest is missing an id")
	}
	if len(q.Steps) == 0 {
		return fmt.Errorf("quest %q has no steps", q.ID)
	}
	for i, step := range q.Steps {
		switch step.Action {
		case ActionClick:
			if step.Selector == "" {
				return fmt.Errorf("quest %q step %d: click step requires a selector key", q.ID, i)
			}
		case ActionTypeAndSend:
			if strings.TrimSpace(step.Prompt) == "" {
				return fmt.Errorf("quest %q step %d: type_and_send step requires a prompt", q.ID, i)
			}
		default:
			return fmt.Errorf("quest %q step %d: unknown action %q", q.ID, i, step.Action)
		}
	}
	return nil
}

// SubApp returns the sub-application scope of the quest, derived from the
// first segment of its dotted category (e.g. "payroll.onboarding" → "payroll").
func (q *Quest) SubApp() string {
	if idx := strings.IndexByte(q.Category, '.'); idx > 0 {
		return q.Category[:idx]
	}
	return q.Category
}
