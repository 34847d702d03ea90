package presenter

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/questpilot/pkg/quest"
	"github.com/entrhq/questpilot/pkg/types"
)

// Console renders quest progress as styled lines on a writer. It is the
// default surface for the CLI binaries.
type Console struct {
	out io.Writer

	titleStyle   lipgloss.Style
	stepStyle    lipgloss.Style
	successStyle lipgloss.Style
	errorStyle   lipgloss.Style
	detailStyle  lipgloss.Style
}

// NewConsole creates a console surface writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{
		out:          out,
		titleStyle:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		stepStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		successStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		errorStyle:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		detailStyle:  lipgloss.NewStyle().Faint(true),
	}
}

func (c *Console) printf(style lipgloss.Style, format string, v ...interface{}) {
	fmt.Fprintln(c.out, style.Render(fmt.Sprintf(format, v...)))
}

// ShowQuestStart announces a new run.
func (c *Console) ShowQuestStart(q *quest.Quest) {
	c.printf(c.titleStyle, "⚔️  Quest: %s (%d pts, %s)", q.Name, q.Points, q.Difficulty)
	if q.Description != "" {
		c.printf(c.detailStyle, "%s", q.Description)
	}
}

// ShowStep renders the current step.
func (c *Console) ShowStep(step quest.Step, current, total int, responseText string) {
	label := step.Prompt
	if step.Action == quest.ActionClick {
		label = "click " + step.Selector
	}
	c.printf(c.stepStyle, "[%d/%d] %s", current, total, label)
	if responseText != "" {
		c.printf(c.detailStyle, "    ↳ %s", responseText)
	}
}

// ShowStepInstructions tells the user what to do in real mode.
func (c *Console) ShowStepInstructions(step quest.Step, current, total int) {
	instructions := step.Instructions
	if instructions == "" {
		switch step.Action {
		case quest.ActionClick:
			instructions = "Click the highlighted control"
		case quest.ActionTypeAndSend:
			instructions = fmt.Sprintf("Ask the assistant: %q", step.Prompt)
		}
	}
	c.printf(c.stepStyle, "[%d/%d] Your turn: %s", current, total, instructions)
}

// ShowStepSuccess confirms a completed step.
func (c *Console) ShowStepSuccess(message string) {
	c.printf(c.successStyle, "  ✓ %s", message)
}

// ShowStepError renders a step failure using the kind's fixed copy; raw
// details go to a faint trailing line rather than the headline.
func (c *Console) ShowStepError(step quest.Step, kind types.ErrorKind, details string) {
	p := kind.Presentation()
	c.printf(c.errorStyle, "  %s %s — %s", p.Icon, p.Title, p.Message)
	if details != "" {
		c.printf(c.detailStyle, "    details: %s", details)
	}
}

// ShowQuestComplete renders the terminal screen.
func (c *Console) ShowQuestComplete(q *quest.Quest, outcome types.Outcome, failedSteps []int) {
	switch outcome {
	case types.OutcomeCompleted:
		c.printf(c.successStyle, "🏆 Quest complete! +%d points", q.Points)
	case types.OutcomeCompletedWithErrors:
		failed := make([]string, len(failedSteps))
		for i, idx := range failedSteps {
			failed[i] = fmt.Sprintf("%d", idx+1)
		}
		c.printf(c.successStyle, "🏆 Quest complete (+%d points), with issues on step(s) %s",
			q.Points, strings.Join(failed, ", "))
	case types.OutcomeAborted:
		c.printf(c.errorStyle, "✗ Quest aborted")
	}
}

// ShowError renders a quest-level blocking error.
func (c *Console) ShowError(message string) {
	c.printf(c.errorStyle, "✗ %s", message)
}

// Hide is a no-op for the console surface.
func (c *Console) Hide() {}
