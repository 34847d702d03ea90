package presenter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/questpilot/pkg/quest"
	"github.com/entrhq/questpilot/pkg/types"
)

// HUD is a full-screen terminal surface built on bubbletea. It mirrors the
// runner's state: a progress bar across steps, a spinner while a step is in
// flight, and the fixed error copy on failures.
type HUD struct {
	program *tea.Program
}

// NewHUD creates the surface. Run must be called (typically on its own
// goroutine) before the runner starts feeding it.
func NewHUD() *HUD {
	model := hudModel{
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		progress: progress.New(progress.WithDefaultGradient()),
	}
	return &HUD{program: tea.NewProgram(model)}
}

// Run blocks running the terminal program until Hide is called.
func (h *HUD) Run() error {
	_, err := h.program.Run()
	return err
}

// Message types posted from the runner goroutine into the program.
type (
	questStartMsg struct{ quest *quest.Quest }
	stepMsg       struct {
		step           quest.Step
		current, total int
		response       string
		instructions   bool
	}
	stepSuccessMsg struct{ message string }
	stepErrorMsg   struct {
		kind    types.ErrorKind
		details string
	}
	questCompleteMsg struct {
		quest       *quest.Quest
		outcome     types.Outcome
		failedSteps []int
	}
	questErrorMsg struct{ message string }
)

func (h *HUD) ShowQuestStart(q *quest.Quest) { h.program.Send(questStartMsg{quest: q}) }

func (h *HUD) ShowStep(step quest.Step, current, total int, responseText string) {
	h.program.Send(stepMsg{step: step, current: current, total: total, response: responseText})
}

func (h *HUD) ShowStepInstructions(step quest.Step, current, total int) {
	h.program.Send(stepMsg{step: step, current: current, total: total, instructions: true})
}

func (h *HUD) ShowStepSuccess(message string) { h.program.Send(stepSuccessMsg{message: message}) }

func (h *HUD) ShowStepError(step quest.Step, kind types.ErrorKind, details string) {
	h.program.Send(stepErrorMsg{kind: kind, details: details})
}

func (h *HUD) ShowQuestComplete(q *quest.Quest, outcome types.Outcome, failedSteps []int) {
	h.program.Send(questCompleteMsg{quest: q, outcome: outcome, failedSteps: failedSteps})
}

func (h *HUD) ShowError(message string) { h.program.Send(questErrorMsg{message: message}) }

func (h *HUD) Hide() { h.program.Quit() }

// hudModel is the bubbletea model behind the HUD.
type hudModel struct {
	spinner  spinner.Model
	progress progress.Model

	quest        *quest.Quest
	current      int
	total        int
	statusLine   string
	detailLine   string
	resultLines  []string
	instructions bool
	done         bool
}

var (
	hudTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	hudStatusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	hudDetailStyle = lipgloss.NewStyle().Faint(true)
	hudDoneStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	hudErrorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

func (m hudModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m hudModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case questStartMsg:
		m.quest = msg.quest
		m.total = len(msg.quest.Steps)
		m.current = 0
		m.resultLines = nil
		m.done = false
		m.statusLine = "starting..."
	case stepMsg:
		m.current = msg.current
		m.total = msg.total
		m.instructions = msg.instructions
		label := msg.step.Prompt
		if msg.step.Action == quest.ActionClick {
			label = "click " + msg.step.Selector
		}
		if msg.instructions {
			m.statusLine = "your turn: " + label
		} else {
			m.statusLine = label
		}
		m.detailLine = msg.response
	case stepSuccessMsg:
		m.resultLines = append(m.resultLines, "✓ "+msg.message)
	case stepErrorMsg:
		p := msg.kind.Presentation()
		m.resultLines = append(m.resultLines, fmt.Sprintf("%s %s — %s", p.Icon, p.Title, p.Message))
		m.detailLine = msg.details
	case questCompleteMsg:
		m.done = true
		switch msg.outcome {
		case types.OutcomeCompleted:
			m.statusLine = fmt.Sprintf("quest complete, +%d points", msg.quest.Points)
		case types.OutcomeCompletedWithErrors:
			m.statusLine = fmt.Sprintf("quest complete with %d failed step(s)", len(msg.failedSteps))
		case types.OutcomeAborted:
			m.statusLine = "quest aborted"
		}
	case questErrorMsg:
		m.done = true
		m.statusLine = msg.message
	}
	return m, nil
}

func (m hudModel) View() string {
	var b strings.Builder
	if m.quest != nil {
		b.WriteString(hudTitleStyle.Render(fmt.Sprintf("⚔️ %s", m.quest.Name)))
		b.WriteString("\n")
	}
	if m.total > 0 {
		b.WriteString(m.progress.ViewAs(float64(m.current) / float64(m.total)))
		b.WriteString(fmt.Sprintf("  %d/%d\n", m.current, m.total))
	}
	for _, line := range m.resultLines {
		b.WriteString(hudDetailStyle.Render(line))
		b.WriteString("\n")
	}
	switch {
	case m.done:
		style := hudDoneStyle
		if strings.Contains(m.statusLine, "abort") {
			style = hudErrorStyle
		}
		b.WriteString(style.Render(m.statusLine))
	case m.statusLine != "":
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(hudStatusStyle.Render(m.statusLine))
	}
	if m.detailLine != "" {
		b.WriteString("\n")
		b.WriteString(hudDetailStyle.Render(m.detailLine))
	}
	b.WriteString("\n")
	return b.String()
}
