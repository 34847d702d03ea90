// Package runner executes quests as a step state machine over the bridge
// client. A runner owns at most one active quest at a time; starting a new
// quest while one is running resets the old run first.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/questpilot/pkg/bridge/client"
	"github.com/entrhq/questpilot/pkg/bridge/wire"
	"github.com/entrhq/questpilot/pkg/classifier"
	"github.com/entrhq/questpilot/pkg/logging"
	"github.com/entrhq/questpilot/pkg/presenter"
	"github.com/entrhq/questpilot/pkg/quest"
	"github.com/entrhq/questpilot/pkg/storage"
	"github.com/entrhq/questpilot/pkg/types"
)

// Mode selects how steps execute.
type Mode string

const (
	// ModeDemo drives the UI itself, performing every step automatically.
	ModeDemo Mode = "demo"
	// ModeReal shows instructions and verifies the user performed the step.
	ModeReal Mode = "real"
)

// Timing defaults. Demo pacing keeps the automated run watchable.
const (
	defaultVerifyTimeout = 60 * time.Second
	defaultVerifyPoll    = time.Second

	defaultDemoStepDelay     = 2 * time.Second
	defaultDemoResponseDelay = 3 * time.Second
	defaultDemoAdvanceDelay  = time.Second
)

// BridgeClient is the slice of the bridge client the runner needs.
type BridgeClient interface {
	OpenChat(ctx context.Context) (client.OpenResult, error)
	SendPrompt(ctx context.Context, text string, waitForResponse bool, keywords []string) (*wire.ResponseDetectedResult, error)
	WaitForResponse(ctx context.Context, keywords []string, timeout time.Duration) (*wire.ResponseDetectedResult, error)
	ClickPage(ctx context.Context, selectors []string) error
	PageElementPresent(selectors []string) bool
}

// Store is the slice of the progress gateway the runner needs. Save
// failures never undo an in-memory completion; they are logged and the run
// still reports success.
type Store interface {
	SaveQuestProgress(ctx context.Context, questID string, rec storage.ProgressRecord) error
	MarkQuestAttempted(ctx context.Context, subApp string) error
	IncrementQuestCompletion(ctx context.Context, points int, subApp string) error
}

// Options configures a Runner.
type Options struct {
	Bridge     BridgeClient
	Store      Store
	Selectors  *quest.SelectorMap
	Classifier *classifier.Classifier

	// Surface receives presentation calls; defaults to presenter.Noop.
	Surface presenter.Surface

	// Mode defaults to ModeDemo.
	Mode Mode

	Logger *logging.Logger

	// OnEvent, when set, receives every runner event.
	OnEvent func(types.RunnerEvent)

	// Sleep overrides the pacing clock. Tests inject a fake.
	Sleep func(ctx context.Context, d time.Duration) error

	VerifyTimeout     time.Duration
	VerifyPoll        time.Duration
	DemoStepDelay     time.Duration
	DemoResponseDelay time.Duration
	DemoAdvanceDelay  time.Duration
}

// Progress is a point-in-time snapshot of the runner's state.
type Progress struct {
	QuestID     string
	QuestName   string
	CurrentStep int // 1-based; 0 when idle
	TotalSteps  int
	Running     bool
	Mode        Mode
}

// Runner drives one quest at a time through the bridge.
type Runner struct {
	bridge     BridgeClient
	store      Store
	selectors  *quest.SelectorMap
	classifier *classifier.Classifier
	surface    presenter.Surface
	mode       Mode
	logger     *logging.Logger
	onEvent    func(types.RunnerEvent)
	sleep      func(ctx context.Context, d time.Duration) error

	verifyTimeout     time.Duration
	verifyPoll        time.Duration
	demoStepDelay     time.Duration
	demoResponseDelay time.Duration
	demoAdvanceDelay  time.Duration

	mu         sync.Mutex
	running    bool
	current    *quest.Quest
	stepIdx    int
	generation int
	cancelRun  context.CancelFunc
}

// New creates a runner. Bridge, Store, Selectors and Classifier are
// required.
func New(opts Options) (*Runner, error) {
	if opts.Bridge == nil {
		return nil, fmt.Errorf("runner requires a bridge client")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("runner requires a progress store")
	}
	if opts.Selectors == nil {
		return nil, fmt.Errorf("runner requires a selector map")
	}
	if opts.Classifier == nil {
		return nil, fmt.Errorf("runner requires a response classifier")
	}
	if opts.Surface == nil {
		opts.Surface = presenter.Noop{}
	}
	if opts.Mode == "" {
		opts.Mode = ModeDemo
	}
	if opts.Logger == nil {
		opts.Logger, _ = logging.NewLogger("runner")
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	if opts.VerifyTimeout <= 0 {
		opts.VerifyTimeout = defaultVerifyTimeout
	}
	if opts.VerifyPoll <= 0 {
		opts.VerifyPoll = defaultVerifyPoll
	}
	if opts.DemoStepDelay <= 0 {
		opts.DemoStepDelay = defaultDemoStepDelay
	}
	if opts.DemoResponseDelay <= 0 {
		opts.DemoResponseDelay = defaultDemoResponseDelay
	}
	if opts.DemoAdvanceDelay <= 0 {
		opts.DemoAdvanceDelay = defaultDemoAdvanceDelay
	}
	return &Runner{
		bridge:            opts.Bridge,
		store:             opts.Store,
		selectors:         opts.Selectors,
		classifier:        opts.Classifier,
		surface:           opts.Surface,
		mode:              opts.Mode,
		logger:            opts.Logger,
		onEvent:           opts.OnEvent,
		sleep:             opts.Sleep,
		verifyTimeout:     opts.VerifyTimeout,
		verifyPoll:        opts.VerifyPoll,
		demoStepDelay:     opts.DemoStepDelay,
		demoResponseDelay: opts.DemoResponseDelay,
		demoAdvanceDelay:  opts.DemoAdvanceDelay,
	}, nil
}

// Start runs the quest to completion and blocks until it finishes or is
// cancelled. If a quest is already running it is reset and this run takes
// over rather than erroring out.
func (r *Runner) Start(ctx context.Context, q *quest.Quest) (types.Outcome, error) {
	if q == nil {
		return types.OutcomeAborted, fmt.Errorf("no quest given")
	}
	if err := q.Validate(); err != nil {
		return types.OutcomeAborted, fmt.Errorf("invalid quest: %w", err)
	}

	r.mu.Lock()
	if r.running {
		r.logger.Warnf("quest %s started while %s is running; resetting the old run", q.ID, r.current.ID)
		if r.cancelRun != nil {
			r.cancelRun()
		}
	}
	r.generation++
	gen := r.generation
	runCtx, cancel := context.WithCancel(ctx)
	r.cancelRun = cancel
	r.running = true
	r.current = q
	r.stepIdx = 0
	r.mu.Unlock()

	outcome, err := r.run(runCtx, gen, q)

	r.mu.Lock()
	// Only clear state we still own; a newer Start or ForceReset has
	// already replaced it otherwise. The run record is destroyed whether
	// the quest completed, failed, or was stopped: an idle runner never
	// reports a stale quest.
	if r.generation == gen {
		r.running = false
		r.current = nil
		r.stepIdx = 0
		r.cancelRun = nil
	}
	r.mu.Unlock()
	cancel()
	return outcome, err
}

// Stop cancels the active run, if any. The blocked Start call returns
// OutcomeAborted and destroys the run record on its way out, so a stopped
// runner reports an idle snapshot.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.cancelRun != nil {
		r.cancelRun()
	}
	r.mu.Unlock()
}

// ForceReset cancels any active run and clears all quest state. Safe to
// call at any time, including when nothing is running.
func (r *Runner) ForceReset() {
	r.mu.Lock()
	if r.cancelRun != nil {
		r.cancelRun()
		r.cancelRun = nil
	}
	r.generation++
	r.running = false
	r.current = nil
	r.stepIdx = 0
	r.mu.Unlock()
	r.surface.Hide()
}

// GetProgress returns a snapshot of the current run. Always safe to call;
// an idle runner reports zero steps and Running false.
func (r *Runner) GetProgress() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := Progress{Running: r.running, Mode: r.mode}
	if r.current != nil {
		p.QuestID = r.current.ID
		p.QuestName = r.current.Name
		p.TotalSteps = len(r.current.Steps)
		p.CurrentStep = r.stepIdx + 1
	}
	return p
}

func (r *Runner) run(ctx context.Context, gen int, q *quest.Quest) (types.Outcome, error) {
	r.emit(types.RunnerEvent{Type: types.EventTypeQuestStarted, QuestID: q.ID, StepIndex: -1})
	r.surface.ShowQuestStart(q)

	if err := r.store.MarkQuestAttempted(ctx, q.SubApp()); err != nil {
		r.logger.Warnf("failed to record attempt for %s: %v", q.ID, err)
	}

	if _, err := r.bridge.OpenChat(ctx); err != nil {
		kind := classifyError(err)
		r.surface.ShowError(kind.Presentation().Message)
		r.emit(types.RunnerEvent{Type: types.EventTypeQuestAborted, QuestID: q.ID, StepIndex: -1, ErrorKind: kind, Err: err})
		return types.OutcomeAborted, fmt.Errorf("failed to open assistant: %w", err)
	}

	var failed []int
	total := len(q.Steps)
	for i, step := range q.Steps {
		r.setStep(gen, i)
		r.emit(types.RunnerEvent{Type: types.EventTypeStepStarted, QuestID: q.ID, StepIndex: i})

		var err error
		if r.mode == ModeReal {
			err = r.runRealStep(ctx, q, step, i, total)
		} else {
			err = r.runDemoStep(ctx, q, step, i, total)
		}

		if err != nil {
			if ctx.Err() != nil {
				r.logger.Infof("quest %s cancelled at step %d", q.ID, i)
				r.emit(types.RunnerEvent{Type: types.EventTypeQuestAborted, QuestID: q.ID, StepIndex: i, Err: ctx.Err()})
				r.surface.ShowQuestComplete(q, types.OutcomeAborted, failed)
				return types.OutcomeAborted, ctx.Err()
			}
			kind := classifyError(err)
			r.logger.Errorf("quest %s step %d failed (%s): %v", q.ID, i, kind, err)
			r.emit(types.RunnerEvent{Type: types.EventTypeStepFailed, QuestID: q.ID, StepIndex: i, ErrorKind: kind, Err: err})
			r.surface.ShowStepError(step, kind, err.Error())
			if step.Optional {
				failed = append(failed, i)
				continue
			}
			r.emit(types.RunnerEvent{Type: types.EventTypeQuestAborted, QuestID: q.ID, StepIndex: i, ErrorKind: kind, Err: err})
			r.surface.ShowQuestComplete(q, types.OutcomeAborted, failed)
			return types.OutcomeAborted, err
		}

		r.emit(types.RunnerEvent{Type: types.EventTypeStepCompleted, QuestID: q.ID, StepIndex: i})
		r.surface.ShowStepSuccess(stepLabel(step))

		if r.mode == ModeDemo && i < total-1 {
			if err := r.sleep(ctx, r.demoAdvanceDelay); err != nil {
				r.surface.ShowQuestComplete(q, types.OutcomeAborted, failed)
				return types.OutcomeAborted, err
			}
		}
	}

	outcome := types.OutcomeCompleted
	if len(failed) > 0 {
		outcome = types.OutcomeCompletedWithErrors
	}
	r.persistCompletion(ctx, q)
	r.emit(types.RunnerEvent{Type: types.EventTypeQuestCompleted, QuestID: q.ID, StepIndex: -1, Message: string(outcome)})
	r.surface.ShowQuestComplete(q, outcome, failed)
	return outcome, nil
}

// persistCompletion records the finished quest. Storage failures are logged
// and swallowed: the quest is complete whether or not the save landed.
func (r *Runner) persistCompletion(ctx context.Context, q *quest.Quest) {
	rec := storage.ProgressRecord{
		Completed:   true,
		CompletedAt: time.Now(),
		Mode:        string(r.mode),
		SubApp:      q.SubApp(),
	}
	if err := r.store.SaveQuestProgress(ctx, q.ID, rec); err != nil {
		r.logger.Errorf("failed to save progress for %s: %v", q.ID, err)
		return
	}
	if err := r.store.IncrementQuestCompletion(ctx, q.Points, q.SubApp()); err != nil {
		r.logger.Errorf("failed to record completion stats for %s: %v", q.ID, err)
	}
}

func (r *Runner) setStep(gen, idx int) {
	r.mu.Lock()
	if r.generation == gen {
		r.stepIdx = idx
	}
	questID := ""
	if r.current != nil {
		questID = r.current.ID
	}
	r.mu.Unlock()
	r.emit(types.RunnerEvent{Type: types.EventTypeProgress, QuestID: questID, StepIndex: idx})
}

func (r *Runner) emit(ev types.RunnerEvent) {
	if r.onEvent != nil {
		r.onEvent(ev)
	}
}

// sleepCtx waits for d or for cancellation, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
