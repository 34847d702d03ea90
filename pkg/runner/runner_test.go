package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/questpilot/pkg/bridge/client"
	"github.com/entrhq/questpilot/pkg/bridge/wire"
	"github.com/entrhq/questpilot/pkg/classifier"
	"github.com/entrhq/questpilot/pkg/presenter"
	"github.com/entrhq/questpilot/pkg/quest"
	"github.com/entrhq/questpilot/pkg/storage"
	"github.com/entrhq/questpilot/pkg/types"
)

// fakeBridge scripts the client surface the runner drives.
type fakeBridge struct {
	mu         sync.Mutex
	openErr    error
	prompts    []string
	clicked    [][]string
	promptErr  map[string]error
	promptRes  map[string]*wire.ResponseDetectedResult
	clickErr   error
	presentSel map[string]bool
	waitRes    *wire.ResponseDetectedResult
	waitErr    error
	blockSend  chan struct{} // when set, SendPrompt blocks until ctx or close
}

func (f *fakeBridge) OpenChat(ctx context.Context) (client.OpenResult, error) {
	if f.openErr != nil {
		return client.OpenResult{}, f.openErr
	}
	return client.OpenResult{Success: true}, nil
}

func (f *fakeBridge) SendPrompt(ctx context.Context, text string, waitForResponse bool, keywords []string) (*wire.ResponseDetectedResult, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, text)
	block := f.blockSend
	f.mu.Unlock()

	if block != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-block:
		}
	}
	if err := f.promptErr[text]; err != nil {
		return nil, err
	}
	if !waitForResponse {
		return nil, nil
	}
	if res, ok := f.promptRes[text]; ok {
		return res, nil
	}
	return &wire.ResponseDetectedResult{
		Result: wire.Result{Success: true},
		Found:  true,
		Text:   "ok",
		HTML:   "<p>ok</p>",
	}, nil
}

func (f *fakeBridge) WaitForResponse(ctx context.Context, keywords []string, timeout time.Duration) (*wire.ResponseDetectedResult, error) {
	if f.waitErr != nil {
		return nil, f.waitErr
	}
	if f.waitRes != nil {
		return f.waitRes, nil
	}
	return &wire.ResponseDetectedResult{Result: wire.Result{Success: true}, Found: true, Text: "done"}, nil
}

func (f *fakeBridge) ClickPage(ctx context.Context, selectors []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clicked = append(f.clicked, selectors)
	return f.clickErr
}

func (f *fakeBridge) PageElementPresent(selectors []string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sel := range selectors {
		if f.presentSel[sel] {
			return true
		}
	}
	return false
}

// fakeStore records persistence calls and can fail on demand.
type fakeStore struct {
	mu        sync.Mutex
	saved     map[string]storage.ProgressRecord
	attempts  []string
	completed []string
	saveErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: make(map[string]storage.ProgressRecord)}
}

func (f *fakeStore) SaveQuestProgress(ctx context.Context, questID string, rec storage.ProgressRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved[questID] = rec
	return nil
}

func (f *fakeStore) MarkQuestAttempted(ctx context.Context, subApp string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, subApp)
	return nil
}

func (f *fakeStore) IncrementQuestCompletion(ctx context.Context, points int, subApp string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, fmt.Sprintf("%s:%d", subApp, points))
	return nil
}

// recordingSurface captures presentation calls for assertions.
type recordingSurface struct {
	mu          sync.Mutex
	starts      int
	successes   []string
	errors      []types.ErrorKind
	outcome     types.Outcome
	failedSteps []int
	completed   bool
	hidden      int
}

func (s *recordingSurface) ShowQuestStart(*quest.Quest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts++
}
func (s *recordingSurface) ShowStep(quest.Step, int, int, string)     {}
func (s *recordingSurface) ShowStepInstructions(quest.Step, int, int) {}
func (s *recordingSurface) ShowStepSuccess(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.successes = append(s.successes, message)
}
func (s *recordingSurface) ShowStepError(_ quest.Step, kind types.ErrorKind, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, kind)
}
func (s *recordingSurface) ShowQuestComplete(_ *quest.Quest, outcome types.Outcome, failed []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = true
	s.outcome = outcome
	s.failedSteps = failed
}
func (s *recordingSurface) ShowError(string) {}
func (s *recordingSurface) Hide() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hidden++
}

func testSelectors(t *testing.T) *quest.SelectorMap {
	t.Helper()
	m, err := quest.ParseSelectorMap([]byte(`{
		"payroll": {
			"navButton": [".payroll-nav", "#payroll"],
			"homePanel": ".payroll-home"
		}
	}`))
	require.NoError(t, err)
	return m
}

func demoQuest() *quest.Quest {
	return &quest.Quest{
		ID:       "payroll-intro",
		Name:     "Meet Payroll",
		Category: "payroll.onboarding",
		Points:   50,
		Steps: []quest.Step{
			{ID: "open", Action: quest.ActionClick, Selector: "payroll.navButton"},
			{ID: "ask", Action: quest.ActionTypeAndSend, Prompt: "show payslip", WaitForResponse: true},
		},
	}
}

// sleepRecorder skips pacing but still honours cancellation, and records
// the requested durations.
type sleepRecorder struct {
	mu        sync.Mutex
	durations []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.durations = append(s.durations, d)
	s.mu.Unlock()
	return ctx.Err()
}

func newTestRunner(t *testing.T, bridge *fakeBridge, store *fakeStore, surface presenter.Surface, mode Mode) (*Runner, *sleepRecorder) {
	t.Helper()
	rec := &sleepRecorder{}
	r, err := New(Options{
		Bridge:     bridge,
		Store:      store,
		Selectors:  testSelectors(t),
		Classifier: classifier.New(),
		Surface:    surface,
		Mode:       mode,
		Sleep:      rec.sleep,
		VerifyPoll: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	return r, rec
}

func TestDemoQuestHappyPath(t *testing.T) {
	bridge := &fakeBridge{}
	store := newFakeStore()
	surface := &recordingSurface{}
	r, _ := newTestRunner(t, bridge, store, surface, ModeDemo)

	outcome, err := r.Start(context.Background(), demoQuest())
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeCompleted, outcome)

	assert.Equal(t, [][]string{{".payroll-nav", "#payroll"}}, bridge.clicked)
	assert.Equal(t, []string{"show payslip"}, bridge.prompts)

	assert.Equal(t, 1, surface.starts)
	assert.Len(t, surface.successes, 2)
	assert.Equal(t, types.OutcomeCompleted, surface.outcome)
	assert.Empty(t, surface.failedSteps)

	assert.Equal(t, []string{"payroll"}, store.attempts)
	assert.Equal(t, []string{"payroll:50"}, store.completed)
	saved := store.saved["payroll-intro"]
	assert.True(t, saved.Completed)
	assert.Equal(t, "demo", saved.Mode)
	assert.Equal(t, "payroll", saved.SubApp)

	p := r.GetProgress()
	assert.False(t, p.Running)
}

func TestDemoPacing(t *testing.T) {
	bridge := &fakeBridge{}
	r, rec := newTestRunner(t, bridge, newFakeStore(), &recordingSurface{}, ModeDemo)

	_, err := r.Start(context.Background(), demoQuest())
	require.NoError(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	// Step beat, step beat + response beat, advance beat between steps.
	assert.Contains(t, rec.durations, defaultDemoStepDelay)
	assert.Contains(t, rec.durations, defaultDemoResponseDelay)
	assert.Contains(t, rec.durations, defaultDemoAdvanceDelay)
}

func TestOptionalStepFailureCompletesWithErrors(t *testing.T) {
	q := demoQuest()
	q.Steps[0].Optional = true
	bridge := &fakeBridge{clickErr: errors.New("selector .payroll-nav missing")}
	store := newFakeStore()
	surface := &recordingSurface{}
	r, _ := newTestRunner(t, bridge, store, surface, ModeDemo)

	outcome, err := r.Start(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeCompletedWithErrors, outcome)

	assert.Equal(t, []int{0}, surface.failedSteps)
	assert.Equal(t, []types.ErrorKind{types.KindElementNotFound}, surface.errors)
	assert.Equal(t, []string{"show payslip"}, bridge.prompts, "later steps still run")
	assert.True(t, store.saved["payroll-intro"].Completed, "completion is still recorded")
}

func TestNonOptionalFailureAborts(t *testing.T) {
	bridge := &fakeBridge{clickErr: errors.New("selector .payroll-nav missing")}
	store := newFakeStore()
	surface := &recordingSurface{}
	r, _ := newTestRunner(t, bridge, store, surface, ModeDemo)

	outcome, err := r.Start(context.Background(), demoQuest())
	require.Error(t, err)
	assert.Equal(t, types.OutcomeAborted, outcome)

	assert.Empty(t, bridge.prompts, "the quest stops at the failed step")
	assert.Equal(t, types.OutcomeAborted, surface.outcome)
	assert.Empty(t, store.saved, "an aborted quest records no completion")
}

func TestResponseTimeoutIsStepTimeout(t *testing.T) {
	bridge := &fakeBridge{
		promptRes: map[string]*wire.ResponseDetectedResult{
			"show payslip": {Result: wire.Result{Success: true}, Found: false, Text: "stale"},
		},
	}
	surface := &recordingSurface{}
	r, _ := newTestRunner(t, bridge, newFakeStore(), surface, ModeDemo)

	outcome, err := r.Start(context.Background(), demoQuest())
	require.Error(t, err)
	assert.Equal(t, types.OutcomeAborted, outcome)
	assert.Equal(t, []types.ErrorKind{types.KindStepTimeout}, surface.errors)
}

func TestSaveFailureDoesNotUndoCompletion(t *testing.T) {
	bridge := &fakeBridge{}
	store := newFakeStore()
	store.saveErr = errors.New("disk full")
	surface := &recordingSurface{}
	r, _ := newTestRunner(t, bridge, store, surface, ModeDemo)

	outcome, err := r.Start(context.Background(), demoQuest())
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeCompleted, outcome)
	assert.Equal(t, types.OutcomeCompleted, surface.outcome)
}

func TestOpenFailureAbortsBeforeSteps(t *testing.T) {
	bridge := &fakeBridge{openErr: client.ErrFrameNotFound}
	surface := &recordingSurface{}
	r, _ := newTestRunner(t, bridge, newFakeStore(), surface, ModeDemo)

	outcome, err := r.Start(context.Background(), demoQuest())
	require.Error(t, err)
	assert.Equal(t, types.OutcomeAborted, outcome)
	assert.Empty(t, bridge.clicked)
	assert.Empty(t, bridge.prompts)
}

func TestRealModeClickVerification(t *testing.T) {
	q := &quest.Quest{
		ID:       "real-click",
		Name:     "Real Click",
		Category: "payroll",
		Points:   10,
		Steps: []quest.Step{
			{ID: "open", Action: quest.ActionClick, Selector: "payroll.navButton", VerifySelector: "payroll.homePanel"},
		},
	}
	bridge := &fakeBridge{presentSel: map[string]bool{}}
	surface := &recordingSurface{}
	r, _ := newTestRunner(t, bridge, newFakeStore(), surface, ModeReal)

	go func() {
		time.Sleep(50 * time.Millisecond)
		bridge.mu.Lock()
		bridge.presentSel[".payroll-home"] = true
		bridge.mu.Unlock()
	}()

	outcome, err := r.Start(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeCompleted, outcome)
	assert.Empty(t, bridge.clicked, "real mode never clicks for the user")
}

func TestRealModeVerificationTimeout(t *testing.T) {
	q := &quest.Quest{
		ID:       "real-click",
		Name:     "Real Click",
		Category: "payroll",
		Points:   10,
		Steps: []quest.Step{
			{ID: "open", Action: quest.ActionClick, Selector: "payroll.navButton"},
		},
	}
	bridge := &fakeBridge{}
	surface := &recordingSurface{}
	rec := &sleepRecorder{}
	r, err := New(Options{
		Bridge:        bridge,
		Store:         newFakeStore(),
		Selectors:     testSelectors(t),
		Classifier:    classifier.New(),
		Surface:       surface,
		Mode:          ModeReal,
		Sleep:         rec.sleep,
		VerifyTimeout: 50 * time.Millisecond,
		VerifyPoll:    5 * time.Millisecond,
	})
	require.NoError(t, err)

	outcome, err := r.Start(context.Background(), q)
	require.Error(t, err)
	assert.Equal(t, types.OutcomeAborted, outcome)
	assert.Equal(t, []types.ErrorKind{types.KindStepTimeout}, surface.errors)
}

func TestStartWhileRunningResetsOldRun(t *testing.T) {
	block := make(chan struct{})
	bridge := &fakeBridge{blockSend: block}
	surface := &recordingSurface{}
	r, _ := newTestRunner(t, bridge, newFakeStore(), surface, ModeDemo)

	firstDone := make(chan struct{})
	var firstOutcome types.Outcome
	go func() {
		defer close(firstDone)
		firstOutcome, _ = r.Start(context.Background(), demoQuest())
	}()

	// Wait until the first run is inside its prompt step.
	require.Eventually(t, func() bool {
		bridge.mu.Lock()
		defer bridge.mu.Unlock()
		return len(bridge.prompts) == 1
	}, 2*time.Second, 5*time.Millisecond)

	bridge.mu.Lock()
	bridge.blockSend = nil
	bridge.mu.Unlock()

	second := demoQuest()
	second.ID = "payroll-second"
	outcome, err := r.Start(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeCompleted, outcome)

	select {
	case <-firstDone:
	case <-time.After(2 * time.Second):
		t.Fatal("the superseded run never returned")
	}
	assert.Equal(t, types.OutcomeAborted, firstOutcome)
}

func TestStopAbortsRun(t *testing.T) {
	block := make(chan struct{})
	bridge := &fakeBridge{blockSend: block}
	r, _ := newTestRunner(t, bridge, newFakeStore(), &recordingSurface{}, ModeDemo)

	done := make(chan types.Outcome, 1)
	go func() {
		outcome, _ := r.Start(context.Background(), demoQuest())
		done <- outcome
	}()

	require.Eventually(t, func() bool {
		return r.GetProgress().Running
	}, 2*time.Second, 5*time.Millisecond)
	r.Stop()

	select {
	case outcome := <-done:
		assert.Equal(t, types.OutcomeAborted, outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not unblock the run")
	}
}

func TestForceResetIsIdempotent(t *testing.T) {
	surface := &recordingSurface{}
	r, _ := newTestRunner(t, &fakeBridge{}, newFakeStore(), surface, ModeDemo)

	r.ForceReset()
	r.ForceReset()

	p := r.GetProgress()
	assert.False(t, p.Running)
	assert.Zero(t, p.TotalSteps)
	assert.Equal(t, 2, surface.hidden)
}

func TestGetProgressSnapshots(t *testing.T) {
	r, _ := newTestRunner(t, &fakeBridge{}, newFakeStore(), &recordingSurface{}, ModeDemo)

	idle := r.GetProgress()
	assert.False(t, idle.Running)
	assert.Empty(t, idle.QuestID)
	assert.Zero(t, idle.CurrentStep)
	assert.Equal(t, ModeDemo, idle.Mode)

	_, err := r.Start(context.Background(), demoQuest())
	require.NoError(t, err)

	after := r.GetProgress()
	assert.False(t, after.Running)
	assert.Empty(t, after.QuestID, "completion destroys the run record")
	assert.Zero(t, after.CurrentStep)
	assert.Zero(t, after.TotalSteps)
}

func TestStopClearsQuestState(t *testing.T) {
	block := make(chan struct{})
	bridge := &fakeBridge{blockSend: block}
	r, _ := newTestRunner(t, bridge, newFakeStore(), &recordingSurface{}, ModeDemo)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = r.Start(context.Background(), demoQuest())
	}()

	require.Eventually(t, func() bool {
		return r.GetProgress().Running
	}, 2*time.Second, 5*time.Millisecond)
	r.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not unblock the run")
	}

	p := r.GetProgress()
	assert.False(t, p.Running)
	assert.Empty(t, p.QuestID, "stop destroys the run record")
	assert.Zero(t, p.CurrentStep)
	assert.Zero(t, p.TotalSteps)
}

func TestProgressAdvancesMonotonically(t *testing.T) {
	bridge := &fakeBridge{}
	rec := &sleepRecorder{}
	var r *Runner
	var mu sync.Mutex
	var samples []Progress
	var err error
	r, err = New(Options{
		Bridge:     bridge,
		Store:      newFakeStore(),
		Selectors:  testSelectors(t),
		Classifier: classifier.New(),
		Surface:    &recordingSurface{},
		Mode:       ModeDemo,
		Sleep:      rec.sleep,
		OnEvent: func(ev types.RunnerEvent) {
			if ev.Type != types.EventTypeStepStarted && ev.Type != types.EventTypeStepCompleted {
				return
			}
			mu.Lock()
			samples = append(samples, r.GetProgress())
			mu.Unlock()
		},
	})
	require.NoError(t, err)

	_, err = r.Start(context.Background(), demoQuest())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, samples)
	prev := 0
	for _, p := range samples {
		assert.True(t, p.Running)
		assert.GreaterOrEqual(t, p.CurrentStep, prev, "progress never moves backwards")
		assert.LessOrEqual(t, p.CurrentStep, p.TotalSteps)
		prev = p.CurrentStep
	}
	assert.Equal(t, 2, prev, "the last sample sits on the final step")
}

func TestStartRejectsInvalidQuest(t *testing.T) {
	r, _ := newTestRunner(t, &fakeBridge{}, newFakeStore(), &recordingSurface{}, ModeDemo)

	_, err := r.Start(context.Background(), nil)
	assert.Error(t, err)

	_, err = r.Start(context.Background(), &quest.Quest{ID: "empty"})
	assert.Error(t, err)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want types.ErrorKind
	}{
		{"frame not found", fmt.Errorf("open: %w", client.ErrFrameNotFound), types.KindTargetNotFound},
		{"channel closed", fmt.Errorf("send: %w", client.ErrChannelClosed), types.KindTargetNotResponding},
		{"rpc timeout", fmt.Errorf("wait: %w", client.ErrTimeout), types.KindStepTimeout},
		{"input missing", errors.New("send prompt: typing failed: no text input found in widget"), types.KindInputFieldNotFound},
		{"send failed", errors.New("click_send failed: nothing worked"), types.KindSendFailed},
		{"button missing", errors.New(`no button matching "View"`), types.KindButtonNotFound},
		{"selector missing", errors.New("unknown selector key \"payroll.nope\""), types.KindElementNotFound},
		{"anything else", errors.New("boom"), types.KindUnknownError},
		{"reply timeout", &responseError{parsed: classifier.ParsedResponse{Type: classifier.TypeTimeout}}, types.KindStepTimeout},
		{"reply error", &responseError{parsed: classifier.ParsedResponse{Type: classifier.TypeError, Message: "nope"}}, types.KindUnknownError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyError(tt.err))
		})
	}
}
