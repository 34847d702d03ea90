package types

// RunnerEventType defines the type of event emitted by the quest runner.
type RunnerEventType string

const (
	EventTypeQuestStarted     RunnerEventType = "quest_started"     // EventTypeQuestStarted indicates a quest run has begun.
	EventTypeStepStarted      RunnerEventType = "step_started"      // EventTypeStepStarted indicates a step is about to execute.
	EventTypeStepInstructions RunnerEventType = "step_instructions" // EventTypeStepInstructions carries real-mode instructions for the user.
	EventTypeStepCompleted    RunnerEventType = "step_completed"    // EventTypeStepCompleted indicates a step finished successfully.
	EventTypeStepFailed       RunnerEventType = "step_failed"       // EventTypeStepFailed indicates a step failed (optional steps still advance).
	EventTypeResponseParsed   RunnerEventType = "response_parsed"   // EventTypeResponseParsed carries the classified assistant reply for a step.
	EventTypeQuestCompleted   RunnerEventType = "quest_completed"   // EventTypeQuestCompleted indicates the quest finished (possibly with errors).
	EventTypeQuestAborted     RunnerEventType = "quest_aborted"     // EventTypeQuestAborted indicates the quest stopped on a non-optional failure.
	EventTypeProgress         RunnerEventType = "progress"          // EventTypeProgress carries a progress snapshot update.
)

// RunnerEvent represents an event emitted by the runner during a quest run.
type RunnerEvent struct {
	// Type identifies what happened.
	Type RunnerEventType

	// QuestID is the identifier of the quest this event belongs to.
	QuestID string

	// StepIndex is the 0-based index of the step involved, or -1 when
	// the event is not tied to a specific step.
	StepIndex int

	// Message holds human-readable detail for the presentation surface.
	Message string

	// ErrorKind is set on step_failed and quest_aborted events.
	ErrorKind ErrorKind

	// Err carries the underlying error for diagnostics. It is never shown
	// inline to the user, only in expandable detail panels.
	Err error
}

// Outcome is the terminal result of a quest run.
type Outcome string

const (
	// OutcomeCompleted means every step succeeded.
	OutcomeCompleted Outcome = "completed"
	// OutcomeCompletedWithErrors means the last step was reached but at
	// least one optional step failed along the way.
	OutcomeCompletedWithErrors Outcome = "completed_with_errors"
	// OutcomeAborted means a non-optional step failed and the run stopped.
	OutcomeAborted Outcome = "aborted"
)
