package types

// ErrorKind classifies a step or quest failure into a stable category that
// the presentation surface maps to fixed user-facing copy. Kinds describe
// what went wrong, not where in the stack it happened.
type ErrorKind string

const (
	KindTargetNotFound      ErrorKind = "target_not_found"      // KindTargetNotFound means the assistant surface is absent from the page.
	KindTargetNotResponding ErrorKind = "target_not_responding" // KindTargetNotResponding means the surface exists but its frame is missing or unresponsive.
	KindStepTimeout         ErrorKind = "step_timeout"          // KindStepTimeout means a step's verification or response wait timed out.
	KindElementNotFound     ErrorKind = "element_not_found"     // KindElementNotFound means a selector resolved to no element.
	KindSendFailed          ErrorKind = "send_failed"           // KindSendFailed means the prompt could not be submitted.
	KindButtonNotFound      ErrorKind = "button_not_found"      // KindButtonNotFound means no button matched the requested text.
	KindInputFieldNotFound  ErrorKind = "input_field_not_found" // KindInputFieldNotFound means the text-entry control could not be located.
	KindUnknownError        ErrorKind = "unknown_error"         // KindUnknownError covers failures with no more specific category.
	KindException           ErrorKind = "exception"             // KindException wraps an unexpected runtime fault with diagnostic context.
)

// ErrorPresentation is the fixed user-facing rendering for an error kind.
// Raw error text is only ever shown in the expandable Details field.
type ErrorPresentation struct {
	Icon    string
	Title   string
	Message string
	Causes  []string
	Actions []string
}

// errorPresentations maps every kind to its user-facing copy. Unknown kinds
// fall back to the KindUnknownError entry.
var errorPresentations = map[ErrorKind]ErrorPresentation{
	KindTargetNotFound: {
		Icon:    "🔍",
		Title:   "Assistant not found",
		Message: "The assistant isn't available on this page.",
		Causes:  []string{"The assistant is disabled for your account", "The page hasn't finished loading"},
		Actions: []string{"Reload the page and try again", "Check that the assistant icon is visible"},
	},
	KindTargetNotResponding: {
		Icon:    "📡",
		Title:   "Assistant not responding",
		Message: "The assistant panel opened but isn't answering.",
		Causes:  []string{"The assistant service is slow or down", "A network issue is blocking the panel"},
		Actions: []string{"Wait a moment and retry", "Reload the page"},
	},
	KindStepTimeout: {
		Icon:    "⏱️",
		Title:   "Step timed out",
		Message: "The expected result didn't appear in time.",
		Causes:  []string{"The assistant took too long to reply", "The step was completed in an unexpected way"},
		Actions: []string{"Retry the quest", "Complete the step manually and continue"},
	},
	KindElementNotFound: {
		Icon:    "🧩",
		Title:   "Element not found",
		Message: "A part of the page this step needs couldn't be located.",
		Causes:  []string{"The page layout has changed", "The element is hidden in your configuration"},
		Actions: []string{"Reload the page", "Skip this quest for now"},
	},
	KindSendFailed: {
		Icon:    "✉️",
		Title:   "Couldn't send the message",
		Message: "The prompt was typed but couldn't be submitted.",
		Causes:  []string{"The send button is disabled", "The input field lost focus"},
		Actions: []string{"Try sending the message yourself", "Retry the quest"},
	},
	KindButtonNotFound: {
		Icon:    "🔘",
		Title:   "Button not found",
		Message: "The button this step expects isn't in the reply.",
		Causes:  []string{"The assistant replied in a different format", "The action isn't available for your data"},
		Actions: []string{"Retry the quest", "Continue manually"},
	},
	KindInputFieldNotFound: {
		Icon:    "⌨️",
		Title:   "Input field not found",
		Message: "The assistant's text box couldn't be located.",
		Causes:  []string{"The assistant panel isn't fully open", "The widget version changed"},
		Actions: []string{"Close and reopen the assistant", "Reload the page"},
	},
	KindUnknownError: {
		Icon:    "❓",
		Title:   "Something went wrong",
		Message: "The step failed for an unexpected reason.",
		Causes:  []string{"A temporary glitch"},
		Actions: []string{"Retry the quest", "Reload the page"},
	},
	KindException: {
		Icon:    "⚠️",
		Title:   "Unexpected error",
		Message: "An internal error interrupted the quest.",
		Causes:  []string{"A bug in the quest runner"},
		Actions: []string{"Reload the page", "Report the issue if it keeps happening"},
	},
}

// Presentation returns the fixed user-facing copy for the kind.
func (k ErrorKind) Presentation() ErrorPresentation {
	if p, ok := errorPresentations[k]; ok {
		return p
	}
	return errorPresentations[KindUnknownError]
}
