// Package bridge implements the widget-side half of the cross-frame bridge:
// it executes primitive automation actions against the assistant widget's
// DOM and answers requests arriving over the notification channel. It never
// throws across the boundary; every reply carries success plus an error
// string.
package bridge

import "time"

// Element is one node in the widget DOM. Queries that miss return nil
// elements rather than errors; action methods report failure.
type Element interface {
	// Tag returns the lowercase tag name.
	Tag() string

	// Text returns the element's visible text content.
	Text() (string, error)

	// Attr returns the attribute value, or "" when absent.
	Attr(name string) string

	// Click clicks the element.
	Click() error

	// Fill sets the element's value (for inputs and textareas).
	Fill(text string) error

	// Press dispatches a key press to the element.
	Press(key string) error

	// Dispatch fires a synthetic DOM event of the given type on the
	// element so frameworks observing standard events see the change.
	Dispatch(eventType string) error

	// QueryAll returns matching descendants in document order.
	QueryAll(selector string) []Element

	// HTML returns the element's outer markup.
	HTML() (string, error)
}

// DOM is the minimal document surface the bridge drives. Implemented for
// playwright frames in production and by a fake in tests.
type DOM interface {
	// Query returns the first match in document order, or nil.
	Query(selector string) Element

	// QueryAll returns all matches in document order.
	QueryAll(selector string) []Element

	// QueryDeep is Query but also searches shadow-encapsulated subtrees
	// that a flat top-down query cannot reach.
	QueryDeep(selector string) Element

	// BodyText returns the full visible text of the document body. Used
	// as a coarse change signal when the reply region selector misses.
	BodyText() string
}

// Selector candidates for the widget's controls. Ordered by reliability;
// the first hit wins. Future widget versions are handled by appending
// candidates, not by editing the search code.
var (
	// textInputSelectors locate the primary text-entry control.
	textInputSelectors = []string{
		"textarea",
		"input[type=\"text\"]",
		"input[type=\"search\"]",
		"[contenteditable=\"true\"]",
		"[role=\"textbox\"]",
	}

	// sendButtonSelectors enumerate clickable controls scanned for a
	// send affordance by accessible name.
	sendButtonSelectors = []string{
		"button",
		"[role=\"button\"]",
	}

	// responseRegionSelectors locate assistant reply containers. The
	// last match is the latest reply.
	responseRegionSelectors = []string{
		"[data-message-role=\"assistant\"]",
		".assistant-message",
		"[role=\"log\"] > *",
		".message",
	}
)

// Timing and thresholds for response watching.
const (
	// defaultWaitTimeout bounds a wait_for_response with no explicit timeout.
	defaultWaitTimeout = 30 * time.Second

	// watchPollInterval is how often the watcher samples the DOM. The
	// mutation signal of the source environment is approximated by
	// polling; the interval is short enough that replies are detected
	// well within a step's budget.
	watchPollInterval = 250 * time.Millisecond

	// bodyGrowthThreshold is the minimum body-text growth (in bytes)
	// treated as new content when no reply region selector matches.
	bodyGrowthThreshold = 50
)

// typeEventSequence is the synthetic event series dispatched after setting
// the input's value. Reactive frameworks that only observe standard events
// miss programmatic value changes unless the full sequence fires.
var typeEventSequence = []string{
	"focus", "input", "change", "keydown", "keypress", "keyup", "blur", "focus",
}
