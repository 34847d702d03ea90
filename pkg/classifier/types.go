// Package classifier labels assistant replies with one of six semantic
// types and extracts a type-appropriate structured summary, so the runner
// and the presentation surface react uniformly no matter what shape the
// widget actually rendered.
//
// Classification runs an explicitly ordered chain of matchers; the first
// match wins. Phrase-based error/empty detection deliberately precedes
// structural detection: an apology can arrive wrapped in list-like markup
// and must still be treated as an error.
package classifier

// ResponseType is the semantic category of an assistant reply.
type ResponseType string

const (
	TypeList     ResponseType = "list"     // TypeList is an informational list of records.
	TypeCard     ResponseType = "card"     // TypeCard is one or more card/record tiles.
	TypeMarkdown ResponseType = "markdown" // TypeMarkdown is free prose.
	TypeError    ResponseType = "error"    // TypeError is an apology/incapability/clarification reply.
	TypeEmpty    ResponseType = "empty"    // TypeEmpty is a "no data" reply.
	TypeTimeout  ResponseType = "timeout"  // TypeTimeout means no reply region appeared at all.
)

// ErrorCode sub-classifies error replies for user-facing rewording.
type ErrorCode string

const (
	ErrorClarificationNeeded ErrorCode = "CLARIFICATION_NEEDED"
	ErrorDataNotAvailable    ErrorCode = "DATA_NOT_AVAILABLE"
	ErrorAmbiguousRequest    ErrorCode = "AMBIGUOUS_REQUEST"
	ErrorGeneric             ErrorCode = "GENERIC"
)

// ListSummary is the structured extraction for list replies.
type ListSummary struct {
	// Title comes from the region's header element; "List" when absent.
	Title string
	// Shown and Total parse from an "N of M" status string; when the
	// string is absent both equal the item count.
	Shown int
	Total int
	// Items holds the visible row texts, in order.
	Items []string
	// ActionLabels are the deduplicated button labels, in order.
	ActionLabels []string
}

// CardInfo summarizes one card element.
type CardInfo struct {
	Title        string
	Subtitle     string
	ButtonLabels []string
}

// CardSummary is the structured extraction for card replies.
type CardSummary struct {
	Count int
	Cards []CardInfo
}

// ParsedResponse is the classification result. Transient: produced per
// reply, never persisted.
type ParsedResponse struct {
	// Type is the assigned category; exactly one per reply.
	Type ResponseType

	// Success is false exactly for error, empty and timeout. It is the
	// only field the runner consults to pass or fail a response step.
	Success bool

	// RawText is the reply's text as observed, kept for diagnostics.
	RawText string

	// Message is the fixed user-facing wording. For errors the raw
	// assistant text is never the primary message.
	Message string

	// ErrorCode is set for error replies.
	ErrorCode ErrorCode

	// List is set for list replies.
	List *ListSummary

	// Cards is set for card replies.
	Cards *CardSummary

	// Summary is the truncated prose for markdown replies.
	Summary string
}
