package wire

// TypeTextRequest carries the text to type into the assistant's input.
type TypeTextRequest struct {
	Text string `json:"text"`
}

// WaitForResponseRequest configures a response wait. TimeoutMs of zero uses
// the bridge's default.
type WaitForResponseRequest struct {
	Keywords  []string `json:"keywords,omitempty"`
	TimeoutMs int      `json:"timeout,omitempty"`
}

// ClickButtonByTextRequest names the button text to match.
type ClickButtonByTextRequest struct {
	Text string `json:"text"`
}

// Result is the common shape of every widget reply: operations never throw
// across the frame boundary, they report success plus an error string.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ResponseDetectedResult reports the outcome of a response wait.
type ResponseDetectedResult struct {
	Result
	Found bool `json:"found"`
	// Keyword is the keyword that matched, empty when any-content matched.
	Keyword string `json:"keyword,omitempty"`
	// Text is the new (or, on timeout, trailing) response text.
	Text string `json:"text,omitempty"`
	// HTML is the reply region's markup, when a region was identified.
	// The classifier prefers it over Text for structural matching.
	HTML string `json:"html,omitempty"`
}

// StatusResult reports widget liveness for check_if_open.
type StatusResult struct {
	Result
	Open bool `json:"open"`
}

// InteractiveElement describes one button or link in the reply region.
type InteractiveElement struct {
	Text      string `json:"text"`
	AriaLabel string `json:"ariaLabel,omitempty"`
	Tag       string `json:"tag"`
	HasIcon   bool   `json:"hasIcon,omitempty"`
}

// InteractiveElementsResult lists the actionable elements in document order.
type InteractiveElementsResult struct {
	Result
	Elements []InteractiveElement `json:"elements"`
}

// ClickedResult reports what click_first_button or click_button_by_text did.
// Type is "button" when something was clicked, or "input" when an input took
// priority and no click happened.
type ClickedResult struct {
	Result
	Type string `json:"type,omitempty"`
	Text string `json:"text,omitempty"`
	Tag  string `json:"tag,omitempty"`
	// Candidates samples the searched elements when no match was found.
	Candidates []string `json:"candidates,omitempty"`
}

// InputFoundResult describes the first input/select in the reply region.
type InputFoundResult struct {
	Result
	Found       bool   `json:"found"`
	Tag         string `json:"tag,omitempty"`
	InputType   string `json:"inputType,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
}
