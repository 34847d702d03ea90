package classifier

import "strings"

// errorPhrases mark apology, incapability and clarification replies. All
// matching is lowercase substring.
var errorPhrases = []string{
	"i'm sorry",
	"i am sorry",
	"i apologize",
	"i can't",
	"i cannot",
	"i'm unable",
	"unable to",
	"something went wrong",
	"could you clarify",
	"could you rephrase",
	"please rephrase",
	"can you provide more",
	"not sure what you mean",
	"didn't understand",
}

// emptyPhrases mark replies that succeeded but carried no data.
var emptyPhrases = []string{
	"no records found",
	"no results found",
	"no results",
	"nothing to show",
	"no data available",
	"no data found",
	"couldn't find any",
	"could not find any",
	"0 results",
}

// containsAny reports whether lowered contains any of the phrases.
func containsAny(lowered string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lowered, p) {
			return true
		}
	}
	return false
}

// classifyErrorCode sub-classifies an error reply's text.
func classifyErrorCode(lowered string) ErrorCode {
	switch {
	case strings.Contains(lowered, "clarify"),
		strings.Contains(lowered, "rephrase"),
		strings.Contains(lowered, "more detail"),
		strings.Contains(lowered, "what you mean"):
		return ErrorClarificationNeeded
	case strings.Contains(lowered, "access"),
		strings.Contains(lowered, "not available"),
		strings.Contains(lowered, "unavailable"):
		return ErrorDataNotAvailable
	case strings.Contains(lowered, "which one"),
		strings.Contains(lowered, "multiple matches"),
		strings.Contains(lowered, "ambiguous"):
		return ErrorAmbiguousRequest
	default:
		return ErrorGeneric
	}
}

// Fixed user-facing rewording. The assistant's raw text is shown only in
// expandable diagnostics, never as the primary message.
var errorMessages = map[ErrorCode]string{
	ErrorClarificationNeeded: "The assistant needs a more specific question for this step.",
	ErrorDataNotAvailable:    "The data this step asks about isn't available for your account.",
	ErrorAmbiguousRequest:    "The assistant found more than one match and couldn't pick one.",
	ErrorGeneric:             "The assistant couldn't complete this request.",
}

const (
	emptyMessage   = "The assistant couldn't find any matching data."
	timeoutMessage = "The assistant didn't reply in time."
)
