package classifier

import (
	"strings"
)

// errorMatcher claims replies containing apology/incapability/clarification
// phrases. Runs before structural matchers: an error-shaped reply may still
// contain list-like markup.
type errorMatcher struct{}

func (errorMatcher) Name() string { return "error-phrases" }

func (errorMatcher) Match(r *Region) (*ParsedResponse, bool) {
	lowered := strings.ToLower(r.text)
	if !containsAny(lowered, errorPhrases) {
		return nil, false
	}
	code := classifyErrorCode(lowered)
	return &ParsedResponse{
		Type:      TypeError,
		RawText:   r.text,
		ErrorCode: code,
		Message:   errorMessages[code],
	}, true
}

// emptyMatcher claims "no data" replies.
type emptyMatcher struct{}

func (emptyMatcher) Name() string { return "empty-phrases" }

func (emptyMatcher) Match(r *Region) (*ParsedResponse, bool) {
	if !containsAny(strings.ToLower(r.text), emptyPhrases) {
		return nil, false
	}
	return &ParsedResponse{
		Type:    TypeEmpty,
		RawText: r.text,
		Message: emptyMessage,
	}, true
}

// listSelectors are the structural markers indicating a list reply.
const (
	listSelector     = "ul, ol, table, [role=\"list\"], [class*=\"list-item\"]"
	listItemSelector = "li, tr, [class*=\"list-item\"], [role=\"listitem\"]"
)

// listMatcher claims replies containing list-indicating markup.
type listMatcher struct{}

func (listMatcher) Name() string { return "list-structure" }

func (listMatcher) Match(r *Region) (*ParsedResponse, bool) {
	if r.find(listSelector) == nil {
		return nil, false
	}
	summary := extractList(r)
	return &ParsedResponse{
		Type:    TypeList,
		Success: true,
		RawText: r.text,
		Message: summary.Title,
		List:    summary,
	}, true
}

// cardSelector marks card/record tiles.
const cardSelector = ".card, [class*=\"card\"], article, [role=\"article\"]"

// cardMatcher claims replies containing card-indicating markup.
type cardMatcher struct{}

func (cardMatcher) Name() string { return "card-structure" }

func (cardMatcher) Match(r *Region) (*ParsedResponse, bool) {
	if r.find(cardSelector) == nil {
		return nil, false
	}
	summary := extractCards(r)
	return &ParsedResponse{
		Type:    TypeCard,
		Success: true,
		RawText: r.text,
		Message: r.text,
		Cards:   summary,
	}, true
}

// markdownSelector marks prose markup.
const markdownSelector = "p, h1, h2, h3, h4, h5, h6, code, pre, strong, em, blockquote"

// markdownMatcher claims replies with prose-indicating markup.
type markdownMatcher struct{}

func (markdownMatcher) Name() string { return "markdown-structure" }

func (markdownMatcher) Match(r *Region) (*ParsedResponse, bool) {
	if r.find(markdownSelector) == nil {
		return nil, false
	}
	res := markdownResponse(r.text)
	return &res, true
}
