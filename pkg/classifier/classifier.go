package classifier

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Region is the observed reply: parsed markup when the bridge captured the
// reply container, or raw text alone when only the body heuristic fired.
type Region struct {
	doc  *goquery.Document
	text string
}

// NewRegion builds a region from the reply's markup and/or fallback text.
// Returns nil when there is nothing at all to classify.
func NewRegion(markup, fallbackText string) *Region {
	region := &Region{text: strings.TrimSpace(fallbackText)}
	if strings.TrimSpace(markup) != "" {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup)); err == nil {
			region.doc = doc
			if text := visibleText(markup); text != "" {
				region.text = text
			}
		}
	}
	if region.doc == nil && region.text == "" {
		return nil
	}
	return region
}

// visibleText walks the markup and collects the text a user would see:
// script and style subtrees are skipped and whitespace runs collapse to a
// single space. goquery's Text() keeps script bodies, which would pollute
// the phrase matchers.
func visibleText(markup string) string {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return strings.Join(strings.Fields(b.String()), " ")
}

// Text returns the region's visible text.
func (r *Region) Text() string { return r.text }

// find queries the region's markup; a text-only region matches nothing.
func (r *Region) find(selector string) *goquery.Selection {
	if r.doc == nil {
		return nil
	}
	sel := r.doc.Find(selector)
	if sel.Length() == 0 {
		return nil
	}
	return sel
}

// Matcher is one strategy in the classification chain.
type Matcher interface {
	// Name identifies the matcher in logs and tests.
	Name() string

	// Match inspects the region and, when it claims the reply, returns
	// the fully extracted result.
	Match(r *Region) (*ParsedResponse, bool)
}

// Classifier runs an explicitly ordered matcher chain. The default chain
// implements the fixed precedence: error and empty phrase checks before
// structural list/card/markdown checks.
type Classifier struct {
	matchers []Matcher
}

// New creates a classifier with the default matcher chain.
func New() *Classifier {
	return &Classifier{
		matchers: []Matcher{
			errorMatcher{},
			emptyMatcher{},
			listMatcher{},
			cardMatcher{},
			markdownMatcher{},
		},
	}
}

// NewWithMatchers creates a classifier with a custom ordered chain. Host-UI
// changes are handled by adding a matcher, not by editing this package.
func NewWithMatchers(matchers ...Matcher) *Classifier {
	return &Classifier{matchers: matchers}
}

// Parse classifies the reply. Deterministic: fixed input yields a fixed
// type. A nil region (no markup, no text) is a timeout; text that no
// matcher claims is treated as prose.
func (c *Classifier) Parse(markup, fallbackText string) ParsedResponse {
	region := NewRegion(markup, fallbackText)
	if region == nil {
		return ParsedResponse{
			Type:    TypeTimeout,
			Message: timeoutMessage,
		}
	}

	for _, m := range c.matchers {
		if res, ok := m.Match(region); ok {
			return *res
		}
	}

	if region.text != "" {
		return markdownResponse(region.text)
	}
	return ParsedResponse{
		Type:    TypeTimeout,
		RawText: region.text,
		Message: timeoutMessage,
	}
}
