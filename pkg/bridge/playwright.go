package bridge

import (
	"github.com/playwright-community/playwright-go"
)

// FrameDOM adapts a playwright frame to the DOM interface, binding the
// bridge to the assistant widget's iframe.
type FrameDOM struct {
	frame playwright.Frame
}

// NewFrameDOM wraps a playwright frame.
func NewFrameDOM(frame playwright.Frame) *FrameDOM {
	return &FrameDOM{frame: frame}
}

// Query returns the first match in document order, or nil.
func (d *FrameDOM) Query(selector string) Element {
	handle, err := d.frame.QuerySelector(selector)
	if err != nil || handle == nil {
		return nil
	}
	return &frameElement{handle: handle}
}

// QueryAll returns all matches in document order.
func (d *FrameDOM) QueryAll(selector string) []Element {
	handles, err := d.frame.QuerySelectorAll(selector)
	if err != nil {
		return nil
	}
	elements := make([]Element, 0, len(handles))
	for _, h := range handles {
		elements = append(elements, &frameElement{handle: h})
	}
	return elements
}

// QueryDeep matches through shadow-encapsulated subtrees. Playwright's CSS
// engine already pierces open shadow roots, so the flat query covers both
// cases here; the distinction matters for DOM implementations that don't.
func (d *FrameDOM) QueryDeep(selector string) Element {
	return d.Query(selector)
}

// BodyText returns the frame's full visible body text.
func (d *FrameDOM) BodyText() string {
	text, err := d.frame.InnerText("body")
	if err != nil {
		return ""
	}
	return text
}

// frameElement adapts a playwright element handle.
type frameElement struct {
	handle playwright.ElementHandle
}

func (e *frameElement) Tag() string {
	tag, err := e.handle.Evaluate("el => el.tagName.toLowerCase()")
	if err != nil {
		return ""
	}
	if s, ok := tag.(string); ok {
		return s
	}
	return ""
}

func (e *frameElement) Text() (string, error) {
	return e.handle.TextContent()
}

func (e *frameElement) Attr(name string) string {
	val, err := e.handle.GetAttribute(name)
	if err != nil {
		return ""
	}
	return val
}

func (e *frameElement) Click() error {
	return e.handle.Click()
}

func (e *frameElement) Fill(text string) error {
	return e.handle.Fill(text)
}

func (e *frameElement) Press(key string) error {
	return e.handle.Press(key)
}

func (e *frameElement) Dispatch(eventType string) error {
	return e.handle.DispatchEvent(eventType, nil)
}

func (e *frameElement) QueryAll(selector string) []Element {
	handles, err := e.handle.QuerySelectorAll(selector)
	if err != nil {
		return nil
	}
	elements := make([]Element, 0, len(handles))
	for _, h := range handles {
		elements = append(elements, &frameElement{handle: h})
	}
	return elements
}

func (e *frameElement) HTML() (string, error) {
	markup, err := e.handle.Evaluate("el => el.outerHTML")
	if err != nil {
		return "", err
	}
	if s, ok := markup.(string); ok {
		return s, nil
	}
	return "", nil
}
