package client

import (
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// Target locates the widget frame and the page-level controls that toggle
// the assistant panel. The client only needs presence and two clicks; frame
// wiring (attaching a bridge to the discovered frame) is the owner's job.
type Target interface {
	// FrameExists reports whether the widget frame is currently attached.
	FrameExists() bool

	// ClickOpener clicks the page button that opens the assistant panel.
	ClickOpener() error

	// ClickCloser clicks the panel's explicit close control. Returns an
	// error when no such control is present.
	ClickCloser() error

	// ClickSelector clicks the first host-page element matching the
	// selector.
	ClickSelector(selector string) error

	// SelectorPresent reports whether any host-page element matches.
	SelectorPresent(selector string) bool
}

// PageTarget implements Target against a playwright page hosting the
// assistant widget in an iframe.
type PageTarget struct {
	page       playwright.Page
	urlPattern string
	opener     string
	closer     string
}

// NewPageTarget creates a target. urlPattern is matched as a substring of
// each frame's URL; opener and closer are CSS selectors on the host page.
func NewPageTarget(page playwright.Page, urlPattern, opener, closer string) *PageTarget {
	return &PageTarget{page: page, urlPattern: urlPattern, opener: opener, closer: closer}
}

// FrameExists scans the page's frames for one matching the URL pattern.
func (t *PageTarget) FrameExists() bool {
	return t.Frame() != nil
}

// Frame returns the widget frame, or nil. Re-resolved on every call so a
// re-created iframe is picked up without holding a stale handle.
func (t *PageTarget) Frame() playwright.Frame {
	for _, frame := range t.page.Frames() {
		if strings.Contains(frame.URL(), t.urlPattern) {
			return frame
		}
	}
	return nil
}

// ClickOpener clicks the assistant opener button on the host page.
func (t *PageTarget) ClickOpener() error {
	if err := t.page.Click(t.opener); err != nil {
		return fmt.Errorf("opener click failed: %w", err)
	}
	return nil
}

// ClickCloser clicks the explicit close control when configured.
func (t *PageTarget) ClickCloser() error {
	if t.closer == "" {
		return fmt.Errorf("no close control configured")
	}
	if err := t.page.Click(t.closer); err != nil {
		return fmt.Errorf("close click failed: %w", err)
	}
	return nil
}

// ClickSelector clicks a host-page element.
func (t *PageTarget) ClickSelector(selector string) error {
	if err := t.page.Click(selector); err != nil {
		return fmt.Errorf("click %q failed: %w", selector, err)
	}
	return nil
}

// SelectorPresent reports whether the selector matches anything on the
// host page right now.
func (t *PageTarget) SelectorPresent(selector string) bool {
	handle, err := t.page.QuerySelector(selector)
	return err == nil && handle != nil
}
