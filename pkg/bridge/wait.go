package bridge

import (
	"context"
	"strings"
	"time"

	"github.com/entrhq/questpilot/pkg/bridge/wire"
)

// watchSnapshot captures the observable state of the reply area before an
// action, so the watcher can tell new content from what was already there.
type watchSnapshot struct {
	regionCount int
	regionText  string
	bodyLen     int
}

func takeSnapshot(dom DOM) watchSnapshot {
	snap := watchSnapshot{bodyLen: len(dom.BodyText())}
	for _, sel := range responseRegionSelectors {
		if matches := dom.QueryAll(sel); len(matches) > 0 {
			snap.regionCount = len(matches)
			if text, err := matches[len(matches)-1].Text(); err == nil {
				snap.regionText = text
			}
			break
		}
	}
	return snap
}

// waitForResponse watches the reply area for new content. The precise
// container selector may not match future widget versions, so a body-text
// growth heuristic backs up the region signal. Resolution rules:
// with no keywords any new content resolves; otherwise the first
// case-insensitive keyword hit in the new content resolves. On timeout the
// result carries found:false plus whatever trailing text is available.
func waitForResponse(ctx context.Context, dom DOM, keywords []string, timeout time.Duration) wire.ResponseDetectedResult {
	if timeout <= 0 {
		timeout = defaultWaitTimeout
	}
	snap := takeSnapshot(dom)
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(watchPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return timeoutResult(dom, snap)
		case <-deadline.C:
			return timeoutResult(dom, snap)
		case <-ticker.C:
			fresh, regionHTML := newContent(dom, snap)
			if fresh == "" {
				continue
			}
			if len(keywords) == 0 {
				return wire.ResponseDetectedResult{
					Result: wire.Result{Success: true},
					Found:  true,
					Text:   fresh,
					HTML:   regionHTML,
				}
			}
			lowered := strings.ToLower(fresh)
			for _, kw := range keywords {
				if kw != "" && strings.Contains(lowered, strings.ToLower(kw)) {
					return wire.ResponseDetectedResult{
						Result:  wire.Result{Success: true},
						Found:   true,
						Keyword: kw,
						Text:    fresh,
						HTML:    regionHTML,
					}
				}
			}
			// Content arrived without a keyword hit; it may still be
			// streaming in, so keep watching until the deadline.
		}
	}
}

// newContent reports text that appeared since the snapshot and, when a
// reply region produced it, that region's markup.
func newContent(dom DOM, snap watchSnapshot) (text, html string) {
	for _, sel := range responseRegionSelectors {
		matches := dom.QueryAll(sel)
		if len(matches) == 0 {
			continue
		}
		last := matches[len(matches)-1]
		lastText, err := last.Text()
		if err != nil {
			return "", ""
		}
		if len(matches) > snap.regionCount {
			markup, _ := last.HTML()
			return lastText, markup
		}
		if lastText != snap.regionText && strings.TrimSpace(lastText) != "" {
			markup, _ := last.HTML()
			return strings.TrimPrefix(lastText, snap.regionText), markup
		}
		return "", ""
	}

	// No region selector matched at all; fall back to gross body growth.
	body := dom.BodyText()
	if len(body) >= snap.bodyLen+bodyGrowthThreshold {
		return body[snap.bodyLen:], ""
	}
	return "", ""
}

// timeoutResult builds the found:false reply, attaching the trailing text
// so callers can diagnose what was on screen.
func timeoutResult(dom DOM, snap watchSnapshot) wire.ResponseDetectedResult {
	trailing := ""
	if region := latestRegion(dom); region != nil {
		trailing, _ = region.Text()
	} else if body := dom.BodyText(); len(body) > snap.bodyLen {
		trailing = body[snap.bodyLen:]
	}
	return wire.ResponseDetectedResult{
		Result: wire.Result{Success: true},
		Found:  false,
		Text:   trailing,
	}
}
