package bridge

import (
	"fmt"
	"strings"

	"github.com/entrhq/questpilot/pkg/bridge/wire"
)

// findTextInput locates the widget's primary text-entry control. Candidates
// are tried flat first; when none match the search descends into
// shadow-encapsulated subtrees, which later widget versions use.
func findTextInput(dom DOM) Element {
	for _, sel := range textInputSelectors {
		if el := dom.Query(sel); el != nil {
			return el
		}
	}
	for _, sel := range textInputSelectors {
		if el := dom.QueryDeep(sel); el != nil {
			return el
		}
	}
	return nil
}

// typeText sets the input's value and dispatches the full synthetic event
// sequence so reactive frameworks detect the change.
func typeText(dom DOM, text string) wire.Result {
	input := findTextInput(dom)
	if input == nil {
		return wire.Result{Error: "no text input found in widget"}
	}
	if err := input.Fill(text); err != nil {
		return wire.Result{Error: fmt.Sprintf("failed to set input value: %v", err)}
	}
	for _, event := range typeEventSequence {
		if err := input.Dispatch(event); err != nil {
			return wire.Result{Error: fmt.Sprintf("failed to dispatch %s event: %v", event, err)}
		}
	}
	return wire.Result{Success: true}
}

// clickSend submits the typed prompt. An Enter keypress on the input is the
// most reliable path across widget versions; a button whose accessible name
// suggests "send" is the fallback.
func clickSend(dom DOM) wire.Result {
	if input := findTextInput(dom); input != nil {
		if err := input.Press("Enter"); err == nil {
			return wire.Result{Success: true}
		}
	}

	for _, sel := range sendButtonSelectors {
		for _, el := range dom.QueryAll(sel) {
			if looksLikeSend(el) {
				if err := el.Click(); err != nil {
					return wire.Result{Error: fmt.Sprintf("send button click failed: %v", err)}
				}
				return wire.Result{Success: true}
			}
		}
	}
	return wire.Result{Error: "no way to send: input rejected Enter and no send button found"}
}

// looksLikeSend checks the element's accessible name, description and text
// for a send affordance.
func looksLikeSend(el Element) bool {
	for _, val := range []string{el.Attr("aria-label"), el.Attr("title"), el.Attr("aria-description")} {
		if strings.Contains(strings.ToLower(val), "send") {
			return true
		}
	}
	text, err := el.Text()
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(text), "send")
}

// checkIfOpen reports text-input presence as the widget liveness signal.
func checkIfOpen(dom DOM) wire.StatusResult {
	open := findTextInput(dom) != nil
	return wire.StatusResult{Result: wire.Result{Success: true}, Open: open}
}

// latestRegion returns the most recent assistant reply container, or nil
// when no candidate selector matches.
func latestRegion(dom DOM) Element {
	for _, sel := range responseRegionSelectors {
		if matches := dom.QueryAll(sel); len(matches) > 0 {
			return matches[len(matches)-1]
		}
	}
	return nil
}

// interactiveSelector matches buttons and link-as-button affordances.
const interactiveSelector = "button, a, [role=\"button\"]"

// findInteractiveElements enumerates the actionable elements in the latest
// reply region, in document order.
func findInteractiveElements(dom DOM) wire.InteractiveElementsResult {
	region := latestRegion(dom)
	if region == nil {
		return wire.InteractiveElementsResult{Result: wire.Result{Error: "no response region found"}}
	}

	var elements []wire.InteractiveElement
	for _, el := range region.QueryAll(interactiveSelector) {
		text, _ := el.Text()
		elements = append(elements, wire.InteractiveElement{
			Text:      strings.TrimSpace(text),
			AriaLabel: el.Attr("aria-label"),
			Tag:       el.Tag(),
			HasIcon:   len(el.QueryAll("svg, img, [class*=\"icon\"]")) > 0,
		})
	}
	return wire.InteractiveElementsResult{Result: wire.Result{Success: true}, Elements: elements}
}

// clickFirstButton acts on the latest reply region. An input or select takes
// priority over buttons: entering a value needs a follow-up type-and-send
// from the caller, so the input is reported without clicking anything.
// Heuristic: a reply containing both a meaningful button and an incidental
// input resolves in the input's favour.
func clickFirstButton(dom DOM) wire.ClickedResult {
	region := latestRegion(dom)
	if region == nil {
		return wire.ClickedResult{Result: wire.Result{Error: "no response region found"}}
	}

	if inputs := region.QueryAll("input, select"); len(inputs) > 0 {
		return wire.ClickedResult{
			Result: wire.Result{Success: true},
			Type:   "input",
			Tag:    inputs[0].Tag(),
		}
	}

	buttons := region.QueryAll(interactiveSelector)
	if len(buttons) == 0 {
		return wire.ClickedResult{Result: wire.Result{Error: "no buttons found in response"}}
	}
	text, _ := buttons[0].Text()
	if err := buttons[0].Click(); err != nil {
		return wire.ClickedResult{Result: wire.Result{Error: fmt.Sprintf("click failed: %v", err)}}
	}
	return wire.ClickedResult{
		Result: wire.Result{Success: true},
		Type:   "button",
		Text:   strings.TrimSpace(text),
		Tag:    buttons[0].Tag(),
	}
}

// clickButtonByText clicks the first element, in document order, whose text,
// aria-label or title matches the wanted text case-insensitively (exact or
// substring). Falls back to scanning plain text holders for exact matches.
// On failure the searched text and a sample of candidates is reported so the
// caller can see what was actually on screen.
func clickButtonByText(dom DOM, wanted string) wire.ClickedResult {
	lowered := strings.ToLower(strings.TrimSpace(wanted))
	if lowered == "" {
		return wire.ClickedResult{Result: wire.Result{Error: "button text must not be empty"}}
	}

	var candidates []string
	for _, el := range dom.QueryAll(interactiveSelector + ", [onclick]") {
		text, _ := el.Text()
		text = strings.TrimSpace(text)
		if text != "" {
			candidates = append(candidates, text)
		}
		if matchesText(el, text, lowered) {
			if err := el.Click(); err != nil {
				return wire.ClickedResult{Result: wire.Result{Error: fmt.Sprintf("click failed: %v", err)}}
			}
			return wire.ClickedResult{
				Result: wire.Result{Success: true},
				Type:   "button",
				Text:   text,
				Tag:    el.Tag(),
			}
		}
	}

	// Text-node fallback: exact matches on plain text holders, clicking
	// the holding element as the nearest ancestor of the text.
	for _, el := range dom.QueryAll("span, div, p, li") {
		text, _ := el.Text()
		if strings.ToLower(strings.TrimSpace(text)) == lowered {
			if err := el.Click(); err != nil {
				continue
			}
			return wire.ClickedResult{
				Result: wire.Result{Success: true},
				Type:   "button",
				Text:   strings.TrimSpace(text),
				Tag:    el.Tag(),
			}
		}
	}

	if len(candidates) > 10 {
		candidates = candidates[:10]
	}
	return wire.ClickedResult{
		Result:     wire.Result{Error: fmt.Sprintf("no button matching %q", wanted)},
		Candidates: candidates,
	}
}

// matchesText checks text content, aria-label and title for an exact or
// substring match against the lowercased wanted text.
func matchesText(el Element, text, lowered string) bool {
	for _, val := range []string{text, el.Attr("aria-label"), el.Attr("title")} {
		v := strings.ToLower(strings.TrimSpace(val))
		if v == lowered || (v != "" && strings.Contains(v, lowered)) {
			return true
		}
	}
	return false
}

// findInput reports the first input or select in the latest reply region.
func findInput(dom DOM) wire.InputFoundResult {
	region := latestRegion(dom)
	if region == nil {
		return wire.InputFoundResult{Result: wire.Result{Error: "no response region found"}}
	}
	inputs := region.QueryAll("input, select, textarea")
	if len(inputs) == 0 {
		return wire.InputFoundResult{Result: wire.Result{Success: true}, Found: false}
	}
	el := inputs[0]
	return wire.InputFoundResult{
		Result:      wire.Result{Success: true},
		Found:       true,
		Tag:         el.Tag(),
		InputType:   el.Attr("type"),
		Placeholder: el.Attr("placeholder"),
	}
}
