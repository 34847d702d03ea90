package classifier

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// countsPattern parses "N of M" status strings like "Showing 5 of 23".
var countsPattern = regexp.MustCompile(`(\d+)\s+of\s+(\d+)`)

// summaryLimit is the markdown summary truncation length.
const summaryLimit = 100

// extractList builds the structured summary for a list reply.
func extractList(r *Region) *ListSummary {
	summary := &ListSummary{Title: "List"}

	if headers := r.find("h1, h2, h3, h4, h5, h6, [class*=\"header\"], [class*=\"title\"]"); headers != nil {
		if title := strings.TrimSpace(headers.First().Text()); title != "" {
			summary.Title = title
		}
	}

	if items := r.find(listItemSelector); items != nil {
		items.Each(func(_ int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); text != "" {
				summary.Items = append(summary.Items, text)
			}
		})
	}

	if match := countsPattern.FindStringSubmatch(r.text); match != nil {
		summary.Shown, _ = strconv.Atoi(match[1])
		summary.Total, _ = strconv.Atoi(match[2])
	} else {
		summary.Shown = len(summary.Items)
		summary.Total = len(summary.Items)
	}

	summary.ActionLabels = actionLabels(r.find("button, a, [role=\"button\"]"))
	return summary
}

// extractCards builds the structured summary for a card reply.
func extractCards(r *Region) *CardSummary {
	summary := &CardSummary{}
	cards := r.find(cardSelector)
	if cards == nil {
		return summary
	}
	cards.Each(func(_ int, s *goquery.Selection) {
		info := CardInfo{
			Title:        strings.TrimSpace(s.Find("h1, h2, h3, h4, h5, h6, [class*=\"title\"]").First().Text()),
			Subtitle:     strings.TrimSpace(s.Find("[class*=\"subtitle\"], p").First().Text()),
			ButtonLabels: actionLabels(s.Find("button, a, [role=\"button\"]")),
		}
		summary.Cards = append(summary.Cards, info)
	})
	summary.Count = len(summary.Cards)
	return summary
}

// actionLabels collects button labels, deduplicated, in document order.
func actionLabels(sel *goquery.Selection) []string {
	if sel == nil {
		return nil
	}
	seen := make(map[string]bool)
	var labels []string
	sel.Each(func(_ int, s *goquery.Selection) {
		label := strings.TrimSpace(s.Text())
		if label == "" {
			label = strings.TrimSpace(s.AttrOr("aria-label", ""))
		}
		if label == "" || seen[label] {
			return
		}
		seen[label] = true
		labels = append(labels, label)
	})
	return labels
}

// markdownResponse builds the prose result with a truncated summary.
func markdownResponse(text string) ParsedResponse {
	trimmed := strings.TrimSpace(text)
	summary := trimmed
	if len(summary) > summaryLimit {
		summary = summary[:summaryLimit] + "..."
	}
	return ParsedResponse{
		Type:    TypeMarkdown,
		Success: true,
		RawText: trimmed,
		Message: summary,
		Summary: summary,
	}
}
