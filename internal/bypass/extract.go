package bypass

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractPayload returns the upstream response text from a relay
// solution body.
//
// When the upstream blocks the relay's browser, the JSON comes back
// wrapped in an HTML shell with the real payload inside a <pre> tag.
// The sniffing heuristic lives here alone so it stays independently
// testable and swappable.
func extractPayload(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", fmt.Errorf("%w: empty solution body", ErrParse)
	}
	if !strings.HasPrefix(body, "<") {
		return body, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: html parse: %v", ErrParse, err)
	}
	text := strings.TrimSpace(doc.Find("pre").First().Text())
	if text == "" {
		return "", fmt.Errorf("%w: html body without usable <pre> payload", ErrParse)
	}
	return text, nil
}
