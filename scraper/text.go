package scraper

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy = bluemonday.StrictPolicy()

	// Tags that start a new visual line in a rendered card.
	blockTagRe = regexp.MustCompile(`(?i)<(/?)(div|p|br|li|ul|ol|h[1-6]|tr|td|th|section|article|header|footer|address|table)\b`)
)

// VisibleText renders an HTML fragment as the text a reader would see: tags removed,
// entities decoded, one line per block element, runs of spaces collapsed.
func VisibleText(fragment string) string {
	withBreaks := blockTagRe.ReplaceAllString(fragment, "\n<$1$2")
	text := html.UnescapeString(strictPolicy.Sanitize(withBreaks))

	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
