// Package normalize cleans up Markdown-syntax artifacts left behind by the
// Roam export: line breaks inside link labels and escaped page-link brackets.
package normalize

import (
	"regexp"
	"strings"
)

var (
	// labelRe matches [label](target) and ![label](target). Character
	// classes match newlines in RE2, so the label may span lines.
	labelRe = regexp.MustCompile(`(!?\[)([^\]]+?)(\]\([^)]+\))`)

	newlineRunRe = regexp.MustCompile(`\n+`)
)

// CollapseLabelBreaks replaces every run of line breaks inside a link or
// image label with a single space. Text outside link syntax is untouched.
func CollapseLabelBreaks(text string) string {
	return labelRe.ReplaceAllStringFunc(text, func(span string) string {
		parts := labelRe.FindStringSubmatch(span)
		return parts[1] + newlineRunRe.ReplaceAllString(parts[2], " ") + parts[3]
	})
}

// StripEscapedBrackets deletes every literal `\[\[` and `\]\]` sequence.
// Roam escapes its [[page link]] syntax on export; the deletion is
// context-free, with no nesting or balance checking.
func StripEscapedBrackets(text string) string {
	text = strings.ReplaceAll(text, `\[\[`, "")
	return strings.ReplaceAll(text, `\]\]`, "")
}

// Apply runs both passes in their required order: label collapsing first, so
// that bracket sequences split across lines inside labels are rejoined
// before stripping.
func Apply(text string) string {
	return StripEscapedBrackets(CollapseLabelBreaks(text))
}
