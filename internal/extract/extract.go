// Package extract scans Markdown text for Firebase-hosted image references.
//
// Roam Research uploads user assets to Firebase storage and embeds only the
// locator URL in the exported Markdown. Extraction is purely textual; no
// network or disk access happens here.
package extract

import (
	"fmt"
	"net/url"
	"regexp"

	"github.com/starford/bindrune/internal/apperr"
)

// imageRe matches ![label](url) where the url points at Firebase storage.
// Character classes match newlines in RE2, so the label may span lines; the
// non-greedy quantifier stops at the first closing bracket before "](".
var imageRe = regexp.MustCompile(`!\[[^\]]*?\]\((https://firebasestorage\.googleapis\.com/[^)]+)\)`)

// ImageLink is one remote image reference found in a document.
type ImageLink struct {
	// RawSpan is the literal matched image syntax, e.g. "![alt](https://...)".
	RawSpan string
	// URL is the remote locator extracted from the span.
	URL string
}

// Links returns every Firebase image reference in text, in document order.
// Duplicates are preserved verbatim, repeated URLs included. Link-free input
// yields an empty result, not an error. A locator that does not parse as an
// absolute URL fails with apperr.ErrValidation.
func Links(text string) ([]ImageLink, error) {
	matches := imageRe.FindAllStringSubmatch(text, -1)
	links := make([]ImageLink, 0, len(matches))
	for _, m := range matches {
		locator := m[1]
		parsed, err := url.Parse(locator)
		if err != nil || !parsed.IsAbs() {
			return nil, fmt.Errorf("%w: bad image locator %q", apperr.ErrValidation, locator)
		}
		links = append(links, ImageLink{RawSpan: m[0], URL: locator})
	}
	return links, nil
}
