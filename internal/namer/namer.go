// Package namer turns arbitrary note titles into shell-safe file names.
package namer

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	spaceRunRe      = regexp.MustCompile(`[ ]+`)
	unsafeCharRe    = regexp.MustCompile(`[^A-Za-z0-9._-]`)
	underscoreRunRe = regexp.MustCompile(`_+`)
)

// Normalize maps text to a name safe for file systems and shells.
//
// The pipeline: Unicode canonical decomposition, drop non-ASCII code points,
// collapse space runs to a single underscore, delete anything outside
// [A-Za-z0-9._-], collapse underscore runs, trim leading and trailing
// underscores. The output alphabet is closed under every step, so applying
// Normalize twice yields the same result as applying it once.
func Normalize(text string) string {
	decomposed := norm.NFD.String(text)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if r > unicode.MaxASCII {
			continue
		}
		b.WriteRune(r)
	}

	s := spaceRunRe.ReplaceAllString(b.String(), "_")
	s = unsafeCharRe.ReplaceAllString(s, "")
	s = underscoreRunRe.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}
