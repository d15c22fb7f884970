// Package convert rewrites Roam Research outline Markdown into standard
// Markdown: the file name becomes an H1, root-level bullets become H2
// headers, everything else loses one level of indentation, and Roam widget
// lines ({{...}}) are dropped.
package convert

import (
	"path/filepath"
	"strings"
)

// unindent removes one level of indentation: a leading tab or four spaces.
func unindent(line string) string {
	if strings.HasPrefix(line, "\t") {
		return line[1:]
	}
	if strings.HasPrefix(line, "    ") {
		return line[4:]
	}
	return line
}

// isWidgetLine reports whether the line content is enclosed in double
// braces, allowing leading whitespace and a bullet marker.
func isWidgetLine(line string) bool {
	content := strings.TrimSpace(line)
	content = strings.TrimPrefix(content, "- ")
	return strings.HasPrefix(content, "{{") && strings.HasSuffix(content, "}}")
}

// Document converts Roam outline Markdown to standard Markdown. The title
// comes from the source file's stem.
func Document(sourcePath, text string) string {
	stem := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))

	out := make([]string, 0, strings.Count(text, "\n")+3)
	out = append(out, "# "+stem, "")

	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		if isWidgetLine(line) {
			continue
		}
		if body, ok := strings.CutPrefix(line, "- "); ok && body != "" {
			out = append(out, "## "+body)
			continue
		}
		out = append(out, unindent(line))
	}
	return strings.Join(out, "\n")
}
