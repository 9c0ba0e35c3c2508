// Package extract implements the heuristic pipeline that turns noisy OCR
// text of a retail receipt into structured merchant, item and totals data.
// Everything in this package is a pure, synchronous transformation over
// in-memory strings; soft extraction misses surface as nil fields, never as
// errors.
package extract

import (
	"regexp"
	"strings"
)

var (
	hspaceRE   = regexp.MustCompile(`[ \t]+`)
	blankRunRE = regexp.MustCompile(`\n{3,}`)
)

// Normalize collapses OCR whitespace noise: carriage returns become
// newlines, runs of horizontal whitespace a single space, three or more
// consecutive blank lines exactly one. The result is trimmed. Normalize is
// idempotent: applying it to its own output is a no-op.
func Normalize(text string) string {
	t := strings.ReplaceAll(text, "\r", "\n")
	t = hspaceRE.ReplaceAllString(t, " ")
	t = blankRunRE.ReplaceAllString(t, "\n\n")
	return strings.TrimSpace(t)
}

// Document is normalized OCR text plus its derived line view: the trimmed,
// non-blank lines in order. Whole-text regex search runs against Text,
// line-oriented rules against Lines.
type Document struct {
	Text  string
	Lines []string
}

// NewDocument normalizes raw OCR text and splits it into lines.
func NewDocument(raw string) Document {
	text := Normalize(raw)
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return Document{Text: text, Lines: lines}
}
