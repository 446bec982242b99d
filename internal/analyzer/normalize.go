package analyzer

import (
	"regexp"
	"strings"
)

var (
	spaceRun   = regexp.MustCompile(` {2,}`)
	newlineRun = regexp.MustCompile(`\n{3,}`)
)

// Normalize canonicalizes raw text. All sentence offsets refer to its output.
//
// CRLF becomes LF, tabs become single spaces, runs of spaces collapse to one,
// runs of three or more newlines collapse to a blank line, and the result is
// trimmed. Normalize is idempotent.
func Normalize(raw string) string {
	s := raw
	// "\r\r\n" yields a fresh CRLF after one replacement
	for strings.Contains(s, "\r\n") {
		s = strings.ReplaceAll(s, "\r\n", "\n")
	}
	s = strings.ReplaceAll(s, "\t", " ")
	s = spaceRun.ReplaceAllString(s, " ")
	s = newlineRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
