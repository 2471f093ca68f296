// Package sanitize cleans untrusted text before it is placed into markdown
// that an agent reads, such as the MCP run resource. File names, catalog
// fields and error messages all come from disk and may carry control
// characters, XML-like tags or markdown structure that would otherwise be
// interpreted as instructions.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxTextLength is the maximum length of sanitized free text, in bytes.
const MaxTextLength = 500

// MaxLabelLength is the maximum length of a sanitized label, in runes.
const MaxLabelLength = 120

var (
	// reXMLTag matches XML/HTML tags including those with attributes and self-closing tags.
	// It also matches XML processing instructions like <?xml ...?>.
	reXMLTag = regexp.MustCompile(`<[/?!]?[a-zA-Z][a-zA-Z0-9]*(?:\s+[^>]*)?/?>|<\?[^?]*\?>`)

	// reMarkdownHeading matches markdown headings at the start of a line (# , ## , etc.).
	reMarkdownHeading = regexp.MustCompile(`(?m)^#{1,6}\s+`)

	// reHorizontalRule matches markdown horizontal rules (---, ***, ___) at the start of a line.
	reHorizontalRule = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)

	reTripleBacktick    = regexp.MustCompile("```+")
	reExcessiveNewlines = regexp.MustCompile(`\n{3,}`)
	reWhitespace        = regexp.MustCompile(`\s+`)
	reRepeatedSpaces    = regexp.MustCompile(` {2,}`)
)

// Text sanitizes multi-line free text such as an error message.
//
// The pipeline runs in this order:
//  1. Strip null bytes and ASCII control characters (except \n, \t)
//  2. Strip XML/HTML tags
//  3. Replace markdown headings with list markers
//  4. Remove markdown horizontal rules
//  5. Collapse triple backticks to a single backtick
//  6. Collapse excessive newlines (3+ -> 2)
//  7. Trim leading/trailing whitespace
//  8. Truncate to MaxTextLength on a rune boundary
func Text(input string) string {
	if input == "" {
		return ""
	}

	s := stripControlChars(input)
	s = reXMLTag.ReplaceAllString(s, "")
	s = reMarkdownHeading.ReplaceAllString(s, "- ")
	s = reHorizontalRule.ReplaceAllString(s, "")
	s = reTripleBacktick.ReplaceAllString(s, "`")
	s = reExcessiveNewlines.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)

	if len(s) > MaxTextLength {
		s = truncateBytes(s, MaxTextLength) + "..."
	}
	return s
}

// Line is Text folded onto a single line, for use inside a markdown list
// item.
func Line(input string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(Text(input), " "))
}

// Label sanitizes a short identifier such as a media file name or a
// category. Letters and digits in any script are kept, as are spaces and
// the punctuation - _ . / ( ). Runs of spaces collapse to one and the
// result is cut to MaxLabelLength runes.
func Label(input string) string {
	if input == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-', r == '_', r == '.', r == '/', r == '(', r == ')', r == ' ':
			b.WriteRune(r)
		}
	}
	s := strings.TrimSpace(reRepeatedSpaces.ReplaceAllString(b.String(), " "))

	if runes := []rune(s); len(runes) > MaxLabelLength {
		s = string(runes[:MaxLabelLength])
	}
	return s
}

// stripControlChars removes ASCII control characters (0x00-0x1F) and DEL,
// except for newline and tab.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r < 0x20 && r != '\n' && r != '\t') || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
