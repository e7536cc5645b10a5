package markup

import (
	"regexp"
	"strings"
)

var (
	headingPattern   = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	dividerPattern   = regexp.MustCompile(`^(?:-{3,}|_{3,}|\*{3,})$`)
	orderedPattern   = regexp.MustCompile(`^\s*(\d+)\.\s+(.*)$`)
	unorderedPattern = regexp.MustCompile(`^\s*[-*+]\s+(.*)$`)

	// A table divider row: ---, :---, ---: or :---: cells separated by pipes.
	tableDividerPattern = regexp.MustCompile(`^\|?\s*:?-{3,}:?\s*(?:\|\s*:?-{3,}:?\s*)*\|?$`)

	// Caption labels are English or Hebrew.
	captionPattern = regexp.MustCompile(`(?i)^(?:table|טבלה)\s*:\s*(.+)$`)

	reportPattern      = regexp.MustCompile(`(?is)^report\s*[:\-]\s*(\{.*\})$`)
	citationDefPattern = regexp.MustCompile(`(?i)^table-citation:\s*(\w+)`)
	citationRefPattern = regexp.MustCompile(`(?i)\[table-(\w+)\]`)
)

const fence = "```"

// splitLines normalizes CRLF and CR line endings and splits text into lines.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

func isFence(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), fence)
}

func isHeading(line string) bool {
	return headingPattern.MatchString(strings.TrimSpace(line))
}

func isDivider(line string) bool {
	return dividerPattern.MatchString(strings.TrimSpace(line))
}

func isQuote(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), ">")
}

// listItem reports whether line is a list item, whether it is ordered, and
// the item text.
func listItem(line string) (text string, ordered, ok bool) {
	if m := orderedPattern.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[2]), true, true
	}
	if m := unorderedPattern.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), false, true
	}
	return "", false, false
}

func isListItem(line string) bool {
	_, _, ok := listItem(line)
	return ok
}

// isParagraphBoundary reports whether line ends a running paragraph. Table
// starts are deliberately not boundaries.
func isParagraphBoundary(line string) bool {
	return isBlank(line) ||
		isHeading(line) ||
		isDivider(line) ||
		isListItem(line) ||
		isFence(line) ||
		isQuote(line)
}

// isTableStart reports whether lines[i] opens a pipe table: the line holds a
// pipe and the next line is a divider row.
func isTableStart(lines []string, i int) bool {
	if i+1 >= len(lines) || !strings.Contains(lines[i], "|") {
		return false
	}
	return tableDividerPattern.MatchString(strings.TrimSpace(lines[i+1]))
}

func isTableRow(line string) bool {
	return strings.Contains(line, "|") && !isBlank(line)
}

// captionText returns the caption carried by a "Table: ..." line.
func captionText(text string) (string, bool) {
	m := captionPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", false
	}
	caption := strings.TrimSpace(m[1])
	return caption, caption != ""
}
