package markup

import "strings"

// PlainText derives the readable text of a document, one entry per block.
// Blocks without text (dividers, empty paragraphs) are left out.
func PlainText(blocks []Block) string {
	var parts []string
	for _, b := range blocks {
		text := blockText(b)
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts = append(parts, text)
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func blockText(b Block) string {
	switch b := b.(type) {
	case Heading:
		return b.Text
	case Paragraph:
		return b.Text
	case Quote:
		return b.Text
	case Code:
		return b.Code
	case List:
		items := make([]string, len(b.Items))
		for i, item := range b.Items {
			items[i] = "- " + item
		}
		return strings.Join(items, "\n")
	case Table:
		var lines []string
		if b.Caption != "" {
			lines = append(lines, b.Caption)
		}
		lines = append(lines, strings.Join(b.Headers, " | "))
		for _, row := range b.Rows {
			lines = append(lines, strings.Join(row, " | "))
		}
		return strings.Join(lines, "\n")
	case Report:
		if b.Summary != "" {
			return b.Title + " - " + b.Summary
		}
		return b.Title
	case TableCitation:
		return "[table-" + b.CitationID + "]"
	}
	return ""
}
