package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/docchat/chatmarkup/internal/markup"
)

const (
	defaultWidth = 80
	kindColumn   = len("table-citation")
)

// TerminalWidth returns the width of f if it is a terminal, or 80.
func TerminalWidth(f *os.File) int {
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

// RenderBlocks lists blocks one per line as "index kind summary". Summaries
// are truncated so every line fits in width display cells.
func RenderBlocks(blocks []markup.Block, width int, styles *Styles) string {
	if width <= 0 {
		width = defaultWidth
	}
	indexWidth := len(fmt.Sprint(len(blocks)))

	var sb strings.Builder
	for i, b := range blocks {
		index := fmt.Sprintf("%*d", indexWidth, i+1)
		kind := string(b.Kind())
		label := kind + strings.Repeat(" ", kindColumn-len(kind))

		avail := width - indexWidth - kindColumn - 2
		summary := ""
		if avail > 0 {
			summary = runewidth.Truncate(Summary(b), avail, "…")
		}

		sb.WriteString(styles.Index.Render(index))
		sb.WriteByte(' ')
		if summary == "" {
			sb.WriteString(styles.KindStyle(b.Kind()).Render(kind))
		} else {
			sb.WriteString(styles.KindStyle(b.Kind()).Render(label))
			sb.WriteByte(' ')
			sb.WriteString(summary)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Summary describes a block on a single line.
func Summary(b markup.Block) string {
	switch b := b.(type) {
	case markup.Heading:
		return fmt.Sprintf("h%d %s", b.Level, b.Text)
	case markup.Paragraph:
		return b.Text
	case markup.Code:
		lines := strings.Count(b.Code, "\n") + 1
		lang := b.Language
		if lang == "" {
			lang = "text"
		}
		return fmt.Sprintf("%s, %d %s: %s", lang, lines, plural(lines, "line"), firstLine(b.Code))
	case markup.List:
		kind := "unordered"
		if b.Ordered {
			kind = "ordered"
		}
		return fmt.Sprintf("%s, %d %s: %s", kind, len(b.Items), plural(len(b.Items), "item"), strings.Join(b.Items, "; "))
	case markup.Quote:
		return b.Text
	case markup.Divider:
		return ""
	case markup.Table:
		return tableSummary(b.Caption, b.Data())
	case markup.TableCitation:
		return "[table-" + b.CitationID + "] " + tableSummary(b.Caption, b.TableData)
	case markup.Report:
		s := b.ReportID + ": " + b.Title
		if b.Summary != "" {
			s += " - " + b.Summary
		}
		return s
	}
	return ""
}

func tableSummary(caption string, data markup.TableData) string {
	s := fmt.Sprintf("%d cols × %d %s", len(data.Headers), len(data.Rows), plural(len(data.Rows), "row"))
	if caption != "" {
		s = caption + " (" + s + ")"
	}
	return s
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
