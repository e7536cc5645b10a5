package ui

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/docchat/chatmarkup/internal/markup"
)

// rendererCache provides width-keyed caching of glamour renderers.
// Creating a renderer is expensive; caching by width avoids recreation.
var rendererCache sync.Map // map[int]*glamour.TermRenderer

// glamour's TermRenderer reuses internal buffers, so renders are serialized.
var renderMu sync.Mutex

// getRenderer returns a cached renderer for the given width, creating one if needed.
func getRenderer(width int) (*glamour.TermRenderer, error) {
	if cached, ok := rendererCache.Load(width); ok {
		return cached.(*glamour.TermRenderer), nil
	}

	style := GlamourStyle()
	margin := uint(0)
	style.Document.Margin = &margin
	style.CodeBlock.Margin = &margin

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStyles(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}

	actual, _ := rendererCache.LoadOrStore(width, renderer)
	return actual.(*glamour.TermRenderer), nil
}

// RenderMarkdown renders markdown content using glamour with standard styling.
// On error, returns the original content unchanged.
func RenderMarkdown(content string, width int) string {
	if content == "" {
		return ""
	}

	rendered, err := RenderMarkdownWithError(content, width)
	if err != nil {
		return content
	}
	return rendered
}

// RenderMarkdownWithError renders markdown content and returns any errors.
func RenderMarkdownWithError(content string, width int) (string, error) {
	renderer, err := getRenderer(width)
	if err != nil {
		return "", err
	}

	renderMu.Lock()
	rendered, err := renderer.Render(content)
	renderMu.Unlock()
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(rendered), nil
}

// RenderContent renders parsed blocks for the terminal.
func RenderContent(blocks []markup.Block, width int) string {
	return RenderMarkdown(Markdown(blocks), width)
}

// Markdown writes blocks back out as normalized markdown. Structural blocks and
// inline tables parse back to the same blocks; reports and citations are
// written for reading rather than reparsing.
func Markdown(blocks []markup.Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if s := blockMarkdown(b); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

func blockMarkdown(b markup.Block) string {
	switch b := b.(type) {
	case markup.Heading:
		return strings.Repeat("#", b.Level) + " " + b.Text
	case markup.Paragraph:
		return b.Text
	case markup.Code:
		return "```" + b.Language + "\n" + b.Code + "\n```"
	case markup.List:
		var sb strings.Builder
		for i, item := range b.Items {
			if i > 0 {
				sb.WriteByte('\n')
			}
			if b.Ordered {
				sb.WriteString(strconv.Itoa(i+1) + ". ")
			} else {
				sb.WriteString("- ")
			}
			sb.WriteString(item)
		}
		return sb.String()
	case markup.Quote:
		return "> " + b.Text
	case markup.Divider:
		return "---"
	case markup.Table:
		table := tableMarkdown(b.Data())
		if b.Caption != "" {
			return "Table: " + b.Caption + "\n\n" + table
		}
		return table
	case markup.TableCitation:
		title := "**[table-" + b.CitationID + "]**"
		if b.Caption != "" {
			title += " " + b.Caption
		}
		return title + "\n\n" + tableMarkdown(b.TableData)
	case markup.Report:
		var sb strings.Builder
		sb.WriteString("**" + b.Title + "**")
		if b.Summary != "" {
			sb.WriteString("\n\n" + b.Summary)
		}
		if len(b.Metadata) > 0 {
			keys := make([]string, 0, len(b.Metadata))
			for k := range b.Metadata {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			sb.WriteString("\n")
			for _, k := range keys {
				fmt.Fprintf(&sb, "\n- %s: %v", k, b.Metadata[k])
			}
		}
		return sb.String()
	}
	return ""
}

func tableMarkdown(data markup.TableData) string {
	var sb strings.Builder
	writeRow := func(cells []string) {
		sb.WriteString("|")
		for _, c := range cells {
			sb.WriteString(" " + strings.ReplaceAll(c, "|", `\|`) + " |")
		}
	}
	writeRow(data.Headers)
	sb.WriteString("\n|")
	for range data.Headers {
		sb.WriteString(" --- |")
	}
	for _, row := range data.Rows {
		sb.WriteByte('\n')
		writeRow(row)
	}
	return sb.String()
}
