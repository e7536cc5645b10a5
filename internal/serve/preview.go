package serve

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"

	"github.com/docchat/chatmarkup/internal/markup"
	"github.com/docchat/chatmarkup/internal/ui"
)

// previewMarkdown renders the structural blocks of a preview.
var previewMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough),
)

var codeFormatter = chromahtml.New(chromahtml.WithClasses(false), chromahtml.TabWidth(4))

// RenderHTML renders blocks as an HTML fragment. The custom markup of the
// content is decoded back into elements and each element is written as plain
// HTML: quotes as blockquotes, tables as tables and reports as sections. Code
// is highlighted and the remaining blocks go through goldmark.
func RenderHTML(blocks []markup.Block) (string, error) {
	elements, err := markup.DecodeMarkup(markup.Serialize(markup.ToElements(blocks)))
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	next := 0
	for _, b := range blocks {
		switch b := b.(type) {
		case markup.Quote, markup.Table, markup.TableCitation, markup.Report:
			if next >= len(elements) {
				return "", fmt.Errorf("render %s block: no element", b.Kind())
			}
			if err := writeElementHTML(&buf, elements[next]); err != nil {
				return "", err
			}
			next++
		case markup.Code:
			if err := highlightCode(&buf, b); err != nil {
				return "", err
			}
		default:
			if err := previewMarkdown.Convert([]byte(ui.Markdown([]markup.Block{b})), &buf); err != nil {
				return "", fmt.Errorf("render %s block: %w", b.Kind(), err)
			}
		}
	}
	return buf.String(), nil
}

// RenderHTMLPage wraps RenderHTML output in a minimal document.
func RenderHTMLPage(title string, blocks []markup.Block) (string, error) {
	body, err := RenderHTML(blocks)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	sb.WriteString(html.EscapeString(title))
	sb.WriteString("</title>\n</head>\n<body>\n")
	sb.WriteString(body)
	sb.WriteString("</body>\n</html>\n")
	return sb.String(), nil
}

// writeElementHTML writes a decoded custom element as HTML. The element tag
// is kept as the class of the outer HTML element.
func writeElementHTML(buf *bytes.Buffer, el *markup.Element) error {
	switch el.Tag {
	case markup.TagQuote:
		text, err := base64Attr(el, "text")
		if err != nil {
			return err
		}
		fmt.Fprintf(buf, "<blockquote class=\"%s\"><p>%s</p></blockquote>\n", el.Tag, escapeLines(text))

	case markup.TagInlineTable, markup.TagCitationTable, markup.TagTableCitation:
		var data markup.TableData
		if err := markup.DecodePayload(el, "data", &data); err != nil {
			return err
		}
		captionAttr := "caption"
		if el.Tag == markup.TagCitationTable {
			captionAttr = "name"
		}
		caption, err := base64Attr(el, captionAttr)
		if err != nil {
			return err
		}
		buf.WriteString(`<table class="` + el.Tag + `"`)
		if id, ok := el.Attr("citationId"); ok {
			buf.WriteString(` data-citation-id="` + html.EscapeString(id) + `"`)
		}
		buf.WriteString(">\n")
		if caption != "" {
			buf.WriteString("<caption>" + html.EscapeString(caption) + "</caption>\n")
		}
		writeTableRow(buf, "th", data.Headers)
		for _, row := range data.Rows {
			writeTableRow(buf, "td", row)
		}
		buf.WriteString("</table>\n")

	case markup.TagReport:
		var r markup.Report
		if err := markup.DecodePayload(el, "data", &r); err != nil {
			return err
		}
		fmt.Fprintf(buf, "<section class=\"%s\" data-report-id=\"%s\">\n", el.Tag, html.EscapeString(r.ReportID))
		buf.WriteString("<h3>" + html.EscapeString(r.Title) + "</h3>\n")
		if r.Summary != "" {
			buf.WriteString("<p>" + escapeLines(r.Summary) + "</p>\n")
		}
		if len(r.Metadata) > 0 {
			buf.WriteString("<dl>\n")
			for _, k := range slices.Sorted(maps.Keys(r.Metadata)) {
				fmt.Fprintf(buf, "<dt>%s</dt><dd>%s</dd>\n", html.EscapeString(k), html.EscapeString(metadataValue(r.Metadata[k])))
			}
			buf.WriteString("</dl>\n")
		}
		buf.WriteString("</section>\n")

	default:
		return fmt.Errorf("render element: unknown tag <%s>", el.Tag)
	}
	return nil
}

func writeTableRow(buf *bytes.Buffer, cellTag string, cells []string) {
	buf.WriteString("<tr>")
	for _, cell := range cells {
		buf.WriteString("<" + cellTag + ">" + html.EscapeString(cell) + "</" + cellTag + ">")
	}
	buf.WriteString("</tr>\n")
}

// base64Attr decodes an optional base64 attribute. A missing attribute is "".
func base64Attr(el *markup.Element, key string) (string, error) {
	raw, ok := el.Attr(key)
	if !ok {
		return "", nil
	}
	text, err := markup.DecodeBase64(raw)
	if err != nil {
		return "", fmt.Errorf("<%s> %s: %w", el.Tag, key, err)
	}
	return text, nil
}

func escapeLines(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br>\n")
}

// metadataValue formats a report metadata value; strings are shown as is and
// everything else as compact JSON.
func metadataValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func highlightCode(buf *bytes.Buffer, c markup.Code) error {
	lexer := lexers.Get(c.Language)
	if lexer == nil {
		lexer = lexers.Analyse(c.Code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}

	iterator, err := lexer.Tokenise(nil, c.Code)
	if err != nil {
		return fmt.Errorf("tokenise code: %w", err)
	}
	if err := codeFormatter.Format(buf, style, iterator); err != nil {
		return fmt.Errorf("format code: %w", err)
	}
	buf.WriteByte('\n')
	return nil
}
