package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/docchat/chatmarkup/internal/markup"
	"github.com/docchat/chatmarkup/internal/serve"
	"github.com/docchat/chatmarkup/internal/ui"
)

// outputOptions controls how content is printed.
type outputOptions struct {
	format string
	width  int
	indent bool // pretty-print JSON
	styles *ui.Styles
}

// formatContent renders content in one of the config.Formats.
func formatContent(name string, content markup.Content, opts outputOptions) (string, error) {
	switch opts.format {
	case "json":
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if opts.indent {
			enc.SetIndent("", "  ")
		}
		if err := enc.Encode(content); err != nil {
			return "", fmt.Errorf("encode content: %w", err)
		}
		return buf.String(), nil
	case "markup":
		return content.CustomMarkup + "\n", nil
	case "text":
		return content.PlainText + "\n", nil
	case "blocks":
		return ui.RenderBlocks(content.Blocks, opts.width, opts.styles), nil
	case "terminal":
		return ui.RenderContent(content.Blocks, opts.width) + "\n", nil
	case "html":
		return serve.RenderHTMLPage(name, content.Blocks)
	}
	return "", fmt.Errorf("unknown format %q", opts.format)
}

func writeContent(w io.Writer, name string, content markup.Content, opts outputOptions) error {
	out, err := formatContent(name, content, opts)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}
