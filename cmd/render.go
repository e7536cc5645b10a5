package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/docchat/chatmarkup/internal/markup"
	"github.com/docchat/chatmarkup/internal/ui"
)

var (
	renderFormat string
	renderWidth  int
)

var renderCmd = &cobra.Command{
	Use:   "render [files or globs...]",
	Short: "Parse markdown and print the resulting content",
	Long: `Parse markdown files (or stdin) and print the content the chat UI would
receive for a finished message.

Formats:
  json      blocks, plain text, elements and markup as JSON
  markup    custom-element markup only
  text      plain text only
  blocks    one line per parsed block
  terminal  styled rendering for the terminal
  html      standalone HTML preview

Examples:
  chatmarkup render answer.md
  chatmarkup render -f blocks "transcripts/**/*.md"
  cat answer.md | chatmarkup render -f terminal`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	AddFormatFlag(renderCmd, &renderFormat, renderFormats)
	AddWidthFlag(renderCmd, &renderWidth)
}

type renderInput struct {
	name string
	text string
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.ApplyOverrides(renderFormat, renderWidth)
	if err := cfg.Validate(); err != nil {
		return err
	}

	inputs, err := readInputs(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	opts := outputOptions{
		format: cfg.Render.Format,
		width:  cfg.Render.Width,
		indent: true,
		styles: ui.NewStyles(out),
	}
	if opts.width == 0 {
		opts.width = ui.TerminalWidth(os.Stdout)
	}

	for i, in := range inputs {
		if len(inputs) > 1 {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "==> %s <==\n", in.name)
		}
		content := markup.BuildContent(in.text)
		slog.Debug("parsed input", "name", in.name, "blocks", len(content.Blocks))
		if err := writeContent(out, in.name, content, opts); err != nil {
			return fmt.Errorf("%s: %w", in.name, err)
		}
	}
	return nil
}

// readInputs reads every file named by args, expanding glob patterns. With no
// args, or for "-", it reads stdin.
func readInputs(stdin io.Reader, args []string) ([]renderInput, error) {
	if len(args) == 0 {
		args = []string{"-"}
	}
	paths, err := expandPaths(args)
	if err != nil {
		return nil, err
	}

	inputs := make([]renderInput, 0, len(paths))
	for _, path := range paths {
		var data []byte
		if path == "-" {
			data, err = io.ReadAll(stdin)
			path = "stdin"
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		inputs = append(inputs, renderInput{name: path, text: string(data)})
	}
	return inputs, nil
}

// expandPaths expands doublestar patterns such as "docs/**/*.md". Plain paths
// pass through untouched; a pattern that matches nothing is an error.
func expandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		if arg == "-" || !strings.ContainsAny(arg, "*?[{") {
			paths = append(paths, arg)
			continue
		}
		if !doublestar.ValidatePattern(arg) {
			return nil, fmt.Errorf("invalid glob pattern %q", arg)
		}
		matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", arg)
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}
