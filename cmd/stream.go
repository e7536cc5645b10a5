package cmd

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/docchat/chatmarkup/internal/markup"
	"github.com/docchat/chatmarkup/internal/streaming"
	"github.com/docchat/chatmarkup/internal/ui"
)

var (
	streamFormat    string
	streamWidth     int
	streamChunkSize int
	streamDelay     time.Duration
	streamNDJSON    bool
	streamFinalOnly bool
)

var streamCmd = &cobra.Command{
	Use:   "stream [file]",
	Short: "Replay a message as a token stream and print every snapshot",
	Long: `Feed a message through a streaming session the way a chat backend would,
printing the rebuilt content after every chunk. JSON snapshots are written one
per line.

The input is either raw markdown, split into --chunk-size byte tokens, or with
--ndjson one chunk object per line:
  {"token":"Hel"}
  {"cumulativeContent":"Hello"}

Examples:
  chatmarkup stream --chunk-size 8 --delay 50ms answer.md
  chatmarkup stream --ndjson -f text recorded.ndjson
  chatmarkup stream --final answer.md`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStream,
}

func init() {
	rootCmd.AddCommand(streamCmd)
	AddFormatFlag(streamCmd, &streamFormat, streamFormats)
	AddWidthFlag(streamCmd, &streamWidth)
	streamCmd.Flags().IntVar(&streamChunkSize, "chunk-size", 0, "Bytes per token (default from config)")
	streamCmd.Flags().DurationVar(&streamDelay, "delay", 0, "Pause between chunks (default from config)")
	streamCmd.Flags().BoolVar(&streamNDJSON, "ndjson", false, "Read newline-delimited chunk objects")
	streamCmd.Flags().BoolVar(&streamFinalOnly, "final", false, "Only print the final snapshot")
}

func runStream(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	format := streamFormat
	if format == "" {
		format = "json"
	}
	if !slices.Contains(streamFormats, format) {
		return fmt.Errorf("invalid --format %q for stream (want one of json, markup, text, blocks)", format)
	}
	if cmd.Flags().Changed("chunk-size") {
		cfg.Stream.ChunkSize = streamChunkSize
	}
	if cmd.Flags().Changed("delay") {
		cfg.Stream.Delay = streamDelay
	}
	cfg.ApplyOverrides("", streamWidth)
	if err := cfg.Validate(); err != nil {
		return err
	}

	inputs, err := readInputs(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	if len(inputs) > 1 {
		return fmt.Errorf("stream takes a single input, got %d files", len(inputs))
	}
	data := []byte(inputs[0].text)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	opts := outputOptions{
		format: format,
		width:  cfg.Render.Width,
		styles: ui.NewStyles(out),
	}
	if opts.width == 0 {
		opts.width = ui.TerminalWidth(os.Stdout)
	}
	p := &snapshotPrinter{w: out, name: inputs[0].name, opts: opts, finalOnly: streamFinalOnly}

	session := streaming.NewSession()
	if streamNDJSON {
		err = replayNDJSON(ctx, session, bytes.NewReader(data), cfg.Stream.Delay, p.print)
	} else {
		err = replayTokens(ctx, session, data, cfg.Stream.ChunkSize, cfg.Stream.Delay, p.print)
	}
	if err != nil {
		return err
	}
	return p.finish(session.Current())
}

// snapshotPrinter writes each snapshot, or only the last one.
type snapshotPrinter struct {
	w         io.Writer
	name      string
	opts      outputOptions
	finalOnly bool
	count     int
	err       error
}

func (p *snapshotPrinter) print(content markup.Content) {
	p.count++
	if p.finalOnly || p.err != nil {
		return
	}
	p.err = p.write(content)
}

func (p *snapshotPrinter) write(content markup.Content) error {
	if p.opts.format != "json" {
		header := fmt.Sprintf("--- snapshot %d ---", p.count)
		if _, err := fmt.Fprintln(p.w, p.opts.styles.Muted.Render(header)); err != nil {
			return err
		}
	}
	return writeContent(p.w, p.name, content, p.opts)
}

func (p *snapshotPrinter) finish(final markup.Content) error {
	if p.err != nil {
		return p.err
	}
	if p.finalOnly {
		return writeContent(p.w, p.name, final, p.opts)
	}
	return nil
}

// replayTokens writes data to the session chunkSize bytes at a time.
func replayTokens(ctx context.Context, session *streaming.Session, data []byte, chunkSize int, delay time.Duration, emit func(markup.Content)) error {
	w := streaming.NewWriter(session, streaming.WithUpdateFunc(emit))
	for pos := 0; pos < len(data); pos += chunkSize {
		end := min(pos+chunkSize, len(data))
		if _, err := w.Write(data[pos:end]); err != nil {
			return err
		}
		if end < len(data) {
			if err := sleep(ctx, delay); err != nil {
				return err
			}
		}
	}
	return w.Close()
}

// replayNDJSON applies one chunk object per line.
func replayNDJSON(ctx context.Context, session *streaming.Session, r io.Reader, delay time.Duration, emit func(markup.Content)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10<<20)
	line := 0
	first := true
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		chunk, err := streaming.DecodeChunk(raw)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if !first {
			if err := sleep(ctx, delay); err != nil {
				return err
			}
		}
		first = false
		emit(session.Append(chunk))
	}
	return scanner.Err()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
