package cmd

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docchat/chatmarkup/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "chatmarkup",
	Short: "Render streamed chat markdown into blocks and custom elements",
	Long: `chatmarkup turns the markdown an assistant streams into content blocks,
plain text and the custom-element markup the chat UI renders.

Examples:
  chatmarkup render answer.md                 # content JSON
  chatmarkup render --format terminal "docs/**/*.md"
  chatmarkup stream --chunk-size 4 answer.md  # replay as a token stream
  chatmarkup serve --port 8787                # HTTP API for chat backends
  chatmarkup config                           # view configuration`,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	SilenceUsage:      true,
}

var (
	debug      bool
	configFile string
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default $XDG_CONFIG_HOME/chatmarkup/config.yaml)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads the --config file if given, otherwise the default config
// location, and installs the logger it describes.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	setupLogging(cmd.ErrOrStderr(), cfg.Log.Level, debug)
	return cfg, nil
}

func setupLogging(w io.Writer, level string, debug bool) {
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel(level, debug),
	})))
}

func logLevel(level string, debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
