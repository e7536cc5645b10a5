package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/docchat/chatmarkup/internal/serve"
)

var (
	serveHost        string
	servePort        int
	serveToken       string
	serveSessionTTL  time.Duration
	serveSessionMax  int
	serveCORSOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the markup HTTP API",
	Long: `Serve the parser over HTTP for chat backends.

Endpoints:
  GET    /healthz
  POST   /v1/parse                  {"markdown": "..."}
  POST   /v1/messages/{id}/chunks   {"token": "..."} or {"cumulativeContent": "..."}
  GET    /v1/messages/{id}          current content (?format=html for a preview)
  POST   /v1/messages/{id}/reset
  DELETE /v1/messages/{id}
  POST   /v1/stream                 NDJSON chunks in, server-sent snapshots out

A bearer token is generated when binding a non-loopback host without --token.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Bind host (default from config, 127.0.0.1)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Bind port (default from config, 8787)")
	serveCmd.Flags().StringVar(&serveToken, "token", "", "Bearer token for API auth")
	serveCmd.Flags().DurationVar(&serveSessionTTL, "session-ttl", 0, "Message session idle TTL (default from config, 30m)")
	serveCmd.Flags().IntVar(&serveSessionMax, "session-max", 0, "Max message sessions in memory (default from config, 1000)")
	serveCmd.Flags().StringArrayVar(&serveCORSOrigins, "cors-origin", nil, "Allowed CORS origin (repeatable, or '*' for all)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Serve.Host = serveHost
	}
	if flags.Changed("port") {
		cfg.Serve.Port = servePort
	}
	if flags.Changed("token") {
		cfg.Serve.Token = serveToken
	}
	if flags.Changed("session-ttl") {
		cfg.Serve.SessionTTL = serveSessionTTL
	}
	if flags.Changed("session-max") {
		cfg.Serve.SessionMax = serveSessionMax
	}
	if flags.Changed("cors-origin") {
		cfg.Serve.CORSOrigins = serveCORSOrigins
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	token := strings.TrimSpace(cfg.Serve.Token)
	generated := false
	if token == "" && !serve.IsLoopbackHost(cfg.Serve.Host) {
		token, err = serve.GenerateToken()
		if err != nil {
			return fmt.Errorf("generate auth token: %w", err)
		}
		generated = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := serve.New(serve.Config{
		Host:        cfg.Serve.Host,
		Port:        cfg.Serve.Port,
		Token:       token,
		CORSOrigins: cfg.Serve.CORSOrigins,
		SessionTTL:  cfg.Serve.SessionTTL,
		SessionMax:  cfg.Serve.SessionMax,
	})
	if err := s.Start(); err != nil {
		return err
	}

	errOut := cmd.ErrOrStderr()
	fmt.Fprintf(errOut, "chatmarkup serve listening on http://%s\n", s.Addr())
	fmt.Fprintf(errOut, "auth: %s\n", authSummary(token != ""))
	if generated {
		fmt.Fprintf(errOut, "token: %s\n", token)
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Stop(shutdownCtx)
}

func authSummary(required bool) string {
	if required {
		return "bearer required"
	}
	return "disabled"
}
