// Package serve exposes the markup parser over HTTP. Chat backends push the
// tokens of an assistant message to /v1/messages/{id}/chunks and read back the
// rebuilt content, or stream a whole message through /v1/stream and receive a
// server-sent snapshot per chunk.
package serve

import (
	"bufio"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/docchat/chatmarkup/internal/markup"
	"github.com/docchat/chatmarkup/internal/streaming"
)

const maxBodyBytes = 10 << 20

var messageIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.:-]{1,128}$`)

// Config configures a Server.
type Config struct {
	Host        string
	Port        int
	Token       string // bearer token; empty disables auth
	CORSOrigins []string
	SessionTTL  time.Duration
	SessionMax  int
	ParseOpts   []markup.ParseOption
}

// Server is the chatmarkup HTTP server.
type Server struct {
	cfg      Config
	sessions *SessionManager
	server   *http.Server
	addr     string
}

// New creates a server and its session manager.
func New(cfg Config) *Server {
	return &Server{
		cfg:      cfg,
		sessions: NewSessionManager(cfg.SessionTTL, cfg.SessionMax, cfg.ParseOpts...),
	}
}

// Sessions returns the server's session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Handler returns the routed handler with auth and CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/parse", s.cors(s.auth(s.handleParse)))
	mux.HandleFunc("/v1/stream", s.cors(s.auth(s.handleStream)))
	mux.HandleFunc("/v1/messages/{id}", s.cors(s.auth(s.handleMessage)))
	mux.HandleFunc("/v1/messages/{id}/chunks", s.cors(s.auth(s.handleChunks)))
	mux.HandleFunc("/v1/messages/{id}/reset", s.cors(s.auth(s.handleReset)))

	return mux
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)))
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	s.addr = ln.Addr().String()
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", "error", err)
		}
	}()
	return nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	return s.addr
}

// Stop shuts the server down and drops all sessions.
func (s *Server) Stop(ctx context.Context) error {
	defer s.sessions.Close()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.sessions.Len()})
}

func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	if s.cfg.Token == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next(w, r)
			return
		}
		const prefix = "Bearer "
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, prefix) {
			writeError(w, http.StatusUnauthorized, "invalid_api_key", "invalid authentication credentials")
			return
		}
		gotToken := strings.TrimSpace(strings.TrimPrefix(auth, prefix))
		if subtle.ConstantTimeCompare([]byte(gotToken), []byte(s.cfg.Token)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid_api_key", "invalid authentication credentials")
			return
		}
		next(w, r)
	}
}

func (s *Server) cors(next http.HandlerFunc) http.HandlerFunc {
	allowed := make(map[string]struct{}, len(s.cfg.CORSOrigins))
	allowAll := false
	for _, origin := range s.cfg.CORSOrigins {
		o := strings.TrimSpace(origin)
		if o == "" {
			continue
		}
		if o == "*" {
			allowAll = true
			continue
		}
		allowed[o] = struct{}{}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if allowAll {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

type parseRequest struct {
	Markdown string `json:"markdown"`
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	if err := requireJSONContentType(r); err != nil {
		writeError(w, http.StatusUnsupportedMediaType, "invalid_request_error", err.Error())
		return
	}
	var req parseRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid JSON body: "+err.Error())
		return
	}
	s.writeContent(w, r, "preview", markup.BuildContent(req.Markdown, s.cfg.ParseOpts...))
}

func (s *Server) handleChunks(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	id, ok := messageID(w, r)
	if !ok {
		return
	}
	if err := requireJSONContentType(r); err != nil {
		writeError(w, http.StatusUnsupportedMediaType, "invalid_request_error", err.Error())
		return
	}
	var chunk streaming.Chunk
	if err := decodeJSONBody(r, &chunk); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid JSON body: "+err.Error())
		return
	}

	ms, err := s.sessions.GetOrCreate(id)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "server_error", err.Error())
		return
	}
	content, err := ms.Append(chunk)
	if errors.Is(err, errSessionDiscarded) {
		writeError(w, http.StatusConflict, "conflict_error", "message "+id+" was discarded before the chunk was applied")
		return
	}
	writeJSON(w, http.StatusOK, content)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodDelete) {
		return
	}
	id, ok := messageID(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodDelete {
		if !s.sessions.Delete(id) {
			writeError(w, http.StatusNotFound, "not_found_error", "unknown message "+id)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	ms, found := s.sessions.Get(id)
	if !found {
		writeError(w, http.StatusNotFound, "not_found_error", "unknown message "+id)
		return
	}
	s.writeContent(w, r, id, ms.Current())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	id, ok := messageID(w, r)
	if !ok {
		return
	}
	ms, found := s.sessions.Get(id)
	if !found {
		writeError(w, http.StatusNotFound, "not_found_error", "unknown message "+id)
		return
	}
	writeJSON(w, http.StatusOK, ms.Reset())
}

// handleStream reads newline-delimited chunk objects from the request body
// and answers with one snapshot event per chunk, then a done event.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "server_error", "streaming not supported")
		return
	}

	session := streaming.NewSession(s.cfg.ParseOpts...)
	scanner := bufio.NewScanner(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	scanner.Buffer(make([]byte, 0, 64*1024), maxBodyBytes)

	setSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	chunks := 0
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		if r.Context().Err() != nil {
			return
		}
		chunk, err := streaming.DecodeChunk([]byte(raw))
		if err != nil {
			slog.Warn("stream: bad chunk", "line", line, "error", err)
			_ = writeSSEEvent(w, "error", errorBody("invalid_request_error", fmt.Sprintf("line %d: %v", line, err)))
			flusher.Flush()
			return
		}
		chunks++
		if err := writeSSEEvent(w, "snapshot", session.Append(chunk)); err != nil {
			slog.Warn("stream: write failed", "error", err)
			return
		}
		flusher.Flush()
	}
	if err := scanner.Err(); err != nil {
		_ = writeSSEEvent(w, "error", errorBody("invalid_request_error", err.Error()))
		flusher.Flush()
		return
	}

	_ = writeSSEEvent(w, "done", map[string]any{
		"chunks":  chunks,
		"content": session.Current(),
	})
	flusher.Flush()
}

// writeContent writes content as JSON, or as an HTML preview page when the
// request asks for ?format=html.
func (s *Server) writeContent(w http.ResponseWriter, r *http.Request, title string, content markup.Content) {
	if r.URL.Query().Get("format") != "html" {
		writeJSON(w, http.StatusOK, content)
		return
	}
	page, err := RenderHTMLPage(title, content.Blocks)
	if err != nil {
		slog.Warn("preview failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(page))
}

func messageID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if !messageIDPattern.MatchString(id) {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid message id")
		return "", false
	}
	return id, true
}

func allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	writeError(w, http.StatusMethodNotAllowed, "invalid_request_error", "method not allowed")
	return false
}

// IsLoopbackHost reports whether host only accepts local connections.
func IsLoopbackHost(host string) bool {
	h := strings.TrimSpace(strings.ToLower(host))
	return h == "127.0.0.1" || h == "localhost" || h == "::1"
}
