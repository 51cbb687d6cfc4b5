// Package server exposes the agent over HTTP: a websocket event stream,
// a chat endpoint that starts turns, the tool catalog, and the usual
// health and metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sveahq/bolagsagent/internal/agent"
	"github.com/sveahq/bolagsagent/internal/observability"
	"github.com/sveahq/bolagsagent/internal/sessions"
)

// Options wires the server's collaborators.
type Options struct {
	Host     string
	Port     int
	Loop     *agent.Loop
	Sessions *sessions.Registry
	Logger   *observability.Logger
	Metrics  *observability.Metrics
}

// Server serves the HTTP API.
type Server struct {
	opts       Options
	httpServer *http.Server
	listener   net.Listener
}

// New creates a server. Loop and Sessions are required.
func New(opts Options) (*Server, error) {
	if opts.Loop == nil {
		return nil, errors.New("server: loop is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("server: session registry is required")
	}
	return &Server{opts: opts}, nil
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/v1/stream", s.handleStream)
	mux.HandleFunc("/v1/chat", s.handleChat)
	mux.HandleFunc("/v1/tools", s.handleTools)
	return s.withRequestMetrics(mux)
}

// Start begins listening. It returns after the listener is bound; the
// serve loop runs in a goroutine until Shutdown.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)

	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}

	s.httpServer = server
	s.listener = listener

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if s.opts.Logger != nil {
				s.opts.Logger.Error(ctx, "http server error", "error", err)
			}
		}
	}()

	if s.opts.Logger != nil {
		s.opts.Logger.Info(ctx, "http server listening", "addr", listener.Addr().String())
	}
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops the server, waiting for in-flight requests up to the
// context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// toolEntry is one row of the catalog advertisement.
type toolEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tools := s.opts.Loop.Registry().List()
	entries := make([]toolEntry, 0, len(tools))
	for _, tool := range tools {
		entries = append(entries, toolEntry{Name: tool.Name(), Description: tool.Description()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": entries})
}

// chatRequest starts one turn on an existing stream session.
type chatRequest struct {
	SessionID string        `json:"session_id"`
	UserID    string        `json:"user_id,omitempty"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages must not be empty")
		return
	}
	messages := make([]agent.CompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := strings.TrimSpace(m.Role)
		if role != "user" && role != "assistant" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported role %q", m.Role))
			return
		}
		if strings.TrimSpace(m.Content) == "" {
			writeError(w, http.StatusBadRequest, "message content must not be empty")
			return
		}
		messages = append(messages, agent.CompletionMessage{Role: role, Content: m.Content})
	}

	if !s.opts.Sessions.Exists(req.SessionID) {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	// The turn outlives this request, so it gets its own context.
	ctx := context.Background()
	if req.UserID != "" {
		ctx = agent.WithUserID(ctx, req.UserID)
	}

	events, err := s.opts.Loop.Run(ctx, messages)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	go s.forwardEvents(req.SessionID, events)

	writeJSON(w, http.StatusAccepted, map[string]any{"status": "accepted"})
}

// forwardEvents pipes one turn's events into the session stream. It
// stops when the turn ends or the session disappears; draining the
// channel on early exit lets the loop goroutine finish.
func (s *Server) forwardEvents(sessionID string, events <-chan agent.Event) {
	for ev := range events {
		if !s.opts.Sessions.Send(sessionID, ev) {
			if s.opts.Logger != nil {
				s.opts.Logger.Warn(context.Background(), "session gone mid-turn, discarding events",
					"session_id", sessionID)
			}
			for range events {
			}
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusRecorder captures the response code for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) withRequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Hijacked connections (websocket upgrades) cannot go through
		// the recorder wrapper.
		if r.URL.Path == "/v1/stream" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if s.opts.Metrics != nil {
			s.opts.Metrics.RecordHTTPRequest(r.Method, r.URL.Path,
				fmt.Sprintf("%d", rec.status), time.Since(start).Seconds())
		}
	})
}
