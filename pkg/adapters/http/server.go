// Package http serves the chat engine over WebSocket, plus a few read-only
// routes for health, graph inspection and metrics.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/internal/presentation/graph"
	"github.com/aretw0/parley/internal/presentation/markup"
	"github.com/aretw0/parley/pkg/catalog"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Engine is the part of parley.Engine the transport drives.
type Engine interface {
	OnConnect(ctx context.Context, connectionID string) (parley.Reply, error)
	OnMessage(ctx context.Context, connectionID, text string) (parley.Reply, error)
	OnDisconnect(ctx context.Context, connectionID string) error
	Session(ctx context.Context, connectionID string) (*domain.SessionState, error)
	Catalog() *catalog.Catalog
	Degraded() bool
}

var _ Engine = (*parley.Engine)(nil)

// DefaultAllowedOrigins are the browser origins accepted when none are configured.
var DefaultAllowedOrigins = []string{"http://localhost:3000", "http://another-frontend-url.com"}

// Server holds the routes and the live WebSocket connections.
type Server struct {
	Engine Engine

	allowedOrigins []string
	publicDir      string
	metrics        http.Handler
	logger         *slog.Logger
	markup         *markup.Renderer

	// ctx is canceled by Close to hang up every open socket.
	ctx    context.Context
	cancel context.CancelFunc
}

// Option configures the Server.
type Option func(*Server)

// WithAllowedOrigins restricts cross-origin requests and WebSocket upgrades to origins.
// A single "*" allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithPublicDir serves static files from dir at "/".
func WithPublicDir(dir string) Option {
	return func(s *Server) {
		s.publicDir = dir
	}
}

// WithMetrics mounts a metrics handler at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets the logger for connection events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a server for the engine.
func NewServer(engine Engine, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		Engine:         engine,
		allowedOrigins: DefaultAllowedOrigins,
		logger:         logging.NewNop(),
		markup:         markup.New(),
		ctx:            ctx,
		cancel:         cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	return NewServer(engine, opts...).Handler()
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Get("/ws", s.HandleWebSocket)
	r.Get("/health", s.GetHealth)
	r.Get("/graph", s.GetGraph)
	r.Get("/graph.mmd", s.GetGraphMermaid)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	if s.publicDir != "" {
		if info, err := os.Stat(s.publicDir); err == nil && info.IsDir() {
			r.Handle("/*", http.FileServer(http.Dir(s.publicDir)))
		} else {
			s.logger.Warn("public directory not found, static files disabled", "dir", s.publicDir)
		}
	}
	return r
}

// Close hangs up every open WebSocket. http.Server.Shutdown does not track
// hijacked connections, so call this alongside it.
func (s *Server) Close() {
	s.cancel()
}

func (s *Server) originAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	return slices.Contains(s.allowedOrigins, "*") || slices.Contains(s.allowedOrigins, origin)
}

// cors applies the origin allow-list to GET and POST requests and answers preflights.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			if origin != "" && !s.originAllowed(origin) {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Degraded bool   `json:"degraded"`
	Version  string `json:"version"`
}

// GetHealth handles the GET /health request.
// It answers 503 while no catalog is loaded.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Degraded: s.Engine.Degraded(), Version: strings.TrimSpace(parley.Version)}
	status := http.StatusOK
	if s.Engine.Catalog() == nil {
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp, s.logger)
}

// GetGraph handles the GET /graph request.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	c := s.Engine.Catalog()
	if c == nil {
		http.Error(w, domain.ErrUnavailable.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, c.Nodes(), s.logger)
}

// GetGraphMermaid handles the GET /graph.mmd request.
// With ?session=<connection id> the path of that live session is highlighted.
func (s *Server) GetGraphMermaid(w http.ResponseWriter, r *http.Request) {
	c := s.Engine.Catalog()
	if c == nil {
		http.Error(w, domain.ErrUnavailable.Error(), http.StatusServiceUnavailable)
		return
	}

	var overlay *graph.GraphOverlay
	if id := r.URL.Query().Get("session"); id != "" {
		state, err := s.Engine.Session(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		overlay = graph.OverlayFromSession(state)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(graph.GenerateMermaid(c.Nodes(), c.EntryNodeID(), overlay)))
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "err", err)
	}
}
