package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/internal/presentation/graph"
	"github.com/aretw0/parley/pkg/catalog"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	GraphURI        = "parley://graph"
	GraphMermaidURI = "parley://graph.mmd"
)

// SessionResponse is the structured result of the session tools.
type SessionResponse struct {
	ConnectionID  string `json:"connection_id" jsonschema_description:"The connection the reply belongs to"`
	Text          string `json:"text,omitempty" jsonschema_description:"The bot reply"`
	Phase         string `json:"phase,omitempty" jsonschema_description:"Conversation phase after the turn (dialogue_tree or free_text)"`
	NodeID        string `json:"node_id,omitempty" jsonschema_description:"Current dialogue node"`
	Score         int    `json:"score,omitempty" jsonschema_description:"Intent match score in the free-text phase"`
	LowConfidence bool   `json:"low_confidence,omitempty" jsonschema_description:"Set when no intent matched"`
	Fallback      bool   `json:"fallback,omitempty" jsonschema_description:"Set when the scripted turn failed"`
	Closed        bool   `json:"closed,omitempty" jsonschema_description:"Set once the session has been discarded"`
}

type openArgs struct {
	ConnectionID string `json:"connection_id"`
}

type messageArgs struct {
	ConnectionID string `json:"connection_id"`
	Text         string `json:"text"`
}

type graphArgs struct {
	Format  string `json:"format"`
	Session string `json:"session"`
}

// Engine is the part of parley.Engine exposed as tools.
type Engine interface {
	OnConnect(ctx context.Context, connectionID string) (parley.Reply, error)
	OnMessage(ctx context.Context, connectionID, text string) (parley.Reply, error)
	OnDisconnect(ctx context.Context, connectionID string) error
	Session(ctx context.Context, connectionID string) (*domain.SessionState, error)
	Catalog() *catalog.Catalog
}

var _ Engine = (*parley.Engine)(nil)

// Server exposes a conversation engine as an MCP server, one session per
// connection id chosen by the client.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		engine:    engine,
		logger:    logger,
		mcpServer: server.NewMCPServer("parley-mcp", strings.TrimSpace(parley.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio serves on Stdin/Stdout until the client goes away.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening (sse)", "addr", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := sseServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("sse shutdown", "err", err)
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("open_session",
		mcp.WithDescription("Open a conversation and return the greeting. A connection id is generated when omitted."),
		mcp.WithString("connection_id", mcp.Description("Client chosen connection id (optional)")),
		mcp.WithOutputSchema[SessionResponse](),
	), mcp.NewStructuredToolHandler(s.handleOpen))

	s.mcpServer.AddTool(mcp.NewTool("send_message",
		mcp.WithDescription("Send one user message to an open conversation."),
		mcp.WithString("connection_id", mcp.Required(), mcp.Description("Connection id returned by open_session")),
		mcp.WithString("text", mcp.Required(), mcp.Description("User message")),
		mcp.WithOutputSchema[SessionResponse](),
	), mcp.NewStructuredToolHandler(s.handleMessage))

	s.mcpServer.AddTool(mcp.NewTool("close_session",
		mcp.WithDescription("Discard the state of a conversation."),
		mcp.WithString("connection_id", mcp.Required(), mcp.Description("Connection id returned by open_session")),
		mcp.WithOutputSchema[SessionResponse](),
	), mcp.NewStructuredToolHandler(s.handleClose))

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the dialogue tree for introspection."),
		mcp.WithString("format", mcp.Enum("json", "mermaid"), mcp.Description("Output format (default json)")),
		mcp.WithString("session", mcp.Description("Highlight the path of this connection (mermaid only)")),
	), s.handleGraph)
}

func (s *Server) handleOpen(ctx context.Context, _ mcp.CallToolRequest, args openArgs) (SessionResponse, error) {
	id := args.ConnectionID
	if id == "" {
		id = "mcp-" + uuid.NewString()
	}
	reply, err := s.engine.OnConnect(ctx, id)
	if err != nil {
		return SessionResponse{}, fmt.Errorf("open session: %w", err)
	}
	s.logger.Debug("mcp session opened", "conn", id)
	return toResponse(id, reply), nil
}

func (s *Server) handleMessage(ctx context.Context, _ mcp.CallToolRequest, args messageArgs) (SessionResponse, error) {
	if args.ConnectionID == "" {
		return SessionResponse{}, errors.New("connection_id is required")
	}
	reply, err := s.engine.OnMessage(ctx, args.ConnectionID, args.Text)
	if err != nil {
		s.logger.Warn("mcp message rejected", "conn", args.ConnectionID, "err", err)
		return SessionResponse{}, fmt.Errorf("send message: %w", err)
	}
	return toResponse(args.ConnectionID, reply), nil
}

func (s *Server) handleClose(ctx context.Context, _ mcp.CallToolRequest, args openArgs) (SessionResponse, error) {
	if args.ConnectionID == "" {
		return SessionResponse{}, errors.New("connection_id is required")
	}
	if err := s.engine.OnDisconnect(ctx, args.ConnectionID); err != nil {
		return SessionResponse{}, fmt.Errorf("close session: %w", err)
	}
	return SessionResponse{ConnectionID: args.ConnectionID, Closed: true}, nil
}

func (s *Server) handleGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args graphArgs
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}

	switch args.Format {
	case "", "json":
		text, err := s.graphJSON()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(text), nil
	case "mermaid":
		text, err := s.graphMermaid(ctx, args.Session)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(text), nil
	}
	return mcp.NewToolResultError(fmt.Sprintf("unknown format '%s'", args.Format)), nil
}

func (s *Server) graphJSON() (string, error) {
	c := s.engine.Catalog()
	if c == nil {
		return "", domain.ErrUnavailable
	}
	data, err := json.Marshal(c.Nodes())
	if err != nil {
		return "", fmt.Errorf("encode graph: %w", err)
	}
	return string(data), nil
}

func (s *Server) graphMermaid(ctx context.Context, session string) (string, error) {
	c := s.engine.Catalog()
	if c == nil {
		return "", domain.ErrUnavailable
	}
	var overlay *graph.GraphOverlay
	if session != "" {
		state, err := s.engine.Session(ctx, session)
		if err != nil {
			return "", fmt.Errorf("session '%s': %w", session, err)
		}
		overlay = graph.OverlayFromSession(state)
	}
	return graph.GenerateMermaid(c.Nodes(), c.EntryNodeID(), overlay), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Dialogue tree",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		text, err := s.graphJSON()
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: GraphURI, MIMEType: "application/json", Text: text},
		}, nil
	})

	s.mcpServer.AddResource(mcp.NewResource(GraphMermaidURI, "Dialogue tree (Mermaid)",
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		text, err := s.graphMermaid(ctx, "")
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: GraphMermaidURI, MIMEType: "text/plain", Text: text},
		}, nil
	})
}

func toResponse(id string, r parley.Reply) SessionResponse {
	return SessionResponse{
		ConnectionID:  id,
		Text:          r.Text,
		Phase:         string(r.Phase),
		NodeID:        r.NodeID,
		Score:         r.Score,
		LowConfidence: r.LowConfidence,
		Fallback:      r.Fallback,
	}
}
