// Package mcp exposes the agent host as a Model Context Protocol
// server, so MCP clients can drive turns and inspect session state.
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

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/stanza"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/loop"
)

// Service is the session-facing surface the MCP server needs. The
// session.Host satisfies it.
type Service interface {
	RunTurn(ctx context.Context, sessionID, input string) (*loop.TurnResult, error)
	State(ctx context.Context, sessionID string) (map[string]*domain.StateEntry, error)
	DeleteKey(ctx context.Context, sessionID, key string) (bool, error)
	Sessions() []string
}

// Server wraps the agent host and exposes it as an MCP Server.
type Server struct {
	service   Service
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(service Service, logger *slog.Logger) *Server {
	s := &Server{
		service:   service,
		logger:    logger,
		mcpServer: server.NewMCPServer("stanza-mcp", strings.TrimSpace(stanza.Version)),
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		// Create a timeout context for the graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		fmt.Println("\nShutdown signal received, shutting down server...")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Baggage, Sentry-Trace")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: run_turn
	runTool := mcp.NewTool("run_turn",
		mcp.WithDescription("Run one agent turn: the agent emits an Action Script against the session state and either responds or continues."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithString("input", mcp.Required(), mcp.Description("User input for this turn")),
		mcp.WithOutputSchema[loop.TurnResult](),
	)
	s.mcpServer.AddTool(runTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args runTurnArgs
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to bind arguments: %v", err)), nil
		}
		errResult, result, err := s.handleRunTurn(ctx, request, args)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("tool execution failed: %v", err)), nil
		}
		if errResult != nil {
			return errResult, nil
		}
		return mcp.NewToolResultStructuredOnly(result), nil
	})

	// TOOL: inspect_state
	s.mcpServer.AddTool(mcp.NewTool("inspect_state",
		mcp.WithDescription("Get the full state store of a session."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
	), s.handleInspectState)

	// TOOL: delete_state_key
	s.mcpServer.AddTool(mcp.NewTool("delete_state_key",
		mcp.WithDescription("Remove a key from a session's state store."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session identifier")),
		mcp.WithString("key", mcp.Required(), mcp.Description("State key to remove")),
	), s.handleDeleteStateKey)

	// TOOL: list_sessions
	s.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List the sessions known to this host."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, _ := json.Marshal(s.service.Sessions())
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

type runTurnArgs struct {
	SessionID string `json:"session_id"`
	Input     string `json:"input"`
}

func (s *Server) handleRunTurn(ctx context.Context, request mcp.CallToolRequest, args runTurnArgs) (*mcp.CallToolResult, loop.TurnResult, error) {
	result, err := s.service.RunTurn(ctx, args.SessionID, args.Input)
	if err != nil && !errors.Is(err, domain.ErrTurnAborted) {
		return mcp.NewToolResultError(fmt.Sprintf("turn failed: %v", err)), loop.TurnResult{}, nil
	}
	if result == nil {
		return mcp.NewToolResultError("turn produced no result"), loop.TurnResult{}, nil
	}
	return nil, *result, nil
}

func (s *Server) handleInspectState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	state, err := s.service.State(ctx, sessionID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read state: %v", err)), nil
	}
	jsonBytes, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode state: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleDeleteStateKey(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	key, err := request.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	existed, err := s.service.DeleteKey(ctx, sessionID, key)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete key: %v", err)), nil
	}
	if !existed {
		return mcp.NewToolResultText(fmt.Sprintf("key %q was not present", key)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("key %q deleted", key)), nil
}
