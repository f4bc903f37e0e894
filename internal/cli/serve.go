package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/stanza/internal/logging"
	httpadapter "github.com/aretw0/stanza/pkg/adapters/http"
	mcpadapter "github.com/aretw0/stanza/pkg/adapters/mcp"
)

// RunServe starts the REST server on the given port.
func RunServe(opts Options, port int) error {
	logger := logging.New(serveLevel(opts))
	host, _, err := BuildHost(opts, logger)
	if err != nil {
		return err
	}

	handler := httpadapter.NewHandler(host, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler,
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "address", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		printSystemMessage("Shutdown signal received, shutting down server...")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

// RunMCP starts the MCP server, on stdio by default or SSE when a port
// is given.
func RunMCP(opts Options, ssePort int) error {
	// Stdio transport owns stdout, so logs must stay on stderr.
	logger := logging.New(serveLevel(opts))
	host, _, err := BuildHost(opts, logger)
	if err != nil {
		return err
	}

	server := mcpadapter.NewServer(host, logger)
	if ssePort > 0 {
		sigCtx := NewSignalContext(context.Background())
		defer sigCtx.Cancel()
		return server.ServeSSE(sigCtx, ssePort)
	}
	return server.ServeStdio()
}

func serveLevel(opts Options) slog.Level {
	if opts.Debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
