package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/usestring/assemblyline-mcp/pkg/mcpsrv"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Configuration comes from AL_CONFIG_FILE and the environment:
	// - AL_SERVER: Assemblyline URL (required)
	// - AL_USER with AL_APIKEY or AL_PASSWORD
	// - LOG_LEVEL, LOG_FORMAT, LOG_FILE
	// - etc. (see internal/config for all options)
	// The server logs in before serving.
	server, err := mcpsrv.NewServer(ctx, nil)
	if err != nil {
		slog.Error("failed to create MCP server", "error", err)
		os.Exit(1)
	}
	defer server.Close()

	slog.Info("starting assemblyline MCP server on stdio")
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
