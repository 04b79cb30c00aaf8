package mcpsrv

import (
	"context"
	"fmt"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/assemblyline-mcp/internal/cache"
	"github.com/usestring/assemblyline-mcp/internal/config"
	"github.com/usestring/assemblyline-mcp/internal/logging"
	"github.com/usestring/assemblyline-mcp/internal/mcp"
	"github.com/usestring/assemblyline-mcp/internal/mcp/tools"
	"github.com/usestring/assemblyline-mcp/internal/schema"
	"github.com/usestring/assemblyline-mcp/internal/submissionfetch"
	"github.com/usestring/assemblyline-mcp/pkg/client"
)

// Server is the Assemblyline MCP server.
// It wraps the internal implementation and provides extension points.
type Server struct {
	internal   *mcp.Server
	deps       *Deps
	logCleanup func() error
}

// NewServer creates a new MCP server with builtin Assemblyline tools.
//
// When c is nil the server logs in itself using the configuration, after
// logging is set up. Use functional options to configure logging, add custom
// tools, etc.
func NewServer(ctx context.Context, c *client.Client, opts ...Option) (*Server, error) {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.config == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, err
		}
		cfg.config = loaded
	}

	logCfg := logging.Config{
		Level:      cfg.config.LogLevel,
		Format:     cfg.config.LogFormat,
		FilePath:   cfg.config.LogFile,
		MaxSizeMB:  cfg.config.LogMaxSizeMB,
		MaxBackups: cfg.config.LogMaxBackups,
		MaxAgeDays: cfg.config.LogMaxAgeDays,
		Compress:   cfg.config.LogCompress,
	}
	if cfg.logLevel != "" {
		logCfg.Level = cfg.logLevel
	}
	if cfg.logFile != "" {
		logCfg.FilePath = cfg.logFile
	}
	logCleanup, err := logging.Setup(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	s, err := build(ctx, c, cfg)
	if err != nil {
		_ = logCleanup()
		return nil, err
	}
	s.logCleanup = logCleanup
	return s, nil
}

func build(ctx context.Context, c *client.Client, cfg *serverConfig) (*Server, error) {
	if c == nil {
		clientOpts := append(cfg.config.ClientOptions(), client.WithLogger(slog.Default()))
		clientOpts = append(clientOpts, cfg.clientOpts...)
		connected, err := client.New(ctx, cfg.config.Server, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("connecting to %s: %w", cfg.config.Server, err)
		}
		c = connected
	}

	submissionCache, err := cache.NewSubmissionCache(cfg.config.SubmissionCacheMaxItems)
	if err != nil {
		return nil, fmt.Errorf("failed to create submission cache: %w", err)
	}
	validator, err := schema.NewParamsValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to compile submission params schema: %w", err)
	}
	fetcher := submissionfetch.New(c, submissionCache, cfg.config.FetchWorkers)

	toolDeps := &tools.Deps{
		Client:    c,
		Config:    cfg.config,
		Cache:     submissionCache,
		Fetcher:   fetcher,
		Validator: validator,
	}
	// Same values, public type.
	deps := &Deps{
		Client:    c,
		Config:    cfg.config,
		Cache:     submissionCache,
		Fetcher:   fetcher,
		Validator: validator,
	}

	var internalOpts []mcp.ServerOption
	if !cfg.disableBuiltinTools {
		internalOpts = append(internalOpts, mcp.WithBuiltinTools())
	}
	if !cfg.disableBuiltinPrompts {
		internalOpts = append(internalOpts, mcp.WithBuiltinPrompts())
	}

	for _, fn := range cfg.toolRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(fn))
	}
	for _, fn := range cfg.promptRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(fn))
	}
	for _, fn := range cfg.resourceRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(fn))
	}
	for _, fn := range cfg.deferredToolRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(func(srv *sdkmcp.Server) {
			fn(srv, deps)
		}))
	}

	internal, err := mcp.NewServer(toolDeps, internalOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	slog.Info("connected to assemblyline",
		slog.String("server", c.BaseURL()),
		slog.String("generation", c.Generation().String()),
	)

	return &Server{internal: internal, deps: deps}, nil
}

// Run starts the MCP server with stdio transport.
// The server runs until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.internal.Run(ctx)
}

// Close cleans up server resources.
func (s *Server) Close() error {
	if s.logCleanup != nil {
		return s.logCleanup()
	}
	return nil
}

// Deps returns the dependencies for building custom tools.
func (s *Server) Deps() *Deps {
	return s.deps
}

// MCPServer returns the underlying MCP server, e.g. to connect it to a
// transport other than stdio.
func (s *Server) MCPServer() *sdkmcp.Server {
	return s.internal.MCPServer()
}
