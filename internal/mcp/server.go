package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// ServerName and ServerVersion identify the server to MCP clients.
const (
	ServerName    = "omp-impact"
	ServerVersion = "1.0.0"
)

// ImpactServer exposes impact prediction over MCP stdio.
type ImpactServer struct {
	mcp    *server.MCPServer
	logger *zap.Logger
}

// NewImpactServer creates a server with the impact_predict tool registered.
func NewImpactServer(analyzer Analyzer, logger *zap.Logger) (*ImpactServer, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
	)
	AddImpactPredictTool(mcpServer, analyzer)

	return &ImpactServer{mcp: mcpServer, logger: logger}, nil
}

// Serve runs the server on stdio until the client disconnects, a signal arrives or ctx ends.
// Shutdown by signal or cancellation is not an error.
func (s *ImpactServer) Serve(ctx context.Context) error {
	return s.serveUntilDone(ctx, func() error {
		return server.ServeStdio(s.mcp)
	})
}

func (s *ImpactServer) serveUntilDone(ctx context.Context, serve func() error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting MCP server on stdio")
		errCh <- serve()
	}()

	select {
	case <-sigCh:
		s.logger.Info("received shutdown signal, stopping")
		return nil
	case err := <-errCh:
		if err == nil || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("MCP server error: %w", err)
	case <-ctx.Done():
		s.logger.Info("context done, stopping")
		return nil
	}
}
