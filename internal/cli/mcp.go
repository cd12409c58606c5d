package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mvp-joe/omp-impact/internal/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server exposing impact prediction",
	Long: `Start a Model Context Protocol (MCP) server on stdio so coding assistants can
ask which files and functions a compiler feature touches.

The server:
- Loads the model once and keeps it for the session
- Provides the impact_predict tool (prompt, prompts, verify)
- Verifies predictions against GitHub when GITHUB_TOKEN is set

Example:
  omp-impact mcp --repo llvm/llvm-project`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}

	token, err := githubToken()
	if err != nil {
		logger.Warn("verification disabled", zap.Error(err))
	}

	// Progress bars would corrupt the stdio transport.
	p, err := buildPipeline(ctx, cfg, token, nil)
	if err != nil {
		return err
	}
	defer p.Close()

	server, err := mcp.NewImpactServer(p.analyzer, logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	return server.Serve(ctx)
}
