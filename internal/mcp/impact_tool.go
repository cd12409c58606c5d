package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/omp-impact/internal/impact"
	mcputils "github.com/mvp-joe/omp-impact/internal/mcp-utils"
	"github.com/mvp-joe/omp-impact/internal/predict"
	"github.com/mvp-joe/omp-impact/internal/report"
)

// ToolName is the MCP name of the prediction tool.
const ToolName = "impact_predict"

// maxPrompts bounds the prompts accepted in one call.
const maxPrompts = 20

// Analyzer is the part of impact.Analyzer the tool needs.
type Analyzer interface {
	Analyze(ctx context.Context, prompt string, verify bool) (*report.Report, error)
	CanVerify() bool
}

// ImpactRequest holds the tool arguments.
type ImpactRequest struct {
	Prompt  string   `json:"prompt"`
	Prompts []string `json:"prompts,omitempty"`
	Verify  *bool    `json:"verify,omitempty"`
}

// ImpactResponse is returned as JSON text content.
type ImpactResponse struct {
	Reports []*report.Report `json:"reports"`
}

// AddImpactPredictTool registers the impact_predict tool with an MCP server.
func AddImpactPredictTool(s *server.MCPServer, analyzer Analyzer) {
	tool := mcp.NewTool(
		ToolName,
		mcp.WithDescription("Predict which source files and functions a compiler feature touches (e.g. 'taskwait codegen'), then confirm the predicted symbols exist by downloading and parsing the files."),
		mcp.WithString("prompt",
			mcp.Description("Feature prompt, e.g. 'taskwait codegen' or 'atomic sema'")),
		mcp.WithArray("prompts",
			mcp.Description("Several prompts to analyze in one call (used instead of prompt)")),
		mcp.WithBoolean("verify",
			mcp.Description("Download and parse predicted files to confirm symbols (default: true)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createImpactPredictHandler(analyzer))
}

// createImpactPredictHandler creates the handler function for the impact_predict tool.
func createImpactPredictHandler(analyzer Analyzer) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if _, ok := request.GetRawArguments().(map[string]interface{}); !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}

		var req ImpactRequest
		if err := mcputils.CoerceBindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		prompts := collectPrompts(req)
		if len(prompts) == 0 {
			return mcp.NewToolResultError("prompt parameter is required"), nil
		}
		if len(prompts) > maxPrompts {
			return mcp.NewToolResultError(fmt.Sprintf("too many prompts: %d (max %d)", len(prompts), maxPrompts)), nil
		}

		verify := analyzer.CanVerify()
		if req.Verify != nil {
			if *req.Verify && !verify {
				return mcp.NewToolResultError(impact.ErrVerificationUnavailable.Error()), nil
			}
			verify = *req.Verify
		}

		resp := ImpactResponse{Reports: make([]*report.Report, 0, len(prompts))}
		for _, prompt := range prompts {
			r, err := analyzer.Analyze(ctx, prompt, verify)
			if err != nil {
				if isUserError(err) {
					return mcp.NewToolResultError(err.Error()), nil
				}
				return nil, err
			}
			resp.Reports = append(resp.Reports, r)
		}

		return marshalToolResponse(resp)
	}
}

func collectPrompts(req ImpactRequest) []string {
	var prompts []string
	for _, p := range append([]string{req.Prompt}, req.Prompts...) {
		if p = strings.TrimSpace(p); p != "" {
			prompts = append(prompts, p)
		}
	}
	return prompts
}

// isUserError determines if an error should be shown to the LLM rather than treated as an
// internal failure.
func isUserError(err error) bool {
	return errors.Is(err, predict.ErrEmptyPrompt) ||
		errors.Is(err, impact.ErrVerificationUnavailable)
}
