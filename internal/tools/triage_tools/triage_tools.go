package triage_tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/inboxpilot/inboxpilot/internal/server"
	"github.com/inboxpilot/inboxpilot/internal/tools/common"
)

const defaultDebugEntries = 20

// RegisterTriageTools registers the triage pass and diagnostics tools with
// the MCP server
func RegisterTriageTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	runTool := mcp.NewTool("triage_run",
		mcp.WithDescription("Run one triage pass over the unread inbox, evaluating every enabled rule against each message"),
	)
	s.AddTool(runTool, common.InstrumentedToolHandler("triage_run", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleTriageRun(ctx, request, sc)
		}))

	debugLogTool := mcp.NewTool("triage_debug_log",
		mcp.WithDescription("Show the most recent rule evaluation debug entries, newest first"),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum number of entries to return (default: %d)", defaultDebugEntries)),
		),
	)
	s.AddTool(debugLogTool, common.InstrumentedToolHandler("triage_debug_log", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDebugLog(ctx, request, sc)
		}))

	debugClearTool := mcp.NewTool("triage_debug_clear",
		mcp.WithDescription("Clear the rule evaluation debug log"),
	)
	s.AddTool(debugClearTool, common.InstrumentedToolHandler("triage_debug_clear", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDebugClear(ctx, request, sc)
		}))

	topSendersTool := mcp.NewTool("triage_top_senders",
		mcp.WithDescription("List the senders with the highest accumulated scores"),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of senders to return (default: 10)"),
		),
	)
	s.AddTool(topSendersTool, common.InstrumentedToolHandler("triage_top_senders", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleTopSenders(ctx, request, sc)
		}))

	return nil
}

func handleTriageRun(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	runner, err := sc.Runner()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Triage unavailable: %v", err)), nil
	}

	report, err := runner.Run(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Triage pass failed: %v", err)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Triage pass finished in %s.\n", report.Duration.Round(time.Millisecond))
	fmt.Fprintf(&sb, "Processed: %d, matched: %d, unmatched: %d, deferred: %d, failed: %d\n",
		report.Processed, report.Matched, report.Unmatched, report.Deferred, report.Failed)

	for emailID, results := range report.Results {
		var fired []string
		for _, r := range results {
			if r.Matched {
				fired = append(fired, r.RuleName)
			}
		}
		if len(fired) > 0 {
			fmt.Fprintf(&sb, "  %s: %s\n", emailID, strings.Join(fired, ", "))
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func handleDebugLog(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	limit := defaultDebugEntries
	if v, ok := request.GetArguments()["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}

	entries, err := sc.Store().RecentDebugEntries(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read debug log: %v", err)), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("Debug log is empty. Enable debug mode in the triage configuration to record rule evaluations."), nil
	}
	return jsonResult(entries)
}

func handleDebugClear(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	if err := sc.Store().ClearDebugLog(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to clear debug log: %v", err)), nil
	}
	return mcp.NewToolResultText("Debug log cleared."), nil
}

func handleTopSenders(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	limit := 10
	if v, ok := request.GetArguments()["limit"].(float64); ok && v > 0 {
		limit = int(v)
	}

	senders, err := sc.Store().TopSenders(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list senders: %v", err)), nil
	}
	if len(senders) == 0 {
		return mcp.NewToolResultText("No sender scores recorded yet."), nil
	}

	var sb strings.Builder
	sb.WriteString("Top senders by score:\n")
	for i, s := range senders {
		name := s.Name
		if name == "" {
			name = s.Email
		}
		fmt.Fprintf(&sb, "%d. %s <%s>: %.1f\n", i+1, name, s.Email, s.Score)
	}
	return mcp.NewToolResultText(sb.String()), nil
}
