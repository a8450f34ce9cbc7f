package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/inboxpilot/inboxpilot/internal/server"
)

const topSendersLimit = 25

// RegisterTriageResources registers the triage state resources
func RegisterTriageResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	rulesResource := mcp.NewResource(
		"triage://rules",
		"Triage Rules",
		mcp.WithResourceDescription("All triage rules, including disabled ones"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(rulesResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleRulesResource(ctx, request, sc)
	})

	scoresResource := mcp.NewResource(
		"triage://scores",
		"Sender Scores",
		mcp.WithResourceDescription("Senders with the highest accumulated scores"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(scoresResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleScoresResource(ctx, request, sc)
	})

	return nil
}

func handleRulesResource(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	list, err := sc.Store().ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	return jsonContents(request.Params.URI, list)
}

func handleScoresResource(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	senders, err := sc.Store().TopSenders(ctx, topSendersLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sender scores: %w", err)
	}
	return jsonContents(request.Params.URI, senders)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode resource: %w", err)
	}
	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
