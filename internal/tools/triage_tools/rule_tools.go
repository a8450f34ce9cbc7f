package triage_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/inboxpilot/inboxpilot/internal/rules"
	"github.com/inboxpilot/inboxpilot/internal/server"
	"github.com/inboxpilot/inboxpilot/internal/storage"
	"github.com/inboxpilot/inboxpilot/internal/tools/common"
)

// RegisterRuleTools registers the rule management tools with the MCP server
func RegisterRuleTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listRulesTool := mcp.NewTool("rules_list",
		mcp.WithDescription("List all triage rules, including disabled ones"),
		mcp.WithBoolean("enabledOnly",
			mcp.Description("Only return enabled rules (default: false)"),
		),
	)
	s.AddTool(listRulesTool, common.InstrumentedToolHandler("rules_list", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListRules(ctx, request, sc)
		}))

	getRuleTool := mcp.NewTool("rules_get",
		mcp.WithDescription("Get a single triage rule by its id"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Rule id"),
		),
	)
	s.AddTool(getRuleTool, common.InstrumentedToolHandler("rules_get", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetRule(ctx, request, sc)
		}))

	saveRuleTool := mcp.NewTool("rules_save",
		mcp.WithDescription("Create or update a triage rule. The rule is given as a JSON object with name, conditions, actions and logicOperator fields; include the id to update an existing rule"),
		mcp.WithString("rule",
			mcp.Required(),
			mcp.Description("Rule definition as a JSON object"),
		),
	)
	s.AddTool(saveRuleTool, common.InstrumentedToolHandler("rules_save", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSaveRule(ctx, request, sc)
		}))

	enableRuleTool := mcp.NewTool("rules_enable",
		mcp.WithDescription("Enable a triage rule so the next pass evaluates it"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Rule id"),
		),
	)
	s.AddTool(enableRuleTool, common.InstrumentedToolHandler("rules_enable", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSetRuleEnabled(ctx, request, sc, true)
		}))

	disableRuleTool := mcp.NewTool("rules_disable",
		mcp.WithDescription("Disable a triage rule without deleting it"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Rule id"),
		),
	)
	s.AddTool(disableRuleTool, common.InstrumentedToolHandler("rules_disable", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSetRuleEnabled(ctx, request, sc, false)
		}))

	deleteRuleTool := mcp.NewTool("rules_delete",
		mcp.WithDescription("Delete a triage rule permanently"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Rule id"),
		),
	)
	s.AddTool(deleteRuleTool, common.InstrumentedToolHandler("rules_delete", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleDeleteRule(ctx, request, sc)
		}))

	return nil
}

func handleListRules(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	enabledOnly := false
	if v, ok := args["enabledOnly"].(bool); ok {
		enabledOnly = v
	}

	var (
		list []rules.Rule
		err  error
	)
	if enabledOnly {
		list, err = sc.Store().ListEnabled(ctx)
	} else {
		list, err = sc.Store().ListRules(ctx)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list rules: %v", err)), nil
	}

	if len(list) == 0 {
		return mcp.NewToolResultText("No rules defined."), nil
	}
	return jsonResult(list)
}

func handleGetRule(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	id, ok := request.GetArguments()["id"].(string)
	if !ok || id == "" {
		return mcp.NewToolResultError("'id' field is required"), nil
	}

	rule, err := sc.Store().GetRule(ctx, id)
	if errors.Is(err, storage.ErrRuleNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("No rule with id %q", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get rule: %v", err)), nil
	}
	return jsonResult(rule)
}

func handleSaveRule(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	raw, ok := request.GetArguments()["rule"].(string)
	if !ok || raw == "" {
		return mcp.NewToolResultError("'rule' field is required"), nil
	}

	var rule rules.Rule
	if err := json.Unmarshal([]byte(raw), &rule); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid rule JSON: %v", err)), nil
	}
	if rule.Name == "" {
		return mcp.NewToolResultError("Rule must have a name"), nil
	}

	if err := sc.Store().SaveRule(ctx, &rule); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to save rule: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Saved rule %q with id %s", rule.Name, rule.ID)), nil
}

func handleSetRuleEnabled(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext, enabled bool) (*mcp.CallToolResult, error) {
	id, ok := request.GetArguments()["id"].(string)
	if !ok || id == "" {
		return mcp.NewToolResultError("'id' field is required"), nil
	}

	err := sc.Store().SetRuleEnabled(ctx, id, enabled)
	if errors.Is(err, storage.ErrRuleNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("No rule with id %q", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to update rule: %v", err)), nil
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	return mcp.NewToolResultText(fmt.Sprintf("Rule %s is now %s", id, state)), nil
}

func handleDeleteRule(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	id, ok := request.GetArguments()["id"].(string)
	if !ok || id == "" {
		return mcp.NewToolResultError("'id' field is required"), nil
	}

	err := sc.Store().DeleteRule(ctx, id)
	if errors.Is(err, storage.ErrRuleNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("No rule with id %q", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to delete rule: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted rule %s", id)), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
