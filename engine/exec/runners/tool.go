package runners

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/orbitflow/orbitflow/engine/exec"
	"github.com/orbitflow/orbitflow/engine/workflow"
)

// ToolFunc is an in-process tool implementation: a named function the TOOL
// runner can call directly, without going through MCP (§4.7).
type ToolFunc func(ctx context.Context, args map[string]any) (map[string]any, error)

// ToolDeps supplies the TOOL runner's two dispatch paths: direct
// in-process functions, and MCP clients for tools backed by an MCP server
// (one client per node's configurations.mcp_server id).
type ToolDeps struct {
	Functions  map[string]ToolFunc
	MCPClients map[string]*client.Client
}

// Tool builds the TOOL node runner (§4.7): it calls a named tool with
// arguments drawn from the node's inputs and returns the tool's result.
// Tools registered as MCP servers dispatch through mark3labs/mcp-go;
// everything else dispatches through the in-process function registry.
func Tool(deps ToolDeps) exec.Runner {
	return exec.RunnerFunc(func(ctx context.Context, node workflow.Node, inputs map[string]any, _ exec.RunContext) (exec.RunnerOutput, error) {
		toolName, _ := node.Configurations["tool_name"].(string)
		if toolName == "" {
			toolName = node.Name
		}
		args, _ := inputs["main"].(map[string]any)
		if args == nil {
			args = map[string]any{}
		}

		if serverID, ok := node.Configurations["mcp_server"].(string); ok && serverID != "" {
			result, err := callMCPTool(ctx, deps.MCPClients, serverID, toolName, args)
			if err != nil {
				return exec.RunnerOutput{}, err
			}
			return exec.RunnerOutput{Outputs: exec.WrapMain(result)}, nil
		}

		fn, ok := deps.Functions[toolName]
		if !ok {
			return exec.RunnerOutput{}, &exec.ValidationError{Msg: fmt.Sprintf("tool %q: no function or MCP server registered", toolName)}
		}
		result, err := fn(ctx, args)
		if err != nil {
			return exec.RunnerOutput{}, fmt.Errorf("tool %q: %w", toolName, err)
		}
		return exec.RunnerOutput{Outputs: exec.WrapMain(result)}, nil
	})
}

func callMCPTool(ctx context.Context, clients map[string]*client.Client, serverID, toolName string, args map[string]any) (map[string]any, error) {
	c, ok := clients[serverID]
	if !ok {
		return nil, &exec.ValidationError{Msg: fmt.Sprintf("tool %q: no MCP client registered for server %q", toolName, serverID)}
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args

	res, err := c.CallTool(ctx, req)
	if err != nil {
		return nil, &exec.TemporaryError{Msg: fmt.Sprintf("tool %q: mcp call", toolName), Err: err}
	}
	if res.IsError {
		return nil, fmt.Errorf("tool %q: mcp server reported an error", toolName)
	}

	out := make(map[string]any, len(res.Content))
	for i, item := range res.Content {
		if text, ok := mcp.AsTextContent(item); ok {
			out[fmt.Sprintf("content_%d", i)] = text.Text
		}
	}
	return out, nil
}
