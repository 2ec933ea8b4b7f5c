package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// RegisterTools adds every descriptor of reg to s. Calls are routed through
// caller, so a degraded server still lists its full capability set.
func RegisterTools(s *mcpserver.MCPServer, caller Caller, reg *Registry) {
	for _, d := range reg.Descriptors() {
		name := string(d.Name)
		s.AddTool(NewMCPTool(d), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return toCallToolResult(caller.Call(ctx, name, request.GetArguments())), nil
		})
	}
}

// NewMCPTool converts a descriptor to its MCP schema.
func NewMCPTool(d Descriptor) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(d.Description),
		mcp.WithReadOnlyHintAnnotation(!d.Mutating()),
		mcp.WithDestructiveHintAnnotation(d.Mutating()),
	}

	for _, arg := range d.Args {
		propOpts := []mcp.PropertyOption{mcp.Description(arg.Description)}
		if arg.Required {
			propOpts = append(propOpts, mcp.Required())
		}

		switch arg.Type {
		case TypeInteger:
			opts = append(opts, mcp.WithNumber(arg.Name, propOpts...))
		case TypeBoolean:
			opts = append(opts, mcp.WithBoolean(arg.Name, propOpts...))
		default:
			opts = append(opts, mcp.WithString(arg.Name, propOpts...))
		}
	}

	return mcp.NewTool(string(d.Name), opts...)
}

func toCallToolResult(r Result) *mcp.CallToolResult {
	if r.IsError() {
		return mcp.NewToolResultError(r.Text())
	}
	return mcp.NewToolResultText(r.Text())
}
