// handlers_output.go contains handlers for the telemetry tools: debug
// output buffers and runtime error records.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerOutputTools registers the telemetry buffer tools.
func (s *Server) registerOutputTools() {
	// get_debug_output
	s.mcpServer.AddTool(mcp.NewTool("get_debug_output",
		mcp.WithDescription("Get recent debug output messages (print, warning, error), newest last"),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of messages to return (default all buffered)"),
		),
	), s.handleGetDebugOutput)

	// get_runtime_errors
	s.mcpServer.AddTool(mcp.NewTool("get_runtime_errors",
		mcp.WithDescription("Get recent runtime errors with script, line and function where available"),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of errors to return (default all buffered)"),
		),
	), s.handleGetRuntimeErrors)

	// clear_debug_output
	s.mcpServer.AddTool(mcp.NewTool("clear_debug_output",
		mcp.WithDescription("Clear the debug output buffer"),
	), s.handleClearDebugOutput)

	// clear_runtime_errors
	s.mcpServer.AddTool(mcp.NewTool("clear_runtime_errors",
		mcp.WithDescription("Clear the runtime error buffer"),
	), s.handleClearRuntimeErrors)
}

func (s *Server) handleGetDebugOutput(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := getInt(request.Params.Arguments, "limit", 0)
	messages := s.telemetry.Messages(limit)
	return newToolResultJSON(map[string]any{
		"count":    len(messages),
		"messages": messages,
	}), nil
}

func (s *Server) handleGetRuntimeErrors(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := getInt(request.Params.Arguments, "limit", 0)
	errs := s.telemetry.Errors(limit)
	return newToolResultJSON(map[string]any{
		"count":  len(errs),
		"errors": errs,
	}), nil
}

func (s *Server) handleClearDebugOutput(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.telemetry.ClearMessages()
	return mcp.NewToolResultText("Debug output cleared"), nil
}

func (s *Server) handleClearRuntimeErrors(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.telemetry.ClearErrors()
	return mcp.NewToolResultText("Runtime errors cleared"), nil
}
