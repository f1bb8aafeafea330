// handlers_debugger.go contains handlers for the debug session tools
// (breakpoints, call stack, variables, execution control).
package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/TidalStudio/godot-mcp/pkg/debugger"
)

// registerDebuggerTools registers the debug session tools.
func (s *Server) registerDebuggerTools() {
	// debug_connect
	s.mcpServer.AddTool(mcp.NewTool("debug_connect",
		mcp.WithDescription("Connect to the Godot debug adapter. Start the game with debugging enabled first."),
		mcp.WithString("host",
			mcp.Description("Debug adapter host (default from server config)"),
		),
		mcp.WithNumber("port",
			mcp.Description("Debug adapter port (default 6006)"),
		),
	), s.handleDebugConnect)

	// debug_disconnect
	s.mcpServer.AddTool(mcp.NewTool("debug_disconnect",
		mcp.WithDescription("Disconnect from the Godot debug adapter. Breakpoints are kept for the next session."),
	), s.handleDebugDisconnect)

	// debug_set_breakpoints
	s.mcpServer.AddTool(mcp.NewTool("debug_set_breakpoints",
		mcp.WithDescription("Replace all breakpoints in one script. An empty line list clears the script's breakpoints."),
		mcp.WithString("source",
			mcp.Required(),
			mcp.Description("Script path, e.g. res://player.gd"),
		),
		mcp.WithString("lines",
			mcp.Description("Comma-separated 1-based line numbers, e.g. \"10,25\". Omit to clear."),
		),
	), s.handleDebugSetBreakpoints)

	// debug_get_breakpoints
	s.mcpServer.AddTool(mcp.NewTool("debug_get_breakpoints",
		mcp.WithDescription("List all registered breakpoints across scripts"),
	), s.handleDebugGetBreakpoints)

	// debug_get_call_stack
	s.mcpServer.AddTool(mcp.NewTool("debug_get_call_stack",
		mcp.WithDescription("Get the call stack of the paused game. Returns paused:false when the game is running."),
		mcp.WithNumber("thread_id",
			mcp.Description("Thread to inspect (default: the thread that stopped)"),
		),
	), s.handleDebugGetCallStack)

	// debug_get_local_variables
	s.mcpServer.AddTool(mcp.NewTool("debug_get_local_variables",
		mcp.WithDescription("Inspect variables in scope at the paused location, with nested children expanded"),
		mcp.WithNumber("frame",
			mcp.Description("Stack frame index, 0 = innermost (default 0)"),
		),
		mcp.WithNumber("max_depth",
			mcp.Description("Expansion depth for nested values (default 2)"),
		),
	), s.handleDebugGetLocalVariables)

	// Execution control
	s.mcpServer.AddTool(mcp.NewTool("debug_continue",
		mcp.WithDescription("Resume execution of the paused game"),
	), s.controlHandler("continue", s.debugger.Continue))

	s.mcpServer.AddTool(mcp.NewTool("debug_next",
		mcp.WithDescription("Step over: run to the next line in the current function"),
	), s.controlHandler("next", s.debugger.Next))

	s.mcpServer.AddTool(mcp.NewTool("debug_step_in",
		mcp.WithDescription("Step into the function call at the current line"),
	), s.controlHandler("stepIn", s.debugger.StepIn))

	s.mcpServer.AddTool(mcp.NewTool("debug_step_out",
		mcp.WithDescription("Step out of the current function"),
	), s.controlHandler("stepOut", s.debugger.StepOut))

	s.mcpServer.AddTool(mcp.NewTool("debug_pause",
		mcp.WithDescription("Pause the running game at the next opportunity"),
	), s.controlHandler("pause", s.debugger.Pause))
}

func (s *Server) handleDebugConnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	host := getStr(request.Params.Arguments, "host")
	if host == "" {
		host = s.config.DAPHost
	}
	port := getInt(request.Params.Arguments, "port", s.config.DAPPort)

	if err := s.debugger.Connect(ctx, host, port); err != nil {
		return newToolResultError(fmt.Sprintf("Connect to %s:%d failed: %v. Is the game running with debugging enabled?", host, port, err)), nil
	}

	return newToolResultJSON(map[string]any{
		"connected": true,
		"host":      host,
		"port":      port,
		"state":     string(s.debugger.State()),
	}), nil
}

func (s *Server) handleDebugDisconnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.debugger.Close(); err != nil {
		return wrapErr("Disconnect", err), nil
	}
	return mcp.NewToolResultText("Disconnected from debug adapter"), nil
}

func (s *Server) handleDebugSetBreakpoints(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, errResult := requireStr(request.Params.Arguments, "source")
	if errResult != nil {
		return errResult, nil
	}

	lines, err := parseLines(getStr(request.Params.Arguments, "lines"))
	if err != nil {
		return newToolResultError(err.Error()), nil
	}

	bps, err := s.debugger.SetBreakpoints(ctx, source, lines)
	if err != nil {
		return wrapErr("SetBreakpoints", err), nil
	}

	return newToolResultJSON(map[string]any{
		"source":      source,
		"breakpoints": bps,
	}), nil
}

func (s *Server) handleDebugGetBreakpoints(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return newToolResultJSON(map[string]any{
		"breakpoints": s.debugger.Breakpoints(),
	}), nil
}

func (s *Server) handleDebugGetCallStack(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stack, err := s.debugger.CallStack(ctx, getInt(request.Params.Arguments, "thread_id", 0))
	if err != nil {
		return wrapErr("GetCallStack", err), nil
	}
	return newToolResultJSON(stack), nil
}

func (s *Server) handleDebugGetLocalVariables(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	frame := getInt(request.Params.Arguments, "frame", 0)
	maxDepth := getInt(request.Params.Arguments, "max_depth", debugger.DefaultMaxDepth)

	vars, err := s.debugger.LocalVariables(ctx, frame, maxDepth)
	if err != nil {
		return wrapErr("GetLocalVariables", err), nil
	}
	return newToolResultJSON(vars), nil
}

// controlHandler wraps one execution-control method. All five share the
// same shape: act on the current thread, report the resulting state.
func (s *Server) controlHandler(name string, fn func(ctx context.Context, threadID int) error) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := fn(ctx, 0); err != nil {
			return wrapErr(name, err), nil
		}
		return newToolResultJSON(map[string]any{
			"action": name,
			"state":  string(s.debugger.State()),
		}), nil
	}
}
