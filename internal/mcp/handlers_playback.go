// handlers_playback.go contains handlers for the bridge-plugin tools:
// launching and stopping the game, and signal introspection.
package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerPlaybackTools registers the bridge control-channel tools.
func (s *Server) registerPlaybackTools() {
	// run_project
	s.mcpServer.AddTool(mcp.NewTool("run_project",
		mcp.WithDescription("Run the project's main scene through the editor bridge"),
	), s.handleRunProject)

	// play_scene
	s.mcpServer.AddTool(mcp.NewTool("play_scene",
		mcp.WithDescription("Run a specific scene through the editor bridge"),
		mcp.WithString("scene",
			mcp.Required(),
			mcp.Description("Scene path, e.g. res://levels/level_1.tscn"),
		),
	), s.handlePlayScene)

	// stop_project
	s.mcpServer.AddTool(mcp.NewTool("stop_project",
		mcp.WithDescription("Stop the running game"),
	), s.handleStopProject)

	// get_playback_status
	s.mcpServer.AddTool(mcp.NewTool("get_playback_status",
		mcp.WithDescription("Report whether the game is running and which scene was launched"),
	), s.handleGetPlaybackStatus)

	// get_signals
	s.mcpServer.AddTool(mcp.NewTool("get_signals",
		mcp.WithDescription("List signals declared on a node in the running scene tree"),
		mcp.WithString("node",
			mcp.Required(),
			mcp.Description("Node path, e.g. /root/Main/Player"),
		),
	), s.handleGetSignals)

	// get_signal_connections
	s.mcpServer.AddTool(mcp.NewTool("get_signal_connections",
		mcp.WithDescription("List established signal connections for a node"),
		mcp.WithString("node",
			mcp.Required(),
			mcp.Description("Node path, e.g. /root/Main/Player"),
		),
		mcp.WithBoolean("recursive",
			mcp.Description("Include connections of all descendant nodes"),
		),
		mcp.WithBoolean("include_internal",
			mcp.Description("Include engine-internal connections"),
		),
	), s.handleGetSignalConnections)
}

func (s *Server) handleRunProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.bridge.PlayMain(ctx); err != nil {
		return wrapErr("RunProject", err), nil
	}
	return mcp.NewToolResultText("Project started"), nil
}

func (s *Server) handlePlayScene(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scene, errResult := requireStr(request.Params.Arguments, "scene")
	if errResult != nil {
		return errResult, nil
	}
	if err := s.bridge.PlayScene(ctx, scene); err != nil {
		return wrapErr("PlayScene", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Scene %s started", scene)), nil
}

func (s *Server) handleStopProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.bridge.Stop(ctx); err != nil {
		return wrapErr("StopProject", err), nil
	}
	return mcp.NewToolResultText("Project stopped"), nil
}

func (s *Server) handleGetPlaybackStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.bridge.Status(ctx)
	if err != nil {
		return wrapErr("GetPlaybackStatus", err), nil
	}
	return newToolResultJSON(status), nil
}

func (s *Server) handleGetSignals(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node, errResult := requireStr(request.Params.Arguments, "node")
	if errResult != nil {
		return errResult, nil
	}
	signals, err := s.bridge.Signals(ctx, node)
	if err != nil {
		return wrapErr("GetSignals", err), nil
	}
	return newToolResultJSON(map[string]any{
		"node":    node,
		"signals": signals,
	}), nil
}

func (s *Server) handleGetSignalConnections(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	node, errResult := requireStr(request.Params.Arguments, "node")
	if errResult != nil {
		return errResult, nil
	}
	recursive := getBool(request.Params.Arguments, "recursive", false)
	includeInternal := getBool(request.Params.Arguments, "include_internal", false)

	conns, err := s.bridge.SignalConnections(ctx, node, recursive, includeInternal)
	if err != nil {
		return wrapErr("GetSignalConnections", err), nil
	}
	return newToolResultJSON(map[string]any{
		"node":        node,
		"connections": conns,
	}), nil
}
