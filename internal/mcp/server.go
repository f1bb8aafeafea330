package mcp

import (
	"io"

	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/TidalStudio/godot-mcp/pkg/bridge"
	"github.com/TidalStudio/godot-mcp/pkg/debugger"
	"github.com/TidalStudio/godot-mcp/pkg/telemetry"
)

// Server wires the MCP tool surface to the debug client, the bridge
// control channel and the telemetry collector.
type Server struct {
	mcpServer *server.MCPServer
	config    *Config
	log       *logrus.Entry

	debugger  *debugger.Client
	bridge    *bridge.Client
	telemetry *telemetry.Collector
}

// NewServer creates the MCP server and registers all tools. The
// debug connection itself is established lazily by debug_connect.
func NewServer(config *Config, log *logrus.Logger) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	entry := log.WithField("component", "server")

	collector := telemetry.NewCollector(
		telemetry.WithMessageCapacity(config.MaxMessages),
		telemetry.WithErrorCapacity(config.MaxErrors),
	)

	dbg := debugger.NewClient(
		debugger.WithRequestTimeout(config.RequestTimeout),
		debugger.WithProjectRoot(config.ProjectRoot),
		debugger.WithOutputSink(collector),
		debugger.WithLogger(log),
	)

	br := bridge.New(config.BridgeHost, config.BridgePort,
		bridge.WithLogger(log),
	)

	s := &Server{
		mcpServer: server.NewMCPServer(
			"godot-mcp",
			"1.0.0",
			server.WithResourceCapabilities(true, true),
			server.WithLogging(),
		),
		config:    config,
		log:       entry,
		debugger:  dbg,
		bridge:    br,
		telemetry: collector,
	}

	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.registerDebuggerTools()
	s.registerPlaybackTools()
	s.registerOutputTools()
}

// ServeStdio runs the MCP server over stdin/stdout until EOF.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// Telemetry exposes the collector, mainly for process-output wiring.
func (s *Server) Telemetry() *telemetry.Collector {
	return s.telemetry
}

// AttachProcessOutput streams a launched game's stdout and stderr into
// the telemetry collector. Either reader may be nil.
func (s *Server) AttachProcessOutput(stdout, stderr io.Reader) {
	if stdout != nil {
		go s.telemetry.AttachOutput(stdout)
	}
	if stderr != nil {
		go s.telemetry.Attach(stderr)
	}
}
