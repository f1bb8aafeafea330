// godot-mcp is an MCP server for inspecting and debugging a running
// Godot game: breakpoints, call stacks, variables, playback control
// and collected debug output.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/TidalStudio/godot-mcp/internal/mcp"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "godot-mcp",
	Short: "MCP server for debugging running Godot games",
	Long: `godot-mcp is a Model Context Protocol (MCP) server that lets AI
assistants inspect a running Godot game: set breakpoints, walk the call
stack, read local variables, launch and stop scenes, and query the
game's debug output and runtime errors.

It connects to two endpoints on the editor machine: the debug adapter
(default port 6006) and the godot-mcp bridge plugin (default port 9080).

Examples:
  # Local editor with defaults
  godot-mcp --project-root /path/to/game

  # Using environment variables
  GODOT_DAP_PORT=6007 GODOT_PROJECT_ROOT=/path/to/game godot-mcp

  # Using a config file
  godot-mcp --config godot-mcp.yaml`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
	RunE:    runServer,
}

// stringFlag defines a string CLI flag
type stringFlag struct {
	name, shorthand, defaultValue, description string
}

// intFlag defines an int CLI flag
type intFlag struct {
	name, description string
	defaultValue      int
}

var stringFlags = []stringFlag{
	{"dap-host", "", "127.0.0.1", "Debug adapter host"},
	{"bridge-host", "", "127.0.0.1", "Bridge plugin host"},
	{"project-root", "", "", "Godot project directory (resolves res:// paths for scope analysis)"},
	{"config", "c", "", "Path to YAML config file"},
	{"request-timeout", "", "10s", "Timeout for one debug-protocol request (e.g. 5s, 1m)"},
}

var intFlags = []intFlag{
	{"dap-port", "Debug adapter port", 6006},
	{"bridge-port", "Bridge plugin port", 9080},
	{"max-messages", "Debug output buffer capacity", 1000},
	{"max-errors", "Runtime error buffer capacity", 100},
}

func init() {
	// Load .env file if it exists (ignore error - file is optional)
	_ = godotenv.Load()

	for _, f := range stringFlags {
		if f.shorthand != "" {
			rootCmd.Flags().StringP(f.name, f.shorthand, f.defaultValue, f.description)
		} else {
			rootCmd.Flags().String(f.name, f.defaultValue, f.description)
		}
		_ = viper.BindPFlag(f.name, rootCmd.Flags().Lookup(f.name))
	}

	for _, f := range intFlags {
		rootCmd.Flags().Int(f.name, f.defaultValue, f.description)
		_ = viper.BindPFlag(f.name, rootCmd.Flags().Lookup(f.name))
	}

	rootCmd.Flags().BoolP("verbose", "v", false, "Enable verbose output to stderr")
	_ = viper.BindPFlag("verbose", rootCmd.Flags().Lookup("verbose"))

	// Environment variable mapping: --dap-port becomes GODOT_DAP_PORT.
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.SetEnvPrefix("GODOT")
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.Verbose {
		log.SetLevel(logrus.DebugLevel)
		logStartupInfo(cfg)
	}

	server := mcp.NewServer(cfg, log)
	return server.ServeStdio()
}

// resolveConfig builds the configuration with priority:
// flags > env vars > config file > defaults.
func resolveConfig(cmd *cobra.Command) (*mcp.Config, error) {
	cfg := mcp.DefaultConfig()

	// Config file first so flags and env can override it.
	if path := viper.GetString("config"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	resolveString(cmd, "dap-host", &cfg.DAPHost)
	resolveInt(cmd, "dap-port", &cfg.DAPPort)
	resolveString(cmd, "bridge-host", &cfg.BridgeHost)
	resolveInt(cmd, "bridge-port", &cfg.BridgePort)
	resolveString(cmd, "project-root", &cfg.ProjectRoot)
	resolveInt(cmd, "max-messages", &cfg.MaxMessages)
	resolveInt(cmd, "max-errors", &cfg.MaxErrors)

	if cmd.Flags().Changed("request-timeout") || envSet("request-timeout") {
		raw := viper.GetString("request-timeout")
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid --request-timeout %q: %w", raw, err)
		}
		cfg.RequestTimeout = d
	}

	cfg.Verbose = viper.GetBool("verbose")

	if cfg.DAPPort < 1 || cfg.DAPPort > 65535 {
		return nil, fmt.Errorf("invalid dap-port %d", cfg.DAPPort)
	}
	if cfg.BridgePort < 1 || cfg.BridgePort > 65535 {
		return nil, fmt.Errorf("invalid bridge-port %d", cfg.BridgePort)
	}
	return cfg, nil
}

// resolveString overwrites *dst when the flag or its env var is set.
func resolveString(cmd *cobra.Command, name string, dst *string) {
	if cmd.Flags().Changed(name) {
		*dst, _ = cmd.Flags().GetString(name)
		return
	}
	if envSet(name) {
		if v := viper.GetString(name); v != "" {
			*dst = v
		}
	}
}

// resolveInt overwrites *dst when the flag or its env var is set.
func resolveInt(cmd *cobra.Command, name string, dst *int) {
	if cmd.Flags().Changed(name) {
		*dst, _ = cmd.Flags().GetInt(name)
		return
	}
	if envSet(name) {
		if v := viper.GetInt(name); v != 0 {
			*dst = v
		}
	}
}

// envSet reports whether GODOT_<NAME> is present in the environment.
func envSet(flag string) bool {
	key := "GODOT_" + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
	_, ok := os.LookupEnv(key)
	return ok
}

// logStartupInfo outputs verbose startup information
func logStartupInfo(cfg *mcp.Config) {
	fmt.Fprintf(os.Stderr, "[VERBOSE] Starting godot-mcp server\n")
	fmt.Fprintf(os.Stderr, "[VERBOSE] Debug adapter: %s:%d\n", cfg.DAPHost, cfg.DAPPort)
	fmt.Fprintf(os.Stderr, "[VERBOSE] Bridge plugin: %s:%d\n", cfg.BridgeHost, cfg.BridgePort)
	if cfg.ProjectRoot != "" {
		fmt.Fprintf(os.Stderr, "[VERBOSE] Project root: %s\n", cfg.ProjectRoot)
	}
	fmt.Fprintf(os.Stderr, "[VERBOSE] Buffers: %d messages, %d errors\n", cfg.MaxMessages, cfg.MaxErrors)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
