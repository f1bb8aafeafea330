// Package mcp provides the MCP server implementation for godot-mcp
// tools. config.go holds server configuration and the optional YAML
// project file.
package mcp

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds godot-mcp server configuration.
type Config struct {
	// Debug adapter endpoint (Godot editor, default port 6006).
	DAPHost string `yaml:"dap_host"`
	DAPPort int    `yaml:"dap_port"`

	// Bridge plugin endpoint.
	BridgeHost string `yaml:"bridge_host"`
	BridgePort int    `yaml:"bridge_port"`

	// ProjectRoot is the filesystem directory res:// paths resolve
	// against when reading script sources.
	ProjectRoot string `yaml:"project_root"`

	// Telemetry buffer capacities.
	MaxMessages int `yaml:"max_messages"`
	MaxErrors   int `yaml:"max_errors"`

	// RequestTimeout bounds one debug-protocol request. In YAML it is
	// written as a duration string ("10s", "1m"); see UnmarshalYAML.
	RequestTimeout time.Duration `yaml:"-"`

	// Verbose output to stderr.
	Verbose bool `yaml:"-"`
}

// DefaultConfig returns a configuration pointing at a local editor.
func DefaultConfig() *Config {
	return &Config{
		DAPHost:        "127.0.0.1",
		DAPPort:        6006,
		BridgeHost:     "127.0.0.1",
		BridgePort:     9080,
		MaxMessages:    1000,
		MaxErrors:      100,
		RequestTimeout: 10 * time.Second,
	}
}

// LoadFile merges settings from a YAML project file into c. Flags and
// environment variables are resolved later and take precedence.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// UnmarshalYAML decodes the struct fields directly and request_timeout
// through time.ParseDuration.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type plain Config
	aux := struct {
		*plain         `yaml:",inline"`
		RequestTimeout string `yaml:"request_timeout"`
	}{plain: (*plain)(c)}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	if aux.RequestTimeout != "" {
		d, err := time.ParseDuration(aux.RequestTimeout)
		if err != nil {
			return fmt.Errorf("invalid request_timeout: %w", err)
		}
		c.RequestTimeout = d
	}
	return nil
}
