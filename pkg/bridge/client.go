// Package bridge implements the control channel to the editor-side
// godot-mcp plugin: single-line ASCII commands over a plain TCP stream,
// used to drive playback and query editor-side scene state.
package bridge

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// DefaultTimeout bounds one command round trip.
const DefaultTimeout = 5 * time.Second

// Error is an ERROR:<reason>[:<detail>] envelope returned by the plugin.
type Error struct {
	Reason string
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("bridge error: %s: %s", e.Reason, e.Detail)
	}
	return fmt.Sprintf("bridge error: %s", e.Reason)
}

// Status is the editor's playback state.
type Status struct {
	Playing bool   `json:"playing"`
	Scene   string `json:"scene,omitempty"`
}

// Signal is one signal declared on a node.
type Signal struct {
	Name string   `json:"name"`
	Args []string `json:"args,omitempty"`
}

// Connection is one established signal connection.
type Connection struct {
	Signal string `json:"signal"`
	Source string `json:"source"`
	Target string `json:"target"`
	Method string `json:"method"`
}

// Client talks to the bridge plugin. Commands are serialized: one
// request is in flight per connection at a time. The connection is
// dialed lazily on first use and redialed after any transport error.
type Client struct {
	addr    string
	timeout time.Duration
	log     *logrus.Entry

	mu   sync.Mutex
	conn net.Conn
	r    *bufio.Reader
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-command timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger routes client logs through log.
func WithLogger(log *logrus.Logger) Option {
	return func(c *Client) {
		c.log = log.WithField("component", "bridge")
	}
}

// New creates a client for the plugin listening at host:port.
func New(host string, port int, opts ...Option) *Client {
	c := &Client{
		addr:    net.JoinHostPort(host, strconv.Itoa(port)),
		timeout: DefaultTimeout,
		log:     logrus.WithField("component", "bridge"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close drops the connection. The next command redials.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resetLocked()
}

// Ping verifies the plugin is reachable.
func (c *Client) Ping(ctx context.Context) error {
	reply, err := c.call(ctx, "ping")
	if err != nil {
		return err
	}
	if reply != "PONG" {
		return fmt.Errorf("bridge: unexpected ping reply %q", reply)
	}
	return nil
}

// PlayMain starts the project's main scene.
func (c *Client) PlayMain(ctx context.Context) error {
	_, err := c.call(ctx, "play_main")
	return err
}

// PlayScene starts a specific scene.
func (c *Client) PlayScene(ctx context.Context, scenePath string) error {
	_, err := c.call(ctx, "play_scene:"+scenePath)
	return err
}

// Stop stops the running scene.
func (c *Client) Stop(ctx context.Context) error {
	_, err := c.call(ctx, "stop")
	return err
}

// Status reports whether the editor is playing a scene, and which.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	reply, err := c.call(ctx, "status")
	if err != nil {
		return nil, err
	}
	rest, ok := strings.CutPrefix(reply, "STATUS:")
	if !ok {
		return nil, fmt.Errorf("bridge: unexpected status reply %q", reply)
	}
	if rest == "STOPPED" {
		return &Status{Playing: false}, nil
	}
	if scene, ok := strings.CutPrefix(rest, "PLAYING:"); ok {
		return &Status{Playing: true, Scene: scene}, nil
	}
	return nil, fmt.Errorf("bridge: unexpected status reply %q", reply)
}

// Signals lists the signals declared on the node at nodePath.
func (c *Client) Signals(ctx context.Context, nodePath string) ([]Signal, error) {
	reply, err := c.call(ctx, "get_signals:"+nodePath)
	if err != nil {
		return nil, err
	}
	payload, ok := strings.CutPrefix(reply, "SIGNALS:")
	if !ok {
		return nil, fmt.Errorf("bridge: unexpected signals reply %q", reply)
	}
	if !gjson.Valid(payload) {
		return nil, fmt.Errorf("bridge: invalid signals payload %q", payload)
	}

	sigs := []Signal{}
	gjson.Parse(payload).ForEach(func(_, v gjson.Result) bool {
		if !v.IsObject() {
			// Older plugin builds send a bare array of names.
			sigs = append(sigs, Signal{Name: v.String()})
			return true
		}
		sig := Signal{Name: v.Get("name").String()}
		v.Get("args").ForEach(func(_, arg gjson.Result) bool {
			if arg.IsObject() {
				sig.Args = append(sig.Args, arg.Get("name").String())
			} else {
				sig.Args = append(sig.Args, arg.String())
			}
			return true
		})
		sigs = append(sigs, sig)
		return true
	})
	return sigs, nil
}

// SignalConnections lists established signal connections for the node at
// nodePath, optionally descending into children and including engine
// internal connections.
func (c *Client) SignalConnections(ctx context.Context, nodePath string, recursive, includeInternal bool) ([]Connection, error) {
	cmd := fmt.Sprintf("get_signal_connections:%s:%t:%t", nodePath, recursive, includeInternal)
	reply, err := c.call(ctx, cmd)
	if err != nil {
		return nil, err
	}
	payload, ok := strings.CutPrefix(reply, "CONNECTIONS:")
	if !ok {
		return nil, fmt.Errorf("bridge: unexpected connections reply %q", reply)
	}
	if !gjson.Valid(payload) {
		return nil, fmt.Errorf("bridge: invalid connections payload %q", payload)
	}

	conns := []Connection{}
	gjson.Parse(payload).ForEach(func(_, v gjson.Result) bool {
		conns = append(conns, Connection{
			Signal: v.Get("signal").String(),
			Source: v.Get("source").String(),
			Target: v.Get("target").String(),
			Method: v.Get("method").String(),
		})
		return true
	})
	return conns, nil
}

// call sends one command line and reads one reply line. Any reply other
// than an ERROR envelope counts as success; only ping and the query
// commands pin down an exact reply shape.
func (c *Client) call(ctx context.Context, command string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.dialLocked(ctx); err != nil {
			return "", err
		}
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetDeadline(deadline)

	if _, err := fmt.Fprintf(c.conn, "%s\n", command); err != nil {
		_ = c.resetLocked()
		return "", fmt.Errorf("bridge write: %w", err)
	}
	line, err := c.r.ReadString('\n')
	if err != nil {
		_ = c.resetLocked()
		return "", fmt.Errorf("bridge read: %w", err)
	}

	reply := strings.TrimRight(line, "\r\n")
	if rest, ok := strings.CutPrefix(reply, "ERROR:"); ok {
		reason, detail, _ := strings.Cut(rest, ":")
		return "", &Error{Reason: reason, Detail: detail}
	}
	return reply, nil
}

func (c *Client) dialLocked(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("bridge connection failed: %w", err)
	}
	c.attachLocked(conn)
	c.log.WithField("addr", c.addr).Debug("bridge connected")
	return nil
}

// attachLocked wires an established connection; split out for tests.
func (c *Client) attachLocked(conn net.Conn) {
	c.conn = conn
	c.r = bufio.NewReader(conn)
}

func (c *Client) resetLocked() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.r = nil
	return err
}
