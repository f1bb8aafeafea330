package debugger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/go-dap"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultRequestTimeout bounds how long a single request may stay
// in flight before it is rejected and its pending entry discarded.
const DefaultRequestTimeout = 10 * time.Second

const readChunkSize = 4096

// ErrNotConnected is returned by operations that need a live connection.
var ErrNotConnected = errors.New("not connected to debug adapter")

// Client is a stateful debug-protocol client. One Client owns one socket;
// reconnecting means closing the Client and building a new one (in-flight
// requests of the old instance are left to time out, never migrated).
type Client struct {
	projectRoot string
	timeout     time.Duration
	output      OutputSink
	log         *logrus.Entry

	mu           sync.RWMutex
	conn         net.Conn
	state        State
	threadID     int
	capabilities dap.Capabilities
	breakpoints  map[string][]Breakpoint

	seq       atomic.Int64
	pendingMu sync.Mutex
	pending   map[int]chan dap.ResponseMessage

	// wmu serializes frame writes so concurrent requests cannot
	// interleave on the wire.
	wmu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithRequestTimeout overrides the per-request timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithProjectRoot sets the filesystem directory that res:// paths resolve
// against when reading script sources for scope analysis.
func WithProjectRoot(root string) Option {
	return func(c *Client) { c.projectRoot = root }
}

// WithOutputSink routes process output carried in protocol output events
// into sink.
func WithOutputSink(sink OutputSink) Option {
	return func(c *Client) { c.output = sink }
}

// WithLogger replaces the default logger.
func WithLogger(log *logrus.Logger) Option {
	return func(c *Client) {
		c.log = log.WithField("component", "debugger")
	}
}

// NewClient creates a disconnected client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		timeout:     DefaultRequestTimeout,
		state:       StateDisconnected,
		breakpoints: make(map[string][]Breakpoint),
		pending:     make(map[int]chan dap.ResponseMessage),
		log:         logrus.WithField("component", "debugger"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("session", uuid.NewString()[:8])
	return c
}

// Connect dials the debug adapter and performs the initialize /
// configurationDone handshake. On success the session is considered
// running until a stop event arrives.
func (c *Client) Connect(ctx context.Context, host string, port int) error {
	c.mu.RLock()
	connected := c.conn != nil
	c.mu.RUnlock()
	if connected {
		return errors.New("already connected")
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("debug adapter connection failed: %w", err)
	}

	c.attach(conn)
	if err := c.handshake(ctx); err != nil {
		_ = c.Close()
		return err
	}
	c.log.WithField("addr", addr).Info("debug session established")
	return nil
}

// attach wires an established connection and starts the read loop. Split
// from Connect so tests can drive the client over an in-memory pipe.
func (c *Client) attach(conn net.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.state = StateConnected
	c.mu.Unlock()
	go c.readLoop(conn)
}

func (c *Client) handshake(ctx context.Context) error {
	initReq := &dap.InitializeRequest{Request: c.newRequest("initialize")}
	initReq.Arguments = dap.InitializeRequestArguments{
		ClientID:             "godot-mcp",
		ClientName:           "godot-mcp",
		AdapterID:            "godot",
		Locale:               "en",
		LinesStartAt1:        true,
		ColumnsStartAt1:      true,
		PathFormat:           "path",
		SupportsVariableType: true,
	}
	resp, err := c.roundTrip(ctx, initReq)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if ir, ok := resp.(*dap.InitializeResponse); ok {
		c.mu.Lock()
		c.capabilities = ir.Body
		c.mu.Unlock()
	}

	cfgReq := &dap.ConfigurationDoneRequest{Request: c.newRequest("configurationDone")}
	if _, err := c.roundTrip(ctx, cfgReq); err != nil {
		return fmt.Errorf("configurationDone: %w", err)
	}

	c.mu.Lock()
	c.state = StateRunning
	c.mu.Unlock()
	return nil
}

// Close tears down the connection and clears session-scoped state. The
// breakpoint registry survives: it is configuration, not session state.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	c.threadID = 0
	c.capabilities = dap.Capabilities{}
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

// State returns the current session state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// ThreadID returns the active thread recorded from the last stop event,
// or zero when none is known.
func (c *Client) ThreadID() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.threadID
}

// Capabilities returns the capability set negotiated at session start.
func (c *Client) Capabilities() dap.Capabilities {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.capabilities
}

// newRequest allocates the next sequence number. Sequence numbers are
// strictly increasing and never reused within a client instance.
func (c *Client) newRequest(command string) dap.Request {
	return dap.Request{
		ProtocolMessage: dap.ProtocolMessage{
			Seq:  int(c.seq.Add(1)),
			Type: "request",
		},
		Command: command,
	}
}

// roundTrip sends a request and blocks until its response arrives, the
// timeout elapses, or ctx is cancelled. Responses are matched purely by
// request_seq, so concurrently outstanding requests may resolve in any
// order. A response arriving after the timeout is dropped by the read
// loop because the pending entry is already gone.
func (c *Client) roundTrip(ctx context.Context, req dap.RequestMessage) (dap.ResponseMessage, error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return nil, ErrNotConnected
	}

	command := req.GetRequest().Command
	seq := req.GetRequest().Seq

	ch := make(chan dap.ResponseMessage, 1)
	c.pendingMu.Lock()
	c.pending[seq] = ch
	c.pendingMu.Unlock()

	c.wmu.Lock()
	err := dap.WriteProtocolMessage(conn, req)
	c.wmu.Unlock()
	if err != nil {
		c.removePending(seq)
		return nil, fmt.Errorf("send %s: %w", command, err)
	}

	select {
	case resp := <-ch:
		if er, ok := resp.(*dap.ErrorResponse); ok {
			return nil, errors.New(errorResponseMessage(er))
		}
		if r := resp.GetResponse(); !r.Success {
			return nil, fmt.Errorf("%s failed: %s", command, r.Message)
		}
		return resp, nil
	case <-time.After(c.timeout):
		c.removePending(seq)
		return nil, fmt.Errorf("%s request timed out after %s", command, c.timeout)
	case <-ctx.Done():
		c.removePending(seq)
		return nil, ctx.Err()
	}
}

func (c *Client) removePending(seq int) {
	c.pendingMu.Lock()
	delete(c.pending, seq)
	c.pendingMu.Unlock()
}

func errorResponseMessage(er *dap.ErrorResponse) string {
	if er.Body.Error != nil && er.Body.Error.Format != "" {
		return er.Body.Error.Format
	}
	if er.Message != "" {
		return er.Message
	}
	return er.Command + " failed"
}

// readLoop decodes frames off the wire and dispatches them until the
// connection dies. It is the only reader of conn.
func (c *Client) readLoop(conn net.Conn) {
	var dec frameDecoder
	buf := make([]byte, readChunkSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			for _, msg := range dec.feed(buf[:n]) {
				c.dispatch(msg)
			}
		}
		if err != nil {
			c.handleDisconnect(conn, err)
			return
		}
	}
}

// dispatch routes one decoded message: responses to their pending
// requests, events to the session state machine. Every message maps to a
// defined action.
func (c *Client) dispatch(msg dap.Message) {
	switch m := msg.(type) {
	case dap.ResponseMessage:
		c.resolve(m)
	case dap.EventMessage:
		c.handleEvent(m)
	default:
		c.log.Debugf("ignoring unexpected message %T", msg)
	}
}

func (c *Client) resolve(resp dap.ResponseMessage) {
	seq := resp.GetResponse().RequestSeq
	c.pendingMu.Lock()
	ch, ok := c.pending[seq]
	if ok {
		delete(c.pending, seq)
	}
	c.pendingMu.Unlock()

	if !ok {
		// Timed out or never ours. Either way there is no waiter.
		c.log.Debugf("dropping response for unknown request_seq %d", seq)
		return
	}
	ch <- resp
}

// handleDisconnect reacts to the transport dying underneath the read
// loop. Pending requests are not failed here; their individual timeouts
// reject them.
func (c *Client) handleDisconnect(conn net.Conn, err error) {
	c.mu.Lock()
	if c.conn != conn {
		// A newer connection already took over.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.state = StateDisconnected
	c.threadID = 0
	c.capabilities = dap.Capabilities{}
	c.mu.Unlock()

	if err != io.EOF && !errors.Is(err, net.ErrClosed) {
		c.log.WithError(err).Warn("debug adapter connection lost")
		return
	}
	c.log.Debug("debug adapter connection closed")
}
