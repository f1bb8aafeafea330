// Package telemetry converts raw, unstructured output lines from a
// running Godot process into typed, timestamped records held in bounded
// FIFO buffers. Classification is best effort and can never fail: every
// non-blank line produces exactly one debug message.
package telemetry

import (
	"bufio"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Category classifies a debug message.
type Category string

const (
	CategoryPrint   Category = "print"
	CategoryWarning Category = "warning"
	CategoryError   Category = "error"
)

// ErrorType classifies a structured runtime error.
type ErrorType string

const (
	ErrorTypeError   ErrorType = "error"
	ErrorTypeWarning ErrorType = "warning"
)

// DebugMessage is one classified output line.
type DebugMessage struct {
	Timestamp time.Time `json:"timestamp"`
	Category  Category  `json:"category"`
	Message   string    `json:"message"`
	Source    string    `json:"source"`
}

// RuntimeError is one structured error recovered from the engine's
// two-line error format. Script is empty and Line zero when the
// continuation line never arrived.
type RuntimeError struct {
	Timestamp time.Time `json:"timestamp"`
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Script    string    `json:"script"`
	Line      int       `json:"line"`
	Function  string    `json:"function,omitempty"`
}

const (
	// DefaultMessageCapacity is the debug-message buffer size.
	DefaultMessageCapacity = 1000
	// DefaultErrorCapacity is the runtime-error buffer size.
	DefaultErrorCapacity = 100

	unknownSource = "unknown source"
	resourceRoot  = "res://"
)

var (
	sourceLocator = regexp.MustCompile(`((?:res://|user://)?[\w\-./\\]+\.\w+):(\d+)`)
	annotatedLine = regexp.MustCompile(`^\s*((?:res://|user://)?[\w\-./\\]+\.\w+):(\d+)\s+-\s+`)
	errorStart    = regexp.MustCompile(`^(SCRIPT ERROR|ERROR|WARNING):\s*(.*)$`)
	continuation  = regexp.MustCompile(`^\s+at:\s+(.+?)\s+\((.+?):(\d+)\)\s*$`)
)

// Collector classifies process output line by line. The two buffers are
// independent: debug messages hold every line, runtime errors hold only
// the structured two-line error records. All methods are safe for
// concurrent use.
type Collector struct {
	mu       sync.Mutex
	messages *ring
	errors   *ring
	pending  *RuntimeError
	now      func() time.Time
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithMessageCapacity sets the debug-message buffer capacity.
func WithMessageCapacity(n int) CollectorOption {
	return func(c *Collector) {
		if n > 0 {
			c.messages = newRing(n)
		}
	}
}

// WithErrorCapacity sets the runtime-error buffer capacity.
func WithErrorCapacity(n int) CollectorOption {
	return func(c *Collector) {
		if n > 0 {
			c.errors = newRing(n)
		}
	}
}

// NewCollector creates a collector with the default capacities.
func NewCollector(opts ...CollectorOption) *Collector {
	c := &Collector{
		messages: newRing(DefaultMessageCapacity),
		errors:   newRing(DefaultErrorCapacity),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ingest consumes one line from the process's error channel. Blank lines
// only advance the runtime-error state; everything else becomes exactly
// one debug message. Lines without any recognizable marker still default
// to category error: this stream is the error channel, so unclassified
// content is presumed diagnostic.
func (c *Collector) Ingest(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}
	c.trackRuntimeError(line)
	c.messages.add(c.classify(line, CategoryError))
}

// IngestOutput consumes one line of ordinary process output (stdout).
// Unmarked lines are plain prints; marker lines are classified the same
// way as on the error channel but do not feed the runtime-error grammar.
func (c *Collector) IngestOutput(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}
	c.messages.add(c.classify(line, CategoryPrint))
}

// Attach consumes r line by line until EOF, feeding the error channel.
// It blocks; run it from the supervising goroutine.
func (c *Collector) Attach(r io.Reader) {
	scan(r, c.Ingest)
}

// AttachOutput consumes r line by line until EOF, feeding the stdout
// channel.
func (c *Collector) AttachOutput(r io.Reader) {
	scan(r, c.IngestOutput)
}

func scan(r io.Reader, sink func(string)) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		sink(sc.Text())
	}
}

// Messages returns up to limit of the newest buffered debug messages in
// insertion order; limit <= 0 returns everything.
func (c *Collector) Messages(limit int) []DebugMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	vals := c.messages.values()
	out := make([]DebugMessage, 0, len(vals))
	for _, v := range vals {
		out = append(out, *(v.(*DebugMessage)))
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Errors returns up to limit of the newest buffered runtime errors in
// insertion order; limit <= 0 returns everything. A pending error still
// waiting for its continuation line is flushed first so it is never
// invisible to a query.
func (c *Collector) Errors(limit int) []RuntimeError {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.flushPending()
	vals := c.errors.values()
	out := make([]RuntimeError, 0, len(vals))
	for _, v := range vals {
		out = append(out, *(v.(*RuntimeError)))
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// ClearMessages empties the debug-message buffer only.
func (c *Collector) ClearMessages() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages.clear()
}

// ClearErrors empties the runtime-error buffer only.
func (c *Collector) ClearErrors() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors.clear()
	c.pending = nil
}

func (c *Collector) classify(line string, fallback Category) *DebugMessage {
	msg := &DebugMessage{
		Timestamp: c.now(),
		Message:   line,
		Source:    unknownSource,
	}
	if m := sourceLocator.FindStringSubmatch(line); m != nil {
		msg.Source = m[1] + ":" + m[2]
	}

	switch {
	case strings.Contains(line, "WARNING"):
		msg.Category = CategoryWarning
	case strings.Contains(line, "ERROR"):
		// Covers the distinguished "SCRIPT ERROR" variant too.
		msg.Category = CategoryError
	case annotatedLine.MatchString(line):
		// Editor-style "path:line - message" diagnostics.
		msg.Category = CategoryError
	default:
		msg.Category = fallback
	}
	return msg
}

// trackRuntimeError advances the two-line error grammar. One line of
// pending state is enough: a start line waits for its "at: fn (path:N)"
// continuation; any other line flushes it incomplete rather than
// dropping it.
func (c *Collector) trackRuntimeError(line string) {
	if c.pending != nil {
		if m := continuation.FindStringSubmatch(line); m != nil {
			c.pending.Function = m[1]
			c.pending.Script = normalizeScriptPath(m[2])
			c.pending.Line, _ = strconv.Atoi(m[3])
			c.errors.add(c.pending)
			c.pending = nil
			return
		}
		c.flushPending()
	}

	if m := errorStart.FindStringSubmatch(line); m != nil {
		typ := ErrorTypeError
		if m[1] == "WARNING" {
			typ = ErrorTypeWarning
		}
		c.pending = &RuntimeError{
			Timestamp: c.now(),
			Type:      typ,
			Message:   m[2],
		}
	}
}

func (c *Collector) flushPending() {
	if c.pending == nil {
		return
	}
	c.errors.add(c.pending)
	c.pending = nil
}

// normalizeScriptPath prefixes the engine's resource root onto relative
// script paths.
func normalizeScriptPath(path string) string {
	if strings.Contains(path, "://") || filepath.IsAbs(path) {
		return path
	}
	return resourceRoot + path
}
