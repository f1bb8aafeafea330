package debugger

// State describes the debug session lifecycle.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnected    State = "connected"
	StateRunning      State = "running"
	StatePaused       State = "paused"
)

// Breakpoint is the last-known verification state for one source line, as
// reported by the debug adapter.
type Breakpoint struct {
	Source   string `json:"source"`
	Line     int    `json:"line"`
	Verified bool   `json:"verified"`
	ID       int    `json:"id,omitempty"`
}

// Thread is one execution thread reported by the adapter.
type Thread struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// StackFrame is one level of the paused call stack. Frame ids are only
// valid while the session stays paused at the same stop event.
type StackFrame struct {
	ID       int    `json:"id"`
	Function string `json:"function"`
	Source   string `json:"source"`
	Line     int    `json:"line"`
}

// CallStack is the result of a call-stack query. Paused is false when the
// game is not stopped, in which case Frames is empty and no request was
// sent to the adapter.
type CallStack struct {
	Paused   bool         `json:"paused"`
	ThreadID int          `json:"threadId,omitempty"`
	Frames   []StackFrame `json:"stack"`
}

// Variable is a resolved variable with a heuristically inferred type.
// Structured values carry their expanded children up to the query's depth
// limit.
type Variable struct {
	Name     string     `json:"name"`
	Type     string     `json:"type"`
	Value    string     `json:"value"`
	Children []Variable `json:"children,omitempty"`
}

// FrameVariables is the result of a local-variable query. Paused mirrors
// CallStack.Paused: false means the query was answered without touching
// the adapter.
type FrameVariables struct {
	Paused    bool        `json:"paused"`
	Frame     *StackFrame `json:"frame,omitempty"`
	Variables []Variable  `json:"variables"`
}

// OutputSink receives process output captured from protocol output
// events. *telemetry.Collector satisfies it.
type OutputSink interface {
	// Ingest consumes one line from the error channel.
	Ingest(line string)
	// IngestOutput consumes one line of ordinary process output.
	IngestOutput(line string)
}
