package debugger

import (
	"strings"

	"github.com/google/go-dap"
	"github.com/sirupsen/logrus"
)

// handleEvent is the session state machine. It consumes asynchronous
// events from the read loop and derives session state:
//
//	stopped     Running -> Paused, records the active thread
//	continued   Paused  -> Running
//	terminated  any     -> Disconnected, session-scoped state cleared
//	output      informational, no transition
//
// The breakpoint registry is deliberately untouched by terminated: it is
// connection-independent configuration.
func (c *Client) handleEvent(ev dap.EventMessage) {
	switch e := ev.(type) {
	case *dap.StoppedEvent:
		c.mu.Lock()
		c.state = StatePaused
		if e.Body.ThreadId != 0 {
			c.threadID = e.Body.ThreadId
		}
		c.mu.Unlock()
		c.log.WithFields(logrus.Fields{
			"reason": e.Body.Reason,
			"thread": e.Body.ThreadId,
		}).Debug("execution stopped")

	case *dap.ContinuedEvent:
		c.mu.Lock()
		if c.state == StatePaused {
			c.state = StateRunning
		}
		c.mu.Unlock()
		c.log.Debug("execution continued")

	case *dap.TerminatedEvent:
		c.mu.Lock()
		conn := c.conn
		c.conn = nil
		c.state = StateDisconnected
		c.threadID = 0
		c.capabilities = dap.Capabilities{}
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		c.log.Info("debuggee terminated")

	case *dap.OutputEvent:
		c.forwardOutput(e.Body.Category, e.Body.Output)

	default:
		c.log.Debugf("unhandled event %q", ev.GetEvent().Event)
	}
}

func (c *Client) forwardOutput(category, output string) {
	if c.output == nil {
		return
	}
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if category == "stderr" {
			c.output.Ingest(line)
			continue
		}
		c.output.IngestOutput(line)
	}
}
