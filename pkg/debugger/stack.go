package debugger

import (
	"context"
	"fmt"

	"github.com/google/go-dap"
)

// maxStackFrames bounds one stackTrace query; Godot call stacks are
// shallow in practice.
const maxStackFrames = 20

// Threads lists the debuggee's threads.
func (c *Client) Threads(ctx context.Context) ([]Thread, error) {
	req := &dap.ThreadsRequest{Request: c.newRequest("threads")}
	resp, err := c.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	tr, ok := resp.(*dap.ThreadsResponse)
	if !ok {
		return nil, fmt.Errorf("threads: unexpected response type %T", resp)
	}
	threads := make([]Thread, 0, len(tr.Body.Threads))
	for _, t := range tr.Body.Threads {
		threads = append(threads, Thread{ID: t.Id, Name: t.Name})
	}
	return threads, nil
}

// CallStack returns the call stack for threadID (zero means the thread
// recorded from the last stop event). When the session is not paused it
// returns {Paused: false} without touching the network: an unpaused game
// simply has no inspectable stack, which is not an error.
func (c *Client) CallStack(ctx context.Context, threadID int) (*CallStack, error) {
	c.mu.RLock()
	state := c.state
	current := c.threadID
	c.mu.RUnlock()

	if state != StatePaused {
		return &CallStack{Paused: false, Frames: []StackFrame{}}, nil
	}

	if threadID == 0 {
		threadID = current
	}
	if threadID == 0 {
		// No stop event carried a thread id; ask the adapter.
		threads, err := c.Threads(ctx)
		if err != nil {
			return nil, err
		}
		if len(threads) == 0 {
			return &CallStack{Paused: true, Frames: []StackFrame{}}, nil
		}
		threadID = threads[0].ID
	}

	frames, err := c.stackTrace(ctx, threadID, 0, maxStackFrames)
	if err != nil {
		return nil, err
	}
	return &CallStack{Paused: true, ThreadID: threadID, Frames: frames}, nil
}

func (c *Client) stackTrace(ctx context.Context, threadID, startFrame, levels int) ([]StackFrame, error) {
	req := &dap.StackTraceRequest{Request: c.newRequest("stackTrace")}
	req.Arguments = dap.StackTraceArguments{
		ThreadId:   threadID,
		StartFrame: startFrame,
		Levels:     levels,
	}
	resp, err := c.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	st, ok := resp.(*dap.StackTraceResponse)
	if !ok {
		return nil, fmt.Errorf("stackTrace: unexpected response type %T", resp)
	}

	frames := make([]StackFrame, 0, len(st.Body.StackFrames))
	for _, f := range st.Body.StackFrames {
		fr := StackFrame{ID: f.Id, Function: f.Name, Line: f.Line}
		if f.Source != nil {
			fr.Source = f.Source.Path
		}
		frames = append(frames, fr)
	}
	return frames, nil
}

// Continue resumes execution. The adapter acknowledging the request
// implies the debuggee is running again, so the state flips without
// waiting for a continued event.
func (c *Client) Continue(ctx context.Context, threadID int) error {
	req := &dap.ContinueRequest{Request: c.newRequest("continue")}
	req.Arguments.ThreadId = c.resolveThread(threadID)
	if _, err := c.roundTrip(ctx, req); err != nil {
		return err
	}
	c.mu.Lock()
	if c.state == StatePaused {
		c.state = StateRunning
	}
	c.mu.Unlock()
	return nil
}

// Next steps over the current line.
func (c *Client) Next(ctx context.Context, threadID int) error {
	req := &dap.NextRequest{Request: c.newRequest("next")}
	req.Arguments.ThreadId = c.resolveThread(threadID)
	_, err := c.roundTrip(ctx, req)
	return err
}

// StepIn steps into the call on the current line.
func (c *Client) StepIn(ctx context.Context, threadID int) error {
	req := &dap.StepInRequest{Request: c.newRequest("stepIn")}
	req.Arguments.ThreadId = c.resolveThread(threadID)
	_, err := c.roundTrip(ctx, req)
	return err
}

// StepOut runs until the current function returns.
func (c *Client) StepOut(ctx context.Context, threadID int) error {
	req := &dap.StepOutRequest{Request: c.newRequest("stepOut")}
	req.Arguments.ThreadId = c.resolveThread(threadID)
	_, err := c.roundTrip(ctx, req)
	return err
}

// Pause asks the adapter to suspend execution. The state only changes
// when the resulting stopped event arrives.
func (c *Client) Pause(ctx context.Context, threadID int) error {
	req := &dap.PauseRequest{Request: c.newRequest("pause")}
	req.Arguments.ThreadId = c.resolveThread(threadID)
	_, err := c.roundTrip(ctx, req)
	return err
}

func (c *Client) resolveThread(threadID int) int {
	if threadID != 0 {
		return threadID
	}
	c.mu.RLock()
	current := c.threadID
	c.mu.RUnlock()
	if current != 0 {
		return current
	}
	// Godot's main thread.
	return 1
}
