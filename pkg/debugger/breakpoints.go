package debugger

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/google/go-dap"
)

// SetBreakpoints replaces all breakpoints for sourcePath with the given
// lines and returns the set the adapter actually accepted, which may
// differ from the requested lines when verification fails. The registry
// entry for sourcePath is replaced wholesale, never merged.
func (c *Client) SetBreakpoints(ctx context.Context, sourcePath string, lines []int) ([]Breakpoint, error) {
	req := &dap.SetBreakpointsRequest{Request: c.newRequest("setBreakpoints")}
	req.Arguments.Source = dap.Source{
		Name: filepath.Base(sourcePath),
		Path: sourcePath,
	}
	req.Arguments.Breakpoints = make([]dap.SourceBreakpoint, len(lines))
	for i, line := range lines {
		req.Arguments.Breakpoints[i] = dap.SourceBreakpoint{Line: line}
	}

	resp, err := c.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	sbResp, ok := resp.(*dap.SetBreakpointsResponse)
	if !ok {
		return nil, fmt.Errorf("setBreakpoints: unexpected response type %T", resp)
	}

	bps := make([]Breakpoint, 0, len(sbResp.Body.Breakpoints))
	for _, b := range sbResp.Body.Breakpoints {
		bp := Breakpoint{Source: sourcePath, Line: b.Line, Verified: b.Verified, ID: b.Id}
		if b.Source != nil && b.Source.Path != "" {
			bp.Source = b.Source.Path
		}
		bps = append(bps, bp)
	}

	c.mu.Lock()
	c.breakpoints[sourcePath] = bps
	c.mu.Unlock()
	return bps, nil
}

// Breakpoints returns a flattened view of the last-known breakpoint state
// across all tracked sources, ordered by path then line. It performs no
// I/O and only reflects responses this client has observed; breakpoints
// set through other channels are invisible to it.
func (c *Client) Breakpoints() []Breakpoint {
	c.mu.RLock()
	defer c.mu.RUnlock()

	paths := make([]string, 0, len(c.breakpoints))
	for p := range c.breakpoints {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	out := make([]Breakpoint, 0)
	for _, p := range paths {
		out = append(out, c.breakpoints[p]...)
	}
	return out
}
