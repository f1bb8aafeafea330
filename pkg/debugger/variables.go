package debugger

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/go-dap"

	"github.com/TidalStudio/godot-mcp/pkg/gdscript"
)

const (
	// DefaultMaxDepth bounds recursive expansion of structured values.
	DefaultMaxDepth = 2

	// maxRenderedChildren caps how many children of one aggregate are
	// rendered before the remainder collapses into an "…and N more"
	// marker.
	maxRenderedChildren = 20

	evaluateContext = "watch"
	resourceScheme  = "res://"
)

// tickFunctions are per-tick engine callbacks whose implicit argument is
// worth evaluating even though no declaration mentions it.
var tickFunctions = map[string]bool{
	"_process":         true,
	"_physics_process": true,
}

// LocalVariables resolves the variables visible in one frame of the
// paused call stack. frameIndex is an index into the stack (not a frame
// id); out-of-range values fall back to the innermost frame. maxDepth
// bounds expansion of structured values, zero meaning DefaultMaxDepth.
//
// When the session is not paused the query is answered locally with
// {Paused: false}. Individual names that fail to evaluate are omitted:
// the scope analyzer over-approximates, so "not in scope" is the
// expected common case, not a failure of the query.
func (c *Client) LocalVariables(ctx context.Context, frameIndex, maxDepth int) (*FrameVariables, error) {
	c.mu.RLock()
	state := c.state
	c.mu.RUnlock()

	if state != StatePaused {
		return &FrameVariables{Paused: false, Variables: []Variable{}}, nil
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	frames, err := c.stackTrace(ctx, c.resolveThread(0), 0, maxStackFrames)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return &FrameVariables{Paused: true, Variables: []Variable{}}, nil
	}
	if frameIndex < 0 || frameIndex >= len(frames) {
		frameIndex = 0
	}
	frame := frames[frameIndex]

	table := c.scopeTable(frame.Source)
	vars := make([]Variable, 0)
	for _, name := range candidateNames(table, frame) {
		v, ok := c.resolveVariable(ctx, frame.ID, name, maxDepth)
		if !ok {
			continue
		}
		vars = append(vars, v)
	}
	return &FrameVariables{Paused: true, Frame: &frame, Variables: vars}, nil
}

// scopeTable reconstructs the symbol table for a frame's script. res://
// paths are mapped onto the configured project root; anything unreadable
// degrades to an empty table so only implicit names get evaluated.
func (c *Client) scopeTable(source string) *gdscript.SymbolTable {
	if source == "" {
		return gdscript.EmptyTable()
	}
	path := source
	if rest, ok := strings.CutPrefix(source, resourceScheme); ok {
		if c.projectRoot == "" {
			return gdscript.EmptyTable()
		}
		path = filepath.Join(c.projectRoot, filepath.FromSlash(rest))
	}
	return gdscript.ParseFile(path)
}

// candidateNames unions the implicit receiver, the statically visible
// names at the frame's line, and the per-tick implicit argument.
func candidateNames(table *gdscript.SymbolTable, frame StackFrame) []string {
	names := []string{"self"}
	seen := map[string]bool{"self": true}
	for _, n := range table.VariablesInScopeAt(frame.Line) {
		if seen[n] {
			continue
		}
		seen[n] = true
		names = append(names, n)
	}
	if tickFunctions[functionBaseName(frame.Function)] && !seen["delta"] {
		names = append(names, "delta")
	}
	return names
}

func functionBaseName(name string) string {
	name = strings.TrimSuffix(name, "()")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// resolveVariable evaluates one candidate name in the frame. A false
// return means the name did not evaluate and should be silently omitted.
func (c *Client) resolveVariable(ctx context.Context, frameID int, name string, maxDepth int) (Variable, bool) {
	req := &dap.EvaluateRequest{Request: c.newRequest("evaluate")}
	req.Arguments = dap.EvaluateArguments{
		Expression: name,
		FrameId:    frameID,
		Context:    evaluateContext,
	}
	resp, err := c.roundTrip(ctx, req)
	if err != nil {
		return Variable{}, false
	}
	er, ok := resp.(*dap.EvaluateResponse)
	if !ok {
		return Variable{}, false
	}

	v := Variable{Name: name, Value: er.Body.Result, Type: er.Body.Type}
	if v.Type == "" {
		v.Type = InferType(er.Body.Result)
	}
	if er.Body.VariablesReference != 0 {
		c.expand(ctx, &v, er.Body.VariablesReference, 1, maxDepth)
	}
	return v, true
}

// expand descends into a structured value. Recursion stops when the depth
// limit is reached (the raw value is annotated instead) or when the
// adapter hands out no child reference.
func (c *Client) expand(ctx context.Context, v *Variable, ref, depth, maxDepth int) {
	if depth > maxDepth {
		v.Value += " (not expanded: max depth reached)"
		return
	}

	req := &dap.VariablesRequest{Request: c.newRequest("variables")}
	req.Arguments = dap.VariablesArguments{VariablesReference: ref}
	resp, err := c.roundTrip(ctx, req)
	if err != nil {
		// Leave the raw value; expansion is best effort.
		return
	}
	vr, ok := resp.(*dap.VariablesResponse)
	if !ok {
		return
	}

	children := vr.Body.Variables
	total := len(children)
	if total > maxRenderedChildren {
		children = children[:maxRenderedChildren]
	}
	for _, ch := range children {
		child := Variable{Name: ch.Name, Value: ch.Value, Type: ch.Type}
		if child.Type == "" {
			child.Type = InferType(ch.Value)
		}
		if ch.VariablesReference != 0 {
			c.expand(ctx, &child, ch.VariablesReference, depth+1, maxDepth)
		}
		v.Children = append(v.Children, child)
	}
	if total > maxRenderedChildren {
		v.Children = append(v.Children, Variable{
			Name:  "…",
			Value: fmt.Sprintf("and %d more", total-maxRenderedChildren),
		})
	}
}

var tupleValue = regexp.MustCompile(`^\((.*)\)$`)

// InferType guesses a coarse type from the adapter's textual rendering of
// a value. It is deliberately shallow pattern matching and falls back to
// "unknown" rather than failing.
func InferType(value string) string {
	s := strings.TrimSpace(value)
	switch s {
	case "":
		return "unknown"
	case "true", "false":
		return "bool"
	case "null", "<null>", "Nil":
		return "nil"
	}
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return "String"
	}
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return "int"
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return "float"
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		return "Array"
	}
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		return "Dictionary"
	}
	if strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") {
		return "Object"
	}
	if m := tupleValue.FindStringSubmatch(s); m != nil {
		switch strings.Count(m[1], ",") {
		case 1:
			return "Vector2"
		case 2:
			return "Vector3"
		case 3:
			return "Vector4"
		}
	}
	return "unknown"
}
