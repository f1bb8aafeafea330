package mcp

import (
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

var errTest = errors.New("test failure")

// newRequest creates a CallToolRequest with the given arguments
func newRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content of a tool result.
func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("result is nil")
	}
	if len(result.Content) != 1 {
		t.Fatalf("expected 1 content item, got %d", len(result.Content))
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content should be TextContent, got %T", result.Content[0])
	}
	return text.Text
}

func TestNewToolResultError(t *testing.T) {
	result := newToolResultError("test error message")

	if !result.IsError {
		t.Error("IsError should be true")
	}
	if got := resultText(t, result); got != "test error message" {
		t.Errorf("Text = %v, want 'test error message'", got)
	}
}

func TestNewToolResultJSON(t *testing.T) {
	result := newToolResultJSON(map[string]any{"count": 2})

	if result.IsError {
		t.Error("IsError should be false")
	}
	text := resultText(t, result)
	if !strings.Contains(text, `"count": 2`) {
		t.Errorf("JSON output missing count field: %s", text)
	}
}

func TestWrapErr(t *testing.T) {
	result := wrapErr("Connect", errTest)

	if !result.IsError {
		t.Error("IsError should be true")
	}
	text := resultText(t, result)
	if text != "Connect failed: test failure" {
		t.Errorf("Text = %v", text)
	}
}

func TestGetStr(t *testing.T) {
	args := map[string]any{"name": "player", "count": 3.0}

	if got := getStr(args, "name"); got != "player" {
		t.Errorf("getStr = %v, want player", got)
	}
	if got := getStr(args, "count"); got != "" {
		t.Errorf("getStr on non-string = %v, want empty", got)
	}
	if got := getStr(args, "missing"); got != "" {
		t.Errorf("getStr on missing = %v, want empty", got)
	}
}

func TestGetInt(t *testing.T) {
	args := map[string]any{"port": 6007.0, "name": "x"}

	if got := getInt(args, "port", 6006); got != 6007 {
		t.Errorf("getInt = %v, want 6007", got)
	}
	if got := getInt(args, "missing", 6006); got != 6006 {
		t.Errorf("getInt default = %v, want 6006", got)
	}
	if got := getInt(args, "name", 1); got != 1 {
		t.Errorf("getInt on non-number = %v, want default 1", got)
	}
}

func TestGetBool(t *testing.T) {
	args := map[string]any{"recursive": true}

	if !getBool(args, "recursive", false) {
		t.Error("getBool should return true")
	}
	if getBool(args, "missing", false) {
		t.Error("getBool default should be false")
	}
}

func TestRequireStr(t *testing.T) {
	if _, errResult := requireStr(map[string]any{"source": "res://a.gd"}, "source"); errResult != nil {
		t.Error("requireStr should accept present value")
	}

	_, errResult := requireStr(map[string]any{}, "source")
	if errResult == nil {
		t.Fatal("requireStr should reject missing value")
	}
	if got := resultText(t, errResult); got != "source is required" {
		t.Errorf("Text = %v", got)
	}

	if _, errResult := requireStr(map[string]any{"source": ""}, "source"); errResult == nil {
		t.Error("requireStr should reject empty value")
	}
}

func TestParseLines(t *testing.T) {
	lines, err := parseLines("10, 25,40")
	if err != nil {
		t.Fatalf("parseLines: %v", err)
	}
	if len(lines) != 3 || lines[0] != 10 || lines[1] != 25 || lines[2] != 40 {
		t.Errorf("parseLines = %v", lines)
	}

	lines, err = parseLines("")
	if err != nil {
		t.Fatalf("parseLines empty: %v", err)
	}
	if lines != nil {
		t.Errorf("parseLines empty = %v, want nil", lines)
	}

	if _, err := parseLines("10,abc"); err == nil {
		t.Error("parseLines should reject non-numeric input")
	}
	if _, err := parseLines("0"); err == nil {
		t.Error("parseLines should reject line 0")
	}
}
