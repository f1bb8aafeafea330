// Package gdscript reconstructs which variable names are lexically
// visible at a given line of a GDScript source file.
//
// Godot's debug adapter exposes no proper lexical scopes, so this package
// compensates with a best-effort, indentation-aware line scan. It is
// explicitly not a GDScript parser: it recovers variable names and their
// extents, nothing more, and it never fails on malformed input.
package gdscript

import (
	"os"
	"regexp"
	"strings"
)

// VariableDecl is one recorded declaration.
type VariableDecl struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
	Line int    `json:"line"`
}

// FunctionInfo is one function with its lexical extent and the names
// declared inside it. Extents never overlap and are ordered by StartLine.
type FunctionInfo struct {
	Name       string         `json:"name"`
	StartLine  int            `json:"startLine"`
	EndLine    int            `json:"endLine"`
	Parameters []string       `json:"parameters"`
	Locals     []VariableDecl `json:"locals"`
}

// SymbolTable is the analyzer's reconstruction of a script's declared
// names.
type SymbolTable struct {
	ClassVariables []VariableDecl `json:"classVariables"`
	Functions      []FunctionInfo `json:"functions"`
}

// EmptyTable returns a table with no symbols, the degraded result for
// unreadable or missing scripts.
func EmptyTable() *SymbolTable {
	return &SymbolTable{ClassVariables: []VariableDecl{}, Functions: []FunctionInfo{}}
}

var (
	funcPattern = regexp.MustCompile(`^(\s*)(?:static\s+)?func\s+([A-Za-z_]\w*)\s*\((.*)$`)

	// Class-level declarations: var/const, optionally preceded by an
	// export/onready annotation in either the Godot 3 keyword or the
	// Godot 4 @annotation form. Matched only at zero indentation.
	classVarPattern = regexp.MustCompile(`^(?:@?(?:export|onready)\S*\s+)?(?:var|const)\s+([A-Za-z_]\w*)(?:\s*:\s*([A-Za-z_][\w.\[\]]*))?`)

	localVarPattern = regexp.MustCompile(`^\s*var\s+([A-Za-z_]\w*)(?:\s*:\s*([A-Za-z_][\w.\[\]]*))?`)
	forPattern      = regexp.MustCompile(`^\s*for\s+([A-Za-z_]\w*)\s+in\s`)
	assignPattern   = regexp.MustCompile(`^\s*([A-Za-z_][\w.]*)\s*=([^=]|$)`)
	identPattern    = regexp.MustCompile(`^[A-Za-z_]\w*`)
)

// ParseFile reads and analyzes a script. A file that cannot be read
// yields an empty table, never an error.
func ParseFile(path string) *SymbolTable {
	data, err := os.ReadFile(path)
	if err != nil {
		return EmptyTable()
	}
	return Parse(string(data))
}

// Parse analyzes script source text in a single top-to-bottom scan.
//
// A function starts at any line matching a func definition, at any
// indentation, and ends just before the first later non-blank,
// non-comment line indented at or below its definition. Class variables
// are only recognized at zero indentation. Inside a function body,
// explicit var declarations and for-loop iteration variables are always
// recorded; a bare assignment to a dot-free name that is not yet known
// and is not self is treated as a possible implicit declaration. That
// last rule is a heuristic and may both over- and under-approximate.
func Parse(source string) *SymbolTable {
	table := EmptyTable()
	lines := strings.Split(source, "\n")

	var current *FunctionInfo
	currentIndent := 0

	closeCurrent := func(endLine int) {
		if current == nil {
			return
		}
		current.EndLine = endLine
		table.Functions = append(table.Functions, *current)
		current = nil
	}

	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		indent := indentWidth(line)
		if current != nil && indent <= currentIndent {
			// Boundary line: excluded from the function's body.
			closeCurrent(lineNo - 1)
		}

		if m := funcPattern.FindStringSubmatch(line); m != nil {
			closeCurrent(lineNo - 1)
			current = &FunctionInfo{
				Name:       m[2],
				StartLine:  lineNo,
				Parameters: parseParameters(m[3]),
				Locals:     []VariableDecl{},
			}
			currentIndent = indentWidth(m[1])
			continue
		}

		if current == nil {
			if indent == 0 {
				if m := classVarPattern.FindStringSubmatch(line); m != nil {
					table.ClassVariables = append(table.ClassVariables, VariableDecl{
						Name: m[1],
						Type: m[2],
						Line: lineNo,
					})
				}
			}
			continue
		}

		if m := localVarPattern.FindStringSubmatch(line); m != nil {
			current.Locals = append(current.Locals, VariableDecl{Name: m[1], Type: m[2], Line: lineNo})
			continue
		}
		if m := forPattern.FindStringSubmatch(line); m != nil {
			current.Locals = append(current.Locals, VariableDecl{Name: m[1], Line: lineNo})
			continue
		}
		if m := assignPattern.FindStringSubmatch(line); m != nil {
			name := m[1]
			if strings.Contains(name, ".") || name == "self" {
				continue
			}
			if table.hasClassVariable(name) || current.knows(name) {
				continue
			}
			// Possible implicit declaration.
			current.Locals = append(current.Locals, VariableDecl{Name: name, Line: lineNo})
		}
	}
	closeCurrent(len(lines))

	return table
}

// VariablesInScopeAt returns all class variables plus, when line falls
// inside a function's extent, that function's parameters and the locals
// declared at or before line.
func (t *SymbolTable) VariablesInScopeAt(line int) []string {
	names := make([]string, 0, len(t.ClassVariables))
	for _, v := range t.ClassVariables {
		names = append(names, v.Name)
	}
	fn := t.FunctionAt(line)
	if fn == nil {
		return names
	}
	names = append(names, fn.Parameters...)
	for _, l := range fn.Locals {
		if l.Line <= line {
			names = append(names, l.Name)
		}
	}
	return names
}

// FunctionAt returns the function whose extent contains line. Extents do
// not overlap, so at most one function matches.
func (t *SymbolTable) FunctionAt(line int) *FunctionInfo {
	for i := range t.Functions {
		f := &t.Functions[i]
		if line >= f.StartLine && line <= f.EndLine {
			return f
		}
	}
	return nil
}

func (t *SymbolTable) hasClassVariable(name string) bool {
	for _, v := range t.ClassVariables {
		if v.Name == name {
			return true
		}
	}
	return false
}

func (f *FunctionInfo) knows(name string) bool {
	for _, p := range f.Parameters {
		if p == name {
			return true
		}
	}
	for _, l := range f.Locals {
		if l.Name == name {
			return true
		}
	}
	return false
}

// parseParameters splits a parameter list on commas and keeps the leading
// identifier of each entry, discarding type annotations and defaults.
// Defaults containing commas confuse the split; that imprecision is
// accepted, consumers treat the result as candidates, not truth.
func parseParameters(raw string) []string {
	if i := strings.LastIndex(raw, ")"); i >= 0 {
		raw = raw[:i]
	}
	params := []string{}
	for _, part := range strings.Split(raw, ",") {
		name := identPattern.FindString(strings.TrimSpace(part))
		if name != "" {
			params = append(params, name)
		}
	}
	return params
}

// indentWidth measures leading whitespace, a tab counting as four
// columns. Only relative comparison matters; consistent files behave
// identically under any tab width.
func indentWidth(line string) int {
	width := 0
	for _, r := range line {
		switch r {
		case ' ':
			width++
		case '\t':
			width += 4
		default:
			return width
		}
	}
	return width
}
