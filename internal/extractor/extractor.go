package extractor

import (
	"fmt"
	"os"
	"sort"

	"github.com/robert-at-pretension-io/avr-lint/internal/source"
)

// Kind tells what a declaration introduced.
type Kind string

const (
	KindInclude  Kind = "include"
	KindFunction Kind = "function"
	KindVariable Kind = "variable"
)

// Declaration records where a name was first seen.
type Declaration struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
	Type string `json:"type,omitempty"`
	Line int    `json:"line"`
}

// SymbolTable holds the includes, functions and variables declared in one
// source text. It is filled once by Collect and only read afterwards.
type SymbolTable struct {
	includes  map[string]struct{}
	functions map[string]struct{}
	variables map[string]struct{}
	decls     []Declaration
}

func newSymbolTable() *SymbolTable {
	return &SymbolTable{
		includes:  make(map[string]struct{}),
		functions: make(map[string]struct{}),
		variables: make(map[string]struct{}),
	}
}

// Collect runs the single forward pass over text. The three detectors are
// independent and may all fire on one line.
func Collect(text source.Text) *SymbolTable {
	st := newSymbolTable()

	for i, line := range text.Lines() {
		lineNum := i + 1

		if m := matchInclude(line); m != nil {
			st.add(st.includes, Declaration{Name: m[0], Kind: KindInclude, Line: lineNum})
		}

		if m := matchFunction(line); m != nil {
			st.add(st.functions, Declaration{Name: m[0], Kind: KindFunction, Type: m[1], Line: lineNum})
		}

		if m := matchVariable(line); m != nil {
			st.add(st.variables, Declaration{Name: m[0], Kind: KindVariable, Type: m[1], Line: lineNum})
		}
	}

	return st
}

// ExtractFile reads path and collects its symbols. The text is returned too
// so callers can report line counts without reading the file twice.
func ExtractFile(path string) (source.Text, *SymbolTable, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return source.Text{}, nil, fmt.Errorf("reading file: %w", err)
	}
	text := source.New(string(content))
	return text, Collect(text), nil
}

func (st *SymbolTable) add(set map[string]struct{}, d Declaration) {
	if _, seen := set[d.Name]; seen {
		return
	}
	set[d.Name] = struct{}{}
	st.decls = append(st.decls, d)
}

// HasInclude reports whether path was included.
func (st *SymbolTable) HasInclude(path string) bool {
	_, ok := st.includes[path]
	return ok
}

// HasFunction reports whether name was declared as a function.
func (st *SymbolTable) HasFunction(name string) bool {
	_, ok := st.functions[name]
	return ok
}

// HasVariable reports whether name was declared as a variable.
func (st *SymbolTable) HasVariable(name string) bool {
	_, ok := st.variables[name]
	return ok
}

// Includes returns the included paths, sorted.
func (st *SymbolTable) Includes() []string { return sortedKeys(st.includes) }

// Functions returns the declared function names, sorted.
func (st *SymbolTable) Functions() []string { return sortedKeys(st.functions) }

// Variables returns the declared variable names, sorted.
func (st *SymbolTable) Variables() []string { return sortedKeys(st.variables) }

// Declarations returns the first declaration of every name in source order.
func (st *SymbolTable) Declarations() []Declaration {
	return append([]Declaration(nil), st.decls...)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
