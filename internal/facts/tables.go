package facts

import (
	"cmp"
	"slices"

	"github.com/robert-at-pretension-io/avr-lint/internal/extractor"
)

// Tables is the relational view of the symbols declared across a set of
// files. Each slice is a relation with flat rows.
type Tables struct {
	Files     []FileRow     `json:"files" yaml:"files"`
	Includes  []IncludeRow  `json:"includes" yaml:"includes"`
	Functions []FunctionRow `json:"functions" yaml:"functions"`
	Variables []VariableRow `json:"variables" yaml:"variables"`
}

type FileRow struct {
	Path  string `json:"path" yaml:"path"`
	Lines int    `json:"lines" yaml:"lines"`
}

type IncludeRow struct {
	File   string `json:"file" yaml:"file"`
	Header string `json:"header" yaml:"header"`
	Line   int    `json:"line" yaml:"line"`
}

type FunctionRow struct {
	File       string `json:"file" yaml:"file"`
	Name       string `json:"name" yaml:"name"`
	ReturnType string `json:"return_type" yaml:"return_type"`
	Line       int    `json:"line" yaml:"line"`
}

type VariableRow struct {
	File string `json:"file" yaml:"file"`
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
	Line int    `json:"line" yaml:"line"`
}

// SymbolRow is one declaration of any kind, the shape checked by the
// #Symbols contract.
type SymbolRow struct {
	File string `json:"file" yaml:"file"`
	Kind string `json:"kind" yaml:"kind"`
	Name string `json:"name" yaml:"name"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
	Line int    `json:"line" yaml:"line"`
}

// FileSymbols pairs a file with its collected symbol table.
type FileSymbols struct {
	Path    string
	Lines   int
	Symbols *extractor.SymbolTable
}

// BuildTables flattens per-file symbol tables into relations. Rows are
// ordered by file, then line, then name.
func BuildTables(files []FileSymbols) Tables {
	tables := emptyTables()

	for _, f := range files {
		tables.Files = append(tables.Files, FileRow{Path: f.Path, Lines: f.Lines})
		if f.Symbols == nil {
			continue
		}
		for _, d := range f.Symbols.Declarations() {
			switch d.Kind {
			case extractor.KindInclude:
				tables.Includes = append(tables.Includes, IncludeRow{File: f.Path, Header: d.Name, Line: d.Line})
			case extractor.KindFunction:
				tables.Functions = append(tables.Functions, FunctionRow{File: f.Path, Name: d.Name, ReturnType: d.Type, Line: d.Line})
			case extractor.KindVariable:
				tables.Variables = append(tables.Variables, VariableRow{File: f.Path, Name: d.Name, Type: d.Type, Line: d.Line})
			}
		}
	}

	slices.SortFunc(tables.Files, func(a, b FileRow) int { return cmp.Compare(a.Path, b.Path) })
	slices.SortFunc(tables.Includes, func(a, b IncludeRow) int {
		return cmp.Or(cmp.Compare(a.File, b.File), cmp.Compare(a.Line, b.Line), cmp.Compare(a.Header, b.Header))
	})
	slices.SortFunc(tables.Functions, func(a, b FunctionRow) int {
		return cmp.Or(cmp.Compare(a.File, b.File), cmp.Compare(a.Line, b.Line), cmp.Compare(a.Name, b.Name))
	})
	slices.SortFunc(tables.Variables, func(a, b VariableRow) int {
		return cmp.Or(cmp.Compare(a.File, b.File), cmp.Compare(a.Line, b.Line), cmp.Compare(a.Name, b.Name))
	})

	return tables
}

// Symbols returns every declaration as one relation, ordered by file and
// line. On a shared line includes come before functions before variables.
func (t Tables) Symbols() []SymbolRow {
	rows := make([]SymbolRow, 0, len(t.Includes)+len(t.Functions)+len(t.Variables))
	for _, r := range t.Includes {
		rows = append(rows, SymbolRow{File: r.File, Kind: string(extractor.KindInclude), Name: r.Header, Line: r.Line})
	}
	for _, r := range t.Functions {
		rows = append(rows, SymbolRow{File: r.File, Kind: string(extractor.KindFunction), Name: r.Name, Type: r.ReturnType, Line: r.Line})
	}
	for _, r := range t.Variables {
		rows = append(rows, SymbolRow{File: r.File, Kind: string(extractor.KindVariable), Name: r.Name, Type: r.Type, Line: r.Line})
	}
	slices.SortStableFunc(rows, func(a, b SymbolRow) int {
		return cmp.Or(cmp.Compare(a.File, b.File), cmp.Compare(a.Line, b.Line))
	})
	return rows
}

func emptyTables() Tables {
	return Tables{
		Files:     []FileRow{},
		Includes:  []IncludeRow{},
		Functions: []FunctionRow{},
		Variables: []VariableRow{},
	}
}
