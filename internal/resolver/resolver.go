// Package resolver classifies identifier uses against the symbol table and
// flags the ones that look misspelled or were never declared.
package resolver

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/robert-at-pretension-io/avr-lint/internal/distance"
	"github.com/robert-at-pretension-io/avr-lint/internal/extractor"
	"github.com/robert-at-pretension-io/avr-lint/internal/finding"
	"github.com/robert-at-pretension-io/avr-lint/internal/source"
)

// Keywords are C keywords, common avr-libc names and fixed-width integer types
// that are never reported.
var Keywords = []string{
	"if", "else", "for", "while", "do", "switch", "case", "default", "break",
	"continue", "return", "goto", "sizeof", "typedef", "struct", "union", "enum",
	"int", "char", "float", "double", "void", "short", "long", "signed",
	"unsigned", "const", "volatile", "static", "extern", "register", "inline",
	"include", "define", "true", "false", "NULL", "bool",
	"uint8_t", "uint16_t", "uint32_t", "uint64_t",
	"int8_t", "int16_t", "int32_t", "int64_t",
	"_delay_ms", "_delay_us", "_BV", "F_CPU", "sei", "cli", "ISR",
}

const delimiters = "(){}[];=+-*/%&|<>!,"

var wordPattern = regexp.MustCompile(`\w+`)

// Resolver checks identifier uses for one analysis run. It is safe for
// concurrent use because it never mutates its state after New.
type Resolver struct {
	symbols   *extractor.SymbolTable
	variables []string
	reserved  map[string]struct{}
}

// New builds a resolver over symbols. reserved extends Keywords, usually with
// the register constants of the selected MCU.
func New(symbols *extractor.SymbolTable, reserved []string) *Resolver {
	r := &Resolver{
		symbols:   symbols,
		variables: symbols.Variables(),
		reserved:  make(map[string]struct{}, len(Keywords)+len(reserved)),
	}
	for _, w := range Keywords {
		r.reserved[w] = struct{}{}
	}
	for _, w := range reserved {
		r.reserved[w] = struct{}{}
	}
	return r
}

// Known reports whether name needs no further checking.
func (r *Resolver) Known(name string) bool {
	if _, ok := r.reserved[name]; ok {
		return true
	}
	return r.symbols.HasVariable(name) || r.symbols.HasFunction(name)
}

// Resolve reports every unknown identifier use on line. A use within two
// edits of a declared variable is reported as a probable typo with a fix that
// substitutes the first occurrence in code; anything else is undefined.
func (r *Resolver) Resolve(line string, lineNum int) []finding.Finding {
	var out []finding.Finding
	for _, name := range Candidates(line) {
		if r.Known(name) {
			continue
		}

		if similar, ok := distance.Closest(name, r.variables); ok {
			out = append(out, finding.Finding{
				Line:     lineNum,
				Rule:     finding.RuleIdentifierTypo,
				Message:  fmt.Sprintf("Possible typo in variable name '%s'. Did you mean '%s'?", name, similar),
				Severity: finding.SevError,
				Fix:      finding.ReplaceFirstWord(line, name, similar),
				Edit:     finding.ReplaceWord(name, similar),
			})
			continue
		}

		out = append(out, finding.Finding{
			Line:     lineNum,
			Rule:     finding.RuleUndefinedIdentifier,
			Message:  fmt.Sprintf("Undefined variable '%s'", name),
			Severity: finding.SevError,
		})
	}
	return out
}

// Candidates returns the identifier uses on line, in order and with repeats.
// A use is a word followed, after optional blanks, by a delimiter or the end
// of the line. Directives, comments, string and character literals and
// numeric literals never yield candidates.
func Candidates(line string) []string {
	code := source.Code(line)
	if code == "" {
		return nil
	}

	var names []string
	for _, loc := range wordPattern.FindAllStringIndex(code, -1) {
		word := code[loc[0]:loc[1]]
		if word[0] >= '0' && word[0] <= '9' {
			continue
		}
		rest := strings.TrimLeft(code[loc[1]:], " \t")
		if rest == "" || strings.IndexByte(delimiters, rest[0]) >= 0 {
			names = append(names, word)
		}
	}
	return names
}
