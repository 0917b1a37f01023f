package finding

import (
	"regexp"
	"strings"

	"github.com/robert-at-pretension-io/avr-lint/internal/source"
)

// Severity classifies a finding.
type Severity string

const (
	// SevError is a defect that needs a code change.
	SevError Severity = "error"
	// SevWarning is a stylistic or risk suggestion.
	SevWarning Severity = "warning"
	// SevInfo is reserved for informational findings.
	SevInfo Severity = "info"
)

// ParseSeverity maps a configured severity name to a Severity.
func ParseSeverity(s string) (Severity, bool) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case SevError:
		return SevError, true
	case SevWarning:
		return SevWarning, true
	case SevInfo:
		return SevInfo, true
	}
	return "", false
}

// Rule identifiers, one per detector family.
const (
	RuleMissingInclude      = "missing-include"
	RuleRegisterTerminator  = "register-terminator"
	RuleBitShift            = "bit-shift"
	RulePinRange            = "pin-range"
	RuleLongDelay           = "long-delay"
	RuleIdentifierTypo      = "identifier-typo"
	RuleUndefinedIdentifier = "undefined-identifier"
	RuleMissingSemicolon    = "missing-semicolon"
	RuleUnsafeLoop          = "unsafe-loop"
	RuleAnalysisFailure     = "analysis-failure"
)

// Rules lists every rule a configuration may reference, in detector order.
var Rules = []string{
	RuleMissingInclude,
	RuleRegisterTerminator,
	RuleBitShift,
	RulePinRange,
	RuleLongDelay,
	RuleIdentifierTypo,
	RuleUndefinedIdentifier,
	RuleMissingSemicolon,
	RuleUnsafeLoop,
}

// Finding is one reported defect or suggestion.
//
// Line refers to the original source text (1-indexed); 0 means the finding is
// not tied to a line. Fix is the proposed replacement or inserted text and may
// span several lines; empty means no fix is offered.
type Finding struct {
	Line     int      `json:"line" yaml:"line"`
	Rule     string   `json:"rule" yaml:"rule"`
	Message  string   `json:"message" yaml:"message"`
	Severity Severity `json:"severity" yaml:"severity"`
	Fix      string   `json:"fix,omitempty" yaml:"fix,omitempty"`

	// Edit is set when the fix can be applied in place to the reported line.
	Edit *Edit `json:"-" yaml:"-"`
}

// HasFix reports whether the finding proposes a fix.
func (f Finding) HasFix() bool {
	return f.Fix != ""
}

// Edit rewrites a single line in place.
type Edit struct {
	// Old is the identifier to replace. Empty means New is appended.
	Old string
	New string
}

// Append returns an edit that appends text to the line.
func Append(text string) *Edit {
	return &Edit{New: text}
}

// ReplaceWord returns an edit that replaces the first whole-word occurrence
// of old with repl.
func ReplaceWord(old, repl string) *Edit {
	return &Edit{Old: old, New: repl}
}

// Apply rewrites line. Appending a terminator the line already ends with is a
// no-op, so two detectors asking for the same ';' produce one.
func (e *Edit) Apply(line string) string {
	if e == nil {
		return line
	}
	if e.Old == "" {
		if strings.HasSuffix(strings.TrimRight(line, " \t"), e.New) {
			return line
		}
		return line + e.New
	}
	return ReplaceFirstWord(line, e.Old, e.New)
}

// ReplaceFirstWord replaces the first whole-word occurrence of word in the
// code of line. Literals and comments are never rewritten.
func ReplaceFirstWord(line, word, repl string) string {
	re, err := regexp.Compile(`\b` + regexp.QuoteMeta(word) + `\b`)
	if err != nil {
		return line
	}
	loc := re.FindStringIndex(source.Code(line))
	if loc == nil {
		return line
	}
	return line[:loc[0]] + repl + line[loc[1]:]
}

// Summary provides aggregate counts.
type Summary struct {
	Total    int `json:"total" yaml:"total"`
	Errors   int `json:"errors" yaml:"errors"`
	Warnings int `json:"warnings" yaml:"warnings"`
	Info     int `json:"info" yaml:"info"`
}

// Summarize counts findings per severity.
func Summarize(findings []Finding) Summary {
	s := Summary{Total: len(findings)}
	for _, f := range findings {
		switch f.Severity {
		case SevError:
			s.Errors++
		case SevWarning:
			s.Warnings++
		case SevInfo:
			s.Info++
		}
	}
	return s
}
