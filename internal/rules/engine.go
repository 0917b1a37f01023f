// Package rules holds the ordered line detectors of the checker.
package rules

import (
	"github.com/robert-at-pretension-io/avr-lint/internal/extractor"
	"github.com/robert-at-pretension-io/avr-lint/internal/finding"
	"github.com/robert-at-pretension-io/avr-lint/internal/mcu"
	"github.com/robert-at-pretension-io/avr-lint/internal/resolver"
	"github.com/robert-at-pretension-io/avr-lint/internal/source"
)

// Context is what a detector may look at for one line: the whole text (for
// lookahead), the line position and the run's symbol table.
type Context struct {
	Text     source.Text
	Index    int // 0-based
	Symbols  *extractor.SymbolTable
	Resolver *resolver.Resolver
}

// LineNumber returns the 1-based number of the inspected line.
func (c *Context) LineNumber() int {
	return c.Index + 1
}

// Lookahead returns up to n lines after the inspected one.
func (c *Context) Lookahead(n int) []string {
	return c.Text.After(c.Index, n)
}

// Detector inspects one line and reports zero or more findings.
type Detector interface {
	Name() string
	Inspect(line string, ctx *Context) []finding.Finding
}

// Limits are the numeric thresholds used by the detectors.
type Limits struct {
	DelayThresholdMs int
	DelayChunkMs     int
	LoopLookahead    int
}

// DefaultLimits returns the stock thresholds.
func DefaultLimits() Limits {
	return Limits{
		DelayThresholdMs: 1000,
		DelayChunkMs:     500,
		LoopLookahead:    4,
	}
}

// Options configure an Engine.
type Options struct {
	Profile mcu.Profile
	Limits  Limits

	// Severities overrides the default severity per rule id.
	Severities map[string]finding.Severity

	// Disabled rule ids produce no findings.
	Disabled map[string]bool
}

// Engine runs the detectors in their fixed order.
type Engine struct {
	detectors  []Detector
	severities map[string]finding.Severity
	disabled   map[string]bool
}

// NewEngine registers the stock detectors in order: includes, register usage,
// delay bounds, identifiers, statement terminators, loop safety.
func NewEngine(opts Options) *Engine {
	if len(opts.Profile.Ports) == 0 {
		opts.Profile = mcu.Baseline
	}
	if opts.Limits == (Limits{}) {
		opts.Limits = DefaultLimits()
	}
	if opts.Limits.DelayChunkMs <= 0 {
		opts.Limits.DelayChunkMs = DefaultLimits().DelayChunkMs
	}
	return NewEngineWith(opts,
		&includeDetector{profile: opts.Profile},
		&registerDetector{profile: opts.Profile},
		&delayDetector{threshold: opts.Limits.DelayThresholdMs, chunk: opts.Limits.DelayChunkMs},
		identifierDetector{},
		terminatorDetector{},
		&loopDetector{lookahead: opts.Limits.LoopLookahead},
	)
}

// NewEngineWith builds an engine over an explicit detector list.
func NewEngineWith(opts Options, detectors ...Detector) *Engine {
	return &Engine{
		detectors:  detectors,
		severities: opts.Severities,
		disabled:   opts.Disabled,
	}
}

// Detectors returns the registered detector names in run order.
func (e *Engine) Detectors() []string {
	names := make([]string, len(e.detectors))
	for i, d := range e.detectors {
		names[i] = d.Name()
	}
	return names
}

// Inspect runs every detector over the line at ctx.Index and returns their
// findings in detector order.
func (e *Engine) Inspect(ctx *Context) []finding.Finding {
	line := ctx.Text.Line(ctx.LineNumber())

	var out []finding.Finding
	for _, d := range e.detectors {
		for _, f := range d.Inspect(line, ctx) {
			if e.disabled[f.Rule] {
				continue
			}
			if sev, ok := e.severities[f.Rule]; ok {
				f.Severity = sev
			}
			out = append(out, f)
		}
	}
	return out
}
