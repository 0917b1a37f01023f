// =============================================================================
// Analysis pipeline
// =============================================================================
//
// One run turns raw source text into a Report:
//   1. extractor.Collect builds the symbol table in a single forward pass
//   2. rules.Engine inspects every line in order (includes, registers, delays,
//      identifiers, terminators, loops); findings keep that order
//   3. in-place fixes are applied and format.Reindent recomputes indentation
//      from the brace structure of the original lines
//   4. metrics.Calculate summarises line and finding counts
//
// A fault anywhere in the run is recovered here and turned into a degraded
// report holding a single line-0 error. Callers never see a panic.
// =============================================================================

package analyzer

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/robert-at-pretension-io/avr-lint/internal/config"
	"github.com/robert-at-pretension-io/avr-lint/internal/extractor"
	"github.com/robert-at-pretension-io/avr-lint/internal/finding"
	"github.com/robert-at-pretension-io/avr-lint/internal/format"
	"github.com/robert-at-pretension-io/avr-lint/internal/mcu"
	"github.com/robert-at-pretension-io/avr-lint/internal/metrics"
	"github.com/robert-at-pretension-io/avr-lint/internal/resolver"
	"github.com/robert-at-pretension-io/avr-lint/internal/rules"
	"github.com/robert-at-pretension-io/avr-lint/internal/source"
)

// Report is the result of one run.
type Report struct {
	Findings    []finding.Finding `json:"findings" yaml:"findings"`
	FixedSource []string          `json:"fixedSource" yaml:"fixedSource"`
	Metrics     metrics.Metrics   `json:"metrics" yaml:"metrics"`
	Summary     finding.Summary   `json:"summary" yaml:"summary"`
	Profile     metrics.Profile   `json:"profile" yaml:"profile"`
	Suggestions []string          `json:"suggestions" yaml:"suggestions"`
}

// FixedText returns the fixed source joined with newlines.
func (r *Report) FixedText() string {
	return strings.Join(r.FixedSource, "\n")
}

// Degraded reports whether the run failed and the report only carries the
// failure finding.
func (r *Report) Degraded() bool {
	return len(r.Findings) == 1 && r.Findings[0].Rule == finding.RuleAnalysisFailure
}

// Observer receives the duration of each pipeline phase.
type Observer func(phase string, start time.Time, d time.Duration)

// Analyzer runs the pipeline with a fixed configuration. It holds no per-run
// state, so one Analyzer may serve concurrent runs.
type Analyzer struct {
	engine      *rules.Engine
	profile     mcu.Profile
	indentWidth int
	suggestions bool
	logger      *slog.Logger
	observe     Observer
}

// Option customises an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger used for phase and failure records.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithObserver registers a phase timing callback.
func WithObserver(o Observer) Option {
	return func(a *Analyzer) { a.observe = o }
}

// New builds an Analyzer from cfg. A nil cfg uses DefaultConfig.
func New(cfg *config.Config, opts ...Option) (*Analyzer, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	profile, err := mcu.Lookup(cfg.MCU)
	if err != nil {
		return nil, fmt.Errorf("select mcu: %w", err)
	}

	severities, disabled := cfg.RuleOverrides()
	limits := rules.Limits{
		DelayThresholdMs: cfg.Analysis.DelayThresholdMs,
		DelayChunkMs:     cfg.Analysis.DelayChunkMs,
		LoopLookahead:    cfg.Analysis.LoopLookahead,
	}
	def := rules.DefaultLimits()
	if limits.DelayThresholdMs <= 0 {
		limits.DelayThresholdMs = def.DelayThresholdMs
	}
	if limits.DelayChunkMs <= 0 {
		limits.DelayChunkMs = def.DelayChunkMs
	}
	if limits.LoopLookahead <= 0 {
		limits.LoopLookahead = def.LoopLookahead
	}

	width := cfg.Analysis.IndentWidth
	if width <= 0 {
		width = format.DefaultWidth
	}

	a := &Analyzer{
		engine: rules.NewEngine(rules.Options{
			Profile:    profile,
			Limits:     limits,
			Severities: severities,
			Disabled:   disabled,
		}),
		profile:     profile,
		indentWidth: width,
		suggestions: cfg.SuggestionsEnabled(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Analyze runs the default configuration over raw.
func Analyze(raw string) *Report {
	a, err := New(nil)
	if err != nil {
		return failed(err)
	}
	return a.Analyze(raw)
}

// Analyze runs the full pipeline over raw. It always returns a well-formed
// report; internal faults yield a degraded one.
func (a *Analyzer) Analyze(raw string) (report *Report) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			a.logger.Error("analysis failed", "error", err)
			report = failed(err)
		}
	}()

	text := source.New(raw)

	start := time.Now()
	symbols := extractor.Collect(text)
	a.phase("collect", start,
		"includes", len(symbols.Includes()),
		"functions", len(symbols.Functions()),
		"variables", len(symbols.Variables()))

	start = time.Now()
	res := resolver.New(symbols, a.profile.ReservedNames())
	lines := text.Lines()
	fixed := make([]string, len(lines))
	findings := make([]finding.Finding, 0)
	for i, line := range lines {
		ctx := &rules.Context{Text: text, Index: i, Symbols: symbols, Resolver: res}
		modified := line
		for _, f := range a.engine.Inspect(ctx) {
			if f.Line == ctx.LineNumber() {
				modified = f.Edit.Apply(modified)
			}
			findings = append(findings, f)
		}
		fixed[i] = modified
	}
	a.phase("inspect", start, "lines", len(lines), "findings", len(findings))

	start = time.Now()
	fixed = format.Reindent(lines, fixed, a.indentWidth)
	a.phase("format", start)

	start = time.Now()
	report = &Report{
		Findings:    findings,
		FixedSource: fixed,
		Metrics:     metrics.Calculate(len(lines), len(findings)),
		Summary:     finding.Summarize(findings),
		Profile:     metrics.ProfileOf(lines),
		Suggestions: []string{},
	}
	if a.suggestions {
		if hints := metrics.Suggestions(raw); hints != nil {
			report.Suggestions = hints
		}
	}
	a.phase("metrics", start, "complexity", report.Metrics.Complexity)

	return report
}

func (a *Analyzer) phase(name string, start time.Time, attrs ...any) {
	d := time.Since(start)
	if a.observe != nil {
		a.observe(name, start, d)
	}
	a.logger.Debug("phase done", append([]any{"phase", name, "duration", d}, attrs...)...)
}

// failed builds the degraded report for err.
func failed(err error) *Report {
	findings := []finding.Finding{{
		Line:     0,
		Rule:     finding.RuleAnalysisFailure,
		Message:  "Analysis failed: " + err.Error(),
		Severity: finding.SevError,
	}}
	return &Report{
		Findings:    findings,
		FixedSource: []string{},
		Summary:     finding.Summarize(findings),
		Suggestions: []string{},
	}
}
