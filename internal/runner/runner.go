// =============================================================================
// Multi-file runner
// =============================================================================
//
// A run resolves its inputs, then analyses files in parallel. For every file:
//   1. analyzer.Analyze produces the report (never fails, may degrade)
//   2. the CUE contract checks the report shape; a mismatch aborts the run
//   3. the Rego gate decides pass/fail from the report summary
//   4. with a fixed-output directory, the fixed source is written out
//
// Results keep the sorted input order regardless of completion order.
// =============================================================================

package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/robert-at-pretension-io/avr-lint/internal/analyzer"
	"github.com/robert-at-pretension-io/avr-lint/internal/config"
	"github.com/robert-at-pretension-io/avr-lint/internal/extractor"
	"github.com/robert-at-pretension-io/avr-lint/internal/facts"
	"github.com/robert-at-pretension-io/avr-lint/internal/finding"
	"github.com/robert-at-pretension-io/avr-lint/internal/policy"
	"github.com/robert-at-pretension-io/avr-lint/internal/validator"
)

// ErrNoInputs is returned when the given paths hold no source files.
var ErrNoInputs = errors.New("no source files found")

// StdinName labels input read from standard input.
const StdinName = "<stdin>"

// stdinFixedName is the fixed-output file name used for stdin input.
const stdinFixedName = "optimized_code.c"

// FileResult is the outcome for one input.
type FileResult struct {
	Path      string           `json:"path" yaml:"path"`
	Report    *analyzer.Report `json:"report" yaml:"report"`
	Gate      *policy.Result   `json:"gate" yaml:"gate"`
	FixedPath string           `json:"fixedPath,omitempty" yaml:"fixedPath,omitempty"`
}

// Result is the outcome of a run.
type Result struct {
	Files   []FileResult    `json:"files" yaml:"files"`
	Summary finding.Summary `json:"summary" yaml:"summary"`
	Passed  bool            `json:"passed" yaml:"passed"`
}

// Runner analyses files with one configuration.
type Runner struct {
	cfg       *config.Config
	logger    *slog.Logger
	timing    *TimingRecorder
	validator *validator.Validator
	gate      *policy.Engine
	fixedDir  string
}

// Option customises a Runner.
type Option func(*Runner)

// WithLogger sets the run logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTiming records phase timings into tr.
func WithTiming(tr *TimingRecorder) Option {
	return func(r *Runner) { r.timing = tr }
}

// WithFixedDir writes the fixed source of every input into dir.
func WithFixedDir(dir string) Option {
	return func(r *Runner) { r.fixedDir = dir }
}

// New prepares a runner: it checks the analysis settings, loads the report
// contract and prepares the gate query.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Runner, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	r := &Runner{
		cfg:    cfg,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}

	if _, err := analyzer.New(cfg); err != nil {
		return nil, err
	}

	v, err := validator.New()
	if err != nil {
		return nil, fmt.Errorf("loading report contract: %w", err)
	}
	r.validator = v

	gate, err := policy.New(ctx, cfg.Policy.Dir)
	if err != nil {
		return nil, fmt.Errorf("loading gate policy: %w", err)
	}
	r.gate = gate
	r.logger.Debug("gate ready", "modules", gate.Modules())

	return r, nil
}

// Run analyses every source file under paths.
func (r *Runner) Run(ctx context.Context, paths []string) (*Result, error) {
	runStart := time.Now()

	files, err := r.cfg.ResolveInputs(paths)
	if err != nil {
		return nil, err
	}
	r.timing.RecordStage("scan", runStart, time.Since(runStart), "")
	if len(files) == 0 {
		return nil, ErrNoInputs
	}
	r.logger.Debug("found source files", "count", len(files))

	stepStart := time.Now()
	results := make([]FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism())
	for i, path := range files {
		g.Go(func() error {
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			fr, err := r.analyze(gctx, path, string(content))
			if err != nil {
				return err
			}
			results[i] = *fr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	r.timing.RecordStage("analyze", stepStart, time.Since(stepStart), "")

	res := collect(results)
	r.timing.RecordStage("total", runStart, time.Since(runStart), status(res.Passed))
	return res, nil
}

// RunSource analyses raw text that did not come from a file, such as stdin.
func (r *Runner) RunSource(ctx context.Context, name, raw string) (*Result, error) {
	runStart := time.Now()
	fr, err := r.analyze(ctx, name, raw)
	if err != nil {
		return nil, err
	}
	res := collect([]FileResult{*fr})
	r.timing.RecordStage("total", runStart, time.Since(runStart), status(res.Passed))
	return res, nil
}

func (r *Runner) analyze(ctx context.Context, path, raw string) (*FileResult, error) {
	logger := r.logger.With("file", path)
	a, err := analyzer.New(r.cfg,
		analyzer.WithLogger(logger),
		analyzer.WithObserver(func(phase string, start time.Time, d time.Duration) {
			r.timing.RecordFile(phase, path, "", start, d)
		}),
	)
	if err != nil {
		return nil, err
	}
	report := a.Analyze(raw)

	start := time.Now()
	if err := r.checkContract(logger, report); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.timing.RecordFile("validate", path, "", start, time.Since(start))

	start = time.Now()
	maxErrors, maxWarnings := r.cfg.Limits()
	gate, err := r.gate.Evaluate(ctx, policy.InputFor(path, report, policy.Limits{
		MaxErrors:   maxErrors,
		MaxWarnings: maxWarnings,
	}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.timing.RecordFile("policy", path, status(gate.Passed), start, time.Since(start))

	fr := &FileResult{Path: path, Report: report, Gate: gate}
	if r.fixedDir != "" && !report.Degraded() {
		fixed, err := r.writeFixed(path, report)
		if err != nil {
			return nil, err
		}
		fr.FixedPath = fixed
	}

	logger.Debug("file done",
		"findings", report.Summary.Total,
		"passed", gate.Passed)
	return fr, nil
}

// checkContract validates report and, on a mismatch, logs and returns every
// problem CUE found rather than only the first.
func (r *Runner) checkContract(logger *slog.Logger, report *analyzer.Report) error {
	if err := r.validator.Validate(report); err == nil {
		return nil
	}
	problems := r.validator.ValidationErrors(report)
	for _, p := range problems {
		logger.Error("report contract violation", "problem", p)
	}
	return fmt.Errorf("schema validation failed: %d problem(s): %s", len(problems), strings.Join(problems, "; "))
}

func (r *Runner) writeFixed(path string, report *analyzer.Report) (string, error) {
	if err := os.MkdirAll(r.fixedDir, 0o755); err != nil {
		return "", fmt.Errorf("creating fixed output dir: %w", err)
	}
	out := filepath.Join(r.fixedDir, FixedName(path))
	if err := os.WriteFile(out, []byte(report.FixedText()+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("writing fixed source: %w", err)
	}
	return out, nil
}

// FixedName is the file name the fixed source of path is written under:
// main.c becomes main_optimized.c, and stdin input becomes optimized_code.c.
func FixedName(path string) string {
	if path == StdinName || path == "" {
		return stdinFixedName
	}
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "_optimized" + ext
}

// Symbols builds the symbol fact tables for every source file under paths
// and checks them against the contract.
func (r *Runner) Symbols(ctx context.Context, paths []string) (facts.Tables, error) {
	files, err := r.cfg.ResolveInputs(paths)
	if err != nil {
		return facts.Tables{}, err
	}
	if len(files) == 0 {
		return facts.Tables{}, ErrNoInputs
	}

	collected := make([]facts.FileSymbols, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism())
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, symbols, err := extractor.ExtractFile(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			collected[i] = facts.FileSymbols{
				Path:    path,
				Lines:   text.Len(),
				Symbols: symbols,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return facts.Tables{}, err
	}

	tables := facts.BuildTables(collected)
	if err := r.validator.ValidateSymbols(tables.Symbols()); err != nil {
		return facts.Tables{}, err
	}
	return tables, nil
}

func (r *Runner) parallelism() int {
	if n := r.cfg.Analysis.MaxParallelFiles; n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}

func collect(files []FileResult) *Result {
	res := &Result{Files: files, Passed: true}
	for _, f := range files {
		res.Summary.Total += f.Report.Summary.Total
		res.Summary.Errors += f.Report.Summary.Errors
		res.Summary.Warnings += f.Report.Summary.Warnings
		res.Summary.Info += f.Report.Summary.Info
		if !f.Gate.Passed {
			res.Passed = false
		}
	}
	return res
}

func status(passed bool) string {
	if passed {
		return "pass"
	}
	return "fail"
}
