// Package report renders run results as coloured text, JSON or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/robert-at-pretension-io/avr-lint/internal/facts"
	"github.com/robert-at-pretension-io/avr-lint/internal/finding"
	"github.com/robert-at-pretension-io/avr-lint/internal/metrics"
	"github.com/robert-at-pretension-io/avr-lint/internal/runner"
)

// Format is an output format name.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Formats lists the accepted format names.
var Formats = []Format{FormatText, FormatJSON, FormatYAML}

// FormatNames returns the accepted names joined with '|', for flag help.
func FormatNames() string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return strings.Join(names, "|")
}

// ParseFormat maps a --format value to a Format. "yml" is accepted for YAML.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f == "yml" {
		return FormatYAML, nil
	}
	if slices.Contains(Formats, f) {
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want %s)", s, FormatNames())
}

// Options control text rendering.
type Options struct {
	Color bool
	// Fixed prints the fixed source of every file.
	Fixed bool
}

// Write renders res in format.
func Write(w io.Writer, res *runner.Result, format Format, opts Options) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, res)
	case FormatYAML:
		return WriteYAML(w, res)
	}
	return newPrinter(w, opts).result(res)
}

// WriteSymbols renders symbol tables. Text output is one aligned row per
// declaration.
func WriteSymbols(w io.Writer, tables facts.Tables, format Format) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, tables)
	case FormatYAML:
		return WriteYAML(w, tables)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tLINE\tKIND\tNAME\tTYPE")
	for _, row := range tables.Symbols() {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", row.File, row.Line, row.Kind, row.Name, row.Type)
	}
	return tw.Flush()
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}

// WriteYAML writes v as YAML.
func WriteYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML output: %w", err)
	}
	return enc.Close()
}

type printer struct {
	w    io.Writer
	opts Options
	err  error

	red, yellow, blue, green, bold, faint *color.Color
}

func newPrinter(w io.Writer, opts Options) *printer {
	p := &printer{
		w:      w,
		opts:   opts,
		red:    color.New(color.FgRed),
		yellow: color.New(color.FgYellow),
		blue:   color.New(color.FgBlue),
		green:  color.New(color.FgGreen),
		bold:   color.New(color.Bold),
		faint:  color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.red, p.yellow, p.blue, p.green, p.bold, p.faint} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) header(title string) {
	p.printf("\n%s\n", p.bold.Sprintf("=== %s ===", title))
}

func (p *printer) result(res *runner.Result) error {
	for _, f := range res.Files {
		p.file(f)
	}

	p.header("Summary")
	p.printf("  Files:    %d\n", len(res.Files))
	p.printf("  Errors:   %d\n", res.Summary.Errors)
	p.printf("  Warnings: %d\n", res.Summary.Warnings)
	p.printf("  Info:     %d\n", res.Summary.Info)
	if res.Passed {
		p.printf("  Result:   %s\n", p.green.Sprint("PASS"))
	} else {
		p.printf("  Result:   %s\n", p.red.Sprint("FAIL"))
	}
	return p.err
}

func (p *printer) file(f runner.FileResult) {
	p.printf("%s\n", p.bold.Sprint(f.Path))
	r := f.Report

	if len(r.Findings) == 0 {
		p.printf("  %s no issues found\n", p.green.Sprint("✓"))
	}
	for _, fd := range r.Findings {
		p.printf("%s [%s] %s:%d - %s\n", p.icon(fd.Severity), fd.Rule, f.Path, fd.Line, fd.Message)
		if fd.HasFix() {
			for _, line := range strings.Split(fd.Fix, "\n") {
				p.printf("    %s\n", p.faint.Sprint(line))
			}
		}
	}

	m := r.Metrics
	p.header("Metrics")
	p.printf("  Complexity:             %d/10 (%s)\n", m.Complexity, p.band(metrics.ComplexityBand(m.Complexity)))
	p.printf("  Memory usage:           %d bytes\n", m.MemoryUsage)
	p.printf("  Execution time:         %d ms\n", m.ExecutionTime)
	p.printf("  Optimization potential: %d%% (%s)\n", m.OptimizationPotential, p.band(metrics.OptimizationBand(m.OptimizationPotential)))

	pr := r.Profile
	p.header("Code Profile")
	p.printf("  Functions:   %d\n", pr.Functions)
	p.printf("  Loops:       %d\n", pr.Loops)
	p.printf("  Delays:      %d\n", pr.Delays)
	p.printf("  Port access: %d\n", pr.PortAccess)

	if len(r.Suggestions) > 0 {
		p.header("Suggestions")
		for _, s := range r.Suggestions {
			p.printf("  - %s\n", s)
		}
	}

	if f.Gate != nil && len(f.Gate.Violations) > 0 {
		p.header("Gate Violations")
		for _, v := range f.Gate.Violations {
			p.printf("%s [%s] %s - %s\n", p.icon(finding.Severity(v.Severity)), v.Rule, v.File, v.Message)
		}
	}

	if p.opts.Fixed {
		p.header("Fixed Source")
		for _, line := range r.FixedSource {
			p.printf("%s\n", line)
		}
	}
	if f.FixedPath != "" {
		p.printf("\nFixed source written to %s\n", f.FixedPath)
	}
	p.printf("\n")
}

func (p *printer) icon(sev finding.Severity) string {
	switch sev {
	case finding.SevError:
		return p.red.Sprint("✗")
	case finding.SevWarning:
		return p.yellow.Sprint("⚠")
	}
	return p.blue.Sprint("ℹ")
}

func (p *printer) band(b metrics.Band) string {
	switch b {
	case metrics.BandHigh:
		return p.red.Sprint(string(b))
	case metrics.BandMedium:
		return p.yellow.Sprint(string(b))
	}
	return p.green.Sprint(string(b))
}
