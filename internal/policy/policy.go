// Package policy is the pass/fail gate applied to analysis reports. The stock
// gate is an embedded Rego module; projects may add their own modules to the
// same package.
package policy

import (
	"cmp"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/open-policy-agent/opa/rego"

	"github.com/robert-at-pretension-io/avr-lint/internal/analyzer"
	"github.com/robert-at-pretension-io/avr-lint/internal/finding"
	"github.com/robert-at-pretension-io/avr-lint/internal/metrics"
)

//go:embed gate.rego
var gateModule string

// Query evaluated against every report.
const Query = "data.avr.gate.violations"

// Engine evaluates the gate policies.
type Engine struct {
	query   rego.PreparedEvalQuery
	modules []string
}

// Violation represents a gate violation
type Violation struct {
	Rule     string `json:"rule" yaml:"rule"`
	Severity string `json:"severity" yaml:"severity"`
	File     string `json:"file" yaml:"file"`
	Line     int    `json:"line" yaml:"line"`
	Message  string `json:"message" yaml:"message"`
}

// Result contains the evaluation results. Passed is false when any violation
// has error severity.
type Result struct {
	Violations []Violation `json:"violations" yaml:"violations"`
	Passed     bool        `json:"passed" yaml:"passed"`
}

// Limits are the gate thresholds; -1 means unlimited.
type Limits struct {
	MaxErrors   int `json:"max_errors"`
	MaxWarnings int `json:"max_warnings"`
}

// Input is the document passed to OPA
type Input struct {
	File     string            `json:"file"`
	Summary  finding.Summary   `json:"summary"`
	Metrics  metrics.Metrics   `json:"metrics"`
	Findings []finding.Finding `json:"findings"`
	Limits   Limits            `json:"limits"`
}

// InputFor builds the gate input for one analysed file.
func InputFor(file string, report *analyzer.Report, limits Limits) Input {
	return Input{
		File:     file,
		Summary:  report.Summary,
		Metrics:  report.Metrics,
		Findings: report.Findings,
		Limits:   limits,
	}
}

// New prepares the gate query. The embedded gate module is always loaded;
// every *.rego file in policyDir is added to it. An empty policyDir loads the
// stock gate only.
func New(ctx context.Context, policyDir string) (*Engine, error) {
	engine := &Engine{modules: []string{"gate.rego"}}
	opts := []func(*rego.Rego){
		rego.Module("gate.rego", gateModule),
	}

	if policyDir != "" {
		info, err := os.Stat(policyDir)
		if err != nil {
			return nil, fmt.Errorf("policy dir: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("policy dir %s is not a directory", policyDir)
		}

		files, err := filepath.Glob(filepath.Join(policyDir, "*.rego"))
		if err != nil {
			return nil, fmt.Errorf("finding policy files: %w", err)
		}
		slices.Sort(files)
		for _, f := range files {
			content, err := os.ReadFile(f)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", f, err)
			}
			opts = append(opts, rego.Module(f, string(content)))
			engine.modules = append(engine.modules, f)
		}
	}

	opts = append(opts, rego.Query(Query))
	query, err := rego.New(opts...).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("preparing gate query: %w", err)
	}
	engine.query = query

	return engine, nil
}

// Modules returns the names of the loaded policy modules.
func (e *Engine) Modules() []string {
	return slices.Clone(e.modules)
}

// Evaluate runs the gate against input. It is safe for concurrent use.
func (e *Engine) Evaluate(ctx context.Context, input Input) (*Result, error) {
	if input.Findings == nil {
		input.Findings = []finding.Finding{}
	}
	inputMap, err := structToMap(input)
	if err != nil {
		return nil, fmt.Errorf("converting input: %w", err)
	}

	rs, err := e.query.Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating gate: %w", err)
	}

	result := &Result{Violations: []Violation{}, Passed: true}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		violations, ok := rs[0].Expressions[0].Value.([]interface{})
		if ok {
			for _, v := range violations {
				vmap, ok := v.(map[string]interface{})
				if !ok {
					continue
				}
				result.Violations = append(result.Violations, Violation{
					Rule:     getString(vmap, "rule"),
					Severity: getString(vmap, "severity"),
					File:     getString(vmap, "file"),
					Line:     getInt(vmap, "line"),
					Message:  getString(vmap, "message"),
				})
			}
		}
	}

	slices.SortFunc(result.Violations, func(a, b Violation) int {
		return cmp.Or(
			cmp.Compare(a.File, b.File),
			cmp.Compare(a.Line, b.Line),
			cmp.Compare(a.Rule, b.Rule),
			cmp.Compare(a.Message, b.Message),
		)
	})
	for _, v := range result.Violations {
		if v.Severity == string(finding.SevError) {
			result.Passed = false
		}
	}

	return result, nil
}

// Helper functions
func structToMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	err = json.Unmarshal(data, &result)
	return result, err
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(m map[string]interface{}, key string) int {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		case json.Number:
			i, _ := n.Int64()
			return int(i)
		}
	}
	return 0
}
