package validator

// =============================================================================
// CONTRACT GUARD
// =============================================================================
//
// Every report is checked against schema.cue before it reaches the policy
// gate or any output writer. A renamed JSON field or an out-of-range metric
// fails here with the CUE path of the offending value instead of silently
// producing an empty gate input.
//
// When validation fails, fix the producer (analyzer, metrics, facts), not the
// schema, unless the report shape really changed.
// =============================================================================

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaFS embed.FS

// Definition names in schema.cue.
const (
	ReportDef  = "#Report"
	SymbolsDef = "#Symbols"
)

// Validator checks data against the embedded CUE schema. A cue.Context is not
// safe for concurrent use, so calls are serialised.
type Validator struct {
	mu     sync.Mutex
	ctx    *cue.Context
	schema cue.Value
}

// New creates a Validator with the embedded schema.
func New() (*Validator, error) {
	ctx := cuecontext.New()

	schemaBytes, err := schemaFS.ReadFile("schema.cue")
	if err != nil {
		return nil, fmt.Errorf("loading embedded schema: %w", err)
	}

	schema := ctx.CompileBytes(schemaBytes, cue.Filename("schema.cue"))
	if schema.Err() != nil {
		return nil, fmt.Errorf("compiling schema: %w", schema.Err())
	}

	return &Validator{
		ctx:    ctx,
		schema: schema,
	}, nil
}

// Validate checks that report conforms to #Report.
func (v *Validator) Validate(report interface{}) error {
	jsonBytes, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report to JSON: %w", err)
	}
	return v.ValidateJSON(jsonBytes)
}

// ValidateJSON validates JSON report bytes against #Report.
func (v *Validator) ValidateJSON(jsonBytes []byte) error {
	if err := v.check(ReportDef, jsonBytes); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// ValidateSymbols checks symbol table rows against #Symbols.
func (v *Validator) ValidateSymbols(rows interface{}) error {
	jsonBytes, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshaling symbols to JSON: %w", err)
	}
	if err := v.check(SymbolsDef, jsonBytes); err != nil {
		return fmt.Errorf("symbols schema validation failed: %w", err)
	}
	return nil
}

// ValidationErrors returns every problem with report, one entry per CUE
// error, or nil when it is valid.
func (v *Validator) ValidationErrors(report interface{}) []string {
	jsonBytes, err := json.Marshal(report)
	if err != nil {
		return []string{fmt.Sprintf("marshal error: %v", err)}
	}

	err = v.check(ReportDef, jsonBytes)
	if err == nil {
		return nil
	}

	var errs []string
	for _, e := range errors.Errors(err) {
		errs = append(errs, e.Error())
	}
	return errs
}

func (v *Validator) check(def string, jsonBytes []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	dataValue := v.ctx.CompileBytes(jsonBytes)
	if dataValue.Err() != nil {
		return fmt.Errorf("compiling data as CUE: %w", dataValue.Err())
	}

	schemaDef := v.schema.LookupPath(cue.ParsePath(def))
	if schemaDef.Err() != nil {
		return fmt.Errorf("looking up %s definition: %w", def, schemaDef.Err())
	}

	return schemaDef.Unify(dataValue).Validate(cue.Concrete(true))
}
