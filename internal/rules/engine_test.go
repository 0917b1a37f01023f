package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/avr-lint/internal/extractor"
	"github.com/robert-at-pretension-io/avr-lint/internal/finding"
	"github.com/robert-at-pretension-io/avr-lint/internal/mcu"
	"github.com/robert-at-pretension-io/avr-lint/internal/resolver"
	"github.com/robert-at-pretension-io/avr-lint/internal/source"
)

// inspectAll runs the engine over every line of src, the way the pipeline does.
func inspectAll(t *testing.T, e *Engine, src string) []finding.Finding {
	t.Helper()
	text := source.New(src)
	st := extractor.Collect(text)
	res := resolver.New(st, mcu.Baseline.ReservedNames())

	var out []finding.Finding
	for i := 0; i < text.Len(); i++ {
		out = append(out, e.Inspect(&Context{Text: text, Index: i, Symbols: st, Resolver: res})...)
	}
	return out
}

func byRule(findings []finding.Finding, rule string) []finding.Finding {
	var out []finding.Finding
	for _, f := range findings {
		if f.Rule == rule {
			out = append(out, f)
		}
	}
	return out
}

func TestDetectorOrder(t *testing.T) {
	e := NewEngine(Options{})
	assert.Equal(t, []string{"includes", "registers", "delays", "identifiers", "terminators", "loops"}, e.Detectors())
}

func TestMissingIOInclude(t *testing.T) {
	got := inspectAll(t, NewEngine(Options{}), "DDRB = 0xFF;")

	includes := byRule(got, finding.RuleMissingInclude)
	require.Len(t, includes, 1)
	assert.Equal(t, 1, includes[0].Line)
	assert.Equal(t, finding.SevError, includes[0].Severity)
	assert.Equal(t, "#include <avr/io.h>\nDDRB = 0xFF;", includes[0].Fix)
}

func TestMissingIncludeReportedAtLineOnePerUse(t *testing.T) {
	src := "int main(void) {\n  _delay_ms(10);\n  _delay_ms(20);\n}"
	includes := byRule(inspectAll(t, NewEngine(Options{}), src), finding.RuleMissingInclude)

	require.Len(t, includes, 2)
	for _, f := range includes {
		assert.Equal(t, 1, f.Line)
		assert.Equal(t, "Missing include for delay functions", f.Message)
	}
	assert.Equal(t, "#include <util/delay.h>\n  _delay_ms(20);", includes[1].Fix)
}

func TestPresentIncludesAreNotReported(t *testing.T) {
	src := "#include <avr/io.h>\n#include <util/delay.h>\nDDRB = 0xFF;\n_delay_ms(5);"
	assert.Empty(t, byRule(inspectAll(t, NewEngine(Options{}), src), finding.RuleMissingInclude))
}

func TestRegisterTerminator(t *testing.T) {
	got := byRule(inspectAll(t, NewEngine(Options{}), "#include <avr/io.h>\nDDRB = 0xFF"), finding.RuleRegisterTerminator)

	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Line)
	assert.Equal(t, "Missing semicolon after DDRB initialization", got[0].Message)
	assert.Equal(t, "DDRB = 0xFF;", got[0].Fix)
}

func TestBitShiftSuggestion(t *testing.T) {
	got := byRule(inspectAll(t, NewEngine(Options{}), "#include <avr/io.h>\nPORTB |= 0x20;"), finding.RuleBitShift)

	require.Len(t, got, 1)
	assert.Equal(t, finding.SevWarning, got[0].Severity)
	assert.Equal(t, "PORTB |= (1 << 0x20);", got[0].Fix)

	assert.Empty(t, byRule(inspectAll(t, NewEngine(Options{}), "PORTB &= ~(1 << PB2);"), finding.RuleBitShift))
}

func TestPinRange(t *testing.T) {
	got := byRule(inspectAll(t, NewEngine(Options{}), "PORTB |= (1 << PB9);"), finding.RulePinRange)

	require.Len(t, got, 1)
	assert.Equal(t, finding.SevError, got[0].Severity)
	assert.Equal(t, "Invalid pin number. PORTB only has pins 0-7", got[0].Message)
	assert.Equal(t, "PORTB |= (1 << PB1);", got[0].Fix)

	assert.Empty(t, byRule(inspectAll(t, NewEngine(Options{}), "PORTB |= (1 << PB7);"), finding.RulePinRange))
}

func TestPinRangeSkipsPinsOfUnwatchedPorts(t *testing.T) {
	got := byRule(inspectAll(t, NewEngine(Options{}), "PORTB |= (1 << PC3) | (1 << PB9);"), finding.RulePinRange)

	require.Len(t, got, 1)
	assert.Equal(t, "PORTB |= (1 << PC3) | (1 << PB1);", got[0].Fix)
}

func TestPinRangeFollowsProfile(t *testing.T) {
	p, err := mcu.Lookup("atmega328p")
	require.NoError(t, err)

	got := byRule(inspectAll(t, NewEngine(Options{Profile: p}), "PORTD |= (1 << PD12);"), finding.RulePinRange)
	require.Len(t, got, 1)
	assert.Equal(t, "PORTD |= (1 << PD4);", got[0].Fix)

	assert.Empty(t, byRule(inspectAll(t, NewEngine(Options{}), "PORTD |= (1 << PD12);"), finding.RulePinRange))
}

func TestLongDelay(t *testing.T) {
	got := byRule(inspectAll(t, NewEngine(Options{}), "delay_ms(1500);"), finding.RuleLongDelay)

	require.Len(t, got, 1)
	assert.Equal(t, finding.SevWarning, got[0].Severity)
	assert.Contains(t, got[0].Fix, "for(int i = 0; i < 3; i++) {")
	assert.Contains(t, got[0].Fix, "_delay_ms(500);")

	assert.Empty(t, byRule(inspectAll(t, NewEngine(Options{}), "_delay_ms(1000);"), finding.RuleLongDelay))
}

func TestLongDelayHugeLiterals(t *testing.T) {
	tests := []struct {
		line  string
		count string
	}{
		{"_delay_ms(9223372036854775807);", "i < 18446744073709552;"},
		{"_delay_ms(1000000000000000000000000);", "i < 2000000000000000000000;"},
	}
	for _, tt := range tests {
		got := byRule(inspectAll(t, NewEngine(Options{}), tt.line), finding.RuleLongDelay)
		require.Len(t, got, 1, tt.line)
		assert.Contains(t, got[0].Fix, tt.count, tt.line)
	}
}

func TestLongDelayUsesLimits(t *testing.T) {
	e := NewEngine(Options{Limits: Limits{DelayThresholdMs: 100, DelayChunkMs: 50, LoopLookahead: 4}})
	got := byRule(inspectAll(t, e, "_delay_ms(120);"), finding.RuleLongDelay)

	require.Len(t, got, 1)
	assert.Contains(t, got[0].Fix, "i < 3;")
	assert.Contains(t, got[0].Fix, "_delay_ms(50);")

	e = NewEngine(Options{Limits: Limits{DelayThresholdMs: 100, LoopLookahead: 4}})
	got = byRule(inspectAll(t, e, "_delay_ms(1200);"), finding.RuleLongDelay)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Fix, "i < 3;")
}

func TestMissingSemicolon(t *testing.T) {
	src := "int x = 5\nif (x) {\nfor(;;) {\n}\n// note\n#define N 3\n\nx = 2;"
	got := byRule(inspectAll(t, NewEngine(Options{}), src), finding.RuleMissingSemicolon)

	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Line)
	assert.Equal(t, "int x = 5;", got[0].Fix)
}

func TestUnsafeLoop(t *testing.T) {
	got := byRule(inspectAll(t, NewEngine(Options{}), "while(1) { x = 1; }"), finding.RuleUnsafeLoop)
	require.Len(t, got, 1)
	assert.Equal(t, finding.SevWarning, got[0].Severity)
	assert.Contains(t, got[0].Fix, "_delay_ms(100);")

	safe := "while(1) { x = 1; }\n_delay_ms(10);"
	assert.Empty(t, byRule(inspectAll(t, NewEngine(Options{}), safe), finding.RuleUnsafeLoop))
}

func TestUnsafeLoopLookaheadWindow(t *testing.T) {
	far := "while (true) {\na;\nb;\nc;\nd;\n_delay_ms(1);\n}"
	assert.Len(t, byRule(inspectAll(t, NewEngine(Options{}), far), finding.RuleUnsafeLoop), 1)

	near := "while (true) {\na;\nb;\nc;\n_delay_ms(1);\n}"
	assert.Empty(t, byRule(inspectAll(t, NewEngine(Options{}), near), finding.RuleUnsafeLoop))
}

func TestSeverityOverridesAndDisabledRules(t *testing.T) {
	e := NewEngine(Options{
		Severities: map[string]finding.Severity{finding.RuleUnsafeLoop: finding.SevError},
		Disabled:   map[string]bool{finding.RuleUndefinedIdentifier: true},
	})
	got := inspectAll(t, e, "while(1) { x = 1; }")

	assert.Empty(t, byRule(got, finding.RuleUndefinedIdentifier))
	loops := byRule(got, finding.RuleUnsafeLoop)
	require.Len(t, loops, 1)
	assert.Equal(t, finding.SevError, loops[0].Severity)
}

func TestFindingsFollowDetectorOrderWithinLine(t *testing.T) {
	got := inspectAll(t, NewEngine(Options{}), "DDRB = 0xFF")

	var rules []string
	for _, f := range got {
		rules = append(rules, f.Rule)
	}
	assert.Equal(t, []string{
		finding.RuleMissingInclude,
		finding.RuleRegisterTerminator,
		finding.RuleMissingSemicolon,
	}, rules)
}
