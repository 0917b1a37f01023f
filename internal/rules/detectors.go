package rules

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/robert-at-pretension-io/avr-lint/internal/finding"
	"github.com/robert-at-pretension-io/avr-lint/internal/mcu"
)

const (
	delayHeader = "util/delay.h"
	ioHeader    = "avr/io.h"
)

var (
	// Pattern: <REG> |= <operand>; or <REG> &= <operand>;
	bitOpPattern = regexp.MustCompile(`([A-Z]+)\s*([|&])=\s*(.+?);`)

	// Pattern: P<port><pin>, e.g. PB5
	pinPattern = regexp.MustCompile(`\bP([A-Z])(\d+)\b`)

	// Pattern: delay_ms(<literal>)
	delayPattern = regexp.MustCompile(`delay_ms\s*\(\s*(\d+)\s*\)`)

	// Pattern: if( / for( / while(
	controlHeaderPattern = regexp.MustCompile(`\b(if|for|while)\s*\(`)

	// Pattern: while(1) / while(true)
	foreverPattern = regexp.MustCompile(`\bwhile\s*\(\s*(1|true)\s*\)`)
)

// includeDetector reports headers the line depends on but the file never
// includes. Findings point at line 1, where the include belongs.
type includeDetector struct {
	profile mcu.Profile
}

func (d *includeDetector) Name() string { return "includes" }

func (d *includeDetector) Inspect(line string, ctx *Context) []finding.Finding {
	var out []finding.Finding

	if strings.Contains(line, "delay_ms") && !ctx.Symbols.HasInclude(delayHeader) {
		out = append(out, finding.Finding{
			Line:     1,
			Rule:     finding.RuleMissingInclude,
			Message:  "Missing include for delay functions",
			Severity: finding.SevError,
			Fix:      "#include <" + delayHeader + ">\n" + line,
		})
	}

	if _, ok := d.profile.ReferencedRegister(line); ok && !ctx.Symbols.HasInclude(ioHeader) {
		out = append(out, finding.Finding{
			Line:     1,
			Rule:     finding.RuleMissingInclude,
			Message:  "Missing include for AVR I/O definitions",
			Severity: finding.SevError,
			Fix:      "#include <" + ioHeader + ">\n" + line,
		})
	}

	return out
}

// registerDetector checks lines that touch a port or data-direction register.
type registerDetector struct {
	profile mcu.Profile
}

func (d *registerDetector) Name() string { return "registers" }

func (d *registerDetector) Inspect(line string, ctx *Context) []finding.Finding {
	if _, ok := d.profile.ReferencedRegister(line); !ok {
		return nil
	}

	var out []finding.Finding
	lineNum := ctx.LineNumber()

	if ddr, ok := d.profile.ReferencedDDR(line); ok && !strings.Contains(line, ";") {
		out = append(out, finding.Finding{
			Line:     lineNum,
			Rule:     finding.RuleRegisterTerminator,
			Message:  fmt.Sprintf("Missing semicolon after %s initialization", ddr),
			Severity: finding.SevError,
			Fix:      line + ";",
			Edit:     finding.Append(";"),
		})
	}

	if strings.Contains(line, "|=") || strings.Contains(line, "&=") {
		if m := bitOpPattern.FindStringSubmatch(line); m != nil && !strings.Contains(m[3], "<<") {
			out = append(out, finding.Finding{
				Line:     lineNum,
				Rule:     finding.RuleBitShift,
				Message:  "Improper bit manipulation. Consider using bit shift operators",
				Severity: finding.SevWarning,
				Fix:      fmt.Sprintf("%s %s= (1 << %s);", m[1], m[2], m[3]),
			})
		}
	}

	for _, m := range pinPattern.FindAllStringSubmatchIndex(line, -1) {
		port := line[m[2]:m[3]]
		pin, err := strconv.Atoi(line[m[4]:m[5]])
		if err != nil || !d.profile.HasPort(port) || pin <= d.profile.Pins-1 {
			continue
		}
		fixed := fmt.Sprintf("P%s%d", port, pin%d.profile.Pins)
		out = append(out, finding.Finding{
			Line:     lineNum,
			Rule:     finding.RulePinRange,
			Message:  fmt.Sprintf("Invalid pin number. PORT%s only has pins 0-%d", port, d.profile.Pins-1),
			Severity: finding.SevError,
			Fix:      line[:m[0]] + fixed + line[m[1]:],
		})
		break
	}

	return out
}

// delayDetector flags busy-wait delays longer than the threshold and proposes
// a loop of shorter delays covering the same duration.
type delayDetector struct {
	threshold int
	chunk     int
}

func (d *delayDetector) Name() string { return "delays" }

func (d *delayDetector) Inspect(line string, ctx *Context) []finding.Finding {
	if !strings.Contains(line, "delay_ms") {
		return nil
	}
	m := delayPattern.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	chunks, ok := d.chunks(m[1])
	if !ok {
		return nil
	}

	return []finding.Finding{{
		Line:     ctx.LineNumber(),
		Rule:     finding.RuleLongDelay,
		Message:  "Long delay detected. Consider using multiple shorter delays",
		Severity: finding.SevWarning,
		Fix: fmt.Sprintf("// Break down long delay into smaller chunks\nfor(int i = 0; i < %s; i++) {\n  _delay_ms(%d);\n}",
			chunks, d.chunk),
	}}
}

// chunks returns how many delays of d.chunk cover the literal, or false when
// the literal is within the threshold. Literals too large for an int are
// counted exactly.
func (d *delayDetector) chunks(literal string) (string, bool) {
	ms, ok := new(big.Int).SetString(literal, 10)
	if !ok || ms.Cmp(big.NewInt(int64(d.threshold))) <= 0 {
		return "", false
	}
	chunk := big.NewInt(int64(d.chunk))
	q, r := new(big.Int).QuoRem(ms, chunk, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return q.String(), true
}

// identifierDetector hands the line to the run's resolver.
type identifierDetector struct{}

func (identifierDetector) Name() string { return "identifiers" }

func (identifierDetector) Inspect(line string, ctx *Context) []finding.Finding {
	if ctx.Resolver == nil {
		return nil
	}
	return ctx.Resolver.Resolve(line, ctx.LineNumber())
}

// terminatorDetector flags statements that do not end in ';', '{' or '}'.
type terminatorDetector struct{}

func (terminatorDetector) Name() string { return "terminators" }

func (terminatorDetector) Inspect(line string, ctx *Context) []finding.Finding {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" ||
		strings.HasPrefix(trimmed, "#") ||
		strings.HasPrefix(trimmed, "//") ||
		strings.HasPrefix(trimmed, "/*") ||
		strings.HasPrefix(trimmed, "*") ||
		strings.HasSuffix(trimmed, "{") ||
		strings.HasSuffix(trimmed, "}") ||
		strings.HasSuffix(trimmed, ";") ||
		controlHeaderPattern.MatchString(line) {
		return nil
	}

	return []finding.Finding{{
		Line:     ctx.LineNumber(),
		Rule:     finding.RuleMissingSemicolon,
		Message:  "Missing semicolon at end of statement",
		Severity: finding.SevError,
		Fix:      line + ";",
		Edit:     finding.Append(";"),
	}}
}

// loopDetector flags unconditional loops with no delay on the loop line or
// within the lookahead window.
type loopDetector struct {
	lookahead int
}

func (d *loopDetector) Name() string { return "loops" }

func (d *loopDetector) Inspect(line string, ctx *Context) []finding.Finding {
	if !foreverPattern.MatchString(line) {
		return nil
	}
	if strings.Contains(line, "_delay") {
		return nil
	}
	for _, next := range ctx.Lookahead(d.lookahead) {
		if strings.Contains(next, "_delay") {
			return nil
		}
	}

	return []finding.Finding{{
		Line:     ctx.LineNumber(),
		Rule:     finding.RuleUnsafeLoop,
		Message:  "Infinite loop without delay may cause system lockup",
		Severity: finding.SevWarning,
		Fix:      "while(1) {\n  // Add delay to prevent system lockup\n  _delay_ms(100);\n}",
	}}
}
