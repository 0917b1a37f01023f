// Package metrics derives the summary quality figures of a report.
package metrics

import "strings"

// Metrics summarise one run. They depend only on the line and finding counts.
type Metrics struct {
	Complexity            int `json:"complexity" yaml:"complexity"`
	MemoryUsage           int `json:"memoryUsage" yaml:"memoryUsage"`
	ExecutionTime         int `json:"executionTime" yaml:"executionTime"`
	OptimizationPotential int `json:"optimizationPotential" yaml:"optimizationPotential"`
}

// Bounds of the clamped metrics.
const (
	MinComplexity   = 3
	MaxComplexity   = 10
	MinOptimization = 10
	MaxOptimization = 90
)

// Calculate derives metrics from the number of source lines and findings.
//
//	complexity            = clamp(lines/10 + findings/2, 3, 10)
//	memoryUsage           = floor(lines * 1.5) bytes
//	executionTime         = floor(lines * 0.8) ms
//	optimizationPotential = clamp(findings * 15, 10, 90)
func Calculate(lines, findings int) Metrics {
	lines = max(0, lines)
	findings = max(0, findings)
	return Metrics{
		Complexity:            clamp(lines/10+findings/2, MinComplexity, MaxComplexity),
		MemoryUsage:           lines * 3 / 2,
		ExecutionTime:         lines * 4 / 5,
		OptimizationPotential: clamp(findings*15, MinOptimization, MaxOptimization),
	}
}

func clamp(v, lo, hi int) int {
	return min(hi, max(lo, v))
}

// Band is a coarse display level for a metric.
type Band string

const (
	BandLow    Band = "low"
	BandMedium Band = "medium"
	BandHigh   Band = "high"
)

// ComplexityBand is high above 7, medium above 4, low otherwise.
func ComplexityBand(complexity int) Band {
	switch {
	case complexity > 7:
		return BandHigh
	case complexity > 4:
		return BandMedium
	}
	return BandLow
}

// OptimizationBand is high above 70, medium above 40, low otherwise.
func OptimizationBand(potential int) Band {
	switch {
	case potential > 70:
		return BandHigh
	case potential > 40:
		return BandMedium
	}
	return BandLow
}

// Profile counts lines by what they touch. A line may count in several
// columns.
type Profile struct {
	Functions  int `json:"functions" yaml:"functions"`
	Loops      int `json:"loops" yaml:"loops"`
	Delays     int `json:"delays" yaml:"delays"`
	PortAccess int `json:"portAccess" yaml:"portAccess"`
}

// ProfileOf counts function-ish, loop, delay and port-access lines.
func ProfileOf(lines []string) Profile {
	var p Profile
	for _, line := range lines {
		if strings.Contains(line, "void") || strings.Contains(line, "int") {
			p.Functions++
		}
		if strings.Contains(line, "while") || strings.Contains(line, "for") {
			p.Loops++
		}
		if strings.Contains(line, "_delay") {
			p.Delays++
		}
		if strings.Contains(line, "PORT") || strings.Contains(line, "DDR") {
			p.PortAccess++
		}
	}
	return p
}

// Suggestions returns optimisation hints for code. They are advice only and
// are not findings.
func Suggestions(code string) []string {
	var out []string
	if strings.Contains(code, "_delay_ms") || strings.Contains(code, "_delay_us") {
		out = append(out, "Consider using timer interrupts instead of delay functions for better efficiency")
	}
	if strings.Contains(code, "for(int i=0;i<") {
		out = append(out, "Consider using register variables for loop counters (e.g., register uint8_t i)")
	}
	if strings.Contains(code, "PORT") && strings.Contains(code, "|=") {
		out = append(out, "Consider using direct port manipulation for better performance")
	}
	return out
}
