package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name            string
		lines, findings int
		want            Metrics
	}{
		{"empty", 0, 0, Metrics{Complexity: 3, MemoryUsage: 0, ExecutionTime: 0, OptimizationPotential: 10}},
		{"small", 10, 3, Metrics{Complexity: 3, MemoryUsage: 15, ExecutionTime: 8, OptimizationPotential: 45}},
		{"medium", 45, 5, Metrics{Complexity: 6, MemoryUsage: 67, ExecutionTime: 36, OptimizationPotential: 75}},
		{"large", 500, 40, Metrics{Complexity: 10, MemoryUsage: 750, ExecutionTime: 400, OptimizationPotential: 90}},
		{"odd", 7, 1, Metrics{Complexity: 3, MemoryUsage: 10, ExecutionTime: 5, OptimizationPotential: 15}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Calculate(tt.lines, tt.findings))
		})
	}
}

func TestCalculateStaysInBounds(t *testing.T) {
	for lines := 0; lines < 400; lines += 13 {
		for findings := 0; findings < 60; findings += 7 {
			m := Calculate(lines, findings)
			assert.GreaterOrEqual(t, m.Complexity, MinComplexity)
			assert.LessOrEqual(t, m.Complexity, MaxComplexity)
			assert.GreaterOrEqual(t, m.OptimizationPotential, MinOptimization)
			assert.LessOrEqual(t, m.OptimizationPotential, MaxOptimization)
			assert.GreaterOrEqual(t, m.MemoryUsage, 0)
			assert.GreaterOrEqual(t, m.ExecutionTime, 0)
		}
	}
}

func TestBands(t *testing.T) {
	assert.Equal(t, BandLow, ComplexityBand(4))
	assert.Equal(t, BandMedium, ComplexityBand(5))
	assert.Equal(t, BandHigh, ComplexityBand(8))

	assert.Equal(t, BandLow, OptimizationBand(40))
	assert.Equal(t, BandMedium, OptimizationBand(41))
	assert.Equal(t, BandHigh, OptimizationBand(75))
}

func TestProfileOf(t *testing.T) {
	p := ProfileOf([]string{
		"int main(void) {",
		"  DDRB = 0xFF;",
		"  while(1) {",
		"    PORTB ^= 1;",
		"    _delay_ms(100);",
		"  }",
		"}",
	})
	assert.Equal(t, Profile{Functions: 1, Loops: 1, Delays: 1, PortAccess: 2}, p)
}

func TestSuggestions(t *testing.T) {
	got := Suggestions("PORTB |= 1;\nfor(int i=0;i<3;i++) _delay_ms(1);")
	assert.Len(t, got, 3)
	assert.Empty(t, Suggestions("x = 1;"))
}
