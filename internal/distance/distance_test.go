package distance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"PORT", "PORTB", 1},
		{"x", "x", 0},
		{"abc", "xyz", 3},
		{"", "abc", 3},
		{"counter", "conuter", 2},
		{"kitten", "sitting", 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Distance(tt.a, tt.b), "%q -> %q", tt.a, tt.b)
		assert.Equal(t, tt.want, Distance(tt.b, tt.a), "%q -> %q", tt.b, tt.a)
	}
}

func TestSimilar(t *testing.T) {
	assert.True(t, Similar("ledd", "led"))
	assert.False(t, Similar("led", "led"))
	assert.False(t, Similar("abc", "xyz"))
}

func TestClosestPrefersSmallestDistanceThenName(t *testing.T) {
	got, ok := Closest("cnt", []string{"count", "cnt2", "ant", "bnt"})
	assert.True(t, ok)
	assert.Equal(t, "ant", got)

	got, ok = Closest("valu", []string{"values", "value"})
	assert.True(t, ok)
	assert.Equal(t, "value", got)
}

func TestClosestIgnoresExactAndFarNames(t *testing.T) {
	_, ok := Closest("speed", []string{"speed", "temperature"})
	assert.False(t, ok)

	_, ok = Closest("x", nil)
	assert.False(t, ok)
}
