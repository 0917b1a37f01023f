package extractor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/avr-lint/internal/source"
)

const blinky = `#include <avr/io.h>
#include "board.h"

int counter = 0;
char state;
void toggle(int pin);

int main(void) {
  float ratio = 0.5;
  while(1) {
    toggle(5);
  }
}
`

func TestCollect(t *testing.T) {
	st := Collect(source.New(blinky))

	assert.Equal(t, []string{"avr/io.h", "board.h"}, st.Includes())
	assert.Equal(t, []string{"main", "toggle"}, st.Functions())
	assert.Equal(t, []string{"counter", "ratio", "state"}, st.Variables())

	assert.True(t, st.HasInclude("avr/io.h"))
	assert.False(t, st.HasInclude("util/delay.h"))
	assert.True(t, st.HasFunction("toggle"))
	assert.True(t, st.HasVariable("ratio"))
	assert.False(t, st.HasVariable("pin"), "parameters live on lines with parentheses")
}

func TestCollectRecordsFirstDeclaration(t *testing.T) {
	st := Collect(source.New("int x;\nint x = 2;\n"))

	decls := st.Declarations()
	require.Len(t, decls, 1)
	assert.Equal(t, Declaration{Name: "x", Kind: KindVariable, Type: "int", Line: 1}, decls[0])
}

func TestMatchers(t *testing.T) {
	assert.Equal(t, []string{"util/delay.h"}, matchInclude("#include<util/delay.h>"))
	assert.Nil(t, matchInclude("// include nothing"))

	assert.Equal(t, []string{"setup", "void"}, matchFunction("void setup ( )"))
	assert.Nil(t, matchFunction("printf(\"x\");"))

	assert.Equal(t, []string{"speed", "double"}, matchVariable("  double speed = 1.0;"))
	assert.Nil(t, matchVariable("int f(int a);"))
	assert.Nil(t, matchVariable("uint8_t duty = 3;"))
}

func TestExtractFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.c")
	require.NoError(t, os.WriteFile(path, []byte(blinky), 0o644))

	text, st, err := ExtractFile(path)
	require.NoError(t, err)
	assert.True(t, st.HasFunction("main"))
	assert.Equal(t, 14, text.Len())

	_, _, err = ExtractFile(filepath.Join(t.TempDir(), "missing.c"))
	assert.Error(t, err)
}
