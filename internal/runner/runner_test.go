package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/avr-lint/internal/analyzer"
	"github.com/robert-at-pretension-io/avr-lint/internal/config"
	"github.com/robert-at-pretension-io/avr-lint/internal/finding"
)

const cleanSource = `#include <avr/io.h>
int main(void) {
DDRB = 0xFF;
}
`

const brokenSource = `#include <avr/io.h>
int counter;
int main(void) {
DDRB = 0xFF
countr = 1;
}
`

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newRunner(t *testing.T, cfg *config.Config, opts ...Option) *Runner {
	t.Helper()
	r, err := New(context.Background(), cfg, opts...)
	require.NoError(t, err)
	return r
}

func TestRunKeepsInputOrder(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "b.c", brokenSource)
	writeSource(t, dir, "a.c", cleanSource)
	writeSource(t, dir, "sub/c.h", cleanSource)
	writeSource(t, dir, "notes.txt", "not code")

	cfg := config.DefaultConfig()
	cfg.Analysis.MaxParallelFiles = 2
	res, err := newRunner(t, cfg).Run(context.Background(), []string{dir})
	require.NoError(t, err)

	require.Len(t, res.Files, 3)
	assert.Equal(t, filepath.Join(dir, "a.c"), res.Files[0].Path)
	assert.Equal(t, filepath.Join(dir, "b.c"), res.Files[1].Path)
	assert.Equal(t, filepath.Join(dir, "sub", "c.h"), res.Files[2].Path)

	assert.True(t, res.Files[0].Gate.Passed)
	assert.False(t, res.Files[1].Gate.Passed)
	assert.False(t, res.Passed)
	assert.Equal(t, 3, res.Summary.Errors)
	assert.Equal(t, res.Files[1].Report.Summary, res.Summary)
}

func TestRunHonoursLimits(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "b.c", brokenSource)

	cfg := config.DefaultConfig()
	unlimited := -1
	cfg.Policy.MaxErrors = &unlimited
	res, err := newRunner(t, cfg).Run(context.Background(), []string{dir})
	require.NoError(t, err)
	assert.True(t, res.Passed)
}

func TestRunIgnoresPatterns(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "src/main.c", cleanSource)
	writeSource(t, dir, "vendor/lib.c", brokenSource)

	cfg := config.DefaultConfig()
	cfg.Lint.IgnorePatterns = []string{"**/vendor/**"}
	res, err := newRunner(t, cfg).Run(context.Background(), []string{dir})
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.True(t, res.Passed)
}

func TestRunWithoutInputs(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "readme.md", "# nothing")

	_, err := newRunner(t, nil).Run(context.Background(), []string{dir})
	assert.ErrorIs(t, err, ErrNoInputs)
}

func TestRunSourceWritesFixedFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "fixed")
	r := newRunner(t, nil, WithFixedDir(out))

	res, err := r.RunSource(context.Background(), StdinName, brokenSource)
	require.NoError(t, err)
	require.Len(t, res.Files, 1)

	fixedPath := res.Files[0].FixedPath
	assert.Equal(t, filepath.Join(out, "optimized_code.c"), fixedPath)

	data, err := os.ReadFile(fixedPath)
	require.NoError(t, err)
	assert.Equal(t, res.Files[0].Report.FixedText()+"\n", string(data))
	assert.Contains(t, string(data), "  DDRB = 0xFF;\n  counter = 1;\n")
}

func TestFixedName(t *testing.T) {
	assert.Equal(t, "optimized_code.c", FixedName(StdinName))
	assert.Equal(t, "main_optimized.c", FixedName("src/main.c"))
	assert.Equal(t, "pins_optimized.h", FixedName("pins.h"))
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MCU = "pic16"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)

	cfg = config.DefaultConfig()
	cfg.Policy.Dir = filepath.Join(t.TempDir(), "missing")
	_, err = New(context.Background(), cfg)
	assert.ErrorContains(t, err, "loading gate policy")
}

func TestSymbols(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "main.c", brokenSource)

	tables, err := newRunner(t, nil).Symbols(context.Background(), []string{dir})
	require.NoError(t, err)

	require.Len(t, tables.Files, 1)
	assert.Equal(t, 7, tables.Files[0].Lines)
	require.Len(t, tables.Variables, 1)
	assert.Equal(t, "counter", tables.Variables[0].Name)
	require.Len(t, tables.Functions, 1)
	assert.Equal(t, "main", tables.Functions[0].Name)
}

func TestRunRecordsTimings(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.c", cleanSource)

	var buf bytes.Buffer
	tr := NewTimingRecorder(time.Now(), &buf)
	_, err := newRunner(t, nil, WithTiming(tr)).Run(context.Background(), []string{dir})
	require.NoError(t, err)

	phases := map[string]bool{}
	dec := json.NewDecoder(&buf)
	for dec.More() {
		var ev TimingEvent
		require.NoError(t, dec.Decode(&ev))
		phases[ev.Kind+":"+ev.Phase] = true
	}
	for _, want := range []string{
		"stage:scan", "stage:analyze", "stage:total",
		"file:collect", "file:inspect", "file:format", "file:metrics",
		"file:validate", "file:policy",
	} {
		assert.True(t, phases[want], "missing timing event %s", want)
	}
	assert.Len(t, tr.Events(), len(phases))
}

func TestCheckContractListsEveryProblem(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	r := newRunner(t, nil)

	report := analyzer.Analyze(brokenSource)
	require.NoError(t, r.checkContract(logger, report))
	assert.Empty(t, logs.String())

	report.Summary.Total++
	report.Metrics.Complexity = 42
	err := r.checkContract(logger, report)
	require.Error(t, err)
	assert.ErrorContains(t, err, "schema validation failed")
	assert.GreaterOrEqual(t, strings.Count(logs.String(), "report contract violation"), 2)

	report = analyzer.Analyze(brokenSource)
	report.Findings[0].Severity = finding.Severity("fatal")
	assert.Error(t, r.checkContract(logger, report))
}
