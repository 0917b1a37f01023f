package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/robert-at-pretension-io/avr-lint/internal/finding"
	"github.com/robert-at-pretension-io/avr-lint/internal/mcu"
)

// Config is the top-level configuration for avr-lint
type Config struct {
	// MCU selects the part whose port registers are checked: "atmega328p",
	// "atmega2560". Empty checks only PORTB/DDRB.
	MCU string `json:"mcu,omitempty" toml:"mcu,omitempty"`

	// Lint contains linting rule configuration
	Lint LintConfig `json:"lint,omitempty" toml:"lint,omitempty"`

	// Analysis contains analysis options
	Analysis AnalysisConfig `json:"analysis,omitempty" toml:"analysis,omitempty"`

	// Policy controls when a run fails
	Policy PolicyConfig `json:"policy,omitempty" toml:"policy,omitempty"`
}

// LintConfig contains linting configuration
type LintConfig struct {
	// Rules maps rule names to severity: "off", "info", "warning", "error"
	Rules map[string]string `json:"rules,omitempty" toml:"rules,omitempty"`

	// IgnorePatterns is a list of file globs to skip entirely
	IgnorePatterns []string `json:"ignorePatterns,omitempty" toml:"ignorePatterns,omitempty"`
}

// AnalysisConfig contains analysis options
type AnalysisConfig struct {
	// DelayThresholdMs is the longest delay_ms literal accepted without a warning
	DelayThresholdMs int `json:"delayThresholdMs,omitempty" toml:"delayThresholdMs,omitempty"`

	// DelayChunkMs is the delay used by the proposed replacement loop
	DelayChunkMs int `json:"delayChunkMs,omitempty" toml:"delayChunkMs,omitempty"`

	// LoopLookahead is how many lines after while(1) may hold the delay
	LoopLookahead int `json:"loopLookahead,omitempty" toml:"loopLookahead,omitempty"`

	// IndentWidth is the number of spaces per brace level in fixed output
	IndentWidth int `json:"indentWidth,omitempty" toml:"indentWidth,omitempty"`

	// MaxParallelFiles limits concurrent file processing (0 = auto)
	MaxParallelFiles int `json:"maxParallelFiles,omitempty" toml:"maxParallelFiles,omitempty"`

	// Suggestions adds optimisation hints to reports
	Suggestions *bool `json:"suggestions,omitempty" toml:"suggestions,omitempty"`
}

// PolicyConfig controls the pass/fail gate
type PolicyConfig struct {
	// Dir holds extra .rego modules in package avr.gate
	Dir string `json:"dir,omitempty" toml:"dir,omitempty"`

	// MaxErrors is the number of errors tolerated per file (-1 = unlimited)
	MaxErrors *int `json:"maxErrors,omitempty" toml:"maxErrors,omitempty"`

	// MaxWarnings is the number of warnings tolerated per file (-1 = unlimited)
	MaxWarnings *int `json:"maxWarnings,omitempty" toml:"maxWarnings,omitempty"`
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Lint: LintConfig{
			Rules:          map[string]string{},
			IgnorePatterns: []string{},
		},
		Analysis: AnalysisConfig{
			DelayThresholdMs: 1000,
			DelayChunkMs:     500,
			LoopLookahead:    4,
			IndentWidth:      2,
			MaxParallelFiles: 0, // auto
			Suggestions:      boolPtr(true),
		},
		Policy: PolicyConfig{
			MaxErrors:   intPtr(0),
			MaxWarnings: intPtr(-1),
		},
	}
}

func boolPtr(v bool) *bool {
	return &v
}

func intPtr(v int) *int {
	return &v
}

// Load finds and loads the configuration file
// Search order:
//  1. ./avr_lint.json, ./.avr_lint.json, ./avr_lint.toml (current working directory)
//  2. <rootPath>/avr_lint.json, <rootPath>/avr_lint.toml (if different from cwd)
//  3. ~/.config/avr_lint/config.json
//
// Returns DefaultConfig if no config file is found
func Load(rootPath string) (*Config, error) {
	cwd, _ := os.Getwd()

	searchPaths := []string{
		filepath.Join(cwd, "avr_lint.json"),
		filepath.Join(cwd, ".avr_lint.json"),
		filepath.Join(cwd, "avr_lint.toml"),
	}

	if info, err := os.Stat(rootPath); err == nil && info.IsDir() {
		absRoot, _ := filepath.Abs(rootPath)
		if absRoot != cwd {
			searchPaths = append(searchPaths,
				filepath.Join(rootPath, "avr_lint.json"),
				filepath.Join(rootPath, "avr_lint.toml"),
			)
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(home, ".config", "avr_lint", "config.json"))
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	return DefaultConfig(), nil
}

// LoadFile loads configuration from a specific file. Files ending in .toml
// are decoded as TOML, everything else as JSON.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if isTOML(path) {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.Lint.Rules == nil {
		c.Lint.Rules = make(map[string]string)
	}
	if c.Analysis.DelayThresholdMs <= 0 {
		c.Analysis.DelayThresholdMs = def.Analysis.DelayThresholdMs
	}
	if c.Analysis.DelayChunkMs <= 0 {
		c.Analysis.DelayChunkMs = def.Analysis.DelayChunkMs
	}
	if c.Analysis.LoopLookahead <= 0 {
		c.Analysis.LoopLookahead = def.Analysis.LoopLookahead
	}
	if c.Analysis.IndentWidth <= 0 {
		c.Analysis.IndentWidth = def.Analysis.IndentWidth
	}
	if c.Analysis.Suggestions == nil {
		c.Analysis.Suggestions = def.Analysis.Suggestions
	}
	if c.Policy.MaxErrors == nil {
		c.Policy.MaxErrors = def.Policy.MaxErrors
	}
	if c.Policy.MaxWarnings == nil {
		c.Policy.MaxWarnings = def.Policy.MaxWarnings
	}
}

// Validate checks rule names, severities and the MCU name
func (c *Config) Validate() error {
	known := make(map[string]bool, len(finding.Rules))
	for _, r := range finding.Rules {
		known[r] = true
	}

	var problems []string
	for rule, sev := range c.Lint.Rules {
		if !known[rule] {
			problems = append(problems, fmt.Sprintf("unknown rule %q", rule))
			continue
		}
		if _, ok := finding.ParseSeverity(sev); !ok && sev != "off" {
			problems = append(problems, fmt.Sprintf("rule %q: unknown severity %q", rule, sev))
		}
	}
	if _, err := mcu.Lookup(c.MCU); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// Save writes the configuration to a file, as TOML when path ends in .toml
func (c *Config) Save(path string) error {
	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		data, err = json.MarshalIndent(c, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// IsRuleEnabled returns true if the rule is not set to "off"
func (c *Config) IsRuleEnabled(rule string) bool {
	if severity, ok := c.Lint.Rules[rule]; ok {
		return severity != "off"
	}
	return true // enabled by default
}

// RuleOverrides splits the rule map into severity overrides and disabled rules
func (c *Config) RuleOverrides() (map[string]finding.Severity, map[string]bool) {
	severities := make(map[string]finding.Severity)
	disabled := make(map[string]bool)
	for rule, sev := range c.Lint.Rules {
		if !c.IsRuleEnabled(rule) {
			disabled[rule] = true
			continue
		}
		if s, ok := finding.ParseSeverity(sev); ok {
			severities[rule] = s
		}
	}
	return severities, disabled
}

// SuggestionsEnabled reports whether optimisation hints are wanted
func (c *Config) SuggestionsEnabled() bool {
	return c.Analysis.Suggestions == nil || *c.Analysis.Suggestions
}

// Limits returns the gate thresholds, -1 meaning unlimited
func (c *Config) Limits() (maxErrors, maxWarnings int) {
	maxErrors, maxWarnings = 0, -1
	if c.Policy.MaxErrors != nil {
		maxErrors = *c.Policy.MaxErrors
	}
	if c.Policy.MaxWarnings != nil {
		maxWarnings = *c.Policy.MaxWarnings
	}
	return maxErrors, maxWarnings
}
