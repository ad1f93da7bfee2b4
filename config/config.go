// Package config provides configuration loading and management for spectrace.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/spectrace/codescan"
	"github.com/c360studio/spectrace/requirement"
	"github.com/c360studio/spectrace/specdoc"
)

// Config represents the complete spectrace configuration
type Config struct {
	Spec   SpecConfig   `yaml:"spec"`
	Code   CodeConfig   `yaml:"code"`
	Report ReportConfig `yaml:"report"`
	Watch  WatchConfig  `yaml:"watch"`
}

// SpecConfig configures the specification document scan
type SpecConfig struct {
	// Roots are the specification document roots
	Roots []string `yaml:"roots"`
	// Includes are doublestar globs selecting documents under each root
	Includes []string `yaml:"includes"`
}

// CodeConfig configures the source tree scan
type CodeConfig struct {
	// Roots are the source and test roots (git root is auto-detected if empty)
	Roots []string `yaml:"roots"`
	// Exclude are doublestar globs removing paths from the scan
	Exclude []string `yaml:"exclude"`
	// TestDirs classify annotation locations as test evidence
	TestDirs []string `yaml:"test_dirs"`
	// RespectGitignore applies .gitignore rules while scanning (default: true)
	RespectGitignore *bool `yaml:"respect_gitignore"`
	// MaxFileSize is the largest file the scanner reads, in bytes
	MaxFileSize int64 `yaml:"max_file_size"`
}

// GitignoreRespected returns the effective respect_gitignore value,
// true when unset.
func (c CodeConfig) GitignoreRespected() bool {
	if c.RespectGitignore == nil {
		return true
	}
	return *c.RespectGitignore
}

// ReportConfig configures report output
type ReportConfig struct {
	// Format is the output format name (json, text, markdown)
	Format string `yaml:"format"`
	// Output is the output file path (empty = stdout)
	Output string `yaml:"output"`
	// FailOn is the severity at or above which violations fail the run
	// ("S1" = only S1 violations fail, "S2" = S1 and S2, and so on)
	FailOn string `yaml:"fail_on"`
}

// WatchConfig configures watch mode
type WatchConfig struct {
	// Debounce is the quiet period after a change before a re-scan fires
	Debounce time.Duration `yaml:"debounce"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	respectGitignore := true
	return &Config{
		Spec: SpecConfig{
			Roots:    []string{"specs"},
			Includes: append([]string(nil), specdoc.DefaultIncludes...),
		},
		Code: CodeConfig{
			Roots:            nil, // Auto-detect
			TestDirs:         append([]string(nil), codescan.DefaultTestDirs...),
			RespectGitignore: &respectGitignore,
			MaxFileSize:      codescan.DefaultMaxFileSize,
		},
		Report: ReportConfig{
			Format: "text",
			FailOn: "S2",
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if len(c.Spec.Roots) == 0 {
		return fmt.Errorf("spec.roots is required")
	}
	if c.Code.MaxFileSize < 0 {
		return fmt.Errorf("code.max_file_size must not be negative")
	}
	if c.Report.FailOn != "" && !requirement.Severity(c.Report.FailOn).IsValid() {
		return fmt.Errorf("report.fail_on %q is not a severity (S1..S5)", c.Report.FailOn)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file. Fields absent from
// the file stay zero so a later Merge only applies what the file set.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// fields it sets)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Spec
	if len(other.Spec.Roots) > 0 {
		c.Spec.Roots = other.Spec.Roots
	}
	if len(other.Spec.Includes) > 0 {
		c.Spec.Includes = other.Spec.Includes
	}

	// Code
	if len(other.Code.Roots) > 0 {
		c.Code.Roots = other.Code.Roots
	}
	if len(other.Code.Exclude) > 0 {
		c.Code.Exclude = other.Code.Exclude
	}
	if len(other.Code.TestDirs) > 0 {
		c.Code.TestDirs = other.Code.TestDirs
	}
	if other.Code.RespectGitignore != nil {
		c.Code.RespectGitignore = other.Code.RespectGitignore
	}
	if other.Code.MaxFileSize != 0 {
		c.Code.MaxFileSize = other.Code.MaxFileSize
	}

	// Report
	if other.Report.Format != "" {
		c.Report.Format = other.Report.Format
	}
	if other.Report.Output != "" {
		c.Report.Output = other.Report.Output
	}
	if other.Report.FailOn != "" {
		c.Report.FailOn = other.Report.FailOn
	}

	// Watch
	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}
}
