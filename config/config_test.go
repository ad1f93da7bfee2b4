package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if len(cfg.Spec.Roots) != 1 || cfg.Spec.Roots[0] != "specs" {
		t.Errorf("expected default spec root [specs], got %v", cfg.Spec.Roots)
	}
	if len(cfg.Spec.Includes) == 0 {
		t.Error("expected default spec includes to be set")
	}
	if len(cfg.Code.TestDirs) == 0 {
		t.Error("expected default test dirs to be set")
	}
	if !cfg.Code.GitignoreRespected() {
		t.Error("expected gitignore respected by default")
	}
	if cfg.Code.MaxFileSize <= 0 {
		t.Errorf("expected positive default max file size, got %d", cfg.Code.MaxFileSize)
	}
	if cfg.Report.Format != "text" {
		t.Errorf("expected default format text, got %s", cfg.Report.Format)
	}
	if cfg.Report.FailOn != "S2" {
		t.Errorf("expected default fail_on S2, got %s", cfg.Report.FailOn)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("expected default debounce 500ms, got %v", cfg.Watch.Debounce)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing spec roots",
			modify:  func(c *Config) { c.Spec.Roots = nil },
			wantErr: true,
		},
		{
			name:    "negative max file size",
			modify:  func(c *Config) { c.Code.MaxFileSize = -1 },
			wantErr: true,
		},
		{
			name:    "bad fail_on severity",
			modify:  func(c *Config) { c.Report.FailOn = "critical" },
			wantErr: true,
		},
		{
			name:    "empty fail_on allowed",
			modify:  func(c *Config) { c.Report.FailOn = "" },
			wantErr: false,
		},
		{
			name:    "negative debounce",
			modify:  func(c *Config) { c.Watch.Debounce = -time.Second },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temp file with config
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "spectrace.yaml")

	content := `
spec:
  roots:
    - docs/requirements
  includes:
    - "**/*.md"
code:
  roots:
    - src
    - lib
  exclude:
    - "vendor/**"
  test_dirs:
    - spec
  respect_gitignore: false
  max_file_size: 1048576
report:
  format: json
  output: report.json
  fail_on: S1
watch:
  debounce: 750ms
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if len(cfg.Spec.Roots) != 1 || cfg.Spec.Roots[0] != "docs/requirements" {
		t.Errorf("expected spec roots [docs/requirements], got %v", cfg.Spec.Roots)
	}
	if len(cfg.Code.Roots) != 2 {
		t.Errorf("expected 2 code roots, got %v", cfg.Code.Roots)
	}
	if len(cfg.Code.TestDirs) != 1 || cfg.Code.TestDirs[0] != "spec" {
		t.Errorf("expected test dirs [spec], got %v", cfg.Code.TestDirs)
	}
	if cfg.Code.GitignoreRespected() {
		t.Error("expected respect_gitignore false")
	}
	if cfg.Code.MaxFileSize != 1048576 {
		t.Errorf("expected max file size 1048576, got %d", cfg.Code.MaxFileSize)
	}
	if cfg.Report.Format != "json" {
		t.Errorf("expected format json, got %s", cfg.Report.Format)
	}
	if cfg.Report.FailOn != "S1" {
		t.Errorf("expected fail_on S1, got %s", cfg.Report.FailOn)
	}
	if cfg.Watch.Debounce != 750*time.Millisecond {
		t.Errorf("expected debounce 750ms, got %v", cfg.Watch.Debounce)
	}
}

func TestLoadFromFileSparse(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "spectrace.yaml")

	content := `
report:
  format: markdown
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	// Unset fields stay zero so Merge only applies what the file set
	if cfg.Spec.Roots != nil {
		t.Errorf("expected unset spec roots to stay nil, got %v", cfg.Spec.Roots)
	}
	if cfg.Code.RespectGitignore != nil {
		t.Errorf("expected unset respect_gitignore to stay nil, got %v", *cfg.Code.RespectGitignore)
	}
	if cfg.Code.MaxFileSize != 0 {
		t.Errorf("expected unset max file size to stay 0, got %d", cfg.Code.MaxFileSize)
	}
	if cfg.Report.Format != "markdown" {
		t.Errorf("expected format markdown, got %s", cfg.Report.Format)
	}
}

func TestConfigMerge(t *testing.T) {
	respectGitignore := false
	base := DefaultConfig()
	override := &Config{
		Spec: SpecConfig{
			Roots: []string{"requirements"},
		},
		Code: CodeConfig{
			RespectGitignore: &respectGitignore,
		},
	}

	base.Merge(override)

	if len(base.Spec.Roots) != 1 || base.Spec.Roots[0] != "requirements" {
		t.Errorf("expected spec roots [requirements], got %v", base.Spec.Roots)
	}
	// Includes should remain from base since override didn't set them
	if len(base.Spec.Includes) == 0 {
		t.Error("expected includes to remain default")
	}
	if base.Code.GitignoreRespected() {
		t.Error("expected respect_gitignore false after merge")
	}
	// Format should remain from base since override didn't set it
	if base.Report.Format != "text" {
		t.Errorf("expected format to remain default, got %s", base.Report.Format)
	}
}

func TestConfigMergeLayering(t *testing.T) {
	// defaults <- user <- project: a user setting survives a project file
	// that doesn't mention it
	cfg := DefaultConfig()

	user := &Config{Report: ReportConfig{Format: "json"}}
	project := &Config{Code: CodeConfig{Exclude: []string{"gen/**"}}}

	cfg.Merge(user)
	cfg.Merge(project)

	if cfg.Report.Format != "json" {
		t.Errorf("expected user format json to survive, got %s", cfg.Report.Format)
	}
	if len(cfg.Code.Exclude) != 1 || cfg.Code.Exclude[0] != "gen/**" {
		t.Errorf("expected project exclude [gen/**], got %v", cfg.Code.Exclude)
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "spectrace.yaml")

	cfg := DefaultConfig()
	cfg.Report.Format = "markdown"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	// Verify file was created
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	// Load and verify
	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Report.Format != "markdown" {
		t.Errorf("expected format markdown, got %s", loaded.Report.Format)
	}
	if loaded.Code.MaxFileSize != cfg.Code.MaxFileSize {
		t.Errorf("expected max file size %d, got %d", cfg.Code.MaxFileSize, loaded.Code.MaxFileSize)
	}
}
