package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/spectrace/config"
	"github.com/c360studio/spectrace/requirement"
	"github.com/c360studio/spectrace/trace"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := rootCmd()

	names := make(map[string]bool)
	for _, sub := range root.Commands() {
		names[sub.Name()] = true
	}

	for _, want := range []string{"scan", "watch", "config", "formats", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestFailingViolations(t *testing.T) {
	report := &trace.Report{
		Requirements: trace.CoverageSet{
			{
				Definition: requirement.Definition{Severity: requirement.SeverityS1},
				Violation:  true,
			},
			{
				Definition: requirement.Definition{Severity: requirement.SeverityS2},
				Violation:  true,
			},
			{
				Definition: requirement.Definition{Severity: requirement.SeverityS1},
			},
		},
	}

	tests := []struct {
		name   string
		failOn requirement.Severity
		want   int
	}{
		{name: "empty disables the check", failOn: "", want: 0},
		{name: "S1 counts only S1", failOn: requirement.SeverityS1, want: 1},
		{name: "S2 counts S1 and S2", failOn: requirement.SeverityS2, want: 2},
		{name: "S5 counts everything", failOn: requirement.SeverityS5, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, failingViolations(report, tt.failOn))
		})
	}
}

func TestScanFlags_Overrides(t *testing.T) {
	flags := &scanFlags{
		specRoots: []string{"docs"},
		codeRoots: []string{"src", "lib"},
		format:    "json",
		output:    "report.json",
		failOn:    "S1",
	}

	overrides := flags.overrides()

	assert.Equal(t, []string{"docs"}, overrides.Spec.Roots)
	assert.Equal(t, []string{"src", "lib"}, overrides.Code.Roots)
	assert.Equal(t, "json", overrides.Report.Format)
	assert.Equal(t, "report.json", overrides.Report.Output)
	assert.Equal(t, "S1", overrides.Report.FailOn)
}

// scanFixture lays out a spec root and a code root, returning both
// along with a config file path selecting JSON output.
func scanFixture(t *testing.T, withTest bool) (specDir, codeDir, cfgPath string) {
	t.Helper()
	tmp := t.TempDir()

	specDir = filepath.Join(tmp, "specs")
	require.NoError(t, os.MkdirAll(specDir, 0755))
	spec := "### Requirement: FR:auth/login.validate\nSeverity: S1\n\nCredential validation rejects expired accounts.\n"
	require.NoError(t, os.WriteFile(filepath.Join(specDir, "auth.md"), []byte(spec), 0644))

	codeDir = filepath.Join(tmp, "src")
	require.NoError(t, os.MkdirAll(codeDir, 0755))
	code := "# @req FR:auth/login.validate\ndef validate(creds):\n    pass\n"
	require.NoError(t, os.WriteFile(filepath.Join(codeDir, "login.py"), []byte(code), 0644))

	if withTest {
		testDir := filepath.Join(codeDir, "tests")
		require.NoError(t, os.MkdirAll(testDir, 0755))
		test := "# @req FR:auth/login.validate\ndef test_validate():\n    pass\n"
		require.NoError(t, os.WriteFile(filepath.Join(testDir, "login_test.py"), []byte(test), 0644))
	}

	cfgPath = filepath.Join(tmp, "spectrace.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("report:\n  format: json\n"), 0644))

	return specDir, codeDir, cfgPath
}

func TestScanCmd_WritesReport(t *testing.T) {
	specDir, codeDir, cfgPath := scanFixture(t, true)
	outPath := filepath.Join(t.TempDir(), "report.json")

	root := rootCmd()
	root.SetArgs([]string{
		"scan",
		"--config", cfgPath,
		"--spec-root", specDir,
		"--code-root", codeDir,
		"--output", outPath,
		"--log-level", "error",
	})
	require.NoError(t, root.Execute())

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var report trace.Report
	require.NoError(t, json.Unmarshal(data, &report))
	require.Len(t, report.Requirements, 1)
	assert.Equal(t, "FR:auth/login.validate", report.Requirements[0].Definition.ID.Qualified())
	assert.Equal(t, trace.StatusCodeAndTest, report.Requirements[0].Status)
	assert.Equal(t, 0, report.Summary.Violations)
}

func TestScanCmd_FailOnViolations(t *testing.T) {
	specDir, codeDir, cfgPath := scanFixture(t, false)
	outPath := filepath.Join(t.TempDir(), "report.json")

	root := rootCmd()
	root.SetArgs([]string{
		"scan",
		"--config", cfgPath,
		"--spec-root", specDir,
		"--code-root", codeDir,
		"--output", outPath,
		"--fail-on", "S2",
		"--log-level", "error",
	})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "violation")

	// The report is still written before the exit-code check
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var report trace.Report
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, 1, report.Summary.Violations)
	assert.Equal(t, trace.StatusCodeOnly, report.Requirements[0].Status)
}

func TestScanCmd_UnknownFormat(t *testing.T) {
	specDir, codeDir, cfgPath := scanFixture(t, true)

	root := rootCmd()
	root.SetArgs([]string{
		"scan",
		"--config", cfgPath,
		"--spec-root", specDir,
		"--code-root", codeDir,
		"--format", "yaml",
		"--log-level", "error",
	})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown report format")
}

func TestConfigInitCmd(t *testing.T) {
	tmp := t.TempDir()
	oldwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() { _ = os.Chdir(oldwd) })

	root := rootCmd()
	root.SetArgs([]string{"config", "init", "--log-level", "error"})
	require.NoError(t, root.Execute())

	_, err = os.Stat(filepath.Join(tmp, config.ProjectConfigFile))
	require.NoError(t, err)

	// A second init refuses to overwrite
	root = rootCmd()
	root.SetArgs([]string{"config", "init", "--log-level", "error"})
	err = root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	// Unless forced
	root = rootCmd()
	root.SetArgs([]string{"config", "init", "--force", "--log-level", "error"})
	require.NoError(t, root.Execute())
}
