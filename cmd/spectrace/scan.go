package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/c360studio/spectrace/config"
	"github.com/c360studio/spectrace/render"
	"github.com/c360studio/spectrace/requirement"
	"github.com/c360studio/spectrace/trace"
)

// scanFlags carries the per-invocation overrides shared by scan and
// watch. Unset flags leave the layered config values in place.
type scanFlags struct {
	specRoots []string
	codeRoots []string
	format    string
	output    string
	failOn    string
}

func (f *scanFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.specRoots, "spec-root", nil, "Specification document root (repeatable)")
	cmd.Flags().StringSliceVar(&f.codeRoots, "code-root", nil, "Source tree root (repeatable)")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Report format (json, text, markdown)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Write the report to a file instead of stdout")
}

func (f *scanFlags) overrides() *config.Config {
	return &config.Config{
		Spec:   config.SpecConfig{Roots: f.specRoots},
		Code:   config.CodeConfig{Roots: f.codeRoots},
		Report: config.ReportConfig{Format: f.format, Output: f.output, FailOn: f.failOn},
	}
}

func scanCmd(configPath *string) *cobra.Command {
	flags := &scanFlags{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one traceability pass and render the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadEffectiveConfig(*configPath, flags.overrides())
			if err != nil {
				return err
			}

			report, err := runPass(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if err := writeReport(cfg, report); err != nil {
				return err
			}

			if n := failingViolations(report, requirement.Severity(cfg.Report.FailOn)); n > 0 {
				return fmt.Errorf("%d violation(s) at severity %s or stricter", n, cfg.Report.FailOn)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&flags.failOn, "fail-on", "", "Exit non-zero on violations at this severity or stricter (S1..S5)")

	return cmd
}

// loadEffectiveConfig assembles the layered configuration with flag
// overrides applied on top, then validates the result.
func loadEffectiveConfig(configPath string, overrides *config.Config) (*config.Config, error) {
	loader := config.NewLoader(slog.Default())

	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = loader.LoadPath(configPath)
	} else {
		cfg, err = loader.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg.Merge(overrides)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runPass executes one traceability pass with the configured options.
func runPass(ctx context.Context, cfg *config.Config) (*trace.Report, error) {
	return trace.Run(ctx, trace.Params{
		SpecRoots:        cfg.Spec.Roots,
		SpecIncludes:     cfg.Spec.Includes,
		CodeRoots:        cfg.Code.Roots,
		Exclude:          cfg.Code.Exclude,
		TestDirs:         cfg.Code.TestDirs,
		RespectGitignore: cfg.Code.GitignoreRespected(),
		MaxFileSize:      cfg.Code.MaxFileSize,
		Logger:           slog.Default(),
	})
}

// writeReport renders the report and writes it to the configured output.
func writeReport(cfg *config.Config, report *trace.Report) error {
	data, err := render.Render(render.Format(cfg.Report.Format), report)
	if err != nil {
		return err
	}

	if cfg.Report.Output == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			return err
		}
		if len(data) > 0 && data[len(data)-1] != '\n' {
			fmt.Println()
		}
		return nil
	}

	if err := os.WriteFile(cfg.Report.Output, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	slog.Info("Report written",
		slog.String("path", cfg.Report.Output),
		slog.String("format", cfg.Report.Format))
	return nil
}

// failingViolations counts violations at failOn severity or stricter.
// An empty failOn disables the exit-code check.
func failingViolations(report *trace.Report, failOn requirement.Severity) int {
	if failOn == "" {
		return 0
	}
	n := 0
	for _, cov := range report.Requirements {
		if cov.Violation && cov.Definition.Severity <= failOn {
			n++
		}
	}
	return n
}
