// Package trace is the reconciliation engine. One pass scans
// specification documents for requirement definitions, scans source and
// test trees for annotations and tasks, matches the two sets under
// qualified-first short-form-fallback resolution, classifies every
// requirement's coverage under the severity policy, and assembles an
// immutable report. All detectable problems inside a pass are data in
// the report; the engine has no fatal error path of its own.
package trace

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/spectrace/codescan"
	"github.com/c360studio/spectrace/specdoc"
)

// ErrNoSpecRoots indicates a run was requested without any specification
// roots to scan.
var ErrNoSpecRoots = errors.New("no specification roots supplied")

// Params configures one traceability pass.
type Params struct {
	// SpecRoots are the files or directories scanned for requirement
	// declarations. At least one is required.
	SpecRoots []string

	// SpecIncludes narrows which files under SpecRoots are read.
	// Defaults to specdoc.DefaultIncludes.
	SpecIncludes []string

	// CodeRoots are the source and test trees scanned for markers. May
	// be empty, in which case every requirement reports uncovered.
	CodeRoots []string

	// Exclude are doublestar globs removing files from the code scan
	Exclude []string

	// TestDirs classify annotation locations as test evidence. Defaults
	// to codescan.DefaultTestDirs.
	TestDirs []string

	// RespectGitignore applies .gitignore rules during the code scan
	RespectGitignore bool

	// MaxFileSize bounds file reads during the code scan. Defaults to
	// codescan.DefaultMaxFileSize.
	MaxFileSize int64

	// Logger receives scan diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Run executes one traceability pass: scan specifications, scan code,
// reconcile, assemble. The only errors returned are a missing spec-root
// configuration and context cancellation; everything the pass finds is
// data in the report. On cancellation partial results are discarded.
func Run(ctx context.Context, params Params) (*Report, error) {
	if len(params.SpecRoots) == 0 {
		return nil, ErrNoSpecRoots
	}

	if params.Logger == nil {
		params.Logger = slog.Default()
	}
	if len(params.SpecIncludes) == 0 {
		params.SpecIncludes = specdoc.DefaultIncludes
	}
	if len(params.TestDirs) == 0 {
		params.TestDirs = codescan.DefaultTestDirs
	}
	if params.MaxFileSize <= 0 {
		params.MaxFileSize = codescan.DefaultMaxFileSize
	}

	specScanner := specdoc.NewScanner(specdoc.Options{Includes: params.SpecIncludes}, params.Logger)
	specs, err := specScanner.Scan(ctx, params.SpecRoots)
	if err != nil {
		return nil, err
	}

	code := &codescan.Result{}
	if len(params.CodeRoots) > 0 {
		codeScanner := codescan.NewScanner(codescan.Options{
			Exclude:          params.Exclude,
			TestDirs:         params.TestDirs,
			RespectGitignore: params.RespectGitignore,
			MaxFileSize:      params.MaxFileSize,
		}, params.Logger)
		code, err = codeScanner.Scan(ctx, params.CodeRoots)
		if err != nil {
			return nil, err
		}
	}

	rec := Reconcile(specs.Definitions, code.Annotations, code.Tasks)
	report := assemble(params, specs, code, rec)

	params.Logger.Info("traceability pass complete",
		slog.String("run_id", report.Metadata.RunID),
		slog.Int("requirements", report.Summary.Requirements),
		slog.Int("violations", report.Summary.Violations),
		slog.Int("orphans", report.Summary.Orphans))

	return report, nil
}

// assemble shapes reconciler output into the report and attaches run
// metadata. No computation happens here.
func assemble(params Params, specs *specdoc.Result, code *codescan.Result, rec *Reconciliation) *Report {
	var problems []Problem
	for _, p := range specs.Problems {
		problems = append(problems, Problem{Stage: StageSpec, File: p.File, Line: p.Line, Message: p.Message})
	}
	for _, p := range code.Problems {
		problems = append(problems, Problem{Stage: StageCode, File: p.File, Message: p.Message})
	}

	return &Report{
		Metadata: Metadata{
			RunID:     uuid.New().String(),
			Timestamp: time.Now().UTC(),
			Options: OptionsSnapshot{
				SpecRoots:        params.SpecRoots,
				SpecIncludes:     params.SpecIncludes,
				CodeRoots:        params.CodeRoots,
				Exclude:          params.Exclude,
				TestDirs:         params.TestDirs,
				RespectGitignore: params.RespectGitignore,
				MaxFileSize:      params.MaxFileSize,
			},
			SpecFilesScanned: specs.FilesScanned,
			SpecFilesSkipped: specs.FilesSkipped,
			CodeFilesScanned: code.FilesScanned,
			CodeFilesSkipped: code.FilesSkipped,
			Duplicates:       rec.Duplicates,
			Problems:         problems,
		},
		Requirements: rec.Requirements,
		Orphaned:     rec.Orphaned,
		Tasks:        rec.Tasks,
		Summary:      rec.Summary,
	}
}
