// Package specdoc extracts requirement definitions from specification
// documents. It walks a set of spec roots, selects markdown and HTML
// files, and turns every requirement declaration into a
// requirement.Definition. Extraction is fail-soft: unreadable files and
// malformed declarations become Problems on the result, never a failed
// scan.
package specdoc

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/c360studio/spectrace/requirement"
)

// DefaultIncludes selects the document types scanned when no include
// globs are configured.
var DefaultIncludes = []string{"**/*.md", "**/*.html", "**/*.htm"}

// scanConcurrency bounds parallel file extraction.
const scanConcurrency = 8

// Problem records a file-local extraction failure. The affected file or
// declaration contributes nothing; the scan continues.
type Problem struct {
	// File is the document the problem occurred in
	File string `json:"file"`

	// Line is the offending line when known, zero otherwise
	Line int `json:"line,omitempty"`

	// Message describes what went wrong
	Message string `json:"message"`
}

// Result is the output of one specification scan.
type Result struct {
	// Definitions holds every declaration in encounter order. Duplicate
	// identifiers are preserved here; collapsing them is the
	// reconciliation engine's job.
	Definitions []requirement.Definition `json:"definitions"`

	// Problems lists file-local failures encountered during the scan
	Problems []Problem `json:"problems,omitempty"`

	// FilesScanned counts documents that were extracted
	FilesScanned int `json:"files_scanned"`

	// FilesSkipped counts documents that could not be read or converted
	FilesSkipped int `json:"files_skipped"`
}

// Options configures a Scanner.
type Options struct {
	// Includes are doublestar globs selecting documents under each root,
	// matched against root-relative slash paths. Defaults to
	// DefaultIncludes when empty.
	Includes []string
}

// Scanner walks specification roots and extracts requirement definitions.
type Scanner struct {
	includes  []string
	converter *converter
	logger    *slog.Logger
}

// NewScanner creates a specification scanner. A nil logger falls back to
// slog.Default().
func NewScanner(opts Options, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	includes := opts.Includes
	if len(includes) == 0 {
		includes = DefaultIncludes
	}
	return &Scanner{
		includes:  includes,
		converter: newConverter(),
		logger:    logger,
	}
}

// Scan walks the given roots and extracts every requirement declaration.
// Roots may be directories or individual document files. File extraction
// runs in parallel; the result keeps walk order so repeated scans over
// identical trees produce identical output. The only error returned is
// context cancellation, in which case partial results are discarded.
func (s *Scanner) Scan(ctx context.Context, roots []string) (*Result, error) {
	result := &Result{}

	files := s.discover(roots, result)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	extractions := make([]fileExtraction, len(files))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(scanConcurrency)
	for i, file := range files {
		i, file := i, file
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			extractions[i] = s.extractFile(file)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for _, ex := range extractions {
		if ex.skipped {
			result.FilesSkipped++
		} else {
			result.FilesScanned++
		}
		result.Definitions = append(result.Definitions, ex.definitions...)
		result.Problems = append(result.Problems, ex.problems...)
	}

	s.logger.Debug("specification scan complete",
		slog.Int("files", result.FilesScanned),
		slog.Int("definitions", len(result.Definitions)),
		slog.Int("problems", len(result.Problems)))

	return result, nil
}

// discover resolves roots into an ordered list of candidate documents.
// Unreadable roots are recorded as problems and skipped.
func (s *Scanner) discover(roots []string, result *Result) []string {
	var files []string
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			result.Problems = append(result.Problems, Problem{
				File:    filepath.ToSlash(root),
				Message: fmt.Sprintf("stat spec root: %v", err),
			})
			continue
		}

		if !info.IsDir() {
			// A root naming a file directly is scanned regardless of globs.
			files = append(files, root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				result.Problems = append(result.Problems, Problem{
					File:    filepath.ToSlash(path),
					Message: fmt.Sprintf("walk: %v", err),
				})
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if path != root && skipDirName(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}

			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return nil
			}
			if s.matchesInclude(filepath.ToSlash(rel)) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			result.Problems = append(result.Problems, Problem{
				File:    filepath.ToSlash(root),
				Message: fmt.Sprintf("walk spec root: %v", err),
			})
		}
	}
	return files
}

// matchesInclude reports whether a root-relative slash path is selected
// by any include glob.
func (s *Scanner) matchesInclude(rel string) bool {
	for _, pattern := range s.includes {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// skipDirName filters directories that never hold specification documents.
func skipDirName(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	switch name {
	case "node_modules", "vendor":
		return true
	default:
		return false
	}
}

// fileExtraction is the per-file unit of work, kept separate so files can
// be processed in parallel and merged back in walk order.
type fileExtraction struct {
	definitions []requirement.Definition
	problems    []Problem
	skipped     bool
}

// extractFile reads one document and extracts its declarations.
func (s *Scanner) extractFile(path string) fileExtraction {
	display := filepath.ToSlash(path)

	content, err := os.ReadFile(path)
	if err != nil {
		return fileExtraction{
			problems: []Problem{{File: display, Message: fmt.Sprintf("read: %v", err)}},
			skipped:  true,
		}
	}

	if isHTMLPath(path) {
		markdown, err := s.converter.Convert(content)
		if err != nil {
			return fileExtraction{
				problems: []Problem{{File: display, Message: fmt.Sprintf("convert html: %v", err)}},
				skipped:  true,
			}
		}
		content = []byte(markdown)
	}

	return extractDefinitions(display, content)
}

// isHTMLPath reports whether the file needs HTML to markdown conversion
// before extraction.
func isHTMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return true
	default:
		return false
	}
}
