// Package codescan walks source and test trees and extracts requirement
// annotations and task markers from file contents. Files are treated as
// opaque text: markers are recognized line by line regardless of the
// surrounding language. Exclusion globs, gitignore rules, and
// test-directory classification are applied during the walk; binary and
// oversized files are skipped. Like the specification scanner, codescan
// is fail-soft: per-file failures become Problems, never a failed scan.
package codescan

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/c360studio/spectrace/requirement"
)

// DefaultTestDirs classifies annotation locations as test evidence when
// no test directories are configured.
var DefaultTestDirs = []string{"test", "tests", "__tests__", "testdata"}

// DefaultMaxFileSize bounds how large a file the scanner will read.
const DefaultMaxFileSize = 4 << 20

// scanConcurrency bounds parallel file reads.
const scanConcurrency = 8

// binarySniffLen is how many leading bytes are checked for a NUL byte
// when deciding whether a file is binary.
const binarySniffLen = 8000

// Annotation is a single requirement reference found in a file.
type Annotation struct {
	// Ref is the parsed identifier. Zero when Malformed is set.
	Ref requirement.ID `json:"ref"`

	// RawRef is the identifier text exactly as written in the marker
	RawRef string `json:"raw_ref"`

	// Malformed is true when RawRef failed identifier parsing
	Malformed bool `json:"malformed,omitempty"`

	// File is the annotated file
	File string `json:"file"`

	// Line is the 1-based line the marker appears on
	Line int `json:"line"`

	// Partial is true when the partial-implementation marker was used
	Partial bool `json:"partial,omitempty"`

	// Test is true when the file falls under a configured test directory
	Test bool `json:"test,omitempty"`
}

// Task is a development task marker with the requirement references
// embedded in its text. A task may reference several requirements; an
// annotation references exactly one.
type Task struct {
	// File is the file the task marker appears in
	File string `json:"file"`

	// Line is the 1-based line of the marker
	Line int `json:"line"`

	// Description is the free text following the marker
	Description string `json:"description"`

	// Refs are the requirement identifiers parsed out of the description
	Refs []requirement.ID `json:"refs,omitempty"`
}

// Problem records a file-local scan failure.
type Problem struct {
	// File is the file the problem occurred on
	File string `json:"file"`

	// Message describes what went wrong
	Message string `json:"message"`
}

// Result is the output of one code scan.
type Result struct {
	// Annotations in walk order, then line order within a file
	Annotations []Annotation `json:"annotations"`

	// Tasks in walk order, then line order within a file
	Tasks []Task `json:"tasks"`

	// Problems lists per-file failures encountered during the scan
	Problems []Problem `json:"problems,omitempty"`

	// FilesScanned counts files whose content was searched for markers
	FilesScanned int `json:"files_scanned"`

	// FilesSkipped counts files excluded by options, ignore rules, size,
	// binary detection, or read failures
	FilesSkipped int `json:"files_skipped"`
}

// Options configures a Scanner.
type Options struct {
	// Exclude are doublestar globs matched against root-relative slash
	// paths. Patterns without a slash also match against the base name,
	// so "*.min.js" excludes minified files at any depth.
	Exclude []string

	// TestDirs are directory names or root-relative paths whose files
	// count as test evidence. Bare names match any element of the file's
	// path including the root itself; entries containing a slash match as
	// root-relative prefixes. Defaults to DefaultTestDirs when empty.
	TestDirs []string

	// RespectGitignore applies .gitignore files found during the walk
	RespectGitignore bool

	// MaxFileSize is the largest file the scanner reads, in bytes.
	// Defaults to DefaultMaxFileSize when zero or negative.
	MaxFileSize int64
}

// Scanner walks source trees and extracts annotation and task markers.
type Scanner struct {
	opts   Options
	logger *slog.Logger
}

// NewScanner creates a code annotation scanner. A nil logger falls back
// to slog.Default().
func NewScanner(opts Options, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	if len(opts.TestDirs) == 0 {
		opts.TestDirs = DefaultTestDirs
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	return &Scanner{opts: opts, logger: logger}
}

// Scan walks the given roots and extracts every marker. Roots may be
// directories or individual files. File contents are processed in
// parallel; the result keeps walk order so repeated scans over identical
// trees produce identical output. The only error returned is context
// cancellation, in which case partial results are discarded.
func (s *Scanner) Scan(ctx context.Context, roots []string) (*Result, error) {
	result := &Result{}

	var candidates []candidate
	for _, root := range roots {
		candidates = append(candidates, s.collectRoot(root, result)...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scans := make([]fileScan, len(candidates))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(scanConcurrency)
	for i, c := range candidates {
		i, c := i, c
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			scans[i] = s.scanFile(c)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for _, fs := range scans {
		if fs.skipped {
			result.FilesSkipped++
		} else {
			result.FilesScanned++
		}
		result.Annotations = append(result.Annotations, fs.annotations...)
		result.Tasks = append(result.Tasks, fs.tasks...)
		result.Problems = append(result.Problems, fs.problems...)
	}

	s.logger.Debug("code scan complete",
		slog.Int("files", result.FilesScanned),
		slog.Int("annotations", len(result.Annotations)),
		slog.Int("tasks", len(result.Tasks)),
		slog.Int("skipped", result.FilesSkipped))

	return result, nil
}

// candidate is a file selected by the walk, not yet read.
type candidate struct {
	// path is used to read the file
	path string

	// display is the slash path reported in annotations and problems
	display string

	// test marks files under a configured test directory
	test bool
}

// collectRoot resolves one root into ordered candidates, applying
// exclusion and ignore rules along the way.
func (s *Scanner) collectRoot(root string, result *Result) []candidate {
	info, err := os.Stat(root)
	if err != nil {
		result.Problems = append(result.Problems, Problem{
			File:    filepath.ToSlash(root),
			Message: fmt.Sprintf("stat scan root: %v", err),
		})
		return nil
	}

	if !info.IsDir() {
		// A root naming a file directly bypasses exclusion rules.
		display := filepath.ToSlash(filepath.Clean(root))
		if info.Size() > s.opts.MaxFileSize {
			result.FilesSkipped++
			return nil
		}
		return []candidate{{
			path:    root,
			display: display,
			test:    s.isTestPath("", path.Dir(display)),
		}}
	}

	var matchers []*ignoreFile
	return s.walkDir(root, "", matchers, result)
}

// walkDir recursively collects candidates under root. rel is the
// slash-separated path of the directory relative to root, empty for the
// root itself. Ignore files accumulate down the tree: rules from parent
// directories stay in force, and later files can re-include with
// negation.
func (s *Scanner) walkDir(root, rel string, matchers []*ignoreFile, result *Result) []candidate {
	dir := root
	if rel != "" {
		dir = filepath.Join(root, filepath.FromSlash(rel))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		result.Problems = append(result.Problems, Problem{
			File:    filepath.ToSlash(dir),
			Message: fmt.Sprintf("read dir: %v", err),
		})
		return nil
	}

	if s.opts.RespectGitignore {
		if ig := loadIgnoreFile(filepath.Join(dir, ".gitignore"), rel); ig != nil {
			matchers = append(matchers, ig)
		}
	}

	var candidates []candidate
	for _, entry := range entries {
		name := entry.Name()
		childRel := name
		if rel != "" {
			childRel = rel + "/" + name
		}

		if entry.IsDir() {
			if skipDirName(name) {
				continue
			}
			if s.excluded(childRel) || ignored(matchers, childRel, true) {
				continue
			}
			candidates = append(candidates, s.walkDir(root, childRel, matchers, result)...)
			continue
		}

		if !entry.Type().IsRegular() {
			continue
		}
		if s.excluded(childRel) || ignored(matchers, childRel, false) {
			result.FilesSkipped++
			continue
		}

		info, err := entry.Info()
		if err != nil {
			result.Problems = append(result.Problems, Problem{
				File:    filepath.ToSlash(filepath.Join(dir, name)),
				Message: fmt.Sprintf("stat: %v", err),
			})
			result.FilesSkipped++
			continue
		}
		if info.Size() > s.opts.MaxFileSize {
			result.FilesSkipped++
			continue
		}

		display := filepath.ToSlash(filepath.Join(root, filepath.FromSlash(childRel)))
		candidates = append(candidates, candidate{
			path:    filepath.Join(dir, name),
			display: display,
			test:    s.isTestPath(path.Dir(childRel), path.Dir(display)),
		})
	}

	return candidates
}

// excluded reports whether a root-relative slash path matches any
// exclude glob.
func (s *Scanner) excluded(rel string) bool {
	for _, pattern := range s.opts.Exclude {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if ok, err := doublestar.Match(pattern, path.Base(rel)); err == nil && ok {
				return true
			}
		}
	}
	return false
}

// isTestPath reports whether a file's directory falls under a configured
// test directory. Bare names match any element of the full display path,
// so a root that is itself a test directory classifies its files; entries
// containing a slash match as root-relative path prefixes.
func (s *Scanner) isTestPath(rel, display string) bool {
	if rel == "." {
		rel = ""
	}
	elements := strings.Split(display, "/")

	for _, td := range s.opts.TestDirs {
		if strings.Contains(td, "/") {
			if rel == td || strings.HasPrefix(rel, td+"/") {
				return true
			}
			continue
		}
		for _, el := range elements {
			if el == td {
				return true
			}
		}
	}
	return false
}

// skipDirName filters directories that are never scanned for markers.
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

// fileScan is the per-file unit of work, merged back in walk order.
type fileScan struct {
	annotations []Annotation
	tasks       []Task
	problems    []Problem
	skipped     bool
}

// scanFile reads a candidate and extracts its markers.
func (s *Scanner) scanFile(c candidate) fileScan {
	content, err := os.ReadFile(c.path)
	if err != nil {
		return fileScan{
			problems: []Problem{{File: c.display, Message: fmt.Sprintf("read: %v", err)}},
			skipped:  true,
		}
	}

	if looksBinary(content) {
		return fileScan{skipped: true}
	}

	return extractMarkers(c.display, content, c.test)
}

// looksBinary reports whether content appears to be a binary file,
// checked by the presence of a NUL byte in the leading bytes.
func looksBinary(content []byte) bool {
	head := content
	if len(head) > binarySniffLen {
		head = head[:binarySniffLen]
	}
	return bytes.IndexByte(head, 0) != -1
}
