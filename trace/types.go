package trace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/c360studio/spectrace/codescan"
	"github.com/c360studio/spectrace/requirement"
)

// Status classifies a requirement's implementation evidence.
type Status string

const (
	// StatusUncovered means no annotation references the requirement.
	StatusUncovered Status = "uncovered"

	// StatusPartial means code evidence exists but every code annotation
	// carries the partial-implementation marker.
	StatusPartial Status = "partial"

	// StatusCodeOnly means full code evidence exists with no test evidence.
	StatusCodeOnly Status = "code-only"

	// StatusCodeAndTest means full code evidence and test evidence both exist.
	StatusCodeAndTest Status = "code-and-test"

	// StatusTestOnly means only test annotations reference the requirement.
	StatusTestOnly Status = "test-only"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid returns true if the status is one of the defined values.
func (s Status) IsValid() bool {
	switch s {
	case StatusUncovered, StatusPartial, StatusCodeOnly, StatusCodeAndTest, StatusTestOnly:
		return true
	default:
		return false
	}
}

// OrphanReason classifies why an annotation failed to resolve.
type OrphanReason string

const (
	// OrphanUnknown means the identifier parsed but matches no definition.
	OrphanUnknown OrphanReason = "unknown"

	// OrphanMalformed means the identifier text failed to parse.
	OrphanMalformed OrphanReason = "malformed"

	// OrphanAmbiguous means a short-form identifier matched more than one
	// definition.
	OrphanAmbiguous OrphanReason = "ambiguous"
)

// String returns the string representation of the reason.
func (r OrphanReason) String() string {
	return string(r)
}

// IsValid returns true if the reason is one of the defined values.
func (r OrphanReason) IsValid() bool {
	switch r {
	case OrphanUnknown, OrphanMalformed, OrphanAmbiguous:
		return true
	default:
		return false
	}
}

// Orphan is an annotation whose identifier resolved to no single
// definition.
type Orphan struct {
	// File is the annotated file
	File string `json:"file"`

	// Line is the 1-based line of the marker
	Line int `json:"line"`

	// RawRef is the identifier text exactly as written
	RawRef string `json:"raw_ref"`

	// Reason classifies the resolution failure
	Reason OrphanReason `json:"reason"`

	// Candidates lists the qualified identifiers an ambiguous short form
	// matched. Empty for other reasons.
	Candidates []string `json:"candidates,omitempty"`
}

// Duplicate records a qualified identifier declared more than once. The
// first declaration stays authoritative; the later one is dropped.
type Duplicate struct {
	// ID is the qualified identifier declared twice
	ID string `json:"id"`

	// FirstFile and FirstLine locate the authoritative declaration
	FirstFile string `json:"first_file"`
	FirstLine int    `json:"first_line"`

	// File and Line locate the dropped declaration
	File string `json:"file"`
	Line int    `json:"line"`
}

// Stage identifies which scan recorded a problem.
type Stage string

const (
	// StageSpec marks problems from the specification document scan.
	StageSpec Stage = "spec"

	// StageCode marks problems from the code annotation scan.
	StageCode Stage = "code"
)

// Problem is a file-local failure carried in report metadata. Problems
// never abort a run; the affected unit simply contributes nothing.
type Problem struct {
	// Stage is the scan that recorded the problem
	Stage Stage `json:"stage"`

	// File is the file the problem occurred on
	File string `json:"file"`

	// Line is the 1-based line when the problem is line-local
	Line int `json:"line,omitempty"`

	// Message describes what went wrong
	Message string `json:"message"`
}

// Coverage is the per-requirement reconciliation result: the definition,
// its matched evidence partitioned by location kind, and the computed
// status under the severity policy. Coverage records are built only by
// Reconcile.
type Coverage struct {
	// Definition is the authoritative declaration
	Definition requirement.Definition `json:"definition"`

	// Code are matching annotations outside test directories
	Code []codescan.Annotation `json:"code,omitempty"`

	// Tests are matching annotations under test directories
	Tests []codescan.Annotation `json:"tests,omitempty"`

	// Status is the computed coverage classification
	Status Status `json:"status"`

	// Violation is set when the severity policy is not met
	Violation bool `json:"violation,omitempty"`

	// ViolationReason explains the policy failure. Empty otherwise.
	ViolationReason string `json:"violation_reason,omitempty"`
}

// CoverageSet is an insertion-ordered collection of coverage records,
// unique by qualified identifier.
type CoverageSet []Coverage

// Get returns the coverage record for a qualified identifier.
func (cs CoverageSet) Get(qualified string) (Coverage, bool) {
	for _, cov := range cs {
		if cov.Definition.ID.Qualified() == qualified {
			return cov, true
		}
	}
	return Coverage{}, false
}

// MarshalJSON implements json.Marshaler. The set encodes as a JSON
// object keyed by qualified identifier, preserving insertion order.
func (cs CoverageSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cov := range cs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(cov.Definition.ID.Qualified())
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(cov)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, decoding the keyed object
// form back into document order. Keys are redundant with the embedded
// identifiers and are not retained.
func (cs *CoverageSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok != json.Delim('{') {
		return fmt.Errorf("coverage set: expected object, got %v", tok)
	}

	var out CoverageSet
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return err
		}
		var cov Coverage
		if err := dec.Decode(&cov); err != nil {
			return err
		}
		out = append(out, cov)
	}

	*cs = out
	return nil
}

// TaskSet is an ordered collection of task references.
type TaskSet []codescan.Task

// taskKey is the report key for a task reference.
func taskKey(task codescan.Task) string {
	return fmt.Sprintf("%s:%d", task.File, task.Line)
}

// MarshalJSON implements json.Marshaler. The set encodes as a JSON
// object keyed by "file:line", preserving scan order.
func (ts TaskSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, task := range ts {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(taskKey(task))
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(task)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, decoding the keyed object
// form back into document order.
func (ts *TaskSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok != json.Delim('{') {
		return fmt.Errorf("task set: expected object, got %v", tok)
	}

	var out TaskSet
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return err
		}
		var task codescan.Task
		if err := dec.Decode(&task); err != nil {
			return err
		}
		out = append(out, task)
	}

	*ts = out
	return nil
}

// Summary aggregates report counts, recomputed each run.
type Summary struct {
	// Requirements is the number of unique requirements reported
	Requirements int `json:"requirements"`

	// ByState counts requirements per lifecycle state
	ByState map[requirement.State]int `json:"by_state"`

	// BySeverity counts requirements per severity
	BySeverity map[requirement.Severity]int `json:"by_severity"`

	// ByStatus counts requirements per coverage status
	ByStatus map[Status]int `json:"by_status"`

	// Violations is the total number of policy violations
	Violations int `json:"violations"`

	// ViolationsBySeverity counts violations per severity
	ViolationsBySeverity map[requirement.Severity]int `json:"violations_by_severity"`

	// Orphans is the number of unresolved annotations
	Orphans int `json:"orphans"`

	// Tasks is the number of task references found
	Tasks int `json:"tasks"`

	// Duplicates is the number of dropped duplicate declarations
	Duplicates int `json:"duplicates"`
}

// OptionsSnapshot records the effective scan configuration of a run,
// with defaults applied.
type OptionsSnapshot struct {
	// SpecRoots are the scanned specification roots
	SpecRoots []string `json:"spec_roots"`

	// SpecIncludes are the document include globs
	SpecIncludes []string `json:"spec_includes"`

	// CodeRoots are the scanned source and test roots
	CodeRoots []string `json:"code_roots,omitempty"`

	// Exclude are the code scan exclusion globs
	Exclude []string `json:"exclude,omitempty"`

	// TestDirs classify annotation locations as test evidence
	TestDirs []string `json:"test_dirs"`

	// RespectGitignore is whether .gitignore rules were applied
	RespectGitignore bool `json:"respect_gitignore,omitempty"`

	// MaxFileSize is the file read bound in bytes
	MaxFileSize int64 `json:"max_file_size"`
}

// Metadata describes one run of the engine.
type Metadata struct {
	// RunID uniquely identifies the run
	RunID string `json:"run_id"`

	// Timestamp is when the run started, UTC
	Timestamp time.Time `json:"timestamp"`

	// Options is the effective configuration snapshot
	Options OptionsSnapshot `json:"options"`

	// SpecFilesScanned and SpecFilesSkipped count specification documents
	SpecFilesScanned int `json:"spec_files_scanned"`
	SpecFilesSkipped int `json:"spec_files_skipped"`

	// CodeFilesScanned and CodeFilesSkipped count source tree files
	CodeFilesScanned int `json:"code_files_scanned"`
	CodeFilesSkipped int `json:"code_files_skipped"`

	// Duplicates records dropped duplicate declarations
	Duplicates []Duplicate `json:"duplicates,omitempty"`

	// Problems lists per-file failures from both scans
	Problems []Problem `json:"problems,omitempty"`
}

// Report is the immutable result of one traceability pass. All contained
// records are owned by the report; callers must not mutate them.
type Report struct {
	// Metadata describes the run itself
	Metadata Metadata `json:"metadata"`

	// Requirements holds one coverage record per unique requirement, in
	// declaration order
	Requirements CoverageSet `json:"requirements"`

	// Orphaned lists unresolved annotations in scan order
	Orphaned []Orphan `json:"orphaned,omitempty"`

	// Tasks lists task references in scan order
	Tasks TaskSet `json:"tasks"`

	// Summary holds the aggregate counts
	Summary Summary `json:"summary"`
}
