package trace

import (
	"github.com/c360studio/spectrace/codescan"
	"github.com/c360studio/spectrace/requirement"
)

// Reconciliation is the output of one reconcile pass, before report
// metadata is attached.
type Reconciliation struct {
	// Requirements holds one coverage record per unique requirement, in
	// declaration order
	Requirements CoverageSet

	// Orphaned lists annotations that resolved to no single definition
	Orphaned []Orphan

	// Tasks passes task references through unchanged
	Tasks TaskSet

	// Duplicates records later declarations of an already-declared
	// qualified identifier
	Duplicates []Duplicate

	// Summary holds the aggregate counts
	Summary Summary
}

// registry is the immutable view of every requirement definition in a
// run, built once before any annotation is resolved. It is local to one
// Reconcile call, never shared across runs.
type registry struct {
	byQualified map[string]requirement.Definition
	byShort     map[string][]string
	order       []string
	duplicates  []Duplicate
}

// buildRegistry indexes definitions by qualified and short form. The
// first declaration of a qualified identifier is authoritative; later
// ones are recorded as duplicates and dropped.
func buildRegistry(defs []requirement.Definition) *registry {
	reg := &registry{
		byQualified: make(map[string]requirement.Definition, len(defs)),
		byShort:     make(map[string][]string, len(defs)),
	}

	for _, def := range defs {
		qualified := def.ID.Qualified()
		if first, ok := reg.byQualified[qualified]; ok {
			reg.duplicates = append(reg.duplicates, Duplicate{
				ID:        qualified,
				FirstFile: first.SpecFile,
				FirstLine: first.SpecLine,
				File:      def.SpecFile,
				Line:      def.SpecLine,
			})
			continue
		}

		reg.byQualified[qualified] = def
		reg.order = append(reg.order, qualified)
		short := def.ID.Short()
		reg.byShort[short] = append(reg.byShort[short], qualified)
	}

	return reg
}

// resolve maps an annotation to the qualified identifier of its
// definition. Scoped references match exactly; scope-less references
// match any definition sharing the short form. Resolution failures
// return an orphan instead.
func (reg *registry) resolve(ann codescan.Annotation) (string, *Orphan) {
	if ann.Malformed {
		return "", &Orphan{File: ann.File, Line: ann.Line, RawRef: ann.RawRef, Reason: OrphanMalformed}
	}

	if ann.Ref.Scope != "" {
		qualified := ann.Ref.Qualified()
		if _, ok := reg.byQualified[qualified]; ok {
			return qualified, nil
		}
		return "", &Orphan{File: ann.File, Line: ann.Line, RawRef: ann.RawRef, Reason: OrphanUnknown}
	}

	candidates := reg.byShort[ann.Ref.Short()]
	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		return "", &Orphan{File: ann.File, Line: ann.Line, RawRef: ann.RawRef, Reason: OrphanUnknown}
	default:
		// Never silently pick one of several scopes sharing a path.
		return "", &Orphan{
			File:       ann.File,
			Line:       ann.Line,
			RawRef:     ann.RawRef,
			Reason:     OrphanAmbiguous,
			Candidates: append([]string(nil), candidates...),
		}
	}
}

// classify derives the coverage status from partitioned evidence. Code
// evidence that is entirely partial classifies as partial regardless of
// tests.
func classify(code, tests []codescan.Annotation) Status {
	full := false
	for _, ann := range code {
		if !ann.Partial {
			full = true
			break
		}
	}

	switch {
	case len(code) == 0 && len(tests) == 0:
		return StatusUncovered
	case len(code) == 0:
		return StatusTestOnly
	case !full:
		return StatusPartial
	case len(tests) > 0:
		return StatusCodeAndTest
	default:
		return StatusCodeOnly
	}
}

// checkPolicy applies the severity policy. S1 requires code and test
// evidence, S2 requires code evidence, S3 through S5 never violate.
// Only active requirements carry obligations; deferred and deprecated
// ones are reported but excluded from violation computation.
func checkPolicy(def requirement.Definition, code, tests []codescan.Annotation) (bool, string) {
	if def.State != requirement.StateActive {
		return false, ""
	}

	switch def.Severity {
	case requirement.SeverityS1:
		switch {
		case len(code) == 0 && len(tests) == 0:
			return true, "S1 requirement has no code or test evidence"
		case len(code) == 0:
			return true, "S1 requirement has no code evidence"
		case len(tests) == 0:
			return true, "S1 requirement has no test evidence"
		}
	case requirement.SeverityS2:
		if len(code) == 0 {
			return true, "S2 requirement has no code evidence"
		}
	}

	return false, ""
}

// Reconcile matches annotations against definitions and classifies every
// requirement's coverage. The result preserves declaration order for
// requirements and scan order for orphans and tasks, so identical inputs
// always produce identical output.
func Reconcile(defs []requirement.Definition, annotations []codescan.Annotation, tasks []codescan.Task) *Reconciliation {
	reg := buildRegistry(defs)

	code := make(map[string][]codescan.Annotation)
	tests := make(map[string][]codescan.Annotation)
	var orphans []Orphan

	for _, ann := range annotations {
		qualified, orphan := reg.resolve(ann)
		if orphan != nil {
			orphans = append(orphans, *orphan)
			continue
		}
		if ann.Test {
			tests[qualified] = append(tests[qualified], ann)
		} else {
			code[qualified] = append(code[qualified], ann)
		}
	}

	requirements := make(CoverageSet, 0, len(reg.order))
	for _, qualified := range reg.order {
		def := reg.byQualified[qualified]
		cov := Coverage{
			Definition: def,
			Code:       code[qualified],
			Tests:      tests[qualified],
			Status:     classify(code[qualified], tests[qualified]),
		}
		cov.Violation, cov.ViolationReason = checkPolicy(def, cov.Code, cov.Tests)
		requirements = append(requirements, cov)
	}

	rec := &Reconciliation{
		Requirements: requirements,
		Orphaned:     orphans,
		Tasks:        TaskSet(tasks),
		Duplicates:   reg.duplicates,
	}
	rec.Summary = summarize(rec)
	return rec
}

// summarize aggregates the counts exposed in the report summary.
func summarize(rec *Reconciliation) Summary {
	s := Summary{
		Requirements:         len(rec.Requirements),
		ByState:              make(map[requirement.State]int),
		BySeverity:           make(map[requirement.Severity]int),
		ByStatus:             make(map[Status]int),
		ViolationsBySeverity: make(map[requirement.Severity]int),
		Orphans:              len(rec.Orphaned),
		Tasks:                len(rec.Tasks),
		Duplicates:           len(rec.Duplicates),
	}

	for _, cov := range rec.Requirements {
		s.ByState[cov.Definition.State]++
		s.BySeverity[cov.Definition.Severity]++
		s.ByStatus[cov.Status]++
		if cov.Violation {
			s.Violations++
			s.ViolationsBySeverity[cov.Definition.Severity]++
		}
	}

	return s
}
