package render

import (
	"fmt"
	"strings"

	"github.com/c360studio/spectrace/trace"
)

// Markdown renders the report as a markdown document, suitable for CI
// comments and committed coverage reports.
func Markdown(report *trace.Report) string {
	var sb strings.Builder

	sb.WriteString("# Traceability Report\n\n")
	writeSummarySection(&sb, report)
	writeViolationSection(&sb, report)
	writeRequirementTable(&sb, report)
	writeOrphanSection(&sb, report)
	writeTaskSection(&sb, report)
	writeDuplicateSection(&sb, report)
	writeProblemSection(&sb, report)

	return sb.String()
}

// writeSummarySection writes the aggregate counts as a key-value list.
func writeSummarySection(sb *strings.Builder, report *trace.Report) {
	s := report.Summary

	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Requirements:** %d\n", s.Requirements))
	if line := statusCounts(s.ByStatus); line != "" {
		sb.WriteString(fmt.Sprintf("- **By status:** %s\n", line))
	}
	if line := severityCounts(s.BySeverity); line != "" {
		sb.WriteString(fmt.Sprintf("- **By severity:** %s\n", line))
	}
	sb.WriteString(fmt.Sprintf("- **Violations:** %d\n", s.Violations))
	sb.WriteString(fmt.Sprintf("- **Orphaned annotations:** %d\n", s.Orphans))
	sb.WriteString(fmt.Sprintf("- **Tasks:** %d\n", s.Tasks))
	sb.WriteString(fmt.Sprintf("- **Duplicate definitions:** %d\n", s.Duplicates))
	sb.WriteString("\n")
}

// writeViolationSection lists policy violations, or a pass marker when
// there are none.
func writeViolationSection(sb *strings.Builder, report *trace.Report) {
	if report.Summary.Violations == 0 {
		sb.WriteString("✓ **All severity policies satisfied**\n\n")
		return
	}

	sb.WriteString("## Violations\n\n")
	for _, cov := range report.Requirements {
		if !cov.Violation {
			continue
		}
		sb.WriteString(fmt.Sprintf("- ✗ **%s** (%s): %s\n",
			cov.Definition.ID.Qualified(), cov.Definition.Severity, cov.ViolationReason))
	}
	sb.WriteString("\n")
}

// writeRequirementTable writes one row per requirement in declaration
// order.
func writeRequirementTable(sb *strings.Builder, report *trace.Report) {
	if len(report.Requirements) == 0 {
		return
	}

	sb.WriteString("## Requirements\n\n")
	sb.WriteString("| Requirement | Severity | State | Status | Code | Tests |\n")
	sb.WriteString("|-------------|----------|-------|--------|------|-------|\n")
	for _, cov := range report.Requirements {
		sb.WriteString(fmt.Sprintf("| `%s` | %s | %s | %s | %d | %d |\n",
			cov.Definition.ID.Qualified(),
			cov.Definition.Severity,
			cov.Definition.State,
			cov.Status,
			len(cov.Code),
			len(cov.Tests)))
	}
	sb.WriteString("\n")

	for _, cov := range report.Requirements {
		if cov.Definition.ReplacedBy != "" {
			sb.WriteString(fmt.Sprintf("- `%s` is deprecated, replaced by `%s`\n",
				cov.Definition.ID.Qualified(), cov.Definition.ReplacedBy))
		}
	}
}

// writeOrphanSection lists annotations that resolved to no definition.
func writeOrphanSection(sb *strings.Builder, report *trace.Report) {
	if len(report.Orphaned) == 0 {
		return
	}

	sb.WriteString("\n## Orphaned Annotations\n\n")
	for _, orphan := range report.Orphaned {
		sb.WriteString(fmt.Sprintf("- `%s:%d` references `%s` (%s)\n",
			orphan.File, orphan.Line, orphan.RawRef, orphan.Reason))
		for _, candidate := range orphan.Candidates {
			sb.WriteString(fmt.Sprintf("  - candidate: `%s`\n", candidate))
		}
	}
}

// writeTaskSection lists task references with their requirement links.
func writeTaskSection(sb *strings.Builder, report *trace.Report) {
	if len(report.Tasks) == 0 {
		return
	}

	sb.WriteString("\n## Tasks\n\n")
	for _, task := range report.Tasks {
		sb.WriteString(fmt.Sprintf("- `%s:%d` %s", task.File, task.Line, task.Description))
		if len(task.Refs) > 0 {
			var refs []string
			for _, ref := range task.Refs {
				refs = append(refs, ref.Qualified())
			}
			sb.WriteString(fmt.Sprintf(" (refs: %s)", strings.Join(refs, ", ")))
		}
		sb.WriteString("\n")
	}
}

// writeDuplicateSection lists dropped duplicate declarations.
func writeDuplicateSection(sb *strings.Builder, report *trace.Report) {
	if len(report.Metadata.Duplicates) == 0 {
		return
	}

	sb.WriteString("\n## Duplicate Definitions\n\n")
	for _, dup := range report.Metadata.Duplicates {
		sb.WriteString(fmt.Sprintf("- `%s` re-declared at `%s:%d`, first declared at `%s:%d`\n",
			dup.ID, dup.File, dup.Line, dup.FirstFile, dup.FirstLine))
	}
}

// writeProblemSection lists per-file scan failures.
func writeProblemSection(sb *strings.Builder, report *trace.Report) {
	if len(report.Metadata.Problems) == 0 {
		return
	}

	sb.WriteString("\n## Problems\n\n")
	for _, problem := range report.Metadata.Problems {
		sb.WriteString(fmt.Sprintf("- **%s** `%s`: %s\n", problem.Stage, problem.File, problem.Message))
	}
}
