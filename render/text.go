package render

import (
	"fmt"
	"strings"

	"github.com/c360studio/spectrace/requirement"
	"github.com/c360studio/spectrace/trace"
)

// Text renders a compact terminal summary of the report.
func Text(report *trace.Report) string {
	var sb strings.Builder
	s := report.Summary

	sb.WriteString(fmt.Sprintf("Requirements: %d\n", s.Requirements))
	if line := statusCounts(s.ByStatus); line != "" {
		sb.WriteString("  by status:   " + line + "\n")
	}
	if line := severityCounts(s.BySeverity); line != "" {
		sb.WriteString("  by severity: " + line + "\n")
	}

	if s.Violations == 0 {
		sb.WriteString("\n✓ no policy violations\n")
	} else {
		sb.WriteString(fmt.Sprintf("\n✗ %d policy violation(s)\n", s.Violations))
		for _, cov := range report.Requirements {
			if !cov.Violation {
				continue
			}
			sb.WriteString(fmt.Sprintf("  ✗ %s (%s, %s): %s\n",
				cov.Definition.ID.Qualified(), cov.Definition.Severity, cov.Status, cov.ViolationReason))
		}
	}

	if len(report.Orphaned) > 0 {
		sb.WriteString(fmt.Sprintf("\nOrphaned annotations: %d\n", len(report.Orphaned)))
		for _, orphan := range report.Orphaned {
			sb.WriteString(fmt.Sprintf("  - %s:%d %s (%s)\n", orphan.File, orphan.Line, orphan.RawRef, orphan.Reason))
		}
	}

	if len(report.Metadata.Duplicates) > 0 {
		sb.WriteString(fmt.Sprintf("\nDuplicate definitions: %d\n", len(report.Metadata.Duplicates)))
		for _, dup := range report.Metadata.Duplicates {
			sb.WriteString(fmt.Sprintf("  - %s re-declared at %s:%d, first at %s:%d\n",
				dup.ID, dup.File, dup.Line, dup.FirstFile, dup.FirstLine))
		}
	}

	if len(report.Tasks) > 0 {
		sb.WriteString(fmt.Sprintf("\nTasks: %d\n", len(report.Tasks)))
	}

	if len(report.Metadata.Problems) > 0 {
		sb.WriteString(fmt.Sprintf("\nProblems: %d\n", len(report.Metadata.Problems)))
		for _, problem := range report.Metadata.Problems {
			sb.WriteString(fmt.Sprintf("  - [%s] %s: %s\n", problem.Stage, problem.File, problem.Message))
		}
	}

	return sb.String()
}

// statusCounts formats the per-status counts in presentation order,
// skipping empty buckets.
func statusCounts(counts map[trace.Status]int) string {
	var parts []string
	for _, status := range statusOrder {
		if n := counts[status]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", status, n))
		}
	}
	return strings.Join(parts, ", ")
}

// severityCounts formats the per-severity counts in presentation order,
// skipping empty buckets.
func severityCounts(counts map[requirement.Severity]int) string {
	var parts []string
	for _, severity := range severityOrder {
		if n := counts[severity]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", severity, n))
		}
	}
	return strings.Join(parts, ", ")
}
