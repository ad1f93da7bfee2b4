// Package render serializes traceability reports. The engine computes
// the report's logical content; this package is the thin layer that
// turns it into JSON, terminal text, or markdown. JSON output preserves
// the report's insertion-ordered mappings and summary counts verbatim.
package render

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/c360studio/spectrace/requirement"
	"github.com/c360studio/spectrace/trace"
)

// Format identifies a report output format.
type Format string

const (
	// FormatJSON is the machine-readable report serialization.
	FormatJSON Format = "json"

	// FormatText is a compact terminal summary.
	FormatText Format = "text"

	// FormatMarkdown is a markdown document suitable for CI comments.
	FormatMarkdown Format = "markdown"
)

// ErrUnknownFormat indicates a format name outside the registry.
var ErrUnknownFormat = errors.New("unknown report format")

// FormatInfo provides metadata about an output format.
type FormatInfo struct {
	// Name is the format identifier.
	Name Format

	// MIMEType is the standard MIME type.
	MIMEType string

	// Extension is the file extension (with dot).
	Extension string

	// Description describes the format.
	Description string
}

// FormatRegistry contains metadata for all supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatJSON: {
		Name:        FormatJSON,
		MIMEType:    "application/json",
		Extension:   ".json",
		Description: "JSON - full report with ordered requirement and task mappings",
	},
	FormatText: {
		Name:        FormatText,
		MIMEType:    "text/plain",
		Extension:   ".txt",
		Description: "Text - compact terminal summary",
	},
	FormatMarkdown: {
		Name:        FormatMarkdown,
		MIMEType:    "text/markdown",
		Extension:   ".md",
		Description: "Markdown - report document with requirement table",
	},
}

// GetFormatInfo returns metadata for a format.
func GetFormatInfo(format Format) (FormatInfo, bool) {
	info, ok := FormatRegistry[format]
	return info, ok
}

// Render serializes a report in the given format.
func Render(format Format, report *trace.Report) ([]byte, error) {
	switch format {
	case FormatJSON:
		return JSON(report)
	case FormatText:
		return []byte(Text(report)), nil
	case FormatMarkdown:
		return []byte(Markdown(report)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// JSON renders the report as indented JSON. Requirement and task
// mappings keep their insertion order.
func JSON(report *trace.Report) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return data, nil
}

// statusOrder fixes the presentation order of coverage statuses.
var statusOrder = []trace.Status{
	trace.StatusUncovered,
	trace.StatusPartial,
	trace.StatusTestOnly,
	trace.StatusCodeOnly,
	trace.StatusCodeAndTest,
}

// severityOrder fixes the presentation order of severities.
var severityOrder = []requirement.Severity{
	requirement.SeverityS1,
	requirement.SeverityS2,
	requirement.SeverityS3,
	requirement.SeverityS4,
	requirement.SeverityS5,
}
