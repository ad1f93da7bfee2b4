package specdoc

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/spectrace/requirement"
)

// reqHeaderPattern matches a requirement declaration heading. The lines
// until the next declaration may carry severity, state, and replacement
// markers.
var reqHeaderPattern = regexp.MustCompile(`(?m)^###\s+Requirement:\s+(.+)$`)

const (
	severityMarker   = "Severity:"
	stateMarker      = "State:"
	replacedByMarker = "Replaced-By:"
)

// extractDefinitions pulls every requirement declaration out of a
// markdown document. Pure: identical content always yields identical
// definitions and problems.
func extractDefinitions(path string, content []byte) fileExtraction {
	var ex fileExtraction

	text := string(content)
	frontmatter, body, bodyLine, err := splitFrontmatter(text)
	if err != nil {
		// Malformed frontmatter is recorded but the document still scans,
		// treating the whole content as body.
		ex.problems = append(ex.problems, Problem{
			File:    path,
			Line:    1,
			Message: fmt.Sprintf("frontmatter: %v", err),
		})
		body = text
		bodyLine = 1
	}

	docSeverity, docState := documentDefaults(path, frontmatter, &ex)

	matches := reqHeaderPattern.FindAllStringSubmatchIndex(body, -1)
	for i, match := range matches {
		idText := strings.TrimSpace(body[match[2]:match[3]])
		line := bodyLine + strings.Count(body[:match[0]], "\n")

		id, err := requirement.Parse(idText)
		if err != nil {
			ex.problems = append(ex.problems, Problem{
				File:    path,
				Line:    line,
				Message: fmt.Sprintf("requirement declaration: %v", err),
			})
			continue
		}

		// Declaration body runs to the next declaration or end of document.
		bodyStart := match[1]
		bodyEnd := len(body)
		if i < len(matches)-1 {
			bodyEnd = matches[i+1][0]
		}

		def := requirement.NewDefinition(id, path, line)
		def.Severity = docSeverity
		def.State = docState
		parseDeclarationBody(path, line, body[bodyStart:bodyEnd], &def, &ex)

		ex.definitions = append(ex.definitions, def)
	}

	return ex
}

// documentDefaults reads document-level severity and state defaults from
// frontmatter. Invalid values are reported and the package defaults kept.
func documentDefaults(path string, frontmatter map[string]any, ex *fileExtraction) (requirement.Severity, requirement.State) {
	severity := requirement.DefaultSeverity
	state := requirement.DefaultState

	if raw, ok := frontmatter["severity"].(string); ok {
		if s := requirement.Severity(raw); s.IsValid() {
			severity = s
		} else {
			ex.problems = append(ex.problems, Problem{
				File:    path,
				Message: fmt.Sprintf("frontmatter severity %q is not S1..S5", raw),
			})
		}
	}
	if raw, ok := frontmatter["state"].(string); ok {
		if s := requirement.State(raw); s.IsValid() {
			state = s
		} else {
			ex.problems = append(ex.problems, Problem{
				File:    path,
				Message: fmt.Sprintf("frontmatter state %q is not a lifecycle state", raw),
			})
		}
	}

	return severity, state
}

// parseDeclarationBody applies marker lines to the definition and
// collects the remaining lines as requirement text. The body begins on
// the declaration's heading line, so line offsets within it are relative
// to headerLine.
func parseDeclarationBody(path string, headerLine int, body string, def *requirement.Definition, ex *fileExtraction) {
	var textLines []string

	for idx, raw := range strings.Split(body, "\n") {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, severityMarker):
			value := strings.TrimSpace(strings.TrimPrefix(trimmed, severityMarker))
			if s := requirement.Severity(value); s.IsValid() {
				def.Severity = s
			} else {
				ex.problems = append(ex.problems, Problem{
					File:    path,
					Line:    headerLine + idx,
					Message: fmt.Sprintf("severity %q is not S1..S5", value),
				})
			}
		case strings.HasPrefix(trimmed, stateMarker):
			value := strings.TrimSpace(strings.TrimPrefix(trimmed, stateMarker))
			if s := requirement.State(value); s.IsValid() {
				def.State = s
			} else {
				ex.problems = append(ex.problems, Problem{
					File:    path,
					Line:    headerLine + idx,
					Message: fmt.Sprintf("state %q is not a lifecycle state", value),
				})
			}
		case strings.HasPrefix(trimmed, replacedByMarker):
			def.ReplacedBy = strings.TrimSpace(strings.TrimPrefix(trimmed, replacedByMarker))
		default:
			textLines = append(textLines, line)
		}
	}

	def.Text = strings.TrimSpace(strings.Join(textLines, "\n"))
}

// splitFrontmatter separates YAML frontmatter from the document body.
// Returns the parsed frontmatter, the body, and the 1-based line the body
// starts on in the original document. Documents without an opening
// delimiter pass through untouched.
func splitFrontmatter(content string) (map[string]any, string, int, error) {
	if !strings.HasPrefix(content, "---\n") && !strings.HasPrefix(content, "---\r\n") {
		return nil, content, 1, nil
	}

	const delimiter = "---"

	start := len(delimiter)
	if len(content) > start && content[start] == '\r' {
		start++
	}
	if len(content) > start && content[start] == '\n' {
		start++
	}

	closeIdx := strings.Index(content[start:], "\n"+delimiter)
	if closeIdx == -1 {
		closeIdx = strings.Index(content[start:], "\r\n"+delimiter)
	}
	if closeIdx == -1 {
		// No closing delimiter: the whole document is body.
		return nil, content, 1, nil
	}

	yamlContent := content[start : start+closeIdx]

	bodyStart := start + closeIdx + 1 + len(delimiter)
	for bodyStart < len(content) && (content[bodyStart] == '\n' || content[bodyStart] == '\r') {
		bodyStart++
	}

	body := ""
	if bodyStart < len(content) {
		body = content[bodyStart:]
	}
	bodyLine := 1 + strings.Count(content[:bodyStart], "\n")

	var frontmatter map[string]any
	if err := yaml.Unmarshal([]byte(yamlContent), &frontmatter); err != nil {
		return nil, content, 1, fmt.Errorf("parse YAML frontmatter: %w", err)
	}

	return frontmatter, body, bodyLine, nil
}
