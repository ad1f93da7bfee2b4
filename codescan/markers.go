package codescan

import (
	"regexp"
	"strings"

	"github.com/c360studio/spectrace/requirement"
)

// Marker patterns. Markers are language-agnostic: they are matched
// anywhere on a line, so they work inside any comment syntax.
//
//	@req FR:auth/login.validate
//	@req-partial FR:auth/login.validate
//	@task wire the lockout counter to FR:auth/login.lockout
//
// A requirement marker must be followed by whitespace and a token;
// a bare marker with nothing after it is not recognized.
var (
	reqMarkerPattern  = regexp.MustCompile(`@req(-partial)?\b(?:[ \t]+(\S+))?`)
	taskMarkerPattern = regexp.MustCompile(`@task\b[ \t]*(.*)`)
	refTokenPattern   = regexp.MustCompile(`\b(?:FR|NFR|REQ):[A-Za-z0-9_./-]+`)
)

// extractMarkers pulls every annotation and task out of file content.
// Pure: identical content and location always yield identical results.
// A marker whose identifier fails to parse produces a Malformed
// annotation rather than aborting the file; unrecognizable text is
// skipped.
func extractMarkers(file string, content []byte, isTest bool) fileScan {
	var fs fileScan

	for idx, raw := range strings.Split(string(content), "\n") {
		line := strings.TrimRight(raw, "\r")
		lineNo := idx + 1

		// Everything after a task marker belongs to the task description,
		// so requirement markers are only recognized before it.
		reqRegion := line
		taskMatch := taskMarkerPattern.FindStringSubmatchIndex(line)
		if taskMatch != nil {
			reqRegion = line[:taskMatch[0]]
		}

		for _, m := range reqMarkerPattern.FindAllStringSubmatchIndex(reqRegion, -1) {
			if m[4] == -1 {
				// Bare marker with no identifier token.
				continue
			}
			ann := Annotation{
				RawRef:  reqRegion[m[4]:m[5]],
				File:    file,
				Line:    lineNo,
				Partial: m[2] != -1,
				Test:    isTest,
			}
			if id, err := requirement.Parse(ann.RawRef); err == nil {
				ann.Ref = id
			} else {
				ann.Malformed = true
			}
			fs.annotations = append(fs.annotations, ann)
		}

		if taskMatch != nil {
			description := strings.TrimSpace(line[taskMatch[2]:taskMatch[3]])
			fs.tasks = append(fs.tasks, Task{
				File:        file,
				Line:        lineNo,
				Description: description,
				Refs:        parseTaskRefs(description),
			})
		}
	}

	return fs
}

// parseTaskRefs extracts the requirement identifiers embedded in task
// text. Tokens that look like identifiers but fail to parse are left as
// prose; tasks are free-form, so only well-formed references count.
func parseTaskRefs(description string) []requirement.ID {
	var refs []requirement.ID
	for _, token := range refTokenPattern.FindAllString(description, -1) {
		token = strings.TrimRight(token, ".,;:!?")
		id, err := requirement.Parse(token)
		if err != nil {
			continue
		}
		refs = append(refs, id)
	}
	return refs
}
