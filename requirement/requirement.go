// Package requirement defines the structured requirement identifier and
// the definition record extracted from specification documents. Both
// scanners and the reconciliation engine share these types; nothing in
// this package touches the filesystem.
package requirement

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidIdentifier indicates requirement identifier text that does not
// match the {TYPE}:{scope}/{path} or {TYPE}:{path} grammar.
var ErrInvalidIdentifier = errors.New("invalid requirement identifier")

// MaxPathDepth is the maximum number of dot-separated path segments an
// identifier may carry.
const MaxPathDepth = 5

var (
	// idPattern splits identifier text into type, optional scope, and path.
	// Charset validation for individual path segments happens separately so
	// errors can name the offending part.
	idPattern = regexp.MustCompile(`^(FR|NFR|REQ):(?:([^/]+)/)?(.+)$`)

	// tokenPattern validates scope tokens and individual path segments.
	tokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// Type classifies a requirement identifier.
type Type string

const (
	// TypeFunctional is a functional requirement (FR).
	TypeFunctional Type = "FR"

	// TypeNonFunctional is a non-functional requirement (NFR).
	TypeNonFunctional Type = "NFR"

	// TypeGeneric is a requirement without a functional classification (REQ).
	TypeGeneric Type = "REQ"
)

// String returns the string representation of the type.
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the type is one of FR, NFR, REQ.
func (t Type) IsValid() bool {
	switch t {
	case TypeFunctional, TypeNonFunctional, TypeGeneric:
		return true
	default:
		return false
	}
}

// ID is a structured requirement identifier.
// The qualified and short textual forms are derived via Qualified and
// Short, never stored, so the two can never drift out of sync with the
// structured fields. IDs serialize as their qualified text.
type ID struct {
	// Type is the requirement classification (FR, NFR, REQ)
	Type Type

	// Scope is the feature or initiative grouping. Empty for identifiers
	// declared without one.
	Scope string

	// Path is the dot-separated hierarchy, one to five non-empty segments
	Path string
}

// Parse converts raw identifier text into an ID.
// Accepted forms are "{TYPE}:{scope}/{path}" and "{TYPE}:{path}" where
// TYPE is one of FR, NFR, REQ (case-sensitive) and path is 1-5
// dot-separated segments of [A-Za-z0-9_-]. Surrounding whitespace is
// trimmed; no other normalization is applied. All failures wrap
// ErrInvalidIdentifier.
func Parse(text string) (ID, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ID{}, fmt.Errorf("%w: empty text", ErrInvalidIdentifier)
	}

	m := idPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return ID{}, fmt.Errorf("%w: %q does not match TYPE:scope/path or TYPE:path", ErrInvalidIdentifier, trimmed)
	}

	scope := m[2]
	if scope != "" && !tokenPattern.MatchString(scope) {
		return ID{}, fmt.Errorf("%w: invalid scope %q", ErrInvalidIdentifier, scope)
	}

	path := m[3]
	segments := strings.Split(path, ".")
	if len(segments) > MaxPathDepth {
		return ID{}, fmt.Errorf("%w: path %q exceeds %d segments", ErrInvalidIdentifier, path, MaxPathDepth)
	}
	for _, seg := range segments {
		if !tokenPattern.MatchString(seg) {
			return ID{}, fmt.Errorf("%w: invalid path segment %q in %q", ErrInvalidIdentifier, seg, trimmed)
		}
	}

	return ID{Type: Type(m[1]), Scope: scope, Path: path}, nil
}

// Qualified returns the canonical qualified form "{type}:{scope}/{path}".
// For an ID without a scope the qualified form collapses to the short
// form, keeping the text round-trippable through Parse.
func (id ID) Qualified() string {
	if id.Scope == "" {
		return id.Short()
	}
	return string(id.Type) + ":" + id.Scope + "/" + id.Path
}

// Short returns the scope-less form "{type}:{path}".
func (id ID) Short() string {
	return string(id.Type) + ":" + id.Path
}

// IsZero returns true for the zero ID, used to distinguish "no identifier"
// from a parsed one.
func (id ID) IsZero() bool {
	return id.Type == "" && id.Scope == "" && id.Path == ""
}

// MarshalJSON implements json.Marshaler. IDs are encoded as their
// qualified text; the zero ID encodes as the empty string.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return json.Marshal("")
	}
	return json.Marshal(id.Qualified())
}

// UnmarshalJSON implements json.Unmarshaler, parsing the qualified text
// form. The empty string decodes to the zero ID.
func (id *ID) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	if text == "" {
		*id = ID{}
		return nil
	}
	parsed, err := Parse(text)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
