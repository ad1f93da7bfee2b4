package requirement

// Definition is a requirement declaration extracted from a specification
// document. Definitions are built once per scan pass and never mutated;
// a re-scan discards and rebuilds them, so there is no persisted identity
// across runs.
type Definition struct {
	// ID is the parsed requirement identifier
	ID ID `json:"id"`

	// State is the lifecycle state, defaulted to active when undeclared
	State State `json:"state"`

	// Severity is the enforcement grade, defaulted to S3 when undeclared
	Severity Severity `json:"severity"`

	// Text is the full requirement text following the declaration
	Text string `json:"text,omitempty"`

	// SpecFile is the document the declaration came from
	SpecFile string `json:"spec_file"`

	// SpecLine is the line of the identifier token within SpecFile
	SpecLine int `json:"spec_line"`

	// ReplacedBy names the replacement identifier for a deprecated
	// requirement. Empty otherwise.
	ReplacedBy string `json:"replaced_by,omitempty"`
}

// NewDefinition constructs a Definition with the default severity and
// state applied. Explicit severity or state markers found next to the
// declaration overwrite the defaults afterwards.
func NewDefinition(id ID, specFile string, specLine int) Definition {
	return Definition{
		ID:       id,
		State:    DefaultState,
		Severity: DefaultSeverity,
		SpecFile: specFile,
		SpecLine: specLine,
	}
}
