package requirement

// Severity grades how strictly a requirement's coverage is enforced.
// S1 is the strictest grade and S5 is purely informational; the
// reconciliation policy keys off this value.
type Severity string

const (
	// SeverityS1 requires both code and test evidence. Anything less is a
	// policy violation.
	SeverityS1 Severity = "S1"

	// SeverityS2 requires code evidence; test evidence is optional.
	SeverityS2 Severity = "S2"

	// SeverityS3 expects code evidence but its absence is advisory only.
	SeverityS3 Severity = "S3"

	// SeverityS4 treats code evidence as optional; absence is informational.
	SeverityS4 Severity = "S4"

	// SeverityS5 expects no code at all; any evidence is informational.
	SeverityS5 Severity = "S5"
)

// DefaultSeverity applies when a definition does not state a severity.
const DefaultSeverity = SeverityS3

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// IsValid returns true if the severity is one of S1 through S5.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityS1, SeverityS2, SeverityS3, SeverityS4, SeverityS5:
		return true
	default:
		return false
	}
}

// State is the lifecycle state of a requirement definition.
type State string

const (
	// StateActive indicates the requirement is in force and subject to
	// the coverage policy.
	StateActive State = "active"

	// StateDeferred indicates the requirement is acknowledged but parked;
	// it is reported yet carries no obligation this run.
	StateDeferred State = "deferred"

	// StateDeprecated indicates the requirement has been retired. It is
	// excluded from violation computation and may name a replacement.
	StateDeprecated State = "deprecated"
)

// DefaultState applies when a definition does not state a lifecycle state.
const DefaultState = StateActive

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known lifecycle state.
func (s State) IsValid() bool {
	switch s {
	case StateActive, StateDeferred, StateDeprecated:
		return true
	default:
		return false
	}
}
