package requirement

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_QualifiedForm(t *testing.T) {
	id, err := Parse("FR:sample-feature/auth.login")
	require.NoError(t, err)

	assert.Equal(t, TypeFunctional, id.Type)
	assert.Equal(t, "sample-feature", id.Scope)
	assert.Equal(t, "auth.login", id.Path)
	assert.Equal(t, "FR:sample-feature/auth.login", id.Qualified())
	assert.Equal(t, "FR:auth.login", id.Short())
}

func TestParse_ShortForm(t *testing.T) {
	id, err := Parse("NFR:perf.latency.p99")
	require.NoError(t, err)

	assert.Equal(t, TypeNonFunctional, id.Type)
	assert.Empty(t, id.Scope)
	assert.Equal(t, "perf.latency.p99", id.Path)
	assert.Equal(t, "NFR:perf.latency.p99", id.Qualified())
	assert.Equal(t, id.Qualified(), id.Short())
}

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		name string
		text string
		want ID
	}{
		{
			name: "single segment path",
			text: "REQ:audit",
			want: ID{Type: TypeGeneric, Path: "audit"},
		},
		{
			name: "five segment path at depth limit",
			text: "FR:a.b.c.d.e",
			want: ID{Type: TypeFunctional, Path: "a.b.c.d.e"},
		},
		{
			name: "scope with hyphen and underscore",
			text: "FR:user_mgmt-v2/login",
			want: ID{Type: TypeFunctional, Scope: "user_mgmt-v2", Path: "login"},
		},
		{
			name: "surrounding whitespace trimmed",
			text: "  FR:auth/login.validate  ",
			want: ID{Type: TypeFunctional, Scope: "auth", Path: "login.validate"},
		},
		{
			name: "digits in segments",
			text: "NFR:api2/v1.rate_limit",
			want: ID{Type: TypeNonFunctional, Scope: "api2", Path: "v1.rate_limit"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "whitespace only", text: "   "},
		{name: "no type prefix", text: "auth/login"},
		{name: "unknown type", text: "XX:auth/login"},
		{name: "lowercase type", text: "fr:auth/login"},
		{name: "missing path", text: "FR:"},
		{name: "scope without path", text: "FR:auth/"},
		{name: "empty scope", text: "FR:/login"},
		{name: "six path segments", text: "FR:a.b.c.d.e.f"},
		{name: "empty path segment", text: "FR:auth..login"},
		{name: "trailing dot", text: "FR:auth.login."},
		{name: "leading dot", text: "FR:.auth"},
		{name: "invalid scope charset", text: "FR:my scope/login"},
		{name: "invalid path charset", text: "FR:auth/log!n"},
		{name: "second slash lands in path", text: "FR:a/b/c"},
		{name: "embedded whitespace", text: "FR:auth /login"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.text)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidIdentifier)
		})
	}
}

// Re-parsing an identifier's qualified form must yield the same identifier.
func TestParse_QualifiedRoundTrip(t *testing.T) {
	texts := []string{
		"FR:auth/login.validate",
		"NFR:perf.latency",
		"REQ:compliance/gdpr.export.audit",
		"FR:a.b.c.d.e",
	}

	for _, text := range texts {
		id, err := Parse(text)
		require.NoError(t, err)

		again, err := Parse(id.Qualified())
		require.NoError(t, err)
		assert.Equal(t, id, again, "round trip through Qualified() for %q", text)
	}
}

func TestID_ShortIgnoresScope(t *testing.T) {
	scoped := ID{Type: TypeFunctional, Scope: "auth", Path: "login"}
	bare := ID{Type: TypeFunctional, Path: "login"}

	assert.Equal(t, "FR:login", scoped.Short())
	assert.Equal(t, scoped.Short(), bare.Short())
}

func TestID_IsZero(t *testing.T) {
	assert.True(t, ID{}.IsZero())
	assert.False(t, ID{Type: TypeFunctional, Path: "x"}.IsZero())
}

func TestType_IsValid(t *testing.T) {
	assert.True(t, TypeFunctional.IsValid())
	assert.True(t, TypeNonFunctional.IsValid())
	assert.True(t, TypeGeneric.IsValid())
	assert.False(t, Type("fr").IsValid())
	assert.False(t, Type("").IsValid())
}

func TestID_JSONRoundTrip(t *testing.T) {
	id, err := Parse("FR:auth/login.validate")
	require.NoError(t, err)

	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, `"FR:auth/login.validate"`, string(data))

	var decoded ID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, id, decoded)
}

func TestID_JSONZero(t *testing.T) {
	data, err := json.Marshal(ID{})
	require.NoError(t, err)
	assert.Equal(t, `""`, string(data))

	var decoded ID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.IsZero())
}

func TestID_JSONInvalid(t *testing.T) {
	var decoded ID
	err := json.Unmarshal([]byte(`"FR:bad id"`), &decoded)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}
