package specdoc

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestScanner_Scan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "auth.md", `### Requirement: FR:auth/login
Severity: S1
Login must validate credentials.
`)
	writeFile(t, dir, "nested/billing.md", `### Requirement: FR:billing/invoice
Invoices are emitted on period close.
`)
	writeFile(t, dir, "notes.txt", "### Requirement: FR:skipped/by.glob\n")

	s := NewScanner(Options{}, nil)
	result, err := s.Scan(context.Background(), []string{dir})
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesScanned)
	assert.Zero(t, result.FilesSkipped)
	assert.Empty(t, result.Problems)

	require.Len(t, result.Definitions, 2)
	assert.Equal(t, "FR:auth/login", result.Definitions[0].ID.Qualified())
	assert.Equal(t, "FR:billing/invoice", result.Definitions[1].ID.Qualified())
}

func TestScanner_Scan_FileRoot(t *testing.T) {
	dir := t.TempDir()
	// A root naming a file directly is scanned even when no glob matches it.
	path := writeFile(t, dir, "spec.txt", "### Requirement: REQ:direct\nText.\n")

	s := NewScanner(Options{}, nil)
	result, err := s.Scan(context.Background(), []string{path})
	require.NoError(t, err)

	require.Len(t, result.Definitions, 1)
	assert.Equal(t, "REQ:direct", result.Definitions[0].ID.Qualified())
}

func TestScanner_Scan_CustomIncludes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "api.spec.md", "### Requirement: FR:api/list\nText.\n")
	writeFile(t, dir, "readme.md", "### Requirement: FR:api/ignored\nText.\n")

	s := NewScanner(Options{Includes: []string{"**/*.spec.md"}}, nil)
	result, err := s.Scan(context.Background(), []string{dir})
	require.NoError(t, err)

	require.Len(t, result.Definitions, 1)
	assert.Equal(t, "FR:api/list", result.Definitions[0].ID.Qualified())
}

func TestScanner_Scan_SkipsHiddenDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "spec.md", "### Requirement: FR:a/visible\n")
	writeFile(t, dir, ".git/spec.md", "### Requirement: FR:a/hidden\n")
	writeFile(t, dir, "node_modules/pkg/spec.md", "### Requirement: FR:a/dep\n")

	s := NewScanner(Options{}, nil)
	result, err := s.Scan(context.Background(), []string{dir})
	require.NoError(t, err)

	require.Len(t, result.Definitions, 1)
	assert.Equal(t, "FR:a/visible", result.Definitions[0].ID.Qualified())
}

func TestScanner_Scan_MissingRoot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "spec.md", "### Requirement: FR:a/b\n")
	missing := filepath.Join(dir, "does-not-exist")

	s := NewScanner(Options{}, nil)
	result, err := s.Scan(context.Background(), []string{missing, dir})
	require.NoError(t, err)

	// The missing root is a problem, not a failed scan.
	require.Len(t, result.Problems, 1)
	assert.Contains(t, result.Problems[0].Message, "stat spec root")
	require.Len(t, result.Definitions, 1)
}

func TestScanner_Scan_Deterministic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "### Requirement: FR:one/a\nText a.\n")
	writeFile(t, dir, "b.md", "### Requirement: FR:two/b\nText b.\n")
	writeFile(t, dir, "sub/c.md", "### Requirement: FR:three/c\nText c.\n")

	s := NewScanner(Options{}, nil)

	first, err := s.Scan(context.Background(), []string{dir})
	require.NoError(t, err)
	second, err := s.Scan(context.Background(), []string{dir})
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated scans differ (-first +second):\n%s", diff)
	}
}

func TestScanner_Scan_Canceled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "spec.md", "### Requirement: FR:a/b\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewScanner(Options{}, nil)
	result, err := s.Scan(ctx, []string{dir})
	require.Error(t, err)
	assert.Nil(t, result, "partial results are discarded on cancellation")
}
