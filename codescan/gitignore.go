package codescan

import (
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ignoreFile holds the rules of one .gitignore, compiled for matching
// against root-relative slash paths. The supported subset covers the
// patterns that matter for source trees: comments, blank lines,
// negation (!), directory-only patterns (trailing /), anchored patterns
// (leading or interior /), and any-level name patterns.
type ignoreFile struct {
	// base is the root-relative slash directory the .gitignore lives in,
	// empty for the scan root itself
	base string

	rules []ignoreRule
}

type ignoreRule struct {
	pattern  string
	negate   bool
	dirOnly  bool
	anchored bool
}

// loadIgnoreFile reads and parses a .gitignore. Returns nil when the
// file does not exist or holds no rules; a .gitignore that cannot be
// read is treated the same way.
func loadIgnoreFile(path, base string) *ignoreFile {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	ig := &ignoreFile{base: base}
	for _, raw := range strings.Split(string(content), "\n") {
		line := strings.TrimSpace(strings.TrimRight(raw, "\r"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rule := ignoreRule{}
		if strings.HasPrefix(line, "!") {
			rule.negate = true
			line = line[1:]
		}
		if strings.HasSuffix(line, "/") {
			rule.dirOnly = true
			line = strings.TrimSuffix(line, "/")
		}
		if strings.HasPrefix(line, "/") {
			rule.anchored = true
			line = line[1:]
		} else if strings.Contains(line, "/") {
			// An interior slash anchors the pattern to the ignore file's
			// directory, same as git.
			rule.anchored = true
		}
		if line == "" {
			continue
		}
		rule.pattern = line
		ig.rules = append(ig.rules, rule)
	}

	if len(ig.rules) == 0 {
		return nil
	}
	return ig
}

// match evaluates the file's rules against a root-relative slash path.
// Returns the decision of the last matching rule and whether any rule
// matched at all.
func (ig *ignoreFile) match(rel string, isDir bool) (ignored, matched bool) {
	target := rel
	if ig.base != "" {
		if !strings.HasPrefix(rel, ig.base+"/") {
			return false, false
		}
		target = rel[len(ig.base)+1:]
	}

	for _, rule := range ig.rules {
		if rule.dirOnly && !isDir {
			continue
		}
		if rule.matches(target) {
			ignored = !rule.negate
			matched = true
		}
	}
	return ignored, matched
}

// matches checks one rule against a path relative to the ignore file's
// directory.
func (r ignoreRule) matches(target string) bool {
	if r.anchored {
		ok, err := doublestar.Match(r.pattern, target)
		return err == nil && ok
	}
	if ok, err := doublestar.Match(r.pattern, target); err == nil && ok {
		return true
	}
	ok, err := doublestar.Match("**/"+r.pattern, target)
	return err == nil && ok
}

// ignored applies every in-scope ignore file to a path. Files deeper in
// the tree override their parents, and within one file later rules win,
// matching git's evaluation order.
func ignored(matchers []*ignoreFile, rel string, isDir bool) bool {
	decision := false
	for _, m := range matchers {
		if d, ok := m.match(rel, isDir); ok {
			decision = d
		}
	}
	return decision
}
