// Package hooks implements the enforcement rule set against the Hook
// Kernel's Hook interface: one file per check, registered into the
// dispatch table by BuildKernel.
package hooks

import (
	"strings"

	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
)

// isBlankOrComment reports whether line contributes nothing to the
// executable-line count used by the logic-preservation and comment-density
// uncommented blocks): blank, a recognized line-comment, or pure
// punctuation (braces/brackets only).
func isBlankOrComment(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return true
	}
	for _, prefix := range []string{"#", "//", "/*", "*", "--", "%"} {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return isPurePunctuation(t)
}

func isPurePunctuation(t string) bool {
	for _, r := range t {
		switch r {
		case '{', '}', '(', ')', '[', ']', ';', ':', ',':
		default:
			return false
		}
	}
	return true
}

// countExecutableLines returns the number of lines in content that are not
// blank, comment, or pure punctuation.
func countExecutableLines(content string) int {
	count := 0
	for _, line := range strings.Split(content, "\n") {
		if !isBlankOrComment(line) {
			count++
		}
	}
	return count
}

// allEditContents concatenates every edit's new content, for hooks that
// scan the whole touched surface rather than per-edit.
func allEditContents(edits []intercept.Edit) string {
	parts := make([]string, len(edits))
	for i, e := range edits {
		parts[i] = e.NewString
	}
	return strings.Join(parts, "\n")
}

// isTestOrMockPath heuristically recognizes a file as a test or mock fixture
// by its path, exempting it from completeness/comment strictness. A leading
// slash is added so a repo-relative path such as tests/x.py matches the
// directory markers too.
func isTestOrMockPath(path string) bool {
	lower := "/" + strings.ToLower(path)
	markers := []string{"_test.", ".test.", "/test/", "/tests/", "/mocks/", "/mock/", "/__mocks__/", "/spec/", "_spec."}
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
