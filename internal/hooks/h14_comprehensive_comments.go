package hooks

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/domain/language"
	"github.com/atlasgate/gatekeeper/internal/domain/session"
)

const (
	minNonTrivialDocstring  = 10
	maxUncommentedRun       = 8
	functionBodyLinesNeedDoc = 5
	maxGenericNameHits       = 5
)

var docstringPrefixes = []string{`"""`, "'''", "///", "/**", "//!", "#", "///", "*"}

// ComprehensiveComments requires a docstring on every recognized
// function definition (non-trivial once the body exceeds five lines),
// forbids dense uncommented code blocks, and forbids generic variable names.
type ComprehensiveComments struct{}

func (ComprehensiveComments) Name() string           { return "pre_write_comprehensive_comments" }
func (ComprehensiveComments) Posture() hook.Posture  { return hook.Mandatory }
func (ComprehensiveComments) Point() intercept.Point { return intercept.PreWriteCode }

func (ComprehensiveComments) Run(ctx context.Context, deps *hook.Deps, payload *intercept.Payload, st *session.State) (intercept.Decision, error) {
	for _, e := range payload.AllEdits() {
		if isTestOrMockPath(e.Path) {
			continue
		}
		spec, ok := language.Detect(strings.ToLower(filepath.Ext(e.Path)))
		if !ok {
			continue
		}

		if violation := checkFunctionDocstrings(e.NewString, spec); violation != "" {
			return intercept.Block("insufficient documentation", map[string]any{"path": e.Path, "detail": violation}), nil
		}
		if violation := checkCommentDensity(e.NewString); violation != "" {
			return intercept.Block("insufficient documentation", map[string]any{"path": e.Path, "detail": violation}), nil
		}
		if hits := genericNameHits(e.NewString); len(hits) > 0 {
			return intercept.Block("generic variable names are not descriptive", map[string]any{"path": e.Path, "names": hits}), nil
		}
	}
	return intercept.Allow(), nil
}

func checkFunctionDocstrings(content string, spec language.Spec) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		m := spec.FuncDefPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		name := firstNonEmpty(m[1:])

		bodyLen := 0
		for j := i + 1; j < len(lines) && j < i+200; j++ {
			if isBlankOrComment(lines[j]) && strings.TrimSpace(lines[j]) == "" {
				continue
			}
			if spec.FuncDefPattern.MatchString(lines[j]) {
				break
			}
			bodyLen++
		}

		doc := ""
		if i+1 < len(lines) {
			doc = strings.TrimSpace(lines[i+1])
		}
		hasDoc := hasDocstringPrefix(doc)

		if !hasDoc {
			return "function " + name + " has no docstring"
		}
		trimmedDoc := strings.Trim(doc, `"'/*! #`)
		if bodyLen > functionBodyLinesNeedDoc && len(strings.TrimSpace(trimmedDoc)) < minNonTrivialDocstring {
			return "function " + name + " has a trivial docstring"
		}
	}
	return ""
}

func hasDocstringPrefix(line string) bool {
	for _, p := range docstringPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

func firstNonEmpty(groups []string) string {
	for _, g := range groups {
		if g != "" {
			return g
		}
	}
	return "?"
}

var inlineCommentRe = regexp.MustCompile(`//|#|/\*`)

func checkCommentDensity(content string) string {
	run := 0
	for _, line := range strings.Split(content, "\n") {
		t := strings.TrimSpace(line)
		if t == "" {
			continue
		}
		if isBlankOrComment(line) || inlineCommentRe.MatchString(line) {
			run = 0
			continue
		}
		run++
		if run > maxUncommentedRun {
			return "more than 8 consecutive uncommented code lines"
		}
	}
	return ""
}

func genericNameHits(content string) []string {
	var hits []string
	for _, name := range language.GenericVariableNames {
		re := regexp.MustCompile(`\b` + name + `\s*(?::=|=[^=])`)
		for range re.FindAllString(content, -1) {
			hits = append(hits, name)
			if len(hits) >= maxGenericNameHits {
				return hits
			}
		}
	}
	return hits
}

var _ hook.Hook = ComprehensiveComments{}
