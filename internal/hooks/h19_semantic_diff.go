package hooks

import (
	"context"
	"regexp"
	"strings"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/domain/session"
)

var (
	intentKeywordRe  = regexp.MustCompile(`(?i)(?:create|implement|add|define|build)\s+(?:a\s+)?([a-zA-Z_]\w+)`)
	quotedNameRe     = regexp.MustCompile("[`\"']([a-zA-Z_]\\w+)[`\"']")
	definedFuncRe    = regexp.MustCompile(`(?:def|function|func)\s+(\w+)`)
	definedClassRe   = regexp.MustCompile(`class\s+(\w+)`)
)

func extractIntentKeywords(prompt string) []string {
	var out []string
	for _, m := range intentKeywordRe.FindAllStringSubmatch(prompt, -1) {
		out = append(out, m[1])
	}
	for _, m := range quotedNameRe.FindAllStringSubmatch(prompt, -1) {
		out = append(out, m[1])
	}
	return out
}

func extractDefinedIdentifiers(code string) map[string]bool {
	ids := map[string]bool{}
	for _, m := range definedFuncRe.FindAllStringSubmatch(code, -1) {
		ids[m[1]] = true
	}
	for _, m := range definedClassRe.FindAllStringSubmatch(code, -1) {
		ids[m[1]] = true
	}
	return ids
}

// SemanticDiff compares intent keywords extracted from the
// originating prompt against identifiers actually defined in the new code,
// warning on missing coverage; advisory except in STRICT mode, where it is
// mandatory, and where an edited path outside the declared plan scope
// blocks.
type SemanticDiff struct{}

func (SemanticDiff) Name() string           { return "post_write_semantic_diff" }
func (SemanticDiff) Posture() hook.Posture  { return hook.Advisory }
func (SemanticDiff) Point() intercept.Point { return intercept.PostWrite }

func (SemanticDiff) Run(ctx context.Context, deps *hook.Deps, payload *intercept.Payload, st *session.State) (intercept.Decision, error) {
	strict := intercept.CurrentMode(payload.ConversationContext) == intercept.ModeStrict
	edits := payload.AllEdits()

	if scope, ok := intercept.PlanScope(payload.ConversationContext); ok && len(scope) > 0 {
		for _, e := range edits {
			if !underAnyScope(e.Path, scope) {
				msg := "edited path is outside the declared plan scope: " + e.Path
				if strict {
					return intercept.Block(msg, map[string]any{"path": e.Path, "scope": scope}), nil
				}
			}
		}
	}

	keywords := extractIntentKeywords(payload.ToolInfo.Prompt)
	if len(keywords) == 0 {
		return intercept.Allow(), nil
	}
	defined := extractDefinedIdentifiers(allEditContents(edits))

	var missing []string
	for _, kw := range keywords {
		if !defined[kw] {
			missing = append(missing, kw)
		}
	}
	if len(missing) == 0 {
		return intercept.Allow(), nil
	}

	d := intercept.Annotate("intent coverage incomplete", "missing identifiers: "+strings.Join(missing, ", "))
	if strict {
		return intercept.Block("STRICT mode requires full intent coverage", map[string]any{"missing": missing}), nil
	}
	return d, nil
}

func underAnyScope(path string, scope []string) bool {
	for _, s := range scope {
		if strings.HasPrefix(path, s) {
			return true
		}
	}
	return false
}

var _ hook.Hook = SemanticDiff{}
