package hooks

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/domain/session"
)

// planSearchPaths are the canonical plan-file locations searched in order.
var planSearchPaths = []string{
	"PLAN.md", ".plan/PLAN.md", "docs/PLAN.md", "docs/architecture/PLAN.md",
	".github/PLAN.md", "README.md",
}

// planMarkers recognize a file as actually containing a plan, rather than an
// unrelated README.
var planMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?mi)^#+\s+(?:Plan|Implementation Plan|Task Plan|Scope)`),
	regexp.MustCompile(`(?mi)^##\s+Files?(?:\s+to\s+(?:modify|edit|create))?:`),
	regexp.MustCompile(`(?mi)^##\s+Scope:`),
	regexp.MustCompile(`(?m)^-\s+\[x\]\s+`),
}

var scopeLineRe = regexp.MustCompile(`(?mi)(?:files?|paths?|modules?|directories?|scope|coverage|affects?|directory|dir):\s*(.+)`)
var scopeItemRe = regexp.MustCompile("[`*]?([^\\s`,*]+(?:\\.[A-Za-z0-9]+|/))[`*]?")

// PlanResolution searches canonical plan locations for a marker-
// bearing plan file, extracts its declared scope (paths confirmed to exist
// in the working directory), and annotates plan_ok/plan_path/declared_scope.
type PlanResolution struct{}

func (PlanResolution) Name() string           { return "pre_plan_resolution" }
func (PlanResolution) Posture() hook.Posture  { return hook.Advisory }
func (PlanResolution) Point() intercept.Point { return intercept.PreUserPrompt }

func (PlanResolution) Run(ctx context.Context, deps *hook.Deps, payload *intercept.Payload, st *session.State) (intercept.Decision, error) {
	root := payload.WorkingDirectory
	if root == "" {
		root = "."
	}

	for _, rel := range planSearchPaths {
		full := filepath.Join(root, rel)
		data, err := os.ReadFile(full)
		if err != nil {
			continue
		}
		text := string(data)

		hasMarker := false
		for _, m := range planMarkers {
			if m.MatchString(text) {
				hasMarker = true
				break
			}
		}
		if !hasMarker {
			continue
		}

		scope := extractDeclaredScope(root, text)
		d := intercept.Annotate("plan resolved")
		d.Details = map[string]any{
			"plan_ok":         true,
			"plan_path":       full,
			"declared_scope":  scope,
		}
		return d, nil
	}

	d := intercept.Allow()
	d.Details = map[string]any{"plan_ok": false}
	return d, nil
}

func extractDeclaredScope(root, planText string) []string {
	seen := map[string]bool{}
	var scope []string

	for _, m := range scopeLineRe.FindAllStringSubmatch(planText, -1) {
		for _, item := range scopeItemRe.FindAllStringSubmatch(m[1], -1) {
			candidate := strings.Trim(item[1], "`*")
			if candidate == "" || seen[candidate] {
				continue
			}
			if _, err := os.Stat(filepath.Join(root, candidate)); err == nil {
				seen[candidate] = true
				scope = append(scope, candidate)
			}
		}
	}
	return scope
}

var _ hook.Hook = PlanResolution{}
