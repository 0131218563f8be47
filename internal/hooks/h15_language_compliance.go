package hooks

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/domain/language"
	"github.com/atlasgate/gatekeeper/internal/domain/session"
)

// LanguageCompliance requires, for every language touched by the edit
// set, at least one recognized test-config file and (except MATLAB) one
// recognized lint-config file to exist at the repo root.
type LanguageCompliance struct{}

func (LanguageCompliance) Name() string           { return "pre_write_language_compliance" }
func (LanguageCompliance) Posture() hook.Posture  { return hook.Mandatory }
func (LanguageCompliance) Point() intercept.Point { return intercept.PreWriteCode }

func (LanguageCompliance) Run(ctx context.Context, deps *hook.Deps, payload *intercept.Payload, st *session.State) (intercept.Decision, error) {
	root := payload.WorkingDirectory
	if root == "" {
		root = "."
	}

	touched := map[string]language.Spec{}
	for _, e := range payload.AllEdits() {
		spec, ok := language.Detect(strings.ToLower(filepath.Ext(e.Path)))
		if ok {
			touched[spec.Name] = spec
		}
	}

	var violations []string
	for _, spec := range touched {
		if !anyConfigExists(root, spec.TestConfigs) {
			violations = append(violations, "missing test configuration for "+spec.Name)
		}
		if !spec.LintExempt && !anyConfigExists(root, spec.LintConfigs) {
			violations = append(violations, "missing lint configuration for "+spec.Name)
		}
	}

	if len(violations) > 0 {
		return intercept.Block("language compliance check failed", map[string]any{"violations": violations}), nil
	}
	return intercept.Allow(), nil
}

func anyConfigExists(root string, candidates []string) bool {
	if len(candidates) == 0 {
		return true
	}
	for _, c := range candidates {
		if _, err := os.Stat(filepath.Join(root, c)); err == nil {
			return true
		}
	}
	return false
}

var _ hook.Hook = LanguageCompliance{}
