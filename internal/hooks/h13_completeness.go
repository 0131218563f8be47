package hooks

import (
	"context"
	"strings"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/domain/pattern"
	"github.com/atlasgate/gatekeeper/internal/domain/session"
)

// Completeness blocks TODO/FIXME/XXX-family comments, language stub
// keywords, a bare `pass` statement outside an except clause, and
// placeholder return statements. Test and mock files are exempt, since a
// stub test fixture legitimately contains these markers.
type Completeness struct{}

func (Completeness) Name() string           { return "pre_write_completeness" }
func (Completeness) Posture() hook.Posture  { return hook.Mandatory }
func (Completeness) Point() intercept.Point { return intercept.PreWriteCode }

func (Completeness) Run(ctx context.Context, deps *hook.Deps, payload *intercept.Payload, st *session.State) (intercept.Decision, error) {
	for _, e := range payload.AllEdits() {
		if isTestOrMockPath(e.Path) {
			continue
		}
		if violation := scanCompleteness(e.NewString); violation != "" {
			return intercept.Block("incomplete implementation marker found", map[string]any{
				"path": e.Path, "detail": violation,
			}), nil
		}
	}
	return intercept.Allow(), nil
}

func scanCompleteness(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if m := pattern.IncompletenessMarkers.FindString(line); m != "" {
			return "incompleteness marker: " + m
		}
		if m := pattern.StubKeywords.FindString(line); m != "" {
			return "stub keyword: " + m
		}
		if pattern.BarePass.MatchString(line) && !precededByExcept(lines, i) {
			return "stub_function: bare pass statement outside except block"
		}
		if pattern.PlaceholderReturns.MatchString(line) {
			return "placeholder return statement"
		}
	}
	return ""
}

func precededByExcept(lines []string, idx int) bool {
	for j := idx - 1; j >= 0; j-- {
		trimmed := strings.TrimSpace(lines[j])
		if trimmed == "" {
			continue
		}
		return strings.HasPrefix(trimmed, "except")
	}
	return false
}

var _ hook.Hook = Completeness{}
