package hooks

import (
	"context"
	"fmt"
	"sort"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/domain/pattern"
	"github.com/atlasgate/gatekeeper/internal/domain/session"
)

// CodePolicy rejects content matching any policy-defined prohibited
// pattern category, enforces logic preservation (an edit with non-empty old
// and new content must not decrease its executable line count, nor drop it
// to zero), and additionally forbids mock patterns when the conversation is
// in REPAIR mode. Every violation across every edit is collected into one
// decision, so the agent sees the full list of offenses in a single block
// instead of discovering them one retry at a time.
type CodePolicy struct{}

func (CodePolicy) Name() string           { return "pre_write_code_policy" }
func (CodePolicy) Posture() hook.Posture  { return hook.Mandatory }
func (CodePolicy) Point() intercept.Point { return intercept.PreWriteCode }

func (CodePolicy) Run(ctx context.Context, deps *hook.Deps, payload *intercept.Payload, st *session.State) (intercept.Decision, error) {
	inRepairMode := intercept.CurrentMode(payload.ConversationContext) == intercept.ModeRepair

	// Categories are scanned in sorted order so repeat runs over the same
	// edit set report violations identically.
	categories := make([]string, 0, len(deps.Policy.Doc.ProhibitedPatterns))
	for category := range deps.Policy.Doc.ProhibitedPatterns {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var violations []string
	for _, e := range payload.AllEdits() {
		for _, category := range categories {
			if matched, src := deps.Policy.MatchProhibited(category, e.NewString); matched {
				violations = append(violations,
					fmt.Sprintf("%s: prohibited pattern (%s) matched: %s", e.Path, category, src))
			}
		}

		if e.OldString != "" && e.NewString != "" {
			oldLines := countExecutableLines(e.OldString)
			newLines := countExecutableLines(e.NewString)
			if newLines == 0 || newLines < oldLines {
				violations = append(violations,
					fmt.Sprintf("%s: edit does not preserve executable logic (%d -> %d lines)", e.Path, oldLines, newLines))
			}
		}

		if inRepairMode {
			if m := pattern.MockPatterns.FindString(e.NewString); m != "" {
				violations = append(violations,
					fmt.Sprintf("%s: mock patterns are forbidden in REPAIR mode: %s", e.Path, m))
			}
		}
	}

	if len(violations) > 0 {
		return intercept.Block("code policy violations", map[string]any{
			"violations": violations,
		}), nil
	}
	return intercept.Allow(), nil
}

var _ hook.Hook = CodePolicy{}
