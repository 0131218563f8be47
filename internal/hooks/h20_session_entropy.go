package hooks

import (
	"context"

	"github.com/cespare/xxhash/v2"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/domain/session"
)

// circularEditThreshold is how many times the same file must be edited
// within the bounded recent-edits window to count as a circular retry.
const circularEditThreshold = 3

// SessionEntropy detects circular edits (the same file edited
// repeatedly) and intent thrashing across the session's recent-edit and
// recent-intent windows, reporting an entropy_level and recommending
// PLAN-mode escalation when it is high. Never blocks. Each edit's content
// fingerprint is recorded but fingerprints are not compared, so undo
// patterns (an edit restoring earlier content) are not detected.
type SessionEntropy struct{}

func (SessionEntropy) Name() string           { return "post_session_entropy_check" }
func (SessionEntropy) Posture() hook.Posture  { return hook.Advisory }
func (SessionEntropy) Point() intercept.Point { return intercept.PostSession }

func (SessionEntropy) Run(ctx context.Context, deps *hook.Deps, payload *intercept.Payload, st *session.State) (intercept.Decision, error) {
	for _, e := range payload.AllEdits() {
		st.RecordEdit(session.EditRecord{
			Path:        e.Path,
			Fingerprint: xxhash.Sum64String(e.NewString),
		})
	}

	counts := map[string]int{}
	for _, rec := range st.RecentEdits {
		counts[rec.Path]++
	}
	circular := 0
	for _, c := range counts {
		if c >= circularEditThreshold {
			circular++
		}
	}

	distinctIntents := map[string]bool{}
	for _, in := range st.RecentIntents {
		distinctIntents[in] = true
	}
	thrashing := len(distinctIntents) >= 3

	level := "low"
	switch {
	case circular > 0 && thrashing:
		level = "high"
	case circular > 0 || thrashing:
		level = "medium"
	}

	d := intercept.Annotate("session entropy assessed")
	d.Details = map[string]any{
		"entropy_level":    level,
		"circular_edits":   circular,
		"intent_thrashing": thrashing,
	}
	if level == "high" && intercept.CurrentMode(payload.ConversationContext) != intercept.ModePlan {
		d.Annotations = append(d.Annotations, "recommend escalating to "+intercept.ModePlan)
	}
	return d, nil
}

var _ hook.Hook = SessionEntropy{}
