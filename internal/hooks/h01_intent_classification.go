package hooks

import (
	"context"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/domain/pattern"
	"github.com/atlasgate/gatekeeper/internal/domain/session"
)

// IntentClassification scores the prompt against the weighted intent
// pattern groups and annotates the primary intent and confidence. Purely
// informational; it never blocks.
type IntentClassification struct{}

func (IntentClassification) Name() string             { return "pre_intent_classification" }
func (IntentClassification) Posture() hook.Posture     { return hook.Advisory }
func (IntentClassification) Point() intercept.Point    { return intercept.PreUserPrompt }

func (IntentClassification) Run(ctx context.Context, deps *hook.Deps, payload *intercept.Payload, st *session.State) (intercept.Decision, error) {
	prompt := payload.ToolInfo.Prompt

	scores := map[pattern.IntentCategory]float64{}
	for _, p := range pattern.IntentPatterns {
		if p.Regex.MatchString(prompt) && p.Weight > scores[p.Category] {
			scores[p.Category] = p.Weight
		}
	}

	// Ties resolve by fixed category order, not map iteration order, so the
	// same prompt always yields the same primary intent.
	var primary pattern.IntentCategory
	var best float64
	for _, cat := range []pattern.IntentCategory{
		pattern.IntentMutate, pattern.IntentRepair, pattern.IntentAudit, pattern.IntentExplore,
	} {
		if score := scores[cat]; score > best {
			best, primary = score, cat
		}
	}
	if primary == "" {
		return intercept.Allow(), nil
	}

	st.RecordIntent(string(primary))
	const highConfidence = 0.80
	d := intercept.Annotate("intent classified")
	d.Details = map[string]any{
		"primary_intent":     string(primary),
		"confidence":         best,
		"is_high_confidence": best >= highConfidence,
	}
	return d, nil
}

var _ hook.Hook = IntentClassification{}
