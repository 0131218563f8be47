package hooks

import (
	"context"
	"encoding/json"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/domain/pattern"
	"github.com/atlasgate/gatekeeper/internal/domain/session"
)

// ReasoningDetector scans every string value in the tool's arguments
// for hedging/deliberation language an executor tool should never carry
// (strategy belongs in the planning turn, not the execution call).
type ReasoningDetector struct{}

func (ReasoningDetector) Name() string           { return "pre_no_reasoning_in_executor" }
func (ReasoningDetector) Posture() hook.Posture  { return hook.Mandatory }
func (ReasoningDetector) Point() intercept.Point { return intercept.PreMCPToolUse }

func (ReasoningDetector) Run(ctx context.Context, deps *hook.Deps, payload *intercept.Payload, st *session.State) (intercept.Decision, error) {
	strs := collectStrings(payload.ToolInfo.Arguments)
	strs = append(strs, payload.ToolInfo.Command, payload.ToolInfo.Plan)

	for _, s := range strs {
		if m := pattern.ReasoningMarkers.FindString(s); m != "" {
			return intercept.Block("reasoning language found in executor arguments", map[string]any{
				"category": "reasoning_in_executor",
				"match":    m,
			}), nil
		}
	}
	return intercept.Allow(), nil
}

// collectStrings walks an arbitrary JSON value recursively, gathering
// every string leaf, so the reasoning scan covers nested objects/arrays
// the same way the original's naive str(value) walk did.
func collectStrings(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	var out []string
	var walk func(any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			out = append(out, t)
		case []any:
			for _, e := range t {
				walk(e)
			}
		case map[string]any:
			for _, e := range t {
				walk(e)
			}
		}
	}
	walk(v)
	return out
}

var _ hook.Hook = ReasoningDetector{}
