package intercept

import (
	"regexp"
	"strings"
)

// Fixed marker strings the host agent and gatekeeper exchange through
// conversation context and annotations. These are part of the external
// contract and must never be altered or localized.
const (
	MarkerSessionOK       = "ATLAS_SESSION_OK"
	MarkerPromptUnlocked  = "ATLAS_PROMPT_UNLOCKED"
	MarkerPlanRequested   = "ATLAS_PLAN_REQUESTED"
	MarkerMutationNoPlan  = "ATLAS_MUTATION_NO_PLAN"
	MarkerPlanOK          = "PLAN_OK=true"
	MarkerPlanScopePrefix = "PLAN_SCOPE:"

	ModePlan   = "[MODE:PLAN]"
	ModeRepair = "[MODE:REPAIR]"
	ModeAudit  = "[MODE:AUDIT]"
	ModeShip   = "[MODE:SHIP]"
	ModeStrict = "[MODE:STRICT]"
)

var planScopeRe = regexp.MustCompile(`PLAN_SCOPE:\[([^\]]*)\]`)
var planRequestedRe = regexp.MustCompile(`ATLAS_PLAN_REQUESTED=(\S+)`)

// Modes lists every [MODE:...] marker recognized in conversation context, in
// the order a later one overrides an earlier one within the same context
// blob.
var Modes = []string{ModePlan, ModeRepair, ModeAudit, ModeShip, ModeStrict}

// HasMarker reports whether marker appears verbatim in context.
func HasMarker(context, marker string) bool {
	return strings.Contains(context, marker)
}

// CurrentMode returns the last [MODE:...] marker present in context, or "" if
// none is present.
func CurrentMode(context string) string {
	mode := ""
	bestIdx := -1
	for _, m := range Modes {
		if idx := strings.LastIndex(context, m); idx > bestIdx {
			bestIdx = idx
			mode = m
		}
	}
	return mode
}

// PlanRequestedRef extracts the plan reference from an
// ATLAS_PLAN_REQUESTED=<ref> marker, if present.
func PlanRequestedRef(context string) (string, bool) {
	m := planRequestedRe.FindStringSubmatch(context)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// PlanScope extracts the comma-separated path list from a
// PLAN_SCOPE:[p1,p2,...] marker, if present.
func PlanScope(context string) ([]string, bool) {
	m := planScopeRe.FindStringSubmatch(context)
	if m == nil {
		return nil, false
	}
	if strings.TrimSpace(m[1]) == "" {
		return []string{}, true
	}
	parts := strings.Split(m[1], ",")
	scope := make([]string, 0, len(parts))
	for _, p := range parts {
		scope = append(scope, strings.TrimSpace(p))
	}
	return scope, true
}
