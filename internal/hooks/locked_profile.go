package hooks

import (
	"context"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/domain/policy"
	"github.com/atlasgate/gatekeeper/internal/domain/session"
)

// LockedProfile enforces the panic-mode invariant: when the policy's
// execution_profile is locked, every mutating or executing interception
// point blocks unconditionally, with category "locked". It is registered
// first at each such point so no other hook can reach an allow before it
// runs.
type LockedProfile struct {
	// At is the interception point this instance guards; one instance is
	// registered per mutating point.
	At intercept.Point
}

func (LockedProfile) Name() string            { return "locked_profile_enforcement" }
func (LockedProfile) Posture() hook.Posture   { return hook.Mandatory }
func (h LockedProfile) Point() intercept.Point { return h.At }

func (h LockedProfile) Run(ctx context.Context, deps *hook.Deps, payload *intercept.Payload, st *session.State) (intercept.Decision, error) {
	if deps.Policy.Doc.ExecutionProfile != policy.ProfileLocked {
		return intercept.Allow(), nil
	}
	return intercept.Block("locked", map[string]any{
		"category": "locked",
		"point":    string(h.At),
		"detail":   "execution profile is locked: all mutating and executing interception points are disabled",
	}), nil
}

var _ hook.Hook = LockedProfile{}
