// Package hook implements the hook kernel: a static dispatch table
// binding each interception point to an ordered list of hooks, run
// sequentially with short-circuit-on-block semantics.
package hook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/domain/policy"
	"github.com/atlasgate/gatekeeper/internal/domain/session"
)

// Posture determines how a hook's internal error is treated: a Mandatory
// hook that errors fails closed (blocks); an Advisory hook that errors fails
// open (allows, with a warning annotation).
type Posture string

const (
	Mandatory Posture = "mandatory"
	Advisory  Posture = "advisory"
)

// Hook is one enforcement unit bound to exactly one interception point.
type Hook interface {
	Name() string
	Posture() Posture
	Point() intercept.Point
	// Run evaluates the hook against payload, with read/write access to
	// the session's persistent state. It must not perform its own I/O
	// beyond what st exposes; the kernel owns loading/saving session
	// state and writing the audit log.
	Run(ctx context.Context, deps *Deps, payload *intercept.Payload, st *session.State) (intercept.Decision, error)
}

// Deps bundles the shared read-only inputs every hook may consult: the
// compiled policy document and a logger. Per-hook dependencies beyond this
// (pattern library, language map) are package-level tables consulted
// directly by each hook implementation in internal/hooks.
type Deps struct {
	Policy *policy.Compiled
	Logger *slog.Logger
	// VerifyTimeout bounds the post-write verification script run; zero
	// means the 60-second default.
	VerifyTimeout time.Duration
}

// Kernel owns the dispatch table and orchestrates one interception point's
// worth of hook evaluation against a loaded session.
type Kernel struct {
	deps     *Deps
	sessions session.Store
	table    map[intercept.Point][]Hook
}

// NewKernel constructs an empty dispatch table; call Register for each
// hook before Dispatch is used.
func NewKernel(deps *Deps, sessions session.Store) *Kernel {
	return &Kernel{deps: deps, sessions: sessions, table: make(map[intercept.Point][]Hook)}
}

// Register appends h to its declared interception point's ordered list.
// Registration order is dispatch order.
func (k *Kernel) Register(h Hook) {
	k.table[h.Point()] = append(k.table[h.Point()], h)
}

// Result is the outcome of one full dispatch: the aggregated decision plus
// the correlation ID assigned to this dispatch for audit/log correlation.
type Result struct {
	RequestID string
	Decision  intercept.Decision
	// HookErrors records hooks whose Run returned an error, regardless of
	// how their posture resolved the failure, for audit logging.
	HookErrors map[string]error
}

// Dispatch loads the payload's session, runs every hook registered for
// payload.Point in order, persists any session mutation, and returns the
// aggregated decision. It short-circuits on the first block, whichever
// hook returns it; a warning from an advisory hook does not stop dispatch.
func (k *Kernel) Dispatch(ctx context.Context, payload *intercept.Payload) (*Result, error) {
	requestID := uuid.NewString()
	res := &Result{RequestID: requestID, Decision: intercept.Allow(), HookErrors: map[string]error{}}

	st, err := k.sessions.Load(payload.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %q: %w", payload.SessionID, err)
	}

	for _, h := range k.table[payload.Point] {
		decision, err := k.runOne(ctx, h, payload, st)
		if err != nil {
			res.HookErrors[h.Name()] = err
		}
		decision.HookName = h.Name()
		st.AppendAudit("hook_dispatch", map[string]any{
			"hook":       h.Name(),
			"request_id": requestID,
			"status":     string(decision.Status),
		})
		res.Decision = res.Decision.Merge(decision)
		if res.Decision.IsBlock() {
			break
		}
	}

	if err := k.sessions.Save(st); err != nil {
		return res, fmt.Errorf("save session %q: %w", payload.SessionID, err)
	}
	return res, nil
}

// runOne invokes h.Run and applies the posture-driven fail-open/fail-closed
// rule to any returned error.
func (k *Kernel) runOne(ctx context.Context, h Hook, payload *intercept.Payload, st *session.State) (intercept.Decision, error) {
	decision, err := h.Run(ctx, k.deps, payload, st)
	if err == nil {
		return decision, nil
	}

	if h.Posture() == Mandatory {
		k.deps.Logger.Error("mandatory hook failed, blocking", "hook", h.Name(), "error", err)
		return intercept.Block(fmt.Sprintf("%s: internal error", h.Name()), map[string]any{"error": err.Error()}), err
	}

	k.deps.Logger.Warn("advisory hook failed, allowing with warning", "hook", h.Name(), "error", err)
	return intercept.Annotate(fmt.Sprintf("%s: internal error, proceeding (advisory)", h.Name())), err
}
