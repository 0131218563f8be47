package intercept

// Status is the closed set of outcomes a hook (or the dispatch kernel) can
// reach for one interception point.
type Status string

const (
	StatusAllow    Status = "allow"
	StatusAnnotate Status = "annotate"
	StatusBlock    Status = "block"
)

// Exit codes are the gatekeeper binary's contract with the host process that
// invokes it: 0 lets the action proceed (annotations, if any, ride on
// stdout), 2 blocks it outright, and 1 is reserved for internal errors the
// host should treat as transient.
const (
	ExitAllow         = 0
	ExitInternalError = 1
	ExitBlock         = 2
)

// Decision is what one hook (or the kernel, aggregating all hooks for a
// point) returns. Reason is the human-readable explanation emitted on
// stderr prefixed "BLOCKED: " for a block, Details is structured
// machine-readable context persisted to the audit log, and Annotations are
// strings appended to the agent's conversation context on an annotate
// outcome.
type Decision struct {
	Status      Status         `json:"status"`
	Reason      string         `json:"reason,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	Annotations []string       `json:"annotations,omitempty"`
	// HookName identifies which hook produced this decision, for audit
	// logging and for the kernel to report which hook blocked.
	HookName string `json:"hook,omitempty"`
}

// Allow is the zero-friction default: proceed, nothing to report.
func Allow() Decision {
	return Decision{Status: StatusAllow}
}

// Annotate proceeds but appends note(s) to the agent's conversation
// context, e.g. a reminder or a warning that did not rise to a block.
func Annotate(reason string, notes ...string) Decision {
	return Decision{Status: StatusAnnotate, Reason: reason, Annotations: notes}
}

// Block halts the action with reason surfaced to the agent and details
// recorded to the audit log.
func Block(reason string, details map[string]any) Decision {
	return Decision{Status: StatusBlock, Reason: reason, Details: details}
}

// ExitCode maps a Decision's Status to the process exit code contract.
// Annotate is still exit 0: the action proceeds, the annotation rides on
// stdout for the host to append to conversation context.
func (d Decision) ExitCode() int {
	if d.Status == StatusBlock {
		return ExitBlock
	}
	return ExitAllow
}

// IsBlock reports whether d halts the action.
func (d Decision) IsBlock() bool {
	return d.Status == StatusBlock
}

// Severity ranks outcomes so a dispatch chain can track the "worst" result
// seen so far without losing an earlier annotate when a later hook allows.
// allow < annotate < block.
func (s Status) severity() int {
	switch s {
	case StatusBlock:
		return 2
	case StatusAnnotate:
		return 1
	default:
		return 0
	}
}

// Merge combines d with next, keeping whichever has the higher severity. A
// block always wins; two annotates concatenate their notes; an allow
// following an annotate keeps the annotate. Used by the dispatch kernel to
// fold per-hook decisions into one aggregate result for a point.
func (d Decision) Merge(next Decision) Decision {
	if next.Status.severity() > d.Status.severity() {
		merged := next
		merged.Annotations = append(append([]string{}, d.Annotations...), next.Annotations...)
		return merged
	}
	if next.Status == StatusAnnotate && d.Status == StatusAnnotate {
		d.Annotations = append(d.Annotations, next.Annotations...)
		return d
	}
	return d
}
