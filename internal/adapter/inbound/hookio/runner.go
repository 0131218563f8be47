// Package hookio is the inbound adapter between the host agent and the
// hook kernel: it reads one JSON intercept payload from stdin, hands
// it to the dispatcher for the invoked interception point, and renders the
// aggregate decision onto stdout/stderr with the exit-code contract the
// host depends on (0 allow, 1 internal error, 2 block with a BLOCKED:
// line).
package hookio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
)

// maxPayloadBytes bounds how much stdin is read; an intercept payload is a
// tool call plus some edits, never tens of megabytes.
const maxPayloadBytes = 16 << 20

// Dispatcher runs the hooks for a payload's interception point. The hook
// kernel is the production implementation.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload *intercept.Payload) (*hook.Result, error)
}

// advisoryOnlyPoints are interception points whose dispatch table carries no
// mandatory hook. A malformed payload at these points degrades to a neutral
// allow.
var advisoryOnlyPoints = map[intercept.Point]bool{
	intercept.PostSession: true,
	intercept.PostRefusal: true,
}

// Runner binds a dispatcher to concrete I/O streams.
type Runner struct {
	Dispatcher Dispatcher
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
	Logger     *slog.Logger
}

// annotationOutput is the single-line JSON emitted on stdout when a
// non-blocking decision carries information for the host to append to
// conversation context.
type annotationOutput struct {
	Status      intercept.Status `json:"status"`
	Annotations []string         `json:"annotations,omitempty"`
	Details     map[string]any   `json:"details,omitempty"`
	RequestID   string           `json:"request_id,omitempty"`
}

// Run executes one interception: parse stdin, dispatch, render. The
// returned value is the process exit code.
func (r *Runner) Run(ctx context.Context, point intercept.Point) int {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	data, err := io.ReadAll(io.LimitReader(r.Stdin, maxPayloadBytes))
	if err != nil {
		fmt.Fprintln(r.Stderr, "BLOCKED: payload_unreadable")
		fmt.Fprintf(r.Stderr, "  - failed to read intercept payload: %v\n", err)
		return intercept.ExitBlock
	}

	payload, err := intercept.Parse(data)
	if err != nil {
		if advisoryOnlyPoints[point] {
			logger.Warn("malformed payload at advisory-only point, allowing", "point", point, "error", err)
			return intercept.ExitAllow
		}
		fmt.Fprintln(r.Stderr, "BLOCKED: payload_malformed")
		fmt.Fprintf(r.Stderr, "  - intercept payload is not valid JSON: %v\n", err)
		return intercept.ExitBlock
	}
	// The subcommand invoked is authoritative for the interception point;
	// a point named inside the payload is ignored.
	payload.Point = point

	result, err := r.Dispatcher.Dispatch(ctx, payload)
	if err != nil {
		logger.Error("dispatch failed", "point", point, "error", err)
		fmt.Fprintf(r.Stderr, "internal error: %v\n", err)
		return intercept.ExitInternalError
	}

	return r.render(result)
}

// render writes the aggregate decision to the output streams and returns
// the exit code.
func (r *Runner) render(result *hook.Result) int {
	d := result.Decision

	if d.IsBlock() {
		fmt.Fprintf(r.Stderr, "BLOCKED: %s\n", d.Reason)
		for _, key := range sortedKeys(d.Details) {
			fmt.Fprintf(r.Stderr, "  - %s: %v\n", key, d.Details[key])
		}
		for _, note := range d.Annotations {
			fmt.Fprintf(r.Stderr, "  - %s\n", note)
		}
		return intercept.ExitBlock
	}

	// Advisory signals surface on stderr as well as in the stdout JSON;
	// the host presents stderr to the user verbatim.
	if d.Status == intercept.StatusAnnotate {
		reason := d.Reason
		if reason == "" {
			reason = "advisory signal"
		}
		fmt.Fprintf(r.Stderr, "WARNING: %s\n", reason)
		for _, note := range d.Annotations {
			fmt.Fprintf(r.Stderr, "  - %s\n", note)
		}
	}

	if len(d.Annotations) > 0 || len(d.Details) > 0 {
		out := annotationOutput{
			Status:      d.Status,
			Annotations: d.Annotations,
			Details:     d.Details,
			RequestID:   result.RequestID,
		}
		if err := json.NewEncoder(r.Stdout).Encode(out); err != nil {
			fmt.Fprintf(r.Stderr, "internal error: encode annotation: %v\n", err)
			return intercept.ExitInternalError
		}
	}
	return intercept.ExitAllow
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
