package hooks

import (
	"context"
	"regexp"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
	"github.com/atlasgate/gatekeeper/internal/domain/session"
)

const (
	minLinesForLogging = 10
	minLinesForMetrics = 20
)

var (
	logMarkerRe    = regexp.MustCompile(`\bprint\(|\blogger\.(debug|info|warn|error)|\bconsole\.(log|debug|warn|error)|sys\.stderr\.write|logging\.log`)
	metricMarkerRe = regexp.MustCompile(`\bmetrics\.|\bincrement\(|\brecord\(|\bcounter\.|\bgauge\.|\bhistogram\.|\bobserve\(`)
	traceMarkerRe  = regexp.MustCompile(`\bspan\.|\btrace\.|@trace|with_trace|context\.with_`)
)

// Observability requires a logging marker in large edits (> 10 executable
// lines) and a metric marker in larger ones (> 20 lines), and always
// recommends a trace marker. Violations only warn, except in SHIP mode
// where a missing logging marker blocks.
type Observability struct{}

func (Observability) Name() string           { return "post_write_observability" }
func (Observability) Posture() hook.Posture  { return hook.Advisory }
func (Observability) Point() intercept.Point { return intercept.PostWrite }

func (Observability) Run(ctx context.Context, deps *hook.Deps, payload *intercept.Payload, st *session.State) (intercept.Decision, error) {
	content := allEditContents(payload.AllEdits())
	lines := countExecutableLines(content)
	inShipMode := intercept.CurrentMode(payload.ConversationContext) == intercept.ModeShip

	var warnings []string
	hasLog := logMarkerRe.MatchString(content)
	hasMetric := metricMarkerRe.MatchString(content)
	hasTrace := traceMarkerRe.MatchString(content)

	if lines > minLinesForLogging && !hasLog {
		if inShipMode {
			return intercept.Block("SHIP mode requires a logging marker for changes of this size", map[string]any{"executable_lines": lines}), nil
		}
		warnings = append(warnings, "missing logging marker for a change of this size")
	}
	if lines > minLinesForMetrics && !hasMetric {
		warnings = append(warnings, "missing metric marker for a change of this size")
	}
	if !hasTrace {
		warnings = append(warnings, "consider adding a trace marker")
	}

	if len(warnings) == 0 {
		return intercept.Allow(), nil
	}
	return intercept.Annotate("observability recommendations", warnings...), nil
}

var _ hook.Hook = Observability{}
