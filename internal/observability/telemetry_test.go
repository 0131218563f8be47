package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/atlasgate/gatekeeper/internal/domain/hook"
	"github.com/atlasgate/gatekeeper/internal/domain/intercept"
)

type passthrough struct {
	result *hook.Result
	err    error
	calls  int
}

func (p *passthrough) Dispatch(context.Context, *intercept.Payload) (*hook.Result, error) {
	p.calls++
	return p.result, p.err
}

func TestInstrument_PassesResultThrough(t *testing.T) {
	telemetry, err := New(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = telemetry.Shutdown(context.Background()) }()

	inner := &passthrough{result: &hook.Result{
		RequestID: "req-1",
		Decision:  intercept.Block("locked", nil),
	}}
	wrapped := telemetry.Instrument(inner)

	result, err := wrapped.Dispatch(context.Background(), &intercept.Payload{Point: intercept.PreRunCommand})
	if err != nil {
		t.Fatal(err)
	}
	if inner.calls != 1 {
		t.Errorf("inner dispatcher calls: %d", inner.calls)
	}
	if result.RequestID != "req-1" || !result.Decision.IsBlock() {
		t.Errorf("result altered by instrumentation: %+v", result)
	}
}

func TestInstrument_PropagatesErrors(t *testing.T) {
	telemetry, err := New(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = telemetry.Shutdown(context.Background()) }()

	inner := &passthrough{err: errors.New("boom")}
	wrapped := telemetry.Instrument(inner)

	if _, err := wrapped.Dispatch(context.Background(), &intercept.Payload{Point: intercept.PostWrite}); err == nil {
		t.Error("expected the inner error to propagate")
	}
}
