package mcpconn

import (
	"context"
	"errors"
	"testing"
	"time"
)

// scriptedInvoker fails its first `failures` calls and then succeeds.
type scriptedInvoker struct {
	failures int
	err      error
	result   any

	calls     int
	listNames []string
	listErr   error
}

func (s *scriptedInvoker) Name() string { return "scripted" }

func (s *scriptedInvoker) CallTool(ctx context.Context, tool string, args map[string]any) (any, error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, s.err
	}
	return s.result, nil
}

func (s *scriptedInvoker) ListToolNames(ctx context.Context) ([]string, error) {
	return s.listNames, s.listErr
}

func TestCallWithRetry_SucceedsFirstAttempt(t *testing.T) {
	inv := &scriptedInvoker{result: "ok"}

	got, err := CallWithRetry(context.Background(), inv, "navigate", nil, 2, time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("result = %v, want ok", got)
	}
	if inv.calls != 1 {
		t.Errorf("calls = %d, want 1", inv.calls)
	}
}

func TestCallWithRetry_RecoversWithinBudget(t *testing.T) {
	inv := &scriptedInvoker{failures: 2, err: errors.New("boom"), result: "ok"}

	got, err := CallWithRetry(context.Background(), inv, "navigate", nil, 2, time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ok" {
		t.Errorf("result = %v, want ok", got)
	}
	if inv.calls != 3 {
		t.Errorf("calls = %d, want 3", inv.calls)
	}
}

func TestCallWithRetry_ExhaustsBudget(t *testing.T) {
	cause := errors.New("boom")
	inv := &scriptedInvoker{failures: 100, err: cause}

	_, err := CallWithRetry(context.Background(), inv, "navigate", nil, 1, time.Millisecond)
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if inv.calls != 2 {
		t.Errorf("calls = %d, want 2 (retries+1 attempts)", inv.calls)
	}

	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("error type = %T, want *OperationError", err)
	}
	if opErr.Tool != "navigate" || opErr.Retries != 1 {
		t.Errorf("OperationError = %+v", opErr)
	}
	if !errors.Is(err, cause) {
		t.Error("terminal error should wrap the last underlying failure")
	}
}

func TestCallWithRetry_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inv := &scriptedInvoker{failures: 100, err: errors.New("boom")}

	_, err := CallWithRetry(ctx, inv, "navigate", nil, 3, 10*time.Millisecond)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if inv.calls != 1 {
		t.Errorf("calls = %d, want 1 (no attempts after cancellation)", inv.calls)
	}
}

func TestToolAvailable(t *testing.T) {
	inv := &scriptedInvoker{listNames: []string{"browser_navigate", "browser_wait_for"}}

	if !ToolAvailable(context.Background(), inv, "browser_wait_for") {
		t.Error("listed tool should be available")
	}
	if ToolAvailable(context.Background(), inv, "browser_snapshot") {
		t.Error("unlisted tool should not be available")
	}
}

func TestToolAvailable_ListErrorMeansAbsent(t *testing.T) {
	inv := &scriptedInvoker{listErr: errors.New("connection reset")}

	if ToolAvailable(context.Background(), inv, "browser_wait_for") {
		t.Error("a listing error must be treated as capability absent")
	}
}
