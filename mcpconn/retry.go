package mcpconn

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// OperationError is the terminal failure of a tool invocation after its
// retry budget is exhausted. It wraps the last underlying failure.
type OperationError struct {
	Tool    string
	Retries int
	Err     error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("tool %s failed after %d retries: %v", e.Tool, e.Retries, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// CallWithRetry invokes a tool, retrying on any failure with exponential
// backoff: retries+1 attempts in total, delay backoff*2^(attempt-1) between
// them. Every failure is treated as transient; there is no per-error-kind
// classification. A context cancellation during backoff aborts immediately.
func CallWithRetry(ctx context.Context, inv Invoker, tool string, args map[string]any, retries int, backoff time.Duration) (any, error) {
	var lastErr error
	for attempt := 0; ; {
		result, err := inv.CallTool(ctx, tool, args)
		if err == nil {
			return result, nil
		}
		lastErr = err
		attempt++
		if attempt > retries {
			break
		}
		delay := backoff << (attempt - 1)
		slog.Warn("tool call failed, retrying",
			"server", inv.Name(),
			"tool", tool,
			"attempt", attempt,
			"retries", retries,
			"delay", delay,
			"error", err,
		)
		if err := sleepCtx(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, &OperationError{Tool: tool, Retries: retries, Err: lastErr}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
