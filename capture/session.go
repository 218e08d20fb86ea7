package capture

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/use-agent/netcapture/config"
	"github.com/use-agent/netcapture/mcpconn"
)

// Tool names exposed by the Playwright and Filesystem MCP servers.
const (
	toolNavigate        = "browser_navigate"
	toolWaitFor         = "browser_wait_for"
	toolNetworkRequests = "browser_network_requests"
	toolCreateDirectory = "create_directory"
	toolWriteFile       = "write_file"
)

// Session owns the browser and storage connections for one capture run.
// It issues strictly sequential remote calls; all of them go through the
// retry wrapper with the configured budget.
type Session struct {
	browser mcpconn.Invoker
	storage mcpconn.Invoker
	retries int
	backoff time.Duration
}

// NewSession builds a session over already-connected invokers. The session
// does not own their lifetime; the caller closes them.
func NewSession(browser, storage mcpconn.Invoker, retries int, backoff time.Duration) *Session {
	return &Session{
		browser: browser,
		storage: storage,
		retries: retries,
		backoff: backoff,
	}
}

// Capture navigates to url, waits per the chosen strategy, fetches the
// network requests observed during load, and returns them as a record
// list in arrival order. Navigate and fetch failures are fatal after the
// retry budget.
func (s *Session) Capture(ctx context.Context, url, waitMode string, wait time.Duration) ([]any, error) {
	slog.Info("navigating", "url", url)
	if _, err := mcpconn.CallWithRetry(ctx, s.browser, toolNavigate, map[string]any{"url": url}, s.retries, s.backoff); err != nil {
		return nil, err
	}

	if err := s.wait(ctx, waitMode, wait); err != nil {
		return nil, err
	}

	slog.Info("fetching network requests")
	payload, err := mcpconn.CallWithRetry(ctx, s.browser, toolNetworkRequests, nil, s.retries, s.backoff)
	if err != nil {
		return nil, err
	}
	records := CoerceRecords(payload)
	slog.Info("network requests fetched", "records", len(records))
	return records, nil
}

// wait applies the requested wait strategy. Semantic waiting is used only
// when the server exposes browser_wait_for; otherwise, and for any unknown
// mode, a local timed delay is the fallback.
func (s *Session) wait(ctx context.Context, mode string, timeout time.Duration) error {
	if !mcpconn.ToolAvailable(ctx, s.browser, toolWaitFor) {
		slog.Info("browser_wait_for not available, sleeping", "duration", timeout)
		return sleepCtx(ctx, timeout)
	}

	switch mode {
	case config.WaitModeSleep:
		slog.Info("waiting (sleep)", "duration", timeout)
		return sleepCtx(ctx, timeout)
	case config.WaitModeNetworkIdle:
		slog.Info("waiting for network idle", "timeout", timeout)
		_, err := mcpconn.CallWithRetry(ctx, s.browser, toolWaitFor, map[string]any{
			"state":   "networkidle",
			"timeout": int(timeout.Milliseconds()),
		}, s.retries, s.backoff)
		return err
	default:
		slog.Warn("unknown wait mode, sleeping", "mode", mode, "duration", timeout)
		return sleepCtx(ctx, timeout)
	}
}

// SaveJSONL persists records as newline-delimited JSON through the storage
// service and returns the expanded output path. The parent directory is
// created best-effort when the server exposes create_directory; a failure
// there is logged and the write proceeds anyway. The write itself is fatal
// after the retry budget.
func (s *Session) SaveJSONL(ctx context.Context, records any, pathTemplate string) (string, error) {
	outPath, err := ExpandPathTemplate(pathTemplate)
	if err != nil {
		return "", err
	}

	if mcpconn.ToolAvailable(ctx, s.storage, toolCreateDirectory) {
		dir := filepath.Dir(outPath)
		if _, err := mcpconn.CallWithRetry(ctx, s.storage, toolCreateDirectory, map[string]any{"path": dir}, s.retries, s.backoff); err != nil {
			slog.Warn("create_directory failed, continuing", "dir", dir, "error", err)
		} else {
			slog.Info("ensured directory", "dir", dir)
		}
	}

	content, err := MarshalRecords(records)
	if err != nil {
		return "", err
	}
	if _, err := mcpconn.CallWithRetry(ctx, s.storage, toolWriteFile, map[string]any{
		"path":    outPath,
		"content": content,
	}, s.retries, s.backoff); err != nil {
		return "", err
	}

	slog.Info("saved capture", "lines", strings.Count(content, "\n"), "path", outPath)
	return outPath, nil
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
