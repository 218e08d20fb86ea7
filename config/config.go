package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// Browser transports supported for the Playwright MCP connection.
const (
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamablehttp"
)

// Wait strategies applied after navigation.
const (
	WaitModeSleep       = "sleep"
	WaitModeNetworkIdle = "networkidle"
)

// Status range defaults. A run with these bounds passes every numeric
// status, so leaving the status filter unset and setting it to 0-999
// explicitly are the same configuration.
const (
	DefaultStatusMin = 0
	DefaultStatusMax = 999
)

// Config holds all runtime configuration for a capture run.
// It is immutable once flag parsing finishes.
type Config struct {
	Browser BrowserConfig
	Storage StorageConfig
	Capture CaptureConfig
	Filter  FilterConfig
	Retry   RetryConfig
	Log     LogConfig
}

// BrowserConfig controls the connection to the Playwright MCP server.
type BrowserConfig struct {
	// Transport selects the HTTP transport: "sse" or "streamablehttp".
	Transport string // default: "sse"

	// Endpoint is the server URL (the /sse endpoint for SSE).
	Endpoint string // default: "http://127.0.0.1:8931/sse"
}

// StorageConfig controls the Filesystem MCP server launched over stdio.
type StorageConfig struct {
	Command string   // default: "npx"
	Args    []string // default: ["@agent-infra/mcp-server-filesystem@latest"]
}

// CaptureConfig controls navigation, waiting, and output.
type CaptureConfig struct {
	// URL is the navigation target. Required.
	URL string

	// Out is the output path template; supports {ts} and a leading ~.
	Out string // default: "~/mcp_captures/captures/capture_{ts}.jsonl"

	// WaitMode is the wait strategy after navigation.
	WaitMode string // "sleep" or "networkidle"; default: "networkidle"

	// WaitSeconds is the sleep duration, or the timeout for semantic waits.
	WaitSeconds float64 // default: 5
}

// FilterConfig holds the optional client-side record filters.
type FilterConfig struct {
	// URL is a regex matched (searched, not anchored) against request URLs.
	URL string

	// Method is compared case-insensitively against request methods.
	Method string

	// StatusMin / StatusMax bound the numeric response status.
	StatusMin int // default: 0
	StatusMax int // default: 999
}

// RetryConfig controls per-operation retry behavior.
type RetryConfig struct {
	// Retries is the number of retries after the first attempt.
	Retries int // default: 2

	// Backoff is the base delay, doubled on each subsequent retry.
	Backoff time.Duration // default: 750ms
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Browser: BrowserConfig{
			Transport: envOr("PLAYWRIGHT_MCP_TRANSPORT", TransportSSE),
			Endpoint:  envOr("PLAYWRIGHT_MCP_SSE_URL", "http://127.0.0.1:8931/sse"),
		},
		Storage: StorageConfig{
			Command: envOr("FILESYSTEM_MCP_CMD", "npx"),
			Args:    envFieldsOr("FILESYSTEM_MCP_ARGS", []string{"@agent-infra/mcp-server-filesystem@latest"}),
		},
		Capture: CaptureConfig{
			Out:         envOr("CAPTURE_OUT", "~/mcp_captures/captures/capture_{ts}.jsonl"),
			WaitMode:    envOr("CAPTURE_WAIT_MODE", WaitModeNetworkIdle),
			WaitSeconds: envFloatOr("CAPTURE_WAIT_SECS", 5),
		},
		Filter: FilterConfig{
			URL:       os.Getenv("CAPTURE_FILTER_URL"),
			Method:    os.Getenv("CAPTURE_FILTER_METHOD"),
			StatusMin: envIntOr("CAPTURE_STATUS_MIN", DefaultStatusMin),
			StatusMax: envIntOr("CAPTURE_STATUS_MAX", DefaultStatusMax),
		},
		Retry: RetryConfig{
			Retries: envIntOr("CAPTURE_RETRIES", 2),
			Backoff: envDurationOr("CAPTURE_BACKOFF", 750*time.Millisecond),
		},
		Log: LogConfig{
			Level:  envOr("CAPTURE_LOG_LEVEL", "info"),
			Format: envOr("CAPTURE_LOG_FORMAT", "text"),
		},
	}
}

// BindFlags registers every configurable field on the command. The loaded
// environment values act as flag defaults, so flags always win.
func (c *Config) BindFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.Capture.URL, "url", c.Capture.URL, "URL to navigate (required)")
	cmd.Flags().StringVar(&c.Capture.Out, "out", c.Capture.Out, "Output JSONL path template (supports {ts} and ~)")
	cmd.Flags().StringVar(&c.Capture.WaitMode, "wait-mode", c.Capture.WaitMode, "Wait strategy after navigation (sleep|networkidle)")
	cmd.Flags().Float64Var(&c.Capture.WaitSeconds, "wait", c.Capture.WaitSeconds, "Seconds to wait (sleep duration, or timeout for semantic waits)")

	cmd.Flags().StringVar(&c.Browser.Endpoint, "sse", c.Browser.Endpoint, "Playwright MCP endpoint URL")
	cmd.Flags().StringVar(&c.Browser.Transport, "browser-transport", c.Browser.Transport, "Playwright MCP transport (sse|streamablehttp)")
	cmd.Flags().StringVar(&c.Storage.Command, "fs-cmd", c.Storage.Command, "Filesystem MCP command (e.g. npx)")
	cmd.Flags().StringArrayVar(&c.Storage.Args, "fs-args", c.Storage.Args, "Filesystem MCP command arguments (repeatable)")

	cmd.Flags().StringVar(&c.Filter.URL, "filter-url", c.Filter.URL, "Regex to filter request URLs")
	cmd.Flags().StringVar(&c.Filter.Method, "filter-method", c.Filter.Method, "HTTP method filter (e.g. GET, POST)")
	cmd.Flags().IntVar(&c.Filter.StatusMin, "status-min", c.Filter.StatusMin, "Minimum response status to keep")
	cmd.Flags().IntVar(&c.Filter.StatusMax, "status-max", c.Filter.StatusMax, "Maximum response status to keep")

	cmd.Flags().IntVar(&c.Retry.Retries, "retries", c.Retry.Retries, "Retries per remote operation after the first attempt")
	cmd.Flags().DurationVar(&c.Retry.Backoff, "backoff", c.Retry.Backoff, "Base retry delay, doubled per retry")

	cmd.Flags().StringVar(&c.Log.Level, "log-level", c.Log.Level, "Log level (debug|info|warn|error)")
	cmd.Flags().StringVar(&c.Log.Format, "log-format", c.Log.Format, "Log format (text|json)")
}

// Validate checks the configuration for values no run can proceed with.
func (c *Config) Validate() error {
	if c.Capture.URL == "" {
		return fmt.Errorf("--url is required")
	}
	switch c.Browser.Transport {
	case TransportSSE, TransportStreamableHTTP:
	default:
		return fmt.Errorf("unknown browser transport %q", c.Browser.Transport)
	}
	switch c.Capture.WaitMode {
	case WaitModeSleep, WaitModeNetworkIdle:
	default:
		return fmt.Errorf("unknown wait mode %q", c.Capture.WaitMode)
	}
	if c.Capture.WaitSeconds < 0 {
		return fmt.Errorf("wait must not be negative")
	}
	if c.Retry.Retries < 0 {
		return fmt.Errorf("retries must not be negative")
	}
	if c.Filter.URL != "" {
		if _, err := regexp.Compile(c.Filter.URL); err != nil {
			return fmt.Errorf("invalid --filter-url regex: %w", err)
		}
	}
	return nil
}

// WaitDuration returns the configured wait as a time.Duration.
func (c *CaptureConfig) WaitDuration() time.Duration {
	return time.Duration(c.WaitSeconds * float64(time.Second))
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envFieldsOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		if fields := strings.Fields(v); len(fields) > 0 {
			return fields
		}
	}
	return fallback
}
