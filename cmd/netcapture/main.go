package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/use-agent/netcapture/capture"
	"github.com/use-agent/netcapture/config"
	"github.com/use-agent/netcapture/mcpconn"
)

var (
	cfg         *config.Config
	showVersion bool

	Version = "dev"
)

// errInterrupted marks a run ended by SIGINT/SIGTERM; main maps it to 130.
var errInterrupted = errors.New("interrupted")

var rootCmd = &cobra.Command{
	Use:   "netcapture",
	Short: "Capture browser network requests via MCP",
	Long: `netcapture drives a Playwright MCP server to load a page, captures the
network requests observed during load, optionally filters them, and
persists the result as newline-delimited JSON through a Filesystem MCP
server. On success the resolved output path is printed to stdout.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCapture,
}

func main() {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	cfg = config.Load()
	cfg.BindFlags(rootCmd)
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errInterrupted) {
			os.Exit(130)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runCapture(cmd *cobra.Command, args []string) error {
	if showVersion {
		fmt.Printf("netcapture version: %s\n", Version)
		return nil
	}

	initLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	slog.Info("netcapture starting",
		"run_id", uuid.NewString(),
		"url", cfg.Capture.URL,
		"waitMode", cfg.Capture.WaitMode,
		"out", cfg.Capture.Out,
	)
	logChangedFlags(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cmd); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Warn("interrupted")
			return errInterrupted
		}
		slog.Error("fatal error", "error", err)
		return err
	}
	return nil
}

// run opens both connections, captures, filters, and persists. Both
// connections are released on every exit path, storage before browser.
func run(ctx context.Context, cmd *cobra.Command) error {
	browser, err := dialBrowser(ctx)
	if err != nil {
		return err
	}
	defer browser.Close()

	storage, err := mcpconn.DialStdio(ctx, "filesystem", cfg.Storage.Command, nil, cfg.Storage.Args...)
	if err != nil {
		return err
	}
	defer storage.Close()

	session := capture.NewSession(browser, storage, cfg.Retry.Retries, cfg.Retry.Backoff)

	records, err := session.Capture(ctx, cfg.Capture.URL, cfg.Capture.WaitMode, cfg.Capture.WaitDuration())
	if err != nil {
		return err
	}

	output := records
	if filtersRequested(cmd) {
		opts, err := filterOptions()
		if err != nil {
			return err
		}
		output = capture.FilterRecords(records, opts)
		slog.Info("filtered records", "before", len(records), "after", len(output))
	}

	outPath, err := session.SaveJSONL(ctx, output, cfg.Capture.Out)
	if err != nil {
		return err
	}

	// The path is the tool's only stdout output, for shell pipelines.
	fmt.Println(outPath)
	return nil
}

func dialBrowser(ctx context.Context) (*mcpconn.Connection, error) {
	switch cfg.Browser.Transport {
	case config.TransportStreamableHTTP:
		return mcpconn.DialStreamableHTTP(ctx, "playwright", cfg.Browser.Endpoint)
	default:
		return mcpconn.DialSSE(ctx, "playwright", cfg.Browser.Endpoint)
	}
}

// filtersRequested reports whether any filter was explicitly configured.
// URL and method filters count from flags or environment; the status range
// counts only when a status flag was passed on the command line.
func filtersRequested(cmd *cobra.Command) bool {
	return cfg.Filter.URL != "" ||
		cfg.Filter.Method != "" ||
		cmd.Flags().Changed("status-min") ||
		cmd.Flags().Changed("status-max")
}

func filterOptions() (capture.Options, error) {
	opts := capture.Options{
		Method:    cfg.Filter.Method,
		StatusMin: &cfg.Filter.StatusMin,
		StatusMax: &cfg.Filter.StatusMax,
	}
	if cfg.Filter.URL != "" {
		pattern, err := regexp.Compile(cfg.Filter.URL)
		if err != nil {
			return capture.Options{}, fmt.Errorf("invalid URL filter: %w", err)
		}
		opts.URLPattern = pattern
	}
	return opts, nil
}

func logChangedFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			slog.Debug("flag override", "flag", f.Name, "value", f.Value.String())
		}
	})
}

// initLogger configures slog based on the LogConfig. Logs go to stderr;
// stdout carries only the resolved output path.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
